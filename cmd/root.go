package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/cinerec/api"
	"github.com/s0up4200/cinerec/catalog"
	"github.com/s0up4200/cinerec/config"
	"github.com/s0up4200/cinerec/session"
	"github.com/s0up4200/cinerec/view"
)

// skipInit marks commands that run without config, storage or clients
const skipInit = "skipInit"

var (
	cfgFile   string
	cfg       *config.Config
	logger    zerolog.Logger
	client    *api.Client
	storage   session.Storage
	store     *session.Store
	movies    *catalog.Movies
	ratings   *catalog.Ratings
	recs      *catalog.Recommendations
	formatter = view.NewConsoleFormatter()

	// closed once the persisted session has been read
	sessionLoaded chan struct{}

	version   = "dev"
	buildTime = "unknown"
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cinerec",
	Short: "Browse, rate and get recommendations from a movie recommendation service",
	Long: `cinerec is a terminal client for a movie recommendation service.

Browse and search the catalog, rate what you have watched and get
personalized recommendations once you have rated enough movies.`,
	PersistentPreRunE: initializeApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// SetVersion sets the build metadata reported by version and update
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	shutdown()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ~/.cinerec/config.yaml)")
}

// initializeApp loads configuration, opens session storage and builds the
// API clients. The persisted session is resolved in the background; guarded
// commands wait for it.
func initializeApp(cmd *cobra.Command, args []string) error {
	if cmd.Annotations[skipInit] == "true" {
		return nil
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger = setupLogger(cfg.Logging)

	storage, err = openStorage(cfg.Session)
	if err != nil {
		return err
	}

	opts := []api.Option{
		api.WithUserAgent("cinerec/" + version),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.Burst),
	}
	if cfg.API.Timeout > 0 {
		opts = append(opts, api.WithTimeout(cfg.API.Timeout))
	}
	client, err = api.NewClient(cfg.API.URL, logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to create API client: %w", err)
	}

	store = session.NewStore(client, storage, logger)
	client.SetTokenSource(store)

	movies = catalog.NewMovies(client)
	ratings = catalog.NewRatings(client)
	recs = catalog.NewRecommendations(client)

	loaded := make(chan struct{})
	sessionLoaded = loaded
	ctx := cmd.Context()
	go func() {
		defer close(loaded)
		if sess := store.LoadPersisted(ctx); sess != nil {
			logger.Debug().Str("username", sess.User.Username).Msg("Restored session")
		}
	}()

	return nil
}

func openStorage(sc config.SessionConfig) (session.Storage, error) {
	if sc.Ephemeral || sc.Path == "" {
		return session.NewMemoryStorage(), nil
	}
	if err := os.MkdirAll(sc.Path, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	s, err := session.OpenBadgerStorage(sc.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session storage: %w", err)
	}
	return s, nil
}

// shutdown waits for background session loading and closes storage
func shutdown() {
	if sessionLoaded != nil {
		<-sessionLoaded
		sessionLoaded = nil
	}
	if storage != nil {
		if err := storage.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close session storage")
		}
		storage = nil
	}
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	tty := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !tty,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// storeWatcher defers to the store built in initializeApp, so guards can be
// attached to commands before the store exists.
type storeWatcher struct{}

func (storeWatcher) Current() session.AuthState {
	return store.Current()
}

func (storeWatcher) Subscribe(fn func(session.AuthState)) func() {
	return store.Subscribe(fn)
}
