package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. CINEREC_API_URL
const EnvPrefix = "CINEREC"

// Load loads the configuration. A missing config file is not an error; the
// defaults, a .env file in the working directory and CINEREC_* environment
// variables still apply.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := Dir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath("/etc/cinerec/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Dir returns the per-user configuration directory, ~/.cinerec
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cinerec"), nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", 0)
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.burst", 1)

	if dir, err := Dir(); err == nil {
		v.SetDefault("session.path", filepath.Join(dir, "session"))
	} else {
		v.SetDefault("session.path", "")
	}
	v.SetDefault("session.ephemeral", false)

	v.SetDefault("search.debounce", 500*time.Millisecond)
	v.SetDefault("search.page_size", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.API.URL == "" {
		return fmt.Errorf("api.url is required")
	}
	u, err := url.Parse(cfg.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.url must be an http(s) URL: %s", cfg.API.URL)
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if cfg.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}

	if cfg.Search.Debounce <= 0 {
		return fmt.Errorf("search.debounce must be positive")
	}
	if cfg.Search.PageSize < 1 || cfg.Search.PageSize > 100 {
		return fmt.Errorf("search.page_size must be between 1 and 100")
	}

	for name, expression := range cfg.Filter {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter %q has an empty expression", name)
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// ResolveFilter returns the named filter from the config, or value itself
// when no filter by that name exists. Names match case-insensitively since
// viper lowercases map keys.
func (c *Config) ResolveFilter(value string) string {
	if expression, ok := c.Filter[value]; ok {
		return expression
	}
	if expression, ok := c.Filter[strings.ToLower(value)]; ok {
		return expression
	}
	return value
}
