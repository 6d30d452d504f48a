package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/s0up4200/cinerec/api"
	"github.com/s0up4200/cinerec/validation"
)

// ErrNoSession is returned by operations that need an authenticated session
var ErrNoSession = errors.New("no active session")

// AuthError indicates the service rejected the supplied credentials
type AuthError struct {
	Username string
	Message  string
	Err      error
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return fmt.Sprintf("login failed for %q: %s", e.Username, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// Doer is the subset of api.Client used by the store
type Doer interface {
	Request(ctx context.Context, method, path string, opts api.RequestOptions, out any) error
}

// Store holds the single authoritative session for the process.
type Store struct {
	api     Doer
	storage Storage
	logger  zerolog.Logger
	now     func() time.Time

	// notifyMu serializes state changes together with their notifications
	notifyMu sync.Mutex

	mu        sync.RWMutex
	state     AuthState
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(AuthState)
}

// NewStore creates a store in the Loading state. Call LoadPersisted to resolve it.
func NewStore(doer Doer, storage Storage, logger zerolog.Logger) *Store {
	return &Store{
		api:     doer,
		storage: storage,
		logger:  logger,
		now:     time.Now,
		state:   Loading(),
	}
}

// Current returns the current state
func (s *Store) Current() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Session returns the current session or nil
func (s *Store) Session() *Session {
	return s.Current().Session
}

// Token implements api.TokenSource
func (s *Store) Token() string {
	if sess := s.Session(); sess != nil {
		return sess.Token
	}
	return ""
}

// Subscribe registers fn to be called synchronously after every state change.
// Listeners must not call mutating Store methods.
func (s *Store) Subscribe(fn func(AuthState)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// setState must be called with notifyMu held
func (s *Store) setState(state AuthState) {
	s.mu.Lock()
	s.state = state
	listeners := make([]listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.fn(state)
	}
}

// LoadPersisted reads the previous session from storage and resolves the store.
// It never fails: absent, partial, corrupt or expired state yields nil.
func (s *Store) LoadPersisted(ctx context.Context) *Session {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	sess := s.readPersisted(ctx)
	if sess == nil {
		s.setState(Anonymous())
		return nil
	}
	s.setState(Authenticated(sess))
	return sess
}

func (s *Store) readPersisted(ctx context.Context) *Session {
	rec, err := s.storage.Load(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read persisted session")
		return nil
	}
	if rec.Token == "" || len(rec.User) == 0 {
		if rec.Token != "" || len(rec.User) != 0 {
			s.logger.Debug().Msg("Ignoring partially persisted session")
		}
		return nil
	}

	var user User
	if err := json.Unmarshal(rec.User, &user); err != nil {
		s.logger.Debug().Err(err).Msg("Ignoring corrupt persisted user record")
		return nil
	}
	if user.ID == 0 || user.Username == "" {
		return nil
	}

	if tokenExpired(rec.Token, s.now()) {
		s.logger.Info().Str("username", user.Username).Msg("Persisted session has expired")
		return nil
	}

	return &Session{Token: rec.Token, User: user}
}

type credentials struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
}

// Login authenticates against the service, persists the session and makes it current.
// On any failure the existing state is left untouched.
func (s *Store) Login(ctx context.Context, username, password string) (*Session, error) {
	creds := credentials{Username: username, Password: password}
	if err := validation.Struct(creds); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := s.api.Request(ctx, http.MethodPost, "/auth/login", api.RequestOptions{Body: creds}, &resp); err != nil {
		if api.IsUnauthorized(err) || api.StatusOf(err) == http.StatusBadRequest {
			var apiErr *api.Error
			errors.As(err, &apiErr)
			return nil, &AuthError{Username: username, Message: apiErr.Message, Err: err}
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if resp.AccessToken == "" || resp.UserID == 0 {
		return nil, &AuthError{Username: username, Message: "service returned no access token"}
	}

	if resp.Username == "" {
		resp.Username = username
	}
	sess := &Session{
		Token: resp.AccessToken,
		User:  User{ID: resp.UserID, Username: resp.Username},
	}

	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return nil, fmt.Errorf("encode user record: %w", err)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	if err := s.storage.Save(ctx, Record{Token: sess.Token, User: userJSON}); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	s.setState(Authenticated(sess))

	s.logger.Info().Str("username", sess.User.Username).Int64("user_id", sess.User.ID).Msg("Logged in")
	return sess, nil
}

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterResult is the account created by Register
type RegisterResult struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register creates an account. It never logs in and never touches session state.
func (s *Store) Register(ctx context.Context, username, email, password string) (*RegisterResult, error) {
	req := RegisterRequest{Username: username, Email: email, Password: password}
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var result RegisterResult
	if err := s.api.Request(ctx, http.MethodPost, "/auth/register", api.RequestOptions{Body: req}, &result); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.logger.Info().Str("username", username).Msg("Registered account")
	return &result, nil
}

// Logout clears persisted and in-memory state unconditionally. Calling it
// without a session is a no-op. The storage error, if any, is returned after
// memory has been cleared.
func (s *Store) Logout(ctx context.Context) error {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	err := s.storage.Clear(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to clear persisted session")
		err = fmt.Errorf("clear session: %w", err)
	}

	prev := s.Current()
	s.setState(Anonymous())
	if prev.Session != nil {
		s.logger.Info().Str("username", prev.Session.User.Username).Msg("Logged out")
	}
	return err
}
