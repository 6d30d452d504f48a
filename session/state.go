package session

import (
	"time"
)

// User is the persisted identity record
type User struct {
	ID       int64  `json:"user_id"`
	Username string `json:"username"`
}

// Session is the authenticated identity and credential held by the client
type Session struct {
	Token string
	User  User
}

// ExpiresAt returns the token expiry when the token is a JWT carrying exp.
func (s *Session) ExpiresAt() (time.Time, bool) {
	return tokenExpiry(s.Token)
}

// Status is the resolution state of the session
type Status int

const (
	// StatusLoading means persisted state has not been read yet
	StatusLoading Status = iota
	// StatusAuthenticated means a session is present
	StatusAuthenticated
	// StatusAnonymous means resolution found no session
	StatusAnonymous
)

// String returns the string representation of a Status
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// AuthState is a three-state variant: Loading, Authenticated(session) or Anonymous.
// Session is non-nil iff Status is StatusAuthenticated.
type AuthState struct {
	Status  Status
	Session *Session
}

// Loading returns the indeterminate state
func Loading() AuthState {
	return AuthState{Status: StatusLoading}
}

// Authenticated returns the state holding s
func Authenticated(s *Session) AuthState {
	return AuthState{Status: StatusAuthenticated, Session: s}
}

// Anonymous returns the resolved no-session state
func Anonymous() AuthState {
	return AuthState{Status: StatusAnonymous}
}

// Resolved reports whether the state is no longer Loading
func (a AuthState) Resolved() bool {
	return a.Status != StatusLoading
}

// Watcher is the read side of Store that views and guards depend on
type Watcher interface {
	Current() AuthState
	Subscribe(fn func(AuthState)) (unsubscribe func())
}
