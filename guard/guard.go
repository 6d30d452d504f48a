// Package guard gates commands that need a signed-in user.
//
// A guard never decides while the session is still Loading: it waits for the
// store to resolve and only then either runs the protected work or reports
// ErrLoginRequired.
package guard

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/s0up4200/cinerec/session"
)

// ErrLoginRequired means the resolved session is anonymous
var ErrLoginRequired = errors.New("login required: run 'cinerec login' first")

// Decision is what a protected view should do for a given AuthState
type Decision int

const (
	RenderLoading Decision = iota
	RenderProtected
	RedirectLogin
)

func (d Decision) String() string {
	switch d {
	case RenderProtected:
		return "render"
	case RedirectLogin:
		return "redirect"
	default:
		return "loading"
	}
}

// Decide maps an auth state to a decision
func Decide(state session.AuthState) Decision {
	switch state.Status {
	case session.StatusAuthenticated:
		return RenderProtected
	case session.StatusAnonymous:
		return RedirectLogin
	default:
		return RenderLoading
	}
}

// Wait blocks until watcher leaves Loading and returns the session, or
// ErrLoginRequired if the user is anonymous.
func Wait(ctx context.Context, watcher session.Watcher) (*session.Session, error) {
	resolved := make(chan session.AuthState, 1)
	unsubscribe := watcher.Subscribe(func(state session.AuthState) {
		if !state.Resolved() {
			return
		}
		select {
		case resolved <- state:
		default:
		}
	})
	defer unsubscribe()

	// subscribe first so a resolution between the two calls is not missed
	state := watcher.Current()
	if !state.Resolved() {
		select {
		case state = <-resolved:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if Decide(state) == RedirectLogin {
		return nil, ErrLoginRequired
	}
	return state.Session, nil
}

// RunE is a cobra handler that receives the resolved session
type RunE func(cmd *cobra.Command, args []string, sess *session.Session) error

// Protect wraps fn so it only runs for a signed-in user
func Protect(watcher session.Watcher, fn RunE) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		sess, err := Wait(cmd.Context(), watcher)
		if err != nil {
			return err
		}
		return fn(cmd, args, sess)
	}
}
