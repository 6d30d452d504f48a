package guard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/cinerec/session"
)

// fakeWatcher lets tests drive auth state by hand
type fakeWatcher struct {
	mu        sync.Mutex
	state     session.AuthState
	listeners map[int]func(session.AuthState)
	next      int
}

func newFakeWatcher(state session.AuthState) *fakeWatcher {
	return &fakeWatcher{state: state, listeners: make(map[int]func(session.AuthState))}
}

func (w *fakeWatcher) Current() session.AuthState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *fakeWatcher) Subscribe(fn func(session.AuthState)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	w.listeners[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

func (w *fakeWatcher) set(state session.AuthState) {
	w.mu.Lock()
	w.state = state
	var fns []func(session.AuthState)
	for _, fn := range w.listeners {
		fns = append(fns, fn)
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(state)
	}
}

func (w *fakeWatcher) subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

var alice = &session.Session{Token: "t1", User: session.User{ID: 7, Username: "alice"}}

func TestDecide(t *testing.T) {
	tests := []struct {
		name  string
		state session.AuthState
		want  Decision
	}{
		{"loading", session.Loading(), RenderLoading},
		{"authenticated", session.Authenticated(alice), RenderProtected},
		{"anonymous", session.Anonymous(), RedirectLogin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.state))
		})
	}
}

func TestDecision_String(t *testing.T) {
	assert.Equal(t, "loading", RenderLoading.String())
	assert.Equal(t, "render", RenderProtected.String())
	assert.Equal(t, "redirect", RedirectLogin.String())
}

func TestWait_AlreadyResolved(t *testing.T) {
	sess, err := Wait(context.Background(), newFakeWatcher(session.Authenticated(alice)))
	require.NoError(t, err)
	assert.Equal(t, alice, sess)

	_, err = Wait(context.Background(), newFakeWatcher(session.Anonymous()))
	assert.ErrorIs(t, err, ErrLoginRequired)
}

func TestWait_NeverRedirectsWhileLoading(t *testing.T) {
	for _, final := range []session.AuthState{session.Authenticated(alice), session.Anonymous()} {
		t.Run(final.Status.String(), func(t *testing.T) {
			w := newFakeWatcher(session.Loading())

			type result struct {
				sess *session.Session
				err  error
			}
			done := make(chan result, 1)
			go func() {
				sess, err := Wait(context.Background(), w)
				done <- result{sess, err}
			}()

			require.Eventually(t, func() bool { return w.subscribers() == 1 }, time.Second, time.Millisecond)
			select {
			case r := <-done:
				t.Fatalf("guard decided while loading: %+v", r)
			case <-time.After(30 * time.Millisecond):
			}

			w.set(final)
			r := <-done
			if final.Status == session.StatusAnonymous {
				assert.ErrorIs(t, r.err, ErrLoginRequired)
				assert.Nil(t, r.sess)
			} else {
				require.NoError(t, r.err)
				assert.Equal(t, alice, r.sess)
			}
			assert.Equal(t, 0, w.subscribers())
		})
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	w := newFakeWatcher(session.Loading())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Wait(ctx, w)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, w.subscribers())
}

func TestWait_WithStore(t *testing.T) {
	store := session.NewStore(nil, session.NewMemoryStorage(), zerolog.Nop())

	done := make(chan error, 1)
	go func() {
		_, err := Wait(context.Background(), store)
		done <- err
	}()

	select {
	case err := <-done:
		t.Fatalf("guard decided before the store resolved: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	assert.Nil(t, store.LoadPersisted(context.Background()))
	assert.ErrorIs(t, <-done, ErrLoginRequired)
}

func TestProtect(t *testing.T) {
	run := func(w session.Watcher) (bool, error) {
		var called bool
		cmd := &cobra.Command{
			Use: "secret",
			RunE: Protect(w, func(cmd *cobra.Command, args []string, sess *session.Session) error {
				called = true
				assert.Equal(t, "alice", sess.User.Username)
				return nil
			}),
		}
		cmd.SetArgs([]string{})
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return called, cmd.Execute()
	}

	called, err := run(newFakeWatcher(session.Authenticated(alice)))
	require.NoError(t, err)
	assert.True(t, called)

	called, err = run(newFakeWatcher(session.Anonymous()))
	assert.True(t, errors.Is(err, ErrLoginRequired))
	assert.False(t, called)
}
