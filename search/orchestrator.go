// Package search coordinates debounced free-text search and pagination over
// the movie catalog.
//
// Every input (a keystroke, a page change, a clear) bumps a request
// generation. A response is applied only if its generation is still the
// latest when it arrives; superseded requests also have their context
// cancelled, but the generation check is what keeps stale results off screen.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/s0up4200/cinerec/catalog"
)

// Fetcher lists catalog pages. catalog.Movies satisfies it.
type Fetcher interface {
	List(ctx context.Context, params catalog.ListParams) (*catalog.MoviePage, error)
}

// Orchestrator owns the query, page and displayed View for one screen
type Orchestrator struct {
	movies   Fetcher
	logger   zerolog.Logger
	debounce time.Duration
	pageSize int
	genre    string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// notifyMu serializes view changes together with their notifications
	notifyMu sync.Mutex

	mu        sync.Mutex
	view      View
	query     string
	gen       uint64
	timer     *time.Timer
	inflight  context.CancelFunc
	closed    bool
	listeners []listener
	nextID    int
}

type listener struct {
	id int
	fn func(View)
}

// New creates an idle orchestrator in catalog mode. Nothing is fetched until
// Refresh, SetQuery or SetPage is called.
func New(movies Fetcher, opts ...Option) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		movies:   movies,
		logger:   zerolog.Nop(),
		debounce: DefaultDebounce,
		pageSize: catalog.DefaultPageSize,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.view = View{Mode: ModeCatalog, Page: 1, PageSize: o.pageSize, State: StateIdle}
	return o
}

// View returns a snapshot of the displayed state
func (o *Orchestrator) View() View {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view
}

// Subscribe registers fn to receive every applied View, in order.
// Listeners run synchronously and must not call back into the Orchestrator.
func (o *Orchestrator) Subscribe(fn func(View)) func() {
	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.listeners = append(o.listeners, listener{id: id, fn: fn})
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			for i, l := range o.listeners {
				if l.id == id {
					o.listeners = append(o.listeners[:i:i], o.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// SetQuery records new query text and restarts the debounce timer.
// Blank text is equivalent to Clear.
func (o *Orchestrator) SetQuery(text string) {
	if strings.TrimSpace(text) == "" {
		o.Clear()
		return
	}

	o.update(func() bool {
		o.supersedeLocked()
		o.query = text
		o.view.Query = text
		o.view.Page = 1
		o.view.State = StateDebouncing

		gen := o.gen
		o.timer = time.AfterFunc(o.debounce, func() { o.fire(gen) })
		return true
	})
}

// SetPage jumps to page n immediately, without debounce, in the current mode
func (o *Orchestrator) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	o.update(func() bool {
		o.supersedeLocked()
		o.view.Page = n
		o.startFetchLocked()
		return true
	})
}

// Clear drops the query, cancels pending and in-flight searches and shows
// the first catalog page.
func (o *Orchestrator) Clear() {
	o.update(func() bool {
		o.supersedeLocked()
		o.query = ""
		o.view.Query = ""
		o.view.Page = 1
		o.startFetchLocked()
		return true
	})
}

// Refresh refetches the current mode and page immediately
func (o *Orchestrator) Refresh() {
	o.update(func() bool {
		o.supersedeLocked()
		o.startFetchLocked()
		return true
	})
}

// Close stops timers and in-flight requests and waits for them to finish.
// It is safe to call more than once.
func (o *Orchestrator) Close() {
	o.notifyMu.Lock()
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		o.supersedeLocked()
		o.cancel()
	}
	o.mu.Unlock()
	o.notifyMu.Unlock()

	o.wg.Wait()
}

// update runs fn under both locks and, if fn reports a change, notifies
// listeners before releasing notifyMu.
func (o *Orchestrator) update(fn func() bool) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	if o.closed || !fn() {
		o.mu.Unlock()
		return
	}
	view := o.view
	listeners := make([]listener, len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, l := range listeners {
		l.fn(view)
	}
}

// supersedeLocked invalidates every outstanding timer and request
func (o *Orchestrator) supersedeLocked() {
	o.gen++
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.inflight != nil {
		o.inflight()
		o.inflight = nil
	}
}

func (o *Orchestrator) fire(gen uint64) {
	o.update(func() bool {
		if gen != o.gen {
			return false
		}
		o.timer = nil
		o.startFetchLocked()
		return true
	})
}

// startFetchLocked issues the request for the current query and page under
// the current generation.
func (o *Orchestrator) startFetchLocked() {
	params := catalog.ListParams{
		Page:     o.view.Page,
		PageSize: o.pageSize,
	}
	if strings.TrimSpace(o.query) != "" {
		o.view.Mode = ModeSearch
		params.Search = o.query
	} else {
		o.view.Mode = ModeCatalog
		params.Genre = o.genre
	}
	o.view.State = StateFetching

	ctx, cancel := context.WithCancel(o.ctx)
	o.inflight = cancel
	gen := o.gen
	mode := o.view.Mode

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer cancel()

		page, err := o.movies.List(ctx, params)
		o.apply(gen, mode, page, err)
	}()
}

func (o *Orchestrator) apply(gen uint64, mode Mode, page *catalog.MoviePage, err error) {
	o.update(func() bool {
		if gen != o.gen {
			o.logger.Debug().
				Uint64("generation", gen).
				Uint64("latest", o.gen).
				Str("mode", mode.String()).
				Msg("Discarding stale search response")
			return false
		}
		o.inflight = nil
		o.view.State = StateIdle
		if err != nil {
			o.view.Err = err
			o.logger.Debug().Err(err).Str("mode", mode.String()).Msg("Search fetch failed")
			return true
		}
		o.view.Err = nil
		o.view.Items = page.Items
		o.view.Total = page.Total
		return true
	})
}
