package search

import (
	"time"

	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period after the last keystroke before a search fires
const DefaultDebounce = 500 * time.Millisecond

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithDebounce sets the debounce window. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithPageSize sets the number of movies per page
func WithPageSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithGenre restricts catalog mode to a genre
func WithGenre(genre string) Option {
	return func(o *Orchestrator) {
		o.genre = genre
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}
