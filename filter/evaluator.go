package filter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/s0up4200/cinerec/catalog"
)

// EvaluatorOption configures an evaluator
type EvaluatorOption func(*ConcurrentEvaluator)

// WithWorkers sets the number of goroutines used for large inputs
func WithWorkers(workers int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if workers > 0 {
			e.workerCount = workers
		}
	}
}

// WithBatchSize sets the chunk size; inputs smaller than it run sequentially
func WithBatchSize(size int) EvaluatorOption {
	return func(e *ConcurrentEvaluator) {
		if size > 0 {
			e.batchSize = size
		}
	}
}

// ConcurrentEvaluator implements Evaluator, splitting large inputs into chunks
type ConcurrentEvaluator struct {
	workerCount int
	batchSize   int
}

// NewConcurrentEvaluator creates a new concurrent evaluator
func NewConcurrentEvaluator(opts ...EvaluatorOption) *ConcurrentEvaluator {
	e := &ConcurrentEvaluator{
		workerCount: runtime.GOMAXPROCS(0),
		batchSize:   100,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns the movies matching filter, preserving input order
func (e *ConcurrentEvaluator) Evaluate(ctx context.Context, filter CompiledFilter, movies []catalog.Movie) ([]catalog.Movie, error) {
	if len(movies) < e.batchSize {
		return evaluateSequential(filter, movies), nil
	}

	chunkSize := max(len(movies)/e.workerCount, e.batchSize)
	chunks := (len(movies) + chunkSize - 1) / chunkSize
	results := make([][]catalog.Movie, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount)

	for i := range chunks {
		start := i * chunkSize
		end := min(start+chunkSize, len(movies))
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = evaluateSequential(filter, movies[start:end])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var total int
	for _, r := range results {
		total += len(r)
	}
	matches := make([]catalog.Movie, 0, total)
	for _, r := range results {
		matches = append(matches, r...)
	}
	return matches, nil
}

func evaluateSequential(filter CompiledFilter, movies []catalog.Movie) []catalog.Movie {
	matches := make([]catalog.Movie, 0, len(movies))
	for _, movie := range movies {
		if filter.Evaluate(movie) {
			matches = append(matches, movie)
		}
	}
	return matches
}
