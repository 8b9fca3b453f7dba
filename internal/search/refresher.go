package search

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultDebounce is how long the refresher waits after the last
// keystroke before computing semantic scores.
const DefaultDebounce = 500 * time.Millisecond

// QueryEmbedder turns the query text into a vector. Satisfied by
// embedder.Embedder.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ScoreSource maps a query vector to per-record similarities.
// Satisfied by *vecindex.Index.
type ScoreSource interface {
	Scores(ctx context.Context, query []float32) (map[string]float64, error)
}

// Refresher debounces filter changes and computes semantic scores in
// the background. Only the latest query is ever in flight; results
// for queries the user typed past are dropped by the engine.
type Refresher struct {
	engine   *Engine
	embedder QueryEmbedder
	index    ScoreSource
	debounce time.Duration
	logger   *slog.Logger

	// onDelivered, when set, is called after each delivery attempt
	// with the query and whether the engine accepted the scores.
	onDelivered func(query string, accepted bool)

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithDebounce overrides the debounce interval.
func WithDebounce(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.debounce = d
		}
	}
}

// WithRefreshLogger sets the logger used for background failures.
func WithRefreshLogger(logger *slog.Logger) RefresherOption {
	return func(r *Refresher) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDeliveryHook registers a callback invoked after each score
// delivery.
func WithDeliveryHook(fn func(query string, accepted bool)) RefresherOption {
	return func(r *Refresher) { r.onDelivered = fn }
}

// NewRefresher creates a refresher delivering scores into engine.
func NewRefresher(engine *Engine, emb QueryEmbedder, index ScoreSource, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		engine:   engine,
		embedder: emb,
		index:    index,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// QueryChanged notes a new filter value. The semantic lookup fires
// once the text has been stable for the debounce interval; each call
// resets the clock and cancels any lookup still in flight.
func (r *Refresher) QueryChanged(query string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	if r.timer != nil {
		r.timer.Stop()
	}
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if query == "" {
		return
	}

	r.timer = time.AfterFunc(r.debounce, func() {
		r.fire(query)
	})
}

// fire runs the embed+score lookup for query and delivers the result.
func (r *Refresher) fire(query string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		defer r.wg.Done()
		defer cancel()

		accepted, err := r.lookup(ctx, query)
		if err != nil {
			// Keyword results keep working; semantic ranking just
			// doesn't arrive for this query.
			if ctx.Err() == nil {
				r.logger.Warn("semantic score refresh failed", "query", query, "error", err)
			}
			return
		}
		if r.onDelivered != nil {
			r.onDelivered(query, accepted)
		}
	}()
}

func (r *Refresher) lookup(ctx context.Context, query string) (bool, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return false, err
	}
	scores, err := r.index.Scores(ctx, vec)
	if err != nil {
		return false, err
	}
	return r.engine.SetSemanticScores(query, scores), nil
}

// Close cancels pending work and waits for any in-flight lookup.
func (r *Refresher) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
}
