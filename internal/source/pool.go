package source

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the fan-out width for per-record I/O.
const DefaultWorkers = 8

// fanOut runs work over items on a bounded pool and hands each result
// to done as it arrives. done calls are serialized, so it may touch
// shared state freely. Cancellation stops dispatching new items;
// in-flight items finish and their results are still delivered.
func fanOut[T, R any](ctx context.Context, workers int, items []T,
	work func(ctx context.Context, item T) (R, error),
	done func(item T, result R, err error)) {

	if workers <= 0 {
		workers = DefaultWorkers
	}

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	g.SetLimit(workers)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}
		item := item
		g.Go(func() error {
			result, err := work(ctx, item)
			mu.Lock()
			defer mu.Unlock()
			done(item, result, err)
			return nil
		})
	}

	_ = g.Wait()
}
