package collector

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// allOrNothing runs fn(ctx, i) for i in [0, n) concurrently. The first
// error cancels the context seen by the remaining calls and is returned
// once every call has returned. limit <= 0 means unbounded.
func allOrNothing(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range n {
		g.Go(func() error { return fn(gctx, i) })
	}
	return g.Wait()
}

// settleAll runs fn(ctx, i) for i in [0, n) concurrently and waits until
// all n calls have settled, successfully or not. It never fails: it
// returns how many calls settled and how many of those failed.
func settleAll(ctx context.Context, n, limit int, fn func(ctx context.Context, i int) error) (settled, failed int) {
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	var nSettled, nFailed atomic.Int64
	for i := range n {
		g.Go(func() error {
			if err := fn(ctx, i); err != nil {
				nFailed.Add(1)
			}
			nSettled.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(nSettled.Load()), int(nFailed.Load())
}
