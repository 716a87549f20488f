// Package parallel splits row ranges and independent inputs across goroutines.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers normalizes a requested worker count: values <= 0 mean one worker
// per CPU, and the result never exceeds GOMAXPROCS.
func Workers(requested int) int {
	limit := runtime.GOMAXPROCS(0)
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

// Chunks returns how many chunks ParallelizeN uses for items and workers.
func Chunks(items, workers int) int {
	return min(items, Workers(workers))
}

// ParallelizeN splits [0, items) into at most Chunks(items, workers)
// contiguous ranges and calls fn for each range on its own goroutine.
// The chunk index is stable for a given (items, workers) pair so callers can
// keep per-chunk partial sums without locking.
func ParallelizeN(items, workers int, fn func(chunk, start, end int)) {
	n := Chunks(items, workers)
	if n == 0 {
		return
	}
	size := (items + n - 1) / n

	var g errgroup.Group
	for c := range n {
		start := c * size
		end := min(start+size, items)
		if start >= end {
			break
		}
		g.Go(func() error {
			fn(c, start, end)
			return nil
		})
	}
	_ = g.Wait()
}

// ForEach calls fn for every index in [0, n) with at most workers calls in
// flight. The first error cancels ctx for the remaining calls and is returned.
func ForEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(Workers(workers))
	for i := range n {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i)
		})
	}
	return g.Wait()
}
