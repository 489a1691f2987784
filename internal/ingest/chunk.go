package ingest

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrPanic marks a unit that panicked instead of returning.
var ErrPanic = errors.New("unit panicked")

// UnitFunc processes the item at index i of a batch.
type UnitFunc[T any] func(ctx context.Context, i int, item T) error

// RunChunked processes items in consecutive chunks of window. Units within a
// chunk run concurrently and the whole chunk finishes before the next one
// starts. A failing or panicking unit never stops its siblings. The returned
// slice is index-aligned with items; nil means the unit succeeded.
func RunChunked[T any](ctx context.Context, items []T, window int, fn UnitFunc[T]) []error {
	if window <= 0 {
		window = 1
	}
	errs := make([]error, len(items))
	for start := 0; start < len(items); start += window {
		end := min(start+window, len(items))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				errs[i] = runUnit(ctx, i, items[i], fn)
				return nil
			})
		}
		_ = g.Wait()
	}
	return errs
}

func runUnit[T any](ctx context.Context, i int, item T, fn UnitFunc[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn(ctx, i, item)
}
