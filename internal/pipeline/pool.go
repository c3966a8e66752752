package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

type poolResult[T, R any] struct {
	item  T
	value R
	err   error
}

// runPool processes items with at most size concurrent workers and hands each
// result to collect on the calling goroutine, one at a time. It returns
// ctx.Err() as soon as the context is cancelled without waiting for in-flight
// workers; the buffered results channel keeps those workers from blocking.
// A worker panic is reported to collect as an error for that item.
func runPool[T, R any](
	ctx context.Context,
	size int,
	items []T,
	work func(context.Context, T) (R, error),
	collect func(item T, value R, err error),
) error {
	if len(items) == 0 {
		return ctx.Err()
	}
	if size <= 0 {
		size = 1
	}

	results := make(chan poolResult[T, R], len(items))
	var g errgroup.Group
	g.SetLimit(size)

	go func() {
		defer func() {
			_ = g.Wait()
			close(results)
		}()
		for _, item := range items {
			if ctx.Err() != nil {
				return
			}
			g.Go(func() error {
				results <- runWorker(ctx, item, work)
				return nil
			})
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res, ok := <-results:
			if !ok {
				return ctx.Err()
			}
			collect(res.item, res.value, res.err)
		}
	}
}

func runWorker[T, R any](ctx context.Context, item T, work func(context.Context, T) (R, error)) (res poolResult[T, R]) {
	res.item = item
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	res.value, res.err = work(ctx, item)
	return res
}
