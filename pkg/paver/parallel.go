package paver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

func (f *Filler) forEach(ctx context.Context, n int, fn func(k int) error) error {
	return f.opts.ForEach(ctx, n, fn)
}

// ForEach calls fn for 0..n-1, concurrently when RunParallel is set.
// fn must only write to storage owned by its index. The context is polled
// before every item; a panic in fn is returned as an error.
func (o Options) ForEach(ctx context.Context, n int, fn func(k int) error) error {
	call := func(k int) (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("paver: item %d: %v", k, r)
			}
		}()
		return fn(k)
	}
	if !o.RunParallel || n < 2 {
		for k := range n {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := call(k); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers())
	for k := range n {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return call(k)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
