package match

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// runPool runs fn for every task index in [0, tasks) with at most workers
// goroutines in flight. The first failure cancels the group: tasks that have
// not started yet are skipped and running ones finish on their own. A panic
// inside fn is reported as ErrWorkerFailure rather than crashing the process.
//
// Callers own the output layout: each task must write only to slots derived
// from its own index.
func runPool(ctx context.Context, workers, tasks int, fn func(ctx context.Context, i int) error) error {
	if tasks == 0 {
		return nil
	}
	if workers > tasks {
		workers = tasks
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < tasks; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return runTask(gctx, i, fn)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// Wait reports nil if the parent was cancelled before any task failed.
	return ctx.Err()
}

func runTask(ctx context.Context, i int, fn func(ctx context.Context, i int) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: task %d: %v", ErrWorkerFailure, i, r)
		}
	}()
	err = fn(ctx, i)
	if err == nil || errors.Is(err, ErrWorkerFailure) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: task %d: %w", ErrWorkerFailure, i, err)
}

// concat flattens per-task results in task order.
func concat(parts [][]int) []int {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	if total == 0 {
		return nil
	}
	out := make([]int, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
