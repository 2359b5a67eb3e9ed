// Package tasks provides the in-process worker pool that registration
// validation and change dispatch run on. Each enqueued task is one unit of
// work: strictly sequential inside, no cancellation once started, retries (if
// any) belong to the enqueuing side.
package tasks

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Task is one unit of work.
type Task func(ctx context.Context) error

// Queue accepts units of work for background execution.
type Queue interface {
	Enqueue(task Task)
}

// Runner fans enqueued tasks out over a fixed pool of workers. Task errors
// are logged, never fatal: a failed validation stays recorded on its own
// record and must not take the pool down.
type Runner struct {
	inbox  chan Task
	logger *slog.Logger
}

func NewRunner(buffer int, logger *slog.Logger) *Runner {
	return &Runner{
		inbox:  make(chan Task, buffer),
		logger: logger,
	}
}

// Enqueue hands a task to the pool. Blocks when the buffer is full, matching
// at-least-once handoff from the enqueuing side.
func (r *Runner) Enqueue(task Task) {
	r.inbox <- task
}

// Run starts workers goroutines and blocks until the context is canceled.
func (r *Runner) Run(ctx context.Context, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case task := <-r.inbox:
					if err := task(ctx); err != nil {
						r.logger.ErrorContext(ctx, "task failed", "error", err)
					}
				}
			}
		})
	}
	return g.Wait()
}
