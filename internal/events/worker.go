package events

import (
	"context"
	"log/slog"
)

// Worker drains the event inbox and hands each event to the publisher.
// Publish failures are logged and dropped; event delivery is best-effort and
// must never affect the transaction that created the record.
type Worker struct {
	publisher Publisher
	inbox     <-chan Event
	logger    *slog.Logger
}

func NewWorker(publisher Publisher, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{publisher: publisher, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.publisher.Publish(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "event publish failed",
					"event", event.Name,
					"error", err,
				)
			}
		}
	}
}
