package event

import (
	"context"
	"log/slog"
)

// Worker consumes events from the publisher inbox and persists them. Append
// failures are logged and the event dropped; the domain operation that
// emitted it has already committed.
type Worker struct {
	store  Store
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(store Store, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "failed to append event",
					"action", event.Action,
					"subject", event.Subject,
					"error", err,
				)
			}
		}
	}
}
