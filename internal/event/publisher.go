package event

import (
	"context"
	"log/slog"

	"credentia/pkg/requestcontext"
)

// ChannelPublisher hands events to the worker through a buffered channel so
// domain operations never wait on event persistence. A full inbox drops the
// event with a log line rather than blocking the request.
type ChannelPublisher struct {
	inbox  chan Event
	logger *slog.Logger
}

// NewChannelPublisher creates a publisher with the given inbox capacity.
func NewChannelPublisher(capacity int, logger *slog.Logger) *ChannelPublisher {
	return &ChannelPublisher{
		inbox:  make(chan Event, capacity),
		logger: logger,
	}
}

// Inbox exposes the receive side for the worker.
func (p *ChannelPublisher) Inbox() <-chan Event {
	return p.inbox
}

// Emit enriches the event from request context and queues it.
func (p *ChannelPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.Device(ctx)
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.ErrorContext(ctx, "event inbox full, dropping event",
			"action", event.Action,
			"subject", event.Subject,
		)
	}
	return nil
}

// NopPublisher discards events. Used by tests that don't assert on them.
type NopPublisher struct{}

func (NopPublisher) Emit(context.Context, Event) error { return nil }
