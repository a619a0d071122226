package event

import (
	"context"
	"log/slog"
	"time"
)

// OutboxSource is the slice of the outbox store the relay needs.
type OutboxSource interface {
	Pending(ctx context.Context, limit int) ([]PendingRecord, error)
	MarkPublished(ctx context.Context, ids []string) error
}

// PendingRecord is an outbox row awaiting shipment to the broker.
type PendingRecord struct {
	ID      string
	Subject string
	Payload []byte
}

// BrokerPublisher ships a payload keyed by subject. Keys keep events for one
// process on one partition so consumers see them in order.
type BrokerPublisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// Relay polls the outbox and ships pending events to the broker. Rows are
// only marked published after the broker accepts them, so a crash between
// publish and mark can produce duplicates but never losses.
type Relay struct {
	source    OutboxSource
	broker    BrokerPublisher
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewRelay creates a relay polling at the given interval.
func NewRelay(source OutboxSource, broker BrokerPublisher, logger *slog.Logger, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Relay{
		source:    source,
		broker:    broker,
		logger:    logger,
		interval:  interval,
		batchSize: 100,
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.drain(ctx)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		pending, err := r.source.Pending(ctx, r.batchSize)
		if err != nil {
			r.logger.ErrorContext(ctx, "outbox poll failed", "error", err)
			return
		}
		if len(pending) == 0 {
			return
		}

		shipped := make([]string, 0, len(pending))
		for _, row := range pending {
			if err := r.broker.Publish(ctx, row.Subject, row.Payload); err != nil {
				r.logger.ErrorContext(ctx, "event publish failed",
					"outbox_id", row.ID,
					"subject", row.Subject,
					"error", err,
				)
				break
			}
			shipped = append(shipped, row.ID)
		}

		if len(shipped) > 0 {
			if err := r.source.MarkPublished(ctx, shipped); err != nil {
				r.logger.ErrorContext(ctx, "outbox mark published failed", "error", err)
				return
			}
		}
		if len(shipped) < len(pending) {
			return
		}
	}
}
