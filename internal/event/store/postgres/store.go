package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"credentia/internal/event"
	txcontext "credentia/pkg/platform/tx"
)

// Store implements event.Store using the transactional outbox pattern.
// Events are written to the outbox table and shipped to Kafka by the relay;
// the broker is the hand-off point for downstream consumers.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL event store that writes to the outbox.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure shipped to Kafka. Field names match
// event.Event for proper deserialization by consumers.
type outboxPayload struct {
	ID        string `json:"ID"`
	Category  string `json:"Category"`
	Timestamp string `json:"Timestamp"`
	OrgID     string `json:"OrgID"`
	ActorID   string `json:"ActorID,omitempty"`
	Subject   string `json:"Subject"`
	Action    string `json:"Action"`
	Reason    string `json:"Reason,omitempty"`
	RequestID string `json:"RequestID,omitempty"`
	Device    string `json:"Device,omitempty"`
}

// Append writes a domain event to the outbox table for Kafka publishing.
func (s *Store) Append(ctx context.Context, evt event.Event) error {
	eventID := uuid.New()

	payload := outboxPayload{
		ID:        eventID.String(),
		Category:  string(evt.Action.Category()),
		Timestamp: evt.Timestamp.Format(time.RFC3339Nano),
		OrgID:     evt.OrgID.String(),
		Subject:   evt.Subject,
		Action:    string(evt.Action),
		Reason:    evt.Reason,
		RequestID: evt.RequestID,
		Device:    evt.Device,
	}
	if !evt.ActorID.IsNil() {
		payload.ActorID = evt.ActorID.String()
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}

	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO event_outbox (id, org_id, subject, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		eventID.String(), evt.OrgID.String(), evt.Subject, string(evt.Action),
		payloadBytes, evt.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event outbox row: %w", err)
	}
	return nil
}

// Pending returns up to limit unpublished rows in insertion order.
func (s *Store) Pending(ctx context.Context, limit int) ([]event.PendingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, payload
		FROM event_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("select pending outbox rows: %w", err)
	}
	defer rows.Close()

	var pending []event.PendingRecord
	for rows.Next() {
		var row event.PendingRecord
		if err := rows.Scan(&row.ID, &row.Subject, &row.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		pending = append(pending, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return pending, nil
}

// MarkPublished stamps rows as shipped.
func (s *Store) MarkPublished(ctx context.Context, ids []string) error {
	for _, rowID := range ids {
		if _, err := s.db.ExecContext(ctx, `
			UPDATE event_outbox SET published_at = $1 WHERE id = $2`,
			time.Now(), rowID,
		); err != nil {
			return fmt.Errorf("mark outbox row published: %w", err)
		}
	}
	return nil
}
