package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"credentia/internal/alert/models"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
	txcontext "credentia/pkg/platform/tx"
)

// PostgresStore persists alerts. A partial unique index on
// (org_id, process_id) WHERE status = 'OPEN' enforces at most one open alert
// per process at the database level.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed alert store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) querier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, alert *models.Alert) error {
	var documentID any
	if alert.DocumentID != nil {
		documentID = alert.DocumentID.String()
	}
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO screening_alerts (
			id, org_id, process_id, document_id, category, status, reason, raised_by, raised_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		alert.ID.String(), alert.OrgID.String(), alert.ProcessID.String(),
		documentID, string(alert.Category), string(alert.Status), alert.Reason,
		alert.RaisedBy.String(), alert.RaisedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

const alertColumns = `
	id, org_id, process_id, document_id, category, status, reason,
	raised_by, raised_at, resolved_by, resolved_at, resolution_note`

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, alertID id.AlertID) (*models.Alert, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM screening_alerts
		WHERE id = $1 AND org_id = $2`,
		alertID.String(), orgID.String(),
	)
	return scanAlert(row)
}

func (s *PostgresStore) OpenByProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Alert, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+alertColumns+`
		FROM screening_alerts
		WHERE org_id = $1 AND process_id = $2 AND status = $3`,
		orgID.String(), processID.String(), string(models.StatusOpen),
	)
	return scanAlert(row)
}

func (s *PostgresStore) ListByProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*models.Alert, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+alertColumns+`
		FROM screening_alerts
		WHERE org_id = $1 AND process_id = $2
		ORDER BY raised_at`,
		orgID.String(), processID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("select alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (s *PostgresStore) Close(ctx context.Context, orgID id.OrgID, alertID id.AlertID, status models.Status, actor id.ActorID, at time.Time, note string) error {
	result, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE screening_alerts
		SET status = $1, resolved_by = $2, resolved_at = $3, resolution_note = $4
		WHERE id = $5 AND org_id = $6 AND status = $7`,
		string(status), actor.String(), at, note,
		alertID.String(), orgID.String(), string(models.StatusOpen),
	)
	if err != nil {
		return fmt.Errorf("close alert: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.FindByID(ctx, orgID, alertID); err != nil {
		return err
	}
	return sentinel.ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		rawID, rawOrgID, rawProcessID, rawRaisedBy string
		category, status                           string
		rawDocumentID                              sql.NullString
		resolvedBy, resolutionNote                 sql.NullString
		alert                                      models.Alert
	)
	err := row.Scan(
		&rawID, &rawOrgID, &rawProcessID, &rawDocumentID, &category, &status, &alert.Reason,
		&rawRaisedBy, &alert.RaisedAt, &resolvedBy, &alert.ResolvedAt, &resolutionNote,
	)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	if alert.ID, err = id.ParseAlertID(rawID); err != nil {
		return nil, err
	}
	if alert.OrgID, err = id.ParseOrgID(rawOrgID); err != nil {
		return nil, err
	}
	if alert.ProcessID, err = id.ParseProcessID(rawProcessID); err != nil {
		return nil, err
	}
	if rawDocumentID.Valid {
		documentID, err := id.ParseDocumentID(rawDocumentID.String)
		if err != nil {
			return nil, err
		}
		alert.DocumentID = &documentID
	}
	if alert.RaisedBy, err = id.ParseActorID(rawRaisedBy); err != nil {
		return nil, err
	}
	if resolvedBy.Valid {
		actor, err := id.ParseActorID(resolvedBy.String)
		if err != nil {
			return nil, err
		}
		alert.ResolvedBy = &actor
	}
	alert.ResolutionNote = resolutionNote.String
	alert.Category = models.Category(category)
	alert.Status = models.Status(status)
	return &alert, nil
}
