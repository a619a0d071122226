package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	profmodels "credentia/internal/professional/models"
	"credentia/internal/version/models"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
	txcontext "credentia/pkg/platform/tx"
)

// PostgresStore persists versions with their snapshot as a JSONB column and
// the diff rows in a child table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed version store.
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

// inTx runs fn inside the ambient transaction when one is present, otherwise
// inside a new one.
func (s *PostgresStore) inTx(ctx context.Context, fn func(q querier) error) error {
	if tx, ok := txcontext.From(ctx); ok {
		return fn(tx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *PostgresStore) NextNumber(ctx context.Context, orgID id.OrgID) (int64, error) {
	var number int64
	err := s.querier(ctx).QueryRowContext(ctx, `
		INSERT INTO version_counters (org_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (org_id)
		DO UPDATE SET last_number = version_counters.last_number + 1
		RETURNING last_number`,
		orgID.String(),
	).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("allocate version number: %w", err)
	}
	return number, nil
}

func (s *PostgresStore) Create(ctx context.Context, version *models.Version, changes []models.Change) error {
	snapshot, err := json.Marshal(version.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return s.inTx(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			INSERT INTO professional_versions (
				id, org_id, professional_id, number, snapshot,
				source_type, source_id, status, is_current, created_by, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $10)`,
			version.ID.String(), version.OrgID.String(), version.ProfessionalID.String(),
			version.Number, snapshot, string(version.SourceType), version.SourceID,
			string(version.Status), version.CreatedBy.String(), version.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert version: %w", err)
		}

		for _, change := range changes {
			_, err := q.ExecContext(ctx, `
				INSERT INTO professional_version_changes (
					version_id, field_path, change_type, old_value, new_value
				) VALUES ($1, $2, $3, $4, $5)`,
				version.ID.String(), change.FieldPath, string(change.Type),
				change.OldValue, change.NewValue,
			)
			if err != nil {
				return fmt.Errorf("insert version change: %w", err)
			}
		}
		return nil
	})
}

const versionColumns = `
	id, org_id, professional_id, number, snapshot,
	source_type, source_id, status, is_current,
	created_by, created_at, applied_at, applied_by,
	rejected_at, rejected_by, reject_reason`

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, versionID id.VersionID) (*models.Version, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM professional_versions
		WHERE id = $1 AND org_id = $2`,
		versionID.String(), orgID.String(),
	)
	return scanVersion(row)
}

func (s *PostgresStore) ListByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Version, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM professional_versions
		WHERE org_id = $1 AND professional_id = $2
		ORDER BY number DESC`,
		orgID.String(), professionalID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("select versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.Version
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		versions = append(versions, version)
	}
	return versions, rows.Err()
}

func (s *PostgresStore) ListChanges(ctx context.Context, orgID id.OrgID, versionID id.VersionID) ([]models.Change, error) {
	if _, err := s.FindByID(ctx, orgID, versionID); err != nil {
		return nil, err
	}
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT id, version_id, field_path, change_type, old_value, new_value
		FROM professional_version_changes
		WHERE version_id = $1
		ORDER BY id`,
		versionID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("select version changes: %w", err)
	}
	defer rows.Close()

	var changes []models.Change
	for rows.Next() {
		var change models.Change
		var rawVersionID string
		if err := rows.Scan(&change.ID, &rawVersionID, &change.FieldPath, &change.Type, &change.OldValue, &change.NewValue); err != nil {
			return nil, fmt.Errorf("scan version change: %w", err)
		}
		parsed, err := id.ParseVersionID(rawVersionID)
		if err != nil {
			return nil, err
		}
		change.VersionID = parsed
		changes = append(changes, change)
	}
	return changes, rows.Err()
}

func (s *PostgresStore) Current(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Version, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM professional_versions
		WHERE org_id = $1 AND professional_id = $2 AND is_current`,
		orgID.String(), professionalID.String(),
	)
	return scanVersion(row)
}

func (s *PostgresStore) MarkApplied(ctx context.Context, orgID id.OrgID, versionID id.VersionID, actor id.ActorID, at time.Time) error {
	return s.inTx(ctx, func(q querier) error {
		_, err := q.ExecContext(ctx, `
			UPDATE professional_versions SET is_current = false
			WHERE org_id = $1
			  AND professional_id = (SELECT professional_id FROM professional_versions WHERE id = $2)
			  AND is_current`,
			orgID.String(), versionID.String(),
		)
		if err != nil {
			return fmt.Errorf("clear current version: %w", err)
		}

		result, err := q.ExecContext(ctx, `
			UPDATE professional_versions
			SET status = $1, is_current = true, applied_at = $2, applied_by = $3
			WHERE id = $4 AND org_id = $5 AND status = $6`,
			string(models.StatusApplied), at, actor.String(),
			versionID.String(), orgID.String(), string(models.StatusPending),
		)
		if err != nil {
			return fmt.Errorf("mark version applied: %w", err)
		}
		return requireRow(result, s, ctx, orgID, versionID)
	})
}

func (s *PostgresStore) MarkRejected(ctx context.Context, orgID id.OrgID, versionID id.VersionID, actor id.ActorID, at time.Time, reason string) error {
	result, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE professional_versions
		SET status = $1, rejected_at = $2, rejected_by = $3, reject_reason = $4
		WHERE id = $5 AND org_id = $6 AND status = $7`,
		string(models.StatusRejected), at, actor.String(), reason,
		versionID.String(), orgID.String(), string(models.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("mark version rejected: %w", err)
	}
	return requireRow(result, s, ctx, orgID, versionID)
}

// requireRow distinguishes a status-guard miss from a missing row after a
// zero-row UPDATE.
func requireRow(result sql.Result, s *PostgresStore, ctx context.Context, orgID id.OrgID, versionID id.VersionID) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	if _, err := s.FindByID(ctx, orgID, versionID); err != nil {
		return err
	}
	return sentinel.ErrConflict
}

type rowScanner interface {
	Scan(dest ...any) error
}

// parseActor tolerates the nil UUID, which marks system-originated writes.
func parseActor(value string) (id.ActorID, error) {
	if value == "" || value == "00000000-0000-0000-0000-000000000000" {
		return id.ActorID{}, nil
	}
	return id.ParseActorID(value)
}

func scanVersion(row rowScanner) (*models.Version, error) {
	var (
		rawID, rawOrgID, rawProfessionalID, rawCreatedBy string
		rawSnapshot                                      []byte
		sourceType, status                               string
		appliedBy, rejectedBy                            sql.NullString
		rejectReason                                     sql.NullString
		version                                          models.Version
	)
	err := row.Scan(
		&rawID, &rawOrgID, &rawProfessionalID, &version.Number, &rawSnapshot,
		&sourceType, &version.SourceID, &status, &version.IsCurrent,
		&rawCreatedBy, &version.CreatedAt, &version.AppliedAt, &appliedBy,
		&version.RejectedAt, &rejectedBy, &rejectReason,
	)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan version: %w", err)
	}

	if version.ID, err = id.ParseVersionID(rawID); err != nil {
		return nil, err
	}
	if version.OrgID, err = id.ParseOrgID(rawOrgID); err != nil {
		return nil, err
	}
	if version.ProfessionalID, err = id.ParseProfessionalID(rawProfessionalID); err != nil {
		return nil, err
	}
	if version.CreatedBy, err = parseActor(rawCreatedBy); err != nil {
		return nil, err
	}
	if appliedBy.Valid {
		actor, err := parseActor(appliedBy.String)
		if err != nil {
			return nil, err
		}
		version.AppliedBy = &actor
	}
	if rejectedBy.Valid {
		actor, err := parseActor(rejectedBy.String)
		if err != nil {
			return nil, err
		}
		version.RejectedBy = &actor
	}
	version.RejectReason = rejectReason.String
	version.SourceType = models.SourceType(sourceType)
	version.Status = models.Status(status)

	var snapshot profmodels.Snapshot
	if err := json.Unmarshal(rawSnapshot, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	version.Snapshot = snapshot
	return &version, nil
}
