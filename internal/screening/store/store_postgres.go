package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	docmodels "credentia/internal/document/models"
	"credentia/internal/screening/models"
	"credentia/internal/screening/step"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
	txcontext "credentia/pkg/platform/tx"
)

// PostgresStore persists processes and step rows. The configured step list is
// a text array; both read projections live in JSONB columns. A unique index
// on (process_id, type) enforces one step row per type.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed screening store.
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

func (s *PostgresStore) CreateProcess(ctx context.Context, process *models.Process, steps []*step.Step) error {
	q := s.querier(ctx)
	now := time.Now()
	process.LockVersion = 1
	process.CreatedAt = now
	process.UpdatedAt = now

	stepInfo, err := json.Marshal(process.StepInfo)
	if err != nil {
		return fmt.Errorf("marshal step info: %w", err)
	}
	counts, err := json.Marshal(process.DocumentCounts)
	if err != nil {
		return fmt.Errorf("marshal document counts: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO screening_processes (
			id, org_id, professional_id, supervisor_id, status,
			configured_steps, current_step_type, step_info, document_counts,
			pending_version_id, reason, lock_version, expires_at, completed_at,
			created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		process.ID.String(), process.OrgID.String(), process.ProfessionalID.String(),
		nullableActor(process.SupervisorID), string(process.Status),
		pq.Array(stepTypesToStrings(process.ConfiguredSteps)),
		nullableStepType(process.CurrentStepType), stepInfo, counts,
		nullableVersion(process.PendingVersionID), process.Reason,
		process.LockVersion, process.ExpiresAt, process.CompletedAt,
		process.CreatedBy.String(), process.CreatedAt, process.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert process: %w", err)
	}

	for _, row := range steps {
		row.LockVersion = 1
		row.CreatedAt = now
		row.UpdatedAt = now
		if err := s.insertStep(ctx, q, row); err != nil {
			return err
		}
	}
	return nil
}

const processColumns = `
	id, org_id, professional_id, supervisor_id, status,
	configured_steps, current_step_type, step_info, document_counts,
	pending_version_id, reason, lock_version, expires_at, completed_at,
	created_by, created_at, updated_at`

func (s *PostgresStore) FindProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+processColumns+`
		FROM screening_processes
		WHERE id = $1 AND org_id = $2`,
		processID.String(), orgID.String(),
	)
	return scanProcess(row)
}

func (s *PostgresStore) FindActiveByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Process, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+processColumns+`
		FROM screening_processes
		WHERE org_id = $1 AND professional_id = $2
		  AND status NOT IN ($3, $4, $5, $6)
		LIMIT 1`,
		orgID.String(), professionalID.String(),
		string(models.StatusApproved), string(models.StatusRejected),
		string(models.StatusCancelled), string(models.StatusExpired),
	)
	return scanProcess(row)
}

func (s *PostgresStore) ListByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Process, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+processColumns+`
		FROM screening_processes
		WHERE org_id = $1 AND professional_id = $2
		ORDER BY created_at DESC`,
		orgID.String(), professionalID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("select processes: %w", err)
	}
	defer rows.Close()
	return collectProcesses(rows)
}

func (s *PostgresStore) ListExpirable(ctx context.Context, orgID id.OrgID) ([]*models.Process, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+processColumns+`
		FROM screening_processes
		WHERE org_id = $1 AND expires_at < NOW()
		  AND status NOT IN ($2, $3, $4, $5)`,
		orgID.String(),
		string(models.StatusApproved), string(models.StatusRejected),
		string(models.StatusCancelled), string(models.StatusExpired),
	)
	if err != nil {
		return nil, fmt.Errorf("select expirable processes: %w", err)
	}
	defer rows.Close()
	return collectProcesses(rows)
}

func (s *PostgresStore) UpdateProcess(ctx context.Context, process *models.Process) error {
	stepInfo, err := json.Marshal(process.StepInfo)
	if err != nil {
		return fmt.Errorf("marshal step info: %w", err)
	}
	counts, err := json.Marshal(process.DocumentCounts)
	if err != nil {
		return fmt.Errorf("marshal document counts: %w", err)
	}

	result, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE screening_processes
		SET status = $1, configured_steps = $2, current_step_type = $3,
		    step_info = $4, document_counts = $5, pending_version_id = $6,
		    reason = $7, expires_at = $8, completed_at = $9,
		    lock_version = lock_version + 1, updated_at = $10
		WHERE id = $11 AND org_id = $12 AND lock_version = $13`,
		string(process.Status), pq.Array(stepTypesToStrings(process.ConfiguredSteps)),
		nullableStepType(process.CurrentStepType), stepInfo, counts,
		nullableVersion(process.PendingVersionID), process.Reason,
		process.ExpiresAt, process.CompletedAt, time.Now(),
		process.ID.String(), process.OrgID.String(), process.LockVersion,
	)
	if err != nil {
		return fmt.Errorf("update process: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		process.LockVersion++
		return nil
	}
	if _, err := s.FindProcess(ctx, process.OrgID, process.ID); err != nil {
		return err
	}
	return sentinel.ErrConflict
}

const stepColumns = `
	id, org_id, process_id, type, status, payload, lock_version,
	completed_by, completed_at, created_at, updated_at`

func (s *PostgresStore) ListSteps(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*step.Step, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+stepColumns+`
		FROM screening_steps
		WHERE org_id = $1 AND process_id = $2`,
		orgID.String(), processID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("select steps: %w", err)
	}
	defer rows.Close()

	var steps []*step.Step
	for rows.Next() {
		row, err := scanStep(rows)
		if err != nil {
			return nil, err
		}
		steps = append(steps, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	step.SortSteps(steps)
	return steps, nil
}

func (s *PostgresStore) FindStep(ctx context.Context, orgID id.OrgID, processID id.ProcessID, stepType step.Type) (*step.Step, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+stepColumns+`
		FROM screening_steps
		WHERE org_id = $1 AND process_id = $2 AND type = $3`,
		orgID.String(), processID.String(), string(stepType),
	)
	return scanStep(row)
}

func (s *PostgresStore) HasStep(ctx context.Context, orgID id.OrgID, processID id.ProcessID, stepType step.Type) (bool, error) {
	var exists bool
	err := s.querier(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM screening_steps
			WHERE org_id = $1 AND process_id = $2 AND type = $3
		)`,
		orgID.String(), processID.String(), string(stepType),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query step existence: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) CreateStep(ctx context.Context, row *step.Step) error {
	now := time.Now()
	row.LockVersion = 1
	row.CreatedAt = now
	row.UpdatedAt = now
	return s.insertStep(ctx, s.querier(ctx), row)
}

func (s *PostgresStore) insertStep(ctx context.Context, q querier, row *step.Step) error {
	payload, err := json.Marshal(row.Payload)
	if err != nil {
		return fmt.Errorf("marshal step payload: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO screening_steps (
			id, org_id, process_id, type, status, payload, lock_version,
			completed_by, completed_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		row.ID.String(), row.OrgID.String(), row.ProcessID.String(),
		string(row.Type), string(row.Status), payload, row.LockVersion,
		nullableActor(row.CompletedBy), row.CompletedAt, row.CreatedAt, row.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert step: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateStep(ctx context.Context, row *step.Step, expectedLock int64) error {
	payload, err := json.Marshal(row.Payload)
	if err != nil {
		return fmt.Errorf("marshal step payload: %w", err)
	}

	result, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE screening_steps
		SET status = $1, payload = $2, completed_by = $3, completed_at = $4,
		    lock_version = lock_version + 1, updated_at = $5
		WHERE id = $6 AND org_id = $7 AND lock_version = $8`,
		string(row.Status), payload, nullableActor(row.CompletedBy),
		row.CompletedAt, time.Now(),
		row.ID.String(), row.OrgID.String(), expectedLock,
	)
	if err != nil {
		return fmt.Errorf("update step: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		row.LockVersion = expectedLock + 1
		return nil
	}
	if _, err := s.FindStep(ctx, row.OrgID, row.ProcessID, row.Type); err != nil {
		return err
	}
	return sentinel.ErrConflict
}

func stepTypesToStrings(types []step.Type) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}

func nullableStepType(t *step.Type) *string {
	if t == nil {
		return nil
	}
	value := string(*t)
	return &value
}

func nullableActor(actor *id.ActorID) *string {
	if actor == nil {
		return nil
	}
	value := actor.String()
	return &value
}

func nullableVersion(versionID *id.VersionID) *string {
	if versionID == nil {
		return nil
	}
	value := versionID.String()
	return &value
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProcess(row rowScanner) (*models.Process, error) {
	var (
		rawID, rawOrgID, rawProfessionalID, rawCreatedBy string
		supervisor, currentStep, pendingVersion          sql.NullString
		status                                           string
		configured                                       pq.StringArray
		rawStepInfo, rawCounts                           []byte
		process                                          models.Process
	)
	err := row.Scan(
		&rawID, &rawOrgID, &rawProfessionalID, &supervisor, &status,
		&configured, &currentStep, &rawStepInfo, &rawCounts,
		&pendingVersion, &process.Reason, &process.LockVersion,
		&process.ExpiresAt, &process.CompletedAt,
		&rawCreatedBy, &process.CreatedAt, &process.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan process: %w", err)
	}

	if process.ID, err = id.ParseProcessID(rawID); err != nil {
		return nil, err
	}
	if process.OrgID, err = id.ParseOrgID(rawOrgID); err != nil {
		return nil, err
	}
	if process.ProfessionalID, err = id.ParseProfessionalID(rawProfessionalID); err != nil {
		return nil, err
	}
	if process.CreatedBy, err = id.ParseActorID(rawCreatedBy); err != nil {
		return nil, err
	}
	if supervisor.Valid {
		actor, err := id.ParseActorID(supervisor.String)
		if err != nil {
			return nil, err
		}
		process.SupervisorID = &actor
	}
	if pendingVersion.Valid {
		versionID, err := id.ParseVersionID(pendingVersion.String)
		if err != nil {
			return nil, err
		}
		process.PendingVersionID = &versionID
	}
	if currentStep.Valid {
		stepType := step.Type(currentStep.String)
		process.CurrentStepType = &stepType
	}
	process.Status = models.Status(status)
	process.ConfiguredSteps = make([]step.Type, len(configured))
	for i, t := range configured {
		process.ConfiguredSteps[i] = step.Type(t)
	}
	if err := json.Unmarshal(rawStepInfo, &process.StepInfo); err != nil {
		return nil, fmt.Errorf("unmarshal step info: %w", err)
	}
	var counts docmodels.Counts
	if err := json.Unmarshal(rawCounts, &counts); err != nil {
		return nil, fmt.Errorf("unmarshal document counts: %w", err)
	}
	process.DocumentCounts = counts
	return &process, nil
}

func collectProcesses(rows *sql.Rows) ([]*models.Process, error) {
	var processes []*models.Process
	for rows.Next() {
		process, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		processes = append(processes, process)
	}
	return processes, rows.Err()
}

func scanStep(row rowScanner) (*step.Step, error) {
	var (
		rawID, rawOrgID, rawProcessID string
		stepType, status              string
		payload                       []byte
		completedBy                   sql.NullString
		stepRow                       step.Step
	)
	err := row.Scan(
		&rawID, &rawOrgID, &rawProcessID, &stepType, &status, &payload,
		&stepRow.LockVersion, &completedBy, &stepRow.CompletedAt,
		&stepRow.CreatedAt, &stepRow.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan step: %w", err)
	}

	if stepRow.ID, err = id.ParseStepID(rawID); err != nil {
		return nil, err
	}
	if stepRow.OrgID, err = id.ParseOrgID(rawOrgID); err != nil {
		return nil, err
	}
	if stepRow.ProcessID, err = id.ParseProcessID(rawProcessID); err != nil {
		return nil, err
	}
	if completedBy.Valid {
		actor, err := id.ParseActorID(completedBy.String)
		if err != nil {
			return nil, err
		}
		stepRow.CompletedBy = &actor
	}
	stepRow.Type = step.Type(stepType)
	stepRow.Status = step.Status(status)
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, &stepRow.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal step payload: %w", err)
		}
	}
	return &stepRow, nil
}
