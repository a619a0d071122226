package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"credentia/internal/professional/models"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
	txcontext "credentia/pkg/platform/tx"
)

// PostgresStore persists professionals and their owned sub-collections.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed professional store.
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

func (s *PostgresStore) Create(ctx context.Context, professional *models.Professional) error {
	q := s.querier(ctx)
	now := time.Now()
	professional.RecordVersion = 1
	professional.CreatedAt = now
	professional.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO professionals (
			id, org_id, full_name, document_number, email, phone,
			legal_entity, company_name, company_tax_id, company_link_ref,
			record_version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		professional.ID.String(), professional.OrgID.String(),
		professional.FullName, professional.DocumentNumber,
		professional.Email, professional.Phone,
		professional.LegalEntity, professional.CompanyName,
		professional.CompanyTaxID, professional.CompanyLinkRef,
		professional.RecordVersion, professional.CreatedAt, professional.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert professional: %w", err)
	}
	if err := s.convergeSubCollections(ctx, q, professional.ID, professional.ToSnapshot()); err != nil {
		return err
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Professional, error) {
	q := s.querier(ctx)

	var record models.Professional
	var rawID, rawOrgID string
	err := q.QueryRowContext(ctx, `
		SELECT id, org_id, full_name, document_number, email, phone,
		       legal_entity, company_name, company_tax_id, company_link_ref,
		       record_version, created_at, updated_at
		FROM professionals
		WHERE id = $1 AND org_id = $2`,
		professionalID.String(), orgID.String(),
	).Scan(
		&rawID, &rawOrgID, &record.FullName, &record.DocumentNumber,
		&record.Email, &record.Phone, &record.LegalEntity, &record.CompanyName,
		&record.CompanyTaxID, &record.CompanyLinkRef,
		&record.RecordVersion, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find professional: %w", err)
	}
	record.ID = professionalID
	record.OrgID = orgID

	if err := s.loadSubCollections(ctx, q, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *PostgresStore) UpdateSnapshot(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID, expectedVersion int64, snapshot models.Snapshot) (*models.Professional, error) {
	q := s.querier(ctx)

	// CAS on record_version holds entity-level exclusivity for the converge.
	result, err := q.ExecContext(ctx, `
		UPDATE professionals SET
			full_name = $1, document_number = $2, email = $3, phone = $4,
			legal_entity = $5, company_name = $6, company_tax_id = $7,
			company_link_ref = $8, record_version = record_version + 1,
			updated_at = $9
		WHERE id = $10 AND org_id = $11 AND record_version = $12`,
		snapshot.FullName, snapshot.DocumentNumber, snapshot.Email, snapshot.Phone,
		snapshot.LegalEntity, snapshot.CompanyName, snapshot.CompanyTaxID,
		snapshot.CompanyLinkRef, time.Now(),
		professionalID.String(), orgID.String(), expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("update professional: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update professional rows affected: %w", err)
	}
	if affected == 0 {
		// Either the record is gone or a concurrent apply bumped the version.
		if _, findErr := s.FindByID(ctx, orgID, professionalID); findErr != nil {
			return nil, findErr
		}
		return nil, sentinel.ErrConflict
	}

	if err := s.convergeSubCollections(ctx, q, professionalID, snapshot); err != nil {
		return nil, err
	}
	return s.FindByID(ctx, orgID, professionalID)
}

// convergeSubCollections brings each owned table in line with the snapshot:
// upsert every present item by identity key, then remove rows whose keys are
// absent from the snapshot.
func (s *PostgresStore) convergeSubCollections(ctx context.Context, q querier, professionalID id.ProfessionalID, snapshot models.Snapshot) error {
	pid := professionalID.String()

	qualIDs := make([]string, 0, len(snapshot.Qualifications))
	for _, item := range snapshot.Qualifications {
		qualIDs = append(qualIDs, item.ID)
		if _, err := q.ExecContext(ctx, `
			INSERT INTO professional_qualifications (professional_id, id, profession, council_number, council_state)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (professional_id, id) DO UPDATE SET
				profession = EXCLUDED.profession,
				council_number = EXCLUDED.council_number,
				council_state = EXCLUDED.council_state`,
			pid, item.ID, item.Profession, item.CouncilNumber, item.CouncilState,
		); err != nil {
			return fmt.Errorf("upsert qualification: %w", err)
		}
	}
	if err := deleteAbsent(ctx, q, "professional_qualifications", pid, qualIDs); err != nil {
		return err
	}

	specIDs := make([]string, 0, len(snapshot.Specialties))
	for _, item := range snapshot.Specialties {
		specIDs = append(specIDs, item.ID)
		if _, err := q.ExecContext(ctx, `
			INSERT INTO professional_specialties (professional_id, id, name, rqe_number)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (professional_id, id) DO UPDATE SET
				name = EXCLUDED.name,
				rqe_number = EXCLUDED.rqe_number`,
			pid, item.ID, item.Name, item.RQENumber,
		); err != nil {
			return fmt.Errorf("upsert specialty: %w", err)
		}
	}
	if err := deleteAbsent(ctx, q, "professional_specialties", pid, specIDs); err != nil {
		return err
	}

	eduIDs := make([]string, 0, len(snapshot.Educations))
	for _, item := range snapshot.Educations {
		eduIDs = append(eduIDs, item.ID)
		if _, err := q.ExecContext(ctx, `
			INSERT INTO professional_educations (professional_id, id, institution, course, completed_at)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (professional_id, id) DO UPDATE SET
				institution = EXCLUDED.institution,
				course = EXCLUDED.course,
				completed_at = EXCLUDED.completed_at`,
			pid, item.ID, item.Institution, item.Course, item.CompletedAt,
		); err != nil {
			return fmt.Errorf("upsert education: %w", err)
		}
	}
	if err := deleteAbsent(ctx, q, "professional_educations", pid, eduIDs); err != nil {
		return err
	}

	accountIDs := make([]string, 0, len(snapshot.BankAccounts))
	for _, item := range snapshot.BankAccounts {
		accountIDs = append(accountIDs, item.ID)
		if _, err := q.ExecContext(ctx, `
			INSERT INTO professional_bank_accounts (professional_id, id, bank_code, agency, account, account_type)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (professional_id, id) DO UPDATE SET
				bank_code = EXCLUDED.bank_code,
				agency = EXCLUDED.agency,
				account = EXCLUDED.account,
				account_type = EXCLUDED.account_type`,
			pid, item.ID, item.BankCode, item.Agency, item.Account, item.AccountType,
		); err != nil {
			return fmt.Errorf("upsert bank account: %w", err)
		}
	}
	return deleteAbsent(ctx, q, "professional_bank_accounts", pid, accountIDs)
}

func deleteAbsent(ctx context.Context, q querier, table, professionalID string, keepIDs []string) error {
	_, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE professional_id = $1 AND NOT (id = ANY($2))`, table),
		professionalID, pq.Array(keepIDs),
	)
	if err != nil {
		return fmt.Errorf("prune %s: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) loadSubCollections(ctx context.Context, q querier, record *models.Professional) error {
	pid := record.ID.String()

	rows, err := q.QueryContext(ctx, `
		SELECT id, profession, council_number, council_state
		FROM professional_qualifications WHERE professional_id = $1 ORDER BY id`, pid)
	if err != nil {
		return fmt.Errorf("load qualifications: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var item models.Qualification
		if err := rows.Scan(&item.ID, &item.Profession, &item.CouncilNumber, &item.CouncilState); err != nil {
			return fmt.Errorf("scan qualification: %w", err)
		}
		record.Qualifications = append(record.Qualifications, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate qualifications: %w", err)
	}

	specRows, err := q.QueryContext(ctx, `
		SELECT id, name, rqe_number
		FROM professional_specialties WHERE professional_id = $1 ORDER BY id`, pid)
	if err != nil {
		return fmt.Errorf("load specialties: %w", err)
	}
	defer specRows.Close()
	for specRows.Next() {
		var item models.Specialty
		if err := specRows.Scan(&item.ID, &item.Name, &item.RQENumber); err != nil {
			return fmt.Errorf("scan specialty: %w", err)
		}
		record.Specialties = append(record.Specialties, item)
	}
	if err := specRows.Err(); err != nil {
		return fmt.Errorf("iterate specialties: %w", err)
	}

	eduRows, err := q.QueryContext(ctx, `
		SELECT id, institution, course, completed_at
		FROM professional_educations WHERE professional_id = $1 ORDER BY id`, pid)
	if err != nil {
		return fmt.Errorf("load educations: %w", err)
	}
	defer eduRows.Close()
	for eduRows.Next() {
		var item models.Education
		if err := eduRows.Scan(&item.ID, &item.Institution, &item.Course, &item.CompletedAt); err != nil {
			return fmt.Errorf("scan education: %w", err)
		}
		record.Educations = append(record.Educations, item)
	}
	if err := eduRows.Err(); err != nil {
		return fmt.Errorf("iterate educations: %w", err)
	}

	accountRows, err := q.QueryContext(ctx, `
		SELECT id, bank_code, agency, account, account_type
		FROM professional_bank_accounts WHERE professional_id = $1 ORDER BY id`, pid)
	if err != nil {
		return fmt.Errorf("load bank accounts: %w", err)
	}
	defer accountRows.Close()
	for accountRows.Next() {
		var item models.BankAccount
		if err := accountRows.Scan(&item.ID, &item.BankCode, &item.Agency, &item.Account, &item.AccountType); err != nil {
			return fmt.Errorf("scan bank account: %w", err)
		}
		record.BankAccounts = append(record.BankAccounts, item)
	}
	if err := accountRows.Err(); err != nil {
		return fmt.Errorf("iterate bank accounts: %w", err)
	}
	return nil
}
