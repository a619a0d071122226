package refdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
)

// PostgresStore reads reference data from PostgreSQL. Catalog and settings
// writes go through org provisioning tooling, not this service.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed refdata store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ActiveDocumentTypes(ctx context.Context, orgID id.OrgID) ([]DocumentType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, org_id, name, required, active
		FROM document_types
		WHERE org_id = $1 AND active
		ORDER BY name`,
		orgID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("select document types: %w", err)
	}
	defer rows.Close()

	var types []DocumentType
	for rows.Next() {
		var (
			documentType     DocumentType
			rawID, rawOrgID  string
		)
		if err := rows.Scan(&rawID, &rawOrgID, &documentType.Name, &documentType.Required, &documentType.Active); err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		if documentType.ID, err = id.ParseDocumentTypeID(rawID); err != nil {
			return nil, err
		}
		if documentType.OrgID, err = id.ParseOrgID(rawOrgID); err != nil {
			return nil, err
		}
		types = append(types, documentType)
	}
	return types, rows.Err()
}

func (s *PostgresStore) Settings(ctx context.Context, orgID id.OrgID) (*OrgSettings, error) {
	var (
		settings   OrgSettings
		rawOrgID   string
		ttlSeconds int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT org_id, client_validation_enabled, client_callback_url,
		       process_ttl_seconds, allow_optional_skip
		FROM org_screening_settings
		WHERE org_id = $1`,
		orgID.String(),
	).Scan(&rawOrgID, &settings.ClientValidationEnabled, &settings.ClientCallbackURL,
		&ttlSeconds, &settings.AllowOptionalSkip)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select org settings: %w", err)
	}
	if settings.OrgID, err = id.ParseOrgID(rawOrgID); err != nil {
		return nil, err
	}
	settings.ProcessTTL = time.Duration(ttlSeconds) * time.Second
	return &settings, nil
}
