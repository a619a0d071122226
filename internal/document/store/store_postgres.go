package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"credentia/internal/document/models"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/sentinel"
	txcontext "credentia/pkg/platform/tx"
)

// PostgresStore persists document slots; the review trail lives in a child
// table and the file reference in a JSONB column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore constructs a PostgreSQL-backed document store.
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

func (s *PostgresStore) CreateAll(ctx context.Context, documents []*models.Document) error {
	q := s.querier(ctx)
	now := time.Now()
	for _, doc := range documents {
		doc.CreatedAt = now
		doc.UpdatedAt = now
		_, err := q.ExecContext(ctx, `
			INSERT INTO process_documents (
				id, org_id, process_id, professional_id, type_id, type_name,
				required, display_order, status, alert_flagged, file_ref, reused_from,
				uploaded_by, uploaded_at, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
			doc.ID.String(), doc.OrgID.String(), doc.ProcessID.String(),
			doc.ProfessionalID.String(), doc.TypeID.String(), doc.TypeName,
			doc.Required, doc.Order, string(doc.Status), doc.AlertFlagged,
			fileJSON(doc.File), nullableID(doc.ReusedFrom),
			nullableActor(doc.UploadedBy), doc.UploadedAt, doc.CreatedAt, doc.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert document slot: %w", err)
		}
	}
	return nil
}

const documentColumns = `
	id, org_id, process_id, professional_id, type_id, type_name,
	required, display_order, status, alert_flagged, file_ref, reused_from,
	uploaded_by, uploaded_at, created_at, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) (*models.Document, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM process_documents
		WHERE id = $1 AND org_id = $2`,
		documentID.String(), orgID.String(),
	)
	doc, err := scanDocument(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadReviews(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *PostgresStore) ListByProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*models.Document, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT `+documentColumns+`
		FROM process_documents
		WHERE org_id = $1 AND process_id = $2
		ORDER BY display_order, type_name`,
		orgID.String(), processID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("select document slots: %w", err)
	}
	defer rows.Close()

	var documents []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		documents = append(documents, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document slots: %w", err)
	}
	for _, doc := range documents {
		if err := s.loadReviews(ctx, doc); err != nil {
			return nil, err
		}
	}
	return documents, nil
}

func (s *PostgresStore) Update(ctx context.Context, document *models.Document) error {
	q := s.querier(ctx)
	document.UpdatedAt = time.Now()

	result, err := q.ExecContext(ctx, `
		UPDATE process_documents
		SET status = $1, alert_flagged = $2, file_ref = $3, reused_from = $4,
		    uploaded_by = $5, uploaded_at = $6, updated_at = $7
		WHERE id = $8 AND org_id = $9`,
		string(document.Status), document.AlertFlagged, fileJSON(document.File),
		nullableID(document.ReusedFrom), nullableActor(document.UploadedBy),
		document.UploadedAt, document.UpdatedAt,
		document.ID.String(), document.OrgID.String(),
	)
	if err != nil {
		return fmt.Errorf("update document slot: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}

	// The trail is append-only; persist entries past the stored count.
	var stored int
	if err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM document_reviews WHERE document_id = $1`,
		document.ID.String(),
	).Scan(&stored); err != nil {
		return fmt.Errorf("count review entries: %w", err)
	}
	for _, review := range document.Reviews[stored:] {
		_, err := q.ExecContext(ctx, `
			INSERT INTO document_reviews (document_id, decision, note, reviewed_by, reviewed_at)
			VALUES ($1, $2, $3, $4, $5)`,
			document.ID.String(), string(review.Decision), review.Note,
			review.ReviewedBy.String(), review.ReviewedAt,
		)
		if err != nil {
			return fmt.Errorf("insert review entry: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) FindReusableSource(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID, typeID id.DocumentTypeID, excludeProcess id.ProcessID) (*models.Document, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM process_documents
		WHERE org_id = $1 AND professional_id = $2 AND type_id = $3
		  AND process_id <> $4 AND status = $5 AND NOT alert_flagged
		ORDER BY updated_at DESC
		LIMIT 1`,
		orgID.String(), professionalID.String(), typeID.String(),
		excludeProcess.String(), string(models.StatusApproved),
	)
	return scanDocument(row)
}

func (s *PostgresStore) loadReviews(ctx context.Context, doc *models.Document) error {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT decision, note, reviewed_by, reviewed_at
		FROM document_reviews
		WHERE document_id = $1
		ORDER BY id`,
		doc.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("select review entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			entry       models.ReviewEntry
			rawDecision string
			rawReviewer string
		)
		if err := rows.Scan(&rawDecision, &entry.Note, &rawReviewer, &entry.ReviewedAt); err != nil {
			return fmt.Errorf("scan review entry: %w", err)
		}
		entry.Decision = models.Decision(rawDecision)
		reviewer, err := id.ParseActorID(rawReviewer)
		if err != nil {
			return err
		}
		entry.ReviewedBy = reviewer
		doc.Reviews = append(doc.Reviews, entry)
	}
	return rows.Err()
}

func fileJSON(file *models.FileRef) []byte {
	if file == nil {
		return nil
	}
	encoded, err := json.Marshal(file)
	if err != nil {
		return nil
	}
	return encoded
}

func nullableID(documentID *id.DocumentID) *string {
	if documentID == nil {
		return nil
	}
	value := documentID.String()
	return &value
}

func nullableActor(actor *id.ActorID) *string {
	if actor == nil {
		return nil
	}
	value := actor.String()
	return &value
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		rawID, rawOrgID, rawProcessID, rawProfessionalID, rawTypeID string
		status                                                     string
		rawFile                                                    []byte
		reusedFrom, uploadedBy                                     sql.NullString
		doc                                                        models.Document
	)
	err := row.Scan(
		&rawID, &rawOrgID, &rawProcessID, &rawProfessionalID, &rawTypeID,
		&doc.TypeName, &doc.Required, &doc.Order, &status, &doc.AlertFlagged, &rawFile,
		&reusedFrom, &uploadedBy, &doc.UploadedAt, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document slot: %w", err)
	}

	if doc.ID, err = id.ParseDocumentID(rawID); err != nil {
		return nil, err
	}
	if doc.OrgID, err = id.ParseOrgID(rawOrgID); err != nil {
		return nil, err
	}
	if doc.ProcessID, err = id.ParseProcessID(rawProcessID); err != nil {
		return nil, err
	}
	if doc.ProfessionalID, err = id.ParseProfessionalID(rawProfessionalID); err != nil {
		return nil, err
	}
	if doc.TypeID, err = id.ParseDocumentTypeID(rawTypeID); err != nil {
		return nil, err
	}
	doc.Status = models.Status(status)

	if len(rawFile) > 0 {
		var file models.FileRef
		if err := json.Unmarshal(rawFile, &file); err != nil {
			return nil, fmt.Errorf("unmarshal file ref: %w", err)
		}
		doc.File = &file
	}
	if reusedFrom.Valid {
		source, err := id.ParseDocumentID(reusedFrom.String)
		if err != nil {
			return nil, err
		}
		doc.ReusedFrom = &source
	}
	if uploadedBy.Valid {
		actor, err := id.ParseActorID(uploadedBy.String)
		if err != nil {
			return nil, err
		}
		doc.UploadedBy = &actor
	}
	return &doc, nil
}
