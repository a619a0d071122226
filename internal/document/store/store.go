// Package store persists per-process document slots and their review trails.
package store

import (
	"context"

	"credentia/internal/document/models"
	id "credentia/pkg/domain"
)

// Store is the persistence contract for document slots.
type Store interface {
	// CreateAll inserts the slots configured for a process in one shot.
	CreateAll(ctx context.Context, documents []*models.Document) error
	// FindByID loads a slot within the org scope.
	// Returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) (*models.Document, error)
	// ListByProcess returns the process's slots in display order.
	ListByProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*models.Document, error)
	// Update persists the slot's mutable fields and appends any review
	// entries added since the load.
	Update(ctx context.Context, document *models.Document) error
	// FindReusableSource returns the most recent approved, unflagged document
	// of the given type uploaded by the professional in any other process.
	// Returns sentinel.ErrNotFound when there is none.
	FindReusableSource(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID, typeID id.DocumentTypeID, excludeProcess id.ProcessID) (*models.Document, error)
}
