// Package store persists professional records. Both implementations expose
// the same compare-and-swap UpdateSnapshot so version apply can hold
// entity-level exclusivity during converge.
package store

import (
	"context"

	"credentia/internal/professional/models"
	id "credentia/pkg/domain"
)

// Store is the persistence contract for professional records.
type Store interface {
	// Create inserts a new professional with RecordVersion 1.
	Create(ctx context.Context, professional *models.Professional) error
	// FindByID loads a professional within the org scope.
	// Returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Professional, error)
	// UpdateSnapshot converges the stored record to the snapshot iff the
	// stored RecordVersion still equals expectedVersion, then bumps it.
	// Returns sentinel.ErrConflict when a concurrent apply won.
	UpdateSnapshot(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID, expectedVersion int64, snapshot models.Snapshot) (*models.Professional, error)
}
