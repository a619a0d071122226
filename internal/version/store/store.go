// Package store persists professional versions and their change rows.
// Versions are append-only; the only mutable columns are status, the
// apply/reject stamps and the is_current flag.
package store

import (
	"context"
	"time"

	"credentia/internal/version/models"
	id "credentia/pkg/domain"
)

// Store is the persistence contract for professional versions.
type Store interface {
	// NextNumber allocates the next strictly increasing version number
	// for the org.
	NextNumber(ctx context.Context, orgID id.OrgID) (int64, error)
	// Create inserts a version with its change rows in one transaction.
	Create(ctx context.Context, version *models.Version, changes []models.Change) error
	// FindByID loads a version within the org scope.
	// Returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, orgID id.OrgID, versionID id.VersionID) (*models.Version, error)
	// ListByProfessional returns all versions for a professional, newest first.
	ListByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Version, error)
	// ListChanges returns the change rows recorded when the version was staged.
	ListChanges(ctx context.Context, orgID id.OrgID, versionID id.VersionID) ([]models.Change, error)
	// Current returns the version carrying is_current for the professional.
	// Returns sentinel.ErrNotFound when no version has been applied yet.
	Current(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Version, error)
	// MarkApplied moves a PENDING version to APPLIED and atomically moves
	// the is_current flag onto it. Returns sentinel.ErrConflict when the
	// version is no longer pending.
	MarkApplied(ctx context.Context, orgID id.OrgID, versionID id.VersionID, actor id.ActorID, at time.Time) error
	// MarkRejected moves a PENDING version to REJECTED.
	// Returns sentinel.ErrConflict when the version is no longer pending.
	MarkRejected(ctx context.Context, orgID id.OrgID, versionID id.VersionID, actor id.ActorID, at time.Time, reason string) error
}
