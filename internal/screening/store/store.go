// Package store persists screening processes and their step rows.
package store

import (
	"context"

	"credentia/internal/screening/models"
	"credentia/internal/screening/step"
	id "credentia/pkg/domain"
)

// Store is the persistence contract for processes and steps.
type Store interface {
	// CreateProcess inserts the process with its initial step rows.
	CreateProcess(ctx context.Context, process *models.Process, steps []*step.Step) error
	// FindProcess loads a process within the org scope.
	// Returns sentinel.ErrNotFound when absent.
	FindProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error)
	// FindActiveByProfessional returns the professional's non-terminal
	// process. Returns sentinel.ErrNotFound when there is none.
	FindActiveByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Process, error)
	// ListByProfessional returns the professional's processes, newest first.
	ListByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Process, error)
	// ListExpirable returns non-terminal processes whose expiry timestamp has
	// passed, for the external sweeper.
	ListExpirable(ctx context.Context, orgID id.OrgID) ([]*models.Process, error)
	// UpdateProcess persists the process iff its stored LockVersion still
	// equals process.LockVersion, then bumps it.
	// Returns sentinel.ErrConflict when a concurrent writer won.
	UpdateProcess(ctx context.Context, process *models.Process) error

	// ListSteps returns the process's step rows.
	ListSteps(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*step.Step, error)
	// FindStep returns the process's step row of the given type.
	// Returns sentinel.ErrNotFound when absent.
	FindStep(ctx context.Context, orgID id.OrgID, processID id.ProcessID, stepType step.Type) (*step.Step, error)
	// HasStep reports whether the process owns a step row of the given type.
	// Conditional activation relies on this explicit query.
	HasStep(ctx context.Context, orgID id.OrgID, processID id.ProcessID, stepType step.Type) (bool, error)
	// CreateStep inserts one step row. Returns sentinel.ErrConflict when the
	// process already owns a row of that type.
	CreateStep(ctx context.Context, s *step.Step) error
	// UpdateStep persists the step iff its stored LockVersion still equals
	// expectedLock, then bumps it.
	// Returns sentinel.ErrConflict when a concurrent writer won.
	UpdateStep(ctx context.Context, s *step.Step, expectedLock int64) error
}
