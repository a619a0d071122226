// Package store persists screening alerts.
package store

import (
	"context"
	"time"

	"credentia/internal/alert/models"
	id "credentia/pkg/domain"
)

// Store is the persistence contract for alerts.
type Store interface {
	// Create inserts an alert. Returns sentinel.ErrConflict when the process
	// already carries an open alert.
	Create(ctx context.Context, alert *models.Alert) error
	// FindByID loads an alert within the org scope.
	// Returns sentinel.ErrNotFound when absent.
	FindByID(ctx context.Context, orgID id.OrgID, alertID id.AlertID) (*models.Alert, error)
	// OpenByProcess returns the open alert for the process.
	// Returns sentinel.ErrNotFound when the process has none.
	OpenByProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Alert, error)
	// ListByProcess returns all alerts ever raised on the process, oldest first.
	ListByProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*models.Alert, error)
	// Close moves an OPEN alert to the given terminal status.
	// Returns sentinel.ErrConflict when the alert is no longer open.
	Close(ctx context.Context, orgID id.OrgID, alertID id.AlertID, status models.Status, actor id.ActorID, at time.Time, note string) error
}
