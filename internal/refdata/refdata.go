// Package refdata serves the slow-moving reference data screening depends
// on: the org's document type catalog and its screening settings. Reads are
// hot on process creation, so a Redis-backed cache decorator fronts the
// store in production.
package refdata

import (
	"context"
	"time"

	id "credentia/pkg/domain"
)

// DocumentType is one entry of an org's document catalog.
type DocumentType struct {
	ID    id.DocumentTypeID `json:"id"`
	OrgID id.OrgID          `json:"org_id"`
	Name  string            `json:"name"`
	// Required marks types every process must collect; the rest are
	// optional and skippable.
	Required bool `json:"required"`
	Active   bool `json:"active"`
}

// OrgSettings holds the org-level screening configuration.
type OrgSettings struct {
	OrgID id.OrgID `json:"org_id"`
	// ClientValidationEnabled gates whether processes may configure the
	// client validation step.
	ClientValidationEnabled bool `json:"client_validation_enabled"`
	// ClientCallbackURL receives the external validation verdict.
	ClientCallbackURL string `json:"client_callback_url"`
	// ProcessTTL bounds how long a process may stay open before it expires.
	ProcessTTL time.Duration `json:"process_ttl"`
	// AllowOptionalSkip lets professionals settle optional documents as
	// skipped instead of uploading them.
	AllowOptionalSkip bool `json:"allow_optional_skip"`
}

// Store is the read contract the screening orchestrator consumes.
type Store interface {
	// ActiveDocumentTypes returns the org's active catalog entries.
	ActiveDocumentTypes(ctx context.Context, orgID id.OrgID) ([]DocumentType, error)
	// Settings returns the org's screening settings.
	// Returns sentinel.ErrNotFound when the org is not provisioned.
	Settings(ctx context.Context, orgID id.OrgID) (*OrgSettings, error)
}
