// Package models defines professional version and change-diff records.
// Versions are append-only full snapshots; diffs are derived audit metadata
// and are never replayed to mutate state.
package models

import (
	"time"

	professional "credentia/internal/professional/models"
	id "credentia/pkg/domain"
)

// SourceType records where a staged version came from.
type SourceType string

const (
	SourceDirect    SourceType = "DIRECT"
	SourceScreening SourceType = "SCREENING"
	SourceImport    SourceType = "IMPORT"
	SourceAPI       SourceType = "API"
)

// ValidSourceType reports whether s is one of the known source types.
func ValidSourceType(s SourceType) bool {
	switch s {
	case SourceDirect, SourceScreening, SourceImport, SourceAPI:
		return true
	}
	return false
}

// Status is the lifecycle state of a staged version.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApplied  Status = "APPLIED"
	StatusRejected Status = "REJECTED"
)

// Version is one full point-in-time snapshot of a professional's data.
// Numbers are strictly increasing per org; exactly one version per
// professional carries IsCurrent once any has been applied.
type Version struct {
	ID             id.VersionID
	OrgID          id.OrgID
	ProfessionalID id.ProfessionalID
	Number         int64
	Snapshot       professional.Snapshot
	SourceType     SourceType
	// SourceID references the originating aggregate (screening process ID,
	// import batch ID) when SourceType is not DIRECT.
	SourceID  string
	Status    Status
	IsCurrent bool

	CreatedBy id.ActorID
	CreatedAt time.Time

	AppliedAt    *time.Time
	AppliedBy    *id.ActorID
	RejectedAt   *time.Time
	RejectedBy   *id.ActorID
	RejectReason string
}

// IsPending reports whether the version can still be applied or rejected.
func (v *Version) IsPending() bool {
	return v.Status == StatusPending
}

// ChangeType classifies one diff row.
type ChangeType string

const (
	ChangeAdded    ChangeType = "ADDED"
	ChangeModified ChangeType = "MODIFIED"
	ChangeRemoved  ChangeType = "REMOVED"
)

// Change is a field-level difference between a version and its predecessor.
// OldValue/NewValue hold scalar values for field changes and JSON object
// snapshots for whole sub-item additions/removals.
type Change struct {
	ID        int64
	VersionID id.VersionID
	FieldPath string
	Type      ChangeType
	OldValue  string
	NewValue  string
}
