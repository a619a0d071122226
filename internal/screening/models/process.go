// Package models defines the screening process aggregate.
package models

import (
	"time"

	docmodels "credentia/internal/document/models"
	"credentia/internal/screening/step"
	id "credentia/pkg/domain"
)

// Status is the lifecycle state of a screening process.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusApproved   Status = "APPROVED"
	StatusRejected   Status = "REJECTED"
	StatusCancelled  Status = "CANCELLED"
	StatusExpired    Status = "EXPIRED"
)

// ValidStatus reports whether s is one of the known process statuses.
func ValidStatus(s Status) bool {
	switch s {
	case StatusInProgress, StatusApproved, StatusRejected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// Terminal reports whether the process can no longer change.
func (s Status) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// StepSummary is one entry of the denormalized step_info projection.
type StepSummary struct {
	Type   step.Type   `json:"type"`
	Status step.Status `json:"status"`
}

// BuildStepInfo derives the projection from the authoritative step rows.
// After every mutation the stored projection must equal this recompute.
func BuildStepInfo(steps []*step.Step) []StepSummary {
	step.SortSteps(steps)
	info := make([]StepSummary, 0, len(steps))
	for _, s := range steps {
		info = append(info, StepSummary{Type: s.Type, Status: s.Status})
	}
	return info
}

// Process is one screening run of a professional within an org. At most one
// non-terminal process exists per (org, professional).
type Process struct {
	ID             id.ProcessID
	OrgID          id.OrgID
	ProfessionalID id.ProfessionalID
	// SupervisorID is the supervisor assigned at intake; alert escalations
	// land on their desk.
	SupervisorID *id.ActorID
	Status       Status

	// ConfiguredSteps is the immutable subset of the canonical order chosen
	// at creation. SupervisorReview never appears here; it activates later.
	ConfiguredSteps []step.Type
	// CurrentStepType mirrors the first unsettled step; nil when every step
	// is settled and the process awaits its final verdict.
	CurrentStepType *step.Type
	// StepInfo is the denormalized projection of the step rows.
	StepInfo []StepSummary
	// DocumentCounts is the denormalized projection of the document slots.
	DocumentCounts docmodels.Counts

	// PendingVersionID references the professional version staged by the
	// professional-data step; approve() applies it.
	PendingVersionID *id.VersionID

	// Reason records why the process was rejected or cancelled.
	Reason string

	// LockVersion is the optimistic-lock counter; a stale write loses.
	LockVersion int64

	ExpiresAt   *time.Time
	CompletedAt *time.Time
	CreatedBy   id.ActorID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Terminal reports whether the process can no longer change.
func (p *Process) Terminal() bool {
	return p.Status.Terminal()
}

// IsExpired is the pure expiry predicate. The transition itself happens only
// through an explicit Expire call by an external sweeper.
func (p *Process) IsExpired(now time.Time) bool {
	return !p.Terminal() && p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}

// HasConfiguredStep reports whether the type was requested at creation.
func (p *Process) HasConfiguredStep(stepType step.Type) bool {
	for _, t := range p.ConfiguredSteps {
		if t == stepType {
			return true
		}
	}
	return false
}
