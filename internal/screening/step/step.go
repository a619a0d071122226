// Package step defines the screening step types, their lifecycle and the
// ordering rules the orchestrator walks.
package step

import (
	"time"

	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
)

// Type names one screening step.
type Type string

const (
	TypeConversation     Type = "CONVERSATION"
	TypeProfessionalData Type = "PROFESSIONAL_DATA"
	TypeDocumentUpload   Type = "DOCUMENT_UPLOAD"
	TypeDocumentReview   Type = "DOCUMENT_REVIEW"
	// TypeSupervisorReview is never requested at process creation; it is
	// activated by an alert escalation.
	TypeSupervisorReview Type = "SUPERVISOR_REVIEW"
	TypePaymentInfo      Type = "PAYMENT_INFO"
	TypeClientValidation Type = "CLIENT_VALIDATION"
)

// CanonicalOrder is the fixed sequence steps run in. A process configures a
// subset; the subset keeps this relative order.
var CanonicalOrder = []Type{
	TypeConversation,
	TypeProfessionalData,
	TypeDocumentUpload,
	TypeDocumentReview,
	TypeSupervisorReview,
	TypePaymentInfo,
	TypeClientValidation,
}

var canonicalIndex = func() map[Type]int {
	index := make(map[Type]int, len(CanonicalOrder))
	for i, t := range CanonicalOrder {
		index[t] = i
	}
	return index
}()

// ValidType reports whether t is a known step type.
func ValidType(t Type) bool {
	_, ok := canonicalIndex[t]
	return ok
}

// Before reports whether t runs before other in the canonical order.
func (t Type) Before(other Type) bool {
	return canonicalIndex[t] < canonicalIndex[other]
}

// Requestable reports whether the type may be configured at process
// creation.
func (t Type) Requestable() bool {
	return ValidType(t) && t != TypeSupervisorReview
}

// Status is the lifecycle state of one step.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	// StatusApproved is stamped on completed steps when the process is
	// approved.
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusSkipped  Status = "SKIPPED"
	// StatusCancelled is stamped when the process is cancelled or expires.
	StatusCancelled Status = "CANCELLED"
	// StatusCorrectionNeeded reopens a completed step, sending the process
	// back to it.
	StatusCorrectionNeeded Status = "CORRECTION_NEEDED"
)

// transitions is the single source of truth for legal step moves.
var transitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusSkipped:    true,
		StatusRejected:   true,
		StatusCancelled:  true,
	},
	StatusInProgress: {
		StatusPending:          true,
		StatusCompleted:        true,
		StatusCorrectionNeeded: true,
		StatusRejected:         true,
		StatusCancelled:        true,
	},
	StatusCompleted: {
		StatusApproved:         true,
		StatusCorrectionNeeded: true,
		StatusPending:          true,
		StatusRejected:         true,
		StatusCancelled:        true,
	},
	StatusCorrectionNeeded: {
		StatusInProgress: true,
		StatusCompleted:  true,
		StatusRejected:   true,
		StatusCancelled:  true,
	},
	StatusApproved:  {},
	StatusRejected:  {},
	StatusSkipped:   {StatusCancelled: true, StatusRejected: true},
	StatusCancelled: {},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Settled reports whether the status no longer blocks process advancement.
func (s Status) Settled() bool {
	switch s {
	case StatusCompleted, StatusApproved, StatusSkipped:
		return true
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Step is one unit of work inside a screening process.
type Step struct {
	ID        id.StepID
	OrgID     id.OrgID
	ProcessID id.ProcessID
	Type      Type
	Status    Status

	// Payload carries the step's captured data: the conversation answers,
	// the staged version reference, the approved client callback, depending
	// on the type. Opaque to the engine.
	Payload map[string]any

	// LockVersion is the optimistic-lock counter; a stale write loses.
	LockVersion int64

	CompletedBy *id.ActorID
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Transition moves the step to the target status or fails with a conflict
// naming the illegal move.
func (s *Step) Transition(to Status) error {
	if !CanTransition(s.Status, to) {
		return dErrors.Newf(dErrors.CodeConflict, "step %s cannot move from %s to %s", s.Type, s.Status, to)
	}
	s.Status = to
	return nil
}

// SortSteps orders steps by the canonical sequence in place.
func SortSteps(steps []*Step) {
	for i := 1; i < len(steps); i++ {
		for j := i; j > 0 && steps[j].Type.Before(steps[j-1].Type); j-- {
			steps[j], steps[j-1] = steps[j-1], steps[j]
		}
	}
}

// CurrentStep returns the first unsettled step in canonical order, or nil
// when every step is settled and the process awaits its final verdict.
func CurrentStep(steps []*Step) *Step {
	SortSteps(steps)
	for _, s := range steps {
		if !s.Status.Settled() && !s.Status.Terminal() {
			return s
		}
	}
	return nil
}
