// Package event emits domain events for external consumers (notification,
// reporting). Delivery is fire-and-forget: services publish into an inbox
// channel, a worker appends to the store, and a relay ships outbox rows to
// Kafka. A lost event never blocks or rolls back a domain operation.
package event

import (
	"context"
	"time"

	id "credentia/pkg/domain"
)

// Category classifies events by their primary purpose. This enables different
// retention policies and routing downstream.
type Category string

const (
	// CategoryCompliance covers events with regulatory significance:
	// screening outcomes, version applies, alert escalations.
	CategoryCompliance Category = "compliance"

	// CategoryOperations covers events useful for operational visibility:
	// step transitions, document uploads.
	CategoryOperations Category = "operations"
)

// Action names one domain event.
type Action string

const (
	ActionProcessCreated    Action = "screening_process_created"
	ActionProcessApproved   Action = "screening_process_approved"
	ActionProcessRejected   Action = "screening_process_rejected"
	ActionProcessCancelled  Action = "screening_process_cancelled"
	ActionProcessExpired    Action = "screening_process_expired"
	ActionProcessWentBack   Action = "screening_process_went_back"
	ActionStepCompleted     Action = "screening_step_completed"
	ActionDocumentUploaded  Action = "screening_document_uploaded"
	ActionDocumentReviewed  Action = "screening_document_reviewed"
	ActionAlertRaised       Action = "screening_alert_raised"
	ActionAlertResolved     Action = "screening_alert_resolved"
	ActionVersionStaged     Action = "professional_version_staged"
	ActionVersionApplied    Action = "professional_version_applied"
	ActionVersionRejected   Action = "professional_version_rejected"
	ActionSupervisorStepped Action = "supervisor_review_activated"
)

// actionCategories is the source of truth for routing.
var actionCategories = map[Action]Category{
	ActionProcessCreated:    CategoryOperations,
	ActionProcessApproved:   CategoryCompliance,
	ActionProcessRejected:   CategoryCompliance,
	ActionProcessCancelled:  CategoryCompliance,
	ActionProcessExpired:    CategoryCompliance,
	ActionProcessWentBack:   CategoryOperations,
	ActionStepCompleted:     CategoryOperations,
	ActionDocumentUploaded:  CategoryOperations,
	ActionDocumentReviewed:  CategoryCompliance,
	ActionAlertRaised:       CategoryCompliance,
	ActionAlertResolved:     CategoryCompliance,
	ActionVersionStaged:     CategoryOperations,
	ActionVersionApplied:    CategoryCompliance,
	ActionVersionRejected:   CategoryCompliance,
	ActionSupervisorStepped: CategoryCompliance,
}

// Category returns the routing category for the action, defaulting to
// operations for unknown actions.
func (a Action) Category() Category {
	if category, ok := actionCategories[a]; ok {
		return category
	}
	return CategoryOperations
}

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	OrgID     id.OrgID
	ActorID   id.ActorID
	// Subject references the aggregate the event is about, e.g.
	// "process:<uuid>" or "version:<uuid>".
	Subject string
	Action  Action
	// Reason carries the human-entered justification where one exists
	// (rejections, cancellations, alert escalations).
	Reason string
	// Enrichment from request context.
	RequestID string
	Device    string
}

// Store persists events for relay and audit.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher is the interface services emit through.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}
