// Package models defines screening alerts. An alert is raised when a document
// reviewer escalates a finding; while one is open the owning process cannot
// be approved.
package models

import (
	"time"

	id "credentia/pkg/domain"
)

// Status is the lifecycle state of an alert.
type Status string

const (
	// StatusOpen blocks approval of the owning process.
	StatusOpen Status = "OPEN"
	// StatusResolved releases the block; the process may proceed.
	StatusResolved Status = "RESOLVED"
	// StatusRejecting records that the alert was closed by rejecting the
	// whole process rather than clearing the finding.
	StatusRejecting Status = "REJECTING"
)

// Category names what kind of finding raised the alert.
type Category string

const (
	// CategoryDocument marks alerts escalated from a document review.
	CategoryDocument Category = "DOCUMENT"
	// CategoryManual marks alerts raised directly against the process.
	CategoryManual Category = "MANUAL"
)

// ValidCategory reports whether c is a known alert category.
func ValidCategory(c Category) bool {
	return c == CategoryDocument || c == CategoryManual
}

// Alert is an escalated finding attached to a screening process.
type Alert struct {
	ID        id.AlertID
	OrgID     id.OrgID
	ProcessID id.ProcessID
	// DocumentID references the document whose review raised the alert.
	// Manual alerts carry none.
	DocumentID *id.DocumentID
	Category   Category
	Status     Status
	Reason     string

	RaisedBy id.ActorID
	RaisedAt time.Time

	ResolvedBy     *id.ActorID
	ResolvedAt     *time.Time
	ResolutionNote string
}

// IsOpen reports whether the alert still blocks approval.
func (a *Alert) IsOpen() bool {
	return a.Status == StatusOpen
}
