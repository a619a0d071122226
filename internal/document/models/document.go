// Package models defines the per-process document requirements and their
// review trail.
package models

import (
	"time"

	id "credentia/pkg/domain"
)

// Status is the lifecycle state of one required document inside a process.
type Status string

const (
	StatusPendingUpload    Status = "PENDING_UPLOAD"
	StatusPendingReview    Status = "PENDING_REVIEW"
	StatusApproved         Status = "APPROVED"
	StatusCorrectionNeeded Status = "CORRECTION_NEEDED"
	// StatusReused marks a document satisfied by an approved file from an
	// earlier process of the same professional.
	StatusReused  Status = "REUSED"
	StatusSkipped Status = "SKIPPED"
)

// Decision is a reviewer's verdict on an uploaded document.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	// DecisionCorrection sends the document back to the professional.
	DecisionCorrection Decision = "CORRECTION"
	// DecisionAlert accepts the file but escalates a finding on it. The
	// document leaves review flagged; the process-level alert blocks
	// approval until a supervisor resolves it.
	DecisionAlert Decision = "ALERT"
)

// ValidDecision reports whether d is one of the known review decisions.
func ValidDecision(d Decision) bool {
	switch d {
	case DecisionApprove, DecisionCorrection, DecisionAlert:
		return true
	}
	return false
}

// FileRef points at an uploaded file in object storage.
type FileRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	MIME string `json:"mime"`
}

// ReviewEntry is one verdict in a document's review trail. The trail is
// append-only; a correction-and-reupload cycle adds entries, never rewrites.
type ReviewEntry struct {
	Decision   Decision
	Note       string
	ReviewedBy id.ActorID
	ReviewedAt time.Time
}

// Document is one required document slot inside a screening process.
type Document struct {
	ID             id.DocumentID
	OrgID          id.OrgID
	ProcessID      id.ProcessID
	ProfessionalID id.ProfessionalID
	TypeID         id.DocumentTypeID
	TypeName       string
	Required       bool
	// Order fixes the slot's position when the process presents its
	// document list.
	Order  int
	Status Status
	// AlertFlagged stays true for the life of the document once a reviewer
	// escalates it; flagged documents are never offered for reuse.
	AlertFlagged bool

	File *FileRef
	// ReusedFrom references the approved document the file was taken from.
	ReusedFrom *id.DocumentID
	Reviews    []ReviewEntry

	UploadedBy *id.ActorID
	UploadedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Uploadable reports whether a new file may be attached.
func (d *Document) Uploadable() bool {
	return d.Status == StatusPendingUpload || d.Status == StatusCorrectionNeeded
}

// Settled reports whether the document no longer blocks the upload step.
// Optional documents may settle as SKIPPED; required ones may not.
func (d *Document) Settled() bool {
	switch d.Status {
	case StatusApproved, StatusReused:
		return true
	case StatusSkipped:
		return !d.Required
	}
	return false
}

// Counts summarizes a process's document slots per status bucket. Stored as
// a projection on the process and recomputable from the slots at any time.
type Counts struct {
	Total            int `json:"total"`
	Required         int `json:"required"`
	PendingUpload    int `json:"pending_upload"`
	PendingReview    int `json:"pending_review"`
	Approved         int `json:"approved"`
	CorrectionNeeded int `json:"correction_needed"`
	Reused           int `json:"reused"`
	Skipped          int `json:"skipped"`
	Alerted          int `json:"alerted"`
}

// ComputeCounts derives the projection from the document slots.
func ComputeCounts(documents []*Document) Counts {
	var counts Counts
	counts.Total = len(documents)
	for _, doc := range documents {
		if doc.Required {
			counts.Required++
		}
		if doc.AlertFlagged {
			counts.Alerted++
		}
		switch doc.Status {
		case StatusPendingUpload:
			counts.PendingUpload++
		case StatusPendingReview:
			counts.PendingReview++
		case StatusApproved:
			counts.Approved++
		case StatusCorrectionNeeded:
			counts.CorrectionNeeded++
		case StatusReused:
			counts.Reused++
		case StatusSkipped:
			counts.Skipped++
		}
	}
	return counts
}

// AllSettled reports whether every document slot is settled, which is the
// gate for completing the upload step.
func AllSettled(documents []*Document) bool {
	for _, doc := range documents {
		if !doc.Settled() {
			return false
		}
	}
	return true
}
