package handler

import (
	"time"

	alertmodels "credentia/internal/alert/models"
	docmodels "credentia/internal/document/models"
	profmodels "credentia/internal/professional/models"
	"credentia/internal/screening/step"
	dErrors "credentia/pkg/domain-errors"
)

// CreateProcessRequest opens a screening process. Documents selects the
// catalog types the process collects; empty means the whole active catalog.
type CreateProcessRequest struct {
	ProfessionalID string                     `json:"professional_id"`
	RequestedSteps []string                   `json:"requested_steps"`
	SupervisorID   string                     `json:"supervisor_id,omitempty"`
	Documents      []DocumentSelectionRequest `json:"documents,omitempty"`
	ExpiresAt      *time.Time                 `json:"expires_at,omitempty"`
}

// DocumentSelectionRequest names one catalog type and its slot position.
type DocumentSelectionRequest struct {
	TypeID   string `json:"type_id"`
	Required *bool  `json:"required,omitempty"`
	Order    int    `json:"order"`
}

// Validate checks the request fields.
func (r *CreateProcessRequest) Validate() error {
	if r.ProfessionalID == "" {
		return dErrors.New(dErrors.CodeValidation, "professional_id is required")
	}
	if len(r.RequestedSteps) == 0 {
		return dErrors.New(dErrors.CodeValidation, "requested_steps must not be empty")
	}
	for _, s := range r.RequestedSteps {
		if !step.ValidType(step.Type(s)) {
			return dErrors.New(dErrors.CodeValidation, "unknown step type: "+s)
		}
	}
	for _, d := range r.Documents {
		if d.TypeID == "" {
			return dErrors.New(dErrors.CodeValidation, "document selection requires a type_id")
		}
	}
	return nil
}

// CompleteStepRequest completes the process's current step. LockToken is the
// step lock version the caller read.
type CompleteStepRequest struct {
	StepType  string               `json:"step_type"`
	LockToken int64                `json:"lock_token"`
	Outcome   string               `json:"outcome,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Snapshot  *profmodels.Snapshot `json:"snapshot,omitempty"`
	Payload   map[string]any       `json:"payload,omitempty"`
}

// Validate checks the request fields.
func (r *CompleteStepRequest) Validate() error {
	if r.StepType == "" {
		return dErrors.New(dErrors.CodeValidation, "step_type is required")
	}
	if !step.ValidType(step.Type(r.StepType)) {
		return dErrors.New(dErrors.CodeValidation, "unknown step type: "+r.StepType)
	}
	if r.LockToken <= 0 {
		return dErrors.New(dErrors.CodeValidation, "lock_token is required")
	}
	return nil
}

// ReasonRequest carries the reason for a reject or cancel.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// Validate checks the request fields.
func (r *ReasonRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// GoBackRequest moves the process back to an earlier completed step.
type GoBackRequest struct {
	TargetStep string `json:"target_step"`
}

// Validate checks the request fields.
func (r *GoBackRequest) Validate() error {
	if !step.ValidType(step.Type(r.TargetStep)) {
		return dErrors.New(dErrors.CodeValidation, "unknown step type: "+r.TargetStep)
	}
	return nil
}

// UploadDocumentRequest attaches a file to a document slot.
type UploadDocumentRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Size int64  `json:"size,omitempty"`
	MIME string `json:"mime,omitempty"`
}

// Validate checks the request fields.
func (r *UploadDocumentRequest) Validate() error {
	if r.URL == "" {
		return dErrors.New(dErrors.CodeValidation, "url is required")
	}
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

// FileRef converts the request to the document file reference.
func (r *UploadDocumentRequest) FileRef() docmodels.FileRef {
	return docmodels.FileRef{URL: r.URL, Name: r.Name, Size: r.Size, MIME: r.MIME}
}

// ReviewDocumentRequest records a reviewer's verdict.
type ReviewDocumentRequest struct {
	Decision string `json:"decision"`
	Note     string `json:"note,omitempty"`
}

// Validate checks the request fields.
func (r *ReviewDocumentRequest) Validate() error {
	if !docmodels.ValidDecision(docmodels.Decision(r.Decision)) {
		return dErrors.New(dErrors.CodeValidation, "unknown review decision: "+r.Decision)
	}
	return nil
}

// ReuseDocumentRequest optionally names the approved document to copy the
// file from. An empty body lets the service pick the most recent one.
type ReuseDocumentRequest struct {
	SourceDocumentID string `json:"source_document_id,omitempty"`
}

// RaiseAlertRequest opens an alert against the process.
type RaiseAlertRequest struct {
	Category   string `json:"category"`
	Reason     string `json:"reason"`
	DocumentID string `json:"document_id,omitempty"`
}

// Validate checks the request fields.
func (r *RaiseAlertRequest) Validate() error {
	if !alertmodels.ValidCategory(alertmodels.Category(r.Category)) {
		return dErrors.New(dErrors.CodeValidation, "unknown alert category: "+r.Category)
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

// ResolveAlertRequest resolves an open review alert.
type ResolveAlertRequest struct {
	AlertID string `json:"alert_id"`
	Note    string `json:"note,omitempty"`
}

// Validate checks the request fields.
func (r *ResolveAlertRequest) Validate() error {
	if r.AlertID == "" {
		return dErrors.New(dErrors.CodeValidation, "alert_id is required")
	}
	return nil
}

// RejectViaAlertRequest closes an open alert and rejects the process with it.
type RejectViaAlertRequest struct {
	AlertID string `json:"alert_id"`
	Reason  string `json:"reason"`
}

// Validate checks the request fields.
func (r *RejectViaAlertRequest) Validate() error {
	if r.AlertID == "" {
		return dErrors.New(dErrors.CodeValidation, "alert_id is required")
	}
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}
