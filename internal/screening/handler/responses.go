package handler

import (
	"time"

	alertmodels "credentia/internal/alert/models"
	docmodels "credentia/internal/document/models"
	"credentia/internal/screening/models"
	"credentia/internal/screening/step"
)

// ProcessResponse is the wire shape of a screening process.
type ProcessResponse struct {
	ID               string                 `json:"id"`
	ProfessionalID   string                 `json:"professional_id"`
	SupervisorID     *string                `json:"supervisor_id,omitempty"`
	Status           string                 `json:"status"`
	ConfiguredSteps  []string               `json:"configured_steps"`
	CurrentStepType  *string                `json:"current_step_type,omitempty"`
	StepInfo         []models.StepSummary   `json:"step_info"`
	DocumentCounts   docmodels.Counts       `json:"document_counts"`
	PendingVersionID *string                `json:"pending_version_id,omitempty"`
	Reason           string                 `json:"reason,omitempty"`
	LockVersion      int64                  `json:"lock_version"`
	ExpiresAt        *time.Time             `json:"expires_at,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// FromProcess converts a process to its response shape.
func FromProcess(process *models.Process) ProcessResponse {
	resp := ProcessResponse{
		ID:              process.ID.String(),
		ProfessionalID:  process.ProfessionalID.String(),
		Status:          string(process.Status),
		ConfiguredSteps: make([]string, len(process.ConfiguredSteps)),
		StepInfo:        process.StepInfo,
		DocumentCounts:  process.DocumentCounts,
		Reason:          process.Reason,
		LockVersion:     process.LockVersion,
		ExpiresAt:       process.ExpiresAt,
		CompletedAt:     process.CompletedAt,
		CreatedAt:       process.CreatedAt,
		UpdatedAt:       process.UpdatedAt,
	}
	for i, t := range process.ConfiguredSteps {
		resp.ConfiguredSteps[i] = string(t)
	}
	if process.SupervisorID != nil {
		supervisor := process.SupervisorID.String()
		resp.SupervisorID = &supervisor
	}
	if process.CurrentStepType != nil {
		current := string(*process.CurrentStepType)
		resp.CurrentStepType = &current
	}
	if process.PendingVersionID != nil {
		pending := process.PendingVersionID.String()
		resp.PendingVersionID = &pending
	}
	return resp
}

// FromProcesses converts a process list.
func FromProcesses(processes []*models.Process) []ProcessResponse {
	out := make([]ProcessResponse, len(processes))
	for i, p := range processes {
		out[i] = FromProcess(p)
	}
	return out
}

// StepResponse is the wire shape of one step row.
type StepResponse struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Status      string         `json:"status"`
	Payload     map[string]any `json:"payload,omitempty"`
	LockVersion int64          `json:"lock_version"`
	CompletedBy *string        `json:"completed_by,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// FromStep converts a step row.
func FromStep(row *step.Step) StepResponse {
	resp := StepResponse{
		ID:          row.ID.String(),
		Type:        string(row.Type),
		Status:      string(row.Status),
		Payload:     row.Payload,
		LockVersion: row.LockVersion,
		CompletedAt: row.CompletedAt,
	}
	if row.CompletedBy != nil {
		actor := row.CompletedBy.String()
		resp.CompletedBy = &actor
	}
	return resp
}

// FromSteps converts a step list.
func FromSteps(steps []*step.Step) []StepResponse {
	out := make([]StepResponse, len(steps))
	for i, s := range steps {
		out[i] = FromStep(s)
	}
	return out
}

// DocumentResponse is the wire shape of a document slot.
type DocumentResponse struct {
	ID           string                `json:"id"`
	TypeID       string                `json:"type_id"`
	TypeName     string                `json:"type_name"`
	Required     bool                  `json:"required"`
	Order        int                   `json:"order"`
	Status       string                `json:"status"`
	AlertFlagged bool                  `json:"alert_flagged"`
	File         *docmodels.FileRef    `json:"file,omitempty"`
	ReusedFrom   *string               `json:"reused_from,omitempty"`
	UploadedAt   *time.Time            `json:"uploaded_at,omitempty"`
	Reviews      []ReviewEntryResponse `json:"reviews,omitempty"`
}

// ReviewEntryResponse is one row of a document's review trail.
type ReviewEntryResponse struct {
	Decision   string    `json:"decision"`
	Note       string    `json:"note,omitempty"`
	ReviewedBy string    `json:"reviewed_by"`
	ReviewedAt time.Time `json:"reviewed_at"`
}

// FromDocument converts a document slot.
func FromDocument(doc *docmodels.Document) DocumentResponse {
	resp := DocumentResponse{
		ID:           doc.ID.String(),
		TypeID:       doc.TypeID.String(),
		TypeName:     doc.TypeName,
		Required:     doc.Required,
		Order:        doc.Order,
		Status:       string(doc.Status),
		AlertFlagged: doc.AlertFlagged,
		File:         doc.File,
		UploadedAt:   doc.UploadedAt,
	}
	if doc.ReusedFrom != nil {
		source := doc.ReusedFrom.String()
		resp.ReusedFrom = &source
	}
	for _, review := range doc.Reviews {
		resp.Reviews = append(resp.Reviews, ReviewEntryResponse{
			Decision:   string(review.Decision),
			Note:       review.Note,
			ReviewedBy: review.ReviewedBy.String(),
			ReviewedAt: review.ReviewedAt,
		})
	}
	return resp
}

// FromDocuments converts a document list.
func FromDocuments(docs []*docmodels.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = FromDocument(d)
	}
	return out
}

// AlertResponse is the wire shape of a process alert.
type AlertResponse struct {
	ID             string     `json:"id"`
	ProcessID      string     `json:"process_id"`
	DocumentID     string     `json:"document_id,omitempty"`
	Category       string     `json:"category"`
	Status         string     `json:"status"`
	Reason         string     `json:"reason"`
	RaisedBy       string     `json:"raised_by"`
	RaisedAt       time.Time  `json:"raised_at"`
	ResolvedBy     *string    `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolutionNote string     `json:"resolution_note,omitempty"`
}

// FromAlert converts an alert.
func FromAlert(a *alertmodels.Alert) AlertResponse {
	resp := AlertResponse{
		ID:             a.ID.String(),
		ProcessID:      a.ProcessID.String(),
		Category:       string(a.Category),
		Status:         string(a.Status),
		Reason:         a.Reason,
		RaisedBy:       a.RaisedBy.String(),
		RaisedAt:       a.RaisedAt,
		ResolvedAt:     a.ResolvedAt,
		ResolutionNote: a.ResolutionNote,
	}
	if a.DocumentID != nil {
		resp.DocumentID = a.DocumentID.String()
	}
	if a.ResolvedBy != nil {
		actor := a.ResolvedBy.String()
		resp.ResolvedBy = &actor
	}
	return resp
}

// FromAlerts converts an alert list.
func FromAlerts(alerts []*alertmodels.Alert) []AlertResponse {
	out := make([]AlertResponse, len(alerts))
	for i, a := range alerts {
		out[i] = FromAlert(a)
	}
	return out
}
