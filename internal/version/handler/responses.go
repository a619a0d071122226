package handler

import (
	"time"

	profmodels "credentia/internal/professional/models"
	"credentia/internal/version/models"
)

// VersionResponse is the HTTP representation of a staged version.
type VersionResponse struct {
	ID             string              `json:"id"`
	ProfessionalID string              `json:"professional_id"`
	Number         int64               `json:"number"`
	Snapshot       profmodels.Snapshot `json:"snapshot"`
	SourceType     string              `json:"source_type"`
	SourceID       string              `json:"source_id,omitempty"`
	Status         string              `json:"status"`
	IsCurrent      bool                `json:"is_current"`
	CreatedAt      time.Time           `json:"created_at"`
	AppliedAt      *time.Time          `json:"applied_at,omitempty"`
	RejectedAt     *time.Time          `json:"rejected_at,omitempty"`
	RejectReason   string              `json:"reject_reason,omitempty"`
}

// FromVersion converts a domain version to its HTTP representation.
func FromVersion(v *models.Version) *VersionResponse {
	return &VersionResponse{
		ID:             v.ID.String(),
		ProfessionalID: v.ProfessionalID.String(),
		Number:         v.Number,
		Snapshot:       v.Snapshot,
		SourceType:     string(v.SourceType),
		SourceID:       v.SourceID,
		Status:         string(v.Status),
		IsCurrent:      v.IsCurrent,
		CreatedAt:      v.CreatedAt,
		AppliedAt:      v.AppliedAt,
		RejectedAt:     v.RejectedAt,
		RejectReason:   v.RejectReason,
	}
}

// ChangeResponse is one diff row of a version.
type ChangeResponse struct {
	FieldPath string `json:"field_path"`
	Type      string `json:"type"`
	OldValue  string `json:"old_value,omitempty"`
	NewValue  string `json:"new_value,omitempty"`
}

// FromChanges converts diff rows to their HTTP representation.
func FromChanges(changes []models.Change) []ChangeResponse {
	result := make([]ChangeResponse, 0, len(changes))
	for _, change := range changes {
		result = append(result, ChangeResponse{
			FieldPath: change.FieldPath,
			Type:      string(change.Type),
			OldValue:  change.OldValue,
			NewValue:  change.NewValue,
		})
	}
	return result
}

// ListResponse wraps a version history.
type ListResponse struct {
	Versions []*VersionResponse `json:"versions"`
}

// FromVersions converts a version history to its HTTP representation.
func FromVersions(versions []*models.Version) *ListResponse {
	result := &ListResponse{Versions: make([]*VersionResponse, 0, len(versions))}
	for _, v := range versions {
		result.Versions = append(result.Versions, FromVersion(v))
	}
	return result
}
