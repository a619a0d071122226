package handler

import (
	profmodels "credentia/internal/professional/models"
	"credentia/internal/version/models"
	dErrors "credentia/pkg/domain-errors"
)

// StageRequest is the HTTP request body for POST /professionals/{id}/versions.
type StageRequest struct {
	Snapshot   profmodels.Snapshot `json:"snapshot"`
	SourceType string              `json:"source_type"`
	SourceID   string              `json:"source_id,omitempty"`
}

// Validate checks the request shape; domain rules stay in the service.
func (r *StageRequest) Validate() error {
	if r.SourceType == "" {
		return dErrors.New(dErrors.CodeBadRequest, "source_type is required")
	}
	if !models.ValidSourceType(models.SourceType(r.SourceType)) {
		return dErrors.New(dErrors.CodeValidation, "unknown source_type: "+r.SourceType)
	}
	return nil
}

// RejectRequest is the HTTP request body for POST /versions/{id}/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

func (r *RejectRequest) Validate() error {
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeBadRequest, "reason is required")
	}
	return nil
}
