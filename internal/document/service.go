// Package document tracks the per-process document requirements: which
// document types a process demands, what has been uploaded, and what the
// reviewers decided. Process-level consequences of a review (sending the
// process back, raising an alert) belong to the screening orchestrator.
package document

import (
	"context"
	"errors"
	"log/slog"

	"credentia/internal/document/metrics"
	"credentia/internal/document/models"
	"credentia/internal/document/store"
	"credentia/internal/event"
	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
	"credentia/pkg/platform/sentinel"
	"credentia/pkg/requestcontext"
)

// TypeConfig is one document type demanded by a process. Order fixes the
// position the slot is presented at.
type TypeConfig struct {
	TypeID   id.DocumentTypeID
	TypeName string
	Required bool
	Order    int
}

// Service manages document slots and their review trail.
type Service struct {
	store   store.Store
	events  event.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEventPublisher(publisher event.Publisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(documents store.Store, opts ...Option) *Service {
	s := &Service{
		store:  documents,
		events: event.NopPublisher{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Configure creates the document slots a process demands. Each type may
// appear at most once per process.
func (s *Service) Configure(ctx context.Context, orgID id.OrgID, processID id.ProcessID, professionalID id.ProfessionalID, types []TypeConfig) ([]*models.Document, error) {
	if len(types) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "a process must demand at least one document type")
	}
	seen := make(map[id.DocumentTypeID]struct{}, len(types))
	for _, cfg := range types {
		if _, dup := seen[cfg.TypeID]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate document type: "+cfg.TypeName)
		}
		seen[cfg.TypeID] = struct{}{}
	}

	documents := make([]*models.Document, 0, len(types))
	for _, cfg := range types {
		documents = append(documents, &models.Document{
			ID:             id.NewDocumentID(),
			OrgID:          orgID,
			ProcessID:      processID,
			ProfessionalID: professionalID,
			TypeID:         cfg.TypeID,
			TypeName:       cfg.TypeName,
			Required:       cfg.Required,
			Order:          cfg.Order,
			Status:         models.StatusPendingUpload,
		})
	}
	if err := s.store.CreateAll(ctx, documents); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to configure document slots")
	}
	return documents, nil
}

// Get returns one document slot with its review trail.
func (s *Service) Get(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) (*models.Document, error) {
	return s.find(ctx, orgID, documentID)
}

// ListByProcess returns the process's document slots.
func (s *Service) ListByProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*models.Document, error) {
	documents, err := s.store.ListByProcess(ctx, orgID, processID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list document slots")
	}
	return documents, nil
}

// Counts recomputes the per-status projection for the process.
func (s *Service) Counts(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (models.Counts, error) {
	documents, err := s.ListByProcess(ctx, orgID, processID)
	if err != nil {
		return models.Counts{}, err
	}
	return models.ComputeCounts(documents), nil
}

// Upload attaches a file to a slot awaiting one. Re-upload after a
// correction request is the same operation; earlier review entries stay.
func (s *Service) Upload(ctx context.Context, orgID id.OrgID, documentID id.DocumentID, file models.FileRef) (*models.Document, error) {
	if file.URL == "" || file.Name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "file url and name are required")
	}

	doc, err := s.find(ctx, orgID, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.Uploadable() {
		return nil, dErrors.New(dErrors.CodeConflict, "document does not accept an upload in status "+string(doc.Status))
	}

	actor := requestcontext.ActorID(ctx)
	now := requestcontext.Now(ctx)
	doc.File = &file
	doc.Status = models.StatusPendingReview
	doc.UploadedBy = &actor
	doc.UploadedAt = &now

	if err := s.store.Update(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store upload")
	}

	if s.metrics != nil {
		s.metrics.IncrementUploaded()
	}
	s.logger.InfoContext(ctx, "document uploaded",
		"document_id", doc.ID.String(),
		"process_id", doc.ProcessID.String(),
		"type", doc.TypeName,
	)
	_ = s.events.Emit(ctx, event.Event{
		OrgID:   orgID,
		ActorID: actor,
		Subject: "process:" + doc.ProcessID.String(),
		Action:  event.ActionDocumentUploaded,
	})
	return doc, nil
}

// Reuse satisfies a slot with an approved file of the same type from an
// earlier process. With no explicit source the professional's most recent
// approved document is picked. Flagged documents never qualify.
func (s *Service) Reuse(ctx context.Context, orgID id.OrgID, documentID id.DocumentID, sourceID *id.DocumentID) (*models.Document, error) {
	doc, err := s.find(ctx, orgID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != models.StatusPendingUpload {
		return nil, dErrors.New(dErrors.CodeConflict, "only a slot awaiting upload can be satisfied by reuse")
	}

	var source *models.Document
	if sourceID != nil {
		source, err = s.findSource(ctx, orgID, doc, *sourceID)
		if err != nil {
			return nil, err
		}
	} else {
		source, err = s.store.FindReusableSource(ctx, orgID, doc.ProfessionalID, doc.TypeID, doc.ProcessID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeNotFound, "no approved document of this type is available for reuse")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query reusable documents")
		}
	}

	from := source.ID
	doc.File = source.File
	doc.ReusedFrom = &from
	doc.Status = models.StatusReused

	if err := s.store.Update(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store reuse")
	}

	if s.metrics != nil {
		s.metrics.IncrementReused()
	}
	s.logger.InfoContext(ctx, "document reused",
		"document_id", doc.ID.String(),
		"source_document_id", from.String(),
		"type", doc.TypeName,
	)
	return doc, nil
}

// findSource loads an explicitly named reuse source and checks it can back
// the slot: same professional and type, an earlier process, approved and
// never flagged.
func (s *Service) findSource(ctx context.Context, orgID id.OrgID, doc *models.Document, sourceID id.DocumentID) (*models.Document, error) {
	source, err := s.store.FindByID(ctx, orgID, sourceID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "source document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load source document")
	}
	if source.ProcessID == doc.ProcessID {
		return nil, dErrors.New(dErrors.CodeValidation, "source must come from an earlier process")
	}
	if source.ProfessionalID != doc.ProfessionalID {
		return nil, dErrors.New(dErrors.CodeValidation, "source belongs to a different professional")
	}
	if source.TypeID != doc.TypeID {
		return nil, dErrors.New(dErrors.CodeValidation, "source is a different document type")
	}
	if source.Status != models.StatusApproved || source.AlertFlagged {
		return nil, dErrors.New(dErrors.CodeValidation, "source document is not approved")
	}
	return source, nil
}

// ApplyReview records a reviewer's verdict on an uploaded document and moves
// the slot accordingly. An ALERT verdict keeps the file but flags the
// document; the caller raises the process-level alert.
func (s *Service) ApplyReview(ctx context.Context, orgID id.OrgID, documentID id.DocumentID, decision models.Decision, note string) (*models.Document, error) {
	if !models.ValidDecision(decision) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown review decision: "+string(decision))
	}
	if decision != models.DecisionApprove && note == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "a note is required for "+string(decision)+" decisions")
	}

	doc, err := s.find(ctx, orgID, documentID)
	if err != nil {
		return nil, err
	}
	switch {
	case doc.Status == models.StatusPendingReview:
	case doc.Status == models.StatusApproved && decision != models.DecisionApprove:
		// A settled document can still be pulled back for correction or
		// escalated; it cannot be approved twice.
	default:
		return nil, dErrors.New(dErrors.CodeConflict, "document is not awaiting review")
	}

	actor := requestcontext.ActorID(ctx)
	now := requestcontext.Now(ctx)
	doc.Reviews = append(doc.Reviews, models.ReviewEntry{
		Decision:   decision,
		Note:       note,
		ReviewedBy: actor,
		ReviewedAt: now,
	})

	switch decision {
	case models.DecisionApprove:
		doc.Status = models.StatusApproved
	case models.DecisionCorrection:
		doc.Status = models.StatusCorrectionNeeded
	case models.DecisionAlert:
		doc.Status = models.StatusApproved
		doc.AlertFlagged = true
	}

	if err := s.store.Update(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store review")
	}

	if s.metrics != nil {
		s.metrics.IncrementReviewed(string(decision))
	}
	s.logger.InfoContext(ctx, "document reviewed",
		"document_id", doc.ID.String(),
		"process_id", doc.ProcessID.String(),
		"decision", string(decision),
	)
	_ = s.events.Emit(ctx, event.Event{
		OrgID:   orgID,
		ActorID: actor,
		Subject: "process:" + doc.ProcessID.String(),
		Action:  event.ActionDocumentReviewed,
		Reason:  note,
	})
	return doc, nil
}

// Skip settles an optional slot without a file.
func (s *Service) Skip(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) (*models.Document, error) {
	doc, err := s.find(ctx, orgID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Required {
		return nil, dErrors.New(dErrors.CodeValidation, "required documents cannot be skipped")
	}
	if doc.Status != models.StatusPendingUpload {
		return nil, dErrors.New(dErrors.CodeConflict, "only a slot awaiting upload can be skipped")
	}

	doc.Status = models.StatusSkipped
	if err := s.store.Update(ctx, doc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store skip")
	}
	if s.metrics != nil {
		s.metrics.IncrementSkipped()
	}
	return doc, nil
}

func (s *Service) find(ctx context.Context, orgID id.OrgID, documentID id.DocumentID) (*models.Document, error) {
	doc, err := s.store.FindByID(ctx, orgID, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "document not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document")
	}
	return doc, nil
}
