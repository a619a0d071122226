// Package alert manages escalated document findings. The screening
// orchestrator raises alerts from review decisions and consults the open
// alert before approving a process.
package alert

import (
	"context"
	"errors"
	"log/slog"

	"credentia/internal/alert/models"
	"credentia/internal/alert/store"
	"credentia/internal/event"
	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
	"credentia/pkg/platform/sentinel"
	"credentia/pkg/requestcontext"
)

// Service raises and closes alerts. A process carries at most one open alert;
// a second escalation while one is open is a conflict, not a queue.
type Service struct {
	store  store.Store
	events event.Publisher
	logger *slog.Logger
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

func NewService(alerts store.Store, opts ...Option) *Service {
	s := &Service{
		store:  alerts,
		events: event.NopPublisher{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RaiseInput describes the finding a new alert records. DocumentID is
// required for DOCUMENT alerts and must be absent for MANUAL ones.
type RaiseInput struct {
	ProcessID  id.ProcessID
	DocumentID *id.DocumentID
	Category   models.Category
	Reason     string
}

// Raise opens an alert for the process. Fails with a conflict when the
// process already has an open one.
func (s *Service) Raise(ctx context.Context, orgID id.OrgID, in RaiseInput) (*models.Alert, error) {
	if in.Reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "alert reason must not be empty")
	}
	if !models.ValidCategory(in.Category) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown alert category: "+string(in.Category))
	}
	if in.Category == models.CategoryDocument && in.DocumentID == nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "document alerts must reference a document")
	}
	if in.Category == models.CategoryManual && in.DocumentID != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "manual alerts must not reference a document")
	}

	raised := &models.Alert{
		ID:         id.NewAlertID(),
		OrgID:      orgID,
		ProcessID:  in.ProcessID,
		DocumentID: in.DocumentID,
		Category:   in.Category,
		Status:     models.StatusOpen,
		Reason:     in.Reason,
		RaisedBy:   requestcontext.ActorID(ctx),
		RaisedAt:   requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, raised); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "process already has an open alert")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to raise alert")
	}

	s.logger.InfoContext(ctx, "alert raised",
		"alert_id", raised.ID.String(),
		"process_id", in.ProcessID.String(),
		"category", string(in.Category),
	)
	_ = s.events.Emit(ctx, event.Event{
		OrgID:   orgID,
		ActorID: raised.RaisedBy,
		Subject: "process:" + in.ProcessID.String(),
		Action:  event.ActionAlertRaised,
		Reason:  in.Reason,
	})
	return raised, nil
}

// Resolve clears an open alert so the process can proceed.
func (s *Service) Resolve(ctx context.Context, orgID id.OrgID, alertID id.AlertID, note string) (*models.Alert, error) {
	return s.close(ctx, orgID, alertID, models.StatusResolved, note)
}

// CloseRejecting marks the alert as closed by process rejection. The caller
// owns the process state change; both run inside one transaction.
func (s *Service) CloseRejecting(ctx context.Context, orgID id.OrgID, alertID id.AlertID, note string) (*models.Alert, error) {
	return s.close(ctx, orgID, alertID, models.StatusRejecting, note)
}

func (s *Service) close(ctx context.Context, orgID id.OrgID, alertID id.AlertID, status models.Status, note string) (*models.Alert, error) {
	actor := requestcontext.ActorID(ctx)
	now := requestcontext.Now(ctx)
	if err := s.store.Close(ctx, orgID, alertID, status, actor, now, note); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "alert not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "alert is not open")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close alert")
		}
	}

	closed, err := s.store.FindByID(ctx, orgID, alertID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load alert")
	}

	s.logger.InfoContext(ctx, "alert closed",
		"alert_id", alertID.String(),
		"process_id", closed.ProcessID.String(),
		"status", string(status),
	)
	if status == models.StatusResolved {
		_ = s.events.Emit(ctx, event.Event{
			OrgID:   orgID,
			ActorID: actor,
			Subject: "process:" + closed.ProcessID.String(),
			Action:  event.ActionAlertResolved,
			Reason:  note,
		})
	}
	return closed, nil
}

// Open returns the process's open alert, or nil when there is none.
func (s *Service) Open(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Alert, error) {
	open, err := s.store.OpenByProcess(ctx, orgID, processID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query open alert")
	}
	return open, nil
}

// ListByProcess returns every alert raised on the process, oldest first.
func (s *Service) ListByProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*models.Alert, error) {
	alerts, err := s.store.ListByProcess(ctx, orgID, processID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list alerts")
	}
	return alerts, nil
}
