// Package screening orchestrates the onboarding process for a healthcare
// professional: a configured sequence of steps, the document slots collected
// along the way, review alerts, and the staged profile version that applying
// the process converges onto the live record.
package screening

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"credentia/internal/alert"
	alertmodels "credentia/internal/alert/models"
	"credentia/internal/document"
	docmodels "credentia/internal/document/models"
	"credentia/internal/event"
	profmodels "credentia/internal/professional/models"
	"credentia/internal/refdata"
	"credentia/internal/screening/metrics"
	"credentia/internal/screening/models"
	"credentia/internal/screening/step"
	"credentia/internal/screening/store"
	"credentia/internal/version"
	versionmodels "credentia/internal/version/models"
	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
	"credentia/pkg/platform/sentinel"
	"credentia/pkg/platform/tx"
	"credentia/pkg/requestcontext"
)

// Outcomes a step completion may carry. Conversation steps decide whether the
// process proceeds at all; client validation relays the external verdict.
const (
	OutcomeProceed  = "PROCEED"
	OutcomeReject   = "REJECT"
	OutcomeApproved = "APPROVED"
	OutcomeRejected = "REJECTED"
)

// ProfessionalStore is the slice of the professional store the orchestrator
// needs: existence checks at creation and payment-data checks at completion.
type ProfessionalStore interface {
	FindByID(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*profmodels.Professional, error)
}

// Service coordinates processes, their steps, and the surrounding modules.
// Compound operations run inside a tx.Runner so a review decision and its
// process-side consequences commit together.
type Service struct {
	store         store.Store
	documents     *document.Service
	alerts        *alert.Service
	versions      *version.Service
	refdata       refdata.Store
	professionals ProfessionalStore
	events        event.Publisher
	runner        tx.Runner
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	now           func() time.Time
}

// Option configures optional service dependencies.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithEventPublisher sets the event publisher.
func WithEventPublisher(publisher event.Publisher) Option {
	return func(s *Service) { s.events = publisher }
}

// WithRunner sets the transaction runner for compound operations.
func WithRunner(r tx.Runner) Option {
	return func(s *Service) { s.runner = r }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a screening orchestrator.
func NewService(
	processes store.Store,
	documents *document.Service,
	alerts *alert.Service,
	versions *version.Service,
	reference refdata.Store,
	professionals ProfessionalStore,
	opts ...Option,
) *Service {
	s := &Service{
		store:         processes,
		documents:     documents,
		alerts:        alerts,
		versions:      versions,
		refdata:       reference,
		professionals: professionals,
		events:        event.NopPublisher{},
		runner:        tx.NopRunner{},
		logger:        slog.Default(),
		tracer:        otel.Tracer("credentia/screening"),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DocumentSelection names one catalog type the process collects. Required
// overrides the catalog default when set; Order fixes the slot's position.
type DocumentSelection struct {
	TypeID   id.DocumentTypeID
	Required *bool
	Order    int
}

// CreateInput carries the parameters for opening a new process.
type CreateInput struct {
	ProfessionalID id.ProfessionalID
	RequestedSteps []step.Type
	SupervisorID   *id.ActorID
	// Documents restricts the document upload step to the selected catalog
	// types. Empty means the whole active catalog.
	Documents []DocumentSelection
	// ExpiresAt overrides the org's default process TTL when set.
	ExpiresAt *time.Time
}

// Create opens a screening process for the professional. A professional may
// hold at most one non-terminal process per org; the supervisor review step
// can never be requested here, it activates only when a review alert demands
// it.
func (s *Service) Create(ctx context.Context, orgID id.OrgID, in CreateInput) (*models.Process, error) {
	ctx, span := s.tracer.Start(ctx, "screening.Create")
	defer span.End()

	if len(in.RequestedSteps) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "at least one step must be requested")
	}
	seen := make(map[step.Type]struct{}, len(in.RequestedSteps))
	for _, t := range in.RequestedSteps {
		if !step.ValidType(t) {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown step type: "+string(t))
		}
		if !t.Requestable() {
			return nil, dErrors.New(dErrors.CodeValidation, "step "+string(t)+" cannot be requested at creation")
		}
		if _, dup := seen[t]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, "duplicate step type: "+string(t))
		}
		seen[t] = struct{}{}
	}

	if _, err := s.professionals.FindByID(ctx, orgID, in.ProfessionalID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "professional not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load professional")
	}

	if _, err := s.store.FindActiveByProfessional(ctx, orgID, in.ProfessionalID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "professional already has an active screening process")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for active process")
	}

	settings, err := s.refdata.Settings(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "organization has no screening settings")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load org settings")
	}
	if _, requested := seen[step.TypeClientValidation]; requested && !settings.ClientValidationEnabled {
		return nil, dErrors.New(dErrors.CodeValidation, "client validation is not enabled for this organization")
	}

	now := s.now()
	expiresAt := in.ExpiresAt
	if expiresAt == nil && settings.ProcessTTL > 0 {
		deadline := now.Add(settings.ProcessTTL)
		expiresAt = &deadline
	}

	configured := make([]step.Type, len(in.RequestedSteps))
	copy(configured, in.RequestedSteps)
	steps := make([]*step.Step, len(configured))
	process := &models.Process{
		ID:              id.NewProcessID(),
		OrgID:           orgID,
		ProfessionalID:  in.ProfessionalID,
		SupervisorID:    in.SupervisorID,
		Status:          models.StatusInProgress,
		ConfiguredSteps: configured,
		ExpiresAt:       expiresAt,
		CreatedBy:       requestcontext.ActorID(ctx),
	}
	for i, t := range configured {
		steps[i] = &step.Step{
			ID:        id.NewStepID(),
			OrgID:     orgID,
			ProcessID: process.ID,
			Type:      t,
			Status:    step.StatusPending,
		}
	}
	step.SortSteps(steps)
	if current := step.CurrentStep(steps); current != nil {
		// The first step starts working the moment the process opens.
		current.Status = step.StatusInProgress
		process.CurrentStepType = &current.Type
	}
	process.StepInfo = models.BuildStepInfo(steps)

	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreateProcess(ctx, process, steps); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "professional already has an active screening process")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create process")
		}
		if process.HasConfiguredStep(step.TypeDocumentUpload) {
			configs, err := s.documentConfigs(ctx, orgID, in.Documents)
			if err != nil {
				return err
			}
			docs, err := s.documents.Configure(ctx, orgID, process.ID, in.ProfessionalID, configs)
			if err != nil {
				return err
			}
			process.DocumentCounts = docmodels.ComputeCounts(docs)
			if err := s.store.UpdateProcess(ctx, process); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record document counts")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "screening process created",
		"process_id", process.ID.String(),
		"professional_id", in.ProfessionalID.String(),
		"steps", len(configured),
	)
	s.emit(ctx, orgID, process.ID, event.ActionProcessCreated, "")
	return process, nil
}

// documentConfigs resolves the document slots a new process collects. An
// empty selection takes the whole active catalog in catalog order; an
// explicit selection must name active catalog types and may override the
// catalog's required flag.
func (s *Service) documentConfigs(ctx context.Context, orgID id.OrgID, selection []DocumentSelection) ([]document.TypeConfig, error) {
	types, err := s.refdata.ActiveDocumentTypes(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load document catalog")
	}

	if len(selection) == 0 {
		configs := make([]document.TypeConfig, len(types))
		for i, dt := range types {
			configs[i] = document.TypeConfig{TypeID: dt.ID, TypeName: dt.Name, Required: dt.Required, Order: i}
		}
		return configs, nil
	}

	catalog := make(map[id.DocumentTypeID]refdata.DocumentType, len(types))
	for _, dt := range types {
		catalog[dt.ID] = dt
	}
	configs := make([]document.TypeConfig, 0, len(selection))
	for _, sel := range selection {
		dt, ok := catalog[sel.TypeID]
		if !ok {
			return nil, dErrors.New(dErrors.CodeValidation, "document type is not in the active catalog: "+sel.TypeID.String())
		}
		required := dt.Required
		if sel.Required != nil {
			required = *sel.Required
		}
		configs = append(configs, document.TypeConfig{TypeID: dt.ID, TypeName: dt.Name, Required: required, Order: sel.Order})
	}
	return configs, nil
}

// Get returns a process by ID.
func (s *Service) Get(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error) {
	return s.findProcess(ctx, orgID, processID)
}

// ListByProfessional returns the professional's processes, newest first.
func (s *Service) ListByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Process, error) {
	processes, err := s.store.ListByProfessional(ctx, orgID, professionalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list processes")
	}
	return processes, nil
}

// Steps returns the process step rows in canonical order.
func (s *Service) Steps(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*step.Step, error) {
	if _, err := s.findProcess(ctx, orgID, processID); err != nil {
		return nil, err
	}
	steps, err := s.store.ListSteps(ctx, orgID, processID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list steps")
	}
	return steps, nil
}

// CompleteStepInput carries a step completion request. LockToken is the step
// lock version the caller last read; a stale token loses to the writer that
// got there first.
type CompleteStepInput struct {
	StepType  step.Type
	LockToken int64
	// Outcome is required for conversation and client validation steps.
	Outcome string
	// Reason accompanies a rejecting outcome.
	Reason string
	// Snapshot is required for the professional data step; it is staged as a
	// pending version, not written to the live record.
	Snapshot *profmodels.Snapshot
	// Payload is stored on the step row as-is.
	Payload map[string]any
}

// CompleteStep completes the process's current step. The step must be the
// current one, the process must carry no open alert, and the step variant's
// own completability rules must hold. Rejecting outcomes on conversation and
// client validation steps reject the whole process.
func (s *Service) CompleteStep(ctx context.Context, orgID id.OrgID, processID id.ProcessID, in CompleteStepInput) (*models.Process, error) {
	ctx, span := s.tracer.Start(ctx, "screening.CompleteStep")
	defer span.End()
	start := s.now()

	var process *models.Process
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		process, err = s.findProcess(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if process.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "process is already "+string(process.Status))
		}
		if process.IsExpired(s.now()) {
			return dErrors.New(dErrors.CodeConflict, "process has passed its expiry")
		}
		if process.CurrentStepType == nil || *process.CurrentStepType != in.StepType {
			return dErrors.New(dErrors.CodeValidation, "step "+string(in.StepType)+" is not the current step")
		}

		open, err := s.alerts.Open(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if open != nil {
			return dErrors.New(dErrors.CodeConflict, "process has an open review alert")
		}

		row, err := s.store.FindStep(ctx, orgID, processID, in.StepType)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "step not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load step")
		}
		if row.LockVersion != in.LockToken {
			if s.metrics != nil {
				s.metrics.IncrementLockConflict()
			}
			return dErrors.New(dErrors.CodeConflict, "step was modified concurrently, reload and retry")
		}

		rejecting, reason, err := s.checkCompletable(ctx, process, row, in)
		if err != nil {
			return err
		}

		actor := requestcontext.ActorID(ctx)
		now := s.now()
		target := step.StatusCompleted
		if rejecting {
			target = step.StatusRejected
		}
		if err := row.Transition(target); err != nil {
			return err
		}
		if in.Payload != nil {
			row.Payload = in.Payload
		}
		row.CompletedBy = &actor
		row.CompletedAt = &now
		if err := s.store.UpdateStep(ctx, row, in.LockToken); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				if s.metrics != nil {
					s.metrics.IncrementLockConflict()
				}
				return dErrors.New(dErrors.CodeConflict, "step was modified concurrently, reload and retry")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update step")
		}

		if rejecting {
			return s.finishProcess(ctx, process, models.StatusRejected, reason)
		}
		return s.refreshProcess(ctx, process)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementStepCompleted(string(in.StepType))
		s.metrics.ObserveComplete(string(in.StepType), start)
	}
	s.logger.InfoContext(ctx, "screening step completed",
		"process_id", processID.String(),
		"step_type", string(in.StepType),
		"outcome", in.Outcome,
	)
	s.emit(ctx, orgID, processID, event.ActionStepCompleted, string(in.StepType))
	return process, nil
}

// checkCompletable enforces the per-variant completability rules. It returns
// whether the outcome rejects the whole process, and the rejection reason.
func (s *Service) checkCompletable(ctx context.Context, process *models.Process, row *step.Step, in CompleteStepInput) (bool, string, error) {
	switch row.Type {
	case step.TypeConversation:
		switch in.Outcome {
		case OutcomeProceed:
			return false, "", nil
		case OutcomeReject:
			reason := in.Reason
			if reason == "" {
				reason = "rejected during initial conversation"
			}
			return true, reason, nil
		default:
			return false, "", dErrors.New(dErrors.CodeValidation, "conversation outcome must be PROCEED or REJECT")
		}

	case step.TypeProfessionalData:
		if in.Snapshot == nil {
			return false, "", dErrors.New(dErrors.CodeValidation, "professional data step requires a snapshot")
		}
		if err := in.Snapshot.ValidateRequired(); err != nil {
			return false, "", err
		}
		// A version staged by an earlier pass over this step is superseded
		// by the new snapshot and must never apply.
		if err := s.dropPendingVersion(ctx, process, "superseded by a newer snapshot"); err != nil {
			return false, "", err
		}
		staged, err := s.versions.Stage(ctx, process.OrgID, version.StageInput{
			ProfessionalID: process.ProfessionalID,
			Snapshot:       *in.Snapshot,
			SourceType:     versionmodels.SourceScreening,
			SourceID:       process.ID.String(),
		})
		if err != nil {
			return false, "", err
		}
		process.PendingVersionID = &staged.ID
		return false, "", nil

	case step.TypeDocumentUpload:
		docs, err := s.documents.ListByProcess(ctx, process.OrgID, process.ID)
		if err != nil {
			return false, "", err
		}
		if !docmodels.AllSettled(docs) {
			return false, "", dErrors.New(dErrors.CodeValidation, "required documents are not all settled")
		}
		return false, "", nil

	case step.TypeDocumentReview:
		counts, err := s.documents.Counts(ctx, process.OrgID, process.ID)
		if err != nil {
			return false, "", err
		}
		if counts.PendingReview > 0 {
			return false, "", dErrors.New(dErrors.CodeValidation, "documents are still awaiting review")
		}
		if counts.CorrectionNeeded > 0 {
			return false, "", dErrors.New(dErrors.CodeValidation, "documents are awaiting correction")
		}
		return false, "", nil

	case step.TypeSupervisorReview:
		return false, "", dErrors.New(dErrors.CodeValidation, "supervisor review completes by resolving its alert")

	case step.TypePaymentInfo:
		prof, err := s.professionals.FindByID(ctx, process.OrgID, process.ProfessionalID)
		if err != nil {
			return false, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load professional")
		}
		if len(prof.BankAccounts) == 0 {
			return false, "", dErrors.New(dErrors.CodeValidation, "professional has no bank account on file")
		}
		if prof.LegalEntity && (prof.CompanyTaxID == "" || prof.CompanyLinkRef == "") {
			return false, "", dErrors.New(dErrors.CodeValidation, "legal entity requires company and link references")
		}
		return false, "", nil

	case step.TypeClientValidation:
		switch in.Outcome {
		case OutcomeApproved:
			return false, "", nil
		case OutcomeRejected:
			reason := in.Reason
			if reason == "" {
				reason = "rejected by client validation"
			}
			return true, reason, nil
		default:
			return false, "", dErrors.New(dErrors.CodeValidation, "client validation outcome must be APPROVED or REJECTED")
		}
	}
	return false, "", dErrors.New(dErrors.CodeValidation, "unknown step type: "+string(row.Type))
}

// Approve closes the process as APPROVED. Every configured step must be
// settled and no alert may be open; when a pending version was staged it is
// applied to the live record as part of the approval.
func (s *Service) Approve(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error) {
	ctx, span := s.tracer.Start(ctx, "screening.Approve")
	defer span.End()

	var process *models.Process
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		process, err = s.findProcess(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if process.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "process is already "+string(process.Status))
		}

		open, err := s.alerts.Open(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if open != nil {
			return dErrors.New(dErrors.CodeConflict, "process has an open review alert")
		}

		steps, err := s.store.ListSteps(ctx, orgID, processID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list steps")
		}
		for _, row := range steps {
			if !row.Status.Settled() {
				return dErrors.New(dErrors.CodeValidation, "step "+string(row.Type)+" is not settled")
			}
		}

		if process.PendingVersionID != nil {
			if _, err := s.versions.Apply(ctx, orgID, *process.PendingVersionID); err != nil {
				return err
			}
			process.PendingVersionID = nil
		}
		for _, row := range steps {
			if row.Status != step.StatusCompleted {
				continue
			}
			if err := row.Transition(step.StatusApproved); err != nil {
				return err
			}
			if err := s.store.UpdateStep(ctx, row, row.LockVersion); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize step")
			}
		}
		return s.finishProcess(ctx, process, models.StatusApproved, "")
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "screening process approved", "process_id", processID.String())
	s.emit(ctx, orgID, processID, event.ActionProcessApproved, "")
	return process, nil
}

// Reject closes the process as REJECTED.
func (s *Service) Reject(ctx context.Context, orgID id.OrgID, processID id.ProcessID, reason string) (*models.Process, error) {
	return s.terminate(ctx, orgID, processID, models.StatusRejected, reason, event.ActionProcessRejected)
}

// Cancel closes the process as CANCELLED.
func (s *Service) Cancel(ctx context.Context, orgID id.OrgID, processID id.ProcessID, reason string) (*models.Process, error) {
	return s.terminate(ctx, orgID, processID, models.StatusCancelled, reason, event.ActionProcessCancelled)
}

func (s *Service) terminate(ctx context.Context, orgID id.OrgID, processID id.ProcessID, status models.Status, reason string, action event.Action) (*models.Process, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a reason is required")
	}

	var process *models.Process
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		process, err = s.findProcess(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if process.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "process is already "+string(process.Status))
		}
		return s.finishProcess(ctx, process, status, reason)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "screening process closed",
		"process_id", processID.String(),
		"status", string(status),
		"reason", reason,
	)
	s.emit(ctx, orgID, processID, action, reason)
	return process, nil
}

// GoBack moves the process back to a previously completed step. Every
// completed step from the target onward is reset to pending and must be
// completed again.
func (s *Service) GoBack(ctx context.Context, orgID id.OrgID, processID id.ProcessID, target step.Type) (*models.Process, error) {
	ctx, span := s.tracer.Start(ctx, "screening.GoBack")
	defer span.End()

	var process *models.Process
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		process, err = s.findProcess(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if process.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "process is already "+string(process.Status))
		}
		if !process.HasConfiguredStep(target) {
			return dErrors.New(dErrors.CodeValidation, "step "+string(target)+" is not part of this process")
		}
		if process.CurrentStepType != nil && !target.Before(*process.CurrentStepType) {
			return dErrors.New(dErrors.CodeValidation, "can only go back to an earlier step")
		}
		row, err := s.store.FindStep(ctx, orgID, processID, target)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load target step")
		}
		if row.Status != step.StatusCompleted {
			return dErrors.New(dErrors.CodeValidation, "step "+string(target)+" was not completed")
		}
		return s.resetFrom(ctx, process, target, step.StatusPending)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "screening process went back",
		"process_id", processID.String(),
		"target_step", string(target),
	)
	s.emit(ctx, orgID, processID, event.ActionProcessWentBack, string(target))
	return process, nil
}

// resetFrom reopens the target step with the given status, resets every
// later settled or active step back to pending and recomputes the process
// projections. When the reset reaches the professional data step its staged
// version is rejected so the old snapshot cannot apply later. Callers hold
// the transaction.
func (s *Service) resetFrom(ctx context.Context, process *models.Process, target step.Type, reopen step.Status) error {
	steps, err := s.store.ListSteps(ctx, process.OrgID, process.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list steps")
	}
	for _, row := range steps {
		if row.Type != target && !target.Before(row.Type) {
			continue
		}
		if row.Status != step.StatusCompleted && row.Status != step.StatusInProgress {
			continue
		}
		to := step.StatusPending
		if row.Type == target {
			to = reopen
		}
		if row.Status == to {
			continue
		}
		if err := row.Transition(to); err != nil {
			return err
		}
		row.CompletedBy = nil
		row.CompletedAt = nil
		if err := s.store.UpdateStep(ctx, row, row.LockVersion); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to reset step")
		}
	}
	if !step.TypeProfessionalData.Before(target) {
		if err := s.dropPendingVersion(ctx, process, "superseded by step reset"); err != nil {
			return err
		}
	}
	return s.refreshProcess(ctx, process)
}

// Expire transitions a process past its deadline to EXPIRED. The deadline
// check itself writes nothing; an external sweeper calls this explicitly.
func (s *Service) Expire(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error) {
	var process *models.Process
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		process, err = s.findProcess(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if process.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "process is already "+string(process.Status))
		}
		if !process.IsExpired(s.now()) {
			return dErrors.New(dErrors.CodeValidation, "process has not reached its expiry")
		}
		return s.finishProcess(ctx, process, models.StatusExpired, "process deadline passed")
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "screening process expired", "process_id", processID.String())
	s.emit(ctx, orgID, processID, event.ActionProcessExpired, "")
	return process, nil
}

// ExpireDue expires every process in the org whose deadline has passed. It
// returns how many were expired; individual failures are logged and skipped
// so one stuck process does not stall the sweep.
func (s *Service) ExpireDue(ctx context.Context, orgID id.OrgID) (int, error) {
	due, err := s.store.ListExpirable(ctx, orgID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expirable processes")
	}
	expired := 0
	for _, process := range due {
		if _, err := s.Expire(ctx, orgID, process.ID); err != nil {
			s.logger.ErrorContext(ctx, "failed to expire process",
				"process_id", process.ID.String(),
				"error", err,
			)
			continue
		}
		expired++
	}
	return expired, nil
}

// UploadDocument attaches a file to a document slot and refreshes the
// process projections.
func (s *Service) UploadDocument(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID id.DocumentID, file docmodels.FileRef) (*docmodels.Document, error) {
	var doc *docmodels.Document
	err := s.withOpenProcess(ctx, orgID, processID, func(ctx context.Context, process *models.Process) error {
		var err error
		doc, err = s.documents.Upload(ctx, orgID, documentID, file)
		if err != nil {
			return err
		}
		if doc.ProcessID != processID {
			return dErrors.New(dErrors.CodeValidation, "document does not belong to this process")
		}
		return s.refreshProcess(ctx, process)
	})
	return doc, err
}

// ReuseDocument fills a document slot from an earlier approved document of
// the same type and refreshes the process projections. Without an explicit
// source the professional's most recent approved document is used.
func (s *Service) ReuseDocument(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID id.DocumentID, sourceID *id.DocumentID) (*docmodels.Document, error) {
	var doc *docmodels.Document
	err := s.withOpenProcess(ctx, orgID, processID, func(ctx context.Context, process *models.Process) error {
		var err error
		doc, err = s.documents.Reuse(ctx, orgID, documentID, sourceID)
		if err != nil {
			return err
		}
		if doc.ProcessID != processID {
			return dErrors.New(dErrors.CodeValidation, "document does not belong to this process")
		}
		return s.refreshProcess(ctx, process)
	})
	return doc, err
}

// SkipDocument settles an optional document slot without a file. The org
// must allow optional skips.
func (s *Service) SkipDocument(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID id.DocumentID) (*docmodels.Document, error) {
	settings, err := s.refdata.Settings(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load org settings")
	}
	if !settings.AllowOptionalSkip {
		return nil, dErrors.New(dErrors.CodeValidation, "organization does not allow skipping optional documents")
	}

	var doc *docmodels.Document
	err = s.withOpenProcess(ctx, orgID, processID, func(ctx context.Context, process *models.Process) error {
		var err error
		doc, err = s.documents.Skip(ctx, orgID, documentID)
		if err != nil {
			return err
		}
		if doc.ProcessID != processID {
			return dErrors.New(dErrors.CodeValidation, "document does not belong to this process")
		}
		return s.refreshProcess(ctx, process)
	})
	return doc, err
}

// ReviewDocument records a review decision and applies its process-side
// consequences in the same transaction: a correction sends the process back
// to the upload step, an alert opens a review alert and activates the
// supervisor review step.
func (s *Service) ReviewDocument(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID id.DocumentID, decision docmodels.Decision, note string) (*docmodels.Document, error) {
	ctx, span := s.tracer.Start(ctx, "screening.ReviewDocument")
	defer span.End()

	var doc *docmodels.Document
	err := s.withOpenProcess(ctx, orgID, processID, func(ctx context.Context, process *models.Process) error {
		if !process.HasConfiguredStep(step.TypeDocumentUpload) {
			return dErrors.New(dErrors.CodeValidation, "process collects no documents")
		}

		var err error
		doc, err = s.documents.ApplyReview(ctx, orgID, documentID, decision, note)
		if err != nil {
			return err
		}
		if doc.ProcessID != processID {
			return dErrors.New(dErrors.CodeValidation, "document does not belong to this process")
		}

		switch decision {
		case docmodels.DecisionCorrection:
			if err := s.resetFrom(ctx, process, step.TypeDocumentUpload, step.StatusCorrectionNeeded); err != nil {
				return err
			}
			s.emit(ctx, orgID, processID, event.ActionProcessWentBack, string(step.TypeDocumentUpload))
			return nil
		case docmodels.DecisionAlert:
			if _, err := s.alerts.Raise(ctx, orgID, alert.RaiseInput{
				ProcessID:  processID,
				DocumentID: &documentID,
				Category:   alertmodels.CategoryDocument,
				Reason:     note,
			}); err != nil {
				return err
			}
			if s.metrics != nil {
				s.metrics.IncrementAlertRaised()
			}
			if err := s.activateSupervisorReview(ctx, process); err != nil {
				return err
			}
			return s.refreshProcess(ctx, process)
		default:
			return s.refreshProcess(ctx, process)
		}
	})
	return doc, err
}

// activateSupervisorReview adds the supervisor review step to the process if
// it is not already present.
func (s *Service) activateSupervisorReview(ctx context.Context, process *models.Process) error {
	present, err := s.store.HasStep(ctx, process.OrgID, process.ID, step.TypeSupervisorReview)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check supervisor review step")
	}
	if present {
		return nil
	}
	row := &step.Step{
		ID:        id.NewStepID(),
		OrgID:     process.OrgID,
		ProcessID: process.ID,
		Type:      step.TypeSupervisorReview,
		Status:    step.StatusPending,
	}
	if err := s.store.CreateStep(ctx, row); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create supervisor review step")
	}
	process.ConfiguredSteps = append(process.ConfiguredSteps, step.TypeSupervisorReview)
	s.emit(ctx, process.OrgID, process.ID, event.ActionSupervisorStepped, "")
	return nil
}

// ResolveAlert resolves an open review alert and completes the supervisor
// review step, both in one transaction.
func (s *Service) ResolveAlert(ctx context.Context, orgID id.OrgID, processID id.ProcessID, alertID id.AlertID, note string) (*models.Process, error) {
	ctx, span := s.tracer.Start(ctx, "screening.ResolveAlert")
	defer span.End()

	var process *models.Process
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		process, err = s.findProcess(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if process.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "process is already "+string(process.Status))
		}
		if _, err := s.alerts.Resolve(ctx, orgID, alertID, note); err != nil {
			return err
		}

		row, err := s.store.FindStep(ctx, orgID, processID, step.TypeSupervisorReview)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return s.refreshProcess(ctx, process)
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load supervisor review step")
		}
		if row.Status == step.StatusCompleted {
			return s.refreshProcess(ctx, process)
		}
		if err := row.Transition(step.StatusCompleted); err != nil {
			return err
		}
		actor := requestcontext.ActorID(ctx)
		now := s.now()
		row.CompletedBy = &actor
		row.CompletedAt = &now
		if err := s.store.UpdateStep(ctx, row, row.LockVersion); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete supervisor review step")
		}
		return s.refreshProcess(ctx, process)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review alert resolved",
		"process_id", processID.String(),
		"alert_id", alertID.String(),
	)
	return process, nil
}

// RejectViaAlert closes an open alert as rejecting and rejects the process,
// atomically. The alert's closure and the process's terminal status commit
// together or not at all.
func (s *Service) RejectViaAlert(ctx context.Context, orgID id.OrgID, processID id.ProcessID, alertID id.AlertID, reason string) (*models.Process, error) {
	ctx, span := s.tracer.Start(ctx, "screening.RejectViaAlert")
	defer span.End()

	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a reason is required")
	}

	var process *models.Process
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		process, err = s.findProcess(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if process.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "process is already "+string(process.Status))
		}
		if _, err := s.alerts.CloseRejecting(ctx, orgID, alertID, reason); err != nil {
			return err
		}
		return s.finishProcess(ctx, process, models.StatusRejected, reason)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "screening process rejected via alert",
		"process_id", processID.String(),
		"alert_id", alertID.String(),
	)
	s.emit(ctx, orgID, processID, event.ActionProcessRejected, reason)
	return process, nil
}

// RaiseAlert opens an alert directly against the process, for example when a
// screener spots a problem outside any single document review. A document
// alert may also name the document that prompted it. While the alert stays
// open the process cannot be approved.
func (s *Service) RaiseAlert(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID *id.DocumentID, category alertmodels.Category, reason string) (*alertmodels.Alert, error) {
	ctx, span := s.tracer.Start(ctx, "screening.RaiseAlert")
	defer span.End()

	var raised *alertmodels.Alert
	err := s.withOpenProcess(ctx, orgID, processID, func(ctx context.Context, process *models.Process) error {
		if documentID != nil {
			doc, err := s.documents.Get(ctx, orgID, *documentID)
			if err != nil {
				return err
			}
			if doc.ProcessID != processID {
				return dErrors.New(dErrors.CodeValidation, "document does not belong to this process")
			}
		}
		var err error
		raised, err = s.alerts.Raise(ctx, orgID, alert.RaiseInput{
			ProcessID:  processID,
			DocumentID: documentID,
			Category:   category,
			Reason:     reason,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementAlertRaised()
	}
	s.logger.InfoContext(ctx, "alert raised on process",
		"process_id", processID.String(),
		"category", string(category),
	)
	return raised, nil
}

// Alerts returns the process's alert history, oldest first.
func (s *Service) Alerts(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*alertmodels.Alert, error) {
	if _, err := s.findProcess(ctx, orgID, processID); err != nil {
		return nil, err
	}
	return s.alerts.ListByProcess(ctx, orgID, processID)
}

// withOpenProcess runs fn inside a transaction with the process loaded and
// verified non-terminal.
func (s *Service) withOpenProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID, fn func(context.Context, *models.Process) error) error {
	return s.runner.RunInTx(ctx, func(ctx context.Context) error {
		process, err := s.findProcess(ctx, orgID, processID)
		if err != nil {
			return err
		}
		if process.Terminal() {
			return dErrors.New(dErrors.CodeConflict, "process is already "+string(process.Status))
		}
		return fn(ctx, process)
	})
}

// finishProcess moves the process to a terminal status, rejecting any staged
// pending version so it cannot be applied later.
func (s *Service) finishProcess(ctx context.Context, process *models.Process, status models.Status, reason string) error {
	if status != models.StatusApproved {
		if err := s.dropPendingVersion(ctx, process, "screening process closed: "+string(status)); err != nil {
			return err
		}
	}

	steps, err := s.store.ListSteps(ctx, process.OrgID, process.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list steps")
	}
	process.Status = status
	process.Reason = reason
	process.CurrentStepType = nil
	process.StepInfo = models.BuildStepInfo(steps)
	now := s.now()
	process.CompletedAt = &now
	if err := s.store.UpdateProcess(ctx, process); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "process was modified concurrently")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update process")
	}
	if s.metrics != nil {
		s.metrics.IncrementFinished(string(status))
	}
	return nil
}

// dropPendingVersion rejects a staged-but-unapplied version so a stale
// snapshot can never reach the live record, then clears the reference. A
// version already settled concurrently is left as it is.
func (s *Service) dropPendingVersion(ctx context.Context, process *models.Process, reason string) error {
	if process.PendingVersionID == nil {
		return nil
	}
	if _, err := s.versions.Reject(ctx, process.OrgID, *process.PendingVersionID, reason); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeConflict) {
			return err
		}
	}
	process.PendingVersionID = nil
	return nil
}

// refreshProcess recomputes the process's cached projections from the step
// and document rows and persists them.
func (s *Service) refreshProcess(ctx context.Context, process *models.Process) error {
	steps, err := s.store.ListSteps(ctx, process.OrgID, process.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list steps")
	}
	if current := step.CurrentStep(steps); current != nil {
		// The step the process advanced to starts working immediately.
		if current.Status == step.StatusPending {
			if err := current.Transition(step.StatusInProgress); err != nil {
				return err
			}
			if err := s.store.UpdateStep(ctx, current, current.LockVersion); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate step")
			}
		}
		process.CurrentStepType = &current.Type
	} else {
		process.CurrentStepType = nil
	}
	process.StepInfo = models.BuildStepInfo(steps)
	if process.HasConfiguredStep(step.TypeDocumentUpload) {
		counts, err := s.documents.Counts(ctx, process.OrgID, process.ID)
		if err != nil {
			return err
		}
		process.DocumentCounts = counts
	}
	if err := s.store.UpdateProcess(ctx, process); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "process was modified concurrently")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update process")
	}
	return nil
}

func (s *Service) findProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error) {
	process, err := s.store.FindProcess(ctx, orgID, processID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "process not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load process")
	}
	return process, nil
}

func (s *Service) emit(ctx context.Context, orgID id.OrgID, processID id.ProcessID, action event.Action, reason string) {
	_ = s.events.Emit(ctx, event.Event{
		OrgID:   orgID,
		ActorID: requestcontext.ActorID(ctx),
		Subject: "process:" + processID.String(),
		Action:  action,
		Reason:  reason,
	})
}
