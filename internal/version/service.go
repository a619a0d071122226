package version

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"credentia/internal/event"
	profmodels "credentia/internal/professional/models"
	"credentia/internal/version/metrics"
	"credentia/internal/version/models"
	"credentia/internal/version/store"
	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
	"credentia/pkg/platform/sentinel"
	"credentia/pkg/platform/tx"
	"credentia/pkg/requestcontext"
)

// ProfessionalStore is the slice of the professional store the version
// service needs for the apply converge path.
type ProfessionalStore interface {
	FindByID(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*profmodels.Professional, error)
	UpdateSnapshot(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID, expectedVersion int64, snapshot profmodels.Snapshot) (*profmodels.Professional, error)
}

// Service stages, applies and rejects professional versions. Applying is the
// single write path to the live professional record: the snapshot converges
// onto the record under its record-version guard, so two concurrent applies
// can never interleave partial writes. Mutations run inside a tx.Runner so
// the converge and the version's status flip commit together.
type Service struct {
	store         store.Store
	professionals ProfessionalStore
	events        event.Publisher
	runner        tx.Runner
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithEventPublisher(publisher event.Publisher) Option {
	return func(s *Service) {
		s.events = publisher
	}
}

// WithRunner sets the transaction runner for stage, apply and reject.
func WithRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.runner = r
	}
}

func NewService(versions store.Store, professionals ProfessionalStore, opts ...Option) *Service {
	s := &Service{
		store:         versions,
		professionals: professionals,
		events:        event.NopPublisher{},
		runner:        tx.NopRunner{},
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StageInput carries everything needed to stage a new version.
type StageInput struct {
	ProfessionalID id.ProfessionalID
	Snapshot       profmodels.Snapshot
	SourceType     models.SourceType
	// SourceID names the originating aggregate for non-direct sources.
	SourceID string
}

// Stage records a new pending version for the professional. The diff against
// the current snapshot is computed and stored at stage time. DIRECT versions
// are applied before returning; all other sources stay PENDING until an
// explicit Apply or Reject.
func (s *Service) Stage(ctx context.Context, orgID id.OrgID, in StageInput) (*models.Version, error) {
	if !models.ValidSourceType(in.SourceType) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown source type: "+string(in.SourceType))
	}
	if in.SourceType != models.SourceDirect && in.SourceID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "source id is required for source type "+string(in.SourceType))
	}

	var version *models.Version
	var changes []models.Change
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		prof, err := s.professionals.FindByID(ctx, orgID, in.ProfessionalID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "professional not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load professional")
		}

		previous, err := s.baseline(ctx, orgID, in.ProfessionalID, prof)
		if err != nil {
			return err
		}
		changes = ComputeDiff(previous, in.Snapshot)

		number, err := s.store.NextNumber(ctx, orgID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate version number")
		}

		version = &models.Version{
			ID:             id.NewVersionID(),
			OrgID:          orgID,
			ProfessionalID: in.ProfessionalID,
			Number:         number,
			Snapshot:       in.Snapshot,
			SourceType:     in.SourceType,
			SourceID:       in.SourceID,
			Status:         models.StatusPending,
			CreatedBy:      requestcontext.ActorID(ctx),
			CreatedAt:      requestcontext.Now(ctx),
		}
		for i := range changes {
			changes[i].VersionID = version.ID
		}

		if err := s.store.Create(ctx, version, changes); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to stage version")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementStaged(string(in.SourceType))
	}
	s.logger.InfoContext(ctx, "version staged",
		"version_id", version.ID.String(),
		"professional_id", in.ProfessionalID.String(),
		"number", version.Number,
		"source_type", string(in.SourceType),
		"change_count", len(changes),
	)
	s.emit(ctx, orgID, version.ID, event.ActionVersionStaged, "")

	// Direct edits carry no review step; the staged version applies in the
	// same operation.
	if in.SourceType == models.SourceDirect {
		applied, err := s.Apply(ctx, orgID, version.ID)
		if err != nil {
			return nil, err
		}
		return applied, nil
	}
	return version, nil
}

// baseline picks the snapshot the diff is computed against: the current
// applied version when one exists, otherwise the live professional record.
func (s *Service) baseline(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID, prof *profmodels.Professional) (*profmodels.Snapshot, error) {
	current, err := s.store.Current(ctx, orgID, professionalID)
	switch {
	case err == nil:
		return &current.Snapshot, nil
	case errors.Is(err, sentinel.ErrNotFound):
		snapshot := prof.ToSnapshot()
		return &snapshot, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current version")
	}
}

// Apply converges the version's snapshot onto the live professional record
// and marks the version current. A version can be applied exactly once;
// concurrent applies for the same professional are serialized by the
// professional's record version.
func (s *Service) Apply(ctx context.Context, orgID id.OrgID, versionID id.VersionID) (*models.Version, error) {
	start := time.Now()

	var version *models.Version
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		version, err = s.findVersion(ctx, orgID, versionID)
		if err != nil {
			return err
		}
		if !version.IsPending() {
			return dErrors.New(dErrors.CodeConflict, "version is not pending: "+string(version.Status))
		}
		if err := version.Snapshot.ValidateRequired(); err != nil {
			return err
		}

		prof, err := s.professionals.FindByID(ctx, orgID, version.ProfessionalID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "professional not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load professional")
		}

		if _, err := s.professionals.UpdateSnapshot(ctx, orgID, version.ProfessionalID, prof.RecordVersion, version.Snapshot); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				if s.metrics != nil {
					s.metrics.IncrementApplyConflict()
				}
				return dErrors.New(dErrors.CodeConflict, "professional record changed concurrently, retry the apply")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to converge professional record")
		}

		now := requestcontext.Now(ctx)
		actor := requestcontext.ActorID(ctx)
		if err := s.store.MarkApplied(ctx, orgID, versionID, actor, now); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "version was applied or rejected concurrently")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark version applied")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementApplied()
		s.metrics.ObserveApply(start)
	}
	s.logger.InfoContext(ctx, "version applied",
		"version_id", versionID.String(),
		"professional_id", version.ProfessionalID.String(),
		"number", version.Number,
	)
	s.emit(ctx, orgID, versionID, event.ActionVersionApplied, "")

	return s.findVersion(ctx, orgID, versionID)
}

// Reject closes a pending version without touching the live record.
func (s *Service) Reject(ctx context.Context, orgID id.OrgID, versionID id.VersionID, reason string) (*models.Version, error) {
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "reject reason must not be empty")
	}

	var version *models.Version
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		version, err = s.findVersion(ctx, orgID, versionID)
		if err != nil {
			return err
		}
		if !version.IsPending() {
			return dErrors.New(dErrors.CodeConflict, "version is not pending: "+string(version.Status))
		}

		now := requestcontext.Now(ctx)
		actor := requestcontext.ActorID(ctx)
		if err := s.store.MarkRejected(ctx, orgID, versionID, actor, now, reason); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "version was applied or rejected concurrently")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark version rejected")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementRejected()
	}
	s.logger.InfoContext(ctx, "version rejected",
		"version_id", versionID.String(),
		"professional_id", version.ProfessionalID.String(),
		"reason", reason,
	)
	s.emit(ctx, orgID, versionID, event.ActionVersionRejected, reason)

	return s.findVersion(ctx, orgID, versionID)
}

// Get returns one version.
func (s *Service) Get(ctx context.Context, orgID id.OrgID, versionID id.VersionID) (*models.Version, error) {
	return s.findVersion(ctx, orgID, versionID)
}

// ListByProfessional returns the professional's version history, newest first.
func (s *Service) ListByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Version, error) {
	versions, err := s.store.ListByProfessional(ctx, orgID, professionalID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list versions")
	}
	return versions, nil
}

// ListChanges returns the diff rows recorded when the version was staged.
func (s *Service) ListChanges(ctx context.Context, orgID id.OrgID, versionID id.VersionID) ([]models.Change, error) {
	if _, err := s.findVersion(ctx, orgID, versionID); err != nil {
		return nil, err
	}
	changes, err := s.store.ListChanges(ctx, orgID, versionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list version changes")
	}
	return changes, nil
}

// Current returns the version the live record reflects, or NotFound when
// nothing has been applied yet.
func (s *Service) Current(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Version, error) {
	current, err := s.store.Current(ctx, orgID, professionalID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no version has been applied for this professional")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load current version")
	}
	return current, nil
}

func (s *Service) findVersion(ctx context.Context, orgID id.OrgID, versionID id.VersionID) (*models.Version, error) {
	version, err := s.store.FindByID(ctx, orgID, versionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "version not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load version")
	}
	return version, nil
}

func (s *Service) emit(ctx context.Context, orgID id.OrgID, versionID id.VersionID, action event.Action, reason string) {
	_ = s.events.Emit(ctx, event.Event{
		OrgID:   orgID,
		ActorID: requestcontext.ActorID(ctx),
		Subject: "version:" + versionID.String(),
		Action:  action,
		Reason:  reason,
	})
}
