package version

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	profmodels "credentia/internal/professional/models"
	profstore "credentia/internal/professional/store"
	"credentia/internal/version/models"
	"credentia/internal/version/store"
	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
	"credentia/pkg/requestcontext"
)

type serviceFixture struct {
	service       *Service
	versions      *store.MemoryStore
	professionals *profstore.MemoryStore
	orgID         id.OrgID
	professional  *profmodels.Professional
	ctx           context.Context
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	orgID := id.NewOrgID()
	professionals := profstore.NewMemoryStore()
	versions := store.NewMemoryStore()

	prof := &profmodels.Professional{
		ID:             id.NewProfessionalID(),
		OrgID:          orgID,
		FullName:       "Dr. Ana Souza",
		DocumentNumber: "12345678900",
		Qualifications: []profmodels.Qualification{
			{ID: "q1", Profession: "physician", CouncilNumber: "111", CouncilState: "SP"},
		},
	}
	require.NoError(t, professionals.Create(context.Background(), prof))

	ctx := requestcontext.WithOrgID(context.Background(), orgID)
	ctx = requestcontext.WithActorID(ctx, id.NewActorID())

	return &serviceFixture{
		service:       NewService(versions, professionals),
		versions:      versions,
		professionals: professionals,
		orgID:         orgID,
		professional:  prof,
		ctx:           ctx,
	}
}

func (f *serviceFixture) snapshotWithCouncilNumber(number string) profmodels.Snapshot {
	snapshot := f.professional.ToSnapshot()
	snapshot.Qualifications = []profmodels.Qualification{
		{ID: "q1", Profession: "physician", CouncilNumber: number, CouncilState: "SP"},
	}
	return snapshot
}

func TestStage(t *testing.T) {
	t.Run("screening source stays pending with diff rows", func(t *testing.T) {
		f := newServiceFixture(t)

		staged, err := f.service.Stage(f.ctx, f.orgID, StageInput{
			ProfessionalID: f.professional.ID,
			Snapshot:       f.snapshotWithCouncilNumber("222"),
			SourceType:     models.SourceScreening,
			SourceID:       "process-1",
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, staged.Status)
		assert.Equal(t, int64(1), staged.Number)
		assert.False(t, staged.IsCurrent)

		changes, err := f.service.ListChanges(f.ctx, f.orgID, staged.ID)
		require.NoError(t, err)
		require.Len(t, changes, 1)
		assert.Equal(t, "qualifications[0].council_number", changes[0].FieldPath)
		assert.Equal(t, models.ChangeModified, changes[0].Type)
		assert.Equal(t, "111", changes[0].OldValue)
		assert.Equal(t, "222", changes[0].NewValue)

		// Pending versions never touch the live record.
		prof, err := f.professionals.FindByID(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		assert.Equal(t, "111", prof.Qualifications[0].CouncilNumber)
	})

	t.Run("direct source applies in the same call", func(t *testing.T) {
		f := newServiceFixture(t)

		applied, err := f.service.Stage(f.ctx, f.orgID, StageInput{
			ProfessionalID: f.professional.ID,
			Snapshot:       f.snapshotWithCouncilNumber("333"),
			SourceType:     models.SourceDirect,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusApplied, applied.Status)
		assert.True(t, applied.IsCurrent)
		require.NotNil(t, applied.AppliedAt)

		prof, err := f.professionals.FindByID(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		assert.Equal(t, "333", prof.Qualifications[0].CouncilNumber)
		assert.Equal(t, int64(2), prof.RecordVersion)
	})

	t.Run("numbers are strictly increasing per org", func(t *testing.T) {
		f := newServiceFixture(t)

		for expected := int64(1); expected <= 3; expected++ {
			staged, err := f.service.Stage(f.ctx, f.orgID, StageInput{
				ProfessionalID: f.professional.ID,
				Snapshot:       f.professional.ToSnapshot(),
				SourceType:     models.SourceAPI,
				SourceID:       "batch-1",
			})
			require.NoError(t, err)
			assert.Equal(t, expected, staged.Number)
		}
	})

	t.Run("unknown source type is rejected", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Stage(f.ctx, f.orgID, StageInput{
			ProfessionalID: f.professional.ID,
			Snapshot:       f.professional.ToSnapshot(),
			SourceType:     "MANUAL",
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("non-direct source requires a source id", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Stage(f.ctx, f.orgID, StageInput{
			ProfessionalID: f.professional.ID,
			Snapshot:       f.professional.ToSnapshot(),
			SourceType:     models.SourceScreening,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unknown professional is not found", func(t *testing.T) {
		f := newServiceFixture(t)

		_, err := f.service.Stage(f.ctx, f.orgID, StageInput{
			ProfessionalID: id.NewProfessionalID(),
			Snapshot:       f.professional.ToSnapshot(),
			SourceType:     models.SourceDirect,
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestApply(t *testing.T) {
	stage := func(t *testing.T, f *serviceFixture, snapshot profmodels.Snapshot) *models.Version {
		t.Helper()
		staged, err := f.service.Stage(f.ctx, f.orgID, StageInput{
			ProfessionalID: f.professional.ID,
			Snapshot:       snapshot,
			SourceType:     models.SourceScreening,
			SourceID:       "process-1",
		})
		require.NoError(t, err)
		return staged
	}

	t.Run("converges the live record and marks current", func(t *testing.T) {
		f := newServiceFixture(t)
		staged := stage(t, f, f.snapshotWithCouncilNumber("222"))

		applied, err := f.service.Apply(f.ctx, f.orgID, staged.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApplied, applied.Status)
		assert.True(t, applied.IsCurrent)

		prof, err := f.professionals.FindByID(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		assert.Equal(t, "222", prof.Qualifications[0].CouncilNumber)

		current, err := f.service.Current(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		assert.Equal(t, staged.ID, current.ID)
	})

	t.Run("a version applies exactly once", func(t *testing.T) {
		f := newServiceFixture(t)
		staged := stage(t, f, f.snapshotWithCouncilNumber("222"))

		_, err := f.service.Apply(f.ctx, f.orgID, staged.ID)
		require.NoError(t, err)

		_, err = f.service.Apply(f.ctx, f.orgID, staged.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("only one version holds current after successive applies", func(t *testing.T) {
		f := newServiceFixture(t)
		first := stage(t, f, f.snapshotWithCouncilNumber("222"))
		second := stage(t, f, f.snapshotWithCouncilNumber("333"))

		_, err := f.service.Apply(f.ctx, f.orgID, first.ID)
		require.NoError(t, err)
		_, err = f.service.Apply(f.ctx, f.orgID, second.ID)
		require.NoError(t, err)

		history, err := f.service.ListByProfessional(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		var currentCount int
		for _, v := range history {
			if v.IsCurrent {
				currentCount++
				assert.Equal(t, second.ID, v.ID)
			}
		}
		assert.Equal(t, 1, currentCount)
	})

	t.Run("incomplete snapshot fails validation", func(t *testing.T) {
		f := newServiceFixture(t)
		snapshot := f.professional.ToSnapshot()
		snapshot.Qualifications = nil
		staged := stage(t, f, snapshot)

		_, err := f.service.Apply(f.ctx, f.orgID, staged.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("rejected version cannot be applied", func(t *testing.T) {
		f := newServiceFixture(t)
		staged := stage(t, f, f.snapshotWithCouncilNumber("222"))

		_, err := f.service.Reject(f.ctx, f.orgID, staged.ID, "data did not match council records")
		require.NoError(t, err)

		_, err = f.service.Apply(f.ctx, f.orgID, staged.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestReject(t *testing.T) {
	t.Run("stamps reason and actor", func(t *testing.T) {
		f := newServiceFixture(t)
		staged, err := f.service.Stage(f.ctx, f.orgID, StageInput{
			ProfessionalID: f.professional.ID,
			Snapshot:       f.snapshotWithCouncilNumber("222"),
			SourceType:     models.SourceImport,
			SourceID:       "batch-7",
		})
		require.NoError(t, err)

		rejected, err := f.service.Reject(f.ctx, f.orgID, staged.ID, "import mapping error")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, rejected.Status)
		assert.Equal(t, "import mapping error", rejected.RejectReason)
		require.NotNil(t, rejected.RejectedAt)
		require.NotNil(t, rejected.RejectedBy)

		// The live record is untouched.
		prof, err := f.professionals.FindByID(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		assert.Equal(t, "111", prof.Qualifications[0].CouncilNumber)
	})

	t.Run("requires a reason", func(t *testing.T) {
		f := newServiceFixture(t)
		staged, err := f.service.Stage(f.ctx, f.orgID, StageInput{
			ProfessionalID: f.professional.ID,
			Snapshot:       f.professional.ToSnapshot(),
			SourceType:     models.SourceAPI,
			SourceID:       "batch-1",
		})
		require.NoError(t, err)

		_, err = f.service.Reject(f.ctx, f.orgID, staged.ID, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

type countingRunner struct {
	calls int
}

func (r *countingRunner) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	r.calls++
	return fn(ctx)
}

func TestServiceRunsMutationsInTransaction(t *testing.T) {
	f := newServiceFixture(t)
	runner := &countingRunner{}
	f.service = NewService(f.versions, f.professionals, WithRunner(runner))

	staged, err := f.service.Stage(f.ctx, f.orgID, StageInput{
		ProfessionalID: f.professional.ID,
		Snapshot:       f.snapshotWithCouncilNumber("222"),
		SourceType:     models.SourceScreening,
		SourceID:       "process-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, runner.calls)

	_, err = f.service.Apply(f.ctx, f.orgID, staged.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, runner.calls)

	second, err := f.service.Stage(f.ctx, f.orgID, StageInput{
		ProfessionalID: f.professional.ID,
		Snapshot:       f.snapshotWithCouncilNumber("333"),
		SourceType:     models.SourceScreening,
		SourceID:       "process-1",
	})
	require.NoError(t, err)

	_, err = f.service.Reject(f.ctx, f.orgID, second.ID, "stale data")
	require.NoError(t, err)
	assert.Equal(t, 4, runner.calls)
}

func TestCurrent(t *testing.T) {
	t.Run("not found before the first apply", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.service.Current(f.ctx, f.orgID, f.professional.ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
