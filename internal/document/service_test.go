package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credentia/internal/document/models"
	"credentia/internal/document/store"
	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
	"credentia/pkg/requestcontext"
)

type documentFixture struct {
	service        *Service
	ctx            context.Context
	orgID          id.OrgID
	processID      id.ProcessID
	professionalID id.ProfessionalID
	diplomaType    id.DocumentTypeID
	proofType      id.DocumentTypeID
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()
	orgID := id.NewOrgID()
	ctx := requestcontext.WithOrgID(context.Background(), orgID)
	ctx = requestcontext.WithActorID(ctx, id.NewActorID())
	return &documentFixture{
		service:        NewService(store.NewMemoryStore()),
		ctx:            ctx,
		orgID:          orgID,
		processID:      id.NewProcessID(),
		professionalID: id.NewProfessionalID(),
		diplomaType:    id.NewDocumentTypeID(),
		proofType:      id.NewDocumentTypeID(),
	}
}

func (f *documentFixture) configure(t *testing.T) []*models.Document {
	t.Helper()
	documents, err := f.service.Configure(f.ctx, f.orgID, f.processID, f.professionalID, []TypeConfig{
		{TypeID: f.diplomaType, TypeName: "medical diploma", Required: true, Order: 0},
		{TypeID: f.proofType, TypeName: "proof of address", Required: false, Order: 1},
	})
	require.NoError(t, err)
	require.Len(t, documents, 2)
	return documents
}

func sampleFile() models.FileRef {
	return models.FileRef{URL: "s3://uploads/diploma.pdf", Name: "diploma.pdf", Size: 1024, MIME: "application/pdf"}
}

func TestConfigure(t *testing.T) {
	t.Run("creates one pending slot per type", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)
		for _, doc := range documents {
			assert.Equal(t, models.StatusPendingUpload, doc.Status)
		}

		counts, err := f.service.Counts(f.ctx, f.orgID, f.processID)
		require.NoError(t, err)
		assert.Equal(t, 2, counts.Total)
		assert.Equal(t, 1, counts.Required)
		assert.Equal(t, 2, counts.PendingUpload)
	})

	t.Run("slots list in the configured order", func(t *testing.T) {
		f := newDocumentFixture(t)
		_, err := f.service.Configure(f.ctx, f.orgID, f.processID, f.professionalID, []TypeConfig{
			{TypeID: f.proofType, TypeName: "proof of address", Required: false, Order: 1},
			{TypeID: f.diplomaType, TypeName: "medical diploma", Required: true, Order: 0},
		})
		require.NoError(t, err)

		list, err := f.service.ListByProcess(f.ctx, f.orgID, f.processID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "medical diploma", list[0].TypeName)
		assert.Equal(t, "proof of address", list[1].TypeName)
	})

	t.Run("duplicate type fails validation", func(t *testing.T) {
		f := newDocumentFixture(t)
		_, err := f.service.Configure(f.ctx, f.orgID, f.processID, f.professionalID, []TypeConfig{
			{TypeID: f.diplomaType, TypeName: "medical diploma", Required: true},
			{TypeID: f.diplomaType, TypeName: "medical diploma", Required: false},
		})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("empty configuration fails validation", func(t *testing.T) {
		f := newDocumentFixture(t)
		_, err := f.service.Configure(f.ctx, f.orgID, f.processID, f.professionalID, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestUpload(t *testing.T) {
	t.Run("moves the slot to pending review", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)

		uploaded, err := f.service.Upload(f.ctx, f.orgID, documents[0].ID, sampleFile())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingReview, uploaded.Status)
		require.NotNil(t, uploaded.File)
		require.NotNil(t, uploaded.UploadedAt)
	})

	t.Run("upload onto a reviewed slot conflicts", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)
		_, err := f.service.Upload(f.ctx, f.orgID, documents[0].ID, sampleFile())
		require.NoError(t, err)
		_, err = f.service.ApplyReview(f.ctx, f.orgID, documents[0].ID, models.DecisionApprove, "")
		require.NoError(t, err)

		_, err = f.service.Upload(f.ctx, f.orgID, documents[0].ID, sampleFile())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("re-upload after correction keeps the trail", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)
		_, err := f.service.Upload(f.ctx, f.orgID, documents[0].ID, sampleFile())
		require.NoError(t, err)
		_, err = f.service.ApplyReview(f.ctx, f.orgID, documents[0].ID, models.DecisionCorrection, "scan is illegible")
		require.NoError(t, err)

		uploaded, err := f.service.Upload(f.ctx, f.orgID, documents[0].ID, sampleFile())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPendingReview, uploaded.Status)
		require.Len(t, uploaded.Reviews, 1)
		assert.Equal(t, models.DecisionCorrection, uploaded.Reviews[0].Decision)
	})
}

func TestApplyReview(t *testing.T) {
	upload := func(t *testing.T, f *documentFixture, documentID id.DocumentID) {
		t.Helper()
		_, err := f.service.Upload(f.ctx, f.orgID, documentID, sampleFile())
		require.NoError(t, err)
	}

	t.Run("approve settles the slot", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)
		upload(t, f, documents[0].ID)

		reviewed, err := f.service.ApplyReview(f.ctx, f.orgID, documents[0].ID, models.DecisionApprove, "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, reviewed.Status)
		assert.True(t, reviewed.Settled())
	})

	t.Run("alert keeps the file but flags the document", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)
		upload(t, f, documents[0].ID)

		reviewed, err := f.service.ApplyReview(f.ctx, f.orgID, documents[0].ID, models.DecisionAlert, "council number mismatch")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, reviewed.Status)
		assert.True(t, reviewed.AlertFlagged)

		counts, err := f.service.Counts(f.ctx, f.orgID, f.processID)
		require.NoError(t, err)
		assert.Equal(t, 1, counts.Alerted)
	})

	t.Run("non-approve decisions require a note", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)
		upload(t, f, documents[0].ID)

		_, err := f.service.ApplyReview(f.ctx, f.orgID, documents[0].ID, models.DecisionCorrection, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("reviewing a slot without an upload conflicts", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)

		_, err := f.service.ApplyReview(f.ctx, f.orgID, documents[0].ID, models.DecisionApprove, "")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestReuse(t *testing.T) {
	uploadInOtherProcess := func(t *testing.T, f *documentFixture, decision models.Decision, note string) id.DocumentID {
		t.Helper()
		otherProcess := id.NewProcessID()
		documents, err := f.service.Configure(f.ctx, f.orgID, otherProcess, f.professionalID, []TypeConfig{
			{TypeID: f.diplomaType, TypeName: "medical diploma", Required: true},
		})
		require.NoError(t, err)
		_, err = f.service.Upload(f.ctx, f.orgID, documents[0].ID, sampleFile())
		require.NoError(t, err)
		if decision != "" {
			_, err = f.service.ApplyReview(f.ctx, f.orgID, documents[0].ID, decision, note)
			require.NoError(t, err)
		}
		return documents[0].ID
	}

	t.Run("copies the approved file from an earlier process", func(t *testing.T) {
		f := newDocumentFixture(t)
		uploadInOtherProcess(t, f, models.DecisionApprove, "")
		documents := f.configure(t)

		reused, err := f.service.Reuse(f.ctx, f.orgID, documents[0].ID, nil)
		require.NoError(t, err)
		assert.Equal(t, models.StatusReused, reused.Status)
		require.NotNil(t, reused.ReusedFrom)
		require.NotNil(t, reused.File)
		assert.True(t, reused.Settled())
	})

	t.Run("an explicit source is honored", func(t *testing.T) {
		f := newDocumentFixture(t)
		sourceID := uploadInOtherProcess(t, f, models.DecisionApprove, "")
		documents := f.configure(t)

		reused, err := f.service.Reuse(f.ctx, f.orgID, documents[0].ID, &sourceID)
		require.NoError(t, err)
		require.NotNil(t, reused.ReusedFrom)
		assert.Equal(t, sourceID, *reused.ReusedFrom)
	})

	t.Run("an unapproved explicit source fails validation", func(t *testing.T) {
		f := newDocumentFixture(t)
		sourceID := uploadInOtherProcess(t, f, "", "")
		documents := f.configure(t)

		_, err := f.service.Reuse(f.ctx, f.orgID, documents[0].ID, &sourceID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("a flagged explicit source fails validation", func(t *testing.T) {
		f := newDocumentFixture(t)
		sourceID := uploadInOtherProcess(t, f, models.DecisionAlert, "suspicious stamp")
		documents := f.configure(t)

		_, err := f.service.Reuse(f.ctx, f.orgID, documents[0].ID, &sourceID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("a source from the same process fails validation", func(t *testing.T) {
		f := newDocumentFixture(t)
		uploadInOtherProcess(t, f, models.DecisionApprove, "")
		documents := f.configure(t)

		_, err := f.service.Reuse(f.ctx, f.orgID, documents[1].ID, &documents[0].ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("flagged sources never qualify", func(t *testing.T) {
		f := newDocumentFixture(t)
		uploadInOtherProcess(t, f, models.DecisionAlert, "suspicious stamp")
		documents := f.configure(t)

		_, err := f.service.Reuse(f.ctx, f.orgID, documents[0].ID, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("nothing to reuse is not found", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)

		_, err := f.service.Reuse(f.ctx, f.orgID, documents[0].ID, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestSkip(t *testing.T) {
	t.Run("optional slot settles as skipped", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)

		skipped, err := f.service.Skip(f.ctx, f.orgID, documents[1].ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusSkipped, skipped.Status)
		assert.True(t, skipped.Settled())
	})

	t.Run("required slot cannot be skipped", func(t *testing.T) {
		f := newDocumentFixture(t)
		documents := f.configure(t)

		_, err := f.service.Skip(f.ctx, f.orgID, documents[0].ID)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestAllSettled(t *testing.T) {
	f := newDocumentFixture(t)
	documents := f.configure(t)

	list, err := f.service.ListByProcess(f.ctx, f.orgID, f.processID)
	require.NoError(t, err)
	assert.False(t, models.AllSettled(list))

	_, err = f.service.Upload(f.ctx, f.orgID, documents[0].ID, sampleFile())
	require.NoError(t, err)
	_, err = f.service.ApplyReview(f.ctx, f.orgID, documents[0].ID, models.DecisionApprove, "")
	require.NoError(t, err)
	_, err = f.service.Skip(f.ctx, f.orgID, documents[1].ID)
	require.NoError(t, err)

	list, err = f.service.ListByProcess(f.ctx, f.orgID, f.processID)
	require.NoError(t, err)
	assert.True(t, models.AllSettled(list))
}
