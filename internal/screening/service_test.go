package screening

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credentia/internal/alert"
	alertmodels "credentia/internal/alert/models"
	alertstore "credentia/internal/alert/store"
	"credentia/internal/document"
	docmodels "credentia/internal/document/models"
	docstore "credentia/internal/document/store"
	profmodels "credentia/internal/professional/models"
	profstore "credentia/internal/professional/store"
	"credentia/internal/refdata"
	"credentia/internal/screening/models"
	"credentia/internal/screening/step"
	"credentia/internal/screening/store"
	"credentia/internal/version"
	versionmodels "credentia/internal/version/models"
	versionstore "credentia/internal/version/store"
	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
	"credentia/pkg/requestcontext"
)

type fixture struct {
	service       *Service
	store         *store.MemoryStore
	documents     *document.Service
	alerts        *alert.Service
	versions      *version.Service
	reference     *refdata.MemoryStore
	professionals *profstore.MemoryStore
	orgID         id.OrgID
	professional  *profmodels.Professional
	docTypes      []refdata.DocumentType
	ctx           context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	orgID := id.NewOrgID()

	professionals := profstore.NewMemoryStore()
	prof := &profmodels.Professional{
		ID:             id.NewProfessionalID(),
		OrgID:          orgID,
		FullName:       "Dr. Ana Souza",
		DocumentNumber: "12345678900",
		Qualifications: []profmodels.Qualification{
			{ID: "q1", Profession: "physician", CouncilNumber: "111", CouncilState: "SP"},
		},
		BankAccounts: []profmodels.BankAccount{
			{ID: "b1", BankCode: "341", Agency: "0001", Account: "12345-6", AccountType: "checking"},
		},
	}
	require.NoError(t, professionals.Create(context.Background(), prof))

	reference := refdata.NewMemoryStore()
	reference.PutSettings(refdata.OrgSettings{
		OrgID:                   orgID,
		ClientValidationEnabled: true,
		ProcessTTL:              30 * 24 * time.Hour,
		AllowOptionalSkip:       true,
	})
	docTypes := []refdata.DocumentType{
		{ID: id.NewDocumentTypeID(), OrgID: orgID, Name: "medical license", Required: true, Active: true},
		{ID: id.NewDocumentTypeID(), OrgID: orgID, Name: "diploma", Required: true, Active: true},
	}
	for _, dt := range docTypes {
		reference.PutDocumentType(dt)
	}

	processes := store.NewMemoryStore()
	documents := document.NewService(docstore.NewMemoryStore())
	alerts := alert.NewService(alertstore.NewMemoryStore())
	versions := version.NewService(versionstore.NewMemoryStore(), professionals)

	ctx := requestcontext.WithOrgID(context.Background(), orgID)
	ctx = requestcontext.WithActorID(ctx, id.NewActorID())

	return &fixture{
		service:       NewService(processes, documents, alerts, versions, reference, professionals),
		store:         processes,
		documents:     documents,
		alerts:        alerts,
		versions:      versions,
		reference:     reference,
		professionals: professionals,
		orgID:         orgID,
		professional:  prof,
		docTypes:      docTypes,
		ctx:           ctx,
	}
}

func (f *fixture) create(t *testing.T, steps ...step.Type) *models.Process {
	t.Helper()
	process, err := f.service.Create(f.ctx, f.orgID, CreateInput{
		ProfessionalID: f.professional.ID,
		RequestedSteps: steps,
	})
	require.NoError(t, err)
	return process
}

func (f *fixture) stepRow(t *testing.T, processID id.ProcessID, stepType step.Type) *step.Step {
	t.Helper()
	row, err := f.store.FindStep(f.ctx, f.orgID, processID, stepType)
	require.NoError(t, err)
	return row
}

func (f *fixture) complete(t *testing.T, processID id.ProcessID, in CompleteStepInput) *models.Process {
	t.Helper()
	if in.LockToken == 0 {
		in.LockToken = f.stepRow(t, processID, in.StepType).LockVersion
	}
	process, err := f.service.CompleteStep(f.ctx, f.orgID, processID, in)
	require.NoError(t, err)
	return process
}

// approveAllDocuments walks every slot through upload and an approving review.
func (f *fixture) approveAllDocuments(t *testing.T, processID id.ProcessID) {
	t.Helper()
	docs, err := f.documents.ListByProcess(f.ctx, f.orgID, processID)
	require.NoError(t, err)
	for _, doc := range docs {
		_, err := f.service.UploadDocument(f.ctx, f.orgID, processID, doc.ID, docmodels.FileRef{
			URL: "s3://bucket/" + doc.ID.String(), Name: doc.TypeName + ".pdf",
		})
		require.NoError(t, err)
		_, err = f.service.ReviewDocument(f.ctx, f.orgID, processID, doc.ID, docmodels.DecisionApprove, "")
		require.NoError(t, err)
	}
}

func TestCreate(t *testing.T) {
	t.Run("configures steps and document slots", func(t *testing.T) {
		f := newFixture(t)

		process := f.create(t, step.TypeConversation, step.TypeDocumentUpload, step.TypePaymentInfo)

		assert.Equal(t, models.StatusInProgress, process.Status)
		require.NotNil(t, process.CurrentStepType)
		assert.Equal(t, step.TypeConversation, *process.CurrentStepType)
		require.Len(t, process.StepInfo, 3)
		assert.Equal(t, step.TypeConversation, process.StepInfo[0].Type)
		assert.Equal(t, step.StatusInProgress, process.StepInfo[0].Status)
		assert.Equal(t, step.TypeDocumentUpload, process.StepInfo[1].Type)
		assert.Equal(t, step.StatusPending, process.StepInfo[1].Status)
		assert.Equal(t, step.TypePaymentInfo, process.StepInfo[2].Type)
		assert.Equal(t, 2, process.DocumentCounts.Total)
		require.NotNil(t, process.ExpiresAt)
	})

	t.Run("explicit document selection fixes order and requirement", func(t *testing.T) {
		f := newFixture(t)
		optional := false
		process, err := f.service.Create(f.ctx, f.orgID, CreateInput{
			ProfessionalID: f.professional.ID,
			RequestedSteps: []step.Type{step.TypeDocumentUpload},
			Documents: []DocumentSelection{
				{TypeID: f.docTypes[1].ID, Order: 0},
				{TypeID: f.docTypes[0].ID, Required: &optional, Order: 1},
			},
		})
		require.NoError(t, err)

		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "diploma", docs[0].TypeName)
		assert.Equal(t, "medical license", docs[1].TypeName)
		assert.False(t, docs[1].Required)
	})

	t.Run("selection outside the active catalog is invalid", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Create(f.ctx, f.orgID, CreateInput{
			ProfessionalID: f.professional.ID,
			RequestedSteps: []step.Type{step.TypeDocumentUpload},
			Documents:      []DocumentSelection{{TypeID: id.NewDocumentTypeID()}},
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("one active process per professional", func(t *testing.T) {
		f := newFixture(t)
		f.create(t, step.TypeConversation)

		_, err := f.service.Create(f.ctx, f.orgID, CreateInput{
			ProfessionalID: f.professional.ID,
			RequestedSteps: []step.Type{step.TypeConversation},
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("terminal process frees the professional", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation)
		_, err := f.service.Cancel(f.ctx, f.orgID, process.ID, "changed plans")
		require.NoError(t, err)

		f.create(t, step.TypeConversation)
	})

	t.Run("supervisor review cannot be requested", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Create(f.ctx, f.orgID, CreateInput{
			ProfessionalID: f.professional.ID,
			RequestedSteps: []step.Type{step.TypeConversation, step.TypeSupervisorReview},
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("client validation needs the org setting", func(t *testing.T) {
		f := newFixture(t)
		f.reference.PutSettings(refdata.OrgSettings{OrgID: f.orgID, ClientValidationEnabled: false})

		_, err := f.service.Create(f.ctx, f.orgID, CreateInput{
			ProfessionalID: f.professional.ID,
			RequestedSteps: []step.Type{step.TypeConversation, step.TypeClientValidation},
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("unknown professional", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.service.Create(f.ctx, f.orgID, CreateInput{
			ProfessionalID: id.NewProfessionalID(),
			RequestedSteps: []step.Type{step.TypeConversation},
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func TestCompleteStep(t *testing.T) {
	t.Run("conversation proceed advances", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypePaymentInfo)

		updated := f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeConversation,
			Outcome:  OutcomeProceed,
		})
		require.NotNil(t, updated.CurrentStepType)
		assert.Equal(t, step.TypePaymentInfo, *updated.CurrentStepType)
		assert.Equal(t, step.StatusInProgress, f.stepRow(t, process.ID, step.TypePaymentInfo).Status)
	})

	t.Run("conversation reject closes the process", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypeProfessionalData, step.TypeDocumentUpload)

		updated := f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeConversation,
			Outcome:  OutcomeReject,
			Reason:   "candidate withdrew",
		})
		assert.Equal(t, models.StatusRejected, updated.Status)
		assert.Equal(t, "candidate withdrew", updated.Reason)
		assert.Nil(t, updated.CurrentStepType)

		// The later steps never activated.
		upload := f.stepRow(t, process.ID, step.TypeDocumentUpload)
		assert.Equal(t, step.StatusPending, upload.Status)
	})

	t.Run("only the current step completes", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypePaymentInfo)

		_, err := f.service.CompleteStep(f.ctx, f.orgID, process.ID, CompleteStepInput{
			StepType:  step.TypePaymentInfo,
			LockToken: 1,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("stale lock token loses", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypePaymentInfo)
		token := f.stepRow(t, process.ID, step.TypeConversation).LockVersion

		_, err := f.service.CompleteStep(f.ctx, f.orgID, process.ID, CompleteStepInput{
			StepType:  step.TypeConversation,
			LockToken: token + 1,
			Outcome:   OutcomeProceed,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		// The token we actually read still wins.
		f.complete(t, process.ID, CompleteStepInput{
			StepType:  step.TypeConversation,
			LockToken: token,
			Outcome:   OutcomeProceed,
		})
	})

	t.Run("professional data stages a pending version", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeProfessionalData, step.TypePaymentInfo)

		snapshot := f.professional.ToSnapshot()
		snapshot.Qualifications[0].CouncilNumber = "222"
		updated := f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeProfessionalData,
			Snapshot: &snapshot,
		})
		require.NotNil(t, updated.PendingVersionID)

		staged, err := f.versions.Get(f.ctx, f.orgID, *updated.PendingVersionID)
		require.NoError(t, err)
		assert.Equal(t, versionmodels.StatusPending, staged.Status)
		assert.Equal(t, versionmodels.SourceScreening, staged.SourceType)
		assert.Equal(t, process.ID.String(), staged.SourceID)

		// Staging never touches the live record.
		prof, err := f.professionals.FindByID(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		assert.Equal(t, "111", prof.Qualifications[0].CouncilNumber)
	})

	t.Run("professional data requires a complete snapshot", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeProfessionalData)

		snapshot := f.professional.ToSnapshot()
		snapshot.FullName = ""
		_, err := f.service.CompleteStep(f.ctx, f.orgID, process.ID, CompleteStepInput{
			StepType:  step.TypeProfessionalData,
			LockToken: f.stepRow(t, process.ID, step.TypeProfessionalData).LockVersion,
			Snapshot:  &snapshot,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("document upload blocks until every required document settles", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeDocumentUpload, step.TypePaymentInfo)

		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		require.Len(t, docs, 2)

		upload := func(doc *docmodels.Document) {
			_, err := f.service.UploadDocument(f.ctx, f.orgID, process.ID, doc.ID, docmodels.FileRef{
				URL: "s3://bucket/" + doc.ID.String(), Name: doc.TypeName + ".pdf",
			})
			require.NoError(t, err)
		}
		approve := func(doc *docmodels.Document) {
			_, err := f.service.ReviewDocument(f.ctx, f.orgID, process.ID, doc.ID, docmodels.DecisionApprove, "")
			require.NoError(t, err)
		}

		upload(docs[0])
		approve(docs[0])
		upload(docs[1])

		_, err = f.service.CompleteStep(f.ctx, f.orgID, process.ID, CompleteStepInput{
			StepType:  step.TypeDocumentUpload,
			LockToken: f.stepRow(t, process.ID, step.TypeDocumentUpload).LockVersion,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

		approve(docs[1])
		updated := f.complete(t, process.ID, CompleteStepInput{StepType: step.TypeDocumentUpload})
		require.NotNil(t, updated.CurrentStepType)
		assert.Equal(t, step.TypePaymentInfo, *updated.CurrentStepType)
	})

	t.Run("payment info needs a bank account", func(t *testing.T) {
		f := newFixture(t)
		snapshot := f.professional.ToSnapshot()
		snapshot.BankAccounts = nil
		_, err := f.professionals.UpdateSnapshot(f.ctx, f.orgID, f.professional.ID, f.professional.RecordVersion, snapshot)
		require.NoError(t, err)
		process := f.create(t, step.TypePaymentInfo)

		_, err = f.service.CompleteStep(f.ctx, f.orgID, process.ID, CompleteStepInput{
			StepType:  step.TypePaymentInfo,
			LockToken: f.stepRow(t, process.ID, step.TypePaymentInfo).LockVersion,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("legal entity needs company references", func(t *testing.T) {
		f := newFixture(t)
		snapshot := f.professional.ToSnapshot()
		snapshot.LegalEntity = true
		snapshot.CompanyTaxID = "12345678000190"
		snapshot.CompanyLinkRef = ""
		_, err := f.professionals.UpdateSnapshot(f.ctx, f.orgID, f.professional.ID, f.professional.RecordVersion, snapshot)
		require.NoError(t, err)
		process := f.create(t, step.TypePaymentInfo)

		_, err = f.service.CompleteStep(f.ctx, f.orgID, process.ID, CompleteStepInput{
			StepType:  step.TypePaymentInfo,
			LockToken: f.stepRow(t, process.ID, step.TypePaymentInfo).LockVersion,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("client validation relays the verdict", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypeClientValidation)
		f.complete(t, process.ID, CompleteStepInput{StepType: step.TypeConversation, Outcome: OutcomeProceed})

		updated := f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeClientValidation,
			Outcome:  OutcomeRejected,
			Reason:   "client declined the profile",
		})
		assert.Equal(t, models.StatusRejected, updated.Status)
	})

	t.Run("step info always matches the recompute", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypePaymentInfo)
		f.complete(t, process.ID, CompleteStepInput{StepType: step.TypeConversation, Outcome: OutcomeProceed})

		stored, err := f.service.Get(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		steps, err := f.store.ListSteps(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		assert.Equal(t, models.BuildStepInfo(steps), stored.StepInfo)
	})
}

func TestDocumentReviewConsequences(t *testing.T) {
	t.Run("correction during upload leaves the slot re-uploadable", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeDocumentUpload, step.TypePaymentInfo)

		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		_, err = f.service.UploadDocument(f.ctx, f.orgID, process.ID, docs[0].ID, docmodels.FileRef{
			URL: "s3://bucket/first", Name: "first.pdf",
		})
		require.NoError(t, err)

		doc, err := f.service.ReviewDocument(f.ctx, f.orgID, process.ID, docs[0].ID, docmodels.DecisionCorrection, "illegible scan")
		require.NoError(t, err)
		assert.Equal(t, docmodels.StatusCorrectionNeeded, doc.Status)

		_, err = f.service.UploadDocument(f.ctx, f.orgID, process.ID, docs[0].ID, docmodels.FileRef{
			URL: "s3://bucket/retry", Name: "retry.pdf",
		})
		require.NoError(t, err)
	})

	t.Run("correction after upload completed sends the process back", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeDocumentUpload, step.TypePaymentInfo)
		f.approveAllDocuments(t, process.ID)
		advanced := f.complete(t, process.ID, CompleteStepInput{StepType: step.TypeDocumentUpload})
		require.NotNil(t, advanced.CurrentStepType)
		require.Equal(t, step.TypePaymentInfo, *advanced.CurrentStepType)

		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		doc, err := f.service.ReviewDocument(f.ctx, f.orgID, process.ID, docs[0].ID, docmodels.DecisionCorrection, "wrong issue date")
		require.NoError(t, err)
		assert.Equal(t, docmodels.StatusCorrectionNeeded, doc.Status)

		updated, err := f.service.Get(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		require.NotNil(t, updated.CurrentStepType)
		assert.Equal(t, step.TypeDocumentUpload, *updated.CurrentStepType)
		assert.Equal(t, step.StatusCorrectionNeeded, f.stepRow(t, process.ID, step.TypeDocumentUpload).Status)
	})

	t.Run("alert decision activates supervisor review", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeDocumentUpload, step.TypePaymentInfo)
		assert.False(t, process.HasConfiguredStep(step.TypeSupervisorReview))

		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		_, err = f.service.UploadDocument(f.ctx, f.orgID, process.ID, docs[0].ID, docmodels.FileRef{
			URL: "s3://bucket/doc", Name: "doc.pdf",
		})
		require.NoError(t, err)

		doc, err := f.service.ReviewDocument(f.ctx, f.orgID, process.ID, docs[0].ID, docmodels.DecisionAlert, "signature mismatch")
		require.NoError(t, err)
		assert.True(t, doc.AlertFlagged)

		has, err := f.store.HasStep(f.ctx, f.orgID, process.ID, step.TypeSupervisorReview)
		require.NoError(t, err)
		assert.True(t, has)

		open, err := f.alerts.Open(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		require.NotNil(t, open)
		assert.Equal(t, "signature mismatch", open.Reason)
	})
}

// The alert freeze: an open alert blocks approval and step completion until
// a supervisor resolves it, after which approval goes through.
func TestAlertFreeze(t *testing.T) {
	setup := func(t *testing.T) (*fixture, *models.Process, id.AlertID) {
		f := newFixture(t)
		process := f.create(t, step.TypeDocumentUpload)
		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		for _, doc := range docs {
			_, err := f.service.UploadDocument(f.ctx, f.orgID, process.ID, doc.ID, docmodels.FileRef{
				URL: "s3://bucket/" + doc.ID.String(), Name: doc.TypeName + ".pdf",
			})
			require.NoError(t, err)
		}
		_, err = f.service.ReviewDocument(f.ctx, f.orgID, process.ID, docs[0].ID, docmodels.DecisionApprove, "")
		require.NoError(t, err)
		_, err = f.service.ReviewDocument(f.ctx, f.orgID, process.ID, docs[1].ID, docmodels.DecisionAlert, "suspicious issue date")
		require.NoError(t, err)

		open, err := f.alerts.Open(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		require.NotNil(t, open)
		return f, process, open.ID
	}

	t.Run("open alert blocks step completion", func(t *testing.T) {
		f, process, _ := setup(t)

		_, err := f.service.CompleteStep(f.ctx, f.orgID, process.ID, CompleteStepInput{
			StepType:  step.TypeDocumentUpload,
			LockToken: f.stepRow(t, process.ID, step.TypeDocumentUpload).LockVersion,
		})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("open alert blocks approval", func(t *testing.T) {
		f, process, _ := setup(t)

		_, err := f.service.Approve(f.ctx, f.orgID, process.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("resolve unfreezes and approval succeeds", func(t *testing.T) {
		f, process, alertID := setup(t)

		_, err := f.service.ResolveAlert(f.ctx, f.orgID, process.ID, alertID, "verified with the council")
		require.NoError(t, err)

		// Supervisor review completed as part of the resolution.
		assert.Equal(t, step.StatusCompleted, f.stepRow(t, process.ID, step.TypeSupervisorReview).Status)

		f.complete(t, process.ID, CompleteStepInput{StepType: step.TypeDocumentUpload})
		updated, err := f.service.Approve(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, updated.Status)
	})

	t.Run("reject via alert closes both atomically", func(t *testing.T) {
		f, process, alertID := setup(t)

		updated, err := f.service.RejectViaAlert(f.ctx, f.orgID, process.ID, alertID, "forged document")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, updated.Status)

		open, err := f.alerts.Open(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		assert.Nil(t, open)
		alerts, err := f.service.Alerts(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		require.Len(t, alerts, 1)
		assert.Equal(t, "forged document", alerts[0].ResolutionNote)
	})
}

func TestRaiseAlert(t *testing.T) {
	t.Run("manual alert freezes approval until resolved", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation)
		f.complete(t, process.ID, CompleteStepInput{StepType: step.TypeConversation, Outcome: OutcomeProceed})

		raised, err := f.service.RaiseAlert(f.ctx, f.orgID, process.ID, nil, alertmodels.CategoryManual, "references did not answer")
		require.NoError(t, err)
		assert.Equal(t, alertmodels.StatusOpen, raised.Status)
		assert.Equal(t, alertmodels.CategoryManual, raised.Category)
		assert.Nil(t, raised.DocumentID)

		_, err = f.service.Approve(f.ctx, f.orgID, process.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

		_, err = f.service.ResolveAlert(f.ctx, f.orgID, process.ID, raised.ID, "references confirmed by phone")
		require.NoError(t, err)
		updated, err := f.service.Approve(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, updated.Status)
	})

	t.Run("document alert names a document of this process", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeDocumentUpload)
		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)

		raised, err := f.service.RaiseAlert(f.ctx, f.orgID, process.ID, &docs[0].ID, alertmodels.CategoryDocument, "license looks altered")
		require.NoError(t, err)
		require.NotNil(t, raised.DocumentID)
		assert.Equal(t, docs[0].ID, *raised.DocumentID)
		assert.Equal(t, alertmodels.CategoryDocument, raised.Category)
	})

	t.Run("unknown document is not found", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation)
		unknown := id.NewDocumentID()

		_, err := f.service.RaiseAlert(f.ctx, f.orgID, process.ID, &unknown, alertmodels.CategoryDocument, "finding")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("a reason is required", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation)

		_, err := f.service.RaiseAlert(f.ctx, f.orgID, process.ID, nil, alertmodels.CategoryManual, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("one open alert at a time", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation)

		_, err := f.service.RaiseAlert(f.ctx, f.orgID, process.ID, nil, alertmodels.CategoryManual, "first finding")
		require.NoError(t, err)
		_, err = f.service.RaiseAlert(f.ctx, f.orgID, process.ID, nil, alertmodels.CategoryManual, "second finding")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("terminal process refuses", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation)
		_, err := f.service.Cancel(f.ctx, f.orgID, process.ID, "withdrawn")
		require.NoError(t, err)

		_, err = f.service.RaiseAlert(f.ctx, f.orgID, process.ID, nil, alertmodels.CategoryManual, "late finding")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestApprove(t *testing.T) {
	t.Run("applies the pending version", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeProfessionalData)

		snapshot := f.professional.ToSnapshot()
		snapshot.Qualifications[0].CouncilNumber = "222"
		f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeProfessionalData,
			Snapshot: &snapshot,
		})

		updated, err := f.service.Approve(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, updated.Status)
		assert.Nil(t, updated.PendingVersionID)

		prof, err := f.professionals.FindByID(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		assert.Equal(t, "222", prof.Qualifications[0].CouncilNumber)

		current, err := f.versions.Current(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		assert.True(t, current.IsCurrent)
	})

	t.Run("unfinished steps block approval", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypePaymentInfo)
		f.complete(t, process.ID, CompleteStepInput{StepType: step.TypeConversation, Outcome: OutcomeProceed})

		_, err := f.service.Approve(f.ctx, f.orgID, process.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestReject(t *testing.T) {
	t.Run("rejects the staged version with the process", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeProfessionalData, step.TypePaymentInfo)

		snapshot := f.professional.ToSnapshot()
		f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeProfessionalData,
			Snapshot: &snapshot,
		})
		staged, err := f.service.Get(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		require.NotNil(t, staged.PendingVersionID)
		versionID := *staged.PendingVersionID

		updated, err := f.service.Reject(f.ctx, f.orgID, process.ID, "failed background check")
		require.NoError(t, err)
		assert.Equal(t, models.StatusRejected, updated.Status)

		rejected, err := f.versions.Get(f.ctx, f.orgID, versionID)
		require.NoError(t, err)
		assert.Equal(t, versionmodels.StatusRejected, rejected.Status)
	})

	t.Run("requires a reason", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation)

		_, err := f.service.Reject(f.ctx, f.orgID, process.ID, "")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("terminal process conflicts", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation)
		_, err := f.service.Cancel(f.ctx, f.orgID, process.ID, "duplicate request")
		require.NoError(t, err)

		_, err = f.service.Reject(f.ctx, f.orgID, process.ID, "late rejection")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func TestGoBack(t *testing.T) {
	t.Run("returns to a completed step and resets the span", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypePaymentInfo, step.TypeClientValidation)
		f.complete(t, process.ID, CompleteStepInput{StepType: step.TypeConversation, Outcome: OutcomeProceed})
		f.complete(t, process.ID, CompleteStepInput{StepType: step.TypePaymentInfo})

		updated, err := f.service.GoBack(f.ctx, f.orgID, process.ID, step.TypeConversation)
		require.NoError(t, err)
		require.NotNil(t, updated.CurrentStepType)
		assert.Equal(t, step.TypeConversation, *updated.CurrentStepType)

		// The target picks up work again; the later reset step waits behind it.
		assert.Equal(t, step.StatusInProgress, f.stepRow(t, process.ID, step.TypeConversation).Status)
		assert.Equal(t, step.StatusPending, f.stepRow(t, process.ID, step.TypePaymentInfo).Status)
		row := f.stepRow(t, process.ID, step.TypeConversation)
		assert.Nil(t, row.CompletedBy)
		assert.Nil(t, row.CompletedAt)
	})

	t.Run("reopening professional data discards the staged version", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeProfessionalData, step.TypePaymentInfo)

		stale := f.professional.ToSnapshot()
		stale.Qualifications[0].CouncilNumber = "999-STALE"
		staged := f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeProfessionalData,
			Snapshot: &stale,
		})
		require.NotNil(t, staged.PendingVersionID)
		staleVersionID := *staged.PendingVersionID

		updated, err := f.service.GoBack(f.ctx, f.orgID, process.ID, step.TypeProfessionalData)
		require.NoError(t, err)
		assert.Nil(t, updated.PendingVersionID)
		dropped, err := f.versions.Get(f.ctx, f.orgID, staleVersionID)
		require.NoError(t, err)
		assert.Equal(t, versionmodels.StatusRejected, dropped.Status)

		fresh := f.professional.ToSnapshot()
		fresh.Qualifications[0].CouncilNumber = "222"
		f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeProfessionalData,
			Snapshot: &fresh,
		})
		f.complete(t, process.ID, CompleteStepInput{StepType: step.TypePaymentInfo})
		_, err = f.service.Approve(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)

		// The discarded snapshot can never reach the live record.
		_, err = f.versions.Apply(f.ctx, f.orgID, staleVersionID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		prof, err := f.professionals.FindByID(f.ctx, f.orgID, f.professional.ID)
		require.NoError(t, err)
		assert.Equal(t, "222", prof.Qualifications[0].CouncilNumber)
	})

	t.Run("completing professional data twice keeps only the newest version", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeProfessionalData, step.TypePaymentInfo)

		first := f.professional.ToSnapshot()
		first.Qualifications[0].CouncilNumber = "999-STALE"
		staged := f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeProfessionalData,
			Snapshot: &first,
		})
		require.NotNil(t, staged.PendingVersionID)
		firstVersionID := *staged.PendingVersionID

		_, err := f.service.GoBack(f.ctx, f.orgID, process.ID, step.TypeProfessionalData)
		require.NoError(t, err)

		second := f.professional.ToSnapshot()
		second.Qualifications[0].CouncilNumber = "222"
		restaged := f.complete(t, process.ID, CompleteStepInput{
			StepType: step.TypeProfessionalData,
			Snapshot: &second,
		})
		require.NotNil(t, restaged.PendingVersionID)
		assert.NotEqual(t, firstVersionID, *restaged.PendingVersionID)

		superseded, err := f.versions.Get(f.ctx, f.orgID, firstVersionID)
		require.NoError(t, err)
		assert.Equal(t, versionmodels.StatusRejected, superseded.Status)
	})

	t.Run("only previously completed steps qualify", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypePaymentInfo, step.TypeClientValidation)
		f.complete(t, process.ID, CompleteStepInput{StepType: step.TypeConversation, Outcome: OutcomeProceed})

		// Payment info is pending, not completed.
		_, err := f.service.GoBack(f.ctx, f.orgID, process.ID, step.TypePaymentInfo)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("cannot go forward", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation, step.TypePaymentInfo)

		_, err := f.service.GoBack(f.ctx, f.orgID, process.ID, step.TypePaymentInfo)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestExpire(t *testing.T) {
	t.Run("deadline is a pure predicate until expire is called", func(t *testing.T) {
		f := newFixture(t)
		past := time.Now().Add(-time.Hour)
		process, err := f.service.Create(f.ctx, f.orgID, CreateInput{
			ProfessionalID: f.professional.ID,
			RequestedSteps: []step.Type{step.TypeConversation},
			ExpiresAt:      &past,
		})
		require.NoError(t, err)

		// Past its deadline, but nothing changed it yet.
		stored, err := f.service.Get(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, stored.Status)
		assert.True(t, stored.IsExpired(time.Now()))

		expired, err := f.service.Expire(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusExpired, expired.Status)
	})

	t.Run("not yet due", func(t *testing.T) {
		f := newFixture(t)
		process := f.create(t, step.TypeConversation)

		_, err := f.service.Expire(f.ctx, f.orgID, process.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("sweep expires every due process", func(t *testing.T) {
		f := newFixture(t)
		past := time.Now().Add(-time.Hour)
		process, err := f.service.Create(f.ctx, f.orgID, CreateInput{
			ProfessionalID: f.professional.ID,
			RequestedSteps: []step.Type{step.TypeConversation},
			ExpiresAt:      &past,
		})
		require.NoError(t, err)

		expired, err := f.service.ExpireDue(f.ctx, f.orgID)
		require.NoError(t, err)
		assert.Equal(t, 1, expired)

		stored, err := f.service.Get(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusExpired, stored.Status)
	})
}

func TestReuseDocument(t *testing.T) {
	// seedSource runs a first process far enough to leave a document behind,
	// optionally approving it, then cancels the process so a new one can open.
	seedSource := func(t *testing.T, f *fixture, approve bool) *docmodels.Document {
		t.Helper()
		first := f.create(t, step.TypeDocumentUpload)
		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, first.ID)
		require.NoError(t, err)
		source := docs[0]
		_, err = f.service.UploadDocument(f.ctx, f.orgID, first.ID, source.ID, docmodels.FileRef{
			URL: "s3://bucket/" + source.ID.String(), Name: source.TypeName + ".pdf",
		})
		require.NoError(t, err)
		if approve {
			_, err = f.service.ReviewDocument(f.ctx, f.orgID, first.ID, source.ID, docmodels.DecisionApprove, "")
			require.NoError(t, err)
		}
		_, err = f.service.Cancel(f.ctx, f.orgID, first.ID, "restarting")
		require.NoError(t, err)
		return source
	}

	slotMatching := func(t *testing.T, f *fixture, processID id.ProcessID, typeID id.DocumentTypeID) *docmodels.Document {
		t.Helper()
		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, processID)
		require.NoError(t, err)
		for _, doc := range docs {
			if doc.TypeID == typeID {
				return doc
			}
		}
		t.Fatalf("no slot for document type %s", typeID)
		return nil
	}

	t.Run("an approved explicit source is copied", func(t *testing.T) {
		f := newFixture(t)
		source := seedSource(t, f, true)
		process := f.create(t, step.TypeDocumentUpload)
		slot := slotMatching(t, f, process.ID, source.TypeID)

		reused, err := f.service.ReuseDocument(f.ctx, f.orgID, process.ID, slot.ID, &source.ID)
		require.NoError(t, err)
		assert.Equal(t, docmodels.StatusReused, reused.Status)
		require.NotNil(t, reused.ReusedFrom)
		assert.Equal(t, source.ID, *reused.ReusedFrom)
	})

	t.Run("an unapproved explicit source fails validation", func(t *testing.T) {
		f := newFixture(t)
		source := seedSource(t, f, false)
		process := f.create(t, step.TypeDocumentUpload)
		slot := slotMatching(t, f, process.ID, source.TypeID)

		_, err := f.service.ReuseDocument(f.ctx, f.orgID, process.ID, slot.ID, &source.ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func TestSkipDocument(t *testing.T) {
	t.Run("optional slot skips when the org allows it", func(t *testing.T) {
		f := newFixture(t)
		f.reference.PutDocumentType(refdata.DocumentType{
			ID: id.NewDocumentTypeID(), OrgID: f.orgID, Name: "reference letter", Required: false, Active: true,
		})
		process := f.create(t, step.TypeDocumentUpload)

		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)
		var optional *docmodels.Document
		for _, doc := range docs {
			if !doc.Required {
				optional = doc
			}
		}
		require.NotNil(t, optional)

		skipped, err := f.service.SkipDocument(f.ctx, f.orgID, process.ID, optional.ID)
		require.NoError(t, err)
		assert.Equal(t, docmodels.StatusSkipped, skipped.Status)
	})

	t.Run("org without optional skip refuses", func(t *testing.T) {
		f := newFixture(t)
		f.reference.PutSettings(refdata.OrgSettings{
			OrgID:                   f.orgID,
			ClientValidationEnabled: true,
			AllowOptionalSkip:       false,
		})
		process := f.create(t, step.TypeDocumentUpload)
		docs, err := f.documents.ListByProcess(f.ctx, f.orgID, process.ID)
		require.NoError(t, err)

		_, err = f.service.SkipDocument(f.ctx, f.orgID, process.ID, docs[0].ID)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
