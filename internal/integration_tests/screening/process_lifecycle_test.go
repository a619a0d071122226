//go:build integration

package screening

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"credentia/internal/alert"
	alertstore "credentia/internal/alert/store"
	"credentia/internal/document"
	docmodels "credentia/internal/document/models"
	docstore "credentia/internal/document/store"
	"credentia/internal/event"
	eventpostgres "credentia/internal/event/store/postgres"
	platformredis "credentia/internal/platform/redis"
	profmodels "credentia/internal/professional/models"
	profstore "credentia/internal/professional/store"
	"credentia/internal/refdata"
	"credentia/internal/screening"
	"credentia/internal/screening/models"
	screeningstore "credentia/internal/screening/store"
	"credentia/internal/screening/step"
	"credentia/internal/version"
	versionstore "credentia/internal/version/store"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/tx"
	"credentia/pkg/requestcontext"
	"credentia/pkg/testutil/containers"
)

// TestProcessLifecycle drives a full screening against real Postgres and
// Redis: intake, conversation, staged professional data, document upload and
// review, payment check, final approval, and the applied version.
func TestProcessLifecycle(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	rd := containers.NewRedisContainer(t)
	db := pg.DB

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	orgID := id.NewOrgID()
	actorID := id.NewActorID()
	ctx := requestcontext.WithOrgID(context.Background(), orgID)
	ctx = requestcontext.WithActorID(ctx, actorID)

	_, err := db.ExecContext(ctx, `
		INSERT INTO org_screening_settings (org_id, client_validation_enabled, process_ttl_seconds, allow_optional_skip)
		VALUES ($1, FALSE, 2592000, TRUE)`,
		orgID.String())
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO document_types (id, org_id, name, required, active)
		VALUES ($1, $2, 'medical license', TRUE, TRUE)`,
		id.NewDocumentTypeID().String(), orgID.String())
	require.NoError(t, err)

	professionals := profstore.NewPostgresStore(db)
	prof := &profmodels.Professional{
		ID:             id.NewProfessionalID(),
		OrgID:          orgID,
		FullName:       "Dr. Ana Souza",
		DocumentNumber: "12345678900",
		Phone:          "+55 11 90000-0000",
		Qualifications: []profmodels.Qualification{
			{ID: "q1", Profession: "physician", CouncilNumber: "111", CouncilState: "SP"},
		},
		BankAccounts: []profmodels.BankAccount{
			{ID: "b1", BankCode: "341", Agency: "0001", Account: "12345-6", AccountType: "checking"},
		},
	}
	require.NoError(t, professionals.Create(ctx, prof))

	reference := refdata.NewCachedStore(
		refdata.NewPostgresStore(db),
		&platformredis.Client{Client: rd.Client},
		time.Minute,
		logger,
	)

	publisher := event.NewChannelPublisher(64, logger)
	worker := event.NewWorker(eventpostgres.New(db), publisher.Inbox(), logger)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	go func() { _ = worker.Run(workerCtx) }()

	runner := tx.NewSQLRunner(db)
	versionService := version.NewService(versionstore.NewPostgresStore(db), professionals,
		version.WithLogger(logger),
		version.WithEventPublisher(publisher),
		version.WithRunner(runner),
	)
	documentService := document.NewService(docstore.NewPostgresStore(db),
		document.WithLogger(logger),
		document.WithEventPublisher(publisher),
	)
	alertService := alert.NewService(alertstore.NewPostgresStore(db),
		alert.WithLogger(logger),
		alert.WithEventPublisher(publisher),
	)
	svc := screening.NewService(
		screeningstore.NewPostgresStore(db), documentService, alertService, versionService, reference, professionals,
		screening.WithLogger(logger),
		screening.WithEventPublisher(publisher),
		screening.WithRunner(runner),
	)

	process, err := svc.Create(ctx, orgID, screening.CreateInput{
		ProfessionalID: prof.ID,
		RequestedSteps: []step.Type{
			step.TypeConversation, step.TypeProfessionalData,
			step.TypeDocumentUpload, step.TypeDocumentReview, step.TypePaymentInfo,
		},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, process.Status)
	require.NotNil(t, process.CurrentStepType)
	require.Equal(t, step.TypeConversation, *process.CurrentStepType)
	require.Equal(t, 1, process.DocumentCounts.Total)

	lockToken := func(tp step.Type) int64 {
		t.Helper()
		steps, err := svc.Steps(ctx, orgID, process.ID)
		require.NoError(t, err)
		for _, row := range steps {
			if row.Type == tp {
				return row.LockVersion
			}
		}
		t.Fatalf("step %s not configured", tp)
		return 0
	}
	complete := func(in screening.CompleteStepInput) *models.Process {
		t.Helper()
		in.LockToken = lockToken(in.StepType)
		updated, err := svc.CompleteStep(ctx, orgID, process.ID, in)
		require.NoError(t, err)
		return updated
	}

	complete(screening.CompleteStepInput{
		StepType: step.TypeConversation,
		Outcome:  screening.OutcomeProceed,
		Payload:  map[string]any{"channel": "phone"},
	})

	snapshot := prof.ToSnapshot()
	snapshot.Phone = "+55 11 91111-1111"
	updated := complete(screening.CompleteStepInput{
		StepType: step.TypeProfessionalData,
		Snapshot: &snapshot,
	})
	require.NotNil(t, updated.PendingVersionID)

	// The live record must stay untouched until approval.
	live, err := professionals.FindByID(ctx, orgID, prof.ID)
	require.NoError(t, err)
	assert.Equal(t, "+55 11 90000-0000", live.Phone)

	docs, err := documentService.ListByProcess(ctx, orgID, process.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	_, err = svc.UploadDocument(ctx, orgID, process.ID, docs[0].ID, docmodels.FileRef{
		URL:  "s3://uploads/license.pdf",
		Name: "license.pdf",
		Size: 2048,
		MIME: "application/pdf",
	})
	require.NoError(t, err)
	reviewed, err := svc.ReviewDocument(ctx, orgID, process.ID, docs[0].ID, docmodels.DecisionApprove, "legible")
	require.NoError(t, err)
	assert.Equal(t, docmodels.StatusApproved, reviewed.Status)

	complete(screening.CompleteStepInput{StepType: step.TypeDocumentUpload})
	complete(screening.CompleteStepInput{StepType: step.TypeDocumentReview})
	final := complete(screening.CompleteStepInput{StepType: step.TypePaymentInfo})
	assert.Nil(t, final.CurrentStepType)

	approved, err := svc.Approve(ctx, orgID, process.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Nil(t, approved.PendingVersionID)
	assert.NotNil(t, approved.CompletedAt)

	// Approval applies the staged version to the live record.
	live, err = professionals.FindByID(ctx, orgID, prof.ID)
	require.NoError(t, err)
	assert.Equal(t, "+55 11 91111-1111", live.Phone)
	current, err := versionService.Current(ctx, orgID, prof.ID)
	require.NoError(t, err)
	assert.True(t, current.IsCurrent)

	// Domain events land in the outbox through the async worker.
	require.Eventually(t, func() bool {
		var count int
		if err := db.QueryRowContext(context.Background(), `
			SELECT COUNT(*) FROM event_outbox WHERE org_id = $1`,
			orgID.String()).Scan(&count); err != nil {
			return false
		}
		return count > 0
	}, 5*time.Second, 100*time.Millisecond)

	// Reference data served through Redis on the second read.
	_, err = reference.ActiveDocumentTypes(ctx, orgID)
	require.NoError(t, err)
	keys, err := rd.Client.Keys(ctx, "refdata:*").Result()
	require.NoError(t, err)
	assert.NotEmpty(t, keys)
}
