package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	alertmodels "credentia/internal/alert/models"
	docmodels "credentia/internal/document/models"
	"credentia/internal/screening"
	"credentia/internal/screening/models"
	"credentia/internal/screening/step"
	id "credentia/pkg/domain"
	dErrors "credentia/pkg/domain-errors"
	"credentia/pkg/platform/httputil"
	"credentia/pkg/requestcontext"
)

// Service defines the interface for screening operations.
type Service interface {
	Create(ctx context.Context, orgID id.OrgID, in screening.CreateInput) (*models.Process, error)
	Get(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error)
	ListByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Process, error)
	Steps(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*step.Step, error)
	CompleteStep(ctx context.Context, orgID id.OrgID, processID id.ProcessID, in screening.CompleteStepInput) (*models.Process, error)
	Approve(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error)
	Reject(ctx context.Context, orgID id.OrgID, processID id.ProcessID, reason string) (*models.Process, error)
	Cancel(ctx context.Context, orgID id.OrgID, processID id.ProcessID, reason string) (*models.Process, error)
	GoBack(ctx context.Context, orgID id.OrgID, processID id.ProcessID, target step.Type) (*models.Process, error)
	Expire(ctx context.Context, orgID id.OrgID, processID id.ProcessID) (*models.Process, error)
	UploadDocument(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID id.DocumentID, file docmodels.FileRef) (*docmodels.Document, error)
	ReuseDocument(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID id.DocumentID, sourceID *id.DocumentID) (*docmodels.Document, error)
	SkipDocument(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID id.DocumentID) (*docmodels.Document, error)
	ReviewDocument(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID id.DocumentID, decision docmodels.Decision, note string) (*docmodels.Document, error)
	RaiseAlert(ctx context.Context, orgID id.OrgID, processID id.ProcessID, documentID *id.DocumentID, category alertmodels.Category, reason string) (*alertmodels.Alert, error)
	ResolveAlert(ctx context.Context, orgID id.OrgID, processID id.ProcessID, alertID id.AlertID, note string) (*models.Process, error)
	RejectViaAlert(ctx context.Context, orgID id.OrgID, processID id.ProcessID, alertID id.AlertID, reason string) (*models.Process, error)
	Alerts(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*alertmodels.Alert, error)
}

// DocumentLister lists the document slots of a process, for the read side.
type DocumentLister interface {
	ListByProcess(ctx context.Context, orgID id.OrgID, processID id.ProcessID) ([]*docmodels.Document, error)
}

// Handler exposes the screening endpoints.
type Handler struct {
	service   Service
	documents DocumentLister
	logger    *slog.Logger
}

// New creates a new screening Handler.
func New(service Service, documents DocumentLister, logger *slog.Logger) *Handler {
	return &Handler{service: service, documents: documents, logger: logger}
}

// Register registers the screening routes. Auth and request metadata are
// applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/processes", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Route("/{processID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Get("/steps", h.handleSteps)
			r.Post("/steps/complete", h.handleCompleteStep)
			r.Post("/approve", h.handleApprove)
			r.Post("/reject", h.handleReject)
			r.Post("/cancel", h.handleCancel)
			r.Post("/go-back", h.handleGoBack)
			r.Post("/expire", h.handleExpire)
			r.Get("/documents", h.handleListDocuments)
			r.Route("/documents/{documentID}", func(r chi.Router) {
				r.Post("/upload", h.handleUploadDocument)
				r.Post("/reuse", h.handleReuseDocument)
				r.Post("/skip", h.handleSkipDocument)
				r.Post("/review", h.handleReviewDocument)
			})
			r.Get("/alerts", h.handleListAlerts)
			r.Post("/alerts", h.handleRaiseAlert)
			r.Post("/alerts/resolve", h.handleResolveAlert)
			r.Post("/alerts/reject", h.handleRejectViaAlert)
		})
	})
	r.Get("/professionals/{professionalID}/processes", h.handleListByProfessional)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[*CreateProcessRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	professionalID, err := id.ParseProfessionalID(req.ProfessionalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in := screening.CreateInput{
		ProfessionalID: professionalID,
		ExpiresAt:      req.ExpiresAt,
	}
	for _, s := range req.RequestedSteps {
		in.RequestedSteps = append(in.RequestedSteps, step.Type(s))
	}
	for _, d := range req.Documents {
		typeID, err := id.ParseDocumentTypeID(d.TypeID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.Documents = append(in.Documents, screening.DocumentSelection{
			TypeID:   typeID,
			Required: d.Required,
			Order:    d.Order,
		})
	}
	if req.SupervisorID != "" {
		supervisor, err := id.ParseActorID(req.SupervisorID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		in.SupervisorID = &supervisor
	}

	process, err := h.service.Create(ctx, requestcontext.OrgID(ctx), in)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to create process",
			"professional_id", req.ProfessionalID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromProcess(process))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}

	process, err := h.service.Get(ctx, requestcontext.OrgID(ctx), processID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProcess(process))
}

func (h *Handler) handleListByProfessional(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	professionalID, err := id.ParseProfessionalID(chi.URLParam(r, "professionalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	statusFilter := models.Status(r.URL.Query().Get("status"))
	if statusFilter != "" && !models.ValidStatus(statusFilter) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "unknown process status: "+string(statusFilter)))
		return
	}

	processes, err := h.service.ListByProfessional(ctx, requestcontext.OrgID(ctx), professionalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if statusFilter != "" {
		filtered := processes[:0]
		for _, p := range processes {
			if p.Status == statusFilter {
				filtered = append(filtered, p)
			}
		}
		processes = filtered
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]ProcessResponse{"processes": FromProcesses(processes)})
}

func (h *Handler) handleSteps(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}

	steps, err := h.service.Steps(ctx, requestcontext.OrgID(ctx), processID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]StepResponse{"steps": FromSteps(steps)})
}

func (h *Handler) handleCompleteStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*CompleteStepRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	process, err := h.service.CompleteStep(ctx, requestcontext.OrgID(ctx), processID, screening.CompleteStepInput{
		StepType:  step.Type(req.StepType),
		LockToken: req.LockToken,
		Outcome:   req.Outcome,
		Reason:    req.Reason,
		Snapshot:  req.Snapshot,
		Payload:   req.Payload,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to complete step",
			"process_id", processID.String(),
			"step_type", req.StepType,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProcess(process))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}

	process, err := h.service.Approve(ctx, requestcontext.OrgID(ctx), processID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to approve process",
			"process_id", processID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProcess(process))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.handleTerminate(w, r, h.service.Reject)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleTerminate(w, r, h.service.Cancel)
}

func (h *Handler) handleTerminate(w http.ResponseWriter, r *http.Request, terminate func(context.Context, id.OrgID, id.ProcessID, string) (*models.Process, error)) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*ReasonRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	process, err := terminate(ctx, requestcontext.OrgID(ctx), processID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProcess(process))
}

func (h *Handler) handleGoBack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*GoBackRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	process, err := h.service.GoBack(ctx, requestcontext.OrgID(ctx), processID, step.Type(req.TargetStep))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProcess(process))
}

func (h *Handler) handleExpire(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}

	process, err := h.service.Expire(ctx, requestcontext.OrgID(ctx), processID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProcess(process))
}

func (h *Handler) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}

	docs, err := h.documents.ListByProcess(ctx, requestcontext.OrgID(ctx), processID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]DocumentResponse{"documents": FromDocuments(docs)})
}

func (h *Handler) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, documentID, ok := h.documentIDs(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*UploadDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.service.UploadDocument(ctx, requestcontext.OrgID(ctx), processID, documentID, req.FileRef())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) handleReuseDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, documentID, ok := h.documentIDs(w, r)
	if !ok {
		return
	}
	// The body is optional; without one the service picks the source itself.
	var req ReuseDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	var sourceID *id.DocumentID
	if req.SourceDocumentID != "" {
		parsed, err := id.ParseDocumentID(req.SourceDocumentID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		sourceID = &parsed
	}

	doc, err := h.service.ReuseDocument(ctx, requestcontext.OrgID(ctx), processID, documentID, sourceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) handleSkipDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, documentID, ok := h.documentIDs(w, r)
	if !ok {
		return
	}

	doc, err := h.service.SkipDocument(ctx, requestcontext.OrgID(ctx), processID, documentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) handleReviewDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, documentID, ok := h.documentIDs(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*ReviewDocumentRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	doc, err := h.service.ReviewDocument(ctx, requestcontext.OrgID(ctx), processID, documentID, docmodels.Decision(req.Decision), req.Note)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to review document",
			"process_id", processID.String(),
			"document_id", documentID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromDocument(doc))
}

func (h *Handler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}

	alerts, err := h.service.Alerts(ctx, requestcontext.OrgID(ctx), processID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]AlertResponse{"alerts": FromAlerts(alerts)})
}

func (h *Handler) handleRaiseAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*RaiseAlertRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	var documentID *id.DocumentID
	if req.DocumentID != "" {
		parsed, err := id.ParseDocumentID(req.DocumentID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		documentID = &parsed
	}

	raised, err := h.service.RaiseAlert(ctx, requestcontext.OrgID(ctx), processID, documentID, alertmodels.Category(req.Category), req.Reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to raise alert",
			"process_id", processID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromAlert(raised))
}

func (h *Handler) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*ResolveAlertRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	alertID, err := id.ParseAlertID(req.AlertID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	process, err := h.service.ResolveAlert(ctx, requestcontext.OrgID(ctx), processID, alertID, req.Note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProcess(process))
}

func (h *Handler) handleRejectViaAlert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	processID, ok := h.processID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[*RejectViaAlertRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}
	alertID, err := id.ParseAlertID(req.AlertID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	process, err := h.service.RejectViaAlert(ctx, requestcontext.OrgID(ctx), processID, alertID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProcess(process))
}

func (h *Handler) processID(w http.ResponseWriter, r *http.Request) (id.ProcessID, bool) {
	parsed, err := id.ParseProcessID(chi.URLParam(r, "processID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProcessID{}, false
	}
	return parsed, true
}

func (h *Handler) documentIDs(w http.ResponseWriter, r *http.Request) (id.ProcessID, id.DocumentID, bool) {
	processID, ok := h.processID(w, r)
	if !ok {
		return id.ProcessID{}, id.DocumentID{}, false
	}
	documentID, err := id.ParseDocumentID(chi.URLParam(r, "documentID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProcessID{}, id.DocumentID{}, false
	}
	return processID, documentID, true
}
