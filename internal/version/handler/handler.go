package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"credentia/internal/version"
	"credentia/internal/version/models"
	id "credentia/pkg/domain"
	"credentia/pkg/platform/httputil"
	"credentia/pkg/requestcontext"
)

// Service defines the interface for version operations.
type Service interface {
	Stage(ctx context.Context, orgID id.OrgID, in version.StageInput) (*models.Version, error)
	Apply(ctx context.Context, orgID id.OrgID, versionID id.VersionID) (*models.Version, error)
	Reject(ctx context.Context, orgID id.OrgID, versionID id.VersionID, reason string) (*models.Version, error)
	Get(ctx context.Context, orgID id.OrgID, versionID id.VersionID) (*models.Version, error)
	ListByProfessional(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) ([]*models.Version, error)
	ListChanges(ctx context.Context, orgID id.OrgID, versionID id.VersionID) ([]models.Change, error)
	Current(ctx context.Context, orgID id.OrgID, professionalID id.ProfessionalID) (*models.Version, error)
}

// Handler exposes the version endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New creates a new version Handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register registers the version routes. Auth and request metadata are
// applied by the parent router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/professionals/{professionalID}/versions", func(r chi.Router) {
		r.Post("/", h.handleStage)
		r.Get("/", h.handleList)
		r.Get("/current", h.handleCurrent)
	})
	r.Route("/versions/{versionID}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Get("/changes", h.handleChanges)
		r.Post("/apply", h.handleApply)
		r.Post("/reject", h.handleReject)
	})
}

func (h *Handler) handleStage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	professionalID, ok := h.professionalID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[*StageRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	staged, err := h.service.Stage(ctx, requestcontext.OrgID(ctx), version.StageInput{
		ProfessionalID: professionalID,
		Snapshot:       req.Snapshot,
		SourceType:     models.SourceType(req.SourceType),
		SourceID:       req.SourceID,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to stage version",
			"professional_id", professionalID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromVersion(staged))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	professionalID, ok := h.professionalID(w, r)
	if !ok {
		return
	}

	versions, err := h.service.ListByProfessional(ctx, requestcontext.OrgID(ctx), professionalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVersions(versions))
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	professionalID, ok := h.professionalID(w, r)
	if !ok {
		return
	}

	current, err := h.service.Current(ctx, requestcontext.OrgID(ctx), professionalID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVersion(current))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}

	found, err := h.service.Get(ctx, requestcontext.OrgID(ctx), versionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVersion(found))
}

func (h *Handler) handleChanges(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}

	changes, err := h.service.ListChanges(ctx, requestcontext.OrgID(ctx), versionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string][]ChangeResponse{"changes": FromChanges(changes)})
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}

	applied, err := h.service.Apply(ctx, requestcontext.OrgID(ctx), versionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to apply version",
			"version_id", versionID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVersion(applied))
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	versionID, ok := h.versionID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[*RejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rejected, err := h.service.Reject(ctx, requestcontext.OrgID(ctx), versionID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVersion(rejected))
}

func (h *Handler) professionalID(w http.ResponseWriter, r *http.Request) (id.ProfessionalID, bool) {
	parsed, err := id.ParseProfessionalID(chi.URLParam(r, "professionalID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.ProfessionalID{}, false
	}
	return parsed, true
}

func (h *Handler) versionID(w http.ResponseWriter, r *http.Request) (id.VersionID, bool) {
	parsed, err := id.ParseVersionID(chi.URLParam(r, "versionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.VersionID{}, false
	}
	return parsed, true
}
