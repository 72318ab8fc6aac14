package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pantheon/internal/milestone/models"
	"pantheon/internal/platform/middleware"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

// Service defines the milestone operations exposed over HTTP.
type Service interface {
	Catalog() []models.Definition
	GetProgress(ctx context.Context, civID id.CivilizationID) (*models.CivState, error)
	CheckMilestones(ctx context.Context, civID id.CivilizationID) ([]models.Definition, error)
	GetActiveBonuses(ctx context.Context, civID id.CivilizationID) (models.Bonuses, error)
	RecordWarKill(ctx context.Context, civID id.CivilizationID) error
	RecordRitual(ctx context.Context, civID id.CivilizationID) error
	RecordHolySite(ctx context.Context, civID id.CivilizationID, count int64, tier int) error
}

// Handler serves the milestone endpoints.
type Handler struct {
	logger     *slog.Logger
	milestones Service
}

// New creates a milestone Handler.
func New(milestones Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, milestones: milestones}
}

// Register mounts the milestone routes onto the router.
func (h *Handler) Register(r chi.Router) {
	mr := chi.NewRouter()
	mr.Get("/catalog", h.handleCatalog)
	mr.Get("/{civID}", h.handleProgress)
	mr.Get("/{civID}/bonuses", h.handleBonuses)
	mr.Post("/{civID}/check", h.handleCheck)
	mr.Post("/{civID}/war-kills", h.handleWarKill)
	mr.Post("/{civID}/rituals", h.handleRitual)
	mr.Put("/{civID}/holy-sites", h.handleHolySites)

	r.Mount("/milestones", mr)
}

func (h *Handler) civID(w http.ResponseWriter, r *http.Request) (id.CivilizationID, bool) {
	civID, err := id.ParseCivilizationID(chi.URLParam(r, "civID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid civilization id"))
		return id.CivilizationID{}, false
	}
	return civID, true
}

func (h *Handler) handleCatalog(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.milestones.Catalog())
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}
	state, err := h.milestones.GetProgress(r.Context(), civID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get milestone progress", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) handleBonuses(w http.ResponseWriter, r *http.Request) {
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}
	bonuses, err := h.milestones.GetActiveBonuses(r.Context(), civID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get active bonuses", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, bonuses)
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}
	completed, err := h.milestones.CheckMilestones(r.Context(), civID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "check milestones", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"completed": completed})
}

func (h *Handler) handleWarKill(w http.ResponseWriter, r *http.Request) {
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}
	if err := h.milestones.RecordWarKill(r.Context(), civID); err != nil {
		h.writeServiceError(r.Context(), w, "record war kill", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRitual(w http.ResponseWriter, r *http.Request) {
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}
	if err := h.milestones.RecordRitual(r.Context(), civID); err != nil {
		h.writeServiceError(r.Context(), w, "record ritual", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHolySites(w http.ResponseWriter, r *http.Request) {
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}

	var req struct {
		Count int64 `json:"count"`
		Tier  int   `json:"tier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Count < 0 || req.Tier < 0 {
		middleware.WriteError(w, dErrors.New(dErrors.CodeValidation, "count and tier must be non-negative"))
		return
	}

	if err := h.milestones.RecordHolySite(r.Context(), civID, req.Count, req.Tier); err != nil {
		h.writeServiceError(r.Context(), w, "record holy sites", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "milestone operation failed",
			"action", action, "request_id", requestcontext.RequestID(ctx), "error", err.Error())
	}
	middleware.WriteError(w, err)
}
