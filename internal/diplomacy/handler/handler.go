package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pantheon/internal/diplomacy/models"
	"pantheon/internal/platform/middleware"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

// Service defines the diplomacy operations exposed over HTTP.
type Service interface {
	ProposeRelationship(ctx context.Context, actor id.PlayerID, proposer, target id.CivilizationID, status string, requestedDuration *time.Duration) (*models.Proposal, *models.Relationship, error)
	ListProposals(ctx context.Context, target id.CivilizationID) ([]*models.Proposal, error)
	AcceptProposal(ctx context.Context, actor id.PlayerID, proposalID id.ProposalID) (*models.Relationship, error)
	DeclineProposal(ctx context.Context, actor id.PlayerID, proposalID id.ProposalID) error

	GetRelationship(ctx context.Context, a, b id.CivilizationID) (*models.Relationship, error)
	ListRelationships(ctx context.Context, civID id.CivilizationID) ([]*models.Relationship, error)
	ScheduleBreak(ctx context.Context, actor id.PlayerID, a, b id.CivilizationID) (*models.Relationship, error)
	CancelScheduledBreak(ctx context.Context, actor id.PlayerID, a, b id.CivilizationID) (*models.Relationship, error)
	DeclareWar(ctx context.Context, actor id.PlayerID, aggressor, defender id.CivilizationID) (*models.Relationship, error)
	DeclarePeace(ctx context.Context, actor id.PlayerID, a, b id.CivilizationID) error

	RecordPvPViolation(ctx context.Context, attacker, victim id.CivilizationID) (int, error)
	GetFavorMultiplier(ctx context.Context, attacker, victim id.CivilizationID) float64
}

// Handler serves the diplomacy endpoints.
type Handler struct {
	logger    *slog.Logger
	diplomacy Service
}

// New creates a diplomacy Handler.
func New(diplomacy Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, diplomacy: diplomacy}
}

// Register mounts the diplomacy routes onto the router.
func (h *Handler) Register(r chi.Router) {
	dr := chi.NewRouter()
	dr.Post("/proposals", h.handlePropose)
	dr.Get("/proposals/civilization/{civID}", h.handleListProposals)
	dr.Post("/proposals/{proposalID}/accept", h.handleAccept)
	dr.Post("/proposals/{proposalID}/decline", h.handleDecline)

	dr.Get("/relationships/civilization/{civID}", h.handleListRelationships)
	dr.Get("/relationships/{civA}/{civB}", h.handleGetRelationship)
	dr.Post("/relationships/{civA}/{civB}/break", h.handleScheduleBreak)
	dr.Delete("/relationships/{civA}/{civB}/break", h.handleCancelBreak)

	dr.Post("/wars", h.handleDeclareWar)
	dr.Post("/wars/{civA}/{civB}/peace", h.handleDeclarePeace)

	dr.Post("/violations", h.handleRecordViolation)
	dr.Get("/favor-multiplier/{civA}/{civB}", h.handleFavorMultiplier)

	r.Mount("/diplomacy", dr)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (id.PlayerID, bool) {
	actor := requestcontext.ActorID(r.Context())
	if actor == "" {
		middleware.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "acting player is required"))
		return "", false
	}
	return id.PlayerID(actor), true
}

func (h *Handler) pair(w http.ResponseWriter, r *http.Request) (id.CivilizationID, id.CivilizationID, bool) {
	a, err := id.ParseCivilizationID(chi.URLParam(r, "civA"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid civilization id"))
		return id.CivilizationID{}, id.CivilizationID{}, false
	}
	b, err := id.ParseCivilizationID(chi.URLParam(r, "civB"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid civilization id"))
		return id.CivilizationID{}, id.CivilizationID{}, false
	}
	return a, b, true
}

func (h *Handler) handlePropose(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Proposer        string `json:"proposer"`
		Target          string `json:"target"`
		Status          string `json:"status"`
		DurationSeconds *int64 `json:"duration_seconds,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	proposer, err := id.ParseCivilizationID(req.Proposer)
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid proposer id"))
		return
	}
	target, err := id.ParseCivilizationID(req.Target)
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid target id"))
		return
	}
	var duration *time.Duration
	if req.DurationSeconds != nil {
		d := time.Duration(*req.DurationSeconds) * time.Second
		duration = &d
	}

	proposal, established, err := h.diplomacy.ProposeRelationship(r.Context(), actor, proposer, target, req.Status, duration)
	if err != nil {
		h.writeServiceError(r.Context(), w, "propose relationship", err)
		return
	}
	if established != nil {
		// The counter-offer matched a pending proposal; the relationship
		// exists now.
		middleware.WriteJSON(w, http.StatusOK, map[string]any{"relationship": established})
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]any{"proposal": proposal})
}

func (h *Handler) handleListProposals(w http.ResponseWriter, r *http.Request) {
	civID, err := id.ParseCivilizationID(chi.URLParam(r, "civID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid civilization id"))
		return
	}
	proposals, err := h.diplomacy.ListProposals(r.Context(), civID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "list proposals", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, proposals)
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid proposal id"))
		return
	}
	rel, err := h.diplomacy.AcceptProposal(r.Context(), actor, proposalID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "accept proposal", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rel)
}

func (h *Handler) handleDecline(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	proposalID, err := id.ParseProposalID(chi.URLParam(r, "proposalID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid proposal id"))
		return
	}
	if err := h.diplomacy.DeclineProposal(r.Context(), actor, proposalID); err != nil {
		h.writeServiceError(r.Context(), w, "decline proposal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListRelationships(w http.ResponseWriter, r *http.Request) {
	civID, err := id.ParseCivilizationID(chi.URLParam(r, "civID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid civilization id"))
		return
	}
	rels, err := h.diplomacy.ListRelationships(r.Context(), civID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "list relationships", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rels)
}

func (h *Handler) handleGetRelationship(w http.ResponseWriter, r *http.Request) {
	a, b, ok := h.pair(w, r)
	if !ok {
		return
	}
	rel, err := h.diplomacy.GetRelationship(r.Context(), a, b)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get relationship", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rel)
}

func (h *Handler) handleScheduleBreak(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	a, b, ok := h.pair(w, r)
	if !ok {
		return
	}
	rel, err := h.diplomacy.ScheduleBreak(r.Context(), actor, a, b)
	if err != nil {
		h.writeServiceError(r.Context(), w, "schedule break", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rel)
}

func (h *Handler) handleCancelBreak(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	a, b, ok := h.pair(w, r)
	if !ok {
		return
	}
	rel, err := h.diplomacy.CancelScheduledBreak(r.Context(), actor, a, b)
	if err != nil {
		h.writeServiceError(r.Context(), w, "cancel scheduled break", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rel)
}

func (h *Handler) handleDeclareWar(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Aggressor string `json:"aggressor"`
		Defender  string `json:"defender"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	aggressor, err := id.ParseCivilizationID(req.Aggressor)
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid aggressor id"))
		return
	}
	defender, err := id.ParseCivilizationID(req.Defender)
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid defender id"))
		return
	}

	rel, err := h.diplomacy.DeclareWar(r.Context(), actor, aggressor, defender)
	if err != nil {
		h.writeServiceError(r.Context(), w, "declare war", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, rel)
}

func (h *Handler) handleDeclarePeace(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	a, b, ok := h.pair(w, r)
	if !ok {
		return
	}
	if err := h.diplomacy.DeclarePeace(r.Context(), actor, a, b); err != nil {
		h.writeServiceError(r.Context(), w, "declare peace", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRecordViolation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Attacker string `json:"attacker"`
		Victim   string `json:"victim"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	attacker, err := id.ParseCivilizationID(req.Attacker)
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid attacker id"))
		return
	}
	victim, err := id.ParseCivilizationID(req.Victim)
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid victim id"))
		return
	}

	count, err := h.diplomacy.RecordPvPViolation(r.Context(), attacker, victim)
	if err != nil {
		h.writeServiceError(r.Context(), w, "record violation", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"violation_count": count})
}

func (h *Handler) handleFavorMultiplier(w http.ResponseWriter, r *http.Request) {
	a, b, ok := h.pair(w, r)
	if !ok {
		return
	}
	multiplier := h.diplomacy.GetFavorMultiplier(r.Context(), a, b)
	middleware.WriteJSON(w, http.StatusOK, map[string]float64{"multiplier": multiplier})
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "diplomacy operation failed",
			"action", action, "request_id", requestcontext.RequestID(ctx), "error", err.Error())
	}
	middleware.WriteError(w, err)
}
