package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pantheon/internal/civilization/models"
	"pantheon/internal/platform/middleware"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

// Service defines the civilization operations exposed over HTTP.
type Service interface {
	CreateCivilization(ctx context.Context, actor id.PlayerID, name string, founderReligion id.ReligionID) (*models.Civilization, error)
	GetCivilization(ctx context.Context, civID id.CivilizationID) (*models.Civilization, error)
	GetCivilizationOf(ctx context.Context, religionID id.ReligionID) (*models.Civilization, error)
	ListCivilizations(ctx context.Context) ([]*models.Civilization, error)
	UpdateProfile(ctx context.Context, actor id.PlayerID, civID id.CivilizationID, icon, description *string) (*models.Civilization, error)
	RemoveReligion(ctx context.Context, actor id.PlayerID, civID id.CivilizationID, religionID id.ReligionID) error
	Disband(ctx context.Context, actor id.PlayerID, civID id.CivilizationID) error

	InviteReligion(ctx context.Context, actor id.PlayerID, civID id.CivilizationID, religionID id.ReligionID) (*models.Invite, error)
	ListInvites(ctx context.Context, religionID id.ReligionID) ([]*models.Invite, error)
	AcceptInvite(ctx context.Context, actor id.PlayerID, inviteID id.InviteID) (*models.Civilization, error)
	DeclineInvite(ctx context.Context, actor id.PlayerID, inviteID id.InviteID) error
}

// Handler serves the civilization endpoints.
type Handler struct {
	logger *slog.Logger
	civs   Service
}

// New creates a civilization Handler.
func New(civs Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, civs: civs}
}

// Register mounts the civilization routes onto the router.
func (h *Handler) Register(r chi.Router) {
	cr := chi.NewRouter()
	cr.Post("/", h.handleCreate)
	cr.Get("/", h.handleList)
	cr.Get("/{civID}", h.handleGet)
	cr.Patch("/{civID}", h.handleUpdateProfile)
	cr.Delete("/{civID}", h.handleDisband)
	cr.Post("/{civID}/invites", h.handleInvite)
	cr.Delete("/{civID}/religions/{religionID}", h.handleRemoveReligion)

	cr.Get("/religion/{religionID}", h.handleGetOf)
	cr.Get("/invites/religion/{religionID}", h.handleListInvites)
	cr.Post("/invites/{inviteID}/accept", h.handleAcceptInvite)
	cr.Post("/invites/{inviteID}/decline", h.handleDeclineInvite)

	r.Mount("/civilizations", cr)
}

func (h *Handler) civID(w http.ResponseWriter, r *http.Request) (id.CivilizationID, bool) {
	civID, err := id.ParseCivilizationID(chi.URLParam(r, "civID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid civilization id"))
		return id.CivilizationID{}, false
	}
	return civID, true
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (id.PlayerID, bool) {
	actor := requestcontext.ActorID(r.Context())
	if actor == "" {
		middleware.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "acting player is required"))
		return "", false
	}
	return id.PlayerID(actor), true
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Name       string `json:"name"`
		ReligionID string `json:"religion_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	religionID, err := id.ParseReligionID(req.ReligionID)
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid religion id"))
		return
	}

	civ, err := h.civs.CreateCivilization(r.Context(), actor, req.Name, religionID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "create civilization", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, civ)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	civs, err := h.civs.ListCivilizations(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "list civilizations", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, civs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}
	civ, err := h.civs.GetCivilization(r.Context(), civID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get civilization", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, civ)
}

func (h *Handler) handleGetOf(w http.ResponseWriter, r *http.Request) {
	religionID, err := id.ParseReligionID(chi.URLParam(r, "religionID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid religion id"))
		return
	}
	civ, err := h.civs.GetCivilizationOf(r.Context(), religionID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get civilization of religion", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, civ)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}

	var req struct {
		Icon        *string `json:"icon,omitempty"`
		Description *string `json:"description,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Icon == nil && req.Description == nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "nothing to update"))
		return
	}

	civ, err := h.civs.UpdateProfile(r.Context(), actor, civID, req.Icon, req.Description)
	if err != nil {
		h.writeServiceError(r.Context(), w, "update civilization profile", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, civ)
}

func (h *Handler) handleDisband(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}
	if err := h.civs.Disband(r.Context(), actor, civID); err != nil {
		h.writeServiceError(r.Context(), w, "disband civilization", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}

	var req struct {
		ReligionID string `json:"religion_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	religionID, err := id.ParseReligionID(req.ReligionID)
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid religion id"))
		return
	}

	invite, err := h.civs.InviteReligion(r.Context(), actor, civID, religionID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "invite religion", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, invite)
}

func (h *Handler) handleRemoveReligion(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	civID, ok := h.civID(w, r)
	if !ok {
		return
	}
	religionID, err := id.ParseReligionID(chi.URLParam(r, "religionID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid religion id"))
		return
	}
	if err := h.civs.RemoveReligion(r.Context(), actor, civID, religionID); err != nil {
		h.writeServiceError(r.Context(), w, "remove religion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListInvites(w http.ResponseWriter, r *http.Request) {
	religionID, err := id.ParseReligionID(chi.URLParam(r, "religionID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid religion id"))
		return
	}
	invites, err := h.civs.ListInvites(r.Context(), religionID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "list invites", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, invites)
}

func (h *Handler) handleAcceptInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	inviteID, err := id.ParseInviteID(chi.URLParam(r, "inviteID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid invite id"))
		return
	}
	civ, err := h.civs.AcceptInvite(r.Context(), actor, inviteID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "accept invite", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, civ)
}

func (h *Handler) handleDeclineInvite(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	inviteID, err := id.ParseInviteID(chi.URLParam(r, "inviteID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid invite id"))
		return
	}
	if err := h.civs.DeclineInvite(r.Context(), actor, inviteID); err != nil {
		h.writeServiceError(r.Context(), w, "decline invite", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "civilization operation failed",
			"action", action, "request_id", requestcontext.RequestID(ctx), "error", err.Error())
	}
	middleware.WriteError(w, err)
}
