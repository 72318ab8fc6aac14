package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pantheon/internal/platform/middleware"
	"pantheon/internal/religion/models"
	id "pantheon/pkg/domain"
	dErrors "pantheon/pkg/domain-errors"
	"pantheon/pkg/requestcontext"
)

// Service defines the religion operations the handler exposes over HTTP.
type Service interface {
	CreateReligion(ctx context.Context, actor id.PlayerID, name, domain string) (*models.Religion, error)
	GetReligion(ctx context.Context, religionID id.ReligionID) (*models.Religion, error)
	GetReligionOf(ctx context.Context, player id.PlayerID) (*models.Religion, error)
	ListReligions(ctx context.Context) ([]*models.Religion, error)
	DeleteReligion(ctx context.Context, actor id.PlayerID, religionID id.ReligionID) error

	Join(ctx context.Context, actor id.PlayerID, religionID id.ReligionID) (*models.Religion, error)
	Leave(ctx context.Context, actor id.PlayerID, religionID id.ReligionID) error
	Kick(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, target id.PlayerID) error
	BanMember(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, target id.PlayerID, reason string, duration *time.Duration) error
	UnbanMember(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, target id.PlayerID) error

	CreateCustomRole(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, name string, permissions models.Permission) (*models.Role, error)
	RenameRole(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, roleID models.RoleID, newName string) error
	ModifyRolePermissions(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, roleID models.RoleID, permissions models.Permission) error
	DeleteRole(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, roleID models.RoleID) error
	AssignRole(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, target id.PlayerID, roleID models.RoleID) error
	TransferFounder(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, newFounder id.PlayerID) error

	AddFractionalPrestige(ctx context.Context, religionID id.ReligionID, amount float64) (int64, error)
	RemovePrestige(ctx context.Context, actor id.PlayerID, religionID id.ReligionID, amount int64) (*models.Religion, error)
	UnlockBlessing(ctx context.Context, religionID id.ReligionID, blessingID string) error
	ActivityLog(ctx context.Context, religionID id.ReligionID) ([]models.ActivityEntry, error)
}

// Handler serves the religion endpoints.
type Handler struct {
	logger   *slog.Logger
	religion Service
}

// New creates a religion Handler.
func New(religion Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, religion: religion}
}

// Register mounts the religion routes onto the router.
func (h *Handler) Register(r chi.Router) {
	rr := chi.NewRouter()
	rr.Post("/", h.handleCreate)
	rr.Get("/", h.handleList)
	rr.Get("/mine", h.handleMine)
	rr.Get("/{religionID}", h.handleGet)
	rr.Delete("/{religionID}", h.handleDelete)
	rr.Get("/{religionID}/activity", h.handleActivity)

	rr.Post("/{religionID}/members", h.handleJoin)
	rr.Delete("/{religionID}/members/me", h.handleLeave)
	rr.Delete("/{religionID}/members/{playerID}", h.handleKick)
	rr.Post("/{religionID}/bans", h.handleBan)
	rr.Delete("/{religionID}/bans/{playerID}", h.handleUnban)

	rr.Post("/{religionID}/roles", h.handleCreateRole)
	rr.Patch("/{religionID}/roles/{roleID}", h.handleUpdateRole)
	rr.Delete("/{religionID}/roles/{roleID}", h.handleDeleteRole)
	rr.Put("/{religionID}/members/{playerID}/role", h.handleAssignRole)
	rr.Post("/{religionID}/founder", h.handleTransferFounder)

	rr.Post("/{religionID}/prestige", h.handleGrantPrestige)
	rr.Post("/{religionID}/prestige/spend", h.handleSpendPrestige)
	rr.Post("/{religionID}/blessings", h.handleUnlockBlessing)

	r.Mount("/religions", rr)
}

func (h *Handler) religionID(w http.ResponseWriter, r *http.Request) (id.ReligionID, bool) {
	religionID, err := id.ParseReligionID(chi.URLParam(r, "religionID"))
	if err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid religion id"))
		return id.ReligionID{}, false
	}
	return religionID, true
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
	ctx := r.Context()
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req struct {
		Name   string `json:"name"`
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	religion, err := h.religion.CreateReligion(ctx, actor, req.Name, req.Domain)
	if err != nil {
		h.writeServiceError(ctx, w, "create religion", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, religion)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	religions, err := h.religion.ListReligions(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "list religions", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, religions)
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religion, err := h.religion.GetReligionOf(r.Context(), actor)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get own religion", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, religion)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	religion, err := h.religion.GetReligion(r.Context(), religionID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get religion", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, religion)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	if err := h.religion.DeleteReligion(r.Context(), actor, religionID); err != nil {
		h.writeServiceError(r.Context(), w, "delete religion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActivity(w http.ResponseWriter, r *http.Request) {
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	entries, err := h.religion.ActivityLog(r.Context(), religionID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "get activity log", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	religion, err := h.religion.Join(r.Context(), actor, religionID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "join religion", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, religion)
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	if err := h.religion.Leave(r.Context(), actor, religionID); err != nil {
		h.writeServiceError(r.Context(), w, "leave religion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleKick(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	target := id.PlayerID(chi.URLParam(r, "playerID"))
	if err := h.religion.Kick(r.Context(), actor, religionID, target); err != nil {
		h.writeServiceError(r.Context(), w, "kick member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleBan(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}

	var req struct {
		PlayerID        string `json:"player_id"`
		Reason          string `json:"reason"`
		DurationSeconds *int64 `json:"duration_seconds,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	var duration *time.Duration
	if req.DurationSeconds != nil {
		d := time.Duration(*req.DurationSeconds) * time.Second
		duration = &d
	}

	if err := h.religion.BanMember(r.Context(), actor, religionID, id.PlayerID(req.PlayerID), req.Reason, duration); err != nil {
		h.writeServiceError(r.Context(), w, "ban member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnban(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	target := id.PlayerID(chi.URLParam(r, "playerID"))
	if err := h.religion.UnbanMember(r.Context(), actor, religionID, target); err != nil {
		h.writeServiceError(r.Context(), w, "unban member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name"`
		Permissions uint32 `json:"permissions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	role, err := h.religion.CreateCustomRole(r.Context(), actor, religionID, req.Name, models.Permission(req.Permissions))
	if err != nil {
		h.writeServiceError(r.Context(), w, "create role", err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, role)
}

func (h *Handler) handleUpdateRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	roleID := models.RoleID(chi.URLParam(r, "roleID"))

	var req struct {
		Name        *string `json:"name,omitempty"`
		Permissions *uint32 `json:"permissions,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Name == nil && req.Permissions == nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "nothing to update"))
		return
	}

	if req.Name != nil {
		if err := h.religion.RenameRole(r.Context(), actor, religionID, roleID, *req.Name); err != nil {
			h.writeServiceError(r.Context(), w, "rename role", err)
			return
		}
	}
	if req.Permissions != nil {
		if err := h.religion.ModifyRolePermissions(r.Context(), actor, religionID, roleID, models.Permission(*req.Permissions)); err != nil {
			h.writeServiceError(r.Context(), w, "modify role permissions", err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeleteRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	roleID := models.RoleID(chi.URLParam(r, "roleID"))
	if err := h.religion.DeleteRole(r.Context(), actor, religionID, roleID); err != nil {
		h.writeServiceError(r.Context(), w, "delete role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}
	target := id.PlayerID(chi.URLParam(r, "playerID"))

	var req struct {
		RoleID string `json:"role_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.religion.AssignRole(r.Context(), actor, religionID, target, models.RoleID(req.RoleID)); err != nil {
		h.writeServiceError(r.Context(), w, "assign role", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleTransferFounder(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}

	var req struct {
		NewFounder string `json:"new_founder"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.religion.TransferFounder(r.Context(), actor, religionID, id.PlayerID(req.NewFounder)); err != nil {
		h.writeServiceError(r.Context(), w, "transfer founder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGrantPrestige is the reward surface external collaborators (ritual
// trackers, favor accrual) call into. Fractional amounts accumulate; the
// response reports how many whole points this call awarded.
func (h *Handler) handleGrantPrestige(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.Amount < 0 {
		middleware.WriteError(w, dErrors.New(dErrors.CodeValidation, "amount must not be negative"))
		return
	}

	awarded, err := h.religion.AddFractionalPrestige(r.Context(), religionID, req.Amount)
	if err != nil {
		h.writeServiceError(r.Context(), w, "grant prestige", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int64{"awarded": awarded})
}

func (h *Handler) handleSpendPrestige(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	religion, err := h.religion.RemovePrestige(r.Context(), actor, religionID, req.Amount)
	if err != nil {
		h.writeServiceError(r.Context(), w, "spend prestige", err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, religion)
}

func (h *Handler) handleUnlockBlessing(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.actor(w, r); !ok {
		return
	}
	religionID, ok := h.religionID(w, r)
	if !ok {
		return
	}

	var req struct {
		BlessingID string `json:"blessing_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.religion.UnlockBlessing(r.Context(), religionID, req.BlessingID); err != nil {
		h.writeServiceError(r.Context(), w, "unlock blessing", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "religion operation failed",
			"action", action, "request_id", requestcontext.RequestID(ctx), "error", err.Error())
	}
	middleware.WriteError(w, err)
}
