package handlers

import (
	"net/http"

	apierrors "github.com/svarovsky7/GarantHUB-sub002/internal/api/errors"
	"github.com/svarovsky7/GarantHUB-sub002/internal/domain/model"
)

// meResponse — профиль текущего пользователя и права его роли.
type meResponse struct {
	Profile     *model.Profile        `json:"profile"`
	Permissions *model.RolePermission `json:"permissions"`
}

// GetMe — GET /me.
func (h *APIHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u := user(r)
	writeJSON(w, http.StatusOK, meResponse{Profile: u.Profile, Permissions: u.Permissions})
}

// GetMyStats — GET /me/stats.
func (h *APIHandler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Profiles.Stats(r.Context(), user(r).ID())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// --- Администрирование пользователей (ADMIN) ---

// ListUsers — GET /users.
func (h *APIHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Profiles.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// GetUser — GET /users/{userID}.
func (h *APIHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Profiles.Get(r.Context(), chiParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetUserStats — GET /users/{userID}/stats.
func (h *APIHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID := chiParam(r, "userID")
	if _, err := h.svc.Profiles.Get(r.Context(), userID); err != nil {
		h.fail(w, err)
		return
	}
	st, err := h.svc.Profiles.Stats(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// UpdateUser — PATCH /users/{userID}: имя, роль, назначенные проекты.
func (h *APIHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var patch model.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	p, err := h.svc.Profiles.Update(r.Context(), chiParam(r, "userID"), patch)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// DeleteUser — DELETE /users/{userID}. Удалить себя нельзя.
func (h *APIHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := chiParam(r, "userID")
	if userID == user(r).ID() {
		apierrors.Conflict(w, "Нельзя удалить собственный профиль")
		return
	}
	if err := h.svc.Profiles.Delete(r.Context(), userID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Права ролей ---

// ListRolePermissions — GET /role-permissions.
func (h *APIHandler) ListRolePermissions(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Permissions.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// UpdateRolePermission — PUT /role-permissions/{role}.
func (h *APIHandler) UpdateRolePermission(w http.ResponseWriter, r *http.Request) {
	var req model.RolePermission
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Role = chiParam(r, "role")
	p, err := h.svc.Permissions.Update(r.Context(), &req)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
