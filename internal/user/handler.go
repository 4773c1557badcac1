package user

import (
	"fmt"
	"net/http"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/rbac"
	"github.com/frahmantamala/spine-admin/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// ListUsers handles GET /admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.ListUsers(r.Context())
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UsersResponse{Success: true, Users: users, Total: len(users)})
}

// GetUser handles GET /admin/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathInt64(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	u, err := h.Service.GetUser(r.Context(), id)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, UserResponse{Success: true, User: u})
}

// ListBasicInfo handles GET /admin/users/basic
func (h *Handler) ListBasicInfo(w http.ResponseWriter, r *http.Request) {
	users, err := h.Service.BasicInfo(r.Context())
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, BasicInfoResponse{Success: true, Users: users})
}

// UpdateUserRole handles PUT /admin/users/{id}/role
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathInt64(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	var dto UpdateRoleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleError(w, r, err)
		return
	}

	role := rbac.NormalizeRoleName(dto.Role)
	h.Logger.InfoContext(r.Context(), "updating user role", "user_id", id, "role", role)
	if !h.Service.UpdateRoleByID(r.Context(), id, role) {
		h.WriteError(w, http.StatusInternalServerError, internal.ErrCodeInternal,
			"Failed to update user role - user not found or database error")
		return
	}
	h.WriteMessage(w, http.StatusOK, "User role updated successfully")
}

// BulkUpdateRoles handles PUT /admin/users/roles
func (h *Handler) BulkUpdateRoles(w http.ResponseWriter, r *http.Request) {
	var dto BulkUpdateRolesDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleError(w, r, err)
		return
	}

	result := h.Service.BulkUpdateRoles(r.Context(), dto.UserIDs, rbac.NormalizeRoleName(dto.Role))
	if !result.Success {
		h.WriteJSON(w, http.StatusInternalServerError, BulkUpdateResponse{
			Success:      false,
			Message:      "Failed to update user roles - some users may not exist or database error",
			UpdatedCount: result.Updated,
			Result:       result,
		})
		return
	}

	h.WriteJSON(w, http.StatusOK, BulkUpdateResponse{
		Success:      true,
		Message:      fmt.Sprintf("Roles updated successfully for %d users", result.Updated),
		UpdatedCount: result.Updated,
		Result:       result,
	})
}

// ListRoles handles GET /admin/roles
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, RolesResponse{Success: true, Roles: h.Service.AvailableRoles()})
}

// Stats handles GET /admin/stats
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.RoleStatistics(r.Context())
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, StatsResponse{Success: true, Stats: stats})
}
