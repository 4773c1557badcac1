package rbac

import (
	"net/http"
	"strings"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	Service    ServiceAPI
	authorizer *Authorizer
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
		authorizer:  NewAuthorizer(service),
	}
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	h.listRoles(w, r, false)
}

func (h *Handler) ListAllRoles(w http.ResponseWriter, r *http.Request) {
	h.listRoles(w, r, true)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request, includeInactive bool) {
	roles, err := h.Service.ListRoles(r.Context(), includeInactive)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RoleResponse{Success: true, Roles: roles})
}

func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathInt64(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	role, err := h.Service.GetRole(r.Context(), id)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RoleResponse{Success: true, Role: role})
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleDTO
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	role, err := h.Service.CreateRole(r.Context(), req)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, RoleResponse{Success: true, Message: "Role created successfully", Role: role})
}

func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathInt64(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	var req UpdateRoleDTO
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	role, err := h.Service.UpdateRole(r.Context(), id, req)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RoleResponse{Success: true, Message: "Role updated successfully", Role: role})
}

// DeactivateRole handles DELETE /roles/{id}; the row is kept and marked inactive.
func (h *Handler) DeactivateRole(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathInt64(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	if err := h.Service.DeactivateRole(r.Context(), id); err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "Role deleted successfully")
}

func (h *Handler) DeleteRolePermanently(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathInt64(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	if err := h.Service.DeleteRole(r.Context(), id); err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "Role permanently deleted")
}

func (h *Handler) GetRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathInt64(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	perms, err := h.Service.RolePermissions(r.Context(), id)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Success: true, RoleID: id, Permissions: perms})
}

func (h *Handler) SetRolePermissions(w http.ResponseWriter, r *http.Request) {
	id, err := h.PathInt64(r, "id")
	if err != nil {
		h.HandleError(w, r, err)
		return
	}

	var req SetRolePermissionsDTO
	if err := h.DecodeJSON(r, &req); err != nil {
		h.HandleError(w, r, err)
		return
	}

	perms, err := h.Service.SetRolePermissions(r.Context(), id, req.Permissions)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{
		Success:     true,
		Message:     "Role permissions updated successfully",
		RoleID:      id,
		Permissions: perms,
	})
}

// ListPermissions returns active permissions unless ?all=true.
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	activeOnly := !strings.EqualFold(r.URL.Query().Get("all"), "true")

	perms, err := h.Service.ListPermissions(r.Context(), activeOnly)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, PermissionsResponse{Success: true, Permissions: perms})
}

func (h *Handler) MyAccess(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeMissingAuthHeader, "Unauthorized")
		return
	}
	h.WriteJSON(w, http.StatusOK, AccessSummaryResponse{
		Success: true,
		Access:  h.authorizer.AccessSummary(r.Context(), principal.RoleID),
	})
}

// FinanceDashboard is the entry point of the finance dashboard; the route is gated by RequireFinanceDashboard.
func (h *Handler) FinanceDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, "finance")
}

func (h *Handler) OperationsDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, "operations")
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request, name string) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeMissingAuthHeader, "Unauthorized")
		return
	}
	h.WriteJSON(w, http.StatusOK, DashboardResponse{
		Success:   true,
		Dashboard: name,
		Access:    h.authorizer.AccessSummary(r.Context(), principal.RoleID),
	})
}

// CheckMyPermission handles GET /users/me/permissions/check?permission=NAME.
func (h *Handler) CheckMyPermission(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeMissingAuthHeader, "Unauthorized")
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("permission"))
	if name == "" {
		h.WriteError(w, http.StatusBadRequest, internal.ErrCodeRequiredField, "Permission is required")
		return
	}

	h.WriteJSON(w, http.StatusOK, PermissionCheckResponse{
		Success: true,
		Result:  h.Service.CheckPermission(r.Context(), principal.RoleID, name),
	})
}
