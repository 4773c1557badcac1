package rbac

import (
	"context"
	"sort"
	"strings"
)

// PermissionGraph is the read side of the role/permission graph.
type PermissionGraph interface {
	PermissionsOf(ctx context.Context, roleID int64) PermissionSet
	HasPermission(ctx context.Context, roleID int64, name string) bool
	HasResourcePermission(ctx context.Context, roleID int64, resource, action string) bool
	HasAnyPermission(ctx context.Context, roleID int64, names ...string) bool
	RoleName(ctx context.Context, roleID int64) string
}

// Authorizer answers the named capability questions the handlers ask.
// ADMIN is allowed everything before the graph is consulted.
type Authorizer struct {
	graph PermissionGraph
}

func NewAuthorizer(graph PermissionGraph) *Authorizer {
	return &Authorizer{graph: graph}
}

func (a *Authorizer) CanAccessFinanceDashboard(ctx context.Context, roleID int64) bool {
	if IsAdmin(roleID) {
		return true
	}
	return a.graph.HasPermission(ctx, roleID, PermFinanceDashboard) ||
		a.graph.HasResourcePermission(ctx, roleID, "dashboard", "finance_access")
}

func (a *Authorizer) CanAccessOperationsDashboard(ctx context.Context, roleID int64) bool {
	if IsAdmin(roleID) {
		return true
	}
	return a.graph.HasPermission(ctx, roleID, PermOperationsDashboard) ||
		a.graph.HasResourcePermission(ctx, roleID, "dashboard", "operations_access")
}

func (a *Authorizer) CanManageUsers(ctx context.Context, roleID int64) bool {
	if IsAdmin(roleID) {
		return true
	}
	return a.graph.HasAnyPermission(ctx, roleID, PermUserCreate, PermUserUpdate, PermUserDelete, PermUserAssignRole)
}

func (a *Authorizer) CanViewAuditLogs(ctx context.Context, roleID int64) bool {
	if IsAdmin(roleID) {
		return true
	}
	return a.graph.HasPermission(ctx, roleID, PermAuditLogsView)
}

func (a *Authorizer) CanApproveInvoices(ctx context.Context, roleID int64) bool {
	if IsAdmin(roleID) {
		return true
	}
	return a.graph.HasPermission(ctx, roleID, PermInvoiceApprove)
}

func (a *Authorizer) CanExportFinanceReports(ctx context.Context, roleID int64) bool {
	if IsAdmin(roleID) {
		return true
	}
	return a.graph.HasPermission(ctx, roleID, PermFinanceReportsExport)
}

type AccessSummary struct {
	RoleID                       int64    `json:"roleId"`
	RoleName                     string   `json:"roleName"`
	Permissions                  []string `json:"permissions"`
	Resources                    []string `json:"resources"`
	CanAccessFinanceDashboard    bool     `json:"canAccessFinanceDashboard"`
	CanAccessOperationsDashboard bool     `json:"canAccessOperationsDashboard"`
	CanManageUsers               bool     `json:"canManageUsers"`
}

// AccessSummary describes everything a role can reach.
func (a *Authorizer) AccessSummary(ctx context.Context, roleID int64) AccessSummary {
	perms := a.graph.PermissionsOf(ctx, roleID)

	resources := make(map[string]struct{})
	for name := range perms {
		resources[resourceOf(name)] = struct{}{}
	}
	resourceList := make([]string, 0, len(resources))
	for r := range resources {
		resourceList = append(resourceList, r)
	}
	sort.Strings(resourceList)

	return AccessSummary{
		RoleID:                       roleID,
		RoleName:                     a.graph.RoleName(ctx, roleID),
		Permissions:                  perms.Sorted(),
		Resources:                    resourceList,
		CanAccessFinanceDashboard:    a.CanAccessFinanceDashboard(ctx, roleID),
		CanAccessOperationsDashboard: a.CanAccessOperationsDashboard(ctx, roleID),
		CanManageUsers:               a.CanManageUsers(ctx, roleID),
	}
}

// USER_ASSIGN_ROLE -> user_assign
func resourceOf(permissionName string) string {
	if i := strings.LastIndex(permissionName, "_"); i > 0 {
		return strings.ToLower(permissionName[:i])
	}
	return strings.ToLower(permissionName)
}
