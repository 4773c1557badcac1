package rbac_test

import (
	"context"

	"github.com/frahmantamala/spine-admin/internal/rbac"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// recordingGraph counts how often the graph is consulted.
type recordingGraph struct {
	names map[int64]rbac.PermissionSet
	keys  map[int64]rbac.PermissionSet
	calls int
}

func (g *recordingGraph) PermissionsOf(_ context.Context, roleID int64) rbac.PermissionSet {
	g.calls++
	if s, ok := g.names[roleID]; ok {
		return s
	}
	return rbac.NewPermissionSet()
}

func (g *recordingGraph) HasPermission(_ context.Context, roleID int64, name string) bool {
	g.calls++
	return g.names[roleID].Has(name)
}

func (g *recordingGraph) HasResourcePermission(_ context.Context, roleID int64, resource, action string) bool {
	g.calls++
	return g.keys[roleID].Has(rbac.PermissionKey(resource, action))
}

func (g *recordingGraph) HasAnyPermission(_ context.Context, roleID int64, names ...string) bool {
	g.calls++
	for _, n := range names {
		if g.names[roleID].Has(n) {
			return true
		}
	}
	return false
}

func (g *recordingGraph) RoleName(_ context.Context, roleID int64) string {
	return rbac.RoleNameForID(roleID)
}

var _ = Describe("Authorizer", func() {
	var (
		ctx        context.Context
		graph      *recordingGraph
		authorizer *rbac.Authorizer
	)

	const customRole int64 = 10

	BeforeEach(func() {
		ctx = context.Background()
		graph = &recordingGraph{
			names: map[int64]rbac.PermissionSet{
				rbac.FinanceRoleID: rbac.NewPermissionSet("FINANCE_DASHBOARD_ACCESS", "FINANCE_REPORTS_EXPORT", "INVOICE_APPROVE"),
				rbac.ManagerRoleID: rbac.NewPermissionSet("USER_ASSIGN_ROLE", "AUDIT_LOGS_VIEW"),
				customRole:         rbac.NewPermissionSet("CUSTOM_DASH"),
			},
			keys: map[int64]rbac.PermissionSet{
				customRole: rbac.NewPermissionSet("dashboard:operations_access"),
			},
		}
		authorizer = rbac.NewAuthorizer(graph)
	})

	It("allows ADMIN every capability without consulting the graph", func() {
		Expect(authorizer.CanAccessFinanceDashboard(ctx, rbac.AdminRoleID)).To(BeTrue())
		Expect(authorizer.CanAccessOperationsDashboard(ctx, rbac.AdminRoleID)).To(BeTrue())
		Expect(authorizer.CanManageUsers(ctx, rbac.AdminRoleID)).To(BeTrue())
		Expect(authorizer.CanViewAuditLogs(ctx, rbac.AdminRoleID)).To(BeTrue())
		Expect(authorizer.CanApproveInvoices(ctx, rbac.AdminRoleID)).To(BeTrue())
		Expect(authorizer.CanExportFinanceReports(ctx, rbac.AdminRoleID)).To(BeTrue())
		Expect(graph.calls).To(BeZero())
	})

	It("uses permission names for non-admin roles", func() {
		Expect(authorizer.CanAccessFinanceDashboard(ctx, rbac.FinanceRoleID)).To(BeTrue())
		Expect(authorizer.CanExportFinanceReports(ctx, rbac.FinanceRoleID)).To(BeTrue())
		Expect(authorizer.CanApproveInvoices(ctx, rbac.FinanceRoleID)).To(BeTrue())
		Expect(authorizer.CanManageUsers(ctx, rbac.FinanceRoleID)).To(BeFalse())

		Expect(authorizer.CanManageUsers(ctx, rbac.ManagerRoleID)).To(BeTrue())
		Expect(authorizer.CanViewAuditLogs(ctx, rbac.ManagerRoleID)).To(BeTrue())
		Expect(authorizer.CanAccessFinanceDashboard(ctx, rbac.ManagerRoleID)).To(BeFalse())
	})

	It("accepts the resource:action form for dashboards", func() {
		Expect(authorizer.CanAccessOperationsDashboard(ctx, customRole)).To(BeTrue())
		Expect(authorizer.CanAccessFinanceDashboard(ctx, customRole)).To(BeFalse())
	})

	It("denies a role with no grants", func() {
		Expect(authorizer.CanApproveInvoices(ctx, rbac.UserRoleID)).To(BeFalse())
		Expect(authorizer.CanViewAuditLogs(ctx, rbac.UserRoleID)).To(BeFalse())
	})

	It("summarizes access for a role", func() {
		summary := authorizer.AccessSummary(ctx, rbac.ManagerRoleID)
		Expect(summary.RoleName).To(Equal("MANAGER"))
		Expect(summary.Permissions).To(Equal([]string{"AUDIT_LOGS_VIEW", "USER_ASSIGN_ROLE"}))
		Expect(summary.Resources).To(Equal([]string{"audit_logs", "user_assign"}))
		Expect(summary.CanManageUsers).To(BeTrue())
		Expect(summary.CanAccessFinanceDashboard).To(BeFalse())
	})
})
