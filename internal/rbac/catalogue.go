package rbac

// Permission names checked by the decision points.
const (
	PermUserRead              = "USER_READ"
	PermUserCreate            = "USER_CREATE"
	PermUserUpdate            = "USER_UPDATE"
	PermUserDelete            = "USER_DELETE"
	PermUserAssignRole        = "USER_ASSIGN_ROLE"
	PermInvoiceApprove        = "INVOICE_APPROVE"
	PermFinanceDashboard      = "FINANCE_DASHBOARD_ACCESS"
	PermOperationsDashboard   = "OPERATIONS_DASHBOARD_ACCESS"
	PermFinanceReportsExport  = "FINANCE_REPORTS_EXPORT"
	PermAuditLogsView         = "AUDIT_LOGS_VIEW"
	KeyFinanceDashboardAccess = "dashboard:finance_access"
	KeyOperationsDashboard    = "dashboard:operations_access"
)

var AvailableResources = []string{
	"users", "roles", "invoices", "dashboard", "reports", "trace_sheets", "system", "audit",
}

var AvailableActions = []string{
	"read", "create", "update", "delete", "approve", "reject",
	"assign_role", "assign_permission", "access", "export", "view", "settings",
}

// DefaultPermissions is the catalogue installed by the seeder.
var DefaultPermissions = []Permission{
	{Name: PermUserRead, Resource: "users", Action: "read", Description: "View user accounts"},
	{Name: PermUserCreate, Resource: "users", Action: "create", Description: "Create user accounts"},
	{Name: PermUserUpdate, Resource: "users", Action: "update", Description: "Edit user accounts"},
	{Name: PermUserDelete, Resource: "users", Action: "delete", Description: "Remove user accounts"},
	{Name: PermUserAssignRole, Resource: "users", Action: "assign_role", Description: "Change a user's role"},
	{Name: "ROLE_READ", Resource: "roles", Action: "read", Description: "View roles"},
	{Name: "ROLE_CREATE", Resource: "roles", Action: "create", Description: "Create roles"},
	{Name: "ROLE_UPDATE", Resource: "roles", Action: "update", Description: "Edit roles"},
	{Name: "ROLE_DELETE", Resource: "roles", Action: "delete", Description: "Remove roles"},
	{Name: "ROLE_ASSIGN_PERMISSION", Resource: "roles", Action: "assign_permission", Description: "Grant permissions to roles"},
	{Name: "INVOICE_READ", Resource: "invoices", Action: "read", Description: "View invoices"},
	{Name: "INVOICE_CREATE", Resource: "invoices", Action: "create", Description: "Create invoices"},
	{Name: "INVOICE_UPDATE", Resource: "invoices", Action: "update", Description: "Edit invoices"},
	{Name: "INVOICE_DELETE", Resource: "invoices", Action: "delete", Description: "Remove invoices"},
	{Name: PermInvoiceApprove, Resource: "invoices", Action: "approve", Description: "Approve invoices"},
	{Name: "INVOICE_REJECT", Resource: "invoices", Action: "reject", Description: "Reject invoices"},
	{Name: PermFinanceDashboard, Resource: "dashboard", Action: "finance_access", Description: "Open the finance dashboard"},
	{Name: PermOperationsDashboard, Resource: "dashboard", Action: "operations_access", Description: "Open the operations dashboard"},
	{Name: "FINANCE_REPORTS_VIEW", Resource: "reports", Action: "view", Description: "View finance reports"},
	{Name: PermFinanceReportsExport, Resource: "reports", Action: "export", Description: "Export finance reports"},
	{Name: "TRACE_SHEETS_READ", Resource: "trace_sheets", Action: "read", Description: "View trace sheets"},
	{Name: "TRACE_SHEETS_UPDATE", Resource: "trace_sheets", Action: "update", Description: "Edit trace sheets"},
	{Name: "SYSTEM_SETTINGS", Resource: "system", Action: "settings", Description: "Change system settings"},
	{Name: PermAuditLogsView, Resource: "audit", Action: "view", Description: "View audit logs"},
}

// DefaultGrants maps system roles to their seeded permissions. ADMIN is granted everything.
var DefaultGrants = map[string][]string{
	RoleUser: {"INVOICE_READ", "TRACE_SHEETS_READ"},
	RoleManager: {
		PermUserRead, "INVOICE_READ", PermInvoiceApprove, "INVOICE_REJECT",
		PermOperationsDashboard, "FINANCE_REPORTS_VIEW", "TRACE_SHEETS_READ", "TRACE_SHEETS_UPDATE",
	},
	RoleFinance: {
		"INVOICE_READ", "INVOICE_CREATE", "INVOICE_UPDATE", PermInvoiceApprove,
		PermFinanceDashboard, "FINANCE_REPORTS_VIEW", PermFinanceReportsExport,
	},
}

// SystemRoles are the fixed roles created by the first migration.
var SystemRoles = []Role{
	{ID: UserRoleID, Name: RoleUser, Description: "Standard employee", IsActive: true},
	{ID: AdminRoleID, Name: RoleAdmin, Description: "Full administrative access", IsActive: true},
	{ID: ManagerRoleID, Name: RoleManager, Description: "Team and workflow management", IsActive: true},
	{ID: FinanceRoleID, Name: RoleFinance, Description: "Finance operations", IsActive: true},
}
