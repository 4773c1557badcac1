package auth

import "strings"

const (
	DepartmentFinance     = "Finance"
	DepartmentOperations  = "Operations"
	DepartmentTraceSheets = "Trace Sheets"
)

var validDepartments = []string{DepartmentFinance, DepartmentOperations, DepartmentTraceSheets}

var departmentRoles = map[string][]string{
	"finance":      {"USER", "FINANCE"},
	"operations":   {"USER", "OPERATIONS"},
	"trace sheets": {"USER", "TRACE_SHEETS"},
}

var baseFlags = []string{"read_own_data", "update_own_profile"}

var departmentFlags = map[string][]string{
	"finance":      {"view_financial_reports", "manage_invoices", "view_budgets", "export_financial_data"},
	"operations":   {"view_operations_data", "manage_workflows", "view_processes", "manage_operational_reports"},
	"trace sheets": {"view_trace_data", "manage_documents", "view_audit_trails", "manage_compliance"},
}

var adminFlags = []string{"admin", "userManagement", "departmentManagement"}

func ValidDepartments() []string {
	out := make([]string, len(validDepartments))
	copy(out, validDepartments)
	return out
}

// CanonicalDepartment matches d case-insensitively after trimming.
func CanonicalDepartment(d string) (string, bool) {
	d = strings.TrimSpace(d)
	for _, valid := range validDepartments {
		if strings.EqualFold(valid, d) {
			return valid, true
		}
	}
	return "", false
}

func departmentKey(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}

// RolesForDepartment is the roles claim carried by access tokens. Unknown departments get USER only.
func RolesForDepartment(d string) []string {
	if roles, ok := departmentRoles[departmentKey(d)]; ok {
		out := make([]string, len(roles))
		copy(out, roles)
		return out
	}
	return []string{"USER"}
}

// PermissionFlags is the client-side feature map for a department, widened for administrators.
func PermissionFlags(department string, isAdmin bool) map[string]bool {
	flags := make(map[string]bool)
	for _, f := range baseFlags {
		flags[f] = true
	}
	for _, f := range departmentFlags[departmentKey(department)] {
		flags[f] = true
	}
	if isAdmin {
		for _, f := range adminFlags {
			flags[f] = true
		}
	}
	return flags
}
