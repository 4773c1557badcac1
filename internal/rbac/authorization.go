package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/metrics"
	"github.com/frahmantamala/spine-admin/internal/transport"
)

// RBACAuthorization turns decision points into chi middleware.
// It expects the bearer middleware to have stored a principal in the request context.
type RBACAuthorization struct {
	*transport.BaseHandler
	authorizer *Authorizer
	graph      PermissionGraph
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

func NewRBACAuthorization(graph PermissionGraph, m *metrics.Metrics, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		authorizer:  NewAuthorizer(graph),
		graph:       graph,
		metrics:     m,
		logger:      logger,
	}
}

func (ra *RBACAuthorization) Authorizer() *Authorizer {
	return ra.authorizer
}

// Require guards next with an arbitrary role predicate; check names the predicate in logs and metrics.
func (ra *RBACAuthorization) Require(check string, allowed func(ctx context.Context, roleID int64) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := internal.PrincipalFromContext(r.Context())
			if !ok {
				ra.logger.Warn("authorization check failed: principal not found in context", "check", check)
				ra.WriteError(w, http.StatusUnauthorized, internal.ErrCodeMissingAuthHeader, "Unauthorized")
				return
			}

			if !allowed(r.Context(), principal.RoleID) {
				ra.logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", principal.UserID,
					"role_id", principal.RoleID,
					"check", check)
				ra.metrics.RecordAuthorizationDenied(check)
				ra.WriteError(w, http.StatusForbidden, internal.ErrCodeInsufficientPermission, "Forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission allows the request when the role holds any of names.
func (ra *RBACAuthorization) RequirePermission(names ...string) func(http.Handler) http.Handler {
	return ra.Require("permission", func(ctx context.Context, roleID int64) bool {
		return ra.graph.HasAnyPermission(ctx, roleID, names...)
	})
}

func (ra *RBACAuthorization) RequireManageUsers() func(http.Handler) http.Handler {
	return ra.Require("manage_users", ra.authorizer.CanManageUsers)
}

func (ra *RBACAuthorization) RequireFinanceDashboard() func(http.Handler) http.Handler {
	return ra.Require("finance_dashboard", ra.authorizer.CanAccessFinanceDashboard)
}

func (ra *RBACAuthorization) RequireOperationsDashboard() func(http.Handler) http.Handler {
	return ra.Require("operations_dashboard", ra.authorizer.CanAccessOperationsDashboard)
}

func (ra *RBACAuthorization) RequireAuditLogs() func(http.Handler) http.Handler {
	return ra.Require("audit_logs", ra.authorizer.CanViewAuditLogs)
}

func (ra *RBACAuthorization) RequireAdmin() func(http.Handler) http.Handler {
	return ra.Require("admin", func(_ context.Context, roleID int64) bool {
		return IsAdmin(roleID)
	})
}
