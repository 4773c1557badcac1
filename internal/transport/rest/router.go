package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/spine-admin/internal/auth"
	"github.com/frahmantamala/spine-admin/internal/metrics"
	"github.com/frahmantamala/spine-admin/internal/rbac"
	"github.com/frahmantamala/spine-admin/internal/transport/middleware"
	"github.com/frahmantamala/spine-admin/internal/transport/swagger"
	"github.com/frahmantamala/spine-admin/internal/user"
)

// Handlers groups everything the router mounts. Nil handlers leave their routes unregistered.
type Handlers struct {
	Health *HealthHandler
	Auth   *auth.Handler
	User   *user.Handler
	RBAC   *rbac.Handler
	Authz  *rbac.RBACAuthorization
	Audit  *AuditHandler
}

type Options struct {
	AllowedOrigins []string
	Metrics        *metrics.Metrics
	MetricsPath    string
	OpenAPI        []byte
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics))
	}
	router.Use(middleware.LoggingMiddleware(logger))
	router.NotFound(NotFound)

	// Serve OpenAPI document and Swagger UI at root (outside API prefix)
	if len(opts.OpenAPI) > 0 {
		router.Get("/openapi.yml", swagger.DocumentHandler(opts.OpenAPI))
		router.Handle("/swagger/*", swagger.Handler())
	}

	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, opts.Metrics.Handler())
	}

	// Mount API under /api/v1 to match OpenAPI server url
	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth == nil {
			return
		}

		// Public auth routes
		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/register", h.Auth.Register)
			ar.Post("/login", h.Auth.Login)
			ar.Post("/refresh", h.Auth.Refresh)
			ar.Get("/departments", h.Auth.Departments)
		})

		// Protected routes that require a bearer access token
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.UserContext)

			pr.Post("/auth/logout", h.Auth.Logout)
			pr.Get("/auth/profile", h.Auth.Profile)
			pr.Post("/auth/change-password", h.Auth.ChangePassword)
			pr.Post("/auth/update-email", h.Auth.UpdateEmail)

			if h.RBAC != nil {
				pr.Get("/users/me/access", h.RBAC.MyAccess)
				pr.Get("/users/me/permissions/check", h.RBAC.CheckMyPermission)
			}

			if h.Authz == nil {
				return
			}

			if h.RBAC != nil {
				pr.With(h.Authz.RequireFinanceDashboard()).Get("/dashboards/finance", h.RBAC.FinanceDashboard)
				pr.With(h.Authz.RequireOperationsDashboard()).Get("/dashboards/operations", h.RBAC.OperationsDashboard)
			}
			if h.Audit != nil {
				pr.With(h.Authz.RequireAuditLogs()).Get("/audit/events", h.Audit.ListEvents)
			}

			// User and role administration
			pr.Group(func(mr chi.Router) {
				mr.Use(h.Authz.RequireManageUsers())

				mr.Post("/admin/users", h.Auth.CreateUser)
				if h.User != nil {
					mr.Get("/admin/users", h.User.ListUsers)
					mr.Get("/admin/users/basic", h.User.ListBasicInfo)
					mr.Put("/admin/users/roles", h.User.BulkUpdateRoles)
					mr.Get("/admin/users/{id}", h.User.GetUser)
					mr.Put("/admin/users/{id}/role", h.User.UpdateUserRole)
					mr.Get("/admin/roles", h.User.ListRoles)
					mr.Get("/admin/stats", h.User.Stats)
				}

				if h.RBAC != nil {
					mr.Route("/roles", func(rr chi.Router) {
						rr.Get("/", h.RBAC.ListRoles)
						rr.Post("/", h.RBAC.CreateRole)
						rr.Get("/all", h.RBAC.ListAllRoles)
						rr.Get("/{id}", h.RBAC.GetRole)
						rr.Put("/{id}", h.RBAC.UpdateRole)
						rr.Delete("/{id}", h.RBAC.DeactivateRole)
						rr.With(h.Authz.RequireAdmin()).Delete("/{id}/permanent", h.RBAC.DeleteRolePermanently)
						rr.Get("/{id}/permissions", h.RBAC.GetRolePermissions)
						rr.Put("/{id}/permissions", h.RBAC.SetRolePermissions)
					})
					mr.Get("/permissions", h.RBAC.ListPermissions)
				}
			})
		})
	})
}

// NotFound keeps unknown routes on the JSON envelope.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"success": false,
		"message": "Route not found",
		"code":    "NOT_FOUND",
	})
}
