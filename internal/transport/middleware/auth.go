package middleware

import (
	"net/http"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/pkg/logger"
)

// UserContext adds the authenticated caller's role to the request logger.
// It must run after the bearer middleware.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := internal.PrincipalFromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(),
			"role_id", principal.RoleID,
			"role", principal.RoleName,
			"department", principal.Department)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
