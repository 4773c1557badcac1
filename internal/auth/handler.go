package auth

import (
	"errors"
	"net/http"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/transport"
	"github.com/frahmantamala/spine-admin/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
	policy  AccountPolicy
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	result, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	result, err := h.Service.Login(r.Context(), dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	result, err := h.Service.RefreshToken(r.Context(), dto.RefreshToken)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// Logout is stateless; clients discard their tokens.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.WriteMessage(w, http.StatusOK, "Logged out successfully")
}

func (h *Handler) Departments(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, DepartmentsResponse{
		Success:              true,
		Departments:          h.Service.ValidDepartments(),
		SelfRegistrableRoles: h.Service.SelfRegistrableRoles(),
	})
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeMissingAuthHeader, "Authentication required")
		return
	}

	username := r.URL.Query().Get("username")
	if err := h.policy.CanActOn(principal, username); err != nil {
		h.WriteError(w, http.StatusForbidden, internal.ErrCodeInsufficientPermission, "Forbidden: insufficient permissions")
		return
	}
	if username == "" {
		username = principal.Username
	}

	view, err := h.Service.Profile(r.Context(), username)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ProfileResponse{Success: true, User: *view})
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeMissingAuthHeader, "Authentication required")
		return
	}

	var dto ChangePasswordDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), principal.Username, dto); err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteMessage(w, http.StatusOK, "Password changed successfully")
}

func (h *Handler) UpdateEmail(w http.ResponseWriter, r *http.Request) {
	principal, ok := internal.PrincipalFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeMissingAuthHeader, "Authentication required")
		return
	}

	var dto UpdateEmailDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	result, err := h.Service.UpdateEmail(r.Context(), principal.Username, dto)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// CreateUser is the administrative account creation endpoint.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleError(w, r, err)
		return
	}

	createdBy := ""
	if principal, ok := internal.PrincipalFromContext(r.Context()); ok {
		createdBy = principal.Username
	}

	view, err := h.Service.CreateUser(r.Context(), dto, createdBy)
	if err != nil {
		h.HandleError(w, r, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, CreateUserResponse{
		Success: true,
		Message: "User created successfully with role: " + view.Role,
		User:    *view,
	})
}

// AuthMiddleware verifies the bearer access token and stores the caller's principal in the context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := h.ExtractTokenFromHeader(r)
		if err != nil {
			h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeMissingAuthHeader, "Missing or malformed Authorization header")
			return
		}

		claims, err := h.Service.ParseAccessToken(token)
		if err != nil {
			logger.From(r.Context()).DebugContext(r.Context(), "rejected bearer token", "error", err)
			switch {
			case errors.Is(err, ErrWrongTokenKind):
				h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeWrongTokenKind, "Refresh tokens cannot be used for API access")
			case errors.Is(err, ErrTokenExpired):
				h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeTokenExpired, "Token has expired")
			default:
				h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeInvalidToken, "Invalid or expired token")
			}
			return
		}

		principal, err := h.Service.ResolvePrincipal(r.Context(), claims.Subject)
		if err != nil {
			if !errors.Is(err, ErrUserNotFound) {
				logger.From(r.Context()).ErrorContext(r.Context(), "failed to resolve principal", "username", claims.Subject, "error", err)
			}
			h.WriteError(w, http.StatusUnauthorized, internal.ErrCodeInvalidToken, "Invalid or expired token")
			return
		}

		ctx := internal.ContextWithPrincipal(r.Context(), principal)
		ctx = logger.With(ctx, "user_id", principal.UserID, "username", principal.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
