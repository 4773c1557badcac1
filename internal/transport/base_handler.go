package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/pkg/logger"
)

const bearerPrefix = "Bearer "

var ErrMissingAuthHeader = errors.New("missing or malformed authorization header")

// Envelope is the body of every non-success response.
type Envelope struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Code    internal.ErrorCode `json:"code,omitempty"`
	Details interface{}        `json:"details,omitempty"`
}

// MessageResponse is a success body with nothing but a message.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

func (h *BaseHandler) WriteMessage(w http.ResponseWriter, status int, message string) {
	h.WriteJSON(w, status, MessageResponse{Success: true, Message: message})
}

// WriteError writes an error envelope
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, code internal.ErrorCode, message string) {
	h.WriteJSON(w, status, Envelope{Success: false, Message: message, Code: code})
}

// HandleError maps AppErrors to their envelope and hides anything else behind a generic 500.
func (h *BaseHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := internal.IsAppError(err)
	if !ok {
		logger.From(r.Context()).ErrorContext(r.Context(), "unhandled error", "error", err)
		h.WriteError(w, http.StatusInternalServerError, internal.ErrCodeInternal, "Internal server error")
		return
	}

	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.From(r.Context()).ErrorContext(r.Context(), "request failed",
			"code", appErr.Code,
			"message", appErr.Message,
			"error", appErr.Cause)
	}

	h.WriteJSON(w, appErr.StatusCode, Envelope{
		Success: false,
		Message: appErr.GetDetailedMessage(),
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

// DecodeJSON reads the request body into dst; failures are reported as validation errors.
func (h *BaseHandler) DecodeJSON(r *http.Request, dst interface{}) error {
	if r.Body == nil {
		return internal.NewValidationError("Request body is required", internal.ErrCodeInvalidRequestBody)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return internal.NewValidationError("Invalid request body", internal.ErrCodeInvalidRequestBody).WithCause(err)
	}
	return nil
}

// PathInt64 parses a numeric chi URL parameter.
func (h *BaseHandler) PathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.NewValidationError("Invalid "+name, internal.ErrCodeInvalidID)
	}
	return id, nil
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrMissingAuthHeader
	}

	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingAuthHeader
	}
	return token, nil
}
