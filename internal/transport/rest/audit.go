package rest

import (
	"net/http"
	"strconv"

	"github.com/frahmantamala/spine-admin/internal"
	"github.com/frahmantamala/spine-admin/internal/core/events"
	"github.com/frahmantamala/spine-admin/internal/transport"
)

const maxAuditPageSize = 200

// AuditHandler serves the in-memory audit trail.
type AuditHandler struct {
	*transport.BaseHandler
	log *events.AuditLog
}

func NewAuditHandler(base *transport.BaseHandler, log *events.AuditLog) *AuditHandler {
	return &AuditHandler{BaseHandler: base, log: log}
}

type AuditEventsResponse struct {
	Success bool                `json:"success"`
	Count   int                 `json:"count"`
	Events  []events.AuditEntry `json:"events"`
}

// ListEvents handles GET /audit/events?limit=N&type=T.
func (h *AuditHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.WriteError(w, http.StatusBadRequest, internal.ErrCodeValidationFailed, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}

	entries := h.log.Recent(limit, r.URL.Query().Get("type"))
	h.WriteJSON(w, http.StatusOK, AuditEventsResponse{Success: true, Count: len(entries), Events: entries})
}
