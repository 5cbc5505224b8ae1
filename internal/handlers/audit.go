package handlers

import (
	"net/http"
	"time"

	"github.com/tillworks/tillguard/internal/models"
	"github.com/tillworks/tillguard/internal/services"
	pkghttp "github.com/tillworks/tillguard/pkg/http"
)

// AuditHandler exposes the security event log to monitoring callers
type AuditHandler struct {
	audit *services.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// EventsResponse wraps a query result.
type EventsResponse struct {
	Events []models.SecurityEvent `json:"events"`
	Count  int                    `json:"count"`
}

// ListEvents returns audit events matching the query parameters
// (identifier, user_id, type, since as RFC3339). All filters are optional
// and combined with AND semantics.
func (h *AuditHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	var filter models.EventFilter

	q := r.URL.Query()
	if v := q.Get("identifier"); v != "" {
		filter.Identifier = &v
	}
	if v := q.Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := q.Get("type"); v != "" {
		filter.Type = &v
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			pkghttp.WriteBadRequest(w, "since must be an RFC3339 timestamp")
			return
		}
		filter.Since = &since
	}

	events := h.audit.Query(filter)
	pkghttp.WriteJSON(w, http.StatusOK, EventsResponse{Events: events, Count: len(events)})
}
