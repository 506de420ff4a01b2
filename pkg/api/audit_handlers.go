package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pinwheelhq/atrium/pkg/audit"
	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/httputil"
	"github.com/pinwheelhq/atrium/pkg/middleware"
	"github.com/pinwheelhq/atrium/pkg/observability"
	"github.com/pinwheelhq/atrium/pkg/policy"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

// AuditHandlers serves the owner-facing audit trail
type AuditHandlers struct {
	audit   AuditLog
	policy  *policy.Policy
	metrics *observability.Metrics
}

// NewAuditHandlers creates audit handlers
func NewAuditHandlers(auditLog AuditLog, authz *policy.Policy, metrics *observability.Metrics) *AuditHandlers {
	return &AuditHandlers{
		audit:   auditLog,
		policy:  authz,
		metrics: metrics,
	}
}

// RegisterRoutes registers the authenticated audit routes
func (h *AuditHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/audit", h.List).Methods("GET")
}

// List returns the caller organization's audit events, newest first. The
// organization filter is stamped from the caller's identity; events from
// other organizations are never reachable.
func (h *AuditHandlers) List(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteDomainError(w, errs.ErrUnauthenticated)
		return
	}

	if !h.policy.CanViewAudit(identity.Role) {
		h.metrics.AuthzDenialsTotal.WithLabelValues("read", "audit").Inc()

		event := audit.NewEvent(r.Context(), audit.EventTypeAccessDenied, audit.EventStatusDenied)
		event.ActorID = &identity.UserID
		event.OrganizationID = &identity.OrganizationID
		event.Resource = "audit"
		event.Message = "audit list denied"
		h.audit.LogAsync(event)

		httputil.WriteDomainError(w, errs.ErrForbidden)
		return
	}

	filter := audit.SearchFilter{
		OrganizationID: &identity.OrganizationID,
		Limit:          httputil.ParseQueryInt(r, "limit", defaultAuditPageSize),
		Offset:         httputil.ParseQueryInt(r, "offset", 0),
	}
	if filter.Limit <= 0 || filter.Limit > maxAuditPageSize {
		filter.Limit = defaultAuditPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if eventType := r.URL.Query().Get("event_type"); eventType != "" {
		filter.EventTypes = []audit.EventType{audit.EventType(eventType)}
	}

	events, err := h.audit.Search(r.Context(), filter)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}
	if events == nil {
		events = []*audit.Event{}
	}

	httputil.WriteSuccess(w, events)
}
