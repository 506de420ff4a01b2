package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pinwheelhq/atrium/pkg/audit"
	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/httputil"
	"github.com/pinwheelhq/atrium/pkg/middleware"
	"github.com/pinwheelhq/atrium/pkg/observability"
	"github.com/pinwheelhq/atrium/pkg/policy"
)

// SubscriptionHandlers serves plan listing and subscription management
type SubscriptionHandlers struct {
	subscriptions SubscriptionService
	policy        *policy.Policy
	audit         AuditRecorder
	metrics       *observability.Metrics
}

// NewSubscriptionHandlers creates subscription handlers
func NewSubscriptionHandlers(subscriptionsSvc SubscriptionService, authz *policy.Policy, auditLog AuditRecorder, metrics *observability.Metrics) *SubscriptionHandlers {
	return &SubscriptionHandlers{
		subscriptions: subscriptionsSvc,
		policy:        authz,
		audit:         auditLog,
		metrics:       metrics,
	}
}

// RegisterRoutes registers the subscription routes
func (h *SubscriptionHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/plans", h.ListPlans).Methods("GET")
	router.HandleFunc("/subscription", h.GetSubscription).Methods("GET")
	router.HandleFunc("/subscriptions/upgrade", h.Upgrade).Methods("POST")
}

// ListPlans returns the active plan catalog
func (h *SubscriptionHandlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.subscriptions.ListPlans(r.Context())
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, plans)
}

// GetSubscription returns the caller organization's subscription and plan.
// Organizations without a subscription row are on the free plan.
func (h *SubscriptionHandlers) GetSubscription(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteDomainError(w, errs.ErrUnauthenticated)
		return
	}

	plan, err := h.subscriptions.ActivePlan(r.Context(), identity.OrganizationID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	subscription, err := h.subscriptions.GetSubscription(r.Context(), identity.OrganizationID)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		httputil.WriteDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, SubscriptionResponse{
		Subscription: subscription,
		Plan:         plan,
	})
}

// Upgrade switches the caller's organization to a new plan
func (h *SubscriptionHandlers) Upgrade(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteDomainError(w, errs.ErrUnauthenticated)
		return
	}

	if !h.policy.CanUpgrade(identity.Role) {
		h.metrics.AuthzDenialsTotal.WithLabelValues("update", "subscription").Inc()

		event := audit.NewEvent(r.Context(), audit.EventTypeAccessDenied, audit.EventStatusDenied)
		event.ActorID = &identity.UserID
		event.OrganizationID = &identity.OrganizationID
		event.Resource = "subscription"
		event.Message = "upgrade denied"
		h.audit.LogAsync(event)

		httputil.WriteDomainError(w, errs.ErrForbidden)
		return
	}

	var req UpgradeRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	subscription, plan, err := h.subscriptions.Upgrade(r.Context(), identity.OrganizationID, req.PlanID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	h.metrics.UpgradesTotal.WithLabelValues(plan.Name).Inc()

	event := audit.NewEvent(r.Context(), audit.EventTypeSubscriptionUpgraded, audit.EventStatusSuccess)
	event.ActorID = &identity.UserID
	event.OrganizationID = &identity.OrganizationID
	event.Resource = "subscription"
	event.ResourceID = strconv.FormatInt(subscription.ID, 10)
	event.Metadata["plan"] = plan.Name
	h.audit.LogAsync(event)

	httputil.WriteSuccess(w, UpgradeResponse{
		Message:  "Subscription upgraded successfully",
		PlanName: plan.Name,
	})
}
