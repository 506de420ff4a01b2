package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pinwheelhq/atrium/pkg/accounts"
	"github.com/pinwheelhq/atrium/pkg/audit"
	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/httputil"
	"github.com/pinwheelhq/atrium/pkg/middleware"
	"github.com/pinwheelhq/atrium/pkg/observability"
	"github.com/pinwheelhq/atrium/pkg/policy"
	"github.com/pinwheelhq/atrium/pkg/quota"
)

// AccountHandlers serves signup and organization membership endpoints
type AccountHandlers struct {
	accounts AccountService
	policy   *policy.Policy
	audit    AuditRecorder
	metrics  *observability.Metrics
}

// NewAccountHandlers creates account handlers
func NewAccountHandlers(accountsSvc AccountService, authz *policy.Policy, auditLog AuditRecorder, metrics *observability.Metrics) *AccountHandlers {
	return &AccountHandlers{
		accounts: accountsSvc,
		policy:   authz,
		audit:    auditLog,
		metrics:  metrics,
	}
}

// RegisterRoutes registers the authenticated account routes
func (h *AccountHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/me", h.Me).Methods("GET")
	router.HandleFunc("/invite", h.Invite).Methods("POST")
	router.HandleFunc("/users", h.ListUsers).Methods("GET")
	router.HandleFunc("/tokens/{id:[0-9]+}", h.RevokeToken).Methods("DELETE")
}

// Signup creates an organization and its owner in one step
func (h *AccountHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req accounts.SignupRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.accounts.Signup(r.Context(), &req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	h.metrics.SignupsTotal.Inc()

	event := audit.NewEvent(r.Context(), audit.EventTypeSignup, audit.EventStatusSuccess)
	event.ActorID = &result.User.ID
	event.Username = result.User.Username
	event.OrganizationID = &result.Organization.ID
	event.Resource = "organization"
	event.ResourceID = strconv.FormatInt(result.Organization.ID, 10)
	event.Message = "organization created"
	h.audit.LogAsync(event)

	httputil.WriteCreated(w, SignupResponse{
		Organization: result.Organization,
		User:         result.User,
		Token:        result.Token,
	})
}

// Login exchanges a username and password for a fresh API token
func (h *AccountHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req accounts.LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	result, err := h.accounts.Login(r.Context(), &req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	h.metrics.LoginsTotal.Inc()

	event := audit.NewEvent(r.Context(), audit.EventTypeLogin, audit.EventStatusSuccess)
	event.ActorID = &result.User.ID
	event.Username = result.User.Username
	event.OrganizationID = &result.User.OrganizationID
	event.Resource = "user"
	event.ResourceID = strconv.FormatInt(result.User.ID, 10)
	h.audit.LogAsync(event)

	httputil.WriteSuccess(w, LoginResponse{User: result.User, Token: result.Token})
}

// Me returns the caller's profile
func (h *AccountHandlers) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteDomainError(w, errs.ErrUnauthenticated)
		return
	}

	profile, err := h.accounts.Me(r.Context(), identity)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, profile)
}

// Invite adds a user to the caller's organization
func (h *AccountHandlers) Invite(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteDomainError(w, errs.ErrUnauthenticated)
		return
	}

	var req accounts.InviteRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	user, err := h.accounts.Invite(r.Context(), identity, &req)
	if err != nil {
		h.recordInviteDenial(r, identity, err)
		httputil.WriteDomainError(w, err)
		return
	}

	h.metrics.InvitesTotal.WithLabelValues(string(user.Role)).Inc()

	event := audit.NewEvent(r.Context(), audit.EventTypeUserInvited, audit.EventStatusSuccess)
	event.ActorID = &identity.UserID
	event.Username = identity.Username
	event.OrganizationID = &identity.OrganizationID
	event.Resource = "user"
	event.ResourceID = strconv.FormatInt(user.ID, 10)
	event.Metadata["role"] = string(user.Role)
	h.audit.LogAsync(event)

	httputil.WriteCreated(w, user)
}

func (h *AccountHandlers) recordInviteDenial(r *http.Request, identity *auth.Identity, err error) {
	switch {
	case errors.Is(err, errs.ErrForbidden):
		h.metrics.AuthzDenialsTotal.WithLabelValues("create", "user").Inc()

		event := audit.NewEvent(r.Context(), audit.EventTypeAccessDenied, audit.EventStatusDenied)
		event.ActorID = &identity.UserID
		event.OrganizationID = &identity.OrganizationID
		event.Resource = "user"
		event.Message = "invite denied"
		h.audit.LogAsync(event)

	case quota.IsQuotaExceeded(err):
		h.metrics.QuotaDenialsTotal.WithLabelValues("user").Inc()

		event := audit.NewEvent(r.Context(), audit.EventTypeQuotaDenied, audit.EventStatusDenied)
		event.ActorID = &identity.UserID
		event.OrganizationID = &identity.OrganizationID
		event.Resource = "user"
		event.Message = err.Error()
		h.audit.LogAsync(event)
	}
}

// RevokeToken revokes one of the caller's API tokens
func (h *AccountHandlers) RevokeToken(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteDomainError(w, errs.ErrUnauthenticated)
		return
	}

	tokenID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.accounts.RevokeToken(r.Context(), identity, tokenID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	event := audit.NewEvent(r.Context(), audit.EventTypeTokenRevoked, audit.EventStatusSuccess)
	event.ActorID = &identity.UserID
	event.Username = identity.Username
	event.OrganizationID = &identity.OrganizationID
	event.Resource = "api_token"
	event.ResourceID = strconv.FormatInt(tokenID, 10)
	h.audit.LogAsync(event)

	httputil.WriteNoContent(w)
}

// ListUsers returns the organization's member roster, owners only
func (h *AccountHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteDomainError(w, errs.ErrUnauthenticated)
		return
	}

	if !h.policy.CanListUsers(identity.Role) {
		h.metrics.AuthzDenialsTotal.WithLabelValues("read", "user").Inc()

		event := audit.NewEvent(r.Context(), audit.EventTypeAccessDenied, audit.EventStatusDenied)
		event.ActorID = &identity.UserID
		event.OrganizationID = &identity.OrganizationID
		event.Resource = "user"
		event.Message = "user list denied"
		h.audit.LogAsync(event)

		httputil.WriteDomainError(w, errs.ErrForbidden)
		return
	}

	users, err := h.accounts.ListUsers(r.Context(), identity.OrganizationID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, users)
}
