package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pinwheelhq/atrium/pkg/audit"
	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/httputil"
	"github.com/pinwheelhq/atrium/pkg/middleware"
	"github.com/pinwheelhq/atrium/pkg/observability"
	"github.com/pinwheelhq/atrium/pkg/policy"
	"github.com/pinwheelhq/atrium/pkg/projects"
	"github.com/pinwheelhq/atrium/pkg/quota"
)

// ProjectHandlers serves org-scoped project CRUD endpoints
type ProjectHandlers struct {
	projects ProjectService
	policy   *policy.Policy
	audit    AuditRecorder
	metrics  *observability.Metrics
}

// NewProjectHandlers creates project handlers
func NewProjectHandlers(projectsSvc ProjectService, authz *policy.Policy, auditLog AuditRecorder, metrics *observability.Metrics) *ProjectHandlers {
	return &ProjectHandlers{
		projects: projectsSvc,
		policy:   authz,
		audit:    auditLog,
		metrics:  metrics,
	}
}

// RegisterRoutes registers the project routes
func (h *ProjectHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/projects", h.Create).Methods("POST")
	router.HandleFunc("/projects", h.List).Methods("GET")
	router.HandleFunc("/projects/{id:[0-9]+}", h.Get).Methods("GET")
	router.HandleFunc("/projects/{id:[0-9]+}", h.Update).Methods("PATCH", "PUT")
	router.HandleFunc("/projects/{id:[0-9]+}", h.Delete).Methods("DELETE")
}

// authorize applies the role table and records denials
func (h *ProjectHandlers) authorize(w http.ResponseWriter, r *http.Request, action policy.Action) *auth.Identity {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteDomainError(w, errs.ErrUnauthenticated)
		return nil
	}

	if !h.policy.Authorize(identity.Role, action) {
		h.metrics.AuthzDenialsTotal.WithLabelValues(string(action), "project").Inc()

		event := audit.NewEvent(r.Context(), audit.EventTypeAccessDenied, audit.EventStatusDenied)
		event.ActorID = &identity.UserID
		event.OrganizationID = &identity.OrganizationID
		event.Resource = "project"
		event.Message = string(action) + " denied"
		h.audit.LogAsync(event)

		httputil.WriteDomainError(w, errs.ErrForbidden)
		return nil
	}

	return identity
}

func (h *ProjectHandlers) auditProject(r *http.Request, identity *auth.Identity, eventType audit.EventType, projectID int64) {
	event := audit.NewEvent(r.Context(), eventType, audit.EventStatusSuccess)
	event.ActorID = &identity.UserID
	event.OrganizationID = &identity.OrganizationID
	event.Resource = "project"
	event.ResourceID = strconv.FormatInt(projectID, 10)
	h.audit.LogAsync(event)
}

// Create creates a project in the caller's organization
func (h *ProjectHandlers) Create(w http.ResponseWriter, r *http.Request) {
	identity := h.authorize(w, r, policy.ActionCreate)
	if identity == nil {
		return
	}

	var req projects.CreateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	project, err := h.projects.Create(r.Context(), identity, &req)
	if err != nil {
		if quota.IsQuotaExceeded(err) {
			h.metrics.QuotaDenialsTotal.WithLabelValues("project").Inc()

			event := audit.NewEvent(r.Context(), audit.EventTypeQuotaDenied, audit.EventStatusDenied)
			event.ActorID = &identity.UserID
			event.OrganizationID = &identity.OrganizationID
			event.Resource = "project"
			event.Message = err.Error()
			h.audit.LogAsync(event)
		}
		httputil.WriteDomainError(w, err)
		return
	}

	h.auditProject(r, identity, audit.EventTypeProjectCreated, project.ID)
	httputil.WriteCreated(w, project)
}

// List returns the organization's projects
func (h *ProjectHandlers) List(w http.ResponseWriter, r *http.Request) {
	identity := h.authorize(w, r, policy.ActionRead)
	if identity == nil {
		return
	}

	list, err := h.projects.List(r.Context(), identity.OrganizationID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, list)
}

// Get returns a single project
func (h *ProjectHandlers) Get(w http.ResponseWriter, r *http.Request) {
	identity := h.authorize(w, r, policy.ActionRead)
	if identity == nil {
		return
	}

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	project, err := h.projects.Get(r.Context(), identity.OrganizationID, projectID)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	httputil.WriteSuccess(w, project)
}

// Update modifies a project's mutable fields
func (h *ProjectHandlers) Update(w http.ResponseWriter, r *http.Request) {
	identity := h.authorize(w, r, policy.ActionUpdate)
	if identity == nil {
		return
	}

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req projects.UpdateProjectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	project, err := h.projects.Update(r.Context(), identity.OrganizationID, projectID, &req)
	if err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	h.auditProject(r, identity, audit.EventTypeProjectUpdated, project.ID)
	httputil.WriteSuccess(w, project)
}

// Delete removes a project, owners only per the role table
func (h *ProjectHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	identity := h.authorize(w, r, policy.ActionDelete)
	if identity == nil {
		return
	}

	projectID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := h.projects.Delete(r.Context(), identity.OrganizationID, projectID); err != nil {
		httputil.WriteDomainError(w, err)
		return
	}

	h.auditProject(r, identity, audit.EventTypeProjectDeleted, projectID)
	httputil.WriteNoContent(w)
}
