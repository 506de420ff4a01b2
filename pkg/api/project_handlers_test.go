package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinwheelhq/atrium/pkg/audit"
	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/errs"
	"github.com/pinwheelhq/atrium/pkg/policy"
	"github.com/pinwheelhq/atrium/pkg/projects"
	"github.com/pinwheelhq/atrium/pkg/quota"
)

func newProjectHandlers(svc *stubProjects) (*ProjectHandlers, *recordingAudit) {
	auditLog := &recordingAudit{}
	return NewProjectHandlers(svc, policy.New(), auditLog, testMetrics()), auditLog
}

func sampleProject() *projects.Project {
	return &projects.Project{
		ID: 3, Name: "api-gateway", OrganizationID: 42, CreatedBy: 1,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
}

func TestCreateProjectHandler(t *testing.T) {
	svc := &stubProjects{project: sampleProject()}
	h, auditLog := newProjectHandlers(svc)

	w := httptest.NewRecorder()
	r := withIdentity(httptest.NewRequest("POST", "/api/v1/projects",
		strings.NewReader(`{"name":"api-gateway"}`)), ownerIdentity())
	h.Create(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(42), svc.lastOrgID)
	require.Len(t, auditLog.byType(audit.EventTypeProjectCreated), 1)
}

func TestCreateProjectHandlerMemberDenied(t *testing.T) {
	h, auditLog := newProjectHandlers(&stubProjects{})

	w := httptest.NewRecorder()
	r := withIdentity(httptest.NewRequest("POST", "/api/v1/projects",
		strings.NewReader(`{"name":"nope"}`)), memberIdentity())
	h.Create(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Len(t, auditLog.byType(audit.EventTypeAccessDenied), 1)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(h.metrics.AuthzDenialsTotal.WithLabelValues("create", "project")))
}

func TestCreateProjectHandlerQuotaExceeded(t *testing.T) {
	svc := &stubProjects{err: &quota.QuotaExceededError{
		Resource: quota.ResourceProject, Current: 2, Limit: 2,
	}}
	h, auditLog := newProjectHandlers(svc)

	w := httptest.NewRecorder()
	r := withIdentity(httptest.NewRequest("POST", "/api/v1/projects",
		strings.NewReader(`{"name":"one-too-many"}`)), ownerIdentity())
	h.Create(w, r)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Len(t, auditLog.byType(audit.EventTypeQuotaDenied), 1)
	assert.Equal(t, float64(1),
		testutil.ToFloat64(h.metrics.QuotaDenialsTotal.WithLabelValues("project")))
}

func TestListProjectsHandler(t *testing.T) {
	svc := &stubProjects{list: []*projects.Project{sampleProject()}}
	h, _ := newProjectHandlers(svc)

	w := httptest.NewRecorder()
	r := withIdentity(httptest.NewRequest("GET", "/api/v1/projects", nil), memberIdentity())
	h.List(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(42), svc.lastOrgID)

	var list []*projects.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)
}

func TestGetProjectHandlerScopesToCallerOrg(t *testing.T) {
	svc := &stubProjects{project: sampleProject()}
	h, _ := newProjectHandlers(svc)

	w := httptest.NewRecorder()
	r := withIdentity(httptest.NewRequest("GET", "/api/v1/projects/3", nil), memberIdentity())
	r = mux.SetURLVars(r, map[string]string{"id": "3"})
	h.Get(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(42), svc.lastOrgID)
	assert.Equal(t, int64(3), svc.lastProjectID)
}

func TestGetProjectHandlerNotFound(t *testing.T) {
	svc := &stubProjects{err: errs.ErrNotFound}
	h, _ := newProjectHandlers(svc)

	w := httptest.NewRecorder()
	r := withIdentity(httptest.NewRequest("GET", "/api/v1/projects/999", nil), ownerIdentity())
	r = mux.SetURLVars(r, map[string]string{"id": "999"})
	h.Get(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProjectHandler(t *testing.T) {
	svc := &stubProjects{project: sampleProject()}
	h, auditLog := newProjectHandlers(svc)

	admin := &auth.Identity{UserID: 7, OrganizationID: 42, Role: auth.RoleAdmin}
	w := httptest.NewRecorder()
	r := withIdentity(httptest.NewRequest("PATCH", "/api/v1/projects/3",
		strings.NewReader(`{"name":"renamed"}`)), admin)
	r = mux.SetURLVars(r, map[string]string{"id": "3"})
	h.Update(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, auditLog.byType(audit.EventTypeProjectUpdated), 1)
}

func TestDeleteProjectHandlerOwnerOnly(t *testing.T) {
	svc := &stubProjects{}
	h, auditLog := newProjectHandlers(svc)

	w := httptest.NewRecorder()
	r := withIdentity(httptest.NewRequest("DELETE", "/api/v1/projects/3", nil), ownerIdentity())
	r = mux.SetURLVars(r, map[string]string{"id": "3"})
	h.Delete(w, r)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, auditLog.byType(audit.EventTypeProjectDeleted), 1)
}

func TestDeleteProjectHandlerAdminDenied(t *testing.T) {
	h, _ := newProjectHandlers(&stubProjects{})

	admin := &auth.Identity{UserID: 7, OrganizationID: 42, Role: auth.RoleAdmin}
	w := httptest.NewRecorder()
	r := withIdentity(httptest.NewRequest("DELETE", "/api/v1/projects/3", nil), admin)
	r = mux.SetURLVars(r, map[string]string{"id": "3"})
	h.Delete(w, r)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
