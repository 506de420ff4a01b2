package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/contextkeys"
)

func newAuthMiddleware(t *testing.T) (*AuthMiddleware, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAuthMiddleware(auth.NewTokenManager(db)), mock
}

func okHandler(captured **auth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = IdentityFromRequest(r)
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareResolvesIdentity(t *testing.T) {
	m, mock := newAuthMiddleware(t)

	token, _, _, err := auth.NewTokenGenerator().GenerateToken()
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM api_tokens t").
		WillReturnRows(sqlmock.NewRows([]string{"id", "id", "username", "role", "organization_id"}).
			AddRow(int64(9), int64(1), "alice", "OWNER", int64(42)))
	mock.ExpectExec("UPDATE api_tokens SET last_used_at").
		WillReturnResult(sqlmock.NewResult(0, 1))

	var identity *auth.Identity
	r := httptest.NewRequest("GET", "/api/v1/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	m.Handler(okHandler(&identity)).ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, identity)
	assert.Equal(t, int64(42), identity.OrganizationID)
	assert.Equal(t, auth.RoleOwner, identity.Role)
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	m, _ := newAuthMiddleware(t)

	var identity *auth.Identity
	w := httptest.NewRecorder()
	m.Handler(okHandler(&identity)).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, identity)
}

func TestAuthMiddlewareBadScheme(t *testing.T) {
	m, _ := newAuthMiddleware(t)

	var identity *auth.Identity
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	m.Handler(okHandler(&identity)).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareUnknownToken(t *testing.T) {
	m, mock := newAuthMiddleware(t)

	token, _, _, err := auth.NewTokenGenerator().GenerateToken()
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM api_tokens t").
		WillReturnRows(sqlmock.NewRows([]string{"id", "id", "username", "role", "organization_id"}))

	var identity *auth.Identity
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	m.Handler(okHandler(&identity)).ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name       string
		role       auth.Role
		allowed    []auth.Role
		wantStatus int
	}{
		{"owner allowed", auth.RoleOwner, []auth.Role{auth.RoleOwner}, http.StatusOK},
		{"admin allowed for invite", auth.RoleAdmin, []auth.Role{auth.RoleOwner, auth.RoleAdmin}, http.StatusOK},
		{"member denied for invite", auth.RoleMember, []auth.Role{auth.RoleOwner, auth.RoleAdmin}, http.StatusForbidden},
		{"admin denied for owner only", auth.RoleAdmin, []auth.Role{auth.RoleOwner}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRoles(tt.allowed...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			r := httptest.NewRequest("GET", "/", nil)
			identity := &auth.Identity{UserID: 1, OrganizationID: 42, Role: tt.role}
			r = r.WithContext(contextkeys.WithIdentity(r.Context(), identity))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequireRolesNoIdentity(t *testing.T) {
	handler := RequireOwner()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
