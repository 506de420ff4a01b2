package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pinwheelhq/atrium/pkg/accounts"
	"github.com/pinwheelhq/atrium/pkg/audit"
	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/contextkeys"
	"github.com/pinwheelhq/atrium/pkg/observability"
	"github.com/pinwheelhq/atrium/pkg/projects"
	"github.com/pinwheelhq/atrium/pkg/subscriptions"
)

// recordingAudit captures events synchronously for assertions
type recordingAudit struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (a *recordingAudit) LogAsync(event *audit.Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
}

func (a *recordingAudit) Search(ctx context.Context, filter audit.SearchFilter) ([]*audit.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*audit.Event
	for _, e := range a.events {
		if filter.OrganizationID != nil &&
			(e.OrganizationID == nil || *e.OrganizationID != *filter.OrganizationID) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (a *recordingAudit) byType(eventType audit.EventType) []*audit.Event {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*audit.Event
	for _, e := range a.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type stubAccounts struct {
	signupResult *accounts.SignupResult
	signupErr    error
	loginResult  *accounts.LoginResult
	loginErr     error
	profile      *accounts.Profile
	profileErr   error
	invitedUser  *auth.User
	inviteErr    error
	users        []*auth.User
	usersErr     error
	revokeErr    error

	lastTokenID int64
}

func (s *stubAccounts) Signup(ctx context.Context, req *accounts.SignupRequest) (*accounts.SignupResult, error) {
	return s.signupResult, s.signupErr
}

func (s *stubAccounts) Login(ctx context.Context, req *accounts.LoginRequest) (*accounts.LoginResult, error) {
	return s.loginResult, s.loginErr
}

func (s *stubAccounts) Me(ctx context.Context, identity *auth.Identity) (*accounts.Profile, error) {
	return s.profile, s.profileErr
}

func (s *stubAccounts) Invite(ctx context.Context, inviter *auth.Identity, req *accounts.InviteRequest) (*auth.User, error) {
	return s.invitedUser, s.inviteErr
}

func (s *stubAccounts) ListUsers(ctx context.Context, orgID int64) ([]*auth.User, error) {
	return s.users, s.usersErr
}

func (s *stubAccounts) RevokeToken(ctx context.Context, identity *auth.Identity, tokenID int64) error {
	s.lastTokenID = tokenID
	return s.revokeErr
}

type stubProjects struct {
	project   *projects.Project
	list      []*projects.Project
	err       error
	deleteErr error

	lastOrgID     int64
	lastProjectID int64
}

func (s *stubProjects) Create(ctx context.Context, identity *auth.Identity, req *projects.CreateProjectRequest) (*projects.Project, error) {
	s.lastOrgID = identity.OrganizationID
	return s.project, s.err
}

func (s *stubProjects) Get(ctx context.Context, orgID, projectID int64) (*projects.Project, error) {
	s.lastOrgID, s.lastProjectID = orgID, projectID
	return s.project, s.err
}

func (s *stubProjects) List(ctx context.Context, orgID int64) ([]*projects.Project, error) {
	s.lastOrgID = orgID
	return s.list, s.err
}

func (s *stubProjects) Update(ctx context.Context, orgID, projectID int64, req *projects.UpdateProjectRequest) (*projects.Project, error) {
	s.lastOrgID, s.lastProjectID = orgID, projectID
	return s.project, s.err
}

func (s *stubProjects) Delete(ctx context.Context, orgID, projectID int64) error {
	s.lastOrgID, s.lastProjectID = orgID, projectID
	return s.deleteErr
}

type stubSubscriptions struct {
	plans        []*subscriptions.Plan
	plan         *subscriptions.Plan
	subscription *subscriptions.Subscription
	upgradeErr   error
	err          error
}

func (s *stubSubscriptions) ListPlans(ctx context.Context) ([]*subscriptions.Plan, error) {
	return s.plans, s.err
}

func (s *stubSubscriptions) Upgrade(ctx context.Context, orgID, planID int64) (*subscriptions.Subscription, *subscriptions.Plan, error) {
	if s.upgradeErr != nil {
		return nil, nil, s.upgradeErr
	}
	return s.subscription, s.plan, nil
}

func (s *stubSubscriptions) GetSubscription(ctx context.Context, orgID int64) (*subscriptions.Subscription, error) {
	return s.subscription, s.err
}

func (s *stubSubscriptions) ActivePlan(ctx context.Context, orgID int64) (*subscriptions.Plan, error) {
	return s.plan, s.err
}

func testMetrics() *observability.Metrics {
	return observability.NewMetrics(prometheus.NewRegistry())
}

func withIdentity(r *http.Request, identity *auth.Identity) *http.Request {
	return r.WithContext(contextkeys.WithIdentity(r.Context(), identity))
}

func ownerIdentity() *auth.Identity {
	return &auth.Identity{UserID: 1, OrganizationID: 42, Role: auth.RoleOwner, Username: "alice"}
}

func memberIdentity() *auth.Identity {
	return &auth.Identity{UserID: 5, OrganizationID: 42, Role: auth.RoleMember, Username: "bob"}
}
