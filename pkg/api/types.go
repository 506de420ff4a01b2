package api

import (
	"context"

	"github.com/pinwheelhq/atrium/pkg/accounts"
	"github.com/pinwheelhq/atrium/pkg/audit"
	"github.com/pinwheelhq/atrium/pkg/auth"
	"github.com/pinwheelhq/atrium/pkg/projects"
	"github.com/pinwheelhq/atrium/pkg/subscriptions"
)

// AccountService covers signup, login and organization membership operations
type AccountService interface {
	Signup(ctx context.Context, req *accounts.SignupRequest) (*accounts.SignupResult, error)
	Login(ctx context.Context, req *accounts.LoginRequest) (*accounts.LoginResult, error)
	Me(ctx context.Context, identity *auth.Identity) (*accounts.Profile, error)
	Invite(ctx context.Context, inviter *auth.Identity, req *accounts.InviteRequest) (*auth.User, error)
	ListUsers(ctx context.Context, orgID int64) ([]*auth.User, error)
	RevokeToken(ctx context.Context, identity *auth.Identity, tokenID int64) error
}

// AuditLog records events off the request path and serves the owner-facing
// audit listing
type AuditLog interface {
	AuditRecorder
	Search(ctx context.Context, filter audit.SearchFilter) ([]*audit.Event, error)
}

// ProjectService covers org-scoped project CRUD
type ProjectService interface {
	Create(ctx context.Context, identity *auth.Identity, req *projects.CreateProjectRequest) (*projects.Project, error)
	Get(ctx context.Context, orgID, projectID int64) (*projects.Project, error)
	List(ctx context.Context, orgID int64) ([]*projects.Project, error)
	Update(ctx context.Context, orgID, projectID int64, req *projects.UpdateProjectRequest) (*projects.Project, error)
	Delete(ctx context.Context, orgID, projectID int64) error
}

// SubscriptionService covers plans and the organization's subscription
type SubscriptionService interface {
	ListPlans(ctx context.Context) ([]*subscriptions.Plan, error)
	Upgrade(ctx context.Context, orgID, planID int64) (*subscriptions.Subscription, *subscriptions.Plan, error)
	GetSubscription(ctx context.Context, orgID int64) (*subscriptions.Subscription, error)
	ActivePlan(ctx context.Context, orgID int64) (*subscriptions.Plan, error)
}

// SignupResponse returns the new organization, owner and the one-time token
type SignupResponse struct {
	Organization *auth.Organization `json:"organization"`
	User         *auth.User         `json:"user"`
	Token        string             `json:"token"`
}

// LoginResponse returns the authenticated user and a fresh token
type LoginResponse struct {
	User  *auth.User `json:"user"`
	Token string     `json:"token"`
}

// UpgradeRequest selects the plan to switch the organization to
type UpgradeRequest struct {
	PlanID int64 `json:"plan_id"`
}

// UpgradeResponse confirms a subscription change
type UpgradeResponse struct {
	Message  string `json:"message"`
	PlanName string `json:"plan_name"`
}

// SubscriptionResponse pairs the subscription with its governing plan
type SubscriptionResponse struct {
	Subscription *subscriptions.Subscription `json:"subscription,omitempty"`
	Plan         *subscriptions.Plan         `json:"plan"`
}
