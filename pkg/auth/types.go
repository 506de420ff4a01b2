package auth

import "time"

// User represents a member of an organization
type User struct {
	ID             int64      `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email,omitempty"`
	PasswordHash   *string    `json:"-"` // NULL for invited users without a credential
	Role           Role       `json:"role"`
	OrganizationID int64      `json:"organization_id"`
	InvitedBy      *int64     `json:"invited_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

// Organization represents a tenant
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Role represents organization-level roles
type Role string

const (
	RoleOwner  Role = "OWNER"  // Full access, one per signup
	RoleAdmin  Role = "ADMIN"  // Manage resources, no deletes
	RoleMember Role = "MEMBER" // Read-only access
)

// Valid reports whether r is one of the three defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// APIToken represents an API token
type APIToken struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	TokenHash   string     `json:"-"` // Never expose hash
	TokenPrefix string     `json:"token_prefix"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// Identity is the resolved caller: who they are, which tenant they belong to,
// and what role they hold there. Every protected operation receives one.
type Identity struct {
	UserID         int64
	OrganizationID int64
	Role           Role
	Username       string
}
