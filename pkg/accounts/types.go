// Package accounts implements organization signup and membership: the
// signup flow that creates a tenant with its OWNER, password login, the
// invitation workflow and the org-scoped member listing.
package accounts

import "github.com/pinwheelhq/atrium/pkg/auth"

// SignupRequest creates a new organization with its OWNER user
type SignupRequest struct {
	OrganizationName string `json:"organization_name"`
	Username         string `json:"username"`
	Email            string `json:"email"`
	Password         string `json:"password"`
}

// SignupResult is returned once after a successful signup. Token is the
// plaintext API token; it is never recoverable afterwards.
type SignupResult struct {
	User         *auth.User         `json:"user"`
	Organization *auth.Organization `json:"organization"`
	Token        string             `json:"token"`
}

// LoginRequest exchanges a password for a fresh API token
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResult carries the authenticated user and the plaintext token
type LoginResult struct {
	User  *auth.User `json:"user"`
	Token string     `json:"token"`
}

// InviteRequest adds a user to the inviter's organization
type InviteRequest struct {
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     auth.Role `json:"role"`
}

// Profile is the identity projection served by the me endpoint
type Profile struct {
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	Role             auth.Role `json:"role"`
	OrganizationName string    `json:"organization_name"`
}
