// Package policy implements the fixed role-permission table.
//
// The table is pure and injected into handlers and services; it performs no
// I/O and holds no mutable state. Object-level checks additionally require
// the caller and resource to share an organization: a cross-organization
// reference is denied regardless of role.
package policy

import "github.com/pinwheelhq/atrium/pkg/auth"

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Policy is the role-permission lookup table.
type Policy struct {
	table map[auth.Role]map[Action]bool
}

// New builds the fixed three-role policy:
//
//	OWNER:  read, update, delete, create
//	ADMIN:  read, update, create
//	MEMBER: read
func New() *Policy {
	return &Policy{
		table: map[auth.Role]map[Action]bool{
			auth.RoleOwner: {
				ActionRead:   true,
				ActionUpdate: true,
				ActionDelete: true,
				ActionCreate: true,
			},
			auth.RoleAdmin: {
				ActionRead:   true,
				ActionUpdate: true,
				ActionCreate: true,
			},
			auth.RoleMember: {
				ActionRead: true,
			},
		},
	}
}

// Authorize reports whether the role may perform the action. Unknown roles
// and unknown actions are denied.
func (p *Policy) Authorize(role auth.Role, action Action) bool {
	perms, ok := p.table[role]
	if !ok {
		return false
	}
	return perms[action]
}

// AuthorizeObject applies the object-level rule: a resource belonging to
// another organization is denied regardless of role, then the coarse table
// applies.
func (p *Policy) AuthorizeObject(role auth.Role, action Action, callerOrgID, resourceOrgID int64) bool {
	if callerOrgID != resourceOrgID {
		return false
	}
	return p.Authorize(role, action)
}

// CanListUsers reports whether the role may list the organization's users.
// Listing the member roster is restricted to the OWNER.
func (p *Policy) CanListUsers(role auth.Role) bool {
	return role == auth.RoleOwner
}

// CanInvite reports whether the role may invite new users.
func (p *Policy) CanInvite(role auth.Role) bool {
	return role == auth.RoleOwner || role == auth.RoleAdmin
}

// CanUpgrade reports whether the role may change the organization's
// subscription. Billing changes are restricted to the OWNER.
func (p *Policy) CanUpgrade(role auth.Role) bool {
	return role == auth.RoleOwner
}

// CanViewAudit reports whether the role may read the organization's audit
// trail. Like the member roster, it is restricted to the OWNER.
func (p *Policy) CanViewAudit(role auth.Role) bool {
	return role == auth.RoleOwner
}

// ValidInviteRole reports whether the role may be granted through an
// invitation. OWNER is never invitable; it exists only via signup.
func (p *Policy) ValidInviteRole(role auth.Role) bool {
	return role == auth.RoleAdmin || role == auth.RoleMember
}
