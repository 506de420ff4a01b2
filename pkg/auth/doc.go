// Package auth provides identity types and API token management.
//
// # Key Components
//
// Identity: the resolved caller, carried through request contexts
//
//	identity := &auth.Identity{
//		UserID:         user.ID,
//		OrganizationID: user.OrganizationID,
//		Role:           user.Role,
//	}
//
// API Tokens: opaque bearer tokens with prefix display and expiration
//
//	// Token format: atrium_[base64url(32 random bytes)]
//	// Stored as SHA256 hash; the plaintext is returned exactly once
//	apiToken, plaintext, err := tokens.IssueToken(ctx, user.ID, nil)
//
// Passwords: bcrypt hashing for signup credentials. Invited users carry a
// NULL hash and cannot authenticate until a credential is set.
//
// # Related Packages
//
//   - pkg/policy: role-based action checks
//   - pkg/middleware: bearer token resolution into request contexts
package auth
