// Package api implements the HTTP surface of the service.
//
// # Overview
//
// The server exposes a versioned JSON API under /api/v1. Signup and login
// are the only unauthenticated operations; every other route resolves the
// caller through a bearer token and scopes all data access to the caller's
// organization.
//
// # Routes
//
//	POST   /api/v1/signup                  create organization + owner
//	POST   /api/v1/login                   exchange password for a token
//	GET    /api/v1/me                      caller profile
//	POST   /api/v1/invite                  invite a user (OWNER, ADMIN)
//	GET    /api/v1/users                   member roster (OWNER only)
//	DELETE /api/v1/tokens/{id}             revoke one of the caller's tokens
//	GET    /api/v1/audit                   audit trail (OWNER only)
//	GET    /api/v1/plans                   plan catalog
//	GET    /api/v1/subscription            current subscription + plan
//	POST   /api/v1/subscriptions/upgrade   switch plans (OWNER only)
//	POST   /api/v1/projects                create project (quota enforced)
//	GET    /api/v1/projects                list projects
//	GET    /api/v1/projects/{id}           get project
//	PATCH  /api/v1/projects/{id}           update project
//	DELETE /api/v1/projects/{id}           delete project (OWNER only)
//
// Handlers depend on the service interfaces in types.go so tests can stub
// the persistence layer.
package api
