// Package middleware provides HTTP middleware for authentication, authorization, and rate limiting.
//
// # Overview
//
// This package implements request processing middleware: bearer token
// authentication, coarse role checks, and Redis-backed rate limiting shared
// across instances.
//
// # Middleware Components
//
// AuthMiddleware: Token-based authentication
//
//	authed.Use(middleware.NewAuthMiddleware(tokenManager).Handler)
//	// Extracts Bearer token, resolves the caller identity, stores it in context
//
// RequireRoles: Route-level role gates
//
//	users.Use(middleware.RequireOwner())
//	invite.Use(middleware.RequireRoles(auth.RoleOwner, auth.RoleAdmin))
//
// Role gates are a fast first check only; handlers still authorize through
// pkg/policy so service-level callers get the same answers.
//
// RateLimitMiddleware: Redis-backed rate limiting, keyed per organization
// for authenticated requests and per client IP otherwise
//
//	limiter := middleware.NewRateLimiter(redisClient, 600, time.Minute)
//	router.Use(middleware.NewRateLimitMiddleware(limiter, metrics).Handler)
//
// # Related Packages
//
//   - pkg/auth: Token resolution and identities
//   - pkg/policy: Role and object authorization
package middleware
