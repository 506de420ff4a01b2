// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, and common HTTP middleware.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteCreated(w, resource)
//	httputil.WriteNoContent(w)
//
// Domain errors map onto status codes in one place:
//
//	project, err := svc.Get(ctx, orgID, id)
//	if err != nil {
//		httputil.WriteDomainError(w, err)
//		return
//	}
//
// # Request Parsing
//
// JSON parsing:
//
//	var req CreateProjectRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path parameters:
//
//	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1024*1024),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Authentication, authorization and rate limit middleware
package httputil
