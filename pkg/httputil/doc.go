// Package httputil provides HTTP utilities for standardized request/response handling.
//
// Response helpers:
//
//	httputil.WriteSuccess(w, data)
//	httputil.WriteNotFoundError(w, "organization not found")
//	httputil.WriteForbidden(w, "insufficient scope")
//
// Request parsing:
//
//	slug, err := httputil.ParsePathString(r, "orgSlug")
//	teamID, err := httputil.ParsePathInt64(r, "teamID")
//
// Middleware composition:
//
//	httputil.Chain(
//		middleware.RequestID,
//		httputil.RecoveryMiddleware(logger),
//	)
package httputil
