// Package middleware wires access resolution into the HTTP request cycle.
// RequestID tags every request, AccessMiddleware builds the per-request
// access evaluator from the caller identity and route organization, and
// RequireScope / RequirePermission guard individual routes.
package middleware
