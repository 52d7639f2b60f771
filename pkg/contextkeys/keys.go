// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AccessKey contains the access.Access evaluator for the request
	// Set by: middleware.AccessMiddleware (pkg/middleware/access.go)
	// Required by: All org-scoped API endpoints, RequireScope/RequirePermission
	// Type: access.Access
	AccessKey Key = "access"

	// IdentityKey contains *auth.Identity
	// Set by: upstream authentication middleware
	// Required by: middleware.AccessMiddleware
	// Type: *auth.Identity
	IdentityKey Key = "identity"

	// OrgKey contains *orgs.Organization
	// Set by: middleware.AccessMiddleware after slug resolution
	// Required by: Org-scoped endpoints
	// Type: *orgs.Organization
	OrgKey Key = "organization"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: Logger, audit trail
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithAccess adds the request's access evaluator to the context
func WithAccess(ctx context.Context, acc interface{}) context.Context {
	return context.WithValue(ctx, AccessKey, acc)
}

// WithIdentity adds the parsed request identity to the context
func WithIdentity(ctx context.Context, identity interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// WithOrg adds the resolved organization to the context
func WithOrg(ctx context.Context, org interface{}) context.Context {
	return context.WithValue(ctx, OrgKey, org)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
