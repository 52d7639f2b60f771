package middleware

import (
	"net/http"

	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/httputil"
)

// RequireScope guards a route behind a scope check against the request's
// access evaluator. Must run after Handler.
func (m *AccessMiddleware) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := GetAccess(r)
			if a == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			if !a.HasScope(scope) {
				m.denied(r, audit.Event{
					Type:    audit.EventScopeDenied,
					Scope:   scope,
					Message: "scope check denied",
				}, "scope")
				httputil.WriteForbidden(w, "insufficient scope")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission guards a route behind a standalone permission check.
func (m *AccessMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a := GetAccess(r)
			if a == nil {
				httputil.WriteUnauthorized(w, "authentication required")
				return
			}
			if !a.HasPermission(permission) {
				m.denied(r, audit.Event{
					Type:       audit.EventPermissionDenied,
					Permission: permission,
					Message:    "permission check denied",
				}, "permission")
				httputil.WriteForbidden(w, "insufficient permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *AccessMiddleware) denied(r *http.Request, event audit.Event, check string) {
	identity := GetIdentity(r)
	event.UserID = identity.UserID
	if org := GetOrg(r); org != nil {
		event.OrganizationID = org.ID
	}
	event.Method = r.Method
	event.Path = r.URL.Path
	m.trail.Record(r.Context(), event)
	if m.metrics != nil {
		m.metrics.AccessDeniedTotal.WithLabelValues(check).Inc()
	}
}
