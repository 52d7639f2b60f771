package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/warden/pkg/access"
	"github.com/platinummonkey/warden/pkg/audit"
	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/contextkeys"
	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

// OrganizationLookup resolves route organization slugs.
type OrganizationLookup interface {
	GetOrganizationBySlug(ctx context.Context, slug string) (*orgs.Organization, error)
}

// RequestID assigns each request a UUID, exposed via context and the
// X-Request-ID response header. Inbound ids are trusted when present.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := contextkeys.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AccessMiddleware resolves the per-request access evaluator. It expects an
// upstream authentication layer to have parsed the caller into an
// auth.Identity already; requests without one are treated as anonymous.
type AccessMiddleware struct {
	resolver *access.Resolver
	orgs     OrganizationLookup
	trail    audit.Trail
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewAccessMiddleware creates the middleware. trail and metrics may be nil.
func NewAccessMiddleware(resolver *access.Resolver, lookup OrganizationLookup, trail audit.Trail, logger *observability.Logger, metrics *observability.Metrics) *AccessMiddleware {
	if trail == nil {
		trail = audit.NopTrail{}
	}
	return &AccessMiddleware{
		resolver: resolver,
		orgs:     lookup,
		trail:    trail,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handler resolves the organization from the route (when the route carries
// an orgSlug variable) and builds the access evaluator for the caller.
func (m *AccessMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		identity := GetIdentity(r)

		var org *orgs.Organization
		if slug, ok := mux.Vars(r)["orgSlug"]; ok && slug != "" {
			resolved, err := m.orgs.GetOrganizationBySlug(ctx, slug)
			if errors.Is(err, orgs.ErrOrganizationNotFound) {
				httputil.WriteNotFoundError(w, "organization not found")
				return
			}
			if err != nil {
				m.logger.WithError(err).Error("Organization lookup failed")
				httputil.WriteInternalError(w, "internal error")
				return
			}
			org = resolved
			ctx = contextkeys.WithOrg(ctx, org)
		}

		result, err := m.resolver.FromRequest(ctx, identity, org, nil)
		if err != nil {
			var unknownRole *roles.UnknownRoleError
			if errors.As(err, &unknownRole) {
				m.logger.WithError(err).Error("Access resolution hit corrupt role data")
			} else {
				m.logger.WithError(err).Error("Access resolution failed")
			}
			httputil.WriteInternalError(w, "internal error")
			return
		}

		ctx = contextkeys.WithAccess(ctx, result)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithIdentity is used by the authentication layer (or tests) to attach the
// parsed caller identity to a request context.
func WithIdentity(r *http.Request, identity auth.Identity) *http.Request {
	return r.WithContext(contextkeys.WithIdentity(r.Context(), &identity))
}

// GetIdentity returns the parsed caller identity, or anonymous.
func GetIdentity(r *http.Request) auth.Identity {
	if identity, ok := r.Context().Value(contextkeys.IdentityKey).(*auth.Identity); ok && identity != nil {
		return *identity
	}
	return auth.Anonymous()
}

// GetAccess returns the request's access evaluator, or nil when the access
// middleware did not run.
func GetAccess(r *http.Request) access.Access {
	if a, ok := r.Context().Value(contextkeys.AccessKey).(access.Access); ok {
		return a
	}
	return nil
}

// GetOrg returns the organization resolved from the route, or nil.
func GetOrg(r *http.Request) *orgs.Organization {
	if org, ok := r.Context().Value(contextkeys.OrgKey).(*orgs.Organization); ok {
		return org
	}
	return nil
}
