package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/warden/pkg/apps"
	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/features"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

// Config wires the resolver's collaborators. Members, AuthState and Registry
// are required; the rest may be nil (Installations disables the service
// branch, Features disables team-role scope walks, Metrics disables
// counters).
type Config struct {
	Members       orgs.MembershipStore
	AuthState     auth.StateService
	Installations apps.InstallationStore
	Features      features.Gate
	Registry      *roles.Registry
	Elevation     auth.ElevationPolicy
	Metrics       *observability.Metrics
	Logger        *observability.Logger
}

// Resolver builds the right Access variant for a calling context. One
// resolver serves the whole process; each call returns a fresh evaluator
// owned by a single request.
type Resolver struct {
	deps          *deps
	authState     auth.StateService
	installations apps.InstallationStore
	elevation     auth.ElevationPolicy
}

// NewResolver validates the config and creates a resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Members == nil {
		return nil, fmt.Errorf("access resolver requires a membership store")
	}
	if cfg.AuthState == nil {
		return nil, fmt.Errorf("access resolver requires an auth state service")
	}
	if cfg.Registry == nil {
		cfg.Registry = roles.NewRegistry()
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Resolver{
		deps: &deps{
			store:    cfg.Members,
			registry: cfg.Registry,
			gate:     cfg.Features,
			metrics:  cfg.Metrics,
			logger:   cfg.Logger,
		},
		authState:     cfg.AuthState,
		installations: cfg.Installations,
		elevation:     cfg.Elevation,
	}, nil
}

// FromRequest resolves access for a parsed request context. The decision
// order is fixed: missing organization first, then service principals, then
// active elevation, then bearer credentials, then plain membership. An error
// is returned only for misconfiguration (a stored role id that is not
// registered) or a failed required lookup; everything else degrades to a
// lower-privilege evaluator.
func (r *Resolver) FromRequest(ctx context.Context, identity auth.Identity, org *orgs.Organization, scopes []string) (Access, error) {
	start := time.Now()

	result, err := r.fromRequest(ctx, identity, org, scopes)
	if err != nil {
		return nil, err
	}

	r.countResolution(result, time.Since(start))
	return result, nil
}

func (r *Resolver) fromRequest(ctx context.Context, identity auth.Identity, org *orgs.Organization, scopes []string) (Access, error) {
	if identity.Kind == auth.ActorSystem {
		return NewSystemAccess(), nil
	}

	if org == nil {
		if identity.Kind != auth.ActorUser {
			return DefaultAccess(), nil
		}
		return r.organizationless(ctx, identity), nil
	}

	if identity.Kind == auth.ActorService {
		return r.fromServicePrincipal(ctx, identity.ServiceID, *org), nil
	}

	if identity.Elevated() {
		return r.fromElevated(ctx, identity, *org, scopes)
	}

	if identity.Token != nil && identity.Kind != auth.ActorUser {
		return r.FromAuth(ctx, identity.Token, *org), nil
	}

	if identity.Kind != auth.ActorUser {
		return DefaultAccess(), nil
	}
	return r.FromUser(ctx, identity.UserID, org, scopes, false, identity.IsStaff)
}

// FromUser resolves access for a user id against an optional organization.
// A user without membership falls back to organizationless access.
func (r *Resolver) FromUser(ctx context.Context, userID int64, org *orgs.Organization, scopes []string, isSuperuser, isStaff bool) (Access, error) {
	if userID == 0 {
		return DefaultAccess(), nil
	}
	identity := auth.Identity{
		Kind: auth.ActorUser, UserID: userID,
		IsSuperuser: isSuperuser, IsStaff: isStaff,
	}
	if org == nil {
		return r.organizationless(ctx, identity), nil
	}

	member, err := r.deps.store.FindMember(ctx, org.ID, userID)
	if errors.Is(err, orgs.ErrMemberNotFound) {
		return r.organizationless(ctx, identity), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve membership: %w", err)
	}
	return r.FromMember(ctx, *org, *member, scopes, isSuperuser, isStaff)
}

// FromMember builds a member-backed evaluator. Effective scopes are the
// membership's scopes intersected with the requested scope list when one is
// given; admin permissions are populated only for elevated sessions.
func (r *Resolver) FromMember(ctx context.Context, org orgs.Organization, member orgs.Member, scopes []string, isSuperuser, isStaff bool) (Access, error) {
	role, ok := r.deps.registry.Get(member.Role)
	if !ok {
		return nil, &roles.UnknownRoleError{RoleID: member.Role}
	}

	var upperBound scopeSet
	if scopes != nil {
		upperBound = newScopeSet(scopes)
	}

	var permissions []string
	if (isSuperuser || isStaff) && member.UserID != 0 {
		permissions = r.permissionsOrNone(ctx, member.UserID)
	}

	sso := r.ssoStateOrClosed(ctx, org.ID, member.UserID)

	return &memberAccess{
		ctx:          ctx,
		deps:         r.deps,
		org:          org,
		member:       member,
		source:       "db",
		ssoValid:     sso.Valid,
		ssoRequired:  sso.Required,
		globalAccess: org.Flags.AllowJoinleave || role.IsGlobal,
		scopes:       effectiveMemberScopes(role, member, upperBound),
		upperBound:   upperBound,
		permissions:  newScopeSet(permissions),
	}, nil
}

// FromRemoteMember builds a member-backed evaluator from a pre-fetched
// snapshot. Nothing is loaded lazily; the snapshot is the whole truth.
func (r *Resolver) FromRemoteMember(ctx context.Context, mc MemberContext, scopes []string) (Access, error) {
	if mc.Member.UserID == 0 {
		return DefaultAccess(), nil
	}
	role, ok := r.deps.registry.Get(mc.Member.Role)
	if !ok {
		return nil, &roles.UnknownRoleError{RoleID: mc.Member.Role}
	}

	var upperBound scopeSet
	if scopes != nil {
		upperBound = newScopeSet(scopes)
	}
	return newRemoteMemberAccess(ctx, r.deps, mc, upperBound, mc.AuthState, role), nil
}

// FromAuth resolves a bearer credential against an organization. The system
// credential bypasses everything; an org-bound credential gets global access
// to its own organization with the full registered scope set (capped by the
// token's own scopes when it carries any); a credential bound elsewhere is
// an expected mismatch and resolves to deny-all, not an error.
func (r *Resolver) FromAuth(ctx context.Context, token *auth.AuthenticatedToken, org orgs.Organization) Access {
	if token == nil {
		return DefaultAccess()
	}
	if token.System {
		return NewSystemAccess()
	}
	if token.OrganizationID != org.ID {
		return DefaultAccess()
	}

	scopes := newScopeSet(r.deps.registry.AllScopes())
	if len(token.Scopes) > 0 {
		scopes = scopes.intersect(newScopeSet(token.Scopes))
	}
	return &orgGlobalAccess{
		ctx:      ctx,
		deps:     r.deps,
		org:      org,
		ssoValid: true,
		scopes:   scopes,
	}
}

// FromRemoteAuth is FromAuth for a remote membership context.
func (r *Resolver) FromRemoteAuth(ctx context.Context, token *auth.AuthenticatedToken, mc MemberContext) Access {
	return r.FromAuth(ctx, token, mc.Organization)
}

// fromServicePrincipal handles installed integrations: not installed means
// deny-all, installed means global membership limited to the granted scopes.
func (r *Resolver) fromServicePrincipal(ctx context.Context, serviceID int64, org orgs.Organization) Access {
	if r.installations == nil || serviceID == 0 {
		return DefaultAccess()
	}

	installation, err := r.installations.GetInstallation(ctx, serviceID, org.ID)
	if errors.Is(err, apps.ErrInstallationNotFound) {
		return DefaultAccess()
	}
	if err != nil {
		r.deps.logger.WithError(err).
			WithField("service_id", serviceID).
			Warn("Installation lookup failed")
		return DefaultAccess()
	}

	return &orgGlobalMembership{orgGlobalAccess{
		ctx:      ctx,
		deps:     r.deps,
		org:      org,
		ssoValid: true,
		scopes:   newScopeSet(installation.Scopes),
	}}
}

// fromElevated handles active superuser/staff sessions: global access to the
// organization with the configured elevated scope set, widened by requested
// scopes and by whatever real membership the caller has.
func (r *Resolver) fromElevated(ctx context.Context, identity auth.Identity, org orgs.Organization, scopes []string) (Access, error) {
	var member *orgs.Member
	found, err := r.deps.store.FindMember(ctx, org.ID, identity.UserID)
	switch {
	case err == nil:
		member = found
	case errors.Is(err, orgs.ErrMemberNotFound):
		// elevation does not require membership
	default:
		r.deps.logger.WithError(err).
			WithField("user_id", identity.UserID).
			Warn("Membership lookup failed during elevation")
	}

	var memberScopes []string
	if member != nil {
		role, ok := r.deps.registry.Get(member.Role)
		if !ok {
			return nil, &roles.UnknownRoleError{RoleID: member.Role}
		}
		memberScopes = newScopeSet(role.Scopes, member.Scopes).sorted()
	}

	sso := r.ssoStateOrClosed(ctx, org.ID, identity.UserID)

	return &orgGlobalAccess{
		ctx:         ctx,
		deps:        r.deps,
		org:         org,
		member:      member,
		ssoValid:    sso.Valid,
		ssoRequired: sso.Required,
		scopes:      newScopeSet(r.elevation.ElevatedScopes(scopes, memberScopes)),
		permissions: newScopeSet(r.permissionsOrNone(ctx, identity.UserID)),
	}, nil
}

func (r *Resolver) organizationless(ctx context.Context, identity auth.Identity) Access {
	state := auth.AuthState{Sso: auth.SsoState{Valid: true}}
	if identity.Elevated() {
		state.Permissions = r.permissionsOrNone(ctx, identity.UserID)
	}
	return &organizationlessAccess{
		ctx:    ctx,
		deps:   r.deps,
		userID: identity.UserID,
		state:  state,
	}
}

// permissionsOrNone reads admin permissions, failing closed: a lookup error
// grants nothing.
func (r *Resolver) permissionsOrNone(ctx context.Context, userID int64) []string {
	permissions, err := r.authState.Permissions(ctx, userID)
	if err != nil {
		r.deps.logger.WithError(err).
			WithField("user_id", userID).
			Warn("Permission lookup failed; granting none")
		return nil
	}
	return permissions
}

// ssoStateOrClosed reads SSO posture, failing closed: on error the link
// reads as not established.
func (r *Resolver) ssoStateOrClosed(ctx context.Context, orgID, userID int64) auth.SsoState {
	sso, err := r.authState.OrgSsoState(ctx, orgID, userID)
	if err != nil {
		r.deps.logger.WithError(err).
			WithField("organization_id", orgID).
			Warn("SSO state lookup failed")
		return auth.SsoState{Valid: false, Required: false}
	}
	return sso
}

func (r *Resolver) countResolution(a Access, elapsed time.Duration) {
	if r.deps.metrics == nil {
		return
	}
	variant := variantName(a)
	r.deps.metrics.AccessResolutionsTotal.WithLabelValues(variant).Inc()
	r.deps.metrics.AccessResolutionDuration.WithLabelValues(variant).Observe(elapsed.Seconds())
}

func variantName(a Access) string {
	switch v := a.(type) {
	case *memberAccess:
		if v.source == "remote" {
			return "remote_member"
		}
		return "member"
	case *orgGlobalMembership:
		return "org_global_membership"
	case *orgGlobalAccess:
		return "org_global"
	case *systemAccess:
		return "system"
	case *noAccess:
		return "no_access"
	case *organizationlessAccess:
		return "organizationless"
	default:
		return "unknown"
	}
}
