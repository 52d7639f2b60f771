package access

import (
	"context"
	"sort"

	"github.com/platinummonkey/warden/pkg/features"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

// Access is the per-request authorization snapshot. An evaluator is built
// once by the Resolver, is read-only for its lifetime, and answers every
// query identically across repeated calls. Derived id sets are computed
// lazily and memoized; an evaluator must not be shared across goroutines.
//
// Callers use only these methods and never reach into membership internals.
type Access interface {
	// SsoIsValid reports whether the caller's SSO link is established.
	SsoIsValid() bool
	// RequiresSso reports whether the organization mandates SSO.
	RequiresSso() bool

	// HasOpenMembership reports the organization's allow-joinleave flag.
	HasOpenMembership() bool
	// HasGlobalAccess reports whether team/project access is granted
	// org-wide without explicit membership rows.
	HasGlobalAccess() bool

	// Scopes returns the effective scope set, sorted.
	Scopes() []string
	// Permissions returns admin-level permission strings. Populated only
	// for actively elevated sessions.
	Permissions() []string
	// Role returns the organization role id, or "" when there is none.
	Role() string

	HasScope(scope string) bool
	HasPermission(permission string) bool

	// TeamIDsWithMembership returns teams with actual membership rows.
	TeamIDsWithMembership() []int64
	// AccessibleTeamIDs returns every team HasTeamAccess is true for.
	// SystemAccess returns empty here even though it can access everything;
	// enumerating would require an unbounded scan.
	AccessibleTeamIDs() []int64
	// ProjectIDsWithTeamMembership returns projects reachable through
	// actual team membership.
	ProjectIDsWithTeamMembership() []int64
	// AccessibleProjectIDs returns every project HasProjectAccess is true
	// for, with the same SystemAccess caveat as AccessibleTeamIDs.
	AccessibleProjectIDs() []int64

	HasTeamAccess(team *orgs.Team) bool
	HasTeamScope(team *orgs.Team, scope string) bool
	HasTeamMembership(team *orgs.Team) bool
	// GetTeamRole returns the caller's role on the team, explicit or
	// implied by the organization role.
	GetTeamRole(team *orgs.Team) (roles.TeamRole, bool)
	GetOrganizationRole() (roles.Role, bool)

	HasProjectAccess(project *orgs.Project) bool
	// HasProjectsAccess reports whether every given project is accessible.
	HasProjectsAccess(projects ...*orgs.Project) bool
	HasProjectMembership(project *orgs.Project) bool
	HasProjectScope(project *orgs.Project, scope string) bool
	// HasAnyProjectScope reports whether any of the scopes applies to the
	// project, either directly or through a team role on one of the
	// project's teams. Prefer this over repeated HasProjectScope calls.
	HasAnyProjectScope(project *orgs.Project, scopes []string) bool

	// HasRoleInOrganization checks whether an active member with exactly
	// the given role exists for (org, user). Delegates to storage.
	HasRoleInOrganization(role string, orgID, userID int64) bool

	// IsIntegrationToken is true only for service-token access.
	IsIntegrationToken() bool
}

// deps bundles the collaborators an evaluator may consult after
// construction. metrics and gate may be nil.
type deps struct {
	store    orgs.MembershipStore
	registry *roles.Registry
	gate     features.Gate
	metrics  *observability.Metrics
	logger   *observability.Logger
}

func (d *deps) teamRolesEnabled(ctx context.Context, orgID int64) bool {
	if d.gate == nil {
		return false
	}
	return d.gate.OrgHas(ctx, features.TeamRoles, orgID)
}

func (d *deps) countTeamScopePass(teamRole, scope string) {
	if d.metrics != nil {
		d.metrics.TeamScopePassTotal.WithLabelValues(teamRole, scope).Inc()
	}
}

func (d *deps) countProjectScopePass(teamRole, scope string) {
	if d.metrics != nil {
		d.metrics.ProjectScopePassTotal.WithLabelValues(teamRole, scope).Inc()
	}
}

// scopeSet is the internal representation of a scope collection.
type scopeSet map[string]struct{}

func newScopeSet(scopes ...[]string) scopeSet {
	set := make(scopeSet)
	for _, group := range scopes {
		for _, s := range group {
			set[s] = struct{}{}
		}
	}
	return set
}

func (s scopeSet) has(scope string) bool {
	_, ok := s[scope]
	return ok
}

func (s scopeSet) intersect(other scopeSet) scopeSet {
	out := make(scopeSet)
	for scope := range s {
		if other.has(scope) {
			out[scope] = struct{}{}
		}
	}
	return out
}

func (s scopeSet) sorted() []string {
	if len(s) == 0 {
		return nil
	}
	scopes := make([]string, 0, len(s))
	for scope := range s {
		scopes = append(scopes, scope)
	}
	sort.Strings(scopes)
	return scopes
}

// capScopes applies an upper bound when one is present.
func capScopes(scopes, upperBound scopeSet) scopeSet {
	if upperBound == nil {
		return scopes
	}
	return scopes.intersect(upperBound)
}

// effectiveMemberScopes is the scope tie-break rule: role scopes united with
// explicit member scopes, then capped by the upper bound when one is set.
func effectiveMemberScopes(role roles.Role, member orgs.Member, upperBound scopeSet) scopeSet {
	return capScopes(newScopeSet(role.Scopes, member.Scopes), upperBound)
}

func sortedIDs(set map[int64]struct{}) []int64 {
	if len(set) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// anyScopeHeld reports whether any of the requested scopes is in the set.
func anyScopeHeld(held scopeSet, requested []string) bool {
	for _, s := range requested {
		if held.has(s) {
			return true
		}
	}
	return false
}
