package access

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

var tracer = otel.Tracer("github.com/platinummonkey/warden/pkg/access")

// memberAccess is the evaluator for ordinary organization members. The same
// type serves locally resolved and remote-backed members; the only
// difference is where team and project reachability comes from. For the
// local source they are loaded lazily through the store; a remote source
// supplies them up front.
type memberAccess struct {
	ctx  context.Context
	deps *deps

	org    orgs.Organization
	member orgs.Member
	source string

	ssoValid     bool
	ssoRequired  bool
	globalAccess bool

	scopes      scopeSet
	upperBound  scopeSet
	permissions scopeSet

	teamsLoaded     bool
	teamMemberships map[int64]string

	projectsLoaded bool
	projectIDs     map[int64]struct{}
}

var _ Access = (*memberAccess)(nil)

func (a *memberAccess) SsoIsValid() bool        { return a.ssoValid }
func (a *memberAccess) RequiresSso() bool       { return a.ssoRequired }
func (a *memberAccess) HasOpenMembership() bool { return a.org.Flags.AllowJoinleave }
func (a *memberAccess) HasGlobalAccess() bool   { return a.globalAccess }
func (a *memberAccess) Scopes() []string        { return a.scopes.sorted() }
func (a *memberAccess) Permissions() []string   { return a.permissions.sorted() }
func (a *memberAccess) Role() string            { return a.member.Role }
func (a *memberAccess) IsIntegrationToken() bool { return false }

func (a *memberAccess) HasScope(scope string) bool           { return a.scopes.has(scope) }
func (a *memberAccess) HasPermission(permission string) bool { return a.permissions.has(permission) }

func (a *memberAccess) GetOrganizationRole() (roles.Role, bool) {
	return a.deps.registry.Get(a.member.Role)
}

// memberships returns the team-id -> team-role index, loading it on first
// use for the local source. A load failure reads as no memberships; it
// never widens access.
func (a *memberAccess) memberships() map[int64]string {
	if a.teamsLoaded {
		return a.teamMemberships
	}
	a.teamsLoaded = true

	loaded, err := a.deps.store.TeamMemberships(a.ctx, a.member.ID)
	if err != nil {
		a.deps.logger.WithError(err).
			WithField("member_id", a.member.ID).
			Error("Failed to load team memberships")
		a.countSnapshotLoad("error")
		a.teamMemberships = map[int64]string{}
		return a.teamMemberships
	}
	a.countSnapshotLoad("ok")
	a.teamMemberships = teamMembershipIndex(loaded)
	return a.teamMemberships
}

// projects returns the ids of projects reachable via team membership,
// loading them on first use for the local source.
func (a *memberAccess) projects() map[int64]struct{} {
	if a.projectsLoaded {
		return a.projectIDs
	}
	a.projectsLoaded = true
	a.projectIDs = map[int64]struct{}{}

	teamIDs := sortedIDs(idSetFromIndex(a.memberships()))
	if len(teamIDs) == 0 {
		return a.projectIDs
	}

	_, span := tracer.Start(a.ctx, "access.projects_for_member_teams")
	span.SetAttributes(
		attribute.Int64("organization.id", a.org.ID),
		attribute.Int("team.count", len(teamIDs)),
	)
	defer span.End()

	ids, err := a.deps.store.ProjectIDsForTeams(a.ctx, teamIDs)
	if err != nil {
		a.deps.logger.WithError(err).
			WithField("member_id", a.member.ID).
			Error("Failed to load project reachability")
		return a.projectIDs
	}
	span.SetAttributes(attribute.Int("project.count", len(ids)))
	a.projectIDs = idSet(ids)
	return a.projectIDs
}

func (a *memberAccess) countSnapshotLoad(status string) {
	if a.deps.metrics != nil {
		a.deps.metrics.SnapshotLoadsTotal.WithLabelValues(a.source, status).Inc()
	}
}

func (a *memberAccess) TeamIDsWithMembership() []int64 {
	return sortedIDs(idSetFromIndex(a.memberships()))
}

// AccessibleTeamIDs equals TeamIDsWithMembership for member-backed access;
// global reach never widens the enumerable set, only the boolean checks.
func (a *memberAccess) AccessibleTeamIDs() []int64 {
	return a.TeamIDsWithMembership()
}

func (a *memberAccess) ProjectIDsWithTeamMembership() []int64 {
	return sortedIDs(a.projects())
}

func (a *memberAccess) AccessibleProjectIDs() []int64 {
	return a.ProjectIDsWithTeamMembership()
}

func (a *memberAccess) HasTeamAccess(team *orgs.Team) bool {
	if team == nil || team.Status != orgs.StatusActive {
		return false
	}
	if a.globalAccess && a.org.ID == team.OrganizationID {
		return true
	}
	_, ok := a.memberships()[team.ID]
	return ok
}

func (a *memberAccess) HasTeamMembership(team *orgs.Team) bool {
	if team == nil {
		return false
	}
	_, ok := a.memberships()[team.ID]
	return ok
}

func (a *memberAccess) GetTeamRole(team *orgs.Team) (roles.TeamRole, bool) {
	if team == nil {
		return roles.TeamRole{}, false
	}
	roleID, ok := a.memberships()[team.ID]
	if !ok {
		return roles.TeamRole{}, false
	}
	if roleID == "" {
		roleID = roles.MinimumTeamRole(a.member.Role)
	}
	return a.deps.registry.GetTeamRole(roleID)
}

func (a *memberAccess) HasTeamScope(team *orgs.Team, scope string) bool {
	if !a.HasTeamAccess(team) {
		return false
	}
	if a.HasScope(scope) {
		return true
	}

	teamRole, ok := a.GetTeamRole(team)
	if !ok {
		return false
	}
	teamScopes := capScopes(newScopeSet(teamRole.Scopes), a.upperBound)
	if teamScopes.has(scope) {
		a.deps.countTeamScopePass(teamRole.ID, scope)
		return true
	}
	return false
}

func (a *memberAccess) HasProjectAccess(project *orgs.Project) bool {
	if project == nil || project.Status != orgs.StatusActive {
		return false
	}
	if a.globalAccess && a.org.ID == project.OrganizationID {
		return true
	}
	_, ok := a.projects()[project.ID]
	return ok
}

func (a *memberAccess) HasProjectsAccess(projects ...*orgs.Project) bool {
	for _, project := range projects {
		if !a.HasProjectAccess(project) {
			return false
		}
	}
	return true
}

func (a *memberAccess) HasProjectMembership(project *orgs.Project) bool {
	if project == nil {
		return false
	}
	_, ok := a.projects()[project.ID]
	return ok
}

func (a *memberAccess) HasProjectScope(project *orgs.Project, scope string) bool {
	return a.HasAnyProjectScope(project, []string{scope})
}

func (a *memberAccess) HasAnyProjectScope(project *orgs.Project, requested []string) bool {
	if !a.HasProjectAccess(project) {
		return false
	}
	if anyScopeHeld(a.scopes, requested) {
		return true
	}

	if !a.deps.teamRolesEnabled(a.ctx, a.org.ID) {
		return false
	}

	_, span := tracer.Start(a.ctx, "access.project_team_scope_walk")
	span.SetAttributes(
		attribute.Int64("organization.id", a.org.ID),
		attribute.String("organization.slug", a.org.Slug),
		attribute.Int("membership.count", len(a.memberships())),
	)
	defer span.End()

	for _, teamID := range project.TeamIDs {
		roleID, ok := a.memberships()[teamID]
		if !ok {
			continue
		}
		if roleID == "" {
			roleID = roles.MinimumTeamRole(a.member.Role)
		}
		teamRole, ok := a.deps.registry.GetTeamRole(roleID)
		if !ok {
			continue
		}
		teamScopes := capScopes(newScopeSet(teamRole.Scopes), a.upperBound)
		for _, scope := range requested {
			if teamScopes.has(scope) {
				a.deps.countProjectScopePass(teamRole.ID, scope)
				return true
			}
		}
	}
	return false
}

func (a *memberAccess) HasRoleInOrganization(role string, orgID, _ int64) bool {
	if a.member.UserID == 0 {
		return false
	}
	ok, err := a.deps.store.HasRoleInOrganization(a.ctx, orgID, a.member.UserID, role)
	if err != nil {
		a.deps.logger.WithError(err).Warn("Role existence check failed")
		return false
	}
	return ok
}

func idSetFromIndex(index map[int64]string) map[int64]struct{} {
	set := make(map[int64]struct{}, len(index))
	for id := range index {
		set[id] = struct{}{}
	}
	return set
}

// newRemoteMemberAccess builds a member evaluator from a pre-fetched
// snapshot. Team and project reachability come from the snapshot; nothing
// is loaded lazily.
func newRemoteMemberAccess(ctx context.Context, d *deps, mc MemberContext, upperBound scopeSet, state auth.AuthState, role roles.Role) *memberAccess {
	scopes := capScopes(newScopeSet(role.Scopes, mc.Member.Scopes), upperBound)
	return &memberAccess{
		ctx:             ctx,
		deps:            d,
		org:             mc.Organization,
		member:          mc.Member,
		source:          "remote",
		ssoValid:        state.Sso.Valid,
		ssoRequired:     state.Sso.Required,
		globalAccess:    mc.Organization.Flags.AllowJoinleave || role.IsGlobal,
		scopes:          scopes,
		upperBound:      upperBound,
		permissions:     newScopeSet(state.Permissions),
		teamsLoaded:     true,
		teamMemberships: teamMembershipIndex(mc.TeamMemberships),
		projectsLoaded:  true,
		projectIDs:      idSet(mc.ProjectIDs),
	}
}
