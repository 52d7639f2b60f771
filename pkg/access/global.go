package access

import (
	"context"

	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

// orgGlobalAccess grants synthetic full access to one organization: every
// active team and project matches without membership rows. Used for
// superuser/staff elevation and org-bound bearer credentials. A real
// membership, when the caller has one, still backs the membership-specific
// queries (team roles, membership id sets).
type orgGlobalAccess struct {
	ctx  context.Context
	deps *deps

	org    orgs.Organization
	member *orgs.Member

	ssoValid    bool
	ssoRequired bool

	scopes      scopeSet
	permissions scopeSet

	teamsLoaded     bool
	teamMemberships map[int64]string

	accessibleTeamsLoaded bool
	accessibleTeamIDs     []int64

	accessibleProjectsLoaded bool
	accessibleProjectIDs     []int64
}

var _ Access = (*orgGlobalAccess)(nil)

func (a *orgGlobalAccess) SsoIsValid() bool         { return a.ssoValid }
func (a *orgGlobalAccess) RequiresSso() bool        { return a.ssoRequired }
func (a *orgGlobalAccess) HasOpenMembership() bool  { return a.org.Flags.AllowJoinleave }
func (a *orgGlobalAccess) HasGlobalAccess() bool    { return true }
func (a *orgGlobalAccess) Scopes() []string         { return a.scopes.sorted() }
func (a *orgGlobalAccess) Permissions() []string    { return a.permissions.sorted() }
func (a *orgGlobalAccess) IsIntegrationToken() bool { return false }

func (a *orgGlobalAccess) Role() string {
	if a.member == nil {
		return ""
	}
	return a.member.Role
}

func (a *orgGlobalAccess) HasScope(scope string) bool           { return a.scopes.has(scope) }
func (a *orgGlobalAccess) HasPermission(permission string) bool { return a.permissions.has(permission) }

func (a *orgGlobalAccess) GetOrganizationRole() (roles.Role, bool) {
	if a.member == nil {
		return roles.Role{}, false
	}
	return a.deps.registry.Get(a.member.Role)
}

func (a *orgGlobalAccess) memberships() map[int64]string {
	if a.teamsLoaded {
		return a.teamMemberships
	}
	a.teamsLoaded = true
	a.teamMemberships = map[int64]string{}

	if a.member == nil {
		return a.teamMemberships
	}
	loaded, err := a.deps.store.TeamMemberships(a.ctx, a.member.ID)
	if err != nil {
		a.deps.logger.WithError(err).
			WithField("member_id", a.member.ID).
			Error("Failed to load team memberships")
		return a.teamMemberships
	}
	a.teamMemberships = teamMembershipIndex(loaded)
	return a.teamMemberships
}

func (a *orgGlobalAccess) TeamIDsWithMembership() []int64 {
	return sortedIDs(idSetFromIndex(a.memberships()))
}

// AccessibleTeamIDs enumerates every active team in the organization, since
// all of them pass HasTeamAccess under global access.
func (a *orgGlobalAccess) AccessibleTeamIDs() []int64 {
	if a.accessibleTeamsLoaded {
		return a.accessibleTeamIDs
	}
	a.accessibleTeamsLoaded = true

	ids, err := a.deps.store.AccessibleTeamIDs(a.ctx, a.org.ID)
	if err != nil {
		a.deps.logger.WithError(err).
			WithField("organization_id", a.org.ID).
			Error("Failed to load accessible teams")
		return nil
	}
	a.accessibleTeamIDs = sortedIDs(idSet(ids))
	return a.accessibleTeamIDs
}

func (a *orgGlobalAccess) ProjectIDsWithTeamMembership() []int64 {
	teamIDs := sortedIDs(idSetFromIndex(a.memberships()))
	if len(teamIDs) == 0 {
		return nil
	}
	ids, err := a.deps.store.ProjectIDsForTeams(a.ctx, teamIDs)
	if err != nil {
		a.deps.logger.WithError(err).
			WithField("organization_id", a.org.ID).
			Error("Failed to load project reachability")
		return nil
	}
	return sortedIDs(idSet(ids))
}

// AccessibleProjectIDs enumerates every active project in the organization.
func (a *orgGlobalAccess) AccessibleProjectIDs() []int64 {
	if a.accessibleProjectsLoaded {
		return a.accessibleProjectIDs
	}
	a.accessibleProjectsLoaded = true

	ids, err := a.deps.store.AccessibleProjectIDs(a.ctx, a.org.ID)
	if err != nil {
		a.deps.logger.WithError(err).
			WithField("organization_id", a.org.ID).
			Error("Failed to load accessible projects")
		return nil
	}
	a.accessibleProjectIDs = sortedIDs(idSet(ids))
	return a.accessibleProjectIDs
}

func (a *orgGlobalAccess) HasTeamAccess(team *orgs.Team) bool {
	return team != nil && team.OrganizationID == a.org.ID && team.Status == orgs.StatusActive
}

func (a *orgGlobalAccess) HasTeamMembership(team *orgs.Team) bool {
	if team == nil {
		return false
	}
	_, ok := a.memberships()[team.ID]
	return ok
}

func (a *orgGlobalAccess) GetTeamRole(team *orgs.Team) (roles.TeamRole, bool) {
	if team == nil || a.member == nil {
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

func (a *orgGlobalAccess) HasTeamScope(team *orgs.Team, scope string) bool {
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
	if newScopeSet(teamRole.Scopes).has(scope) {
		a.deps.countTeamScopePass(teamRole.ID, scope)
		return true
	}
	return false
}

func (a *orgGlobalAccess) HasProjectAccess(project *orgs.Project) bool {
	return project != nil && project.OrganizationID == a.org.ID && project.Status == orgs.StatusActive
}

func (a *orgGlobalAccess) HasProjectsAccess(projects ...*orgs.Project) bool {
	for _, project := range projects {
		if !a.HasProjectAccess(project) {
			return false
		}
	}
	return true
}

func (a *orgGlobalAccess) HasProjectMembership(project *orgs.Project) bool {
	if project == nil {
		return false
	}
	for _, teamID := range project.TeamIDs {
		if _, ok := a.memberships()[teamID]; ok {
			return true
		}
	}
	return false
}

func (a *orgGlobalAccess) HasProjectScope(project *orgs.Project, scope string) bool {
	return a.HasAnyProjectScope(project, []string{scope})
}

func (a *orgGlobalAccess) HasAnyProjectScope(project *orgs.Project, requested []string) bool {
	if !a.HasProjectAccess(project) {
		return false
	}
	return anyScopeHeld(a.scopes, requested)
}

func (a *orgGlobalAccess) HasRoleInOrganization(role string, orgID, _ int64) bool {
	if a.member == nil || a.member.UserID == 0 {
		return false
	}
	ok, err := a.deps.store.HasRoleInOrganization(a.ctx, orgID, a.member.UserID, role)
	if err != nil {
		a.deps.logger.WithError(err).Warn("Role existence check failed")
		return false
	}
	return ok
}

// orgGlobalMembership is global access with simulated membership: the
// membership-flavored queries answer the same as the access ones. Service
// tokens get this variant.
type orgGlobalMembership struct {
	orgGlobalAccess
}

var _ Access = (*orgGlobalMembership)(nil)

func (a *orgGlobalMembership) IsIntegrationToken() bool { return true }

func (a *orgGlobalMembership) TeamIDsWithMembership() []int64 {
	return a.AccessibleTeamIDs()
}

func (a *orgGlobalMembership) ProjectIDsWithTeamMembership() []int64 {
	return a.AccessibleProjectIDs()
}

func (a *orgGlobalMembership) HasTeamMembership(team *orgs.Team) bool {
	return a.HasTeamAccess(team)
}

func (a *orgGlobalMembership) HasProjectMembership(project *orgs.Project) bool {
	return a.HasProjectAccess(project)
}
