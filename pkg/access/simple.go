package access

import (
	"context"

	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

// organizationlessAccess is the evaluator for a valid caller with no
// organization context: no scopes, no team or project reach, but admin
// permissions still apply when the session is elevated.
type organizationlessAccess struct {
	ctx    context.Context
	deps   *deps
	userID int64
	state  auth.AuthState
}

var _ Access = (*organizationlessAccess)(nil)

func (a *organizationlessAccess) SsoIsValid() bool         { return a.state.Sso.Valid }
func (a *organizationlessAccess) RequiresSso() bool        { return a.state.Sso.Required }
func (a *organizationlessAccess) HasOpenMembership() bool  { return false }
func (a *organizationlessAccess) HasGlobalAccess() bool    { return false }
func (a *organizationlessAccess) Scopes() []string         { return nil }
func (a *organizationlessAccess) Role() string             { return "" }
func (a *organizationlessAccess) IsIntegrationToken() bool { return false }

func (a *organizationlessAccess) Permissions() []string {
	return newScopeSet(a.state.Permissions).sorted()
}

func (a *organizationlessAccess) HasScope(string) bool { return false }

func (a *organizationlessAccess) HasPermission(permission string) bool {
	for _, p := range a.state.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

func (a *organizationlessAccess) GetOrganizationRole() (roles.Role, bool) {
	return roles.Role{}, false
}

func (a *organizationlessAccess) TeamIDsWithMembership() []int64        { return nil }
func (a *organizationlessAccess) AccessibleTeamIDs() []int64            { return nil }
func (a *organizationlessAccess) ProjectIDsWithTeamMembership() []int64 { return nil }
func (a *organizationlessAccess) AccessibleProjectIDs() []int64         { return nil }

func (a *organizationlessAccess) HasTeamAccess(*orgs.Team) bool          { return false }
func (a *organizationlessAccess) HasTeamScope(*orgs.Team, string) bool   { return false }
func (a *organizationlessAccess) HasTeamMembership(*orgs.Team) bool      { return false }
func (a *organizationlessAccess) HasProjectAccess(*orgs.Project) bool    { return false }
func (a *organizationlessAccess) HasProjectMembership(*orgs.Project) bool { return false }

func (a *organizationlessAccess) GetTeamRole(*orgs.Team) (roles.TeamRole, bool) {
	return roles.TeamRole{}, false
}

func (a *organizationlessAccess) HasProjectsAccess(projects ...*orgs.Project) bool {
	for _, project := range projects {
		if !a.HasProjectAccess(project) {
			return false
		}
	}
	return true
}

func (a *organizationlessAccess) HasProjectScope(project *orgs.Project, scope string) bool {
	return a.HasAnyProjectScope(project, []string{scope})
}

func (a *organizationlessAccess) HasAnyProjectScope(*orgs.Project, []string) bool {
	return false
}

// HasRoleInOrganization still works without org context since the check is
// fully qualified by its arguments.
func (a *organizationlessAccess) HasRoleInOrganization(role string, orgID, userID int64) bool {
	if userID == 0 || a.deps == nil || a.deps.store == nil {
		return false
	}
	ok, err := a.deps.store.HasRoleInOrganization(a.ctx, orgID, userID, role)
	if err != nil {
		a.deps.logger.WithError(err).Warn("Role existence check failed")
		return false
	}
	return ok
}

// systemAccess is the internal trusted caller: every boolean check passes.
// The enumerable id sets stay empty on purpose; answering them correctly
// would require scanning every organization, and callers that may see
// system access must not depend on them.
type systemAccess struct {
	organizationlessAccess
}

var _ Access = (*systemAccess)(nil)

func NewSystemAccess() Access {
	return &systemAccess{
		organizationlessAccess{
			state: auth.AuthState{Sso: auth.SsoState{Valid: false, Required: false}},
		},
	}
}

func (a *systemAccess) HasGlobalAccess() bool         { return true }
func (a *systemAccess) HasScope(string) bool          { return true }
func (a *systemAccess) HasPermission(string) bool     { return true }
func (a *systemAccess) HasTeamAccess(*orgs.Team) bool { return true }

func (a *systemAccess) HasProjectAccess(*orgs.Project) bool { return true }

func (a *systemAccess) HasProjectsAccess(...*orgs.Project) bool { return true }

func (a *systemAccess) HasProjectScope(project *orgs.Project, scope string) bool {
	return a.HasAnyProjectScope(project, []string{scope})
}

func (a *systemAccess) HasAnyProjectScope(_ *orgs.Project, requested []string) bool {
	return len(requested) > 0
}

// noAccess is the deny-all terminal state. SSO reads as valid because a
// caller with no organization cannot be required to use it.
type noAccess struct {
	organizationlessAccess
}

var _ Access = (*noAccess)(nil)

// DefaultAccess returns a fresh deny-all evaluator. Always a new value;
// nothing shares or mutates it.
func DefaultAccess() Access {
	return &noAccess{
		organizationlessAccess{
			state: auth.AuthState{Sso: auth.SsoState{Valid: true, Required: false}},
		},
	}
}
