package roles

// Scope constants used by the built-in roles. Scopes are plain strings so
// custom roles loaded from configuration can carry scopes the binary does
// not know about.
const (
	ScopeOrgRead         = "org:read"
	ScopeOrgWrite        = "org:write"
	ScopeOrgAdmin        = "org:admin"
	ScopeOrgBilling      = "org:billing"
	ScopeOrgIntegrations = "org:integrations"
	ScopeMemberRead      = "member:read"
	ScopeMemberWrite     = "member:write"
	ScopeMemberAdmin     = "member:admin"
	ScopeMemberInvite    = "member:invite"
	ScopeTeamRead        = "team:read"
	ScopeTeamWrite       = "team:write"
	ScopeTeamAdmin       = "team:admin"
	ScopeProjectRead     = "project:read"
	ScopeProjectWrite    = "project:write"
	ScopeProjectAdmin    = "project:admin"
	ScopeProjectReleases = "project:releases"
	ScopeEventRead       = "event:read"
	ScopeEventWrite      = "event:write"
	ScopeEventAdmin      = "event:admin"
	ScopeAlertsRead      = "alerts:read"
	ScopeAlertsWrite     = "alerts:write"
)

// Role is an immutable bundle of scopes assignable to an organization
// membership. IsGlobal grants access to every team and project in the
// organization without explicit membership rows.
type Role struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Scopes   []string `yaml:"scopes"`
	IsGlobal bool     `yaml:"is_global"`
}

// TeamRole is a role scoped to a single team membership. Team roles never
// carry IsGlobal; their scopes apply only through the owning team.
type TeamRole struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Scopes []string `yaml:"scopes"`
}

// Built-in organization role identifiers
const (
	RoleBilling = "billing"
	RoleMember  = "member"
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleOwner   = "owner"
)

// Built-in team role identifiers
const (
	TeamRoleContributor = "contributor"
	TeamRoleAdmin       = "admin"
)

var memberScopes = []string{
	ScopeOrgRead, ScopeMemberRead, ScopeTeamRead,
	ScopeProjectRead, ScopeProjectReleases,
	ScopeEventRead, ScopeEventWrite, ScopeEventAdmin,
	ScopeAlertsRead, ScopeAlertsWrite,
}

// BuiltInRoles returns the default organization role set. The registry
// starts from these; a roles file may add to or replace them.
func BuiltInRoles() []Role {
	return []Role{
		{
			ID:     RoleBilling,
			Name:   "Billing",
			Scopes: []string{ScopeOrgBilling},
		},
		{
			ID:     RoleMember,
			Name:   "Member",
			Scopes: memberScopes,
		},
		{
			ID:   RoleAdmin,
			Name: "Admin",
			Scopes: append(append([]string{}, memberScopes...),
				ScopeTeamWrite, ScopeTeamAdmin,
				ScopeProjectWrite, ScopeProjectAdmin,
				ScopeOrgIntegrations,
			),
		},
		{
			ID:   RoleManager,
			Name: "Manager",
			Scopes: append(append([]string{}, memberScopes...),
				ScopeTeamWrite, ScopeTeamAdmin,
				ScopeProjectWrite, ScopeProjectAdmin,
				ScopeMemberWrite, ScopeMemberAdmin, ScopeMemberInvite,
				ScopeOrgWrite, ScopeOrgIntegrations,
			),
			IsGlobal: true,
		},
		{
			ID:   RoleOwner,
			Name: "Owner",
			Scopes: append(append([]string{}, memberScopes...),
				ScopeTeamWrite, ScopeTeamAdmin,
				ScopeProjectWrite, ScopeProjectAdmin,
				ScopeMemberWrite, ScopeMemberAdmin, ScopeMemberInvite,
				ScopeOrgWrite, ScopeOrgAdmin, ScopeOrgBilling, ScopeOrgIntegrations,
			),
			IsGlobal: true,
		},
	}
}

// MinimumTeamRole maps an organization role to the team role it implies on
// teams the member belongs to without an explicit team role. Admin-level org
// roles imply team admin; everything else contributes.
func MinimumTeamRole(orgRole string) string {
	switch orgRole {
	case RoleAdmin, RoleManager, RoleOwner:
		return TeamRoleAdmin
	default:
		return TeamRoleContributor
	}
}

// BuiltInTeamRoles returns the default team role set.
func BuiltInTeamRoles() []TeamRole {
	return []TeamRole{
		{
			ID:     TeamRoleContributor,
			Name:   "Contributor",
			Scopes: []string{ScopeTeamRead, ScopeProjectRead, ScopeProjectWrite, ScopeProjectReleases},
		},
		{
			ID:   TeamRoleAdmin,
			Name: "Team Admin",
			Scopes: []string{
				ScopeTeamRead, ScopeTeamWrite, ScopeTeamAdmin,
				ScopeProjectRead, ScopeProjectWrite, ScopeProjectAdmin, ScopeProjectReleases,
			},
		},
	}
}
