package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/features"
	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

func TestMemberProjectAccessThroughTeams(t *testing.T) {
	env := newTestEnv(t)
	org, member := env.seedMemberFixture()

	a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
	require.NoError(t, err)

	t.Run("project reachable via team membership", func(t *testing.T) {
		assert.True(t, a.HasProjectAccess(activeProject(200, 1, 100)))
	})

	t.Run("unrelated project denied", func(t *testing.T) {
		assert.False(t, a.HasProjectAccess(activeProject(201, 1, 101)))
	})

	t.Run("inactive project denied", func(t *testing.T) {
		project := activeProject(200, 1, 100)
		project.Status = orgs.StatusPendingDeletion
		assert.False(t, a.HasProjectAccess(project))
	})

	t.Run("team with membership", func(t *testing.T) {
		assert.True(t, a.HasTeamAccess(activeTeam(100, 1)))
		assert.True(t, a.HasTeamMembership(activeTeam(100, 1)))
	})

	t.Run("team without membership", func(t *testing.T) {
		assert.False(t, a.HasTeamAccess(activeTeam(101, 1)))
		assert.False(t, a.HasTeamMembership(activeTeam(101, 1)))
	})

	t.Run("inactive team denied", func(t *testing.T) {
		team := activeTeam(100, 1)
		team.Status = orgs.StatusDeleted
		assert.False(t, a.HasTeamAccess(team))
	})

	t.Run("id sets", func(t *testing.T) {
		assert.Equal(t, []int64{100}, a.TeamIDsWithMembership())
		assert.Equal(t, []int64{100}, a.AccessibleTeamIDs())
		assert.Equal(t, []int64{200}, a.ProjectIDsWithTeamMembership())
		assert.Equal(t, []int64{200}, a.AccessibleProjectIDs())
	})
}

func TestMemberScopeMath(t *testing.T) {
	env := newTestEnv(t)
	org, member := env.seedMemberFixture()
	member.Scopes = []string{"org:admin"} // explicit extra on top of the member role

	t.Run("no upper bound unions role and extra scopes", func(t *testing.T) {
		a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
		require.NoError(t, err)

		assert.True(t, a.HasScope(roles.ScopeProjectRead))
		assert.True(t, a.HasScope("org:admin"))
		assert.False(t, a.HasScope(roles.ScopeMemberAdmin))
	})

	t.Run("upper bound caps effective scopes", func(t *testing.T) {
		a, err := env.resolver.FromMember(context.Background(), org, member,
			[]string{roles.ScopeProjectRead, roles.ScopeMemberAdmin}, false, false)
		require.NoError(t, err)

		scopes := a.Scopes()
		assert.Equal(t, []string{roles.ScopeProjectRead}, scopes)
		assert.False(t, a.HasScope("org:admin"), "explicit scope outside the bound must be dropped")
		assert.False(t, a.HasScope(roles.ScopeMemberAdmin), "requested but not held")
	})
}

func TestMemberGlobalAccess(t *testing.T) {
	env := newTestEnv(t)
	org, member := env.seedMemberFixture()

	t.Run("open membership grants global access", func(t *testing.T) {
		openOrg := org
		openOrg.Flags.AllowJoinleave = true
		a, err := env.resolver.FromMember(context.Background(), openOrg, member, nil, false, false)
		require.NoError(t, err)

		assert.True(t, a.HasGlobalAccess())
		assert.True(t, a.HasOpenMembership())
		assert.True(t, a.HasTeamAccess(activeTeam(101, 1)), "no membership row needed")
		assert.True(t, a.HasProjectAccess(activeProject(201, 1, 101)))
	})

	t.Run("global role grants global access", func(t *testing.T) {
		owner := member
		owner.Role = roles.RoleOwner
		a, err := env.resolver.FromMember(context.Background(), org, owner, nil, false, false)
		require.NoError(t, err)

		assert.True(t, a.HasGlobalAccess())
		assert.False(t, a.HasOpenMembership())
		assert.True(t, a.HasProjectAccess(activeProject(201, 1, 101)))
	})

	t.Run("global access stops at the org boundary", func(t *testing.T) {
		owner := member
		owner.Role = roles.RoleOwner
		a, err := env.resolver.FromMember(context.Background(), org, owner, nil, false, false)
		require.NoError(t, err)

		assert.False(t, a.HasTeamAccess(activeTeam(300, 2)))
		assert.False(t, a.HasProjectAccess(activeProject(400, 2, 300)))
	})

	t.Run("global access does not widen enumerable sets", func(t *testing.T) {
		owner := member
		owner.Role = roles.RoleOwner
		a, err := env.resolver.FromMember(context.Background(), org, owner, nil, false, false)
		require.NoError(t, err)

		assert.Equal(t, []int64{100}, a.AccessibleTeamIDs())
		assert.Equal(t, []int64{200}, a.AccessibleProjectIDs())
	})
}

func TestMemberProjectScopeEqualsAnyProjectScope(t *testing.T) {
	env := newTestEnv(t)
	org, member := env.seedMemberFixture()

	a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
	require.NoError(t, err)

	project := activeProject(200, 1, 100)
	for _, scope := range []string{roles.ScopeProjectRead, roles.ScopeOrgAdmin, "bogus:scope"} {
		assert.Equal(t,
			a.HasAnyProjectScope(project, []string{scope}),
			a.HasProjectScope(project, scope),
			"scope %s", scope)
	}
}

func TestMemberTeamRoleScopes(t *testing.T) {
	gateOn := func(cfg *Config) {
		cfg.Features = features.NewStaticGate(map[string][]int64{features.TeamRoles: {1}})
	}

	t.Run("team role grants project scope when gated on", func(t *testing.T) {
		env := newTestEnv(t, gateOn)
		org, member := env.seedMemberFixture()
		env.store.memberships[5] = []orgs.TeamMembership{{TeamID: 100, Role: roles.TeamRoleAdmin}}

		a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
		require.NoError(t, err)

		// project:admin comes from the team admin role, not from the org
		// member role.
		assert.False(t, a.HasScope(roles.ScopeProjectAdmin))
		assert.True(t, a.HasAnyProjectScope(activeProject(200, 1, 100), []string{roles.ScopeProjectAdmin}))
	})

	t.Run("gate off blocks the team-role walk", func(t *testing.T) {
		env := newTestEnv(t)
		org, member := env.seedMemberFixture()
		env.store.memberships[5] = []orgs.TeamMembership{{TeamID: 100, Role: roles.TeamRoleAdmin}}

		a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
		require.NoError(t, err)

		assert.False(t, a.HasAnyProjectScope(activeProject(200, 1, 100), []string{roles.ScopeProjectAdmin}))
	})

	t.Run("team scope via team role ignores the gate", func(t *testing.T) {
		env := newTestEnv(t)
		org, member := env.seedMemberFixture()
		env.store.memberships[5] = []orgs.TeamMembership{{TeamID: 100, Role: roles.TeamRoleAdmin}}

		a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
		require.NoError(t, err)

		assert.True(t, a.HasTeamScope(activeTeam(100, 1), roles.ScopeTeamAdmin))
		assert.False(t, a.HasTeamScope(activeTeam(101, 1), roles.ScopeTeamAdmin), "no access to the team at all")
	})

	t.Run("upper bound caps team role scopes", func(t *testing.T) {
		env := newTestEnv(t, gateOn)
		org, member := env.seedMemberFixture()
		env.store.memberships[5] = []orgs.TeamMembership{{TeamID: 100, Role: roles.TeamRoleAdmin}}

		a, err := env.resolver.FromMember(context.Background(), org, member,
			[]string{roles.ScopeProjectRead}, false, false)
		require.NoError(t, err)

		assert.False(t, a.HasTeamScope(activeTeam(100, 1), roles.ScopeTeamAdmin))
		assert.False(t, a.HasAnyProjectScope(activeProject(200, 1, 100), []string{roles.ScopeProjectAdmin}))
	})
}

func TestMemberGetTeamRole(t *testing.T) {
	env := newTestEnv(t)
	org, member := env.seedMemberFixture()

	t.Run("explicit team role", func(t *testing.T) {
		env.store.memberships[5] = []orgs.TeamMembership{{TeamID: 100, Role: roles.TeamRoleAdmin}}
		a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
		require.NoError(t, err)

		teamRole, ok := a.GetTeamRole(activeTeam(100, 1))
		require.True(t, ok)
		assert.Equal(t, roles.TeamRoleAdmin, teamRole.ID)
	})

	t.Run("minimum team role from org role", func(t *testing.T) {
		env.store.memberships[5] = []orgs.TeamMembership{{TeamID: 100}}
		a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
		require.NoError(t, err)

		teamRole, ok := a.GetTeamRole(activeTeam(100, 1))
		require.True(t, ok)
		assert.Equal(t, roles.TeamRoleContributor, teamRole.ID)
	})

	t.Run("no membership means no team role", func(t *testing.T) {
		a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
		require.NoError(t, err)

		_, ok := a.GetTeamRole(activeTeam(101, 1))
		assert.False(t, ok)
	})

	t.Run("organization role", func(t *testing.T) {
		a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
		require.NoError(t, err)

		role, ok := a.GetOrganizationRole()
		require.True(t, ok)
		assert.Equal(t, roles.RoleMember, role.ID)
		assert.Equal(t, roles.RoleMember, a.Role())
	})
}

func TestMemberMemoizationIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	org, member := env.seedMemberFixture()

	a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
	require.NoError(t, err)

	first := a.AccessibleProjectIDs()
	require.Equal(t, []int64{200}, first)

	// Mutate the underlying data after the first read. The evaluator must
	// not notice for its whole lifetime.
	env.store.teamProjects[100] = []int64{200, 999}
	env.store.memberships[5] = nil

	assert.Equal(t, first, a.AccessibleProjectIDs())
	assert.Equal(t, []int64{100}, a.TeamIDsWithMembership())
	assert.True(t, a.HasProjectAccess(activeProject(200, 1, 100)))
	assert.False(t, a.HasProjectAccess(activeProject(999, 1, 100)))
}

func TestMemberLoadFailuresFailClosed(t *testing.T) {
	env := newTestEnv(t)
	org, member := env.seedMemberFixture()
	env.store.membershipsErr = assert.AnError

	a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
	require.NoError(t, err)

	assert.Empty(t, a.TeamIDsWithMembership())
	assert.Empty(t, a.AccessibleProjectIDs())
	assert.False(t, a.HasTeamAccess(activeTeam(100, 1)))
	assert.False(t, a.HasProjectAccess(activeProject(200, 1, 100)))
}

func TestMemberHasRoleInOrganization(t *testing.T) {
	env := newTestEnv(t)
	org, member := env.seedMemberFixture()
	env.store.rolesHeld["1:10:owner"] = true

	a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
	require.NoError(t, err)

	assert.True(t, a.HasRoleInOrganization("owner", 1, 10))
	assert.False(t, a.HasRoleInOrganization("billing", 1, 10))
}

func TestMemberSsoState(t *testing.T) {
	env := newTestEnv(t)
	org, member := env.seedMemberFixture()
	env.state.sso = auth.SsoState{Valid: false, Required: true}

	a, err := env.resolver.FromMember(context.Background(), org, member, nil, false, false)
	require.NoError(t, err)

	assert.False(t, a.SsoIsValid())
	assert.True(t, a.RequiresSso())
}

func TestRemoteMemberParity(t *testing.T) {
	env := newTestEnv(t)

	mc := MemberContext{
		Organization: orgs.Organization{ID: 1, Slug: "acme", Status: orgs.StatusActive},
		Member:       orgs.Member{ID: 5, OrganizationID: 1, UserID: 10, Role: roles.RoleMember},
		TeamMemberships: []orgs.TeamMembership{
			{TeamID: 100, Role: roles.TeamRoleContributor},
		},
		ProjectIDs: []int64{200},
		AuthState:  auth.AuthState{Sso: auth.SsoState{Valid: true}},
	}

	a, err := env.resolver.FromRemoteMember(context.Background(), mc, nil)
	require.NoError(t, err)

	t.Run("answers from the snapshot without storage", func(t *testing.T) {
		assert.True(t, a.HasTeamAccess(activeTeam(100, 1)))
		assert.True(t, a.HasProjectAccess(activeProject(200, 1, 100)))
		assert.False(t, a.HasProjectAccess(activeProject(201, 1, 101)))
		assert.Equal(t, []int64{100}, a.TeamIDsWithMembership())
		assert.Equal(t, []int64{200}, a.ProjectIDsWithTeamMembership())
	})

	t.Run("scope math matches the local variant", func(t *testing.T) {
		assert.True(t, a.HasScope(roles.ScopeProjectRead))
		assert.False(t, a.HasScope(roles.ScopeOrgAdmin))
	})

	t.Run("not an integration token", func(t *testing.T) {
		assert.False(t, a.IsIntegrationToken())
	})

	t.Run("missing user id degrades to deny-all", func(t *testing.T) {
		anonymous := mc
		anonymous.Member.UserID = 0
		denied, err := env.resolver.FromRemoteMember(context.Background(), anonymous, nil)
		require.NoError(t, err)
		assert.False(t, denied.HasScope(roles.ScopeProjectRead))
		assert.False(t, denied.HasTeamAccess(activeTeam(100, 1)))
	})
}
