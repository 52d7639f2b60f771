package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/warden/pkg/access"
	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/middleware"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

// stubDirectory backs the whole server in tests: org lookup, membership
// store, and entity lookup in one fake.
type stubDirectory struct {
	orgsBySlug   map[string]*orgs.Organization
	members      map[int64]*orgs.Member
	memberTeams  map[int64][]orgs.TeamMembership
	teamProjects map[int64][]int64
	teams        map[int64]*orgs.Team
	projects     map[int64]*orgs.Project
}

func (d *stubDirectory) GetOrganizationBySlug(_ context.Context, slug string) (*orgs.Organization, error) {
	org, ok := d.orgsBySlug[slug]
	if !ok {
		return nil, orgs.ErrOrganizationNotFound
	}
	return org, nil
}

func (d *stubDirectory) GetTeam(_ context.Context, id int64) (*orgs.Team, error) {
	team, ok := d.teams[id]
	if !ok {
		return nil, orgs.ErrTeamNotFound
	}
	return team, nil
}

func (d *stubDirectory) GetProject(_ context.Context, id int64) (*orgs.Project, error) {
	project, ok := d.projects[id]
	if !ok {
		return nil, orgs.ErrProjectNotFound
	}
	return project, nil
}

func (d *stubDirectory) FindMember(_ context.Context, orgID, userID int64) (*orgs.Member, error) {
	member, ok := d.members[userID]
	if !ok || member.OrganizationID != orgID {
		return nil, orgs.ErrMemberNotFound
	}
	return member, nil
}

func (d *stubDirectory) TeamMemberships(_ context.Context, memberID int64) ([]orgs.TeamMembership, error) {
	return d.memberTeams[memberID], nil
}

func (d *stubDirectory) ProjectIDsForTeams(_ context.Context, teamIDs []int64) ([]int64, error) {
	var ids []int64
	for _, teamID := range teamIDs {
		ids = append(ids, d.teamProjects[teamID]...)
	}
	return ids, nil
}

func (d *stubDirectory) HasRoleInOrganization(context.Context, int64, int64, string) (bool, error) {
	return false, nil
}

func (d *stubDirectory) AccessibleTeamIDs(context.Context, int64) ([]int64, error) {
	return nil, nil
}

func (d *stubDirectory) AccessibleProjectIDs(context.Context, int64) ([]int64, error) {
	return nil, nil
}

type stubState struct{}

func (stubState) Permissions(context.Context, int64) ([]string, error) {
	return nil, nil
}

func (stubState) OrgSsoState(context.Context, int64, int64) (auth.SsoState, error) {
	return auth.SsoState{Valid: true}, nil
}

func newTestServer(t *testing.T) (*Server, *stubDirectory) {
	t.Helper()
	dir := &stubDirectory{
		orgsBySlug: map[string]*orgs.Organization{
			"acme": {ID: 1, Slug: "acme", Status: orgs.StatusActive},
		},
		members: map[int64]*orgs.Member{
			10: {ID: 5, OrganizationID: 1, UserID: 10, Role: roles.RoleMember},
		},
		memberTeams: map[int64][]orgs.TeamMembership{
			5: {{TeamID: 100}},
		},
		teamProjects: map[int64][]int64{100: {200}},
		teams: map[int64]*orgs.Team{
			100: {ID: 100, OrganizationID: 1, Slug: "backend", Status: orgs.StatusActive},
			101: {ID: 101, OrganizationID: 1, Slug: "frontend", Status: orgs.StatusActive},
		},
		projects: map[int64]*orgs.Project{
			200: {ID: 200, OrganizationID: 1, Slug: "api", Status: orgs.StatusActive, TeamIDs: []int64{100}},
		},
	}

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	resolver, err := access.NewResolver(access.Config{
		Members:   dir,
		AuthState: stubState{},
		Logger:    logger,
	})
	require.NoError(t, err)

	mw := middleware.NewAccessMiddleware(resolver, dir, nil, logger, nil)
	return NewServer(dir, mw, logger, nil), dir
}

func doGet(t *testing.T, s *Server, path string, identity *auth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if identity != nil {
		req = middleware.WithIdentity(req, *identity)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doGet(t, s, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetAccessSummary(t *testing.T) {
	s, _ := newTestServer(t)
	identity := auth.Identity{Kind: auth.ActorUser, UserID: 10}

	rec := doGet(t, s, "/api/v1/organizations/acme/access", &identity)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary AccessSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, roles.RoleMember, summary.Role)
	assert.Contains(t, summary.Scopes, roles.ScopeOrgRead)
	assert.Empty(t, summary.Permissions)
	assert.False(t, summary.HasGlobalAccess)
	assert.True(t, summary.SsoIsValid)
	assert.Equal(t, []int64{100}, summary.TeamIDs)
	assert.Equal(t, []int64{200}, summary.ProjectIDs)
	assert.False(t, summary.IsIntegrationToken)
}

func TestGetAccessSummaryAnonymous(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doGet(t, s, "/api/v1/organizations/acme/access", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary AccessSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Empty(t, summary.Role)
	assert.Empty(t, summary.Scopes)
	assert.Empty(t, summary.TeamIDs)
	assert.True(t, summary.SsoIsValid)
}

func TestGetTeamAccess(t *testing.T) {
	s, _ := newTestServer(t)
	identity := auth.Identity{Kind: auth.ActorUser, UserID: 10}

	t.Run("member team with scope query", func(t *testing.T) {
		rec := doGet(t, s, "/api/v1/organizations/acme/teams/100/access?scope=team:read", &identity)
		require.Equal(t, http.StatusOK, rec.Code)

		var result TeamAccessResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.True(t, result.HasAccess)
		assert.True(t, result.HasMembership)
		assert.Equal(t, roles.TeamRoleContributor, result.TeamRole)
		require.NotNil(t, result.HasScope)
		assert.True(t, *result.HasScope)
	})

	t.Run("non-member team", func(t *testing.T) {
		rec := doGet(t, s, "/api/v1/organizations/acme/teams/101/access", &identity)
		require.Equal(t, http.StatusOK, rec.Code)

		var result TeamAccessResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.False(t, result.HasAccess)
		assert.False(t, result.HasMembership)
		assert.Empty(t, result.TeamRole)
		assert.Nil(t, result.HasScope)
	})

	t.Run("unknown team", func(t *testing.T) {
		rec := doGet(t, s, "/api/v1/organizations/acme/teams/999/access", &identity)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetProjectAccess(t *testing.T) {
	s, _ := newTestServer(t)
	identity := auth.Identity{Kind: auth.ActorUser, UserID: 10}

	rec := doGet(t, s, "/api/v1/organizations/acme/projects/200/access?scope=project:read", &identity)
	require.Equal(t, http.StatusOK, rec.Code)

	var result ProjectAccessResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.HasAccess)
	assert.True(t, result.HasMembership)
	require.NotNil(t, result.HasScope)
	assert.True(t, *result.HasScope)

	t.Run("unknown project", func(t *testing.T) {
		rec := doGet(t, s, "/api/v1/organizations/acme/projects/999/access", &identity)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestUnknownOrganization(t *testing.T) {
	s, _ := newTestServer(t)
	identity := auth.Identity{Kind: auth.ActorUser, UserID: 10}

	rec := doGet(t, s, "/api/v1/organizations/ghost/access", &identity)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
