package access

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/warden/pkg/apps"
	"github.com/platinummonkey/warden/pkg/auth"
	"github.com/platinummonkey/warden/pkg/features"
	"github.com/platinummonkey/warden/pkg/observability"
	"github.com/platinummonkey/warden/pkg/orgs"
	"github.com/platinummonkey/warden/pkg/roles"
)

// fakeStore is an in-memory MembershipStore for evaluator tests.
type fakeStore struct {
	members        map[string]*orgs.Member          // "orgID:userID"
	memberships    map[int64][]orgs.TeamMembership  // member id -> team links
	teamProjects   map[int64][]int64                // team id -> project ids
	orgTeams       map[int64][]int64                // org id -> team ids
	orgProjects    map[int64][]int64                // org id -> project ids
	rolesHeld      map[string]bool                  // "orgID:userID:role"
	findMemberErr  error
	membershipsErr error
	projectsErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:      map[string]*orgs.Member{},
		memberships:  map[int64][]orgs.TeamMembership{},
		teamProjects: map[int64][]int64{},
		orgTeams:     map[int64][]int64{},
		orgProjects:  map[int64][]int64{},
		rolesHeld:    map[string]bool{},
	}
}

func memberKey(orgID, userID int64) string {
	return fmt.Sprintf("%d:%d", orgID, userID)
}

func (s *fakeStore) FindMember(_ context.Context, orgID, userID int64) (*orgs.Member, error) {
	if s.findMemberErr != nil {
		return nil, s.findMemberErr
	}
	member, ok := s.members[memberKey(orgID, userID)]
	if !ok {
		return nil, orgs.ErrMemberNotFound
	}
	copied := *member
	return &copied, nil
}

func (s *fakeStore) TeamMemberships(_ context.Context, memberID int64) ([]orgs.TeamMembership, error) {
	if s.membershipsErr != nil {
		return nil, s.membershipsErr
	}
	return s.memberships[memberID], nil
}

func (s *fakeStore) ProjectIDsForTeams(_ context.Context, teamIDs []int64) ([]int64, error) {
	if s.projectsErr != nil {
		return nil, s.projectsErr
	}
	seen := map[int64]struct{}{}
	var ids []int64
	for _, teamID := range teamIDs {
		for _, projectID := range s.teamProjects[teamID] {
			if _, ok := seen[projectID]; !ok {
				seen[projectID] = struct{}{}
				ids = append(ids, projectID)
			}
		}
	}
	return ids, nil
}

func (s *fakeStore) HasRoleInOrganization(_ context.Context, orgID, userID int64, role string) (bool, error) {
	return s.rolesHeld[fmt.Sprintf("%d:%d:%s", orgID, userID, role)], nil
}

func (s *fakeStore) AccessibleTeamIDs(_ context.Context, orgID int64) ([]int64, error) {
	return s.orgTeams[orgID], nil
}

func (s *fakeStore) AccessibleProjectIDs(_ context.Context, orgID int64) ([]int64, error) {
	return s.orgProjects[orgID], nil
}

type fakeStateService struct {
	permissions    []string
	permissionsErr error
	sso            auth.SsoState
	ssoErr         error
}

func (s *fakeStateService) Permissions(context.Context, int64) ([]string, error) {
	if s.permissionsErr != nil {
		return nil, s.permissionsErr
	}
	return s.permissions, nil
}

func (s *fakeStateService) OrgSsoState(context.Context, int64, int64) (auth.SsoState, error) {
	if s.ssoErr != nil {
		return auth.SsoState{}, s.ssoErr
	}
	return s.sso, nil
}

type fakeInstallationStore struct {
	installations map[string]*apps.Installation // "serviceID:orgID"
	err           error
}

func (s *fakeInstallationStore) IsInstalled(ctx context.Context, serviceID, orgID int64) (bool, error) {
	_, err := s.GetInstallation(ctx, serviceID, orgID)
	if errors.Is(err, apps.ErrInstallationNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *fakeInstallationStore) GetInstallation(_ context.Context, serviceID, orgID int64) (*apps.Installation, error) {
	if s.err != nil {
		return nil, s.err
	}
	installation, ok := s.installations[fmt.Sprintf("%d:%d", serviceID, orgID)]
	if !ok {
		return nil, apps.ErrInstallationNotFound
	}
	return installation, nil
}

type testEnv struct {
	store    *fakeStore
	state    *fakeStateService
	installs *fakeInstallationStore
	resolver *Resolver
}

func newTestEnv(t *testing.T, opts ...func(*Config)) *testEnv {
	t.Helper()

	store := newFakeStore()
	state := &fakeStateService{sso: auth.SsoState{Valid: true}}
	installs := &fakeInstallationStore{installations: map[string]*apps.Installation{}}

	cfg := Config{
		Members:       store,
		AuthState:     state,
		Installations: installs,
		Features:      features.NewStaticGate(nil),
		Registry:      roles.NewRegistry(),
		Elevation:     auth.ElevationPolicy{SuperuserScopes: []string{"org:read", "org:admin"}},
		Logger:        observability.NewLogger(observability.ErrorLevel, io.Discard),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	resolver, err := NewResolver(cfg)
	require.NoError(t, err)

	return &testEnv{store: store, state: state, installs: installs, resolver: resolver}
}

// Common fixtures: org 1 with user 10 as a plain member of team 100, which
// carries project 200. Project 201 is unrelated.
func (e *testEnv) seedMemberFixture() (orgs.Organization, orgs.Member) {
	org := orgs.Organization{ID: 1, Slug: "acme", Status: orgs.StatusActive}
	member := orgs.Member{ID: 5, OrganizationID: 1, UserID: 10, Role: roles.RoleMember}
	e.store.members[memberKey(1, 10)] = &member
	e.store.memberships[5] = []orgs.TeamMembership{{TeamID: 100}}
	e.store.teamProjects[100] = []int64{200}
	e.store.orgTeams[1] = []int64{100, 101}
	e.store.orgProjects[1] = []int64{200, 201}
	return org, member
}

func activeTeam(id, orgID int64) *orgs.Team {
	return &orgs.Team{ID: id, OrganizationID: orgID, Status: orgs.StatusActive}
}

func activeProject(id, orgID int64, teamIDs ...int64) *orgs.Project {
	return &orgs.Project{ID: id, OrganizationID: orgID, Status: orgs.StatusActive, TeamIDs: teamIDs}
}
