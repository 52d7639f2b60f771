package orgs

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// MembershipStore is the data-access collaborator the access engine reads
// membership facts from. All methods are single bounded lookups.
type MembershipStore interface {
	// FindMember returns the active membership for (org, user), or
	// ErrMemberNotFound.
	FindMember(ctx context.Context, orgID, userID int64) (*Member, error)

	// TeamMemberships returns the member's active team links, filtered to
	// active teams.
	TeamMemberships(ctx context.Context, memberID int64) ([]TeamMembership, error)

	// ProjectIDsForTeams returns the distinct ids of active projects
	// reachable through the given teams.
	ProjectIDsForTeams(ctx context.Context, teamIDs []int64) ([]int64, error)

	// HasRoleInOrganization reports whether an active member with exactly
	// the given role exists for (org, user).
	HasRoleInOrganization(ctx context.Context, orgID, userID int64, role string) (bool, error)

	// AccessibleTeamIDs returns the ids of all active teams in the org.
	AccessibleTeamIDs(ctx context.Context, orgID int64) ([]int64, error)

	// AccessibleProjectIDs returns the ids of all active projects in the org.
	AccessibleProjectIDs(ctx context.Context, orgID int64) ([]int64, error)
}

// PostgresStore implements MembershipStore and the org/team/project lookups
// over PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store backed by the given database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetOrganizationBySlug retrieves an organization by slug.
func (s *PostgresStore) GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error) {
	query := `
		SELECT id, slug, name, status, allow_joinleave, disable_member_invite
		FROM organizations
		WHERE slug = $1
	`
	org := &Organization{}
	err := s.db.QueryRowContext(ctx, query, slug).Scan(
		&org.ID, &org.Slug, &org.Name, &org.Status,
		&org.Flags.AllowJoinleave, &org.Flags.DisableMemberInvite,
	)
	if err == sql.ErrNoRows {
		return nil, ErrOrganizationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// GetTeam retrieves a team by id.
func (s *PostgresStore) GetTeam(ctx context.Context, id int64) (*Team, error) {
	query := `SELECT id, organization_id, slug, status FROM teams WHERE id = $1`
	team := &Team{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID, &team.OrganizationID, &team.Slug, &team.Status,
	)
	if err == sql.ErrNoRows {
		return nil, ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team: %w", err)
	}
	return team, nil
}

// GetProject retrieves a project by id, including its team assignments.
func (s *PostgresStore) GetProject(ctx context.Context, id int64) (*Project, error) {
	query := `SELECT id, organization_id, slug, status FROM projects WHERE id = $1`
	project := &Project{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&project.ID, &project.OrganizationID, &project.Slug, &project.Status,
	)
	if err == sql.ErrNoRows {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT team_id FROM project_teams WHERE project_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get project teams: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var teamID int64
		if err := rows.Scan(&teamID); err != nil {
			return nil, fmt.Errorf("failed to scan project team: %w", err)
		}
		project.TeamIDs = append(project.TeamIDs, teamID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read project teams: %w", err)
	}

	return project, nil
}

// FindMember returns the active membership for (org, user).
func (s *PostgresStore) FindMember(ctx context.Context, orgID, userID int64) (*Member, error) {
	query := `
		SELECT id, organization_id, user_id, role, scopes
		FROM organization_members
		WHERE organization_id = $1 AND user_id = $2 AND user_is_active = TRUE
	`
	member := &Member{}
	var scopes pq.StringArray
	err := s.db.QueryRowContext(ctx, query, orgID, userID).Scan(
		&member.ID, &member.OrganizationID, &member.UserID, &member.Role, &scopes,
	)
	if err == sql.ErrNoRows {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	member.Scopes = []string(scopes)
	return member, nil
}

// TeamMemberships returns active team links for a member, restricted to
// active teams.
func (s *PostgresStore) TeamMemberships(ctx context.Context, memberID int64) ([]TeamMembership, error) {
	query := `
		SELECT mt.team_id, COALESCE(mt.role, '')
		FROM organization_member_teams mt
		JOIN teams t ON t.id = mt.team_id
		WHERE mt.organization_member_id = $1 AND mt.is_active = TRUE AND t.status = 'active'
	`
	rows, err := s.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to query team memberships: %w", err)
	}
	defer rows.Close()

	var memberships []TeamMembership
	for rows.Next() {
		var tm TeamMembership
		if err := rows.Scan(&tm.TeamID, &tm.Role); err != nil {
			return nil, fmt.Errorf("failed to scan team membership: %w", err)
		}
		memberships = append(memberships, tm)
	}
	return memberships, rows.Err()
}

// ProjectIDsForTeams returns distinct active project ids reachable through
// the given teams.
func (s *PostgresStore) ProjectIDsForTeams(ctx context.Context, teamIDs []int64) ([]int64, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT p.id
		FROM projects p
		JOIN project_teams pt ON pt.project_id = p.id
		WHERE p.status = 'active' AND pt.team_id = ANY($1)
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(teamIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query projects for teams: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HasRoleInOrganization reports whether an active member with the exact role
// exists.
func (s *PostgresStore) HasRoleInOrganization(ctx context.Context, orgID, userID int64, role string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM organization_members
			WHERE organization_id = $1 AND user_id = $2 AND role = $3 AND user_is_active = TRUE
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, orgID, userID, role).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check role membership: %w", err)
	}
	return exists, nil
}

// AccessibleTeamIDs returns all active team ids in an organization.
func (s *PostgresStore) AccessibleTeamIDs(ctx context.Context, orgID int64) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT id FROM teams WHERE organization_id = $1 AND status = 'active'`, orgID)
}

// AccessibleProjectIDs returns all active project ids in an organization.
func (s *PostgresStore) AccessibleProjectIDs(ctx context.Context, orgID int64) ([]int64, error) {
	return s.queryIDs(ctx, `SELECT id FROM projects WHERE organization_id = $1 AND status = 'active'`, orgID)
}

func (s *PostgresStore) queryIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
