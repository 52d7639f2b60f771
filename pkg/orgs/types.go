package orgs

import "errors"

// Status values shared by organizations, teams, and projects.
type Status string

const (
	StatusActive          Status = "active"
	StatusPendingDeletion Status = "pending_deletion"
	StatusDeleted         Status = "deleted"
)

// OrgFlags holds organization-level behavior flags.
type OrgFlags struct {
	// AllowJoinleave means open membership: any member can reach any team
	// or project in the organization without explicit team rows.
	AllowJoinleave bool `json:"allow_joinleave"`
	// DisableMemberInvite restricts invitations to managers and owners.
	DisableMemberInvite bool `json:"disable_member_invite"`
}

// Organization is a tenant.
type Organization struct {
	ID     int64    `json:"id"`
	Slug   string   `json:"slug"`
	Name   string   `json:"name"`
	Status Status   `json:"status"`
	Flags  OrgFlags `json:"flags"`
}

// Team belongs to one organization.
type Team struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Slug           string `json:"slug"`
	Status         Status `json:"status"`
}

// Project belongs to one organization and is reachable through teams.
// TeamIDs lists the teams the project is assigned to; it is populated by
// GetProject and by remote membership contexts.
type Project struct {
	ID             int64   `json:"id"`
	OrganizationID int64   `json:"organization_id"`
	Slug           string  `json:"slug"`
	Status         Status  `json:"status"`
	TeamIDs        []int64 `json:"team_ids,omitempty"`
}

// Member is an organization membership row. Scopes holds explicit extra
// scopes attached to the membership on top of what the role grants.
type Member struct {
	ID             int64    `json:"id"`
	OrganizationID int64    `json:"organization_id"`
	UserID         int64    `json:"user_id"`
	Role           string   `json:"role"`
	Scopes         []string `json:"scopes,omitempty"`
}

// TeamMembership is an active link between a member and a team, carrying
// the member's team-level role (may be empty).
type TeamMembership struct {
	TeamID int64  `json:"team_id"`
	Role   string `json:"role,omitempty"`
}

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrTeamNotFound         = errors.New("team not found")
	ErrProjectNotFound      = errors.New("project not found")
)
