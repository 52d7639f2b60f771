package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/platinummonkey/warden/pkg/access"
	"github.com/platinummonkey/warden/pkg/httputil"
	"github.com/platinummonkey/warden/pkg/middleware"
	"github.com/platinummonkey/warden/pkg/orgs"
)

// EntityLookup resolves teams and projects referenced by access queries.
type EntityLookup interface {
	GetTeam(ctx context.Context, id int64) (*orgs.Team, error)
	GetProject(ctx context.Context, id int64) (*orgs.Project, error)
}

// AccessSummary is the wire shape of an access evaluator.
type AccessSummary struct {
	Role                 string   `json:"role,omitempty"`
	Scopes               []string `json:"scopes"`
	Permissions          []string `json:"permissions"`
	HasGlobalAccess      bool     `json:"has_global_access"`
	HasOpenMembership    bool     `json:"has_open_membership"`
	SsoIsValid           bool     `json:"sso_is_valid"`
	RequiresSso          bool     `json:"requires_sso"`
	IsIntegrationToken   bool     `json:"is_integration_token"`
	TeamIDs              []int64  `json:"team_ids"`
	AccessibleTeamIDs    []int64  `json:"accessible_team_ids"`
	ProjectIDs           []int64  `json:"project_ids"`
	AccessibleProjectIDs []int64  `json:"accessible_project_ids"`
}

// TeamAccessResult answers a team-level access query.
type TeamAccessResult struct {
	TeamID        int64  `json:"team_id"`
	HasAccess     bool   `json:"has_access"`
	HasMembership bool   `json:"has_membership"`
	TeamRole      string `json:"team_role,omitempty"`
	Scope         string `json:"scope,omitempty"`
	HasScope      *bool  `json:"has_scope,omitempty"`
}

// ProjectAccessResult answers a project-level access query.
type ProjectAccessResult struct {
	ProjectID     int64  `json:"project_id"`
	HasAccess     bool   `json:"has_access"`
	HasMembership bool   `json:"has_membership"`
	Scope         string `json:"scope,omitempty"`
	HasScope      *bool  `json:"has_scope,omitempty"`
}

// getAccessSummary serves the caller's resolved access for the organization.
func (s *Server) getAccessSummary(w http.ResponseWriter, r *http.Request) {
	a := middleware.GetAccess(r)
	if a == nil {
		httputil.WriteUnauthorized(w, "access not resolved")
		return
	}
	httputil.WriteSuccess(w, summarize(a))
}

// getTeamAccess answers whether the caller can see, belongs to, and holds an
// optional scope on a team.
func (s *Server) getTeamAccess(w http.ResponseWriter, r *http.Request) {
	a := middleware.GetAccess(r)
	if a == nil {
		httputil.WriteUnauthorized(w, "access not resolved")
		return
	}
	teamID, err := httputil.ParsePathInt64(r, "teamID")
	if err != nil {
		httputil.WriteErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	team, err := s.entities.GetTeam(r.Context(), teamID)
	if errors.Is(err, orgs.ErrTeamNotFound) {
		httputil.WriteNotFoundError(w, "team not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Team lookup failed")
		httputil.WriteInternalError(w, "internal error")
		return
	}

	result := TeamAccessResult{
		TeamID:        team.ID,
		HasAccess:     a.HasTeamAccess(team),
		HasMembership: a.HasTeamMembership(team),
	}
	if role, ok := a.GetTeamRole(team); ok {
		result.TeamRole = role.ID
	}
	if scope := r.URL.Query().Get("scope"); scope != "" {
		held := a.HasTeamScope(team, scope)
		result.Scope = scope
		result.HasScope = &held
	}
	httputil.WriteSuccess(w, result)
}

// getProjectAccess answers the same questions for a project.
func (s *Server) getProjectAccess(w http.ResponseWriter, r *http.Request) {
	a := middleware.GetAccess(r)
	if a == nil {
		httputil.WriteUnauthorized(w, "access not resolved")
		return
	}
	projectID, err := httputil.ParsePathInt64(r, "projectID")
	if err != nil {
		httputil.WriteErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	project, err := s.entities.GetProject(r.Context(), projectID)
	if errors.Is(err, orgs.ErrProjectNotFound) {
		httputil.WriteNotFoundError(w, "project not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("Project lookup failed")
		httputil.WriteInternalError(w, "internal error")
		return
	}

	result := ProjectAccessResult{
		ProjectID:     project.ID,
		HasAccess:     a.HasProjectAccess(project),
		HasMembership: a.HasProjectMembership(project),
	}
	if scope := r.URL.Query().Get("scope"); scope != "" {
		held := a.HasProjectScope(project, scope)
		result.Scope = scope
		result.HasScope = &held
	}
	httputil.WriteSuccess(w, result)
}

func summarize(a access.Access) AccessSummary {
	summary := AccessSummary{
		Scopes:               orEmpty(a.Scopes()),
		Permissions:          orEmpty(a.Permissions()),
		HasGlobalAccess:      a.HasGlobalAccess(),
		HasOpenMembership:    a.HasOpenMembership(),
		SsoIsValid:           a.SsoIsValid(),
		RequiresSso:          a.RequiresSso(),
		IsIntegrationToken:   a.IsIntegrationToken(),
		TeamIDs:              orEmptyIDs(a.TeamIDsWithMembership()),
		AccessibleTeamIDs:    orEmptyIDs(a.AccessibleTeamIDs()),
		ProjectIDs:           orEmptyIDs(a.ProjectIDsWithTeamMembership()),
		AccessibleProjectIDs: orEmptyIDs(a.AccessibleProjectIDs()),
	}
	if role, ok := a.GetOrganizationRole(); ok {
		summary.Role = role.ID
	}
	return summary
}

func orEmpty(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func orEmptyIDs(values []int64) []int64 {
	if values == nil {
		return []int64{}
	}
	return values
}
