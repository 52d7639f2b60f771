package auth

import (
	"context"
	"database/sql"
	"fmt"
)

// SsoState describes single-sign-on posture for a membership. Both fields
// default to the permissive values used when the organization has no SSO
// provider configured.
type SsoState struct {
	// Valid reports whether the caller's SSO link is established.
	Valid bool `json:"valid"`
	// Required reports whether the organization mandates SSO for members.
	Required bool `json:"required"`
}

// AuthState bundles the elevation facts orthogonal to organization
// membership: admin-level permission strings and SSO posture.
type AuthState struct {
	Sso         SsoState `json:"sso"`
	Permissions []string `json:"permissions,omitempty"`
}

// StateService supplies elevation and SSO facts. Lookups must fail closed:
// a returned error means the caller gets no extra authority, never more.
type StateService interface {
	// Permissions returns the admin-level permission strings granted to a
	// user. Only consulted for elevated sessions.
	Permissions(ctx context.Context, userID int64) ([]string, error)

	// OrgSsoState returns the SSO posture for (org, user). Organizations
	// without an SSO provider get {Valid: true, Required: false}.
	OrgSsoState(ctx context.Context, orgID, userID int64) (SsoState, error)
}

// PostgresStateService reads auth state from PostgreSQL.
type PostgresStateService struct {
	db *sql.DB
}

// NewPostgresStateService creates a state service backed by the given handle.
func NewPostgresStateService(db *sql.DB) *PostgresStateService {
	return &PostgresStateService{db: db}
}

// Permissions returns the user's admin permission strings.
func (s *PostgresStateService) Permissions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT permission FROM user_permissions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user permissions: %w", err)
	}
	defer rows.Close()

	var permissions []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		permissions = append(permissions, p)
	}
	return permissions, rows.Err()
}

// OrgSsoState resolves the SSO posture for a user in an organization.
func (s *PostgresStateService) OrgSsoState(ctx context.Context, orgID, userID int64) (SsoState, error) {
	var providerID int64
	var allowUnlinked bool
	err := s.db.QueryRowContext(ctx,
		`SELECT id, allow_unlinked FROM auth_providers WHERE organization_id = $1`, orgID).
		Scan(&providerID, &allowUnlinked)
	if err == sql.ErrNoRows {
		return SsoState{Valid: true, Required: false}, nil
	}
	if err != nil {
		return SsoState{}, fmt.Errorf("failed to query auth provider: %w", err)
	}

	var linked bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM auth_identities
			WHERE auth_provider_id = $1 AND user_id = $2
		)`, providerID, userID).Scan(&linked)
	if err != nil {
		return SsoState{}, fmt.Errorf("failed to query auth identity: %w", err)
	}

	return SsoState{Valid: linked, Required: !allowUnlinked}, nil
}
