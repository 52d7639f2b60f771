package apps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrInstallationNotFound is returned when a service principal has no active
// installation in the organization.
var ErrInstallationNotFound = errors.New("installation not found")

// Installation is an active grant of a service principal into one
// organization, carrying the scope list the organization approved.
type Installation struct {
	ID             int64    `json:"id"`
	ServiceID      int64    `json:"service_id"`
	OrganizationID int64    `json:"organization_id"`
	Scopes         []string `json:"scopes,omitempty"`
}

// InstallationStore looks up service-principal installations. Collaborator
// for the service-token branch of access resolution.
type InstallationStore interface {
	// IsInstalled reports whether the service principal has an active
	// installation in the organization.
	IsInstalled(ctx context.Context, serviceID, orgID int64) (bool, error)

	// GetInstallation returns the active installation, or
	// ErrInstallationNotFound.
	GetInstallation(ctx context.Context, serviceID, orgID int64) (*Installation, error)
}

// PostgresInstallationStore implements InstallationStore over PostgreSQL.
type PostgresInstallationStore struct {
	db *sql.DB
}

// NewPostgresInstallationStore creates a store backed by the given handle.
func NewPostgresInstallationStore(db *sql.DB) *PostgresInstallationStore {
	return &PostgresInstallationStore{db: db}
}

// IsInstalled reports whether an active installation exists.
func (s *PostgresInstallationStore) IsInstalled(ctx context.Context, serviceID, orgID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM service_installations
			WHERE service_id = $1 AND organization_id = $2 AND status = 'active'
		)
	`
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, serviceID, orgID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check installation: %w", err)
	}
	return exists, nil
}

// GetInstallation returns the active installation with its granted scopes.
func (s *PostgresInstallationStore) GetInstallation(ctx context.Context, serviceID, orgID int64) (*Installation, error) {
	query := `
		SELECT id, service_id, organization_id, scopes
		FROM service_installations
		WHERE service_id = $1 AND organization_id = $2 AND status = 'active'
	`
	installation := &Installation{}
	var scopes pq.StringArray
	err := s.db.QueryRowContext(ctx, query, serviceID, orgID).Scan(
		&installation.ID, &installation.ServiceID, &installation.OrganizationID, &scopes,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInstallationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installation: %w", err)
	}
	installation.Scopes = []string(scopes)
	return installation, nil
}
