package roles

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/warden/pkg/observability"
)

// UnknownRoleError indicates stored membership data references a role id
// that is not registered. This is data corruption, not a deny: callers on
// the request path surface it as an internal error.
type UnknownRoleError struct {
	RoleID string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("unknown role %q referenced by stored data", e.RoleID)
}

// Registry is the static role lookup consulted at runtime. It is read-mostly;
// the only writes happen when a roles file is (re)loaded, guarded by the
// mutex so concurrent request handling stays safe during a hot reload.
type Registry struct {
	mu        sync.RWMutex
	orgRoles  map[string]Role
	teamRoles map[string]TeamRole
}

// NewRegistry creates a registry populated with the built-in roles.
func NewRegistry() *Registry {
	r := &Registry{
		orgRoles:  make(map[string]Role),
		teamRoles: make(map[string]TeamRole),
	}
	for _, role := range BuiltInRoles() {
		r.orgRoles[role.ID] = role
	}
	for _, role := range BuiltInTeamRoles() {
		r.teamRoles[role.ID] = role
	}
	return r
}

// Get resolves an organization role by id. Unknown ids return ok=false;
// callers decide whether that means no-access or misconfiguration.
func (r *Registry) Get(id string) (Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.orgRoles[id]
	return role, ok
}

// GetTeamRole resolves a team role by id.
func (r *Registry) GetTeamRole(id string) (TeamRole, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.teamRoles[id]
	return role, ok
}

// AllScopes returns the union of every scope granted by any registered role.
// Used as the full scope set for org-bound bearer credentials.
func (r *Registry) AllScopes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, role := range r.orgRoles {
		for _, s := range role.Scopes {
			seen[s] = struct{}{}
		}
	}
	for _, role := range r.teamRoles {
		for _, s := range role.Scopes {
			seen[s] = struct{}{}
		}
	}

	scopes := make([]string, 0, len(seen))
	for s := range seen {
		scopes = append(scopes, s)
	}
	sort.Strings(scopes)
	return scopes
}

// rolesFile is the YAML shape of a roles override file.
type rolesFile struct {
	OrganizationRoles []Role     `yaml:"organization_roles"`
	TeamRoles         []TeamRole `yaml:"team_roles"`
}

// LoadFile merges role definitions from a YAML file into the registry.
// Entries with an id matching a built-in role replace it.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read roles file: %w", err)
	}

	var file rolesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse roles file: %w", err)
	}

	for _, role := range file.OrganizationRoles {
		if role.ID == "" {
			return fmt.Errorf("roles file contains an organization role without an id")
		}
	}
	for _, role := range file.TeamRoles {
		if role.ID == "" {
			return fmt.Errorf("roles file contains a team role without an id")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, role := range file.OrganizationRoles {
		r.orgRoles[role.ID] = role
	}
	for _, role := range file.TeamRoles {
		r.teamRoles[role.ID] = role
	}
	return nil
}

// Watch reloads the roles file whenever it changes on disk. Blocks until the
// context is cancelled; run it in its own goroutine. Reload failures keep the
// previous definitions.
func (r *Registry) Watch(ctx context.Context, path string, logger *observability.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create roles watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch roles file: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := r.LoadFile(path); err != nil {
				logger.WithError(err).Errorf("Failed to reload roles file %s", path)
				continue
			}
			logger.Infof("Reloaded roles from %s", path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("Roles file watcher error")
		}
	}
}
