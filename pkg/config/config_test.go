package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/warden/pkg/observability"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			envValue:     "",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv(tt.key, tt.envValue)
				defer os.Unsetenv(tt.key)
			}

			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		want         bool
	}{
		{name: "returns true for 'true'", envValue: "true", want: true},
		{name: "returns true for '1'", envValue: "1", want: true},
		{name: "returns false for 'false'", envValue: "false", defaultValue: true, want: false},
		{name: "returns default when unset", envValue: "", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				os.Setenv("TEST_BOOL", tt.envValue)
				defer os.Unsetenv("TEST_BOOL")
			}
			assert.Equal(t, tt.want, getEnvBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	os.Setenv("TEST_DURATION", "45s")
	defer os.Unsetenv("TEST_DURATION")

	assert.Equal(t, 45*time.Second, getEnvDuration("TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("TEST_DURATION_UNSET", time.Minute))
}

func TestLoadConfigDefaults(t *testing.T) {
	os.Setenv("WARDEN_POSTGRES_URL", "postgres://localhost/warden_test")
	defer os.Unsetenv("WARDEN_POSTGRES_URL")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Storage.CacheEnabled)
	assert.Equal(t, 4096, cfg.Storage.L1CacheSize)
	assert.Contains(t, cfg.Authz.SuperuserScopes, "org:read")
	assert.Empty(t, cfg.Authz.TeamRolesOrgs)
}

func TestLoadConfigRequiresPostgres(t *testing.T) {
	os.Unsetenv("WARDEN_POSTGRES_URL")
	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres URL")
}

func TestValidatePortCollision(t *testing.T) {
	os.Setenv("WARDEN_POSTGRES_URL", "postgres://localhost/warden_test")
	os.Setenv("WARDEN_HEALTH_PORT", "8080")
	defer os.Unsetenv("WARDEN_POSTGRES_URL")
	defer os.Unsetenv("WARDEN_HEALTH_PORT")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestTeamRolesFeature(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "empty means off", raw: "", want: nil},
		{name: "wildcard", raw: "*", want: []int64{0}},
		{name: "org list", raw: "1, 2,3", want: []int64{1, 2, 3}},
		{name: "garbage", raw: "1,abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AuthzConfig{TeamRolesOrgs: tt.raw}
			got, err := cfg.TeamRolesFeature()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, observability.DebugLevel, parseLogLevel("debug"))
	assert.Equal(t, observability.WarnLevel, parseLogLevel("WARNING"))
	assert.Equal(t, observability.ErrorLevel, parseLogLevel("error"))
	assert.Equal(t, observability.InfoLevel, parseLogLevel("bogus"))
}

func TestApplyFileOverlay(t *testing.T) {
	path := t.TempDir() + "/warden.yaml"
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "8181"
authz:
  superuser_scopes: ["org:admin"]
  team_roles_orgs: "*"
log_level: debug
`), 0o644))

	os.Setenv("WARDEN_POSTGRES_URL", "postgres://localhost/warden_test")
	os.Setenv("WARDEN_CONFIG_FILE", path)
	defer os.Unsetenv("WARDEN_POSTGRES_URL")
	defer os.Unsetenv("WARDEN_CONFIG_FILE")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, []string{"org:admin"}, cfg.Authz.SuperuserScopes)
	assert.Equal(t, "*", cfg.Authz.TeamRolesOrgs)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
}
