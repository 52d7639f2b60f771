package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/warden/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database and cache configuration
	Storage StorageConfig

	// Authorization behavior
	Authz AuthzConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig holds PostgreSQL and Redis settings
type StorageConfig struct {
	PostgresURL      string
	PostgresMaxConns int
	PostgresTimeout  time.Duration

	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Membership snapshot cache
	CacheEnabled bool
	CacheTTL     time.Duration
	L1CacheSize  int
}

// AuthzConfig holds access-resolution behavior settings
type AuthzConfig struct {
	// SuperuserScopes is the scope set granted to actively elevated
	// sessions. Empty means elevation grants only membership scopes.
	SuperuserScopes []string

	// RolesFile optionally overrides the built-in role definitions.
	// When set, the file is hot-reloaded on change.
	RolesFile string

	// TeamRolesOrgs enables the team-roles feature: "*" for every
	// organization, otherwise a comma-separated org id list.
	TeamRolesOrgs string

	// AuditLogPath receives the authorization audit trail. Empty disables
	// auditing.
	AuditLogPath string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Authz:         loadAuthzConfig(),
		Observability: loadObservabilityConfig(),
	}

	if path := getEnv("WARDEN_CONFIG_FILE", ""); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("WARDEN_HOST", "0.0.0.0"),
		Port:            getEnv("WARDEN_PORT", "8080"),
		ReadTimeout:     getEnvDuration("WARDEN_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("WARDEN_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("WARDEN_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("WARDEN_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("WARDEN_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads database and cache configuration from environment
func loadStorageConfig() StorageConfig {
	return StorageConfig{
		PostgresURL:      getEnv("WARDEN_POSTGRES_URL", ""),
		PostgresMaxConns: getEnvInt("WARDEN_POSTGRES_MAX_CONNS", 20),
		PostgresTimeout:  getEnvDuration("WARDEN_POSTGRES_TIMEOUT", 5*time.Second),

		RedisURL:      getEnv("WARDEN_REDIS_URL", ""),
		RedisPassword: getEnv("WARDEN_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("WARDEN_REDIS_DB", 0),

		CacheEnabled: getEnvBool("WARDEN_CACHE_ENABLED", true),
		CacheTTL:     getEnvDuration("WARDEN_CACHE_TTL", 30*time.Second),
		L1CacheSize:  getEnvInt("WARDEN_L1_CACHE_SIZE", 4096),
	}
}

// loadAuthzConfig loads access-resolution configuration from environment
func loadAuthzConfig() AuthzConfig {
	return AuthzConfig{
		SuperuserScopes: splitScopes(getEnv("WARDEN_SUPERUSER_SCOPES", "org:read,org:admin,member:read,team:read,project:read,event:read")),
		RolesFile:       getEnv("WARDEN_ROLES_FILE", ""),
		TeamRolesOrgs:   getEnv("WARDEN_TEAM_ROLES_ORGS", ""),
		AuditLogPath:    getEnv("WARDEN_AUDIT_LOG_PATH", ""),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("WARDEN_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("WARDEN_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("WARDEN_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("WARDEN_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("WARDEN_OTEL_SERVICE_NAME", "warden"),
		OTelServiceVersion: getEnv("WARDEN_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("WARDEN_OTEL_INSECURE", true),
	}
}

// TeamRolesFeature converts TeamRolesOrgs into the static gate shape: a nil
// slice means the feature is off, org id 0 means every organization.
func (c AuthzConfig) TeamRolesFeature() ([]int64, error) {
	raw := strings.TrimSpace(c.TeamRolesOrgs)
	if raw == "" {
		return nil, nil
	}
	if raw == "*" {
		return []int64{0}, nil
	}

	var orgIDs []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid org id %q in team roles list: %w", part, err)
		}
		orgIDs = append(orgIDs, id)
	}
	return orgIDs, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Storage.CacheEnabled && c.Storage.L1CacheSize <= 0 {
		return fmt.Errorf("L1 cache size must be positive when the cache is enabled")
	}

	if _, err := c.Authz.TeamRolesFeature(); err != nil {
		return err
	}
	if c.Authz.RolesFile != "" {
		if _, err := os.Stat(c.Authz.RolesFile); err != nil {
			return fmt.Errorf("roles file is not readable: %w", err)
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			scopes = append(scopes, part)
		}
	}
	return scopes
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
