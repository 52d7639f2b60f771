// Package config provides application configuration management from environment variables.
//
// Server settings:
//
//	WARDEN_HOST="0.0.0.0"
//	WARDEN_PORT="8080"
//	WARDEN_HEALTH_PORT="9090"
//	WARDEN_READ_TIMEOUT="15s"
//	WARDEN_WRITE_TIMEOUT="15s"
//
// Storage settings:
//
//	WARDEN_POSTGRES_URL="postgres://localhost/warden"
//	WARDEN_POSTGRES_MAX_CONNS="20"
//	WARDEN_REDIS_URL="localhost:6379"
//	WARDEN_CACHE_ENABLED="true"
//	WARDEN_CACHE_TTL="30s"
//	WARDEN_L1_CACHE_SIZE="4096"
//
// Authorization settings:
//
//	WARDEN_SUPERUSER_SCOPES="org:read,org:admin"
//	WARDEN_ROLES_FILE="/etc/warden/roles.yaml"
//	WARDEN_TEAM_ROLES_ORGS="*"           # or "1,2,3"
//	WARDEN_AUDIT_LOG_PATH="/var/log/warden/audit.log"
//
// Observability settings:
//
//	WARDEN_LOG_LEVEL="info"  # debug, info, warn, error
//	WARDEN_METRICS_ENABLED="true"
//	WARDEN_OTEL_ENABLED="true"
//	WARDEN_OTEL_ENDPOINT="otel-collector:4317"
package config
