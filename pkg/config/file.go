package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML shape of an optional config file. Only the settings
// operators actually tune by file are exposed; everything else stays env-only.
type fileConfig struct {
	Server struct {
		Host       string `yaml:"host"`
		Port       string `yaml:"port"`
		HealthPort string `yaml:"health_port"`
	} `yaml:"server"`
	Authz struct {
		SuperuserScopes []string `yaml:"superuser_scopes"`
		RolesFile       string   `yaml:"roles_file"`
		TeamRolesOrgs   string   `yaml:"team_roles_orgs"`
		AuditLogPath    string   `yaml:"audit_log_path"`
	} `yaml:"authz"`
	LogLevel string `yaml:"log_level"`
}

// applyFile overlays settings from a YAML file onto the env-derived config.
// File values win over env values when present.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if file.Server.Host != "" {
		c.Server.Host = file.Server.Host
	}
	if file.Server.Port != "" {
		c.Server.Port = file.Server.Port
	}
	if file.Server.HealthPort != "" {
		c.Server.HealthPort = file.Server.HealthPort
	}
	if len(file.Authz.SuperuserScopes) > 0 {
		c.Authz.SuperuserScopes = file.Authz.SuperuserScopes
	}
	if file.Authz.RolesFile != "" {
		c.Authz.RolesFile = file.Authz.RolesFile
	}
	if file.Authz.TeamRolesOrgs != "" {
		c.Authz.TeamRolesOrgs = file.Authz.TeamRolesOrgs
	}
	if file.Authz.AuditLogPath != "" {
		c.Authz.AuditLogPath = file.Authz.AuditLogPath
	}
	if file.LogLevel != "" {
		c.Observability.LogLevel = parseLogLevel(file.LogLevel)
	}
	return nil
}
