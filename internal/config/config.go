package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models asyncops.yml.
type Config struct {
	Server struct {
		Addr        string   `yaml:"addr"`
		BasePath    string   `yaml:"base_path"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Auth struct {
		JWTSecret       string `yaml:"jwt_secret"`
		TokenTTLMinutes int    `yaml:"token_ttl_minutes"`
	} `yaml:"auth"`
	Summary struct {
		Enabled             bool `yaml:"enabled"`
		RunHourUTC          int  `yaml:"run_hour_utc"`
		RunMinuteUTC        int  `yaml:"run_minute_utc"`
		PollIntervalSeconds int  `yaml:"poll_interval_seconds"`
	} `yaml:"summary"`
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config.auth.jwt_secret is required")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("config.auth.token_ttl_minutes must be positive")
	}
	if c.Summary.RunHourUTC < 0 || c.Summary.RunHourUTC > 23 {
		return fmt.Errorf("config.summary.run_hour_utc must be 0-23")
	}
	if c.Summary.RunMinuteUTC < 0 || c.Summary.RunMinuteUTC > 59 {
		return fmt.Errorf("config.summary.run_minute_utc must be 0-59")
	}
	if c.Summary.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config.summary.poll_interval_seconds must be positive")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "asyncops.yml")
}

// Default returns a Config with development defaults. The JWT secret is a
// placeholder and must be overridden outside local development.
func Default() *Config {
	var cfg Config
	cfg.Server.Addr = "127.0.0.1:8080"
	cfg.Server.BasePath = "/api"
	cfg.Auth.JWTSecret = "dev-secret-change-me"
	cfg.Auth.TokenTTLMinutes = 8 * 60
	cfg.Summary.Enabled = false
	cfg.Summary.RunHourUTC = 18
	cfg.Summary.RunMinuteUTC = 0
	cfg.Summary.PollIntervalSeconds = 60
	return &cfg
}

// Load reads and validates config from workspace. Missing file falls back
// to defaults.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses and validates config from raw YAML bytes. Fields left out
// of the file keep their defaults.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}
