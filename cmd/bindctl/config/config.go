// Package config loads the bindctl configuration file.
package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Storage backends a store can be persisted to.
const (
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

// Config holds the bindctl configuration.
type Config struct {
	Backend     string `yaml:"backend"`
	StateDir    string `yaml:"state_dir"`
	PostgresDSN string `yaml:"postgres_dsn"`
	LogLevel    string `yaml:"log_level"`
}

// DefaultStateDir returns the directory the bolt backend keeps its database
// in unless told otherwise: ~/.bindstate
func DefaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".bindstate")
	}
	return filepath.Join(home, ".bindstate")
}

// DefaultPath returns the default config file path: ~/.bindstate/config.yaml
func DefaultPath() string {
	return filepath.Join(DefaultStateDir(), "config.yaml")
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Backend:  BackendBolt,
		StateDir: DefaultStateDir(),
		LogLevel: "info",
	}
}

// Load reads the configuration from the given YAML file path. Keys missing
// from the file keep their default. If the file does not exist, it returns
// the default Config with no error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return cfg, nil
}

// Validate checks that the configuration names a usable backend.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendBolt:
		if c.StateDir == "" {
			return errors.New("state_dir is required by the bolt backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres_dsn is required by the postgres backend")
		}
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}
