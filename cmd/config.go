package cmd

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/etlaudit/pkg/api"
	"github.com/ethpandaops/etlaudit/pkg/cache"
	"github.com/ethpandaops/etlaudit/pkg/scheduler"
	"github.com/ethpandaops/etlaudit/pkg/server"
	"github.com/ethpandaops/etlaudit/pkg/slack"
	"gopkg.in/yaml.v3"
)

// TokenEnv names the environment variable that overrides slack.token
const TokenEnv = "ETLAUDIT_SLACK_TOKEN"

// Config is the configuration shared by all commands
type Config struct {
	// Logging level
	Logging string `yaml:"logging" default:"info"`

	Server    server.Config    `yaml:"server"`
	Slack     slack.Config     `yaml:"slack"`
	Scheduler scheduler.Config `yaml:"scheduler"`
	Cache     cache.Config     `yaml:"cache"`
	API       api.Config       `yaml:"api"`
}

// Validate validates the sections every command relies on.
// Slack settings are checked when a client is created.
func (c *Config) Validate() error {
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("invalid scheduler configuration: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("invalid cache configuration: %w", err)
	}

	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("invalid api configuration: %w", err)
	}

	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	return nil
}

// LoadConfig loads configuration from a YAML file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = "./config.yaml"
	}

	config := &Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	// Try to read the file, but allow it to not exist
	yamlFile, err := os.ReadFile(path) //nolint:gosec // User-provided config file path
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if err == nil {
		if err := yaml.Unmarshal(yamlFile, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if token := os.Getenv(TokenEnv); token != "" {
		config.Slack.Token = token
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
