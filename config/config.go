// Package config loads the execagent configuration file and composes the
// per-package configs.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/martinemde/execagent/agent"
	"github.com/martinemde/execagent/llm"
	"github.com/martinemde/execagent/policy"
	"github.com/martinemde/execagent/runner"
	"github.com/martinemde/execagent/server"
	"github.com/martinemde/execagent/store"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "execagent.yaml"

// Environment variables that override the file.
const (
	EnvModel    = "EXECAGENT_MODEL"
	EnvProvider = "EXECAGENT_PROVIDER"
	EnvDB       = "EXECAGENT_DB"
)

// Config holds initialization parameters for every subsystem.
type Config struct {
	Agent    agent.Config  `yaml:"agent"`
	Runner   runner.Config `yaml:"runner"`
	LLM      llm.Config    `yaml:"llm"`
	Policy   policy.Config `yaml:"policy"`
	Store    store.Config  `yaml:"store"`
	Server   server.Config `yaml:"server"`
	LogLevel string        `yaml:"log_level"`
}

// DefaultConfig returns the defaults of every subsystem.
func DefaultConfig() Config {
	return Config{
		Agent:    agent.DefaultConfig(),
		Runner:   runner.DefaultConfig(),
		LLM:      llm.DefaultConfig(),
		Server:   server.DefaultConfig(),
		LogLevel: "warn",
	}
}

// Merge applies non-zero values from source onto c, delegating to each
// subsystem's Merge.
func (c *Config) Merge(source *Config) {
	c.Agent.Merge(&source.Agent)
	c.Runner.Merge(&source.Runner)
	c.LLM.Merge(&source.LLM)
	c.Policy.Merge(&source.Policy)
	c.Store.Merge(&source.Store)
	c.Server.Merge(&source.Server)
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
}

// Load reads a YAML file and merges it onto the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	cfg.Merge(&loaded)
	return &cfg, nil
}

// ApplyEnv overrides the model, provider and database path from the
// environment. getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvProvider)); v != "" {
		c.LLM.Provider = v
	}
	if v := strings.TrimSpace(getenv(EnvModel)); v != "" {
		c.LLM.Model = v
	}
	if v := strings.TrimSpace(getenv(EnvDB)); v != "" {
		c.Store.Path = v
	}
}
