package config

import "time"

// Config represents the complete server configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	KiCAD   KiCADConfig   `yaml:"kicad"`
	Broker  BrokerConfig  `yaml:"broker,omitempty"`
	Journal JournalConfig `yaml:"journal,omitempty"`
	API     APIConfig     `yaml:"api,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// KiCADConfig describes the scripting process to spawn.
type KiCADConfig struct {
	// Interpreter is the Python executable that carries the KiCAD bindings.
	// The KICAD_PYTHON_PATH environment variable overrides it.
	Interpreter string `yaml:"interpreter"`
	// Script is the path to the stdio interface script.
	Script string `yaml:"script"`
	// Env holds extra KEY=VALUE pairs for the child's environment.
	Env []string `yaml:"env,omitempty"`
}

// BrokerConfig tunes the per-command deadline policy. Zero values keep the
// built-in defaults (30s / 10m).
type BrokerConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout,omitempty"`
	LongTimeout    time.Duration `yaml:"long_timeout,omitempty"`
}

// JournalConfig defines command journal storage. An empty path disables
// journaling.
type JournalConfig struct {
	Path string `yaml:"path,omitempty"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	// APIKey is a single bearer token; empty means no auth.
	APIKey string `yaml:"api_key,omitempty"`
}
