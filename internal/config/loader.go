package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// InterpreterEnvVar overrides the configured Python interpreter path.
const InterpreterEnvVar = "KICAD_PYTHON_PATH"

// Defaults returns the baseline configuration.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "kicad-mcp-server",
			LogLevel: "INFO",
		},
		KiCAD: KiCADConfig{
			Interpreter: "python3",
		},
		API: APIConfig{
			Listen: "127.0.0.1:8337",
		},
	}
}

// Load reads and parses configuration from a file, applies defaults and the
// interpreter env override, verifies integrity checksums when present, and
// validates the result.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s\n"+
				"Hint: Check the path or run with --config flag", absPath)
		}
		return nil, fmt.Errorf("failed to read config %s: %w", absPath, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if override := os.Getenv(InterpreterEnvVar); override != "" {
		cfg.KiCAD.Interpreter = override
	}

	if err := VerifyChecksums(absPath); err != nil {
		return nil, err
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.KiCAD.Interpreter == "" {
		return fmt.Errorf("kicad.interpreter is required")
	}
	if cfg.KiCAD.Script == "" {
		return fmt.Errorf("kicad.script is required")
	}
	for _, kv := range cfg.KiCAD.Env {
		if !isEnvPair(kv) {
			return fmt.Errorf("kicad.env entry %q is not KEY=VALUE", kv)
		}
	}
	if cfg.Broker.DefaultTimeout < 0 || cfg.Broker.LongTimeout < 0 {
		return fmt.Errorf("broker timeouts must not be negative")
	}
	if cfg.API.Enabled && cfg.API.Listen == "" {
		return fmt.Errorf("api.listen is required when api.enabled is true")
	}
	return nil
}

func isEnvPair(s string) bool {
	for i := 1; i < len(s); i++ {
		if s[i] == '=' {
			return true
		}
	}
	return false
}
