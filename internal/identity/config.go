package identity

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds identifier alias overrides loaded from .pitwall.yaml.
//
// The results API occasionally renames a ref mid-season ("alonso" becoming
// "fernando_alonso") or uses a circuit key no local name contains. Aliases
// let operators bridge those gaps from config: key is the external
// identifier as the API sends it, value is the canonical form the reference
// tables resolve.
type Config struct {
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	DriverAliases map[string]string `yaml:"driver_aliases"`
	//nolint:tagliatelle
	ConstructorAliases map[string]string `yaml:"constructor_aliases"`
	//nolint:tagliatelle
	CircuitAliases map[string]string `yaml:"circuit_aliases"`
}

// DefaultConfigPath is the default location for the pitwall configuration file.
const DefaultConfigPath = ".pitwall.yaml"

// ConfigPathEnvVar is the environment variable name for a custom config path.
const ConfigPathEnvVar = "PITWALL_CONFIG_PATH"

// LoadConfig loads alias configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns empty config (not error) if the file doesn't exist - aliases are optional
//   - Returns empty config + logs warning if YAML is invalid (graceful degradation)
//   - Returns populated config on success
//
// Ingestion must be able to run without any alias file present; aliases only
// patch mapping gaps, they never gate the pipeline.
func LoadConfig(path string) (*Config, error) {
	cfg := emptyConfig()

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Config file not found, continuing without aliases",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("Failed to read config file, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("Failed to parse config file, continuing without aliases",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return emptyConfig(), nil
	}

	// Ensure maps are initialized even if YAML had nil/empty sections
	if cfg.DriverAliases == nil {
		cfg.DriverAliases = make(map[string]string)
	}

	if cfg.ConstructorAliases == nil {
		cfg.ConstructorAliases = make(map[string]string)
	}

	if cfg.CircuitAliases == nil {
		cfg.CircuitAliases = make(map[string]string)
	}

	return cfg, nil
}

// LoadConfigFromEnv loads config from the path in PITWALL_CONFIG_PATH, falling
// back to ".pitwall.yaml" in the current directory if not set.
func LoadConfigFromEnv() (*Config, error) {
	path := os.Getenv(ConfigPathEnvVar)
	if path == "" {
		path = DefaultConfigPath
	}

	return LoadConfig(path)
}

func emptyConfig() *Config {
	return &Config{
		DriverAliases:      make(map[string]string),
		ConstructorAliases: make(map[string]string),
		CircuitAliases:     make(map[string]string),
	}
}
