package ingest

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pitwall-io/pitwall/internal/config"
)

// JobConfig holds ingestion job policy loaded from .pitwall.yaml and the
// environment.
//
// TimingSeasons restricts the qualifying/laps/pitstops jobs to an explicit
// season list. Historical timing is settled data and re-walking decades of
// paginated lap endpoints is pure rate-limit spend, so the default is the
// two most recent seasons in the store; operators widen the window through
// config, not a code change.
type JobConfig struct {
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	TimingSeasons []int `yaml:"timing_seasons"`
}

// timingSeasonsEnvVar overrides the YAML season list, comma-separated
// ("2024,2025").
const timingSeasonsEnvVar = "PITWALL_TIMING_SEASONS"

// LoadJobConfig loads job policy from the YAML file at path, then applies
// environment overrides. Missing or invalid files degrade to defaults.
func LoadJobConfig(path string) *JobConfig {
	cfg := &JobConfig{}

	if data, err := os.ReadFile(path); err == nil && len(data) > 0 { //nolint:gosec // path is from trusted config source
		if err := yaml.Unmarshal(data, cfg); err != nil {
			slog.Warn("Failed to parse job config, using defaults",
				slog.String("path", path),
				slog.String("error", err.Error()))

			cfg = &JobConfig{}
		}
	}

	if raw := config.GetEnvStr(timingSeasonsEnvVar, ""); raw != "" {
		if seasons := parseSeasonList(raw); len(seasons) > 0 {
			cfg.TimingSeasons = seasons
		}
	}

	return cfg
}

func parseSeasonList(raw string) []int {
	parts := strings.Split(raw, ",")
	seasons := make([]int, 0, len(parts))

	for _, part := range parts {
		year, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			slog.Warn("Ignoring malformed season in season list",
				slog.String("value", part))

			continue
		}

		seasons = append(seasons, year)
	}

	return seasons
}
