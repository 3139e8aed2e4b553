package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJobConfig_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pitwall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timing_seasons: [2024, 2025]\n"), 0o600))

	cfg := LoadJobConfig(path)

	assert.Equal(t, []int{2024, 2025}, cfg.TimingSeasons)
}

func TestLoadJobConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg := LoadJobConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Empty(t, cfg.TimingSeasons)
}

func TestLoadJobConfig_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pitwall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timing_seasons: [2023]\n"), 0o600))
	t.Setenv(timingSeasonsEnvVar, "2024, 2025")

	cfg := LoadJobConfig(path)

	assert.Equal(t, []int{2024, 2025}, cfg.TimingSeasons)
}

func TestLoadJobConfig_MalformedSeasonIgnored(t *testing.T) {
	t.Setenv(timingSeasonsEnvVar, "2024,abc,2025")

	cfg := LoadJobConfig(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, []int{2024, 2025}, cfg.TimingSeasons)
}
