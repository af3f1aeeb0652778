package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const baseConfig = `
platform:
  access_token: tok
  account_id: act_42
app:
  log_level: debug
optimizer:
  window_days: 14
`

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", baseConfig)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, 14, cfg.Optimizer.WindowDays)
	assert.Equal(t, "facebook", cfg.Platform.Name)
	assert.Equal(t, "1h", cfg.Optimizer.SweepInterval)
	assert.Equal(t, 100.0, cfg.Optimizer.Thresholds.StopLossSpendUSD)
	assert.NotEmpty(t, cfg.Scoring.Stages)
	assert.Equal(t, 12, cfg.Advisor.StalenessHours)
}

func TestLoadIncludeMergesWithIncluderWinning(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "shared.yaml", `
platform:
  access_token: shared-tok
  account_id: act_42
  api_version: v18.0
optimizer:
  max_concurrency: 4
`)
	path := writeConfig(t, dir, "config.yaml", `
include:
  - shared.yaml
platform:
  api_version: v19.0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "shared-tok", cfg.Platform.AccessToken, "included values survive")
	assert.Equal(t, "v19.0", cfg.Platform.APIVersion, "the including file wins")
	assert.Equal(t, 4, cfg.Optimizer.MaxConcurrency)
}

func TestLoadIncludeCycleFails(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include:\n  - b.yaml\n")
	writeConfig(t, dir, "b.yaml", "include:\n  - a.yaml\n")

	_, err := Load(filepath.Join(dir, "a.yaml"))
	assert.ErrorContains(t, err, "cycle")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidConfigFails(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
platform:
  account_id: act_42
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "access_token")
}
