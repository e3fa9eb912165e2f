package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecrit/wavecrit/internal/output"
)

// testEnv sets up isolated config dir, viper, and output for testing.
func testEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	// Override configDirFunc for tests
	origFunc := configDirFunc
	configDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { configDirFunc = origFunc })

	// Reset viper
	viper.Reset()
	viper.SetDefault("state_dir", dir)
	viper.SetDefault("db_path", filepath.Join(dir, "wavecrit.db"))
	viper.SetDefault("engine.lease_hours", 48)
	viper.SetDefault("engine.min_account_age_hours", 24)
	viper.SetDefault("engine.sweep_interval_minutes", 5)
	viper.SetDefault("engine.sweep_concurrency", 5)
	viper.SetDefault("engine.expiry_batch_size", 100)
	viper.SetDefault("tier.fast_track_commendations", 10)
	viper.SetDefault("tier.min_reviews", 25)
	viper.SetDefault("tier.min_rating", 4.5)

	// Initialize output
	ui = output.New()

	return dir
}

func TestConfigInit_CreatesFile(t *testing.T) {
	dir := testEnv(t)

	err := configInitRun()
	require.NoError(t, err)

	cfgPath := filepath.Join(dir, "config.yaml")
	_, err = os.Stat(cfgPath)
	assert.NoError(t, err, "config file should exist")

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wavecrit configuration")
	assert.Contains(t, string(data), "engine")
	assert.Contains(t, string(data), "lease_hours: 48")
}

func TestConfigInit_RefusesOverwrite(t *testing.T) {
	dir := testEnv(t)

	// Create existing file
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	err := configInitRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestConfigInit_ForceOverwrites(t *testing.T) {
	dir := testEnv(t)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("existing"), 0644))

	configForce = true
	t.Cleanup(func() { configForce = false })

	err := configInitRun()
	require.NoError(t, err)

	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "wavecrit configuration")
}

func TestConfigShow_NoFile(t *testing.T) {
	testEnv(t)

	err := configShowRun()
	assert.NoError(t, err)
}

func TestReadConfigFileValues_FlattensNestedKeys(t *testing.T) {
	dir := testEnv(t)
	cfgPath := filepath.Join(dir, "config.yaml")
	yaml := "db_path: /tmp/x.db\nengine:\n  lease_hours: 72\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yaml), 0644))

	values := readConfigFileValues(cfgPath)
	assert.True(t, values["db_path"])
	assert.True(t, values["engine.lease_hours"])
	assert.False(t, values["tier.min_rating"])
}

func TestDetectSource(t *testing.T) {
	fileValues := map[string]bool{"db_path": true}

	assert.Equal(t, "(file)", detectSource("db_path", "WAVECRIT_DB_PATH", fileValues))
	assert.Equal(t, "(default)", detectSource("tier.min_rating", "WAVECRIT_TIER_MIN_RATING", fileValues))

	t.Setenv("WAVECRIT_DB_PATH", "/env/path.db")
	assert.Equal(t, "(env: WAVECRIT_DB_PATH)", detectSource("db_path", "WAVECRIT_DB_PATH", fileValues))
}
