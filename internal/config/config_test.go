package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err, "first run persists the default config")
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("listen: 0.0.0.0:9000\nview: week\nweek_start: sunday\nhorizon_days: 14\n")
	require.NoError(t, os.WriteFile(path, body, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "week", cfg.View)
	assert.Equal(t, "sunday", cfg.WeekStart)
	assert.Equal(t, 14, cfg.HorizonDays)

	// Unset keys pick up defaults.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "09:00", cfg.BusinessHours.Start)
	assert.Equal(t, 128, cfg.CacheCapacity)
	assert.Equal(t, "reject", cfg.OnDuplicate)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("view: [unclosed"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestNormalizeFallsBackOnUnknownValues(t *testing.T) {
	cfg := &Config{
		View:            "agenda",
		WeekStart:       "wednesday",
		OnDuplicate:     "maybe",
		OnMissingRemove: "explode",
		HorizonDays:     -3,
	}
	cfg.Normalize()

	assert.Equal(t, "month", cfg.View)
	assert.Equal(t, "monday", cfg.WeekStart)
	assert.Equal(t, "reject", cfg.OnDuplicate)
	assert.Equal(t, "ignore", cfg.OnMissingRemove)
	assert.Equal(t, 7, cfg.HorizonDays)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.View = "day"
	cfg.CacheCapacity = 32
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	require.NoError(t, Save(path, DefaultConfig()))

	updated := DefaultConfig()
	updated.Listen = "0.0.0.0:9999"
	require.NoError(t, Save(path, updated))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9999", loaded.Listen)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files survive a save")
}

func TestSaveNilConfig(t *testing.T) {
	err := Save(filepath.Join(t.TempDir(), "config.yaml"), nil)
	assert.Error(t, err)
}
