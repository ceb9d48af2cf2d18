package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sitewright.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, "./data/sitewright", config.Storage.Badger.Path)
	assert.Equal(t, 500*time.Millisecond, config.Scheduler.PollIntervalDuration())
	assert.Equal(t, 2*time.Second, config.Scheduler.RetryBaseDelayDuration())
	assert.Equal(t, 30*time.Minute, config.Cleanup.GracePeriodDuration())
	require.NoError(t, config.Validate())
}

func TestLoadFromFiles_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment = "production"

[storage.badger]
path = "/var/lib/sitewright"

[scheduler]
poll_interval = "250ms"

[cleanup]
grace_period = "1h"
`)

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, "production", config.Environment)
	assert.Equal(t, "/var/lib/sitewright", config.Storage.Badger.Path)
	assert.Equal(t, 250*time.Millisecond, config.Scheduler.PollIntervalDuration())
	// Untouched sections keep their defaults
	assert.Equal(t, "2s", config.Scheduler.RetryBaseDelay)
	assert.Equal(t, time.Hour, config.Cleanup.GracePeriodDuration())
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	base := writeConfig(t, "[scheduler]\npoll_interval = \"250ms\"\n")
	override := writeConfig(t, "[scheduler]\npoll_interval = \"100ms\"\n")

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, config.Scheduler.PollIntervalDuration())
}

func TestLoadFromFiles_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "[scheduler]\npoll_interval = \"soon\"\n")

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}
