package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)

	c, err := Load(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, 5*time.Second, c.TickInterval)
	assert.Equal(t, 2*time.Minute, c.ClockJump.Backward)
	assert.Equal(t, 24*time.Hour, c.ClockJump.Forward)
	assert.Equal(t, time.Second, c.Daemon.PollInterval)
	assert.Equal(t, []string{"wakeup"}, c.Daemon.LaunchCommand)
	assert.True(t, c.Daemon.ExactAlarmPermission)
	assert.Equal(t, filepath.Join(dir, "alarmd.db"), c.DatabaseFile())
	assert.Equal(t, filepath.Join(dir, "sounds"), c.SoundsPath())
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\ntick_interval: 10s\n"), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 10*time.Second, c.TickInterval)
	assert.Equal(t, "alarmd.db", c.DatabasePath)
}

func TestLoadRejectsSlowTick(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("tick_interval: 2m\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPathHonoursEnv(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/elsewhere.yaml")
	assert.Equal(t, "/tmp/elsewhere.yaml", Path("/ignored"))
}
