package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sunrise.wav"), wavBytes(2, 44100, 16, []int16{5, 5}), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ocean.wav"), []byte("garbage"), 0o644))

	b := NewOtoBackend(logging.Nop())
	assert.Equal(t, []models.Sound{models.SoundSunrise}, b.LoadOverrides(dir))
	assert.Contains(t, b.overrides, models.SoundSunrise)
	assert.NotContains(t, b.overrides, models.SoundOcean)

	assert.Empty(t, NewOtoBackend(logging.Nop()).LoadOverrides(filepath.Join(dir, "missing")))
}
