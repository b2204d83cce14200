package knystconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "knyst.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaultsWithNoFile(t *testing.T) {
	settings, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 1024, settings.MaxCommandsPerTick)
	assert.Equal(t, 0.25, settings.LookAheadBeats)
	assert.Equal(t, 256, settings.ResourcesRingCapacity)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, "max_commands_before_update: 64\nbeat_look_ahead: 0.5\n")
	settings, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, settings.MaxCommandsPerTick)
	assert.Equal(t, 0.5, settings.LookAheadBeats)
	assert.Equal(t, 256, settings.ResourcesRingCapacity, "unset keys keep their default")
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatchReloadsOnFileChange(t *testing.T) {
	path := writeConfig(t, "max_commands_before_update: 64\n")
	settings, watcher, err := Watch(path)
	require.NoError(t, err)
	defer watcher.Close()
	require.Equal(t, 64, settings.MaxCommandsPerTick)

	reloaded := make(chan *Settings, 1)
	watcher.OnReload(func(s *Settings) { reloaded <- s })

	require.NoError(t, os.WriteFile(path, []byte("max_commands_before_update: 128\n"), 0o600))

	select {
	case s := <-reloaded:
		assert.Equal(t, 128, s.MaxCommandsPerTick)
	case <-time.After(3 * time.Second):
		t.Fatal("expected a reload callback after the config file changed")
	}
}
