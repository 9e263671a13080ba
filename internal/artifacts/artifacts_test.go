package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/discovery"
)

var release = config.Target{Arch: "wasm32-unknown-unknown", Profile: config.ProfileRelease}

func TestPath(t *testing.T) {
	t.Parallel()

	got := Path(discovery.Module{Name: "hello-world", Path: "/ws/modules/hello-world"}, release)
	assert.Equal(t, "/ws/modules/hello-world/target/wasm32-unknown-unknown/release/hello_world.wasm", got)
}

func writeArtifact(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("\x00asm"), 0o644))
}

func TestCheck(t *testing.T) {
	t.Parallel()

	// Arrange
	root := t.TempDir()
	built := discovery.Module{Name: "counter", Path: filepath.Join(root, "counter")}
	debugOnly := discovery.Module{Name: "event-box", Path: filepath.Join(root, "event-box")}
	untouched := discovery.Module{Name: "empty", Path: filepath.Join(root, "empty")}
	require.NoError(t, os.MkdirAll(untouched.Path, 0o755))

	writeArtifact(t, Path(built, release))
	debugPath := Path(debugOnly, config.Target{Arch: release.Arch, Profile: config.ProfileDebug})
	writeArtifact(t, debugPath)

	// Act
	statuses, err := Check(context.Background(), []discovery.Module{built, debugOnly, untouched}, release)

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissing)
	assert.EqualError(t, err, "missing artifacts for 2 module(s): event-box, empty")

	require.Len(t, statuses, 3)
	assert.True(t, statuses[0].Exists)
	assert.False(t, statuses[1].Exists)
	assert.Equal(t, []string{debugPath}, statuses[1].Found)
	assert.False(t, statuses[2].Exists)
	assert.Empty(t, statuses[2].Found)
}

func TestCheck_AllPresent(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	m := discovery.Module{Name: "a", Path: filepath.Join(root, "a")}
	writeArtifact(t, Path(m, release))

	statuses, err := Check(context.Background(), []discovery.Module{m}, release)

	require.NoError(t, err)
	assert.True(t, statuses[0].Exists)
}
