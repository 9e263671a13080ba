package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// MakeWorkspace creates a temporary workspace with a modules/ directory
// holding one empty subdirectory per name. Extra files are written relative
// to the workspace root. It returns the workspace directory.
func MakeWorkspace(t *testing.T, modules []string, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	root := filepath.Join(dir, "modules")
	require.NoError(t, os.Mkdir(root, 0o755))
	for _, name := range modules {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}
