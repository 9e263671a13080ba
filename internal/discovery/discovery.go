// Package discovery enumerates the module directories of a workspace.
//
// A module is any immediate subdirectory of the configured root. Discovery
// never looks inside a module: a directory without a manifest is still a
// candidate and is left for the toolchain to reject. The module set is
// recomputed on every call.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/fsutil"
)

var (
	// ErrRootNotFound is returned when the discovery root does not exist.
	ErrRootNotFound = errors.New("module root not found")
	// ErrRootNotDirectory is returned when the discovery root is not a directory.
	ErrRootNotDirectory = errors.New("module root is not a directory")
)

// Module identifies one module directory for the duration of a single run.
type Module struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
}

// Discover returns the immediate subdirectories of root. The result is
// sorted by name so that logs and reports are reproducible; callers must not
// depend on the order for anything else.
func Discover(ctx context.Context, root string) ([]Module, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Discovering modules.", "root", root)

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, fmt.Errorf("failed to access module root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
	}

	entries, err := fsutil.ListDirs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list module root %s: %w", root, err)
	}

	modules := make([]Module, 0, len(entries))
	for _, e := range entries {
		modules = append(modules, Module{
			Name: e.Name(),
			Path: filepath.Join(root, e.Name()),
		})
	}

	logger.Info("Modules discovered.", "root", root, "count", len(modules), "modules", Names(modules))
	return modules, nil
}

// Names returns the module names in the order given.
func Names(modules []Module) []string {
	names := make([]string, len(modules))
	for i, m := range modules {
		names[i] = m.Name
	}
	return names
}
