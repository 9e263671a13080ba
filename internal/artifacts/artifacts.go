// Package artifacts checks that each module has the compiled output the
// toolchain convention promises. It never builds anything.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/discovery"
	"github.com/vk/modgrid/internal/fsutil"
)

// Extension is the file extension of a compiled module.
const Extension = ".wasm"

// ErrMissing matches every *MissingError.
var ErrMissing = errors.New("missing module artifacts")

// Path returns where the toolchain writes the artifact of m for target:
// <module>/target/<arch>/<profile>/<name>.wasm, with dashes in the name
// replaced by underscores.
func Path(m discovery.Module, target config.Target) string {
	file := strings.ReplaceAll(m.Name, "-", "_") + Extension
	return filepath.Join(m.Path, "target", target.Arch, string(target.Profile), file)
}

// Status is the artifact state of one module.
type Status struct {
	Module discovery.Module
	Path   string
	Exists bool
	// Found lists other artifacts under the module's target directory when
	// the expected one is absent.
	Found []string
}

// MissingError names the modules without an artifact.
type MissingError struct {
	Modules []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing artifacts for %d module(s): %s", len(e.Modules), strings.Join(e.Modules, ", "))
}

func (e *MissingError) Is(target error) bool {
	return target == ErrMissing
}

// Check reports the artifact state of every module, in input order.
func Check(ctx context.Context, modules []discovery.Module, target config.Target) ([]Status, error) {
	logger := ctxlog.FromContext(ctx)
	statuses := make([]Status, 0, len(modules))
	var missing []string

	for _, m := range modules {
		st := Status{Module: m, Path: Path(m, target)}
		found, err := fsutil.FindFilesByExtension(filepath.Join(m.Path, "target"), Extension)
		if err != nil {
			return nil, fmt.Errorf("failed to scan artifacts of %s: %w", m.Name, err)
		}
		for _, f := range found {
			if f == st.Path {
				st.Exists = true
				break
			}
		}
		if st.Exists {
			logger.Info("Artifact present.", "module", m.Name, "path", st.Path)
		} else {
			st.Found = found
			missing = append(missing, m.Name)
			logger.Warn("Artifact missing.", "module", m.Name, "expected", st.Path, "found", found)
		}
		statuses = append(statuses, st)
	}

	if len(missing) > 0 {
		return statuses, &MissingError{Modules: missing}
	}
	return statuses, nil
}
