package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads the workspace file at path on top of config.Default. The
// workspace directory is the directory containing path, whether or not the
// file exists.
func (l *Loader) Load(ctx context.Context, path string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	model := config.Default(filepath.Dir(path))

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logger.Debug("Workspace file not found, using defaults.", "path", path)
			return model, nil
		}
		return nil, fmt.Errorf("error accessing workspace file %s: %w", path, err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", path, diags)
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, EvalContext(nil), &root)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", path, diags)
	}

	if err := applyWorkspace(model, root.Workspace); err != nil {
		return nil, fmt.Errorf("invalid workspace block in %s: %w", path, err)
	}
	applyCommand(&model.Toolchain, root.Toolchain)
	applyCommand(&model.Harness, root.Harness)

	logger.Debug("HCL loading complete.",
		"root", model.Workspace.Root,
		"target", model.Workspace.Target.String(),
		"toolchain", model.Toolchain.Program,
		"harness", model.Harness.Program,
	)
	return model, nil
}

func applyWorkspace(m *config.Model, b *workspaceBlock) error {
	if b == nil {
		return nil
	}
	o := config.Overrides{FailFast: b.FailFast}
	if b.Root != nil {
		o.Root = *b.Root
	}
	if b.Target != nil {
		o.Arch = *b.Target
	}
	if b.Profile != nil {
		o.Profile = *b.Profile
	}
	if b.Workers != nil {
		if *b.Workers < 1 {
			return fmt.Errorf("workers must be at least 1, got %d", *b.Workers)
		}
		o.Workers = *b.Workers
	}
	return m.Apply(o)
}

func applyCommand(c *config.Command, b *commandBlock) {
	if b == nil {
		return
	}
	if b.Command != nil {
		c.Program = *b.Command
	}
	if !isNullExpr(b.Args) {
		c.Args = b.Args
	}
	if b.Dir != nil {
		c.Dir = *b.Dir
	}
}

// isNullExpr reports whether expr is absent. gohcl fills a missing optional
// expression attribute with a static null.
func isNullExpr(expr hcl.Expression) bool {
	if expr == nil {
		return true
	}
	if len(expr.Variables()) > 0 {
		return false
	}
	v, diags := expr.Value(nil)
	return !diags.HasErrors() && v.IsNull()
}
