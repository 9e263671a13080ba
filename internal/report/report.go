// Package report renders the outcome of a run, as a console summary for
// people and as a JSON or YAML document for tooling.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/modgrid/internal/artifacts"
	"github.com/vk/modgrid/internal/builder"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for report paths that are neither JSON
// nor YAML.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Document is the machine-readable summary of one run.
type Document struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Command    string        `json:"command" yaml:"command"`
	Target     string        `json:"target,omitempty" yaml:"target,omitempty"`
	Success    bool          `json:"success" yaml:"success"`
	ExitCode   int           `json:"exit_code" yaml:"exit_code"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64         `json:"duration_ms" yaml:"duration_ms"`
	Modules    []ModuleEntry `json:"modules" yaml:"modules"`
	Tests      *TestEntry    `json:"tests,omitempty" yaml:"tests,omitempty"`
}

// ModuleEntry describes one module in a Document.
type ModuleEntry struct {
	Name       string `json:"name" yaml:"name"`
	Path       string `json:"path" yaml:"path"`
	Outcome    string `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	ExitCode   *int   `json:"exit_code,omitempty" yaml:"exit_code,omitempty"`
	Command    string `json:"command,omitempty" yaml:"command,omitempty"`
	Artifact   string `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty" yaml:"duration_ms,omitempty"`
}

// TestEntry describes the harness run in a Document.
type TestEntry struct {
	Ran      bool `json:"ran" yaml:"ran"`
	Passed   bool `json:"passed" yaml:"passed"`
	ExitCode int  `json:"exit_code" yaml:"exit_code"`
}

// FromBuild fills the module entries and target from a build report.
func (d *Document) FromBuild(r *builder.Report) {
	if r == nil {
		return
	}
	d.Target = r.Target.String()
	d.Modules = make([]ModuleEntry, 0, len(r.Results))
	for _, res := range r.Results {
		entry := ModuleEntry{
			Name:       res.Module.Name,
			Path:       res.Module.Path,
			Outcome:    string(res.Outcome),
			Command:    res.Command,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Outcome != builder.Skipped && res.ExitCode >= 0 {
			code := res.ExitCode
			entry.ExitCode = &code
		}
		if res.Err != nil {
			entry.Error = res.Err.Error()
		}
		d.Modules = append(d.Modules, entry)
	}
}

// FromArtifacts fills the module entries from an artifact check.
func (d *Document) FromArtifacts(statuses []artifacts.Status) {
	d.Modules = make([]ModuleEntry, 0, len(statuses))
	for _, st := range statuses {
		outcome := "missing"
		if st.Exists {
			outcome = "present"
		}
		d.Modules = append(d.Modules, ModuleEntry{
			Name:     st.Module.Name,
			Path:     st.Module.Path,
			Outcome:  outcome,
			Artifact: st.Path,
		})
	}
}

// CheckPath returns ErrUnsupportedFormat unless the extension of path names
// a format Marshal can write.
func CheckPath(path string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return nil
	default:
		return fmt.Errorf("%w: %q (use .json, .yaml or .yml)", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Marshal encodes d in the format implied by the extension of path.
func Marshal(d *Document, path string) ([]byte, error) {
	if err := CheckPath(path); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		b, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		return yaml.Marshal(d)
	}
}

// WriteFile writes d to path.
func WriteFile(d *Document, path string) error {
	b, err := Marshal(d, path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
