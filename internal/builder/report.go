package builder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/discovery"
)

// ErrBuildFailed matches every error returned by Report.Err.
var ErrBuildFailed = errors.New("module build failed")

// Outcome is the result of building one module.
type Outcome string

const (
	Succeeded Outcome = "succeeded"
	Failed    Outcome = "failed"
	// Skipped modules were never started, either because fail-fast stopped
	// the phase or because the run was interrupted.
	Skipped Outcome = "skipped"
)

// ModuleResult records what happened to one module.
type ModuleResult struct {
	Module   discovery.Module
	Outcome  Outcome
	Command  string
	ExitCode int
	Err      error
	Duration time.Duration
}

// Report is the structured result of one Builder phase.
type Report struct {
	Target   config.Target
	Results  []ModuleResult
	Duration time.Duration
}

// Success reports whether every module built. An empty report succeeds.
func (r *Report) Success() bool {
	for _, res := range r.Results {
		if res.Outcome != Succeeded {
			return false
		}
	}
	return true
}

// Failed returns the results of the modules whose build failed.
func (r *Report) Failed() []ModuleResult {
	return r.filter(Failed)
}

// Skipped returns the results of the modules that were never started.
func (r *Report) Skipped() []ModuleResult {
	return r.filter(Skipped)
}

func (r *Report) filter(o Outcome) []ModuleResult {
	var out []ModuleResult
	for _, res := range r.Results {
		if res.Outcome == o {
			out = append(out, res)
		}
	}
	return out
}

// ExitCode is zero on success, otherwise the first nonzero exit status of a
// failed external build in report order, or 1 when no failed module has one.
func (r *Report) ExitCode() int {
	if r.Success() {
		return 0
	}
	for _, res := range r.Results {
		if res.Outcome == Failed && res.ExitCode > 0 {
			return res.ExitCode
		}
	}
	return 1
}

// Err returns nil on success and a *BuildError naming the failed modules
// otherwise.
func (r *Report) Err() error {
	if r.Success() {
		return nil
	}
	e := &BuildError{Total: len(r.Results), Code: r.ExitCode()}
	for _, res := range r.Failed() {
		e.Failed = append(e.Failed, res.Module.Name)
	}
	for _, res := range r.Skipped() {
		e.Skipped = append(e.Skipped, res.Module.Name)
	}
	return e
}

// Gate is proof that a Builder phase succeeded. The zero Gate is invalid;
// the only way to obtain a valid one is Report.Gate.
type Gate struct {
	report *Report
}

// Gate returns a valid Gate when the report succeeded.
func (r *Report) Gate() (Gate, bool) {
	if r == nil || !r.Success() {
		return Gate{}, false
	}
	return Gate{report: r}, true
}

// Valid reports whether g was issued by a successful report.
func (g Gate) Valid() bool {
	return g.report != nil && g.report.Success()
}

// Modules returns how many modules the gating build covered.
func (g Gate) Modules() int {
	if g.report == nil {
		return 0
	}
	return len(g.report.Results)
}

// BuildError describes a failed Builder phase.
type BuildError struct {
	Total   int
	Failed  []string
	Skipped []string
	Code    int
}

func (e *BuildError) Error() string {
	if len(e.Failed) == 0 {
		return fmt.Sprintf("build interrupted; skipped: %s", strings.Join(e.Skipped, ", "))
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "build failed for %d of %d module(s): %s", len(e.Failed), e.Total, strings.Join(e.Failed, ", "))
	if len(e.Skipped) > 0 {
		fmt.Fprintf(&sb, "; skipped: %s", strings.Join(e.Skipped, ", "))
	}
	return sb.String()
}

// Is makes errors.Is(err, ErrBuildFailed) hold.
func (e *BuildError) Is(target error) bool {
	return target == ErrBuildFailed
}

// ExitCode returns the process exit code for this failure.
func (e *BuildError) ExitCode() int {
	if e.Code == 0 {
		return 1
	}
	return e.Code
}
