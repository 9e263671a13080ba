// Package notify publishes run progress to an external listener.
package notify

import (
	"context"
	"time"

	"github.com/vk/modgrid/internal/builder"
	"github.com/vk/modgrid/internal/discovery"
)

// Event names emitted by every Notifier.
const (
	EventModuleStarted  = "module_started"
	EventModuleFinished = "module_finished"
	EventPhaseFinished  = "phase_finished"
	EventRunFinished    = "run_finished"
)

// Notifier receives build and pipeline progress. It satisfies both
// builder.Observer and pipeline.Observer.
type Notifier interface {
	ModuleStarted(ctx context.Context, m discovery.Module)
	ModuleFinished(ctx context.Context, res builder.ModuleResult)
	PhaseFinished(phase string, err error, elapsed time.Duration)
	RunFinished(command string, exitCode int)
	Close() error
}

// Nop discards every notification.
type Nop struct{}

func (Nop) ModuleStarted(context.Context, discovery.Module)      {}
func (Nop) ModuleFinished(context.Context, builder.ModuleResult) {}
func (Nop) PhaseFinished(string, error, time.Duration)           {}
func (Nop) RunFinished(string, int)                              {}
func (Nop) Close() error                                         { return nil }

func moduleFinishedPayload(runID string, res builder.ModuleResult) map[string]any {
	payload := map[string]any{
		"run_id":      runID,
		"module":      res.Module.Name,
		"outcome":     string(res.Outcome),
		"exit_code":   res.ExitCode,
		"duration_ms": res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		payload["error"] = res.Err.Error()
	}
	return payload
}

func phaseFinishedPayload(runID, phase string, err error, elapsed time.Duration) map[string]any {
	payload := map[string]any{
		"run_id":      runID,
		"phase":       phase,
		"ok":          err == nil,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	return payload
}
