package toolchain

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/vk/modgrid/internal/ctxlog"
)

// ExecRunner runs invocations as child processes of the current process.
// The child inherits the environment. Cancelling ctx kills the child.
type ExecRunner struct{}

// NewExecRunner creates a runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts inv and blocks until it exits.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation, streams Streams) (Result, error) {
	logger := ctxlog.FromContext(ctx)
	if inv.Program == "" {
		return Result{ExitCode: -1}, errors.New("invocation has no program")
	}

	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = inv.Dir
	cmd.Stdout = streams.Stdout
	cmd.Stderr = streams.Stderr

	logger.Debug("Starting external process.", "command", inv.String(), "dir", inv.Dir)
	err := cmd.Run()
	streams.flush()

	if err == nil {
		return Result{ExitCode: 0}, nil
	}
	if ctx.Err() != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%s interrupted: %w", inv.Program, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Terminated by a signal.
			return Result{ExitCode: -1}, fmt.Errorf("%s terminated: %w", inv.Program, err)
		}
		logger.Debug("External process exited with failure.", "command", inv.String(), "exit_code", code)
		return Result{ExitCode: code}, nil
	}
	return Result{ExitCode: -1}, fmt.Errorf("failed to start %s: %w", inv.Program, err)
}
