// Package harness runs the integration test suite once the module build
// phase has succeeded.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vk/modgrid/internal/builder"
	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/toolchain"
)

var (
	// ErrBuildNotSucceeded is returned when the harness is asked to run
	// without proof of a successful build.
	ErrBuildNotSucceeded = errors.New("module build has not succeeded")
	// ErrTestsFailed matches every *TestError.
	ErrTestsFailed = errors.New("tests failed")
)

// TestError reports a harness run that completed with a failing status.
type TestError struct {
	Command string
	Code    int
}

func (e *TestError) Error() string {
	return fmt.Sprintf("tests failed: %s exited with status %d", e.Command, e.Code)
}

// Is makes errors.Is(err, ErrTestsFailed) hold.
func (e *TestError) Is(target error) bool {
	return target == ErrTestsFailed
}

// ExitCode passes the harness's own status through.
func (e *TestError) ExitCode() int {
	if e.Code <= 0 {
		return 1
	}
	return e.Code
}

// Harness runs the test command in a fixed directory.
type Harness struct {
	runner  toolchain.Runner
	command config.Command
	dir     string
	target  config.Target
	root    string
}

// New creates a Harness.
func New(runner toolchain.Runner, command config.Command, dir string, target config.Target, root string) *Harness {
	return &Harness{runner: runner, command: command, dir: dir, target: target, root: root}
}

// Run executes the test command once. It refuses to start unless gate was
// issued by a successful build report.
func (h *Harness) Run(ctx context.Context, gate builder.Gate) error {
	if !gate.Valid() {
		return ErrBuildNotSucceeded
	}

	ctx = ctxlog.With(ctx, "phase", "harness")
	logger := ctxlog.FromContext(ctx)

	inv, err := toolchain.Expand(h.command, toolchain.Vars{Target: h.target, Root: h.root}, toolchain.DefaultTestArgs, h.dir)
	if err != nil {
		return err
	}

	logger.Info("🧪 Running tests...", "command", inv.String(), "dir", inv.Dir, "modules", gate.Modules())
	start := time.Now()
	res, err := h.runner.Run(ctx, inv, toolchain.Streams{
		Stdout: toolchain.NewLogWriter(logger, slog.LevelInfo, "stdout"),
		Stderr: toolchain.NewLogWriter(logger, slog.LevelInfo, "stderr"),
	})
	if err != nil {
		return fmt.Errorf("failed to run tests: %w", err)
	}
	if !res.Success() {
		logger.Error("❌ Tests failed.", "exit_code", res.ExitCode, "duration", time.Since(start))
		return &TestError{Command: inv.String(), Code: res.ExitCode}
	}
	logger.Info("✅ Tests passed.", "duration", time.Since(start))
	return nil
}
