package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/modgrid/internal/artifacts"
	"github.com/vk/modgrid/internal/builder"
	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/discovery"
	"github.com/vk/modgrid/internal/harness"
	"github.com/vk/modgrid/internal/notify"
	"github.com/vk/modgrid/internal/pipeline"
	"github.com/vk/modgrid/internal/report"
	"github.com/vk/modgrid/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// Commands understood by Run.
const (
	CommandModules   = "modules"
	CommandTest      = "test"
	CommandArtifacts = "artifacts"
)

const (
	phaseDiscover  = "discover"
	phaseBuild     = "build"
	phaseTest      = "test"
	phaseArtifacts = "artifacts"
)

// ErrUnknownCommand is returned by Run for a command it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// commandPhases maps each command to the final phase it runs.
var commandPhases = map[string]string{
	CommandModules:   phaseBuild,
	CommandTest:      phaseTest,
	CommandArtifacts: phaseArtifacts,
}

// runState is what the phases of one run hand to each other.
type runState struct {
	modules  []discovery.Module
	build    *builder.Report
	statuses []artifacts.Status
	testsRan bool
	testErr  error
}

// Run executes command and returns the error of the phase that stopped it.
// The exit code for the error is given by ExitCode.
func (a *App) Run(ctx context.Context, command string) error {
	final, ok := commandPhases[command]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownCommand, command)
	}
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := a.logger
	logger.Debug("App.Run method started.", "command", command)
	start := time.Now()

	if err := a.startHealthcheckServer(ctx, a.cfg.HealthcheckPort); err != nil {
		return err
	}
	defer a.closeHealthcheckServer(ctx)

	tp := telemetry.Disabled()
	if a.cfg.Trace {
		var err error
		if tp, err = telemetry.NewStdout(a.traceW, a.runID); err != nil {
			return err
		}
	}
	defer func() {
		if err := tp.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Failed to flush traces.", "error", err)
		}
	}()

	notifier := a.dialNotifier(ctx)
	defer notifier.Close()

	obs := observers{a.metrics, notifier}
	st := &runState{}
	p, err := pipeline.New(a.phases(st, tp.Tracer(), obs),
		pipeline.WithTracer(tp.Tracer()),
		pipeline.WithObserver(obs),
	)
	if err != nil {
		return err
	}

	logger.Info("🚀 Starting command.",
		"command", command,
		"root", a.model.RootPath(),
		"target", a.model.Workspace.Target.String(),
	)
	runErr := p.Run(ctx, final)
	code := ExitCode(runErr)
	notifier.RunFinished(command, code)

	if err := a.finish(command, st, runErr, code, time.Since(start)); err != nil {
		runErr = errors.Join(runErr, err)
	}
	if runErr != nil {
		logger.Error("🏁 Command failed.", "command", command, "error", runErr, "exit_code", code)
	} else {
		logger.Info("🏁 Command finished.", "command", command, "duration", time.Since(start))
	}
	return runErr
}

// phases declares every phase any command can reach.
func (a *App) phases(st *runState, tracer trace.Tracer, obs observers) []pipeline.Phase {
	root := a.model.RootPath()
	target := a.model.Workspace.Target

	return []pipeline.Phase{
		{
			Name: phaseDiscover,
			Run: func(ctx context.Context) error {
				modules, err := discovery.Discover(ctx, root)
				if err != nil {
					return err
				}
				st.modules = modules
				return nil
			},
		},
		{
			Name:     phaseBuild,
			Requires: []string{phaseDiscover},
			Run: func(ctx context.Context) error {
				b := builder.New(a.runner, a.model.Toolchain, target, root, builder.Options{
					Workers:  a.model.Workspace.Workers,
					FailFast: a.model.Workspace.FailFast,
					Observer: obs,
					Tracer:   tracer,
				})
				st.build = b.Build(ctx, st.modules)
				return st.build.Err()
			},
		},
		{
			Name:     phaseTest,
			Requires: []string{phaseBuild},
			Run: func(ctx context.Context) error {
				gate, _ := st.build.Gate()
				h := harness.New(a.runner, a.model.Harness, a.model.HarnessDir(), target, root)
				st.testsRan = gate.Valid()
				st.testErr = h.Run(ctx, gate)
				return st.testErr
			},
		},
		{
			Name:     phaseArtifacts,
			Requires: []string{phaseDiscover},
			Run: func(ctx context.Context) error {
				statuses, err := artifacts.Check(ctx, st.modules, target)
				st.statuses = statuses
				return err
			},
		},
	}
}

func (a *App) dialNotifier(ctx context.Context) notify.Notifier {
	if a.cfg.NotifyURL == "" {
		return notify.Nop{}
	}
	n, err := notify.DialSocketIO(ctx, a.cfg.NotifyURL, a.runID, notify.Options{})
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Progress notifications disabled.", "error", err)
		return notify.Nop{}
	}
	return n
}

// finish prints the run summary and writes the report file.
func (a *App) finish(command string, st *runState, runErr error, code int, elapsed time.Duration) error {
	doc := &report.Document{
		RunID:      a.runID,
		Command:    command,
		Target:     a.model.Workspace.Target.String(),
		Success:    runErr == nil,
		ExitCode:   code,
		DurationMS: elapsed.Milliseconds(),
		Modules:    []report.ModuleEntry{},
	}
	if runErr != nil {
		doc.Error = runErr.Error()
	}
	switch {
	case st.build != nil:
		doc.FromBuild(st.build)
	case st.statuses != nil:
		doc.FromArtifacts(st.statuses)
	default:
		for _, m := range st.modules {
			doc.Modules = append(doc.Modules, report.ModuleEntry{Name: m.Name, Path: m.Path})
		}
	}
	if command == CommandTest {
		doc.Tests = &report.TestEntry{
			Ran:      st.testsRan,
			Passed:   st.testsRan && st.testErr == nil,
			ExitCode: ExitCode(st.testErr),
		}
	}

	if err := report.PrintSummary(a.outW, doc); err != nil {
		a.logger.Warn("Failed to print summary.", "error", err)
	}
	if a.cfg.ReportPath == "" {
		return nil
	}
	if err := report.WriteFile(doc, a.cfg.ReportPath); err != nil {
		a.logger.Error("Failed to write report.", "path", a.cfg.ReportPath, "error", err)
		return err
	}
	a.logger.Info("Report written.", "path", a.cfg.ReportPath)
	return nil
}
