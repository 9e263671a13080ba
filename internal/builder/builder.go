package builder

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/discovery"
	"github.com/vk/modgrid/internal/toolchain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

// Observer is notified as module builds start and finish. Calls may come
// from several goroutines at once.
type Observer interface {
	ModuleStarted(ctx context.Context, m discovery.Module)
	ModuleFinished(ctx context.Context, res ModuleResult)
}

// Options tune a Builder.
type Options struct {
	// Workers bounds the number of concurrent builds. Values below 1 mean 1.
	Workers  int
	FailFast bool
	Observer Observer
	Tracer   trace.Tracer
}

// Builder compiles modules with one fixed toolchain command and target.
type Builder struct {
	runner  toolchain.Runner
	command config.Command
	target  config.Target
	root    string
	opts    Options
}

// New creates a Builder. root is exposed to command templates as `root`.
func New(runner toolchain.Runner, command config.Command, target config.Target, root string, opts Options) *Builder {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Builder{
		runner:  runner,
		command: command,
		target:  target,
		root:    root,
		opts:    opts,
	}
}

// Build compiles every module and returns the phase report. Results are in
// the order of modules, whatever order the builds finished in.
func (b *Builder) Build(ctx context.Context, modules []discovery.Module) *Report {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()
	report := &Report{Target: b.target, Results: make([]ModuleResult, len(modules))}

	logger.Info("🔨 Building modules...",
		"count", len(modules),
		"target", b.target.String(),
		"workers", b.opts.Workers,
		"fail_fast", b.opts.FailFast,
	)

	var stop atomic.Bool
	g := new(errgroup.Group)
	g.SetLimit(b.opts.Workers)

	for i, m := range modules {
		if b.shouldSkip(ctx, &stop) {
			report.Results[i] = b.skip(ctx, m)
			continue
		}
		g.Go(func() error {
			// The slot may have been freed after a failure elsewhere.
			if b.shouldSkip(ctx, &stop) {
				report.Results[i] = b.skip(ctx, m)
				return nil
			}
			res := b.buildOne(ctx, m)
			if res.Outcome != Succeeded {
				stop.Store(true)
			}
			report.Results[i] = res
			// Module failures are part of the report, not group errors.
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(start)
	if report.Success() {
		logger.Info("✅ All modules built.", "count", len(modules), "duration", report.Duration)
	} else {
		logger.Error("❌ Module build phase failed.", "error", report.Err(), "duration", report.Duration)
	}
	return report
}

func (b *Builder) shouldSkip(ctx context.Context, stop *atomic.Bool) bool {
	return ctx.Err() != nil || (b.opts.FailFast && stop.Load())
}

func (b *Builder) skip(ctx context.Context, m discovery.Module) ModuleResult {
	res := ModuleResult{Module: m, Outcome: Skipped, ExitCode: -1, Err: ctx.Err()}
	ctxlog.FromContext(ctx).Warn("Skipping module build.", "module", m.Name)
	if b.opts.Observer != nil {
		b.opts.Observer.ModuleFinished(ctx, res)
	}
	return res
}

// buildOne runs the toolchain for a single module.
func (b *Builder) buildOne(ctx context.Context, m discovery.Module) ModuleResult {
	ctx, span := b.opts.Tracer.Start(ctx, "build "+m.Name, trace.WithAttributes(
		attribute.String("module.name", m.Name),
		attribute.String("module.path", m.Path),
		attribute.String("target", b.target.String()),
	))
	defer span.End()

	ctx = ctxlog.With(ctx, "module", m.Name)
	logger := ctxlog.FromContext(ctx)
	if b.opts.Observer != nil {
		b.opts.Observer.ModuleStarted(ctx, m)
	}

	start := time.Now()
	res := ModuleResult{Module: m, ExitCode: -1}
	defer func() {
		if b.opts.Observer != nil {
			b.opts.Observer.ModuleFinished(ctx, res)
		}
	}()

	vars := toolchain.Vars{Target: b.target, Root: b.root, Module: &m}
	inv, err := toolchain.Expand(b.command, vars, toolchain.DefaultBuildArgs, m.Path)
	if err != nil {
		res.Outcome, res.Err, res.Duration = Failed, err, time.Since(start)
		logger.Error("Module build could not be prepared.", "error", err)
		span.SetStatus(codes.Error, err.Error())
		return res
	}
	res.Command = inv.String()
	logger.Debug("Module build starting.", "command", res.Command)

	out, err := b.runner.Run(ctx, inv, toolchain.Streams{
		Stdout: toolchain.NewLogWriter(logger, slog.LevelInfo, "stdout"),
		Stderr: toolchain.NewLogWriter(logger, slog.LevelInfo, "stderr"),
	})
	res.Duration = time.Since(start)
	res.ExitCode = out.ExitCode
	span.SetAttributes(attribute.Int("exit_code", out.ExitCode))

	switch {
	case err != nil:
		res.Outcome, res.Err = Failed, err
		logger.Error("Module build could not run.", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case !out.Success():
		res.Outcome = Failed
		logger.Error("Module build failed.", "exit_code", out.ExitCode, "duration", res.Duration)
		span.SetStatus(codes.Error, "nonzero exit")
	default:
		res.Outcome = Succeeded
		logger.Info("Module built.", "duration", res.Duration)
	}
	return res
}
