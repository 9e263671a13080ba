package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/oklog/ulid/v2"
	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/hcl"
	"github.com/vk/modgrid/internal/metrics"
	"github.com/vk/modgrid/internal/toolchain"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	traceW     io.Writer
	logger     *slog.Logger
	cfg        *Config
	model      *config.Model
	runner     toolchain.Runner
	metrics    *metrics.Metrics
	runID      string
	httpServer *http.Server
}

// Option customises an App.
type Option func(*options)

type options struct {
	loader config.Loader
	runner toolchain.Runner
	traceW io.Writer
}

// WithRunner replaces the process runner used for builds and tests.
func WithRunner(r toolchain.Runner) Option {
	return func(o *options) { o.runner = r }
}

// WithTraceWriter sets where spans go when tracing is on. Defaults to stderr.
func WithTraceWriter(w io.Writer) Option {
	return func(o *options) { o.traceW = w }
}

// NewApp loads and validates the workspace configuration and returns an App
// with its own isolated logger and metrics registry.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	o := options{
		loader: hcl.NewLoader(),
		runner: toolchain.NewExecRunner(),
		traceW: os.Stderr,
	}
	for _, opt := range opts {
		opt(&o)
	}

	runID := ulid.Make().String()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW).With("run_id", runID)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	path := cfg.ConfigPath
	if path == "" {
		path = config.DefaultFile
	}
	model, err := o.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	envOverrides, err := config.EnvOverrides()
	if err != nil {
		return nil, err
	}
	if err := model.Apply(envOverrides); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}
	if err := model.Apply(cfg.Overrides); err != nil {
		return nil, fmt.Errorf("invalid option: %w", err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Debug("Configuration resolved.",
		"root", model.RootPath(),
		"target", model.Workspace.Target.String(),
		"workers", model.Workspace.Workers,
		"fail_fast", model.Workspace.FailFast,
	)

	return &App{
		outW:    outW,
		traceW:  o.traceW,
		logger:  logger,
		cfg:     cfg,
		model:   model,
		runner:  o.runner,
		metrics: metrics.New(),
		runID:   runID,
	}, nil
}

// Model returns the resolved workspace configuration.
func (a *App) Model() *config.Model {
	return a.model
}

// RunID returns the identifier attached to every log record of this App.
func (a *App) RunID() string {
	return a.runID
}
