// Package pipeline runs a command as an ordered chain of phases. Each phase
// names the phases it requires; running a phase first runs its
// prerequisites, one at a time, and stops at the first failure so that no
// phase ever starts after something it depends on has failed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/vk/modgrid/internal/ctxlog"
	"github.com/vk/modgrid/internal/dag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ErrUnknownPhase is returned when running a phase that was never added.
var ErrUnknownPhase = errors.New("unknown phase")

// Phase is one step of a command.
type Phase struct {
	Name     string
	Requires []string
	Run      func(ctx context.Context) error
}

// PhaseError wraps the error of the phase that stopped the pipeline.
// Blocked lists the planned phases that directly required it.
type PhaseError struct {
	Phase   string
	Err     error
	Blocked []string
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

// ExitCode passes through the exit code of the wrapped error, or 1.
func (e *PhaseError) ExitCode() int {
	var coder interface{ ExitCode() int }
	if errors.As(e.Err, &coder) {
		if code := coder.ExitCode(); code != 0 {
			return code
		}
	}
	return 1
}

// Observer is told about every phase that finishes.
type Observer interface {
	PhaseFinished(phase string, err error, elapsed time.Duration)
}

// Pipeline is a validated set of phases.
type Pipeline struct {
	phases   map[string]Phase
	graph    *dag.Graph
	tracer   trace.Tracer
	observer Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTracer records one span per phase.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.tracer = t
		}
	}
}

// WithObserver reports finished phases to o.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// New validates phases and builds their dependency graph.
func New(phases []Phase, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		phases: make(map[string]Phase, len(phases)),
		graph:  dag.New(),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(p)
	}

	for _, ph := range phases {
		if ph.Name == "" || ph.Run == nil {
			return nil, fmt.Errorf("phase %q must have a name and a run function", ph.Name)
		}
		if _, dup := p.phases[ph.Name]; dup {
			return nil, fmt.Errorf("duplicate phase %q", ph.Name)
		}
		p.phases[ph.Name] = ph
		p.graph.AddNode(ph.Name)
	}
	for _, ph := range phases {
		for _, req := range ph.Requires {
			if !p.graph.Has(req) {
				return nil, fmt.Errorf("phase %q requires %w %q", ph.Name, ErrUnknownPhase, req)
			}
			if err := p.graph.AddEdge(req, ph.Name); err != nil {
				return nil, err
			}
		}
	}
	if err := p.graph.DetectCycles(); err != nil {
		return nil, err
	}
	return p, nil
}

// Plan returns the phases Run(target) would execute, in order.
func (p *Pipeline) Plan(target string) ([]string, error) {
	if !p.graph.Has(target) {
		return nil, fmt.Errorf("%w %q", ErrUnknownPhase, target)
	}
	return p.graph.Plan(target)
}

// Run executes target and everything it requires. The first failing phase
// ends the run with a *PhaseError; later phases are not started.
func (p *Pipeline) Run(ctx context.Context, target string) error {
	plan, err := p.Plan(target)
	if err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Pipeline planned.", "target", target, "phases", plan)

	for _, name := range plan {
		err := ctx.Err()
		if err == nil {
			err = p.runPhase(ctx, p.phases[name])
		}
		if err != nil {
			pe := &PhaseError{Phase: name, Err: err, Blocked: p.blocked(name, plan)}
			if len(pe.Blocked) > 0 {
				logger.Debug("Dependent phases will not run.", "phase", name, "blocked", pe.Blocked)
			}
			return pe
		}
	}
	return nil
}

// blocked returns the direct dependents of name that are part of plan.
func (p *Pipeline) blocked(name string, plan []string) []string {
	dependents, err := p.graph.Dependents(name)
	if err != nil {
		return nil
	}
	var out []string
	for _, d := range dependents {
		if slices.Contains(plan, d) {
			out = append(out, d)
		}
	}
	return out
}

func (p *Pipeline) runPhase(ctx context.Context, ph Phase) error {
	ctx, span := p.tracer.Start(ctx, ph.Name, trace.WithAttributes(attribute.String("phase", ph.Name)))
	defer span.End()

	logger := ctxlog.FromContext(ctx)
	requires, _ := p.graph.Dependencies(ph.Name)
	logger.Debug("Phase starting.", "phase", ph.Name, "requires", requires)
	start := time.Now()

	err := ph.Run(ctx)
	elapsed := time.Since(start)
	if p.observer != nil {
		p.observer.PhaseFinished(ph.Name, err, elapsed)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Debug("Phase failed.", "phase", ph.Name, "error", err, "duration", elapsed)
		return err
	}
	logger.Debug("Phase finished.", "phase", ph.Name, "duration", elapsed)
	return nil
}
