package builder

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/discovery"
	"github.com/vk/modgrid/internal/testutil"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

var releaseTarget = config.Target{Arch: config.DefaultArch, Profile: config.ProfileRelease}

func modules(names ...string) []discovery.Module {
	out := make([]discovery.Module, 0, len(names))
	for _, n := range names {
		out = append(out, discovery.Module{Name: n, Path: filepath.Join("/ws/modules", n)})
	}
	return out
}

func newBuilder(runner *testutil.FakeRunner, opts Options) *Builder {
	return New(runner, config.Command{Program: "cargo"}, releaseTarget, "/ws/modules", opts)
}

func TestBuild_EmptySetSucceeds(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner()
	report := newBuilder(runner, Options{}).Build(context.Background(), nil)

	assert.True(t, report.Success())
	assert.Equal(t, 0, report.ExitCode())
	assert.NoError(t, report.Err())
	assert.Empty(t, runner.Calls())

	gate, ok := report.Gate()
	assert.True(t, ok)
	assert.True(t, gate.Valid())
}

func TestBuild_AllSucceed(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner()
	report := newBuilder(runner, Options{Workers: 2}).Build(context.Background(), modules("box", "counter", "eventer"))

	require.True(t, report.Success())
	require.Len(t, report.Results, 3)
	for i, name := range []string{"box", "counter", "eventer"} {
		assert.Equal(t, name, report.Results[i].Module.Name, "results keep input order")
		assert.Equal(t, Succeeded, report.Results[i].Outcome)
		assert.Contains(t, report.Results[i].Command, "--manifest-path /ws/modules/"+name+"/Cargo.toml")
	}
	assert.ElementsMatch(t, []string{"box", "counter", "eventer"}, runner.Keys())
	for _, inv := range runner.Calls() {
		assert.Equal(t, "cargo", inv.Program)
		assert.Contains(t, inv.Args, "wasm32-unknown-unknown")
		assert.Contains(t, inv.Args, "--release")
	}
}

func TestBuild_OneFailureFailsPhase(t *testing.T) {
	t.Parallel()

	// Arrange
	runner := testutil.NewFakeRunner()
	runner.ExitCodes["c"] = 101

	// Act
	report := newBuilder(runner, Options{}).Build(context.Background(), modules("a", "b", "c"))

	// Assert
	assert.False(t, report.Success())
	assert.Equal(t, 101, report.ExitCode())
	assert.ElementsMatch(t, []string{"a", "b", "c"}, runner.Keys(), "every module is attempted by default")

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "c", failed[0].Module.Name)
	assert.Equal(t, 101, failed[0].ExitCode)

	err := report.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBuildFailed)
	assert.Contains(t, err.Error(), "build failed for 1 of 3 module(s): c")

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 101, be.ExitCode())

	_, ok := report.Gate()
	assert.False(t, ok)
	assert.False(t, Gate{}.Valid())
}

func TestBuild_StartErrorIsFailure(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner()
	runner.StartErrs["a"] = errors.New("failed to start cargo: not found")

	report := newBuilder(runner, Options{}).Build(context.Background(), modules("a", "b"))

	assert.False(t, report.Success())
	assert.Equal(t, 1, report.ExitCode(), "no external exit code falls back to 1")
	require.Len(t, report.Failed(), 1)
	assert.ErrorContains(t, report.Failed()[0].Err, "not found")
}

func TestBuild_FailFastSkipsUnstarted(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner()
	runner.ExitCodes["a"] = 2

	report := newBuilder(runner, Options{Workers: 1, FailFast: true}).Build(context.Background(), modules("a", "b", "c"))

	assert.Equal(t, []string{"a"}, runner.Keys())
	assert.Equal(t, Failed, report.Results[0].Outcome)
	assert.Equal(t, Skipped, report.Results[1].Outcome)
	assert.Equal(t, Skipped, report.Results[2].Outcome)
	assert.Equal(t, 2, report.ExitCode())
	assert.EqualError(t, report.Err(), "build failed for 1 of 3 module(s): a; skipped: b, c")
}

func TestBuild_FailTogetherAttemptsEverything(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner()
	runner.ExitCodes["a"] = 3
	runner.ExitCodes["c"] = 4

	report := newBuilder(runner, Options{Workers: 1}).Build(context.Background(), modules("a", "b", "c"))

	assert.Equal(t, []string{"a", "b", "c"}, runner.Keys())
	assert.Len(t, report.Failed(), 2)
	assert.Empty(t, report.Skipped())
	assert.Equal(t, 3, report.ExitCode(), "first failure in report order wins")
}

func TestBuild_Idempotent(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner()
	b := newBuilder(runner, Options{Workers: 3})
	mods := modules("a", "b")

	first := b.Build(context.Background(), mods)
	second := b.Build(context.Background(), mods)

	assert.Equal(t, first.Success(), second.Success())
	assert.Len(t, runner.Calls(), 4, "nothing is cached between runs")
}

func TestBuild_WorkersRunConcurrently(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner()
	runner.Delay = 50 * time.Millisecond

	report := newBuilder(runner, Options{Workers: 4}).Build(context.Background(), modules("a", "b", "c", "d"))

	require.True(t, report.Success())
	assert.Greater(t, runner.MaxConcurrent(), 1)
	assert.LessOrEqual(t, runner.MaxConcurrent(), 4)
}

func TestBuild_WorkerLimitIsRespected(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner()
	runner.Delay = 10 * time.Millisecond

	newBuilder(runner, Options{Workers: 1}).Build(context.Background(), modules("a", "b", "c"))

	assert.Equal(t, 1, runner.MaxConcurrent())
	a, _ := runner.Record("a")
	b, _ := runner.Record("b")
	assert.False(t, b.Start.Before(a.End), "second build starts after the first ends")
}

func TestBuild_CancelledContextSkips(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	runner := testutil.NewFakeRunner()

	report := newBuilder(runner, Options{}).Build(ctx, modules("a", "b"))

	assert.Empty(t, runner.Calls())
	assert.Len(t, report.Skipped(), 2)
	assert.False(t, report.Success())
	assert.EqualError(t, report.Err(), "build interrupted; skipped: a, b")
	assert.Equal(t, 1, report.ExitCode())
}

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	finished map[string]Outcome
}

func (o *recordingObserver) ModuleStarted(_ context.Context, m discovery.Module) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, m.Name)
}

func (o *recordingObserver) ModuleFinished(_ context.Context, res ModuleResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished == nil {
		o.finished = map[string]Outcome{}
	}
	o.finished[res.Module.Name] = res.Outcome
}

func TestBuild_NotifiesObserver(t *testing.T) {
	t.Parallel()

	runner := testutil.NewFakeRunner()
	runner.ExitCodes["a"] = 1
	obs := &recordingObserver{}

	newBuilder(runner, Options{FailFast: true, Observer: obs}).Build(context.Background(), modules("a", "b"))

	assert.Equal(t, []string{"a"}, obs.started)
	assert.Equal(t, map[string]Outcome{"a": Failed, "b": Skipped}, obs.finished)
}

func TestBuild_RecordsSpans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	runner := testutil.NewFakeRunner()
	runner.ExitCodes["b"] = 1

	newBuilder(runner, Options{Tracer: tp.Tracer("test")}).Build(context.Background(), modules("a", "b"))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	names := []string{spans[0].Name(), spans[1].Name()}
	assert.ElementsMatch(t, []string{"build a", "build b"}, names)
}
