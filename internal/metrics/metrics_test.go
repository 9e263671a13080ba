package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modgrid/internal/builder"
	"github.com/vk/modgrid/internal/discovery"
)

func TestModuleCounters(t *testing.T) {
	t.Parallel()

	m := New()
	ctx := context.Background()
	a := discovery.Module{Name: "a"}

	m.ModuleStarted(ctx, a)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modulesInFlight))

	m.ModuleFinished(ctx, builder.ModuleResult{Module: a, Outcome: builder.Succeeded, Duration: time.Second})
	m.ModuleFinished(ctx, builder.ModuleResult{Module: discovery.Module{Name: "b"}, Outcome: builder.Skipped})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.modulesInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.moduleBuilds.WithLabelValues("succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.moduleBuilds.WithLabelValues("skipped")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.buildDuration))
}

func TestPhaseCounters(t *testing.T) {
	t.Parallel()

	m := New()
	m.PhaseFinished("discover", nil, time.Millisecond)
	m.PhaseFinished("build", errors.New("boom"), time.Second)

	expected := `
# HELP modgrid_phase_runs_total Pipeline phases by name and result.
# TYPE modgrid_phase_runs_total counter
modgrid_phase_runs_total{phase="build",result="error"} 1
modgrid_phase_runs_total{phase="discover",result="ok"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "modgrid_phase_runs_total"))
}

func TestRegistriesAreIndependent(t *testing.T) {
	t.Parallel()

	first, second := New(), New()
	first.PhaseFinished("build", nil, time.Second)

	n, err := testutil.GatherAndCount(second.Registry(), "modgrid_phase_runs_total")
	require.NoError(t, err)
	assert.Zero(t, n)
}
