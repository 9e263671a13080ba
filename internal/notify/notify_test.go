package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/modgrid/internal/builder"
	"github.com/vk/modgrid/internal/discovery"
)

type emitted struct {
	event   string
	payload map[string]any
}

func recordingSocket(runID string) (*SocketIO, *[]emitted, *bool) {
	var mu sync.Mutex
	events := &[]emitted{}
	closed := new(bool)
	return &SocketIO{
		runID: runID,
		emit: func(event string, payload any) {
			mu.Lock()
			defer mu.Unlock()
			*events = append(*events, emitted{event: event, payload: payload.(map[string]any)})
		},
		close: func() { *closed = true },
	}, events, closed
}

func TestSocketIO_Events(t *testing.T) {
	t.Parallel()

	// Arrange
	s, events, closed := recordingSocket("run-1")
	ctx := context.Background()
	m := discovery.Module{Name: "counter"}

	// Act
	s.ModuleStarted(ctx, m)
	s.ModuleFinished(ctx, builder.ModuleResult{Module: m, Outcome: builder.Failed, ExitCode: 101, Duration: 2 * time.Second})
	s.PhaseFinished("build", errors.New("build failed"), time.Second)
	s.RunFinished("test", 101)
	require.NoError(t, s.Close())

	// Assert
	require.Len(t, *events, 4)
	assert.Equal(t, EventModuleStarted, (*events)[0].event)
	assert.Equal(t, map[string]any{"run_id": "run-1", "module": "counter"}, (*events)[0].payload)

	finished := (*events)[1].payload
	assert.Equal(t, "failed", finished["outcome"])
	assert.Equal(t, 101, finished["exit_code"])
	assert.Equal(t, int64(2000), finished["duration_ms"])
	assert.NotContains(t, finished, "error")

	phase := (*events)[2].payload
	assert.Equal(t, false, phase["ok"])
	assert.Equal(t, "build failed", phase["error"])

	assert.Equal(t, map[string]any{"run_id": "run-1", "command": "test", "exit_code": 101}, (*events)[3].payload)
	assert.True(t, *closed)
}

func TestDialSocketIO_RejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := DialSocketIO(context.Background(), "/socket.io", "run", Options{})
	assert.ErrorContains(t, err, "must be absolute")
}

func TestNop(t *testing.T) {
	t.Parallel()

	var n Notifier = Nop{}
	n.ModuleStarted(context.Background(), discovery.Module{})
	n.RunFinished("modules", 0)
	assert.NoError(t, n.Close())
}
