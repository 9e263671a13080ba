package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabled(t *testing.T) {
	t.Parallel()

	p := Disabled()
	_, span := p.Tracer().Start(context.Background(), "build a")
	span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewStdout(t *testing.T) {
	buf := &bytes.Buffer{}
	p, err := NewStdout(buf, "01J0000000000000000000TEST")
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "build counter")
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))

	out := buf.String()
	assert.Contains(t, out, `"Name":"build counter"`)
	assert.Contains(t, out, "01J0000000000000000000TEST")
}
