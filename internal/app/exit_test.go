package app

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/modgrid/internal/harness"
	"github.com/vk/modgrid/internal/pipeline"
)

func TestExitCode(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "tests failed", err: &harness.TestError{Code: 42}, want: 42},
		{name: "wrapped in phase", err: &pipeline.PhaseError{Phase: "test", Err: &harness.TestError{Code: 7}}, want: 7},
		{name: "wrapped with fmt", err: fmt.Errorf("outer: %w", &harness.TestError{Code: 9}), want: 9},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ExitCode(tc.err))
		})
	}
}
