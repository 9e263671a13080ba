package testutil

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/vk/modgrid/internal/toolchain"
)

// ExecutionRecord holds the start and end times of one fake invocation.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// FakeRunner is a toolchain.Runner that never starts a process. Invocations
// are keyed by the base name of their working directory, which is the module
// name for builds. Outcomes are looked up by that key first and then by the
// first argument, so "test" addresses the default harness invocation.
type FakeRunner struct {
	// ExitCodes maps a key to the exit code its invocation reports.
	// Unlisted keys succeed.
	ExitCodes map[string]int
	// StartErrs maps a key to an error returned instead of a result.
	StartErrs map[string]error
	// Delay is how long every invocation pretends to run.
	Delay time.Duration
	// Output is written to stdout by every invocation.
	Output string

	mu       sync.Mutex
	calls    []toolchain.Invocation
	records  map[string]ExecutionRecord
	running  int
	maxInUse int
}

// NewFakeRunner returns a runner where every invocation succeeds.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		ExitCodes: map[string]int{},
		StartErrs: map[string]error{},
	}
}

// Key returns the name FakeRunner uses for inv.
func Key(inv toolchain.Invocation) string {
	return filepath.Base(inv.Dir)
}

// Run records inv and reports the configured outcome.
func (r *FakeRunner) Run(ctx context.Context, inv toolchain.Invocation, streams toolchain.Streams) (toolchain.Result, error) {
	key := Key(inv)
	start := time.Now()

	r.mu.Lock()
	r.calls = append(r.calls, inv)
	r.running++
	if r.running > r.maxInUse {
		r.maxInUse = r.running
	}
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running--
		if r.records == nil {
			r.records = map[string]ExecutionRecord{}
		}
		r.records[key] = ExecutionRecord{Start: start, End: time.Now()}
		r.mu.Unlock()
	}()

	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
			return toolchain.Result{ExitCode: -1}, errors.Join(errors.New("fake interrupted"), ctx.Err())
		}
	}
	if r.Output != "" && streams.Stdout != nil {
		_, _ = streams.Stdout.Write([]byte(r.Output))
	}
	if err, ok := lookup(r.StartErrs, inv); ok {
		return toolchain.Result{ExitCode: -1}, err
	}
	code, _ := lookup(r.ExitCodes, inv)
	return toolchain.Result{ExitCode: code}, nil
}

func lookup[V any](m map[string]V, inv toolchain.Invocation) (V, bool) {
	if v, ok := m[Key(inv)]; ok {
		return v, true
	}
	if len(inv.Args) > 0 {
		if v, ok := m[inv.Args[0]]; ok {
			return v, true
		}
	}
	var zero V
	return zero, false
}

// Calls returns every invocation seen so far, in call order.
func (r *FakeRunner) Calls() []toolchain.Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]toolchain.Invocation(nil), r.calls...)
}

// Keys returns the keys of every invocation seen so far, in call order.
func (r *FakeRunner) Keys() []string {
	var keys []string
	for _, inv := range r.Calls() {
		keys = append(keys, Key(inv))
	}
	return keys
}

// Record returns the timing of the last invocation for key.
func (r *FakeRunner) Record(key string) (ExecutionRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[key]
	return rec, ok
}

// MaxConcurrent is the largest number of invocations that ran at once.
func (r *FakeRunner) MaxConcurrent() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInUse
}
