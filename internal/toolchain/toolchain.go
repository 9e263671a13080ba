// Package toolchain turns command templates into concrete invocations and
// runs them as external processes. Only the binary outcome of a process is
// consumed: its exit code, or the fact that it could not be started. Output
// is streamed to the caller's writers and never interpreted.
package toolchain

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/discovery"
	mghcl "github.com/vk/modgrid/internal/hcl"
	"github.com/zclconf/go-cty/cty"
)

// Invocation is one fully expanded external command.
type Invocation struct {
	Program string
	Args    []string
	Dir     string
}

// String renders the invocation the way a shell user would type it.
func (i Invocation) String() string {
	return strings.TrimSpace(i.Program + " " + strings.Join(i.Args, " "))
}

// Vars are the values a command template can reference.
type Vars struct {
	Target config.Target
	Root   string
	// Module is nil outside of a per-module build.
	Module *discovery.Module
}

func (v Vars) values() map[string]cty.Value {
	vals := map[string]cty.Value{
		"target":  cty.StringVal(v.Target.Arch),
		"profile": cty.StringVal(string(v.Target.Profile)),
		"release": cty.BoolVal(v.Target.Profile == config.ProfileRelease),
		"root":    cty.StringVal(v.Root),
	}
	if v.Module != nil {
		vals["module"] = cty.ObjectVal(map[string]cty.Value{
			"name": cty.StringVal(v.Module.Name),
			"path": cty.StringVal(v.Module.Path),
		})
	}
	return vals
}

// DefaultBuildArgs is the cargo invocation used when the toolchain block
// does not set args.
func DefaultBuildArgs(v Vars) []string {
	args := []string{"build", "--target", v.Target.Arch}
	if v.Target.Profile == config.ProfileRelease {
		args = append(args, "--release")
	}
	if v.Module != nil {
		args = append(args, "--manifest-path", filepath.Join(v.Module.Path, "Cargo.toml"))
	}
	return args
}

// DefaultTestArgs is the harness invocation used when the harness block does
// not set args.
func DefaultTestArgs(Vars) []string {
	return []string{"test"}
}

// Expand evaluates cmd against vars into an invocation running in dir.
// fallback supplies the arguments when cmd.Args is unset.
func Expand(cmd config.Command, vars Vars, fallback func(Vars) []string, dir string) (Invocation, error) {
	args, ok, err := mghcl.EvalStringList(cmd.Args, mghcl.EvalContext(vars.values()))
	if err != nil {
		return Invocation{}, fmt.Errorf("failed to expand arguments for %s: %w", cmd.Program, err)
	}
	if !ok && fallback != nil {
		args = fallback(vars)
	}
	return Invocation{Program: cmd.Program, Args: args, Dir: dir}, nil
}

// Result is the outcome of running an Invocation.
type Result struct {
	// ExitCode is the process exit status, or -1 if it never started.
	ExitCode int
}

// Success reports whether the process exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes invocations. A non-nil error means the process could not
// be run at all; a nonzero exit is reported through Result with a nil error.
type Runner interface {
	Run(ctx context.Context, inv Invocation, streams Streams) (Result, error)
}

// Streams receives process output. Nil writers discard. Writers that
// implement Flush are flushed once the process has exited.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
}

type flusher interface {
	Flush()
}

func (s Streams) flush() {
	for _, w := range []io.Writer{s.Stdout, s.Stderr} {
		if f, ok := w.(flusher); ok {
			f.Flush()
		}
	}
}
