package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

// Profile is the optimisation profile applied to every module build.
type Profile string

const (
	ProfileDebug   Profile = "debug"
	ProfileRelease Profile = "release"
)

// Defaults used when neither the workspace file nor any override sets a value.
const (
	DefaultFile    = "modgrid.hcl"
	DefaultRoot    = "modules"
	DefaultArch    = "wasm32-unknown-unknown"
	DefaultProfile = ProfileRelease
	DefaultProgram = "cargo"
	DefaultWorkers = 1
)

// ParseProfile validates a profile name.
func ParseProfile(s string) (Profile, error) {
	switch p := Profile(strings.ToLower(strings.TrimSpace(s))); p {
	case ProfileDebug, ProfileRelease:
		return p, nil
	default:
		return "", fmt.Errorf("invalid profile %q: must be 'debug' or 'release'", s)
	}
}

// Target is the build target descriptor shared by all modules.
type Target struct {
	Arch    string  `json:"arch" yaml:"arch"`
	Profile Profile `json:"profile" yaml:"profile"`
}

// String renders the target as arch/profile.
func (t Target) String() string {
	return t.Arch + "/" + string(t.Profile)
}

// Model is the fully resolved configuration for one invocation.
type Model struct {
	Workspace Workspace
	Toolchain Command
	Harness   Command
}

// Workspace describes the module tree and how it is built.
type Workspace struct {
	// Dir is the directory relative paths are resolved against.
	Dir      string
	Root     string
	Target   Target
	Workers  int
	FailFast bool
}

// Command is an external program invocation template. Args is evaluated
// per invocation; a nil or null expression selects the caller's default
// arguments.
type Command struct {
	Program string
	Args    hcl.Expression
	Dir     string
}

// Default returns the built-in configuration rooted at dir.
func Default(dir string) *Model {
	return &Model{
		Workspace: Workspace{
			Dir:     dir,
			Root:    DefaultRoot,
			Target:  Target{Arch: DefaultArch, Profile: DefaultProfile},
			Workers: DefaultWorkers,
		},
		Toolchain: Command{Program: DefaultProgram},
		Harness:   Command{Program: DefaultProgram, Dir: "."},
	}
}

// RootPath returns the module root as an absolute-or-workspace-relative path.
func (m *Model) RootPath() string {
	return m.resolve(m.Workspace.Root)
}

// HarnessDir returns the directory the harness runs in.
func (m *Model) HarnessDir() string {
	if m.Harness.Dir == "" {
		return m.resolve(".")
	}
	return m.resolve(m.Harness.Dir)
}

func (m *Model) resolve(p string) string {
	if filepath.IsAbs(p) || m.Workspace.Dir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(m.Workspace.Dir, p)
}

// Overrides carries values that take precedence over the workspace file.
// Zero values and nil pointers leave the underlying setting untouched.
type Overrides struct {
	Root     string `env:"MODGRID_ROOT"`
	Arch     string `env:"MODGRID_TARGET"`
	Profile  string `env:"MODGRID_PROFILE"`
	Workers  int    `env:"MODGRID_WORKERS"`
	FailFast *bool  `env:"MODGRID_FAIL_FAST"`
}

// Apply layers o on top of m.
func (m *Model) Apply(o Overrides) error {
	if o.Root != "" {
		m.Workspace.Root = o.Root
	}
	if o.Arch != "" {
		m.Workspace.Target.Arch = o.Arch
	}
	if o.Profile != "" {
		p, err := ParseProfile(o.Profile)
		if err != nil {
			return err
		}
		m.Workspace.Target.Profile = p
	}
	if o.Workers != 0 {
		m.Workspace.Workers = o.Workers
	}
	if o.FailFast != nil {
		m.Workspace.FailFast = *o.FailFast
	}
	return nil
}

// Validate reports every problem with the model at once.
func (m *Model) Validate() error {
	var errs []error
	if strings.TrimSpace(m.Workspace.Root) == "" {
		errs = append(errs, errors.New("workspace root must not be empty"))
	}
	if strings.TrimSpace(m.Workspace.Target.Arch) == "" {
		errs = append(errs, errors.New("target architecture must not be empty"))
	}
	if _, err := ParseProfile(string(m.Workspace.Target.Profile)); err != nil {
		errs = append(errs, err)
	}
	if m.Workspace.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", m.Workspace.Workers))
	}
	if strings.TrimSpace(m.Toolchain.Program) == "" {
		errs = append(errs, errors.New("toolchain command must not be empty"))
	}
	if strings.TrimSpace(m.Harness.Program) == "" {
		errs = append(errs, errors.New("harness command must not be empty"))
	}
	return errors.Join(errs...)
}
