package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes the top level of a workspace file. Each block may appear
// at most once.
type fileRoot struct {
	Workspace *workspaceBlock `hcl:"workspace,block"`
	Toolchain *commandBlock   `hcl:"toolchain,block"`
	Harness   *commandBlock   `hcl:"harness,block"`
}

// workspaceBlock is the `workspace` block. Unset attributes keep their defaults.
type workspaceBlock struct {
	Root     *string `hcl:"root,optional"`
	Target   *string `hcl:"target,optional"`
	Profile  *string `hcl:"profile,optional"`
	Workers  *int    `hcl:"workers,optional"`
	FailFast *bool   `hcl:"fail_fast,optional"`
}

// commandBlock is a `toolchain` or `harness` block. Args stays unevaluated.
type commandBlock struct {
	Command *string        `hcl:"command,optional"`
	Args    hcl.Expression `hcl:"args,optional"`
	Dir     *string        `hcl:"dir,optional"`
}
