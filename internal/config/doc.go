// Package config defines the workspace configuration model: where modules
// live, the build target applied to every module, and the external
// toolchain and harness commands.
//
// The Model is assembled in layers. Defaults come first, then the workspace
// file (see the hcl package), then MODGRID_* environment variables, and
// finally command-line overrides.
package config
