// Package app contains the core application logic. It loads the workspace
// configuration, wires the phases of each command into a pipeline and runs
// it, decoupled from any specific entrypoint like a CLI.
package app
