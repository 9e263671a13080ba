package app

import "github.com/vk/modgrid/internal/config"

// Config holds the process-level settings of one invocation. Workspace
// settings come from the workspace file, the environment and Overrides, in
// that order of precedence.
type Config struct {
	// ConfigPath is the workspace file. It may not exist.
	ConfigPath string
	Overrides  config.Overrides

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	// ReportPath, when set, receives a JSON or YAML run report.
	ReportPath string
	// NotifyURL, when set, is a socket.io endpoint for progress events.
	NotifyURL string
	// Trace writes OpenTelemetry spans to the trace writer.
	Trace bool
}
