package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/modgrid/internal/app"
	"github.com/vk/modgrid/internal/config"
	"github.com/vk/modgrid/internal/report"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// ExitCode returns the exit code carried by the error.
func (e *ExitError) ExitCode() int {
	return e.Code
}

func usageError(format string, args ...any) *ExitError {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps any error to the process exit status.
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return app.ExitCode(err)
}

// Request is a parsed command line.
type Request struct {
	Command string
	Config  *app.Config
}

// Parse processes command-line arguments. It returns the request to run, a
// boolean indicating if the program should exit cleanly after printing
// help, or an ExitError for invalid usage. Flags may appear before or after
// the command.
func Parse(args []string, output io.Writer) (*Request, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("modgrid", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
modgrid - Build and verify a workspace of independently compiled modules.

Usage:
  modgrid [options] [command]

Commands:
`)
		printCommands(output)
		fmt.Fprint(output, "\nOptions:\n")
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", config.DefaultFile, "Path to the workspace file. A missing file means built-in defaults.")
	rootFlag := flagSet.String("root", "", "Directory whose subdirectories are the modules. (default \"modules\")")
	targetFlag := flagSet.String("target", "", "Target architecture passed to the toolchain. (default \"wasm32-unknown-unknown\")")
	profileFlag := flagSet.String("profile", "", "Build profile: 'debug' or 'release'. (default \"release\")")
	workersFlag := flagSet.Int("workers", 0, "Number of modules built concurrently. (default 1)")
	failFastFlag := flagSet.Bool("fail-fast", false, "Stop starting module builds after the first failure.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	reportFlag := flagSet.String("report", "", "Write a run report to this .json, .yaml or .yml file.")
	notifyFlag := flagSet.String("notify-url", "", "socket.io endpoint that receives progress events.")
	traceFlag := flagSet.Bool("trace", false, "Write OpenTelemetry spans to stderr.")

	command, err := parseInterleaved(flagSet, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return nil, false, exitErr
		}
		return nil, false, usageError("%s", err.Error())
	}
	slog.Debug("Arguments parsed successfully.", "command", command)

	if command == "" || command == CommandHelp {
		flagSet.Usage()
		return nil, true, nil
	}
	if _, ok := lookupCommand(command); !ok {
		flagSet.Usage()
		return nil, false, usageError("unknown command %q", command)
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, usageError("invalid log-format: must be 'text' or 'json'")
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, usageError("invalid log-level: must be 'debug', 'info', 'warn', or 'error'")
	}

	if *reportFlag != "" {
		if err := report.CheckPath(*reportFlag); err != nil {
			return nil, false, usageError("invalid report: %s", err.Error())
		}
	}

	var overrides config.Overrides
	var visitErr error
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "root":
			overrides.Root = *rootFlag
		case "target":
			overrides.Arch = *targetFlag
		case "profile":
			if _, err := config.ParseProfile(*profileFlag); err != nil {
				visitErr = usageError("%s", err.Error())
			}
			overrides.Profile = *profileFlag
		case "workers":
			if *workersFlag < 1 {
				visitErr = usageError("invalid workers: must be at least 1")
			}
			overrides.Workers = *workersFlag
		case "fail-fast":
			overrides.FailFast = failFastFlag
		}
	})
	if visitErr != nil {
		return nil, false, visitErr
	}
	slog.Debug("CLI parameter validation complete.")

	req := &Request{
		Command: command,
		Config: &app.Config{
			ConfigPath:      *configFlag,
			Overrides:       overrides,
			LogFormat:       logFormat,
			LogLevel:        logLevel,
			HealthcheckPort: *healthPortFlag,
			ReportPath:      *reportFlag,
			NotifyURL:       *notifyFlag,
			Trace:           *traceFlag,
		},
	}
	slog.Debug("CLI parser finished successfully.", "command", command)
	return req, false, nil
}

// parseInterleaved parses flags on both sides of the single positional
// command.
func parseInterleaved(flagSet *flag.FlagSet, args []string) (string, error) {
	if err := flagSet.Parse(args); err != nil {
		return "", err
	}
	if flagSet.NArg() == 0 {
		return "", nil
	}
	command := flagSet.Arg(0)
	if err := flagSet.Parse(flagSet.Args()[1:]); err != nil {
		return "", err
	}
	if flagSet.NArg() > 0 {
		return "", usageError("unexpected arguments after %q: %s", command, strings.Join(flagSet.Args(), " "))
	}
	return command, nil
}
