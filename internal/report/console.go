package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/gookit/color"
)

func outcomeLabel(outcome string) string {
	switch outcome {
	case "succeeded", "present":
		return color.FgGreen.Sprint("ok")
	case "failed", "missing":
		return color.FgRed.Sprint(strings.ToUpper(outcome))
	case "skipped":
		return color.FgYellow.Sprint("skipped")
	default:
		return outcome
	}
}

// PrintSummary writes a per-module table and a closing verdict to w.
func PrintSummary(w io.Writer, d *Document) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, m := range d.Modules {
		code := "-"
		if m.ExitCode != nil {
			code = fmt.Sprint(*m.ExitCode)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", m.Name, outcomeLabel(m.Outcome), code, time.Duration(m.DurationMS)*time.Millisecond)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if d.Tests != nil && d.Tests.Ran {
		verdict := color.FgGreen.Sprint("passed")
		if !d.Tests.Passed {
			verdict = color.FgRed.Sprintf("failed (exit %d)", d.Tests.ExitCode)
		}
		fmt.Fprintf(w, "tests: %s\n", verdict)
	}

	if d.Success {
		_, err := fmt.Fprintln(w, color.OpBold.Sprintf("%s: ok", d.Command))
		return err
	}
	_, err := fmt.Fprintln(w, color.OpBold.Sprintf("%s: failed (exit %d)", d.Command, d.ExitCode))
	return err
}
