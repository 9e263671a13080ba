package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vk/modgrid/internal/app"
)

// CommandHelp prints the command table.
const CommandHelp = "help"

// Command is one entry of the command table.
type Command struct {
	Name    string
	Summary string
}

// Commands lists every command in the order help shows them.
var Commands = []Command{
	{Name: CommandHelp, Summary: "Show this help (default)."},
	{Name: app.CommandModules, Summary: "Build every module under the root for the configured target."},
	{Name: app.CommandTest, Summary: "Build every module, then run the integration test harness."},
	{Name: app.CommandArtifacts, Summary: "Check that every module has its compiled artifact. Never builds."},
}

func lookupCommand(name string) (Command, bool) {
	for _, c := range Commands {
		if c.Name == name {
			return c, true
		}
	}
	return Command{}, false
}

func printCommands(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 3, ' ', 0)
	for _, c := range Commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Name, c.Summary)
	}
	tw.Flush()
}
