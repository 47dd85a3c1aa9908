package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/service"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "eisen help [command]" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		cmd, ok := DefaultRegistry.Find(args[0])
		if !ok {
			fmt.Fprintf(errOut, "error: unknown command: %s\n", args[0])
			return exitcode.UserError
		}
		fmt.Fprintf(out, "Usage:\n  %s\n\n%s\n\n%s", cmd.Usage(), cmd.Synopsis(), commonFlags)
		return exitcode.Success
	}

	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  %-64s %s\n", "eisen", "Show the matrix")
	for _, cmd := range DefaultRegistry.All() {
		fmt.Fprintf(out, "  %-64s %s\n", cmd.Usage(), cmd.Synopsis())
	}
	fmt.Fprintf(out, "\nTask references:\n%s\n%s", refHelp, commonFlags)
	return exitcode.Success
}

const refHelp = `  N                position on the board (eisen list --all shows the numbers)
  d1 s2 g3 e4 c1   position within Do Now, Schedule, Delegate, Eliminate or Completed
  <uuid>           task id
`

const commonFlags = `Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
