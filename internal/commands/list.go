package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/output"
	"eisen/internal/service"
)

// DefaultWidth is used for the styled board when COLUMNS is unset.
const DefaultWidth = 100

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `eisen` (no args) and `eisen list`.
type ListCmd struct {
	all    bool
	format string
}

// SetAll includes completed tasks (for testing).
func (c *ListCmd) SetAll(all bool) {
	c.all = all
}

// SetFormat sets the output format (for testing).
func (c *ListCmd) SetFormat(format string) {
	c.format = format
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "Show the matrix" }
func (c *ListCmd) Usage() string     { return "eisen list [--all] [--format text|json|yaml]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
	fs.StringVar(&c.format, "format", output.FormatText, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}
	if !output.ValidFormat(c.format) {
		fmt.Fprintf(errOut, "error: unknown format: %s\n", c.format)
		return exitcode.UserError
	}

	st, err := loadStore(ctx, cfg, svc)
	if err != nil {
		return fail(errOut, err)
	}
	refs := output.Number(st.Tasks(), c.all)

	switch c.format {
	case output.FormatJSON, output.FormatYAML:
		if refs == nil {
			refs = []output.Ref{}
		}
		if err := output.Encode(out, c.format, refs); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		return exitcode.Success
	}

	if len(refs) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	if isTerminal(out) {
		th := loadTheme(ctx, cfg, out)
		fmt.Fprint(out, th.RenderBoard(refs, terminalWidth()))
		return exitcode.Success
	}
	output.FormatBoard(out, refs, cfg.Location())
	return exitcode.Success
}

// terminalWidth reads COLUMNS, falling back to DefaultWidth.
func terminalWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 0 {
		return n
	}
	return DefaultWidth
}
