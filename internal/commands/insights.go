package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/insights"
	"eisen/internal/output"
	"eisen/internal/service"
)

func init() {
	Register(&InsightsCmd{})
}

// InsightsCmd implements the insights command.
type InsightsCmd struct {
	format string
}

// SetFormat sets the output format (for testing).
func (c *InsightsCmd) SetFormat(format string) {
	c.format = format
}

func (c *InsightsCmd) Name() string      { return "insights" }
func (c *InsightsCmd) Aliases() []string { return nil }
func (c *InsightsCmd) Synopsis() string  { return "Show the weekly distribution and completion trend" }
func (c *InsightsCmd) Usage() string     { return "eisen insights [--format text|json|yaml]" }
func (c *InsightsCmd) NeedsAuth() bool   { return true }

func (c *InsightsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", output.FormatText, "")
}

func (c *InsightsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !output.ValidFormat(c.format) {
		fmt.Fprintf(errOut, "error: unknown format: %s\n", c.format)
		return exitcode.UserError
	}

	st, err := loadStore(ctx, cfg, svc)
	if err != nil {
		return fail(errOut, err)
	}
	weekly := insights.ComputeWeekly(st.Tasks(), Now(), cfg.Location())

	switch {
	case c.format == output.FormatJSON || c.format == output.FormatYAML:
		if err := output.Encode(out, c.format, weekly); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	case isTerminal(out):
		fmt.Fprint(out, loadTheme(ctx, cfg, out).RenderInsights(weekly))
	default:
		output.FormatInsights(out, weekly)
	}
	return exitcode.Success
}
