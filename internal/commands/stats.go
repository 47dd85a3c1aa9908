package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/output"
	"eisen/internal/service"
	"eisen/internal/stats"
)

func init() {
	Register(&StatsCmd{})
}

// StatsCmd implements the stats command.
type StatsCmd struct {
	format string
}

// SetFormat sets the output format (for testing).
func (c *StatsCmd) SetFormat(format string) {
	c.format = format
}

func (c *StatsCmd) Name() string      { return "stats" }
func (c *StatsCmd) Aliases() []string { return nil }
func (c *StatsCmd) Synopsis() string  { return "Show streaks, points and level" }
func (c *StatsCmd) Usage() string     { return "eisen stats [--format text|json|yaml]" }
func (c *StatsCmd) NeedsAuth() bool   { return true }

func (c *StatsCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.format, "format", output.FormatText, "")
}

func (c *StatsCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !output.ValidFormat(c.format) {
		fmt.Fprintf(errOut, "error: unknown format: %s\n", c.format)
		return exitcode.UserError
	}

	s, err := loadStats(ctx, cfg, svc)
	if err != nil {
		return fail(errOut, err)
	}

	switch {
	case c.format == output.FormatJSON || c.format == output.FormatYAML:
		if err := output.Encode(out, c.format, output.NewStatsView(s)); err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	case isTerminal(out):
		fmt.Fprint(out, loadTheme(ctx, cfg, out).RenderStats(s))
	default:
		output.FormatStats(out, s)
	}
	return exitcode.Success
}

// loadStats reads the user's counters as they stand today. A user who never
// completed anything has no row yet and reads as zero.
func loadStats(ctx context.Context, cfg *config.Config, svc service.Service) (service.UserStats, error) {
	s, err := svc.GetStats(ctx, svc.UserID())
	if errors.Is(err, service.ErrNotFound) {
		return service.UserStats{UserID: svc.UserID()}, nil
	}
	if err != nil {
		cfg.Logger().Error("error fetching user stats", "err", err)
		return service.UserStats{}, fmt.Errorf("fetch stats: %w", err)
	}
	return stats.Effective(s, newTracker(cfg, svc).Today()), nil
}
