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
	Register(&ThemeCmd{})
}

// ThemeCmd implements the theme command.
type ThemeCmd struct {
	accent string
}

// SetAccent sets the accent color (for testing).
func (c *ThemeCmd) SetAccent(color string) {
	c.accent = color
}

func (c *ThemeCmd) Name() string      { return "theme" }
func (c *ThemeCmd) Aliases() []string { return nil }
func (c *ThemeCmd) Synopsis() string  { return "Show or change the color theme" }
func (c *ThemeCmd) Usage() string     { return "eisen theme [--accent #RRGGBB] [light|dark|toggle]" }
func (c *ThemeCmd) NeedsAuth() bool   { return false }

func (c *ThemeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.accent, "accent", "", "")
}

func (c *ThemeCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 1 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
		return exitcode.UserError
	}

	ps, err := openPrefs(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: open preferences: %v\n", err)
		return exitcode.UserError
	}
	defer ps.Close()

	changed := false
	if len(args) == 1 {
		if args[0] == "toggle" {
			_, err = ps.ToggleTheme(ctx)
		} else {
			err = ps.SetTheme(ctx, args[0])
		}
		if err != nil {
			return fail(errOut, err)
		}
		changed = true
	}
	if c.accent != "" {
		if err := ps.SetAccent(ctx, c.accent); err != nil {
			return fail(errOut, err)
		}
		changed = true
	}

	p, err := ps.Load(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "error: read preferences: %v\n", err)
		return exitcode.UserError
	}
	if changed && cfg.Quiet {
		return exitcode.Success
	}
	fmt.Fprintf(out, "theme: %s\naccent: %s\n", p.Theme, p.AccentColor)
	return exitcode.Success
}
