package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/prefs"
	"eisen/internal/service"
	"eisen/internal/tui"
)

func init() {
	Register(&BoardCmd{})
}

// BoardCmd implements the board command.
type BoardCmd struct{}

func (c *BoardCmd) Name() string      { return "board" }
func (c *BoardCmd) Aliases() []string { return []string{"ui"} }
func (c *BoardCmd) Synopsis() string  { return "Interactive board with live updates" }
func (c *BoardCmd) Usage() string     { return "eisen board" }
func (c *BoardCmd) NeedsAuth() bool   { return true }

func (c *BoardCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *BoardCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !isTerminal(out) {
		fmt.Fprintln(errOut, "error: board needs a terminal (use: eisen list)")
		return exitcode.UserError
	}

	st, err := loadStore(ctx, cfg, svc)
	if err != nil {
		return fail(errOut, err)
	}
	sub, err := st.Watch(ctx)
	if err != nil {
		cfg.Logger().Warn("live updates unavailable", "err", err)
	} else {
		defer sub.Unsubscribe()
	}

	p := prefs.Prefs{Theme: prefs.ThemeLight, AccentColor: prefs.DefaultAccent}
	ps, err := openPrefs(ctx, cfg)
	if err != nil {
		cfg.Logger().Warn("preferences unavailable", "err", err)
		ps = nil
	} else {
		defer ps.Close()
		if loaded, err := ps.Load(ctx); err == nil {
			p = loaded
		}
	}

	err = tui.RunBoard(ctx, tui.Options{
		Store:    st,
		Prefs:    ps,
		Theme:    p,
		Location: cfg.Location(),
		Logger:   cfg.Logger(),
		Output:   out,
	})
	if err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}
