package commands

import (
	"context"
	"flag"
	"io"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/service"
	"eisen/internal/web"
)

func init() {
	Register(&ServeCmd{})
}

// ServeCmd implements the serve command.
type ServeCmd struct {
	addr string
}

func (c *ServeCmd) Name() string      { return "serve" }
func (c *ServeCmd) Aliases() []string { return nil }
func (c *ServeCmd) Synopsis() string  { return "Serve the web dashboard and JSON API" }
func (c *ServeCmd) Usage() string     { return "eisen serve [--addr host:port]" }
func (c *ServeCmd) NeedsAuth() bool   { return true }

func (c *ServeCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.addr, "addr", "", "")
}

func (c *ServeCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	addr := c.addr
	if addr == "" {
		addr = cfg.Listen
	}
	if addr == "" {
		addr = config.DefaultListen
	}

	ps, err := openPrefs(ctx, cfg)
	if err != nil {
		cfg.Logger().Warn("preferences unavailable", "err", err)
		ps = nil
	} else {
		defer ps.Close()
	}

	tracker := newTracker(cfg, svc)
	srv := web.NewServer(web.Options{
		Store:    newStore(cfg, svc),
		Stats:    svc,
		Tracker:  tracker,
		Prefs:    ps,
		Location: cfg.Location(),
		Logger:   cfg.Logger(),
	})
	if err := srv.Run(ctx, addr); err != nil {
		return fail(errOut, err)
	}
	return exitcode.Success
}
