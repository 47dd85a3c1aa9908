package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"eisen/internal/backend/supabase"
	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/service"
)

func init() {
	Register(&LogoutCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Sign out and remove the stored session" }
func (c *LogoutCmd) Usage() string     { return "eisen logout [common flags]" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !cfg.HasSession() {
		if !cfg.Quiet {
			fmt.Fprintln(out, "not logged in")
		}
		return exitcode.Success
	}

	// Revoking server-side is best effort; the local session goes either way.
	if sess, err := supabase.LoadSession(cfg.SessionPath()); err == nil && cfg.SupabaseURL != "" {
		auth := supabase.NewAuth(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
		if err := auth.SignOut(ctx, sess.Token.AccessToken); err != nil {
			cfg.Logger().Warn("sign out failed", "err", err)
		}
	}

	if err := cfg.RemoveSession(); err != nil {
		fmt.Fprintf(errOut, "error: failed to remove session: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
