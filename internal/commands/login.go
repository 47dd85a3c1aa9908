package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"eisen/internal/backend/supabase"
	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/service"
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	email    string
	password string
}

// SetCredentials sets the email and password (for testing).
func (c *LoginCmd) SetCredentials(email, password string) {
	c.email, c.password = email, password
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Sign in to the backend" }
func (c *LoginCmd) Usage() string     { return "eisen login --email <email> [--password <password>]" }
func (c *LoginCmd) NeedsAuth() bool   { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if cfg.Backend == config.BackendPostgres {
		fmt.Fprintln(errOut, "error: the postgres backend has no login (set postgres.user_id in config.toml)")
		return exitcode.UserError
	}
	if err := cfg.RequireBackend(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	email := strings.TrimSpace(c.email)
	if email == "" {
		fmt.Fprintln(errOut, "error: --email required")
		return exitcode.UserError
	}
	password := c.password
	if password == "" {
		password = readPassword(cfg.Stdin, errOut)
	}
	if password == "" {
		fmt.Fprintln(errOut, "error: password required")
		return exitcode.UserError
	}

	auth := supabase.NewAuth(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	sess, err := auth.SignIn(ctx, email, password)
	if err != nil {
		cfg.Logger().Debug("sign in failed", "email", email, "err", err)
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := supabase.SaveSession(cfg.SessionPath(), sess); err != nil {
		fmt.Fprintf(errOut, "error: failed to save session: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok (signed in as %s)\n", sess.Email)
	}
	return exitcode.Success
}

// readPassword prompts on w and reads one line from r.
func readPassword(r io.Reader, w io.Writer) string {
	if r == nil {
		return ""
	}
	fmt.Fprint(w, "Password: ")
	line, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
