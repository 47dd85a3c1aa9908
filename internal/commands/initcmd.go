package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"eisen/internal/backend/postgres"
	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/service"
)

func init() {
	Register(&InitCmd{})
}

// InitCmd writes config.toml and optionally prepares a Postgres database.
type InitCmd struct {
	backend     string
	url         string
	anonKey     string
	databaseURL string
	userID      string
	timezone    string
	force       bool
	migrate     bool
}

// SetOptions sets the backend settings (for testing).
func (c *InitCmd) SetOptions(backend, url, anonKey, databaseURL, userID string, force bool) {
	c.backend, c.url, c.anonKey, c.databaseURL, c.userID, c.force = backend, url, anonKey, databaseURL, userID, force
}

func (c *InitCmd) Name() string      { return "init" }
func (c *InitCmd) Aliases() []string { return nil }
func (c *InitCmd) Synopsis() string  { return "Write config.toml" }
func (c *InitCmd) Usage() string {
	return "eisen init [--backend supabase|postgres] [--url <url>] [--anon-key <key>] [--database-url <dsn>] [--user-id <uuid>] [--timezone <tz>] [--force] [--migrate]"
}
func (c *InitCmd) NeedsAuth() bool { return false }

func (c *InitCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "backend", "", "")
	fs.StringVar(&c.url, "url", "", "")
	fs.StringVar(&c.anonKey, "anon-key", "", "")
	fs.StringVar(&c.databaseURL, "database-url", "", "")
	fs.StringVar(&c.userID, "user-id", "", "")
	fs.StringVar(&c.timezone, "timezone", "", "")
	fs.BoolVar(&c.force, "force", false, "")
	fs.BoolVar(&c.migrate, "migrate", false, "")
}

func (c *InitCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	c.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if cfg.Backend == config.BackendPostgres && cfg.UserID == "" {
		cfg.UserID = uuid.NewString()
	}

	_, statErr := os.Stat(cfg.ConfigPath())
	exists := statErr == nil
	switch {
	case !exists || c.force:
		if err := cfg.WriteFile(config.FileFromConfig(cfg), c.force); err != nil {
			fmt.Fprintf(errOut, "error: failed to write config: %v\n", err)
			return exitcode.UserError
		}
		if !cfg.Quiet {
			fmt.Fprintf(out, "wrote %s\n", cfg.ConfigPath())
		}
	case !c.migrate:
		fmt.Fprintf(errOut, "error: %s already exists (use --force to overwrite)\n", cfg.ConfigPath())
		return exitcode.UserError
	}

	if !c.migrate {
		return exitcode.Success
	}
	if cfg.Backend != config.BackendPostgres {
		fmt.Fprintln(errOut, "error: --migrate needs backend = \"postgres\"")
		return exitcode.UserError
	}
	if err := cfg.RequireBackend(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}
	store, err := postgres.Open(ctx, cfg)
	if err != nil {
		return fail(errOut, err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		fmt.Fprintln(out, "schema applied")
	}
	return exitcode.Success
}

// apply overlays the flags given on the command line onto cfg.
func (c *InitCmd) apply(cfg *config.Config) {
	if c.backend != "" {
		cfg.Backend = c.backend
	}
	if c.url != "" {
		cfg.SupabaseURL = c.url
	}
	if c.anonKey != "" {
		cfg.SupabaseAnonKey = c.anonKey
	}
	if c.databaseURL != "" {
		cfg.DatabaseURL = c.databaseURL
	}
	if c.userID != "" {
		cfg.UserID = c.userID
	}
	if c.timezone != "" {
		cfg.Timezone = c.timezone
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
	if cfg.Listen == "" {
		cfg.Listen = config.DefaultListen
	}
}
