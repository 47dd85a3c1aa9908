package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultListen is the default address for the HTTP dashboard.
const DefaultListen = "127.0.0.1:8787"

// ErrNotConfigured is returned by RequireBackend when settings are missing.
var ErrNotConfigured = errors.New("backend not configured")

// Load reads config.toml from the config directory (if present) and then
// EISEN_* environment variables, which take precedence.
//
//	EISEN_BACKEND, EISEN_SUPABASE_URL, EISEN_SUPABASE_ANON_KEY,
//	EISEN_DATABASE_URL, EISEN_USER_ID, EISEN_TIMEZONE, EISEN_LISTEN
func (c *Config) Load() error {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("EISEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", c.Backend)
	v.SetDefault("timezone", c.Timezone)
	v.SetDefault("listen", c.Listen)

	path := c.ConfigPath()
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	c.Backend = strings.ToLower(strings.TrimSpace(v.GetString("backend")))
	c.SupabaseURL = strings.TrimRight(v.GetString("supabase.url"), "/")
	c.SupabaseAnonKey = v.GetString("supabase.anon_key")
	c.DatabaseURL = v.GetString("postgres.database_url")
	c.UserID = v.GetString("postgres.user_id")
	c.Timezone = v.GetString("timezone")
	c.Listen = v.GetString("listen")

	// Flat env names are friendlier than the nested ones viper derives.
	if s := os.Getenv("EISEN_DATABASE_URL"); s != "" {
		c.DatabaseURL = s
	}
	if s := os.Getenv("EISEN_USER_ID"); s != "" {
		c.UserID = s
	}

	return c.Validate()
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Backend {
	case "", BackendSupabase:
		c.Backend = BackendSupabase
	case BackendPostgres:
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	return nil
}

// RequireBackend reports a configuration error when the backend settings are incomplete.
func (c *Config) RequireBackend() error {
	switch c.Backend {
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: postgres.database_url is not set (run: eisen init)", ErrNotConfigured)
		}
		if c.UserID == "" {
			return fmt.Errorf("%w: postgres.user_id is not set", ErrNotConfigured)
		}
	default:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("%w: supabase.url and supabase.anon_key are not set (run: eisen init)", ErrNotConfigured)
		}
	}
	return nil
}
