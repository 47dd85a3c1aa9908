// Package config handles the configuration directory, config file and session paths.
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// AppName is the application directory name.
	AppName = "eisen"

	// ConfigFile is the settings filename.
	ConfigFile = "config.toml"

	// SessionFile is the stored backend session filename.
	SessionFile = "session.json"

	// PrefsFile is the local preferences database filename.
	PrefsFile = "prefs.db"

	// GoogleClientFile is the Google OAuth client credentials filename (import only).
	GoogleClientFile = "google_oauth_client.json"

	// GoogleTokenFile is the stored Google OAuth token filename (import only).
	GoogleTokenFile = "google_token.json"
)

// Backend names.
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Backend selects the table store: "supabase" (default) or "postgres".
	Backend string

	// SupabaseURL is the project URL, e.g. https://xyz.supabase.co.
	SupabaseURL string

	// SupabaseAnonKey is the project's public anon key.
	SupabaseAnonKey string

	// DatabaseURL is the Postgres DSN for the postgres backend.
	DatabaseURL string

	// UserID is the owner of all rows for the postgres backend.
	UserID string

	// Timezone names the location used for day boundaries (streaks, daily charts).
	Timezone string

	// Listen is the address for `serve`.
	Listen string

	// Stdin is read by commands that prompt for confirmation.
	Stdin io.Reader

	// Log receives diagnostics. Use Logger() to read it.
	Log *log.Logger
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/eisen or $HOME/.config/eisen.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{
		Dir:      dir,
		Backend:  BackendSupabase,
		Timezone: "Local",
		Listen:   DefaultListen,
	}, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path to the settings file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// SessionPath returns the path to the stored session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// PrefsPath returns the path to the preferences database.
func (c *Config) PrefsPath() string {
	return filepath.Join(c.Dir, PrefsFile)
}

// GoogleClientPath returns the path to the Google OAuth client credentials file.
func (c *Config) GoogleClientPath() string {
	return filepath.Join(c.Dir, GoogleClientFile)
}

// GoogleTokenPath returns the path to the stored Google OAuth token.
func (c *Config) GoogleTokenPath() string {
	return filepath.Join(c.Dir, GoogleTokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSession checks if the session file exists.
func (c *Config) HasSession() bool {
	_, err := os.Stat(c.SessionPath())
	return err == nil
}

// RemoveSession deletes the session file.
func (c *Config) RemoveSession() error {
	return os.Remove(c.SessionPath())
}

// HasGoogleClient checks if the Google OAuth client credentials file exists.
func (c *Config) HasGoogleClient() bool {
	_, err := os.Stat(c.GoogleClientPath())
	return err == nil
}

// HasGoogleToken checks if the Google token file exists.
func (c *Config) HasGoogleToken() bool {
	_, err := os.Stat(c.GoogleTokenPath())
	return err == nil
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		c.Logger().Warn("unknown timezone, using local", "timezone", c.Timezone, "err", err)
		return time.Local
	}
	return loc
}

// Logger returns the configured logger, or one that discards everything.
func (c *Config) Logger() *log.Logger {
	if c.Log == nil {
		c.Log = log.New(io.Discard)
	}
	return c.Log
}
