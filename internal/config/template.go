package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// File is the on-disk layout of config.toml.
type File struct {
	Backend  string       `toml:"backend"`
	Timezone string       `toml:"timezone"`
	Listen   string       `toml:"listen"`
	Supabase SupabaseFile `toml:"supabase"`
	Postgres PostgresFile `toml:"postgres"`
}

// SupabaseFile is the [supabase] table.
type SupabaseFile struct {
	URL     string `toml:"url"`
	AnonKey string `toml:"anon_key"`
}

// PostgresFile is the [postgres] table.
type PostgresFile struct {
	DatabaseURL string `toml:"database_url"`
	UserID      string `toml:"user_id"`
}

// FileFromConfig snapshots the current settings.
func FileFromConfig(c *Config) File {
	return File{
		Backend:  c.Backend,
		Timezone: c.Timezone,
		Listen:   c.Listen,
		Supabase: SupabaseFile{URL: c.SupabaseURL, AnonKey: c.SupabaseAnonKey},
		Postgres: PostgresFile{DatabaseURL: c.DatabaseURL, UserID: c.UserID},
	}
}

// WriteFile writes f to config.toml with mode 0600.
// An existing file is only replaced when overwrite is set.
func (c *Config) WriteFile(f File, overwrite bool) error {
	if err := c.EnsureDir(); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	fh, err := os.OpenFile(c.ConfigPath(), flags, 0600)
	if err != nil {
		return err
	}
	defer fh.Close()

	if err := toml.NewEncoder(fh).Encode(f); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
