package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteFileAndLoad(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := New(dir)
	cfg.Backend = BackendPostgres
	cfg.DatabaseURL = "postgres://eisen@localhost/eisen"
	cfg.UserID = "6f9619ff-8b86-4011-b42d-00c04fc964ff"
	cfg.Timezone = "Europe/Berlin"
	cfg.Listen = "127.0.0.1:9000"

	if err := cfg.WriteFile(FileFromConfig(cfg), false); err != nil {
		t.Fatalf("write: %v", err)
	}
	fi, err := os.Stat(filepath.Join(dir, ConfigFile))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", fi.Mode().Perm())
	}

	loaded, _ := New(dir)
	if err := loaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Backend != BackendPostgres ||
		loaded.DatabaseURL != cfg.DatabaseURL ||
		loaded.UserID != cfg.UserID ||
		loaded.Timezone != "Europe/Berlin" ||
		loaded.Listen != "127.0.0.1:9000" {
		t.Errorf("unexpected config %+v", loaded)
	}
	if err := loaded.RequireBackend(); err != nil {
		t.Errorf("expected complete backend settings, got %v", err)
	}
}

func TestWriteFile_NoOverwrite(t *testing.T) {
	cfg, _ := New(t.TempDir())
	if err := cfg.WriteFile(FileFromConfig(cfg), false); err != nil {
		t.Fatalf("first write: %v", err)
	}
	err := cfg.WriteFile(FileFromConfig(cfg), false)
	if !errors.Is(err, os.ErrExist) {
		t.Errorf("expected os.ErrExist, got %v", err)
	}
	if err := cfg.WriteFile(FileFromConfig(cfg), true); err != nil {
		t.Errorf("overwrite: %v", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, _ := New(t.TempDir())
	if err := cfg.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendSupabase || cfg.Listen != DefaultListen {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.RequireBackend(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	cfg, _ := New(dir)
	cfg.SupabaseURL = "https://file.supabase.co"
	cfg.SupabaseAnonKey = "file-key"
	if err := cfg.WriteFile(FileFromConfig(cfg), false); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("EISEN_SUPABASE_URL", "https://env.supabase.co/")
	loaded, _ := New(dir)
	if err := loaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.SupabaseURL != "https://env.supabase.co" {
		t.Errorf("expected env URL without trailing slash, got %q", loaded.SupabaseURL)
	}
	if loaded.SupabaseAnonKey != "file-key" {
		t.Errorf("expected file anon key, got %q", loaded.SupabaseAnonKey)
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("EISEN_BACKEND", "sqlite")
	cfg, _ := New(t.TempDir())
	if err := cfg.Load(); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestRequireBackend_Postgres(t *testing.T) {
	cfg, _ := New(t.TempDir())
	cfg.Backend = BackendPostgres
	cfg.DatabaseURL = "postgres://localhost/eisen"
	if err := cfg.RequireBackend(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured without user id, got %v", err)
	}
}

func TestLocation(t *testing.T) {
	cfg, _ := New(t.TempDir())
	cfg.Timezone = "America/New_York"
	if got := cfg.Location().String(); got != "America/New_York" {
		t.Errorf("expected America/New_York, got %s", got)
	}
	cfg.Timezone = "Mars/Olympus"
	if cfg.Location() != time.Local {
		t.Error("expected fallback to time.Local")
	}
}
