// Package prefs stores display preferences in a local SQLite database.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	_ "modernc.org/sqlite"
)

// Preference keys.
const (
	KeyTheme  = "theme"
	KeyAccent = "accentColor"
)

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// DefaultAccent is used until the user picks a color.
const DefaultAccent = "#3B82F6"

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ErrInvalidTheme is returned for a theme other than light or dark.
var ErrInvalidTheme = errors.New("theme must be light or dark")

// ErrInvalidColor is returned for an accent that isn't #RRGGBB.
var ErrInvalidColor = errors.New("accent color must be #RRGGBB")

// Prefs are the user's display preferences.
type Prefs struct {
	Theme       string `json:"theme" yaml:"theme"`
	AccentColor string `json:"accentColor" yaml:"accentColor"`
}

// IsDark reports whether the dark theme is active.
func (p Prefs) IsDark() bool { return p.Theme == ThemeDark }

// Validate checks the fields that are set. Empty fields pass.
func (p Prefs) Validate() error {
	if t := strings.ToLower(strings.TrimSpace(p.Theme)); t != "" && t != ThemeLight && t != ThemeDark {
		return ErrInvalidTheme
	}
	if c := strings.TrimSpace(p.AccentColor); c != "" && !hexColor.MatchString(c) {
		return ErrInvalidColor
	}
	return nil
}

// Store is a key-value table in SQLite.
type Store struct {
	db *sql.DB

	// DetectDark picks the theme when none is stored.
	DetectDark func() bool
}

// Open opens (and creates if missing) the database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS prefs (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate prefs: %w", err)
	}
	return &Store{db: db, DetectDark: lipgloss.HasDarkBackground}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prefs get %s: %w", key, err)
	}
	return v, true, nil
}

func (s *Store) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("prefs set %s: %w", key, err)
	}
	return nil
}

// Load returns the stored preferences, filling in defaults.
func (s *Store) Load(ctx context.Context) (Prefs, error) {
	p := Prefs{AccentColor: DefaultAccent}

	theme, ok, err := s.get(ctx, KeyTheme)
	if err != nil {
		return Prefs{}, err
	}
	switch {
	case ok && (theme == ThemeLight || theme == ThemeDark):
		p.Theme = theme
	case s.DetectDark != nil && s.DetectDark():
		p.Theme = ThemeDark
	default:
		p.Theme = ThemeLight
	}

	accent, ok, err := s.get(ctx, KeyAccent)
	if err != nil {
		return Prefs{}, err
	}
	if ok && hexColor.MatchString(accent) {
		p.AccentColor = accent
	}
	return p, nil
}

// SetTheme stores the theme.
func (s *Store) SetTheme(ctx context.Context, theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme != ThemeLight && theme != ThemeDark {
		return ErrInvalidTheme
	}
	return s.set(ctx, KeyTheme, theme)
}

// ToggleTheme flips between light and dark and returns the new preferences.
func (s *Store) ToggleTheme(ctx context.Context) (Prefs, error) {
	p, err := s.Load(ctx)
	if err != nil {
		return Prefs{}, err
	}
	if p.IsDark() {
		p.Theme = ThemeLight
	} else {
		p.Theme = ThemeDark
	}
	return p, s.set(ctx, KeyTheme, p.Theme)
}

// SetAccent stores the accent color.
func (s *Store) SetAccent(ctx context.Context, color string) error {
	color = strings.TrimSpace(color)
	if !hexColor.MatchString(color) {
		return ErrInvalidColor
	}
	return s.set(ctx, KeyAccent, strings.ToUpper(color))
}
