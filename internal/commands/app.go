package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/output"
	"eisen/internal/prefs"
	"eisen/internal/service"
	"eisen/internal/stats"
	"eisen/internal/tasks"
)

// Now is the clock for streak days and the weekly window; tests replace it.
var Now = time.Now

// newTracker builds the stats tracker for the configured timezone.
func newTracker(cfg *config.Config, svc service.Service) *stats.Tracker {
	tracker := stats.NewTracker(svc, cfg.Location(), cfg.Logger())
	tracker.Now = func() time.Time { return Now() }
	return tracker
}

// newStore builds the task store for the signed-in user.
func newStore(cfg *config.Config, svc service.Service) *tasks.Store {
	return tasks.New(svc, newTracker(cfg, svc), cfg.Logger())
}

// loadStore builds the task store and fetches the task list.
func loadStore(ctx context.Context, cfg *config.Config, svc service.Service) (*tasks.Store, error) {
	st := newStore(cfg, svc)
	if err := st.Load(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

// openPrefs opens the local preferences database.
func openPrefs(ctx context.Context, cfg *config.Config) (*prefs.Store, error) {
	if err := cfg.EnsureDir(); err != nil {
		return nil, fmt.Errorf("create config dir: %w", err)
	}
	return prefs.Open(ctx, cfg.PrefsPath())
}

// loadTheme returns the theme for w. Preference errors fall back to defaults.
func loadTheme(ctx context.Context, cfg *config.Config, w io.Writer) output.Theme {
	p := prefs.Prefs{Theme: prefs.ThemeLight, AccentColor: prefs.DefaultAccent}
	ps, err := openPrefs(ctx, cfg)
	if err != nil {
		cfg.Logger().Warn("preferences unavailable", "err", err)
		return output.NewTheme(w, p, cfg.Location())
	}
	defer ps.Close()
	if loaded, err := ps.Load(ctx); err != nil {
		cfg.Logger().Warn("preferences unavailable", "err", err)
	} else {
		p = loaded
	}
	return output.NewTheme(w, p, cfg.Location())
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// exitCodeFor maps an operation error to a process exit code.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return exitcode.AuthError
	case errors.Is(err, ErrTaskRefRequired),
		errors.Is(err, ErrInvalidTaskRef),
		errors.Is(err, ErrTaskOutOfRange),
		errors.Is(err, tasks.ErrTaskNotFound),
		errors.Is(err, tasks.ErrTitleRequired),
		errors.Is(err, tasks.ErrNotConfirmed),
		errors.Is(err, prefs.ErrInvalidTheme),
		errors.Is(err, prefs.ErrInvalidColor),
		errors.Is(err, service.ErrNotFound),
		errors.Is(err, service.ErrConflict):
		return exitcode.UserError
	default:
		return exitcode.BackendError
	}
}

// fail prints err in the CLI's error format and returns the matching exit code.
func fail(errOut io.Writer, err error) int {
	code := exitCodeFor(err)
	if code == exitcode.BackendError {
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	} else {
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}

// ok prints the acknowledgement of a successful mutation.
func ok(cfg *config.Config, out io.Writer) int {
	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
