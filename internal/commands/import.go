package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"eisen/internal/backend/googletasks"
	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/matrix"
	"eisen/internal/service"
)

func init() {
	Register(&ImportCmd{})
}

// ImportSource reads open tasks from Google Tasks.
type ImportSource interface {
	ResolveList(ctx context.Context, name string) (googletasks.TaskList, error)
	OpenTasks(ctx context.Context, listID string) ([]googletasks.Item, error)
}

// ImportCmd implements the import command.
type ImportCmd struct {
	listName  string
	important bool
	urgent    bool
	dryRun    bool

	source func(ctx context.Context, cfg *config.Config) (ImportSource, error)
}

// SetListName sets the Google Tasks list name (for testing).
func (c *ImportCmd) SetListName(name string) {
	c.listName = name
}

// SetFlags sets the quadrant flags and dry-run mode (for testing).
func (c *ImportCmd) SetFlags(important, urgent, dryRun bool) {
	c.important, c.urgent, c.dryRun = important, urgent, dryRun
}

// SetSource replaces the Google Tasks client (for testing).
func (c *ImportCmd) SetSource(src ImportSource) {
	c.source = func(context.Context, *config.Config) (ImportSource, error) { return src, nil }
}

func (c *ImportCmd) Name() string      { return "import" }
func (c *ImportCmd) Aliases() []string { return nil }
func (c *ImportCmd) Synopsis() string  { return "Import open tasks from Google Tasks" }
func (c *ImportCmd) Usage() string {
	return "eisen import [--list <list-name>] [--important] [--urgent] [--dry-run]"
}
func (c *ImportCmd) NeedsAuth() bool { return true }

func (c *ImportCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
	fs.BoolVar(&c.important, "important", false, "")
	fs.BoolVar(&c.important, "i", false, "")
	fs.BoolVar(&c.urgent, "urgent", false, "")
	fs.BoolVar(&c.urgent, "u", false, "")
	fs.BoolVar(&c.dryRun, "dry-run", false, "")
}

func (c *ImportCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	newSource := c.source
	if newSource == nil {
		newSource = func(ctx context.Context, cfg *config.Config) (ImportSource, error) {
			return googletasks.New(ctx, cfg)
		}
	}
	src, err := newSource(ctx, cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	list, err := src.ResolveList(ctx, c.listName)
	if err != nil {
		if strings.Contains(err.Error(), "not found") || strings.Contains(err.Error(), "ambiguous") {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		return fail(errOut, err)
	}
	items, err := src.OpenTasks(ctx, list.ID)
	if err != nil {
		return fail(errOut, err)
	}

	st, err := loadStore(ctx, cfg, svc)
	if err != nil {
		return fail(errOut, err)
	}
	existing := make(map[string]bool)
	for _, t := range st.Tasks() {
		if !t.IsCompleted() {
			existing[titleKey(t.Title)] = true
		}
	}

	q := matrix.Classify(c.important, c.urgent)
	imported, skipped := 0, 0
	for _, it := range items {
		nt := it.NewTask(c.important, c.urgent)
		key := titleKey(nt.Title)
		if existing[key] {
			skipped++
			cfg.Logger().Debug("skipping existing task", "title", nt.Title)
			continue
		}
		existing[key] = true

		if c.dryRun {
			if !cfg.Quiet {
				fmt.Fprintf(out, "would import: %s\n", nt.Title)
			}
			imported++
			continue
		}
		if _, err := st.Create(ctx, nt); err != nil {
			fmt.Fprintf(errOut, "error: failed to import %q: %v\n", nt.Title, err)
			return exitCodeFor(err)
		}
		if !cfg.Quiet {
			fmt.Fprintf(out, "imported: %s\n", nt.Title)
		}
		imported++
	}

	if !cfg.Quiet {
		verb := "imported"
		if c.dryRun {
			verb = "would import"
		}
		fmt.Fprintf(out, "%s %d task(s) into %s from %q, skipped %d\n", verb, imported, q.Title(), list.Title, skipped)
	}
	return exitcode.Success
}

// titleKey compares titles case-insensitively, ignoring surrounding space.
func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
