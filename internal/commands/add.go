package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/matrix"
	"eisen/internal/schema"
	"eisen/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	important   bool
	urgent      bool
	due         string
	description string
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "eisen add [--important] [--urgent] [--due YYYY-MM-DD] [--desc <text>] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

// SetFlags sets the quadrant flags, due date and description (for testing).
func (c *AddCmd) SetFlags(important, urgent bool, due, description string) {
	c.important, c.urgent, c.due, c.description = important, urgent, due, description
}

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.important, "important", false, "")
	fs.BoolVar(&c.important, "i", false, "")
	fs.BoolVar(&c.urgent, "urgent", false, "")
	fs.BoolVar(&c.urgent, "u", false, "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.description, "desc", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: title required")
		return exitcode.UserError
	}

	nt := service.NewTask{
		Title:       title,
		Description: c.description,
		IsImportant: c.important,
		IsUrgent:    c.urgent,
	}
	if c.due != "" {
		due, err := parseDue(c.due, cfg)
		if err != nil {
			fmt.Fprintf(errOut, "error: invalid due date: %s\n", c.due)
			return exitcode.UserError
		}
		nt.DueDate = &due
	}

	st := newStore(cfg, svc)
	t, err := st.Create(ctx, nt)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "ok (%s)\n", matrix.Of(t).Title())
	}
	return exitcode.Success
}

// parseDue reads a due date given on the command line. Plain dates are
// midnight in the configured timezone.
func parseDue(s string, cfg *config.Config) (time.Time, error) {
	if t, err := time.ParseInLocation(time.DateOnly, s, cfg.Location()); err == nil {
		return t, nil
	}
	return schema.ParseDue(s)
}
