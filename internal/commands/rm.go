package commands

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/service"
	"eisen/internal/tasks"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command.
type RmCmd struct {
	yes bool
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "eisen rm [--yes] <ref>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

// SetYes skips the confirmation prompt (for testing).
func (c *RmCmd) SetYes(yes bool) {
	c.yes = yes
}

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if _, err := ParseTaskRef(args); err != nil {
		return fail(errOut, err)
	}

	st, err := loadStore(ctx, cfg, svc)
	if err != nil {
		return fail(errOut, err)
	}
	ref, err := resolveTask(st, args)
	if err != nil {
		return fail(errOut, err)
	}

	confirm := func(t service.Task) bool {
		if c.yes {
			return true
		}
		return promptYes(cfg.Stdin, errOut, fmt.Sprintf("Delete %q? [y/N] ", t.Title))
	}
	if err := st.Delete(ctx, ref.Task.ID, confirm); err != nil {
		if errors.Is(err, tasks.ErrNotConfirmed) {
			if !cfg.Quiet {
				fmt.Fprintln(out, "cancelled")
			}
			return exitcode.Success
		}
		return fail(errOut, err)
	}
	return ok(cfg, out)
}

// promptYes writes question to w and reads one answer line from r.
// Anything but y or yes, including a missing reader, declines.
func promptYes(r io.Reader, w io.Writer, question string) bool {
	if r == nil {
		return false
	}
	fmt.Fprint(w, question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
