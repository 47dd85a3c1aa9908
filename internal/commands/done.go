package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/service"
)

func init() {
	Register(&DoneCmd{})
}

// DoneCmd implements the done command. Running it on a completed task
// reopens it.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"toggle"} }
func (c *DoneCmd) Synopsis() string  { return "Toggle task completion" }
func (c *DoneCmd) Usage() string     { return "eisen done <ref>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
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

	t, err := st.Complete(ctx, ref.Task.ID)
	if err != nil {
		return fail(errOut, err)
	}

	if !cfg.Quiet {
		if t.IsCompleted() {
			fmt.Fprintln(out, "ok (completed)")
		} else {
			fmt.Fprintln(out, "ok (reopened)")
		}
	}
	return exitcode.Success
}
