package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/matrix"
	"eisen/internal/service"
)

func init() {
	Register(&MoveCmd{})
}

// MoveCmd implements the move command, the CLI form of dragging a task
// onto another quadrant.
type MoveCmd struct{}

func (c *MoveCmd) Name() string      { return "move" }
func (c *MoveCmd) Aliases() []string { return []string{"mv"} }
func (c *MoveCmd) Synopsis() string  { return "Move a task to another quadrant" }
func (c *MoveCmd) Usage() string {
	return "eisen move <ref> <do-now|schedule|delegate|eliminate>"
}
func (c *MoveCmd) NeedsAuth() bool { return true }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *MoveCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) < 2 {
		fmt.Fprintln(errOut, "error: task reference and quadrant required")
		return exitcode.UserError
	}
	refArgs, target := args[:len(args)-1], args[len(args)-1]
	q, err := matrix.ParseQuadrant(target)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	if _, err := ParseTaskRef(refArgs); err != nil {
		return fail(errOut, err)
	}

	st, err := loadStore(ctx, cfg, svc)
	if err != nil {
		return fail(errOut, err)
	}
	ref, err := resolveTask(st, refArgs)
	if err != nil {
		return fail(errOut, err)
	}

	_, moved, err := st.Move(ctx, ref.Task.ID, q)
	if err != nil {
		return fail(errOut, err)
	}
	if !cfg.Quiet {
		if moved {
			fmt.Fprintf(out, "ok (%s)\n", q.Title())
		} else {
			fmt.Fprintf(out, "already in %s\n", q.Title())
		}
	}
	return exitcode.Success
}
