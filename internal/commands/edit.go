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
	Register(&EditCmd{})
}

// optionalString is a string flag that remembers whether it was given.
type optionalString struct {
	value string
	set   bool
}

func (o *optionalString) String() string { return o.value }

func (o *optionalString) Set(s string) error {
	o.value = s
	o.set = true
	return nil
}

// EditCmd implements the edit command.
type EditCmd struct {
	title       optionalString
	description optionalString
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit a task's title or description" }
func (c *EditCmd) Usage() string     { return "eisen edit [--title <text>] [--desc <text>] <ref>" }
func (c *EditCmd) NeedsAuth() bool   { return true }

// SetTitle sets the new title (for testing).
func (c *EditCmd) SetTitle(title string) { _ = c.title.Set(title) }

// SetDescription sets the new description (for testing).
func (c *EditCmd) SetDescription(d string) { _ = c.description.Set(d) }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	c.title, c.description = optionalString{}, optionalString{}
	fs.Var(&c.title, "title", "")
	fs.Var(&c.title, "t", "")
	fs.Var(&c.description, "desc", "")
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if _, err := ParseTaskRef(args); err != nil {
		return fail(errOut, err)
	}
	if !c.title.set && !c.description.set {
		fmt.Fprintln(errOut, "error: nothing to change (use --title or --desc)")
		return exitcode.UserError
	}

	st, err := loadStore(ctx, cfg, svc)
	if err != nil {
		return fail(errOut, err)
	}
	ref, err := resolveTask(st, args)
	if err != nil {
		return fail(errOut, err)
	}

	title, description := ref.Task.Title, ref.Task.Description
	if c.title.set {
		title = c.title.value
	}
	if c.description.set {
		description = c.description.value
	}
	if _, err := st.Edit(ctx, ref.Task.ID, title, description); err != nil {
		return fail(errOut, err)
	}
	return ok(cfg, out)
}
