// Package commands implements the eisen subcommands.
package commands

import (
	"context"
	"flag"
	"io"

	"eisen/internal/config"
	"eisen/internal/service"
)

// Command is one eisen subcommand.
type Command interface {
	Name() string
	Aliases() []string

	// Synopsis is the one-line summary shown by help.
	Synopsis() string
	// Usage is the invocation line shown by help.
	Usage() string

	// NeedsAuth reports whether Run needs a task backend. When it is
	// false the dispatcher passes a nil service.
	NeedsAuth() bool

	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command with the positional arguments left after
	// flag parsing and returns the process exit code.
	Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int
}
