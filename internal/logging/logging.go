// Package logging builds the process logger.
package logging

import (
	"io"

	"github.com/charmbracelet/log"
)

// Prefix is prepended to every log line.
const Prefix = "eisen"

// Options controls logger verbosity.
type Options struct {
	Debug bool
	Quiet bool
}

// New returns a leveled logger writing to w.
// Debug wins over Quiet; the default level is warn so normal runs stay silent.
func New(w io.Writer, opts Options) *log.Logger {
	level := log.WarnLevel
	switch {
	case opts.Debug:
		level = log.DebugLevel
	case opts.Quiet:
		level = log.ErrorLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          Prefix,
		ReportTimestamp: opts.Debug,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}
