package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"eisen/internal/backend/googletasks"
	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/service"
)

func init() {
	Register(&GoogleLoginCmd{})
}

// GoogleLoginCmd authorizes read access to Google Tasks for import.
type GoogleLoginCmd struct{}

func (c *GoogleLoginCmd) Name() string      { return "google-login" }
func (c *GoogleLoginCmd) Aliases() []string { return nil }
func (c *GoogleLoginCmd) Synopsis() string  { return "Authorize Google Tasks import" }
func (c *GoogleLoginCmd) Usage() string     { return "eisen google-login [common flags]" }
func (c *GoogleLoginCmd) NeedsAuth() bool   { return false }

func (c *GoogleLoginCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *GoogleLoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if !cfg.HasGoogleClient() {
		fmt.Fprintf(errOut, "error: %s not found in %s\n\n", config.GoogleClientFile, cfg.Dir)
		fmt.Fprintln(errOut, "To import from Google Tasks, you need OAuth credentials:")
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "1. Go to https://console.cloud.google.com/apis/credentials")
		fmt.Fprintln(errOut, "2. Enable the Google Tasks API for your project")
		fmt.Fprintln(errOut, "3. Create an OAuth client ID of type 'Desktop app' and download the JSON")
		fmt.Fprintln(errOut, "4. Save it as:")
		fmt.Fprintf(errOut, "   %s/%s\n", cfg.Dir, config.GoogleClientFile)
		fmt.Fprintln(errOut, "")
		fmt.Fprintln(errOut, "Then run 'eisen google-login' again.")
		return exitcode.AuthError
	}

	if cfg.HasGoogleToken() && googletasks.TokenValid(ctx, cfg) {
		if !cfg.Quiet {
			fmt.Fprintln(out, "already logged in")
		}
		return exitcode.Success
	}

	if err := googletasks.Login(ctx, cfg, errOut); err != nil {
		if errors.Is(err, googletasks.ErrNoClient) {
			fmt.Fprintf(errOut, "error: %s not found in %s\n", config.GoogleClientFile, cfg.Dir)
		} else {
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}
