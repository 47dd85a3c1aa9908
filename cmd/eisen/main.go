// Package main is the entry point for the eisen CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"eisen/internal/backend/postgres"
	"eisen/internal/backend/supabase"
	"eisen/internal/cli"
	"eisen/internal/commands"
	"eisen/internal/config"
	"eisen/internal/service"
)

func main() {
	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	// Create service factory
	factory := func(ctx context.Context, cfg *config.Config) (service.Service, error) {
		if err := cfg.RequireBackend(); err != nil {
			return nil, err
		}
		if cfg.Backend == config.BackendPostgres {
			st, err := postgres.Open(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return st, nil
		}
		c, err := supabase.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	// Create dispatcher
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, factory)
	dispatcher.Stdin = os.Stdin

	// Run and exit with code
	code := dispatcher.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(code)
}
