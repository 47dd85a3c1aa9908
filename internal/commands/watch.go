package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"sync"

	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/output"
	"eisen/internal/realtime"
	"eisen/internal/service"
)

func init() {
	Register(&WatchCmd{})
}

// WatchCmd implements the watch command: it prints task and stats changes
// as the backend pushes them, until interrupted.
type WatchCmd struct{}

func (c *WatchCmd) Name() string      { return "watch" }
func (c *WatchCmd) Aliases() []string { return nil }
func (c *WatchCmd) Synopsis() string  { return "Stream realtime task changes" }
func (c *WatchCmd) Usage() string     { return "eisen watch" }
func (c *WatchCmd) NeedsAuth() bool   { return true }

func (c *WatchCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WatchCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	var mu sync.Mutex
	emit := func(event string, t service.Task) {
		mu.Lock()
		defer mu.Unlock()
		output.FormatEvent(out, Now().In(cfg.Location()), event, t)
	}

	userID := svc.UserID()
	taskSub, err := svc.SubscribeTasks(ctx, userID, service.TaskEvents{
		OnInsert: func(t service.Task) { emit(realtime.Insert, t) },
		OnUpdate: func(t service.Task) { emit(realtime.Update, t) },
		OnDelete: func(id string) { emit(realtime.Delete, service.Task{ID: id}) },
	})
	if err != nil {
		return fail(errOut, fmt.Errorf("subscribe: %w", err))
	}
	defer taskSub.Unsubscribe()

	statsSub, err := svc.SubscribeStats(ctx, userID, func(s service.UserStats) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "%s  %-6s  streak=%d points=%d today=%d\n",
			Now().In(cfg.Location()).Format("15:04:05"), "STATS", s.CurrentStreak, s.TotalPoints, s.TasksCompletedToday)
	})
	if err != nil {
		return fail(errOut, fmt.Errorf("subscribe: %w", err))
	}
	defer statsSub.Unsubscribe()

	if !cfg.Quiet {
		fmt.Fprintln(errOut, "watching for changes (Ctrl-C to stop)")
	}
	<-ctx.Done()
	return exitcode.Success
}
