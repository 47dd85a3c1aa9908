package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"eisen/internal/backend/googletasks"
	"eisen/internal/commands"
	"eisen/internal/config"
	"eisen/internal/exitcode"
	"eisen/internal/output"
	"eisen/internal/service"
	"eisen/internal/testutil"
)

var testNow = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

// newConfig returns a config in a temp dir pinned to UTC, with the clock frozen at testNow.
func newConfig(t *testing.T, quiet bool) *config.Config {
	t.Helper()
	prev := commands.Now
	commands.Now = func() time.Time { return testNow }
	t.Cleanup(func() { commands.Now = prev })
	return &config.Config{
		Dir:      t.TempDir(),
		Quiet:    quiet,
		Timezone: "UTC",
	}
}

// run executes cmd against cfg.
func run(t *testing.T, cmd commands.Command, cfg *config.Config, svc service.Service, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = cmd.Run(context.Background(), cfg, svc, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// runCommand is a helper to run a command with FakeService.
func runCommand(t *testing.T, cmd commands.Command, svc *testutil.FakeService, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()
	var s service.Service
	if svc != nil {
		s = svc
	}
	return run(t, cmd, newConfig(t, quiet), s, args...)
}

// seed adds one task per quadrant plus a completed one, oldest first.
func seed(svc *testutil.FakeService) {
	svc.AddTask(service.Task{ID: "11111111-1111-4111-8111-111111111111", Title: "Fix prod bug", IsImportant: true, IsUrgent: true})
	svc.AddTask(service.Task{ID: "22222222-2222-4222-8222-222222222222", Title: "Plan quarter", IsImportant: true})
	svc.AddTask(service.Task{ID: "33333333-3333-4333-8333-333333333333", Title: "Answer email", IsUrgent: true})
	svc.AddTask(service.Task{ID: "44444444-4444-4444-8444-444444444444", Title: "Ship release", Status: service.StatusCompleted})
}

func findStored(t *testing.T, svc *testutil.FakeService, id string) service.Task {
	t.Helper()
	for _, task := range svc.StoredTasks() {
		if task.ID == id {
			return task
		}
	}
	t.Fatalf("task %s not stored", id)
	return service.Task{}
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "eisen 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	cmd := &commands.HelpCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	for _, want := range []string{"Usage:", "eisen add", "eisen move", "eisen serve", "Common flags:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestHelpCommand_SingleCommand(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.HelpCmd{}, nil, []string{"mv"}, false)
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(stdout, "eisen move") {
		t.Errorf("expected move usage, got %q", stdout)
	}

	_, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, []string{"frobnicate"}, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown command: frobnicate\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for list command
func TestListCommand_Board(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	for _, want := range []string{"   1  d1   Fix prod bug", "   2  s1   Plan quarter", "   3  g1   Answer email", "(no tasks)"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "Ship release") {
		t.Error("completed task shown without --all")
	}
}

func TestListCommand_All(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)

	cmd := &commands.ListCmd{}
	cmd.SetAll(true)
	stdout, _, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.Contains(stdout, "   4  c1   Ship release") {
		t.Errorf("expected completed section, got:\n%s", stdout)
	}
}

func TestListCommand_Empty(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "no tasks found\n" {
		t.Errorf("expected 'no tasks found', got %q", stdout)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
}

func TestListCommand_EmptyQuiet(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.ListCmd{}, svc, nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
}

func TestListCommand_JSON(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)

	cmd := &commands.ListCmd{}
	cmd.SetFormat(output.FormatJSON)
	stdout, _, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	var refs []struct {
		Num  int    `json:"num"`
		Ref  string `json:"ref"`
		Task struct {
			Title string `json:"title"`
		} `json:"task"`
	}
	if err := json.Unmarshal([]byte(stdout), &refs); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if len(refs) != 3 || refs[0].Ref != "d1" || refs[0].Task.Title != "Fix prod bug" {
		t.Errorf("unexpected refs %+v", refs)
	}
}

func TestListCommand_UnexpectedArgument(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.ListCmd{}, svc, []string{"work"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unexpected argument: work\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestListCommand_BackendError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = errors.New("connection reset")

	_, stderr, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.HasPrefix(stderr, "error: backend error: ") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestListCommand_Unauthorized(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.ListTasksErr = service.ErrUnauthorized

	_, _, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.AddCmd{}
	cmd.SetFlags(true, false, "2024-03-20", "Q2 roadmap")
	stdout, stderr, code := runCommand(t, cmd, svc, []string{"Plan", "quarter"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "ok (Schedule)\n" {
		t.Errorf("expected 'ok (Schedule)', got %q", stdout)
	}

	stored := svc.StoredTasks()
	if len(stored) != 1 {
		t.Fatalf("expected 1 task, got %d", len(stored))
	}
	task := stored[0]
	if task.Title != "Plan quarter" || task.Description != "Q2 roadmap" || !task.IsImportant || task.IsUrgent {
		t.Errorf("unexpected task %+v", task)
	}
	wantDue := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	if task.DueDate == nil || !task.DueDate.Equal(wantDue) {
		t.Errorf("expected due %v, got %v", wantDue, task.DueDate)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.AddCmd{}, svc, []string{"Read", "book"}, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
	if len(svc.StoredTasks()) != 1 {
		t.Error("expected task to be stored")
	}
}

func TestAddCommand_NoTitle(t *testing.T) {
	svc := testutil.NewFakeService()

	_, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"  "}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: title required\n" {
		t.Errorf("expected 'error: title required', got %q", stderr)
	}
}

func TestAddCommand_InvalidDue(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.AddCmd{}
	cmd.SetFlags(false, false, "tomorrow", "")
	_, stderr, code := runCommand(t, cmd, svc, []string{"Call", "mom"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: invalid due date: tomorrow\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if len(svc.StoredTasks()) != 0 {
		t.Error("no task should be stored")
	}
}

// Tests for done command
func TestDoneCommand_ToggleAndPoints(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)
	cfg := newConfig(t, false)

	stdout, stderr, code := run(t, &commands.DoneCmd{}, cfg, svc, "d1")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "ok (completed)\n" {
		t.Errorf("expected 'ok (completed)', got %q", stdout)
	}
	if got := findStored(t, svc, "11111111-1111-4111-8111-111111111111"); !got.IsCompleted() {
		t.Error("expected task completed")
	}
	st := svc.Stats(testutil.DefaultUserID)
	if st.TotalPoints != 10 || st.CurrentStreak != 1 || st.TasksCompletedToday != 1 || st.LastActivityDate != "2024-03-15" {
		t.Errorf("unexpected stats %+v", st)
	}

	// Toggling back by id reopens it and takes the points back.
	stdout, _, code = run(t, &commands.DoneCmd{}, cfg, svc, "11111111-1111-4111-8111-111111111111")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok (reopened)\n" {
		t.Errorf("expected 'ok (reopened)', got %q", stdout)
	}
	if st := svc.Stats(testutil.DefaultUserID); st.TotalPoints != 0 || st.TasksCompletedToday != 0 {
		t.Errorf("expected points revoked, got %+v", st)
	}
}

func TestDoneCommand_RefErrors(t *testing.T) {
	tests := []struct {
		args   []string
		stderr string
	}{
		{nil, "error: task reference required\n"},
		{[]string{"x1"}, "error: invalid task reference: x1\n"},
		{[]string{"9"}, "error: task number out of range: 9\n"},
		{[]string{"e1"}, "error: task number out of range: e1\n"},
	}
	for _, tt := range tests {
		svc := testutil.NewFakeService()
		seed(svc)

		_, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, tt.args, false)

		if code != exitcode.UserError {
			t.Errorf("%v: expected exit code %d, got %d", tt.args, exitcode.UserError, code)
		}
		if stderr != tt.stderr {
			t.Errorf("%v: expected %q, got %q", tt.args, tt.stderr, stderr)
		}
		if svc.UpdateCalls != 0 {
			t.Errorf("%v: expected no update", tt.args)
		}
	}
}

// Tests for rm command
func TestRmCommand_Yes(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)

	cmd := &commands.RmCmd{}
	cmd.SetYes(true)
	stdout, _, code := runCommand(t, cmd, svc, []string{"s1"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok', got %q", stdout)
	}
	if svc.DeleteCalls != 1 || len(svc.StoredTasks()) != 3 {
		t.Errorf("expected one task deleted, calls=%d", svc.DeleteCalls)
	}
}

func TestRmCommand_Prompt(t *testing.T) {
	tests := []struct {
		answer  string
		stdout  string
		deletes int
	}{
		{"n\n", "cancelled\n", 0},
		{"\n", "cancelled\n", 0},
		{"yes\n", "ok\n", 1},
	}
	for _, tt := range tests {
		svc := testutil.NewFakeService()
		seed(svc)
		cfg := newConfig(t, false)
		cfg.Stdin = strings.NewReader(tt.answer)

		stdout, stderr, code := run(t, &commands.RmCmd{}, cfg, svc, "d", "1")

		if code != exitcode.Success {
			t.Errorf("%q: expected exit code %d, got %d", tt.answer, exitcode.Success, code)
		}
		if stdout != tt.stdout {
			t.Errorf("%q: expected %q, got %q", tt.answer, tt.stdout, stdout)
		}
		if stderr != `Delete "Fix prod bug"? [y/N] ` {
			t.Errorf("%q: unexpected prompt %q", tt.answer, stderr)
		}
		if svc.DeleteCalls != tt.deletes {
			t.Errorf("%q: expected %d delete calls, got %d", tt.answer, tt.deletes, svc.DeleteCalls)
		}
	}
}

func TestRmCommand_NoStdinDeclines(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)

	stdout, _, code := runCommand(t, &commands.RmCmd{}, svc, []string{"1"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "cancelled\n" {
		t.Errorf("expected 'cancelled', got %q", stdout)
	}
	if svc.DeleteCalls != 0 {
		t.Error("expected no delete")
	}
}

// Tests for edit command
func TestEditCommand_Title(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{ID: "t1", Title: "Plan", Description: "Q2 roadmap", IsImportant: true})

	cmd := &commands.EditCmd{}
	cmd.SetTitle("Plan next quarter")
	stdout, _, code := runCommand(t, cmd, svc, []string{"s1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok', got %q", stdout)
	}
	got := findStored(t, svc, "t1")
	if got.Title != "Plan next quarter" || got.Description != "Q2 roadmap" {
		t.Errorf("unexpected task %+v", got)
	}
}

func TestEditCommand_ClearDescription(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask(service.Task{ID: "t1", Title: "Plan", Description: "Q2 roadmap"})

	cmd := &commands.EditCmd{}
	cmd.SetDescription("")
	_, _, code := runCommand(t, cmd, svc, []string{"1"}, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if got := findStored(t, svc, "t1"); got.Title != "Plan" || got.Description != "" {
		t.Errorf("unexpected task %+v", got)
	}
}

func TestEditCommand_NothingToChange(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)

	_, stderr, code := runCommand(t, &commands.EditCmd{}, svc, []string{"1"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: nothing to change (use --title or --desc)\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for move command
func TestMoveCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)
	cfg := newConfig(t, false)

	stdout, _, code := run(t, &commands.MoveCmd{}, cfg, svc, "d1", "eliminate")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok (Eliminate)\n" {
		t.Errorf("expected 'ok (Eliminate)', got %q", stdout)
	}
	got := findStored(t, svc, "11111111-1111-4111-8111-111111111111")
	if got.IsImportant || got.IsUrgent {
		t.Errorf("expected both flags cleared, got %+v", got)
	}

	calls := svc.UpdateCalls
	stdout, _, _ = run(t, &commands.MoveCmd{}, cfg, svc, "e", "1", "e")
	if stdout != "already in Eliminate\n" {
		t.Errorf("expected 'already in Eliminate', got %q", stdout)
	}
	if svc.UpdateCalls != calls {
		t.Error("expected no update for same quadrant")
	}
}

func TestMoveCommand_Errors(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)

	_, stderr, code := runCommand(t, &commands.MoveCmd{}, svc, []string{"d1"}, false)
	if code != exitcode.UserError || stderr != "error: task reference and quadrant required\n" {
		t.Errorf("unexpected result %d %q", code, stderr)
	}

	_, stderr, code = runCommand(t, &commands.MoveCmd{}, svc, []string{"d1", "later"}, false)
	if code != exitcode.UserError || !strings.HasPrefix(stderr, "error: ") {
		t.Errorf("unexpected result %d %q", code, stderr)
	}
}

// Tests for stats command
func TestStatsCommand_Plain(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetStats(service.UserStats{
		CurrentStreak:       3,
		LongestStreak:       7,
		TotalPoints:         120,
		TasksCompletedToday: 2,
		LastActivityDate:    "2024-03-15",
	})

	stdout, _, code := runCommand(t, &commands.StatsCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	for _, want := range []string{
		"Current streak:   3 days\n",
		"Longest streak:   7 days\n",
		"Total points:     120\n",
		"Completed today:  2\n",
		"Level:            Advanced",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
}

func TestStatsCommand_StaleStreak(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetStats(service.UserStats{CurrentStreak: 3, LongestStreak: 7, TotalPoints: 40, TasksCompletedToday: 2, LastActivityDate: "2024-03-10"})

	cmd := &commands.StatsCmd{}
	cmd.SetFormat(output.FormatJSON)
	stdout, _, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	var view output.StatsView
	if err := json.Unmarshal([]byte(stdout), &view); err != nil {
		t.Fatalf("invalid JSON %q: %v", stdout, err)
	}
	if view.CurrentStreak != 0 || view.TasksCompletedToday != 0 || view.LongestStreak != 7 || view.Level != "Beginner" {
		t.Errorf("unexpected view %+v", view)
	}
}

func TestStatsCommand_NoRow(t *testing.T) {
	svc := testutil.NewFakeService()

	stdout, _, code := runCommand(t, &commands.StatsCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if !strings.HasPrefix(stdout, "Current streak:   0 days\n") {
		t.Errorf("unexpected output %q", stdout)
	}
}

// Tests for insights command
func TestInsightsCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)

	stdout, _, code := runCommand(t, &commands.InsightsCmd{}, svc, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	for _, want := range []string{
		"Completion rate: 25% (1 of 4 tasks)\n",
		"  Do Now     1\n",
		"  Eliminate  1\n",
		"  Fri 2024-03-15  1\n",
		"  Sat 2024-03-09  0\n",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("expected %q in output:\n%s", want, stdout)
		}
	}
}

// Tests for theme command
func TestThemeCommand(t *testing.T) {
	cfg := newConfig(t, false)

	stdout, _, code := run(t, &commands.ThemeCmd{}, cfg, nil, "dark")
	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "theme: dark\naccent: #3B82F6\n" {
		t.Errorf("unexpected output %q", stdout)
	}

	cmd := &commands.ThemeCmd{}
	cmd.SetAccent("#10b981")
	stdout, _, _ = run(t, cmd, cfg, nil, "light")
	if stdout != "theme: light\naccent: #10B981\n" {
		t.Errorf("unexpected output %q", stdout)
	}

	stdout, _, _ = run(t, &commands.ThemeCmd{}, cfg, nil, "toggle")
	if stdout != "theme: dark\naccent: #10B981\n" {
		t.Errorf("unexpected output %q", stdout)
	}

	stdout, _, _ = run(t, &commands.ThemeCmd{}, cfg, nil)
	if stdout != "theme: dark\naccent: #10B981\n" {
		t.Errorf("show: unexpected output %q", stdout)
	}
}

func TestThemeCommand_Invalid(t *testing.T) {
	cfg := newConfig(t, false)

	_, stderr, code := run(t, &commands.ThemeCmd{}, cfg, nil, "blue")
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: theme must be light or dark\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}

	cmd := &commands.ThemeCmd{}
	cmd.SetAccent("teal")
	_, stderr, code = run(t, cmd, cfg, nil)
	if code != exitcode.UserError || stderr != "error: accent color must be #RRGGBB\n" {
		t.Errorf("unexpected result %d %q", code, stderr)
	}
}

// fakeSource is an in-memory Google Tasks list.
type fakeSource struct {
	list  googletasks.TaskList
	items []googletasks.Item
	err   error
}

func (f *fakeSource) ResolveList(ctx context.Context, name string) (googletasks.TaskList, error) {
	if f.err != nil {
		return googletasks.TaskList{}, f.err
	}
	return f.list, nil
}

func (f *fakeSource) OpenTasks(ctx context.Context, listID string) ([]googletasks.Item, error) {
	return f.items, nil
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		list: googletasks.TaskList{ID: "list-1", Title: "Work", IsDefault: true},
		items: []googletasks.Item{
			{ID: "a", Title: "Write report", Notes: "for Monday"},
			{ID: "b", Title: "fix prod bug "},
			{ID: "c", Title: "Write Report"},
		},
	}
}

// Tests for import command
func TestImportCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	seed(svc)

	cmd := &commands.ImportCmd{}
	cmd.SetSource(newFakeSource())
	cmd.SetFlags(true, true, false)
	stdout, stderr, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	want := "imported: Write report\nimported 1 task(s) into Do Now from \"Work\", skipped 2\n"
	if stdout != want {
		t.Errorf("expected %q, got %q", want, stdout)
	}
	stored := svc.StoredTasks()
	if len(stored) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(stored))
	}
	last := stored[len(stored)-1]
	if last.Title != "Write report" || last.Description != "for Monday" || !last.IsImportant || !last.IsUrgent {
		t.Errorf("unexpected imported task %+v", last)
	}
}

func TestImportCommand_DryRun(t *testing.T) {
	svc := testutil.NewFakeService()

	cmd := &commands.ImportCmd{}
	cmd.SetSource(newFakeSource())
	cmd.SetFlags(false, false, true)
	stdout, _, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	want := "would import: Write report\nwould import: fix prod bug\nwould import 2 task(s) into Eliminate from \"Work\", skipped 1\n"
	if stdout != want {
		t.Errorf("expected %q, got %q", want, stdout)
	}
	if len(svc.StoredTasks()) != 0 {
		t.Error("dry run stored tasks")
	}
}

func TestImportCommand_ListNotFound(t *testing.T) {
	svc := testutil.NewFakeService()

	src := newFakeSource()
	src.err = errors.New(`list not found: "Groceries"`)
	cmd := &commands.ImportCmd{}
	cmd.SetSource(src)
	cmd.SetListName("Groceries")
	_, stderr, code := runCommand(t, cmd, svc, nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: list not found: \"Groceries\"\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for init command
func TestInitCommand_Supabase(t *testing.T) {
	cfg := newConfig(t, false)

	cmd := &commands.InitCmd{}
	cmd.SetOptions("supabase", "https://demo.supabase.co", "anon-key", "", "", false)
	stdout, stderr, code := run(t, cmd, cfg, nil)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d: %s", exitcode.Success, code, stderr)
	}
	if stdout != "wrote "+cfg.ConfigPath()+"\n" {
		t.Errorf("unexpected output %q", stdout)
	}

	loaded, _ := config.New(cfg.Dir)
	if err := loaded.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.SupabaseURL != "https://demo.supabase.co" || loaded.SupabaseAnonKey != "anon-key" || loaded.Timezone != "UTC" {
		t.Errorf("unexpected config %+v", loaded)
	}

	_, stderr, code = run(t, cmd, cfg, nil)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d for existing file, got %d", exitcode.UserError, code)
	}
	if !strings.Contains(stderr, "already exists (use --force to overwrite)") {
		t.Errorf("unexpected stderr %q", stderr)
	}

	cmd.SetOptions("supabase", "https://other.supabase.co", "anon-key", "", "", true)
	if _, _, code = run(t, cmd, cfg, nil); code != exitcode.Success {
		t.Errorf("expected overwrite to succeed, got %d", code)
	}
}

func TestInitCommand_PostgresGeneratesUserID(t *testing.T) {
	cfg := newConfig(t, true)

	cmd := &commands.InitCmd{}
	cmd.SetOptions("postgres", "", "", "postgres://eisen@localhost/eisen", "", false)
	stdout, _, code := run(t, cmd, cfg, nil)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected no output in quiet mode, got %q", stdout)
	}
	data, err := os.ReadFile(cfg.ConfigPath())
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	loaded, _ := config.New(cfg.Dir)
	if err := loaded.Load(); err != nil {
		t.Fatalf("load: %v\n%s", err, data)
	}
	if _, err := uuid.Parse(loaded.UserID); err != nil {
		t.Errorf("expected generated user id, got %q", loaded.UserID)
	}
	if err := loaded.RequireBackend(); err != nil {
		t.Errorf("expected usable postgres settings, got %v", err)
	}
}

func TestInitCommand_UnknownBackend(t *testing.T) {
	cfg := newConfig(t, false)

	cmd := &commands.InitCmd{}
	cmd.SetOptions("mysql", "", "", "", "", false)
	_, stderr, code := run(t, cmd, cfg, nil)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: unknown backend: mysql\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for watch command
func TestWatchCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	cfg := newConfig(t, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var outBuf, errBuf bytes.Buffer
	done := make(chan int)
	go func() {
		done <- (&commands.WatchCmd{}).Run(ctx, cfg, svc, nil, &outBuf, &errBuf)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for svc.Subscribers() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("watch did not subscribe")
		}
		time.Sleep(5 * time.Millisecond)
	}
	svc.EmitInsert(service.Task{ID: "t9", UserID: testutil.DefaultUserID, Title: "Pushed", IsImportant: true, IsUrgent: true, Status: service.StatusPending})
	cancel()

	if code := <-done; code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	want := "12:00:00  INSERT  do-now     pending    Pushed\n"
	if outBuf.String() != want {
		t.Errorf("expected %q, got %q", want, outBuf.String())
	}
	if errBuf.String() != "watching for changes (Ctrl-C to stop)\n" {
		t.Errorf("unexpected stderr %q", errBuf.String())
	}
}

func TestWatchCommand_SubscribeError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SubscribeErr = errors.New("websocket: bad handshake")

	_, stderr, code := runCommand(t, &commands.WatchCmd{}, svc, nil, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stderr != "error: backend error: subscribe: websocket: bad handshake\n" {
		t.Errorf("unexpected stderr %q", stderr)
	}
}
