package stats_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"eisen/internal/service"
	"eisen/internal/stats"
	"eisen/internal/testutil"
)

func fixedTracker(svc *testutil.FakeService, at time.Time) *stats.Tracker {
	tr := stats.NewTracker(svc, time.UTC, nil)
	tr.Now = func() time.Time { return at }
	return tr
}

func TestApplyCompletion_SameDay(t *testing.T) {
	s := service.UserStats{CurrentStreak: 3, LongestStreak: 5, TotalPoints: 40, TasksCompletedToday: 2, LastActivityDate: "2024-03-15"}
	got := stats.ApplyCompletion(s, "2024-03-15")
	if got.CurrentStreak != 3 || got.TasksCompletedToday != 3 || got.TotalPoints != 50 || got.LongestStreak != 5 {
		t.Errorf("unexpected %+v", got)
	}
}

func TestApplyCompletion_NextDayExtendsStreak(t *testing.T) {
	s := service.UserStats{CurrentStreak: 5, LongestStreak: 5, TotalPoints: 40, TasksCompletedToday: 4, LastActivityDate: "2024-02-29"}
	got := stats.ApplyCompletion(s, "2024-03-01")
	if got.CurrentStreak != 6 || got.LongestStreak != 6 {
		t.Errorf("streak = %d/%d, want 6/6", got.CurrentStreak, got.LongestStreak)
	}
	if got.TasksCompletedToday != 1 {
		t.Errorf("today = %d, want 1", got.TasksCompletedToday)
	}
	if got.LastActivityDate != "2024-03-01" {
		t.Errorf("last activity = %q", got.LastActivityDate)
	}
}

func TestApplyCompletion_GapResetsStreak(t *testing.T) {
	s := service.UserStats{CurrentStreak: 7, LongestStreak: 7, LastActivityDate: "2024-03-10"}
	got := stats.ApplyCompletion(s, "2024-03-15")
	if got.CurrentStreak != 1 || got.LongestStreak != 7 {
		t.Errorf("streak = %d/%d, want 1/7", got.CurrentStreak, got.LongestStreak)
	}
}

func TestApplyCompletion_FirstEver(t *testing.T) {
	got := stats.ApplyCompletion(service.UserStats{}, "2024-03-15")
	if got.CurrentStreak != 1 || got.LongestStreak != 1 || got.TotalPoints != 10 || got.TasksCompletedToday != 1 {
		t.Errorf("unexpected %+v", got)
	}
}

func TestApplyRevocation(t *testing.T) {
	s := service.UserStats{CurrentStreak: 2, TotalPoints: 10, TasksCompletedToday: 1, LastActivityDate: "2024-03-15"}
	got := stats.ApplyRevocation(s, "2024-03-15")
	if got.TotalPoints != 0 || got.TasksCompletedToday != 0 || got.CurrentStreak != 2 {
		t.Errorf("unexpected %+v", got)
	}

	got = stats.ApplyRevocation(service.UserStats{TotalPoints: 0}, "2024-03-15")
	if got.TotalPoints != 0 {
		t.Errorf("points went negative: %d", got.TotalPoints)
	}
}

func TestEffective(t *testing.T) {
	s := service.UserStats{CurrentStreak: 4, TasksCompletedToday: 3, LastActivityDate: "2024-03-14"}
	got := stats.Effective(s, "2024-03-15")
	if got.CurrentStreak != 4 || got.TasksCompletedToday != 0 {
		t.Errorf("yesterday: %+v", got)
	}
	got = stats.Effective(s, "2024-03-17")
	if got.CurrentStreak != 0 {
		t.Errorf("broken streak should read 0, got %d", got.CurrentStreak)
	}
}

func TestTracker_CreatesMissingRow(t *testing.T) {
	svc := testutil.NewFakeService()
	tr := fixedTracker(svc, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))

	got, err := tr.RecordCompletion(context.Background(), testutil.DefaultUserID)
	if err != nil {
		t.Fatalf("RecordCompletion: %v", err)
	}
	if got.TotalPoints != 10 || got.CurrentStreak != 1 || got.LastActivityDate != "2024-03-15" {
		t.Errorf("unexpected %+v", got)
	}
}

func TestTracker_RecordThenRevoke(t *testing.T) {
	svc := testutil.NewFakeService()
	tr := fixedTracker(svc, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()

	if _, err := tr.RecordCompletion(ctx, testutil.DefaultUserID); err != nil {
		t.Fatal(err)
	}
	got, err := tr.RevokeCompletion(ctx, testutil.DefaultUserID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalPoints != 0 || got.TasksCompletedToday != 0 {
		t.Errorf("unexpected %+v", got)
	}
}

// Two trackers model two clients racing on the same account.
func TestTracker_ConcurrentCompletionsLoseNothing(t *testing.T) {
	svc := testutil.NewFakeService()
	at := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	a := fixedTracker(svc, at)
	b := fixedTracker(svc, at)
	ctx := context.Background()

	// Widen the window between read and write.
	svc.BeforeSwap = func() { time.Sleep(time.Millisecond) }

	const perClient = 4
	var wg sync.WaitGroup
	errs := make(chan error, 2*perClient)
	for _, tr := range []*stats.Tracker{a, b} {
		for i := 0; i < perClient; i++ {
			wg.Add(1)
			go func(tr *stats.Tracker) {
				defer wg.Done()
				if _, err := tr.RecordCompletion(ctx, testutil.DefaultUserID); err != nil {
					errs <- err
				}
			}(tr)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected error: %v", err)
	}

	// A client can lose a swap at most once per write of the other client,
	// which is fewer than MaxAttempts, so every completion lands.
	got := svc.Stats(testutil.DefaultUserID)
	if want := 2 * perClient * stats.PointsPerCompletion; got.TotalPoints != want {
		t.Errorf("TotalPoints = %d, want %d", got.TotalPoints, want)
	}
	if got.TasksCompletedToday != 2*perClient {
		t.Errorf("TasksCompletedToday = %d, want %d", got.TasksCompletedToday, 2*perClient)
	}
}

func TestTracker_ContentionGivesUp(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.SetStats(service.UserStats{UserID: testutil.DefaultUserID})
	tr := fixedTracker(svc, time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC))

	// Another writer bumps the row before every swap.
	bump := 0
	svc.BeforeSwap = func() {
		bump++
		svc.SetStats(service.UserStats{UserID: testutil.DefaultUserID, TotalPoints: bump * 1000})
	}

	_, err := tr.RecordCompletion(context.Background(), testutil.DefaultUserID)
	if !errors.Is(err, stats.ErrContention) {
		t.Fatalf("expected ErrContention, got %v", err)
	}
	if svc.SwapCalls != stats.MaxAttempts {
		t.Errorf("SwapCalls = %d, want %d", svc.SwapCalls, stats.MaxAttempts)
	}
}

func TestTracker_ReadError(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.GetStatsErr = errors.New("boom")
	tr := fixedTracker(svc, time.Now())

	if _, err := tr.RecordCompletion(context.Background(), testutil.DefaultUserID); err == nil {
		t.Fatal("expected error")
	}
}
