package insights_test

import (
	"testing"
	"time"

	"eisen/internal/insights"
	"eisen/internal/matrix"
	"eisen/internal/service"
)

var now = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

func task(important, urgent bool, status service.Status, created time.Time) service.Task {
	return service.Task{
		IsImportant: important,
		IsUrgent:    urgent,
		Status:      status,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestInWindow_InclusiveBoundary(t *testing.T) {
	exact := task(true, true, service.StatusPending, now.Add(-insights.Window))
	if !insights.InWindow(exact, now) {
		t.Error("task created exactly 7x24h ago should be in the window")
	}
	older := task(true, true, service.StatusPending, now.Add(-insights.Window-time.Nanosecond))
	if insights.InWindow(older, now) {
		t.Error("task created just before the window should be excluded")
	}
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{5, 5, 100},
	}
	for _, tt := range tests {
		if got := insights.CompletionRate(tt.completed, tt.total); got != tt.want {
			t.Errorf("CompletionRate(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func TestComputeWeekly(t *testing.T) {
	tasks := []service.Task{
		task(true, true, service.StatusPending, now.Add(-time.Hour)),
		task(true, false, service.StatusCompleted, now.Add(-48*time.Hour)),
		task(false, true, service.StatusPending, now.Add(-72*time.Hour)),
		task(false, false, service.StatusPending, now.Add(-6*24*time.Hour)),
		// Outside the window.
		task(true, true, service.StatusCompleted, now.Add(-8*24*time.Hour)),
	}

	w := insights.ComputeWeekly(tasks, now, time.UTC)
	if w.Total != 4 {
		t.Errorf("Total = %d, want 4", w.Total)
	}
	if w.Completed != 1 {
		t.Errorf("Completed = %d, want 1", w.Completed)
	}
	if w.CompletionRate != 25 {
		t.Errorf("CompletionRate = %d, want 25", w.CompletionRate)
	}
	for _, qc := range w.Quadrants {
		if qc.Count != 1 {
			t.Errorf("%s count = %d, want 1", qc.Name, qc.Count)
		}
	}
	if w.Quadrants[0].Quadrant != matrix.DoNow || w.Quadrants[0].Color != "#EF4444" {
		t.Errorf("unexpected first bar %+v", w.Quadrants[0])
	}
}

func TestComputeWeekly_Empty(t *testing.T) {
	w := insights.ComputeWeekly(nil, now, time.UTC)
	if w.CompletionRate != 0 || w.Total != 0 {
		t.Errorf("unexpected %+v", w)
	}
	if len(w.Quadrants) != 4 || len(w.Daily) != 7 {
		t.Errorf("expected 4 bars and 7 days, got %d and %d", len(w.Quadrants), len(w.Daily))
	}
}

func TestDailyCompletions(t *testing.T) {
	done := func(at time.Time) service.Task {
		return service.Task{Status: service.StatusCompleted, CreatedAt: at, UpdatedAt: at}
	}
	tasks := []service.Task{
		done(time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)),  // today, at midnight
		done(time.Date(2024, time.March, 15, 11, 0, 0, 0, time.UTC)), // today
		done(time.Date(2024, time.March, 9, 23, 59, 0, 0, time.UTC)), // six days ago
		done(time.Date(2024, time.March, 8, 23, 59, 0, 0, time.UTC)), // too old
		{Status: service.StatusPending, UpdatedAt: now},
	}

	days := insights.DailyCompletions(tasks, now, time.UTC)
	if len(days) != 7 {
		t.Fatalf("got %d days", len(days))
	}
	if days[6].Completed != 2 || days[6].Day != "Fri" {
		t.Errorf("today = %+v, want 2 on Fri", days[6])
	}
	if days[0].Completed != 1 || days[0].Day != "Sat" {
		t.Errorf("oldest = %+v, want 1 on Sat", days[0])
	}
}

func TestLevel(t *testing.T) {
	tests := map[int]string{
		0:   "Beginner",
		50:  "Beginner",
		51:  "Intermediate",
		101: "Advanced",
		201: "Expert",
		500: "Expert",
		501: "Master",
	}
	for points, want := range tests {
		if got := insights.Level(points); got != want {
			t.Errorf("Level(%d) = %q, want %q", points, got, want)
		}
	}
}

func TestProgress(t *testing.T) {
	if got := insights.Progress(250); got != 0.5 {
		t.Errorf("Progress(250) = %v", got)
	}
	if got := insights.Progress(1000); got != 1 {
		t.Errorf("Progress(1000) = %v", got)
	}
	if got := insights.Progress(-5); got != 0 {
		t.Errorf("Progress(-5) = %v", got)
	}
}
