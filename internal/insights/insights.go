// Package insights derives weekly aggregates and the productivity level.
package insights

import (
	"math"
	"time"

	"eisen/internal/matrix"
	"eisen/internal/service"
)

// Window is the trailing period covered by the weekly insight.
const Window = 7 * 24 * time.Hour

// QuadrantCount is one bar of the distribution chart.
type QuadrantCount struct {
	Quadrant matrix.Quadrant `json:"quadrant" yaml:"quadrant"`
	Name     string          `json:"name" yaml:"name"`
	Count    int             `json:"count" yaml:"count"`
	Color    string          `json:"color" yaml:"color"`
}

// DayCount is one bar of the daily completion chart.
type DayCount struct {
	Date      time.Time `json:"date" yaml:"date"`
	Day       string    `json:"day" yaml:"day"`
	Completed int       `json:"completed" yaml:"completed"`
}

// Weekly is the dashboard's weekly insight.
type Weekly struct {
	Quadrants      []QuadrantCount `json:"quadrants" yaml:"quadrants"`
	CompletionRate int             `json:"completion_rate" yaml:"completion_rate"`
	Completed      int             `json:"completed" yaml:"completed"`
	Total          int             `json:"total" yaml:"total"`
	Daily          []DayCount      `json:"daily" yaml:"daily"`
}

// InWindow reports whether t was created within the trailing week.
// The boundary is inclusive: a task created exactly 7x24h ago counts.
func InWindow(t service.Task, now time.Time) bool {
	return !t.CreatedAt.Before(now.Add(-Window))
}

// CompletionRate is round(completed/total*100), or 0 for an empty set.
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ComputeWeekly aggregates tasks as of now. Day boundaries use loc.
func ComputeWeekly(tasks []service.Task, now time.Time, loc *time.Location) Weekly {
	if loc == nil {
		loc = time.Local
	}

	var w Weekly
	counts := make([]int, len(matrix.All))
	for _, t := range tasks {
		if !InWindow(t, now) {
			continue
		}
		w.Total++
		counts[matrix.Of(t)]++
		if t.IsCompleted() {
			w.Completed++
		}
	}
	for _, q := range matrix.All {
		w.Quadrants = append(w.Quadrants, QuadrantCount{
			Quadrant: q,
			Name:     q.Title(),
			Count:    counts[q],
			Color:    q.Color(),
		})
	}
	w.CompletionRate = CompletionRate(w.Completed, w.Total)
	w.Daily = DailyCompletions(tasks, now, loc)
	return w
}

// DailyCompletions counts completed tasks per local day for the last seven
// days, oldest first. A task counts on the day of its last update.
func DailyCompletions(tasks []service.Task, now time.Time, loc *time.Location) []DayCount {
	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	days := make([]DayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		start := today.AddDate(0, 0, -i)
		end := start.AddDate(0, 0, 1)
		n := 0
		for _, t := range tasks {
			if !t.IsCompleted() {
				continue
			}
			if !t.UpdatedAt.Before(start) && t.UpdatedAt.Before(end) {
				n++
			}
		}
		days = append(days, DayCount{Date: start, Day: start.Format("Mon"), Completed: n})
	}
	return days
}

// Level names the productivity tier for a point total.
func Level(points int) string {
	switch {
	case points > 500:
		return "Master"
	case points > 200:
		return "Expert"
	case points > 100:
		return "Advanced"
	case points > 50:
		return "Intermediate"
	default:
		return "Beginner"
	}
}

// MaxLevelPoints is where the progress bar fills up.
const MaxLevelPoints = 500

// Progress returns the fill fraction of the level bar in [0, 1].
func Progress(points int) float64 {
	if points <= 0 {
		return 0
	}
	return math.Min(float64(points)/MaxLevelPoints, 1)
}
