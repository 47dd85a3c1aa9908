// Package output provides formatters for CLI output.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"eisen/internal/insights"
	"eisen/internal/matrix"
	"eisen/internal/service"
)

// CompletedLetter prefixes references of completed tasks.
const CompletedLetter = 'c'

// Date layouts.
const (
	DueLayout     = "Jan 02, 2006"
	CreatedLayout = "Jan 02"
)

// Machine-readable formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Ref is a task together with the references it can be addressed by.
type Ref struct {
	// Num is the 1-based position in board order.
	Num int `json:"num" yaml:"num"`
	// Ref is the quadrant letter plus the position within the quadrant, e.g. "d1".
	Ref      string          `json:"ref" yaml:"ref"`
	Quadrant matrix.Quadrant `json:"quadrant" yaml:"quadrant"`
	Task     service.Task    `json:"task" yaml:"task"`
}

// Number assigns references in board order: Do Now, Schedule, Delegate,
// Eliminate, then completed tasks. Open tasks keep their numbers whether or
// not completed tasks are included.
func Number(tasks []service.Task, withCompleted bool) []Ref {
	board := matrix.Categorize(tasks)
	var refs []Ref
	n := 0
	for _, q := range matrix.All {
		for i, t := range board.Tasks(q) {
			n++
			refs = append(refs, Ref{Num: n, Ref: fmt.Sprintf("%c%d", q.Letter(), i+1), Quadrant: q, Task: t})
		}
	}
	if !withCompleted {
		return refs
	}
	i := 0
	for _, t := range tasks {
		if !t.IsCompleted() {
			continue
		}
		n++
		i++
		refs = append(refs, Ref{Num: n, Ref: fmt.Sprintf("%c%d", CompletedLetter, i), Quadrant: matrix.Of(t), Task: t})
	}
	return refs
}

// FormatTask formats a task line.
// Format: "{N:>4}  {REF:<3}  {TITLE}{SUFFIX}\n"
func FormatTask(w io.Writer, r Ref, loc *time.Location) {
	title := normalizeTitle(r.Task.Title)
	fmt.Fprintf(w, "%4d  %-3s  %s%s\n", r.Num, r.Ref, title, suffix(r.Task, loc))
}

func suffix(t service.Task, loc *time.Location) string {
	var parts []string
	if t.Status == service.StatusArchived {
		parts = append(parts, "archived")
	}
	if t.DueDate != nil {
		parts = append(parts, "due "+t.DueDate.In(loc).Format(DueLayout))
	}
	if len(parts) == 0 {
		return ""
	}
	return "  [" + strings.Join(parts, ", ") + "]"
}

// FormatBoard writes the plain board: one section per quadrant, then the
// completed section when refs include completed tasks.
func FormatBoard(w io.Writer, refs []Ref, loc *time.Location) {
	for _, q := range matrix.All {
		var section []Ref
		for _, r := range refs {
			if !r.Task.IsCompleted() && r.Quadrant == q {
				section = append(section, r)
			}
		}
		FormatSectionHeader(w, q.Title(), len(section))
		if len(section) == 0 {
			fmt.Fprintln(w, "      (no tasks)")
		}
		for _, r := range section {
			FormatTask(w, r, loc)
		}
	}

	var done []Ref
	for _, r := range refs {
		if r.Task.IsCompleted() {
			done = append(done, r)
		}
	}
	if len(done) > 0 {
		FormatSectionHeader(w, "Completed", len(done))
		for _, r := range done {
			FormatTask(w, r, loc)
		}
	}
}

// FormatSectionHeader formats a board section header.
func FormatSectionHeader(w io.Writer, title string, count int) {
	fmt.Fprintf(w, "%s (%d)\n", title, count)
}

// FormatEvent formats one realtime change for the watch command.
func FormatEvent(w io.Writer, at time.Time, event string, t service.Task) {
	ts := at.Format(time.TimeOnly)
	if event == "DELETE" {
		fmt.Fprintf(w, "%s  %-6s  %s\n", ts, event, t.ID)
		return
	}
	fmt.Fprintf(w, "%s  %-6s  %-9s  %-9s  %s\n", ts, event, matrix.Of(t).ID(), t.Status, normalizeTitle(t.Title))
}

// StatsView is the progress card in machine-readable form.
type StatsView struct {
	CurrentStreak       int     `json:"current_streak" yaml:"current_streak"`
	LongestStreak       int     `json:"longest_streak" yaml:"longest_streak"`
	TotalPoints         int     `json:"total_points" yaml:"total_points"`
	TasksCompletedToday int     `json:"tasks_completed_today" yaml:"tasks_completed_today"`
	LastActivityDate    string  `json:"last_activity_date,omitempty" yaml:"last_activity_date,omitempty"`
	Level               string  `json:"level" yaml:"level"`
	Progress            float64 `json:"progress" yaml:"progress"`
}

// NewStatsView derives the card from a stats row.
func NewStatsView(s service.UserStats) StatsView {
	return StatsView{
		CurrentStreak:       s.CurrentStreak,
		LongestStreak:       s.LongestStreak,
		TotalPoints:         s.TotalPoints,
		TasksCompletedToday: s.TasksCompletedToday,
		LastActivityDate:    s.LastActivityDate,
		Level:               insights.Level(s.TotalPoints),
		Progress:            insights.Progress(s.TotalPoints),
	}
}

// FormatStats writes the plain progress card.
func FormatStats(w io.Writer, s service.UserStats) {
	v := NewStatsView(s)
	fmt.Fprintf(w, "Current streak:   %d days\n", v.CurrentStreak)
	fmt.Fprintf(w, "Longest streak:   %d days\n", v.LongestStreak)
	fmt.Fprintf(w, "Total points:     %d\n", v.TotalPoints)
	fmt.Fprintf(w, "Completed today:  %d\n", v.TasksCompletedToday)
	fmt.Fprintf(w, "Level:            %s (%d%%)\n", v.Level, int(v.Progress*100))
}

// FormatInsights writes the plain weekly insight.
func FormatInsights(w io.Writer, wk insights.Weekly) {
	fmt.Fprintf(w, "Completion rate: %d%% (%d of %d tasks)\n", wk.CompletionRate, wk.Completed, wk.Total)
	fmt.Fprintln(w, "Tasks by quadrant:")
	for _, qc := range wk.Quadrants {
		fmt.Fprintf(w, "  %-10s %d\n", qc.Name, qc.Count)
	}
	fmt.Fprintln(w, "Completed per day:")
	for _, d := range wk.Daily {
		fmt.Fprintf(w, "  %s %s  %d\n", d.Day, d.Date.Format(time.DateOnly), d.Completed)
	}
}

// ValidFormat reports whether f names a known output format.
func ValidFormat(f string) bool {
	switch f {
	case "", FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Encode writes v as JSON or YAML.
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	// Replace newlines with spaces
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	// Trim and check for empty
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
