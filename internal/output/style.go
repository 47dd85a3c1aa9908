package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"eisen/internal/insights"
	"eisen/internal/matrix"
	"eisen/internal/prefs"
	"eisen/internal/service"
)

// MinPanelWidth keeps quadrant panels readable on narrow terminals.
const MinPanelWidth = 28

// Theme holds the styles derived from the user's preferences.
type Theme struct {
	Prefs prefs.Prefs
	Loc   *time.Location

	r       *lipgloss.Renderer
	accent  lipgloss.Color
	text    lipgloss.Color
	muted   lipgloss.Color
	success lipgloss.Color
}

// NewTheme builds a theme rendering for w.
func NewTheme(w io.Writer, p prefs.Prefs, loc *time.Location) Theme {
	if loc == nil {
		loc = time.Local
	}
	r := lipgloss.NewRenderer(w)
	r.SetHasDarkBackground(p.IsDark())
	th := Theme{
		Prefs:   p,
		Loc:     loc,
		r:       r,
		accent:  lipgloss.Color(p.AccentColor),
		success: lipgloss.Color("#16A34A"),
	}
	if p.IsDark() {
		th.text, th.muted = lipgloss.Color("#F3F4F6"), lipgloss.Color("#9CA3AF")
	} else {
		th.text, th.muted = lipgloss.Color("#111827"), lipgloss.Color("#6B7280")
	}
	return th
}

func (th Theme) style() lipgloss.Style { return th.r.NewStyle().Foreground(th.text) }
func (th Theme) faint() lipgloss.Style { return th.r.NewStyle().Foreground(th.muted) }

// Title renders a heading in the accent color.
func (th Theme) Title(s string) string {
	return th.r.NewStyle().Bold(true).Foreground(th.accent).Render(s)
}

// Muted renders secondary text.
func (th Theme) Muted(s string) string { return th.faint().Render(s) }

// Badges returns the badge row of a task: Important, Urgent and the status.
func Badges(t service.Task) []string {
	var b []string
	if t.IsImportant {
		b = append(b, "Important")
	}
	if t.IsUrgent {
		b = append(b, "Urgent")
	}
	return append(b, string(t.Status))
}

// RenderTask renders one task card line block.
func (th Theme) RenderTask(r Ref, selected bool) string {
	titleStyle := th.style().Bold(true)
	if r.Task.IsCompleted() {
		titleStyle = titleStyle.Strikethrough(true).Foreground(th.muted)
	}
	ref := th.r.NewStyle().Foreground(th.accent).Render(fmt.Sprintf("%-3s", r.Ref))
	cursor := "  "
	if selected {
		cursor = th.r.NewStyle().Foreground(th.accent).Render("> ")
	}

	lines := []string{cursor + ref + " " + titleStyle.Render(normalizeTitle(r.Task.Title))}
	if d := strings.TrimSpace(r.Task.Description); d != "" {
		lines = append(lines, "      "+th.faint().Render(strings.ReplaceAll(d, "\n", " ")))
	}

	var badges []string
	for _, b := range Badges(r.Task) {
		style := th.r.NewStyle().Foreground(th.muted)
		switch b {
		case "Important":
			style = style.Foreground(lipgloss.Color(matrix.DoNow.Color()))
		case "Urgent":
			style = style.Foreground(lipgloss.Color(matrix.Delegate.Color()))
		case string(service.StatusCompleted):
			style = style.Foreground(th.success)
		}
		badges = append(badges, style.Render("["+b+"]"))
	}
	lines = append(lines, "      "+strings.Join(badges, " "))

	var dates []string
	if r.Task.DueDate != nil {
		dates = append(dates, "Due "+r.Task.DueDate.In(th.Loc).Format(DueLayout))
	}
	if !r.Task.CreatedAt.IsZero() {
		dates = append(dates, "Created "+r.Task.CreatedAt.In(th.Loc).Format(CreatedLayout))
	}
	if len(dates) > 0 {
		lines = append(lines, "      "+th.faint().Render(strings.Join(dates, " · ")))
	}
	return strings.Join(lines, "\n")
}

// RenderPanel renders one quadrant panel. selected is the index of the
// highlighted task, or -1.
func (th Theme) RenderPanel(q matrix.Quadrant, refs []Ref, width, selected int, focused bool) string {
	color := lipgloss.Color(q.Color())
	header := th.r.NewStyle().Bold(true).Foreground(color).Render(q.Title()) +
		" " + th.faint().Render(fmt.Sprintf("(%d)", len(refs)))
	lines := []string{header, th.faint().Render(q.Description()), ""}
	if len(refs) == 0 {
		lines = append(lines, th.faint().Render("  No tasks"))
	}
	for i, r := range refs {
		lines = append(lines, th.RenderTask(r, i == selected))
	}

	border := lipgloss.RoundedBorder()
	if focused {
		border = lipgloss.ThickBorder()
	}
	return th.r.NewStyle().
		Border(border).
		BorderForeground(color).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// PanelWidth splits the terminal width between two panels.
func PanelWidth(total int) int {
	w := total/2 - 4
	if w < MinPanelWidth {
		return MinPanelWidth
	}
	return w
}

// RenderBoard renders the 2x2 matrix, then completed tasks if refs include them.
func (th Theme) RenderBoard(refs []Ref, width int) string {
	pw := PanelWidth(width)
	panels := make([]string, len(matrix.All))
	for i, q := range matrix.All {
		panels[i] = th.RenderPanel(q, QuadrantRefs(refs, q), pw, -1, false)
	}
	grid := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, panels[0], panels[1]),
		lipgloss.JoinHorizontal(lipgloss.Top, panels[2], panels[3]),
	)

	var done []string
	for _, r := range refs {
		if r.Task.IsCompleted() {
			done = append(done, th.RenderTask(r, false))
		}
	}
	if len(done) == 0 {
		return grid + "\n"
	}
	return grid + "\n" + th.Title(fmt.Sprintf("Completed (%d)", len(done))) + "\n" + strings.Join(done, "\n") + "\n"
}

// QuadrantRefs returns the open refs of q in order.
func QuadrantRefs(refs []Ref, q matrix.Quadrant) []Ref {
	var out []Ref
	for _, r := range refs {
		if !r.Task.IsCompleted() && r.Quadrant == q {
			out = append(out, r)
		}
	}
	return out
}

// Bar renders a horizontal bar of n filled cells out of width.
func Bar(n, width int) string {
	if n < 0 {
		n = 0
	}
	if n > width {
		n = width
	}
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}

// RenderStats renders the progress card.
func (th Theme) RenderStats(s service.UserStats) string {
	cells := []struct {
		title  string
		value  int
		suffix string
	}{
		{"Current Streak", s.CurrentStreak, "days"},
		{"Longest Streak", s.LongestStreak, "days"},
		{"Total Points", s.TotalPoints, "pts"},
		{"Today Completed", s.TasksCompletedToday, "tasks"},
	}
	var row []string
	for _, c := range cells {
		value := th.style().Bold(true).Render(fmt.Sprint(c.value)) + " " + th.faint().Render(c.suffix)
		row = append(row, th.r.NewStyle().Width(18).Render(value+"\n"+th.faint().Render(c.title)))
	}

	const barWidth = 40
	filled := int(insights.Progress(s.TotalPoints) * barWidth)
	level := insights.Level(s.TotalPoints)
	levelStyle := th.r.NewStyle().Bold(true)
	if s.TotalPoints > 100 {
		levelStyle = levelStyle.Foreground(th.accent)
	}

	body := strings.Join([]string{
		th.Title("Your Progress"),
		"",
		lipgloss.JoinHorizontal(lipgloss.Top, row...),
		"",
		th.faint().Render("Productivity Level ") + levelStyle.Render(level),
		th.r.NewStyle().Foreground(th.accent).Render(Bar(filled, barWidth)),
	}, "\n")
	return th.r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(th.muted).Padding(0, 1).Render(body) + "\n"
}

// RenderInsights renders the weekly insight charts.
func (th Theme) RenderInsights(w insights.Weekly) string {
	const barWidth = 30
	var b strings.Builder
	b.WriteString(th.Title("Weekly Insights") + "\n\n")

	rate := th.style().Bold(true).Render(fmt.Sprintf("%d%%", w.CompletionRate))
	fmt.Fprintf(&b, "Completion rate  %s %s\n", rate, th.faint().Render(fmt.Sprintf("(%d of %d tasks)", w.Completed, w.Total)))
	b.WriteString(th.r.NewStyle().Foreground(th.accent).Render(Bar(w.CompletionRate*barWidth/100, barWidth)) + "\n\n")

	b.WriteString(th.style().Bold(true).Render("Tasks by quadrant") + "\n")
	maxCount := 0
	for _, qc := range w.Quadrants {
		maxCount = max(maxCount, qc.Count)
	}
	for _, qc := range w.Quadrants {
		bar := th.r.NewStyle().Foreground(lipgloss.Color(qc.Color)).Render(Bar(scale(qc.Count, maxCount, barWidth), barWidth))
		fmt.Fprintf(&b, "%-10s %s %d\n", qc.Name, bar, qc.Count)
	}

	b.WriteString("\n" + th.style().Bold(true).Render("Completed per day") + "\n")
	maxDay := 0
	for _, d := range w.Daily {
		maxDay = max(maxDay, d.Completed)
	}
	for _, d := range w.Daily {
		bar := th.r.NewStyle().Foreground(th.success).Render(Bar(scale(d.Completed, maxDay, barWidth), barWidth))
		fmt.Fprintf(&b, "%-10s %s %d\n", d.Day, bar, d.Completed)
	}
	return b.String()
}

func scale(n, maxN, width int) int {
	if maxN <= 0 {
		return 0
	}
	return n * width / maxN
}
