package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"eisen/internal/matrix"
	"eisen/internal/output"
	"eisen/internal/prefs"
	"eisen/internal/service"
	"eisen/internal/tasks"
)

// Options wires the interactive board.
type Options struct {
	Store    *tasks.Store
	Prefs    *prefs.Store // optional; t is disabled without it
	Theme    prefs.Prefs
	Location *time.Location
	Logger   *log.Logger
	Output   io.Writer
}

type boardModel struct {
	ctx   context.Context
	store *tasks.Store
	prefs *prefs.Store
	out   io.Writer
	loc   *time.Location
	log   *log.Logger
	theme output.Theme

	width  int
	height int

	focus    matrix.Quadrant
	selected [4]int

	// confirming holds the task awaiting a y/n delete answer.
	confirming *service.Task

	lastLog string
}

// changedMsg is sent whenever the store's list changes.
type changedMsg struct{}

type opMsg struct {
	text string
	err  error
}

type themeMsg struct {
	prefs prefs.Prefs
	err   error
}

func newBoardModel(ctx context.Context, opts Options) boardModel {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Theme.Theme == "" {
		opts.Theme.Theme = prefs.ThemeLight
	}
	if opts.Theme.AccentColor == "" {
		opts.Theme.AccentColor = prefs.DefaultAccent
	}
	return boardModel{
		ctx:     ctx,
		store:   opts.Store,
		prefs:   opts.Prefs,
		out:     opts.Output,
		loc:     opts.Location,
		log:     opts.Logger,
		theme:   output.NewTheme(opts.Output, opts.Theme, opts.Location),
		width:   100,
		lastLog: "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return nil
}

// refs returns the open tasks of q in board order.
func (m boardModel) refs(q matrix.Quadrant) []output.Ref {
	return output.QuadrantRefs(output.Number(m.store.Tasks(), false), q)
}

// current returns the highlighted task, if any.
func (m boardModel) current() (output.Ref, bool) {
	refs := m.refs(m.focus)
	i := m.selected[m.focus]
	if i < 0 || i >= len(refs) {
		return output.Ref{}, false
	}
	return refs[i], true
}

// clamp keeps every selection inside its panel after the list changed.
func (m *boardModel) clamp() {
	for _, q := range matrix.All {
		n := len(m.refs(q))
		switch {
		case n == 0:
			m.selected[q] = 0
		case m.selected[q] >= n:
			m.selected[q] = n - 1
		}
	}
}

func (m boardModel) completeCmd(t service.Task) tea.Cmd {
	return func() tea.Msg {
		updated, err := m.store.Complete(m.ctx, t.ID)
		if err != nil {
			return opMsg{err: fmt.Errorf("complete failed: %w", err)}
		}
		if updated.IsCompleted() {
			return opMsg{text: fmt.Sprintf("Completed %q.", t.Title)}
		}
		return opMsg{text: fmt.Sprintf("Reopened %q.", t.Title)}
	}
}

func (m boardModel) moveCmd(t service.Task, q matrix.Quadrant) tea.Cmd {
	return func() tea.Msg {
		_, moved, err := m.store.Move(m.ctx, t.ID, q)
		if err != nil {
			return opMsg{err: fmt.Errorf("move failed: %w", err)}
		}
		if !moved {
			return opMsg{text: fmt.Sprintf("Already in %s.", q.Title())}
		}
		return opMsg{text: fmt.Sprintf("Moved %q to %s.", t.Title, q.Title())}
	}
}

func (m boardModel) deleteCmd(t service.Task) tea.Cmd {
	return func() tea.Msg {
		err := m.store.Delete(m.ctx, t.ID, func(service.Task) bool { return true })
		if err != nil {
			return opMsg{err: fmt.Errorf("delete failed: %w", err)}
		}
		return opMsg{text: fmt.Sprintf("Deleted %q.", t.Title)}
	}
}

func (m boardModel) reloadCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.store.Load(m.ctx); err != nil {
			return opMsg{err: fmt.Errorf("refresh failed: %w", err)}
		}
		return opMsg{text: fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))}
	}
}

func (m boardModel) toggleThemeCmd() tea.Cmd {
	return func() tea.Msg {
		p, err := m.prefs.ToggleTheme(m.ctx)
		return themeMsg{prefs: p, err: err}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case changedMsg:
		m.clamp()
		return m, nil
	case opMsg:
		if msg.err != nil {
			m.log.Error("board operation failed", "err", msg.err)
			m.lastLog = msg.err.Error()
		} else {
			m.lastLog = msg.text
		}
		m.clamp()
		return m, nil
	case themeMsg:
		if msg.err != nil {
			m.lastLog = "Theme change failed: " + msg.err.Error()
			return m, nil
		}
		m.theme = output.NewTheme(m.out, msg.prefs, m.loc)
		m.lastLog = "Theme: " + msg.prefs.Theme
		return m, nil
	case tea.KeyMsg:
		if m.confirming != nil {
			t := *m.confirming
			m.confirming = nil
			if msg.String() == "y" {
				m.lastLog = fmt.Sprintf("Deleting %q…", t.Title)
				return m, m.deleteCmd(t)
			}
			m.lastLog = "Delete cancelled."
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m boardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r":
		m.lastLog = "Refreshing…"
		return m, m.reloadCmd()
	case "left", "h":
		if m.focus == matrix.Schedule || m.focus == matrix.Eliminate {
			m.focus--
		}
	case "right", "l":
		if m.focus == matrix.DoNow || m.focus == matrix.Delegate {
			m.focus++
		}
	case "tab":
		m.focus = (m.focus + 1) % matrix.Quadrant(len(matrix.All))
	case "up", "k":
		if m.selected[m.focus] > 0 {
			m.selected[m.focus]--
		} else if m.focus >= matrix.Delegate {
			m.focus -= 2
		}
	case "down", "j":
		if m.selected[m.focus] < len(m.refs(m.focus))-1 {
			m.selected[m.focus]++
		} else if m.focus <= matrix.Schedule {
			m.focus += 2
		}
	case " ", "enter":
		if r, ok := m.current(); ok {
			return m, m.completeCmd(r.Task)
		}
	case "1", "2", "3", "4":
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		q, _ := matrix.ParseQuadrant(key)
		return m, m.moveCmd(r.Task, q)
	case "d", "delete":
		if r, ok := m.current(); ok {
			t := r.Task
			m.confirming = &t
		}
	case "t":
		if m.prefs == nil {
			m.lastLog = "Preferences are not available."
			return m, nil
		}
		return m, m.toggleThemeCmd()
	}
	return m, nil
}

func (m boardModel) View() string {
	pw := output.PanelWidth(m.width)
	panels := make([]string, len(matrix.All))
	for i, q := range matrix.All {
		sel := -1
		if q == m.focus {
			sel = m.selected[q]
		}
		panels[i] = m.theme.RenderPanel(q, m.refs(q), pw, sel, q == m.focus)
	}
	grid := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, panels[0], panels[1]),
		lipgloss.JoinHorizontal(lipgloss.Top, panels[2], panels[3]),
	)

	status := m.lastLog
	if m.confirming != nil {
		status = fmt.Sprintf("Delete %q? [y/N]", m.confirming.Title)
	}

	var b strings.Builder
	b.WriteString(m.theme.Title("Eisenhower Matrix"))
	b.WriteString("\n")
	b.WriteString(grid)
	b.WriteString("\n")
	b.WriteString(status)
	b.WriteString("\n")
	b.WriteString(m.theme.Muted("←→↑↓/hjkl move • space done • 1-4 quadrant • d delete • t theme • r refresh • q quit"))
	b.WriteString("\n")
	return b.String()
}
