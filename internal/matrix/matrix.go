// Package matrix sorts tasks into Eisenhower quadrants.
//
// A task's quadrant is a pure function of its importance and urgency flags.
// Moving a task between quadrants rewrites exactly those two flags.
package matrix

import (
	"fmt"
	"strings"

	"eisen/internal/service"
)

// Quadrant is one of the four importance/urgency combinations.
type Quadrant int

const (
	DoNow Quadrant = iota
	Schedule
	Delegate
	Eliminate
)

// All lists the quadrants in board order.
var All = []Quadrant{DoNow, Schedule, Delegate, Eliminate}

// Classify returns the quadrant for the given flags.
func Classify(important, urgent bool) Quadrant {
	switch {
	case important && urgent:
		return DoNow
	case important:
		return Schedule
	case urgent:
		return Delegate
	default:
		return Eliminate
	}
}

// Of returns the quadrant a task belongs to.
func Of(t service.Task) Quadrant {
	return Classify(t.IsImportant, t.IsUrgent)
}

// Flags returns the importance and urgency values of q.
func (q Quadrant) Flags() (important, urgent bool) {
	switch q {
	case DoNow:
		return true, true
	case Schedule:
		return true, false
	case Delegate:
		return false, true
	default:
		return false, false
	}
}

// ID is the drop-target identifier.
func (q Quadrant) ID() string {
	switch q {
	case DoNow:
		return "do-now"
	case Schedule:
		return "schedule"
	case Delegate:
		return "delegate"
	default:
		return "eliminate"
	}
}

// Title is the display name.
func (q Quadrant) Title() string {
	switch q {
	case DoNow:
		return "Do Now"
	case Schedule:
		return "Schedule"
	case Delegate:
		return "Delegate"
	default:
		return "Eliminate"
	}
}

// Description is the one-line handling advice.
func (q Quadrant) Description() string {
	switch q {
	case DoNow:
		return "Important & Urgent - Handle immediately"
	case Schedule:
		return "Important & Not Urgent - Plan ahead"
	case Delegate:
		return "Not Important & Urgent - Delegate if possible"
	default:
		return "Not Important & Not Urgent - Consider removing"
	}
}

// Color is the quadrant's chart color.
func (q Quadrant) Color() string {
	switch q {
	case DoNow:
		return "#EF4444"
	case Schedule:
		return "#3B82F6"
	case Delegate:
		return "#F59E0B"
	default:
		return "#6B7280"
	}
}

// Letter is the task reference prefix used by the CLI.
func (q Quadrant) Letter() rune {
	switch q {
	case DoNow:
		return 'd'
	case Schedule:
		return 's'
	case Delegate:
		return 'g'
	default:
		return 'e'
	}
}

func (q Quadrant) String() string { return q.ID() }

// MarshalText encodes the quadrant as its drop-target id.
func (q Quadrant) MarshalText() ([]byte, error) {
	return []byte(q.ID()), nil
}

// UnmarshalText accepts anything ParseQuadrant does.
func (q *Quadrant) UnmarshalText(b []byte) error {
	parsed, err := ParseQuadrant(string(b))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQuadrant accepts drop-target ids ("do-now"), titles ("Do Now"),
// compact forms ("donow") and reference letters ("d", "s", "g", "e").
func ParseQuadrant(s string) (Quadrant, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(key)
	switch key {
	case "donow", "do", "now", "d", "1":
		return DoNow, nil
	case "schedule", "s", "2":
		return Schedule, nil
	case "delegate", "g", "3":
		return Delegate, nil
	case "eliminate", "e", "4":
		return Eliminate, nil
	}
	return 0, fmt.Errorf("unknown quadrant: %s", s)
}

// QuadrantForLetter maps a reference letter back to its quadrant.
func QuadrantForLetter(r rune) (Quadrant, bool) {
	for _, q := range All {
		if q.Letter() == r {
			return q, true
		}
	}
	return 0, false
}

// Board holds the open tasks of each quadrant.
type Board struct {
	Lists [4][]service.Task
}

// Categorize splits tasks into quadrants, preserving input order.
// Completed tasks are excluded from every quadrant.
func Categorize(tasks []service.Task) Board {
	var b Board
	for _, t := range tasks {
		if t.IsCompleted() {
			continue
		}
		q := Of(t)
		b.Lists[q] = append(b.Lists[q], t)
	}
	return b
}

// Tasks returns the open tasks in q.
func (b Board) Tasks(q Quadrant) []service.Task {
	return b.Lists[q]
}

// Counts returns the number of open tasks per quadrant.
func (b Board) Counts() map[Quadrant]int {
	counts := make(map[Quadrant]int, len(All))
	for _, q := range All {
		counts[q] = len(b.Lists[q])
	}
	return counts
}

// Ordered returns the open tasks in board order: quadrant by quadrant.
func (b Board) Ordered() []service.Task {
	var out []service.Task
	for _, q := range All {
		out = append(out, b.Lists[q]...)
	}
	return out
}

// Move computes the update that drops t onto target.
// changed is false when t already sits in target; no write is needed then.
func Move(t service.Task, target Quadrant) (patch service.TaskPatch, changed bool) {
	important, urgent := target.Flags()
	if t.IsImportant == important && t.IsUrgent == urgent {
		return service.TaskPatch{}, false
	}
	return service.TaskPatch{IsImportant: &important, IsUrgent: &urgent}, true
}
