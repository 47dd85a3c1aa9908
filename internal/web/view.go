package web

import (
	"time"

	"eisen/internal/output"
)

type taskCard struct {
	Ref         string
	ID          string
	Title       string
	Description string
	Badges      []string
	Due         string
	Created     string
	Completed   bool
}

type panel struct {
	ID          string
	Title       string
	Description string
	Color       string
	Tasks       []taskCard
}

type pageBoard struct {
	Panels    []panel
	Completed []taskCard
}

func newTaskCard(r output.Ref, loc *time.Location) taskCard {
	card := taskCard{
		Ref:         r.Ref,
		ID:          r.Task.ID,
		Title:       r.Task.Title,
		Description: r.Task.Description,
		Badges:      output.Badges(r.Task),
		Completed:   r.Task.IsCompleted(),
	}
	if card.Title == "" {
		card.Title = "(untitled)"
	}
	if r.Task.DueDate != nil {
		card.Due = r.Task.DueDate.In(loc).Format(output.DueLayout)
	}
	if !r.Task.CreatedAt.IsZero() {
		card.Created = r.Task.CreatedAt.In(loc).Format(output.CreatedLayout)
	}
	return card
}

func newPageBoard(b Board, loc *time.Location) pageBoard {
	var pb pageBoard
	for _, q := range b.Quadrants {
		p := panel{ID: q.ID, Title: q.Title, Description: q.Description, Color: q.Color}
		for _, r := range q.Tasks {
			p.Tasks = append(p.Tasks, newTaskCard(r, loc))
		}
		pb.Panels = append(pb.Panels, p)
	}
	for _, r := range b.Completed {
		pb.Completed = append(pb.Completed, newTaskCard(r, loc))
	}
	return pb
}
