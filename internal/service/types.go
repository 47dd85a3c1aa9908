// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"encoding/json"
	"strings"
	"time"
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusArchived:
		return true
	default:
		return false
	}
}

// Task is a row of the tasks table.
type Task struct {
	ID          string     `json:"id" yaml:"id"`
	UserID      string     `json:"user_id" yaml:"user_id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	IsImportant bool       `json:"is_important" yaml:"is_important"`
	IsUrgent    bool       `json:"is_urgent" yaml:"is_urgent"`
	Status      Status     `json:"status" yaml:"status"`
	DueDate     *time.Time `json:"due_date" yaml:"due_date"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" yaml:"updated_at"`
}

// IsCompleted reports whether the task is completed.
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// UserStats is a row of the user_stats table.
type UserStats struct {
	ID                  string    `json:"id" yaml:"id"`
	UserID              string    `json:"user_id" yaml:"user_id"`
	CurrentStreak       int       `json:"current_streak" yaml:"current_streak"`
	LongestStreak       int       `json:"longest_streak" yaml:"longest_streak"`
	TotalPoints         int       `json:"total_points" yaml:"total_points"`
	TasksCompletedToday int       `json:"tasks_completed_today" yaml:"tasks_completed_today"`
	LastActivityDate    string    `json:"last_activity_date" yaml:"last_activity_date"` // YYYY-MM-DD, empty if never active
	CreatedAt           time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" yaml:"updated_at"`
}

// UnmarshalJSON tolerates a null last_activity_date.
func (s *UserStats) UnmarshalJSON(data []byte) error {
	type plain UserStats
	aux := struct {
		*plain
		LastActivityDate *string `json:"last_activity_date"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.LastActivityDate = ""
	if aux.LastActivityDate != nil {
		// Postgres date columns may come back as full timestamps.
		s.LastActivityDate = strings.SplitN(*aux.LastActivityDate, "T", 2)[0]
	}
	return nil
}

// NewTask holds the caller-supplied fields of a task to insert.
// The backend assigns id, user_id and timestamps.
type NewTask struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsImportant bool       `json:"is_important"`
	IsUrgent    bool       `json:"is_urgent"`
	DueDate     *time.Time `json:"due_date"`
}

// Normalize trims the title and description.
func (n NewTask) Normalize() NewTask {
	n.Title = strings.TrimSpace(n.Title)
	n.Description = strings.TrimSpace(n.Description)
	return n
}

// TaskPatch is a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title        *string
	Description  *string
	IsImportant  *bool
	IsUrgent     *bool
	Status       *Status
	DueDate      *time.Time
	ClearDueDate bool

	// ExpectStatus makes the update conditional on the stored status.
	// It is a precondition, not a column to write.
	ExpectStatus *Status
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// Fields returns the column -> value map of the patch.
func (p TaskPatch) Fields() map[string]any {
	fields := make(map[string]any)
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.IsImportant != nil {
		fields["is_important"] = *p.IsImportant
	}
	if p.IsUrgent != nil {
		fields["is_urgent"] = *p.IsUrgent
	}
	if p.Status != nil {
		fields["status"] = string(*p.Status)
	}
	if p.ClearDueDate {
		fields["due_date"] = nil
	} else if p.DueDate != nil {
		fields["due_date"] = p.DueDate.UTC().Format(time.RFC3339)
	}
	return fields
}

// MarshalJSON encodes only the set fields.
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Fields())
}

// Apply returns t with the patch applied locally.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.IsImportant != nil {
		t.IsImportant = *p.IsImportant
	}
	if p.IsUrgent != nil {
		t.IsUrgent = *p.IsUrgent
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	return t
}

// TaskEvents receives realtime changes for the tasks table.
// Any handler may be nil.
type TaskEvents struct {
	OnInsert func(Task)
	OnUpdate func(Task)
	OnDelete func(id string)

	// OnResync runs after the feed recovered from an outage. Changes made
	// while it was down were not delivered, so the list should be refetched.
	OnResync func()
}

// Subscription is a live change feed.
type Subscription interface {
	// Unsubscribe stops the feed and releases its connection.
	Unsubscribe() error
}
