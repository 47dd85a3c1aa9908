// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the session is missing, expired or revoked.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTimeout is returned when a backend call exceeds its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrConflict is returned when a conditional update matched no row
	// because the task no longer has the expected status.
	ErrConflict = errors.New("task changed concurrently")
)

// Service defines the interface for task backend operations.
// All table store calls go through this interface.
// Commands never import a backend package directly.
type Service interface {
	// UserID returns the id of the signed-in user.
	UserID() string

	// ListTasks returns the user's tasks ordered by created_at descending.
	ListTasks(ctx context.Context, userID string) ([]Task, error)

	// InsertTask creates a task owned by the session user.
	// The backend assigns id and timestamps.
	InsertTask(ctx context.Context, task NewTask) (Task, error)

	// UpdateTask applies a partial update and returns the stored row.
	// When patch.ExpectStatus is set the write only happens if the stored
	// status still equals it; otherwise ErrConflict is returned.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (Task, error)

	// DeleteTask deletes a task by id.
	DeleteTask(ctx context.Context, id string) error

	// GetStats returns the user's stats row, or ErrNotFound.
	GetStats(ctx context.Context, userID string) (UserStats, error)

	// InsertStats creates a zeroed stats row for the user.
	InsertStats(ctx context.Context, userID string) (UserStats, error)

	// SwapStats writes next only if the stored counters still equal prev.
	// swapped is false when another writer got there first.
	SwapStats(ctx context.Context, prev, next UserStats) (stored UserStats, swapped bool, err error)

	// SubscribeTasks streams inserts, updates and deletes of the user's tasks.
	SubscribeTasks(ctx context.Context, userID string, events TaskEvents) (Subscription, error)

	// SubscribeStats streams updates of the user's stats row.
	SubscribeStats(ctx context.Context, userID string, onUpdate func(UserStats)) (Subscription, error)
}
