// Package tasks holds a user's task list in memory and performs the task
// operations against the backend.
//
// Every operation issues exactly one remote task write and only touches the
// local list once that write succeeded. Realtime events are merged into the
// same list by primary key.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"eisen/internal/matrix"
	"eisen/internal/service"
	"eisen/internal/stats"
)

var (
	// ErrTaskNotFound is returned when an id is not in the local list.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTitleRequired is returned when a task would end up without a title.
	ErrTitleRequired = errors.New("title required")

	// ErrNotConfirmed is returned when a delete was declined.
	ErrNotConfirmed = errors.New("deletion not confirmed")
)

// Confirm asks the user to approve deleting t.
type Confirm func(t service.Task) bool

// Store is the in-memory task list of one user.
type Store struct {
	svc     service.Service
	tracker *stats.Tracker
	log     *log.Logger
	userID  string

	mu        sync.RWMutex
	tasks     []service.Task
	loaded    bool
	listeners []func()

	lockMu    sync.Mutex
	taskLocks map[string]*sync.Mutex
}

// New creates a store for the service's signed-in user.
func New(svc service.Service, tracker *stats.Tracker, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{
		svc:     svc,
		tracker: tracker,
		log:     logger,
		userID:  svc.UserID(),
	}
}

// UserID returns the owner of the list.
func (s *Store) UserID() string { return s.userID }

// OnChange registers fn to run after every change to the list.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) notify() {
	s.mu.RLock()
	listeners := append([]func(){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn()
	}
}

// Load fetches the list from the backend. On failure the previous list is kept.
func (s *Store) Load(ctx context.Context) error {
	list, err := s.svc.ListTasks(ctx, s.userID)
	if err != nil {
		s.log.Error("error fetching tasks", "err", err)
		return fmt.Errorf("fetch tasks: %w", err)
	}
	s.mu.Lock()
	s.tasks = list
	s.loaded = true
	s.sortLocked()
	s.mu.Unlock()
	s.notify()
	return nil
}

// Loaded reports whether a Load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Tasks returns a copy of the list, newest first.
func (s *Store) Tasks() []service.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]service.Task(nil), s.tasks...)
}

// Find looks a task up by id.
func (s *Store) Find(id string) (service.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return service.Task{}, false
}

// Board categorizes the current list.
func (s *Store) Board() matrix.Board {
	return matrix.Categorize(s.Tasks())
}

// Create inserts a task. The title must not be blank after trimming.
func (s *Store) Create(ctx context.Context, nt service.NewTask) (service.Task, error) {
	nt = nt.Normalize()
	if nt.Title == "" {
		return service.Task{}, ErrTitleRequired
	}
	t, err := s.svc.InsertTask(ctx, nt)
	if err != nil {
		s.log.Error("error creating task", "title", nt.Title, "err", err)
		return service.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.upsert(t)
	return t, nil
}

// Update applies patch to the task with the given id.
func (s *Store) Update(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	t, err := s.svc.UpdateTask(ctx, id, patch)
	if err != nil {
		s.log.Error("error updating task", "id", id, "err", err)
		return service.Task{}, fmt.Errorf("update task: %w", err)
	}
	s.upsert(t)
	return t, nil
}

// Edit changes title and description. A blank title keeps the current one.
func (s *Store) Edit(ctx context.Context, id, title, description string) (service.Task, error) {
	cur, ok := s.Find(id)
	if !ok {
		return service.Task{}, ErrTaskNotFound
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = cur.Title
	}
	description = strings.TrimSpace(description)
	return s.Update(ctx, id, service.TaskPatch{Title: &title, Description: &description})
}

// Delete removes a task after confirm approves it. A declined confirmation
// issues no request and returns ErrNotConfirmed.
func (s *Store) Delete(ctx context.Context, id string, confirm Confirm) error {
	t, ok := s.Find(id)
	if !ok {
		return ErrTaskNotFound
	}
	if confirm == nil || !confirm(t) {
		return ErrNotConfirmed
	}
	if err := s.svc.DeleteTask(ctx, id); err != nil {
		s.log.Error("error deleting task", "id", id, "err", err)
		return fmt.Errorf("delete task: %w", err)
	}
	s.remove(id)
	return nil
}

// Complete toggles a task between completed and pending.
// Completing awards points; reverting a completed task takes them back, so
// toggling back and forth never accumulates points. Calls for the same task
// run one at a time, and the status write is conditional on the status read
// here, so a transition made elsewhere in the meantime awards nothing.
func (s *Store) Complete(ctx context.Context, id string) (service.Task, error) {
	lock := s.taskLock(id)
	lock.Lock()
	defer lock.Unlock()

	cur, ok := s.Find(id)
	if !ok {
		return service.Task{}, ErrTaskNotFound
	}
	next := service.StatusCompleted
	if cur.IsCompleted() {
		next = service.StatusPending
	}
	prev := cur.Status

	updated, err := s.Update(ctx, id, service.TaskPatch{Status: &next, ExpectStatus: &prev})
	if errors.Is(err, service.ErrConflict) {
		// Another client moved the task first; pick up its state.
		if lerr := s.Load(ctx); lerr != nil {
			s.log.Warn("could not refresh tasks after conflict", "err", lerr)
		}
		return service.Task{}, err
	}
	if err != nil {
		return service.Task{}, err
	}

	if s.tracker != nil {
		var serr error
		switch {
		case updated.IsCompleted() && !cur.IsCompleted():
			_, serr = s.tracker.RecordCompletion(ctx, s.userID)
		case !updated.IsCompleted() && cur.IsCompleted():
			_, serr = s.tracker.RevokeCompletion(ctx, s.userID)
		}
		if serr != nil {
			// The task write already succeeded; the stats miss is only logged.
			s.log.Error("error updating user stats", "id", id, "err", serr)
		}
	}
	return updated, nil
}

func (s *Store) taskLock(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	if s.taskLocks == nil {
		s.taskLocks = make(map[string]*sync.Mutex)
	}
	m, ok := s.taskLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.taskLocks[id] = m
	}
	return m
}

// Move drops a task onto a quadrant. No request is made when the task is
// already there; moved reports whether a write happened.
func (s *Store) Move(ctx context.Context, id string, target matrix.Quadrant) (t service.Task, moved bool, err error) {
	cur, ok := s.Find(id)
	if !ok {
		return service.Task{}, false, ErrTaskNotFound
	}
	patch, changed := matrix.Move(cur, target)
	if !changed {
		return cur, false, nil
	}
	t, err = s.Update(ctx, id, patch)
	if err != nil {
		return service.Task{}, false, err
	}
	return t, true, nil
}

// Watch subscribes to realtime task changes and merges them into the list.
// After the feed reconnects the whole list is refetched.
// The caller must Unsubscribe when done.
func (s *Store) Watch(ctx context.Context) (service.Subscription, error) {
	sub, err := s.svc.SubscribeTasks(ctx, s.userID, service.TaskEvents{
		OnInsert: s.ApplyInsert,
		OnUpdate: s.ApplyUpdate,
		OnDelete: s.ApplyDelete,
		OnResync: func() {
			if err := s.Load(ctx); err != nil {
				s.log.Warn("could not refresh tasks after reconnect", "err", err)
			}
		},
	})
	if err != nil {
		s.log.Error("error subscribing to task changes", "err", err)
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return sub, nil
}

// ApplyInsert merges a pushed insert. An id already present is replaced.
func (s *Store) ApplyInsert(t service.Task) {
	if t.UserID != "" && t.UserID != s.userID {
		return
	}
	s.upsert(t)
}

// ApplyUpdate merges a pushed update. Unknown ids are added.
func (s *Store) ApplyUpdate(t service.Task) {
	if t.UserID != "" && t.UserID != s.userID {
		return
	}
	s.upsert(t)
}

// ApplyDelete drops a pushed delete.
func (s *Store) ApplyDelete(id string) {
	s.remove(id)
}

func (s *Store) upsert(t service.Task) {
	s.mu.Lock()
	replaced := false
	for i := range s.tasks {
		if s.tasks[i].ID == t.ID {
			s.tasks[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		s.tasks = append(s.tasks, t)
	}
	s.sortLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	removed := false
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			removed = true
			break
		}
	}
	s.mu.Unlock()
	if removed {
		s.notify()
	}
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.tasks, func(i, j int) bool {
		return s.tasks[i].CreatedAt.After(s.tasks[j].CreatedAt)
	})
}
