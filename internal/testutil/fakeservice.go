// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eisen/internal/service"
)

// DefaultUserID is the user the fake service signs in as.
const DefaultUserID = "00000000-0000-4000-8000-000000000001"

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu    sync.RWMutex
	user  string
	tasks []service.Task
	stats map[string]service.UserStats
	subs  []*fakeSub
	clock time.Time

	// Error injection for testing
	ListTasksErr   error
	InsertTaskErr  error
	UpdateTaskErr  error
	DeleteTaskErr  error
	GetStatsErr    error
	SwapStatsErr   error
	SubscribeErr   error
	BeforeSwap     func() // runs inside SwapStats before the comparison, without the lock held

	// Call counters
	UpdateCalls int
	DeleteCalls int
	SwapCalls   int
}

// NewFakeService creates a new FakeService with no tasks and no stats row.
func NewFakeService() *FakeService {
	return &FakeService{
		user:  DefaultUserID,
		stats: make(map[string]service.UserStats),
		clock: time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC),
	}
}

// tick returns a strictly increasing timestamp so created_at ordering is stable.
func (f *FakeService) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

// AddTask seeds a task and returns it. Empty fields get defaults.
func (f *FakeService) AddTask(t service.Task) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.UserID == "" {
		t.UserID = f.user
	}
	if t.Status == "" {
		t.Status = service.StatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = f.tick()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	f.tasks = append(f.tasks, t)
	return t
}

// SetStats seeds the stats row for a user.
func (f *FakeService) SetStats(s service.UserStats) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s.UserID == "" {
		s.UserID = f.user
	}
	f.stats[s.UserID] = s
}

// Stats returns the stored stats row (zero value if none).
func (f *FakeService) Stats(userID string) service.UserStats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stats[userID]
}

// StoredTasks returns a copy of every stored task in insertion order.
func (f *FakeService) StoredTasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]service.Task(nil), f.tasks...)
}

// UserID implements service.Service.
func (f *FakeService) UserID() string { return f.user }

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context, userID string) ([]service.Task, error) {
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var result []service.Task
	for _, t := range f.tasks {
		if t.UserID == userID {
			result = append(result, t)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// InsertTask implements service.Service.
func (f *FakeService) InsertTask(ctx context.Context, nt service.NewTask) (service.Task, error) {
	if f.InsertTaskErr != nil {
		return service.Task{}, f.InsertTaskErr
	}
	f.mu.Lock()
	now := f.tick()
	t := service.Task{
		ID:          uuid.NewString(),
		UserID:      f.user,
		Title:       nt.Title,
		Description: nt.Description,
		IsImportant: nt.IsImportant,
		IsUrgent:    nt.IsUrgent,
		Status:      service.StatusPending,
		DueDate:     nt.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.tasks = append(f.tasks, t)
	subs := append([]*fakeSub(nil), f.subs...)
	f.mu.Unlock()

	for _, s := range subs {
		s.insert(t)
	}
	return t, nil
}

// UpdateTask implements service.Service.
func (f *FakeService) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	f.mu.Lock()
	f.UpdateCalls++
	if f.UpdateTaskErr != nil {
		f.mu.Unlock()
		return service.Task{}, f.UpdateTaskErr
	}
	for i, t := range f.tasks {
		if t.ID == id {
			if patch.ExpectStatus != nil && t.Status != *patch.ExpectStatus {
				f.mu.Unlock()
				return service.Task{}, fmt.Errorf("update task %s: %w", id, service.ErrConflict)
			}
			t = patch.Apply(t)
			t.UpdatedAt = f.tick()
			f.tasks[i] = t
			subs := append([]*fakeSub(nil), f.subs...)
			f.mu.Unlock()
			for _, s := range subs {
				s.update(t)
			}
			return t, nil
		}
	}
	f.mu.Unlock()
	return service.Task{}, fmt.Errorf("update task %s: %w", id, service.ErrNotFound)
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id string) error {
	f.mu.Lock()
	f.DeleteCalls++
	if f.DeleteTaskErr != nil {
		f.mu.Unlock()
		return f.DeleteTaskErr
	}
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			subs := append([]*fakeSub(nil), f.subs...)
			f.mu.Unlock()
			for _, s := range subs {
				s.delete(id)
			}
			return nil
		}
	}
	f.mu.Unlock()
	return fmt.Errorf("delete task %s: %w", id, service.ErrNotFound)
}

// GetStats implements service.Service.
func (f *FakeService) GetStats(ctx context.Context, userID string) (service.UserStats, error) {
	if f.GetStatsErr != nil {
		return service.UserStats{}, f.GetStatsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.stats[userID]
	if !ok {
		return service.UserStats{}, service.ErrNotFound
	}
	return s, nil
}

// InsertStats implements service.Service.
func (f *FakeService) InsertStats(ctx context.Context, userID string) (service.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.stats[userID]; ok {
		return s, nil
	}
	now := f.tick()
	s := service.UserStats{ID: uuid.NewString(), UserID: userID, CreatedAt: now, UpdatedAt: now}
	f.stats[userID] = s
	return s, nil
}

// SwapStats implements service.Service with the same compare semantics as the
// real backends: the write applies only if the counters still match prev.
func (f *FakeService) SwapStats(ctx context.Context, prev, next service.UserStats) (service.UserStats, bool, error) {
	if f.BeforeSwap != nil {
		f.BeforeSwap()
	}
	f.mu.Lock()
	f.SwapCalls++
	if f.SwapStatsErr != nil {
		f.mu.Unlock()
		return service.UserStats{}, false, f.SwapStatsErr
	}
	cur, ok := f.stats[prev.UserID]
	if !ok || !sameCounters(cur, prev) {
		f.mu.Unlock()
		return service.UserStats{}, false, nil
	}
	next.ID = cur.ID
	next.UserID = cur.UserID
	next.CreatedAt = cur.CreatedAt
	next.UpdatedAt = f.tick()
	f.stats[prev.UserID] = next
	subs := append([]*fakeSub(nil), f.subs...)
	f.mu.Unlock()

	for _, s := range subs {
		s.stats(next)
	}
	return next, true, nil
}

func sameCounters(a, b service.UserStats) bool {
	return a.CurrentStreak == b.CurrentStreak &&
		a.LongestStreak == b.LongestStreak &&
		a.TotalPoints == b.TotalPoints &&
		a.TasksCompletedToday == b.TasksCompletedToday &&
		a.LastActivityDate == b.LastActivityDate
}

// SubscribeTasks implements service.Service. Events are delivered synchronously.
func (f *FakeService) SubscribeTasks(ctx context.Context, userID string, events service.TaskEvents) (service.Subscription, error) {
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	return f.addSub(&fakeSub{tasks: events}), nil
}

// SubscribeStats implements service.Service.
func (f *FakeService) SubscribeStats(ctx context.Context, userID string, onUpdate func(service.UserStats)) (service.Subscription, error) {
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	return f.addSub(&fakeSub{onStats: onUpdate}), nil
}

// Subscribers returns the number of live subscriptions.
func (f *FakeService) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// EmitInsert pushes an insert event as if another client had written it.
func (f *FakeService) EmitInsert(t service.Task) {
	f.mu.Lock()
	f.tasks = append(f.tasks, t)
	subs := append([]*fakeSub(nil), f.subs...)
	f.mu.Unlock()
	for _, s := range subs {
		s.insert(t)
	}
}

// EmitResync tells every task subscriber that the feed reconnected.
func (f *FakeService) EmitResync() {
	f.mu.RLock()
	subs := append([]*fakeSub(nil), f.subs...)
	f.mu.RUnlock()
	for _, s := range subs {
		if s.tasks.OnResync != nil {
			s.tasks.OnResync()
		}
	}
}

func (f *FakeService) addSub(s *fakeSub) *fakeSub {
	f.mu.Lock()
	defer f.mu.Unlock()
	s.owner = f
	f.subs = append(f.subs, s)
	return s
}

type fakeSub struct {
	owner   *FakeService
	tasks   service.TaskEvents
	onStats func(service.UserStats)
}

func (s *fakeSub) insert(t service.Task) {
	if s.tasks.OnInsert != nil {
		s.tasks.OnInsert(t)
	}
}

func (s *fakeSub) update(t service.Task) {
	if s.tasks.OnUpdate != nil {
		s.tasks.OnUpdate(t)
	}
}

func (s *fakeSub) delete(id string) {
	if s.tasks.OnDelete != nil {
		s.tasks.OnDelete(id)
	}
}

func (s *fakeSub) stats(st service.UserStats) {
	if s.onStats != nil {
		s.onStats(st)
	}
}

// Unsubscribe implements service.Subscription.
func (s *fakeSub) Unsubscribe() error {
	f := s.owner
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, sub := range f.subs {
		if sub == s {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return nil
		}
	}
	return nil
}
