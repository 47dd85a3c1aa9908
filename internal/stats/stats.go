// Package stats keeps the per-user streak and points counters.
//
// Counters live in the remote user_stats row. Updates are read-modify-write
// cycles committed with a conditional write (SwapStats) and retried when a
// concurrent writer changed the row in between, so no increment is lost.
package stats

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"eisen/internal/service"
)

const (
	// PointsPerCompletion is awarded for every completed task.
	PointsPerCompletion = 10

	// MaxAttempts bounds the compare-and-swap retries of one update.
	MaxAttempts = 5

	dateLayout = "2006-01-02"
)

// ErrContention is returned when every attempt lost the race.
var ErrContention = errors.New("stats update kept conflicting")

// Store is the slice of service.Service the tracker needs.
type Store interface {
	GetStats(ctx context.Context, userID string) (service.UserStats, error)
	InsertStats(ctx context.Context, userID string) (service.UserStats, error)
	SwapStats(ctx context.Context, prev, next service.UserStats) (service.UserStats, bool, error)
}

// Day formats t as a calendar date in loc.
func Day(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

func previousDay(day string) string {
	d, err := time.Parse(dateLayout, day)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, -1).Format(dateLayout)
}

// ApplyCompletion returns s after one completion on today (YYYY-MM-DD).
func ApplyCompletion(s service.UserStats, today string) service.UserStats {
	switch s.LastActivityDate {
	case today:
		s.TasksCompletedToday++
	case previousDay(today):
		s.CurrentStreak++
		s.TasksCompletedToday = 1
	default:
		s.CurrentStreak = 1
		s.TasksCompletedToday = 1
	}
	if s.CurrentStreak < 1 {
		s.CurrentStreak = 1
	}
	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.TotalPoints += PointsPerCompletion
	s.LastActivityDate = today
	return s
}

// ApplyRevocation returns s after a completion was undone on today.
// Points and today's count go back down; streaks are left alone.
func ApplyRevocation(s service.UserStats, today string) service.UserStats {
	s.TotalPoints -= PointsPerCompletion
	if s.TotalPoints < 0 {
		s.TotalPoints = 0
	}
	if s.LastActivityDate == today && s.TasksCompletedToday > 0 {
		s.TasksCompletedToday--
	}
	return s
}

// Effective returns the counters as they read on today: a streak whose last
// activity is older than yesterday is broken, and today's count is zero until
// something is completed today.
func Effective(s service.UserStats, today string) service.UserStats {
	if s.LastActivityDate != today {
		s.TasksCompletedToday = 0
		if s.LastActivityDate != previousDay(today) {
			s.CurrentStreak = 0
		}
	}
	return s
}

// Tracker awards and revokes completion points.
type Tracker struct {
	store Store
	loc   *time.Location
	log   *log.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTracker creates a tracker. Day boundaries use loc.
func NewTracker(store Store, loc *time.Location, logger *log.Logger) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Tracker{
		store: store,
		loc:   loc,
		log:   logger,
		Now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
}

// Today returns the tracker's current calendar date.
func (t *Tracker) Today() string {
	return Day(t.Now(), t.loc)
}

// RecordCompletion awards one completion to userID.
func (t *Tracker) RecordCompletion(ctx context.Context, userID string) (service.UserStats, error) {
	return t.update(ctx, userID, "record", ApplyCompletion)
}

// RevokeCompletion takes back one completion from userID.
func (t *Tracker) RevokeCompletion(ctx context.Context, userID string) (service.UserStats, error) {
	return t.update(ctx, userID, "revoke", ApplyRevocation)
}

func (t *Tracker) userLock(userID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[userID] = l
	}
	return l
}

func (t *Tracker) update(ctx context.Context, userID, op string, apply func(service.UserStats, string) service.UserStats) (service.UserStats, error) {
	// Serialize writers in this process; SwapStats guards against the rest.
	l := t.userLock(userID)
	l.Lock()
	defer l.Unlock()

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		current, err := t.load(ctx, userID)
		if err != nil {
			return service.UserStats{}, err
		}

		next := apply(current, t.Today())
		stored, swapped, err := t.store.SwapStats(ctx, current, next)
		if err != nil {
			return service.UserStats{}, fmt.Errorf("write stats: %w", err)
		}
		if swapped {
			t.log.Debug("stats updated", "op", op, "points", stored.TotalPoints, "streak", stored.CurrentStreak, "attempt", attempt)
			return stored, nil
		}
		t.log.Debug("stats changed underneath, retrying", "op", op, "attempt", attempt)
	}
	return service.UserStats{}, ErrContention
}

func (t *Tracker) load(ctx context.Context, userID string) (service.UserStats, error) {
	s, err := t.store.GetStats(ctx, userID)
	if errors.Is(err, service.ErrNotFound) {
		s, err = t.store.InsertStats(ctx, userID)
		if err != nil {
			return service.UserStats{}, fmt.Errorf("create stats: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return service.UserStats{}, fmt.Errorf("read stats: %w", err)
	}
	return s, nil
}
