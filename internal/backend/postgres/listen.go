package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"eisen/internal/realtime"
	"eisen/internal/service"
)

// Channel is the notification channel the schema triggers publish on.
const Channel = "eisen_changes"

// notification is the payload of eisen_notify_change.
type notification struct {
	realtime.Change
	UserID string `json:"user_id"`
}

// listener holds a dedicated connection in LISTEN mode.
type listener struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (l *listener) Unsubscribe() error {
	l.once.Do(func() {
		l.cancel()
		<-l.done
	})
	return nil
}

// listen delivers the user's changes to table until the subscription ends.
func (s *Store) listen(ctx context.Context, table, userID string, fn func(realtime.Change)) (service.Subscription, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring listen connection: %w", wrapError(err))
	}
	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", wrapError(err))
	}

	ctx, cancel := context.WithCancel(ctx)
	l := &listener{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		// A cancelled wait leaves the connection unusable; the pool discards it on release.
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && ctx.Err() == nil {
					s.log.Warn("listen stopped", "table", table, "err", err)
				}
				return
			}
			var msg notification
			if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
				s.log.Warn("invalid notification", "err", err)
				continue
			}
			if msg.Table != table || msg.UserID != userID {
				continue
			}
			fn(msg.Change)
		}
	}()
	return l, nil
}

// SubscribeTasks streams changes of the user's task rows.
func (s *Store) SubscribeTasks(ctx context.Context, userID string, events service.TaskEvents) (service.Subscription, error) {
	return s.listen(ctx, "tasks", userID, realtime.TaskHandler(events, s.log))
}

// SubscribeStats streams updates of the user's stats row.
func (s *Store) SubscribeStats(ctx context.Context, userID string, onUpdate func(service.UserStats)) (service.Subscription, error) {
	return s.listen(ctx, "user_stats", userID, realtime.StatsHandler(onUpdate, s.log))
}
