package realtime

import (
	"encoding/json"

	"github.com/charmbracelet/log"

	"eisen/internal/service"
)

// TaskHandler decodes task row changes and routes them to events.
func TaskHandler(events service.TaskEvents, logger *log.Logger) func(Change) {
	return func(change Change) {
		switch change.Type {
		case Insert, Update:
			var t service.Task
			if err := json.Unmarshal(change.Record, &t); err != nil {
				logger.Warn("invalid task record", "err", err)
				return
			}
			if change.Type == Insert && events.OnInsert != nil {
				events.OnInsert(t)
			}
			if change.Type == Update && events.OnUpdate != nil {
				events.OnUpdate(t)
			}
		case Delete:
			var old struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(change.OldRecord, &old); err != nil || old.ID == "" {
				logger.Warn("invalid deleted task record", "err", err)
				return
			}
			if events.OnDelete != nil {
				events.OnDelete(old.ID)
			}
		}
	}
}

// StatsHandler decodes stats row inserts and updates and passes them to fn.
func StatsHandler(fn func(service.UserStats), logger *log.Logger) func(Change) {
	return func(change Change) {
		if change.Type == Delete || fn == nil {
			return
		}
		var s service.UserStats
		if err := json.Unmarshal(change.Record, &s); err != nil {
			logger.Warn("invalid stats record", "err", err)
			return
		}
		fn(s)
	}
}
