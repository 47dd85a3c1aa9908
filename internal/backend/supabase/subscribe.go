package supabase

import (
	"context"

	"eisen/internal/realtime"
	"eisen/internal/service"
)

func (c *Client) realtimeOptions() realtime.Options {
	return realtime.Options{
		URL:    c.baseURL,
		APIKey: c.apiKey,
		Token: func() (string, error) {
			tok, err := c.tokens.Token()
			if err != nil {
				return "", wrapError(err)
			}
			return tok.AccessToken, nil
		},
		Logger: c.log,
	}
}

// SubscribeTasks streams changes of the user's task rows.
func (c *Client) SubscribeTasks(ctx context.Context, userID string, events service.TaskEvents) (service.Subscription, error) {
	opts := c.realtimeOptions()
	opts.OnReconnect = events.OnResync
	ch, err := realtime.Subscribe(ctx, opts, tasksTable, "user_id=eq."+userID, realtime.TaskHandler(events, c.log))
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// SubscribeStats streams updates of the user's stats row.
func (c *Client) SubscribeStats(ctx context.Context, userID string, onUpdate func(service.UserStats)) (service.Subscription, error) {
	ch, err := realtime.Subscribe(ctx, c.realtimeOptions(), statsTable, "user_id=eq."+userID, realtime.StatsHandler(onUpdate, c.log))
	if err != nil {
		return nil, err
	}
	return ch, nil
}
