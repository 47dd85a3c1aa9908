// Package realtime subscribes to row changes over the Supabase Realtime
// websocket, which speaks the Phoenix channel protocol.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/net/websocket"
)

const (
	// DefaultHeartbeat is how often the socket is kept alive.
	DefaultHeartbeat = 25 * time.Second

	// JoinTimeout bounds the wait for the join reply.
	JoinTimeout = 10 * time.Second

	// Schema is the Postgres schema the tables live in.
	Schema = "public"

	protocolVersion = "1.0.0"
)

// Phoenix events.
const (
	eventJoin      = "phx_join"
	eventLeave     = "phx_leave"
	eventReply     = "phx_reply"
	eventError     = "phx_error"
	eventClose     = "phx_close"
	eventHeartbeat = "heartbeat"
	eventToken     = "access_token"
	eventChanges   = "postgres_changes"
	eventSystem    = "system"
)

// Change types.
const (
	Insert = "INSERT"
	Update = "UPDATE"
	Delete = "DELETE"
)

// Message is one frame of the Phoenix protocol.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref,omitempty"`
}

// Change is a row change pushed by the server.
type Change struct {
	Type      string          `json:"type"`
	Schema    string          `json:"schema"`
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record"`
	OldRecord json.RawMessage `json:"old_record"`
}

// Options configures a channel.
type Options struct {
	// URL is the project URL (http or https). The websocket endpoint is derived from it.
	URL string

	// APIKey is the project's anon key.
	APIKey string

	// Token returns the current access token. It is consulted on join and
	// on every heartbeat so refreshed tokens reach the server.
	Token func() (string, error)

	// Heartbeat overrides DefaultHeartbeat.
	Heartbeat time.Duration

	// Logger receives connection diagnostics.
	Logger *log.Logger

	// OnReconnect runs after the channel rejoined following a lost
	// connection. Changes pushed during the outage are not replayed.
	OnReconnect func()
}

// Channel is a joined realtime channel for one table.
type Channel struct {
	opts    Options
	topic   string
	table   string
	filter  string
	handler func(Change)
	log     *log.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	ref   int
	token string

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Subscribe opens a socket, joins a channel for table and starts delivering
// changes matching filter (e.g. "user_id=eq.<id>") to handler. The channel
// stays open until Unsubscribe is called or ctx is cancelled.
func Subscribe(ctx context.Context, opts Options, table, filter string, handler func(Change)) (*Channel, error) {
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	c := &Channel{
		opts:    opts,
		topic:   "realtime:" + table,
		table:   table,
		filter:  filter,
		handler: handler,
		log:     logger.With("channel", table),
		done:    make(chan struct{}),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.heartbeatLoop()

	go func() {
		select {
		case <-ctx.Done():
			c.Unsubscribe()
		case <-c.done:
		}
	}()
	return c, nil
}

// Endpoint returns the websocket URL for a project URL.
func Endpoint(projectURL, apiKey string) (string, error) {
	u, err := url.Parse(strings.TrimRight(projectURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid project url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("invalid project url scheme: %q", u.Scheme)
	}
	u.Path = "/realtime/v1/websocket"
	q := url.Values{}
	q.Set("apikey", apiKey)
	q.Set("vsn", protocolVersion)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Channel) connect(ctx context.Context) error {
	endpoint, err := Endpoint(c.opts.URL, c.opts.APIKey)
	if err != nil {
		return err
	}
	wsCfg, err := websocket.NewConfig(endpoint, c.opts.URL)
	if err != nil {
		return fmt.Errorf("realtime config: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, JoinTimeout)
	defer cancel()

	conn, err := wsCfg.DialContext(dialCtx)
	if err != nil {
		return fmt.Errorf("realtime dial: %w", err)
	}

	token, err := c.currentToken()
	if err != nil {
		conn.Close()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.token = token
	c.mu.Unlock()

	ref, err := c.send(c.topic, eventJoin, c.joinPayload(token))
	if err != nil {
		conn.Close()
		return fmt.Errorf("realtime join: %w", err)
	}
	if err := c.awaitReply(conn, ref); err != nil {
		conn.Close()
		return err
	}
	c.log.Debug("joined", "topic", c.topic, "filter", c.filter)
	return nil
}

func (c *Channel) joinPayload(token string) map[string]any {
	return map[string]any{
		"config": map[string]any{
			"broadcast": map[string]any{"self": false},
			"presence":  map[string]any{"key": ""},
			"postgres_changes": []map[string]any{{
				"event":  "*",
				"schema": Schema,
				"table":  c.table,
				"filter": c.filter,
			}},
		},
		"access_token": token,
	}
}

type reply struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

// awaitReply reads frames until the reply to ref arrives.
func (c *Channel) awaitReply(conn *websocket.Conn, ref string) error {
	conn.SetReadDeadline(time.Now().Add(JoinTimeout))
	defer conn.SetReadDeadline(time.Time{})

	for {
		var msg Message
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return fmt.Errorf("realtime join: %w", err)
		}
		if msg.Event != eventReply || msg.Ref != ref {
			continue
		}
		var r reply
		if err := json.Unmarshal(msg.Payload, &r); err != nil {
			return fmt.Errorf("realtime join: invalid reply: %w", err)
		}
		if r.Status != "ok" {
			return fmt.Errorf("realtime join rejected: %s", strings.TrimSpace(string(r.Response)))
		}
		return nil
	}
}

func (c *Channel) currentToken() (string, error) {
	if c.opts.Token == nil {
		return c.opts.APIKey, nil
	}
	token, err := c.opts.Token()
	if err != nil {
		return "", fmt.Errorf("realtime token: %w", err)
	}
	return token, nil
}

// send writes one frame and returns its ref.
func (c *Channel) send(topic, event string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return "", errors.New("realtime: not connected")
	}
	c.ref++
	ref := strconv.Itoa(c.ref)
	msg := Message{Topic: topic, Event: event, Payload: data, Ref: ref}
	return ref, websocket.JSON.Send(c.conn, msg)
}

func (c *Channel) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Channel) readLoop() {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		var msg Message
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			if c.closed() {
				return
			}
			c.log.Warn("realtime connection lost", "err", err)
			if !c.reconnect() {
				return
			}
			if c.opts.OnReconnect != nil {
				c.opts.OnReconnect()
			}
			continue
		}
		c.dispatch(msg)
	}
}

func (c *Channel) dispatch(msg Message) {
	switch msg.Event {
	case eventChanges:
		var p struct {
			Data Change `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			c.log.Warn("invalid change payload", "err", err)
			return
		}
		if c.handler != nil {
			c.handler(p.Data)
		}
	case eventError, eventClose:
		c.log.Warn("channel event", "event", msg.Event, "payload", string(msg.Payload))
	case eventSystem, eventReply:
		c.log.Debug("channel event", "event", msg.Event, "payload", string(msg.Payload))
	}
}

// reconnect redials with backoff until it succeeds or the channel is closed.
func (c *Channel) reconnect() bool {
	backoff := []time.Duration{time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}
	for attempt := 0; ; attempt++ {
		wait := backoff[min(attempt, len(backoff)-1)]
		select {
		case <-c.done:
			return false
		case <-time.After(wait):
		}

		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
		}
		c.mu.Unlock()

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-c.done:
				cancel()
			case <-ctx.Done():
			}
		}()
		err := c.connect(ctx)
		cancel()
		if err == nil && c.closed() {
			c.mu.Lock()
			c.conn.Close()
			c.mu.Unlock()
			return false
		}
		if err == nil {
			c.log.Info("realtime reconnected")
			return true
		}
		c.log.Warn("realtime reconnect failed", "attempt", attempt+1, "err", err)
	}
}

func (c *Channel) heartbeatLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if _, err := c.send("phoenix", eventHeartbeat, map[string]any{}); err != nil {
				c.log.Debug("heartbeat failed", "err", err)
				continue
			}
			c.refreshToken()
		}
	}
}

// refreshToken pushes a new access token to the channel when it changed.
func (c *Channel) refreshToken() {
	token, err := c.currentToken()
	if err != nil {
		c.log.Warn("could not refresh realtime token", "err", err)
		return
	}
	c.mu.Lock()
	changed := token != c.token
	c.token = token
	c.mu.Unlock()
	if !changed {
		return
	}
	if _, err := c.send(c.topic, eventToken, map[string]any{"access_token": token}); err != nil {
		c.log.Debug("token push failed", "err", err)
	}
}

// Unsubscribe leaves the channel, closes the socket and waits for the
// background goroutines to exit. It is safe to call more than once.
func (c *Channel) Unsubscribe() error {
	c.closeOnce.Do(func() {
		if _, err := c.send(c.topic, eventLeave, map[string]any{}); err != nil {
			c.log.Debug("leave failed", "err", err)
		}
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			if err := c.conn.Close(); err != nil {
				c.log.Debug("close failed", "err", err)
			}
		}
		c.mu.Unlock()
		c.wg.Wait()
	})
	return nil
}
