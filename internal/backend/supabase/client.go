// Package supabase implements the service.Service interface against a
// Supabase project: PostgREST for the tables, GoTrue for auth and Realtime
// for change feeds.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"eisen/internal/config"
	"eisen/internal/service"
)

const (
	// APITimeout is the timeout for table calls.
	APITimeout = 10 * time.Second

	tasksTable = "tasks"
	statsTable = "user_stats"
)

// Client implements service.Service using the Supabase REST API.
type Client struct {
	baseURL string
	apiKey  string
	userID  string
	http    *http.Client
	tokens  oauth2.TokenSource
	log     *log.Logger
}

// New creates a client from the stored session.
// Requires supabase settings in the config and a session from `eisen login`.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	sess, err := LoadSession(cfg.SessionPath())
	if err != nil {
		return nil, err
	}
	auth := NewAuth(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
	ts := auth.TokenSource(sess, cfg.SessionPath())

	c := NewWithHTTPClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, sess.UserID, nil, ts)
	c.log = cfg.Logger()
	return c, nil
}

// NewWithHTTPClient creates a client with a custom base HTTP client (for testing).
// Every request carries the anon key and a bearer token from ts.
func NewWithHTTPClient(baseURL, apiKey, userID string, base *http.Client, ts oauth2.TokenSource) *Client {
	var rt http.RoundTripper = http.DefaultTransport
	if base != nil && base.Transport != nil {
		rt = base.Transport
	}
	hc := &http.Client{
		Transport: &oauth2.Transport{
			Source: ts,
			Base:   &apiKeyTransport{key: apiKey, base: rt},
		},
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		userID:  userID,
		http:    hc,
		tokens:  ts,
		log:     log.New(io.Discard),
	}
}

// apiKeyTransport adds the project key every gateway request needs.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("apikey", t.key)
	return t.base.RoundTrip(req)
}

// UserID returns the signed-in user's id.
func (c *Client) UserID() string { return c.userID }

// ListTasks returns the user's tasks, newest first.
func (c *Client) ListTasks(ctx context.Context, userID string) ([]service.Task, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("order", "created_at.desc")

	var rows []service.Task
	if err := c.do(ctx, http.MethodGet, tasksTable, q, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// InsertTask creates a pending task owned by the session user.
func (c *Client) InsertTask(ctx context.Context, nt service.NewTask) (service.Task, error) {
	body := map[string]any{
		"user_id":      c.userID,
		"title":        nt.Title,
		"description":  nt.Description,
		"is_important": nt.IsImportant,
		"is_urgent":    nt.IsUrgent,
		"status":       service.StatusPending,
		"due_date":     nil,
	}
	if nt.DueDate != nil {
		body["due_date"] = nt.DueDate.UTC().Format(time.RFC3339)
	}

	var rows []service.Task
	if err := c.do(ctx, http.MethodPost, tasksTable, nil, body, &rows); err != nil {
		return service.Task{}, err
	}
	if len(rows) == 0 {
		return service.Task{}, errors.New("insert returned no row")
	}
	return rows[0], nil
}

// UpdateTask applies patch to a task and stamps updated_at.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	body := patch.Fields()
	body["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)

	q := url.Values{}
	q.Set("id", "eq."+id)
	if patch.ExpectStatus != nil {
		q.Set("status", "eq."+string(*patch.ExpectStatus))
	}

	var rows []service.Task
	if err := c.do(ctx, http.MethodPatch, tasksTable, q, body, &rows); err != nil {
		return service.Task{}, err
	}
	if len(rows) == 0 {
		if patch.ExpectStatus != nil {
			return service.Task{}, service.ErrConflict
		}
		return service.Task{}, service.ErrNotFound
	}
	return rows[0], nil
}

// DeleteTask deletes a task by id.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	q := url.Values{}
	q.Set("id", "eq."+id)

	var rows []service.Task
	if err := c.do(ctx, http.MethodDelete, tasksTable, q, nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return service.ErrNotFound
	}
	return nil
}

// GetStats returns the user's stats row.
func (c *Client) GetStats(ctx context.Context, userID string) (service.UserStats, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID)
	q.Set("limit", "1")

	var rows []service.UserStats
	if err := c.do(ctx, http.MethodGet, statsTable, q, nil, &rows); err != nil {
		return service.UserStats{}, err
	}
	if len(rows) == 0 {
		return service.UserStats{}, service.ErrNotFound
	}
	return rows[0], nil
}

// InsertStats creates a zeroed stats row. When another client created the
// row first, the existing row is returned.
func (c *Client) InsertStats(ctx context.Context, userID string) (service.UserStats, error) {
	body := map[string]any{
		"user_id":               userID,
		"current_streak":        0,
		"longest_streak":        0,
		"total_points":          0,
		"tasks_completed_today": 0,
		"last_activity_date":    nil,
	}
	q := url.Values{}
	q.Set("on_conflict", "user_id")

	var rows []service.UserStats
	err := c.doPrefer(ctx, http.MethodPost, statsTable, q, "resolution=ignore-duplicates,return=representation", body, &rows)
	if err != nil && !errors.Is(err, errDuplicate) {
		return service.UserStats{}, err
	}
	if err == nil && len(rows) > 0 {
		return rows[0], nil
	}
	// Ignored duplicate: the row exists already.
	return c.GetStats(ctx, userID)
}

// SwapStats updates the stats row only if its counters still match prev.
// PostgREST filters make the update conditional; an empty result means
// another writer changed the row first.
func (c *Client) SwapStats(ctx context.Context, prev, next service.UserStats) (service.UserStats, bool, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+prev.UserID)
	q.Set("total_points", "eq."+strconv.Itoa(prev.TotalPoints))
	q.Set("tasks_completed_today", "eq."+strconv.Itoa(prev.TasksCompletedToday))
	q.Set("current_streak", "eq."+strconv.Itoa(prev.CurrentStreak))
	q.Set("longest_streak", "eq."+strconv.Itoa(prev.LongestStreak))
	if prev.LastActivityDate == "" {
		q.Set("last_activity_date", "is.null")
	} else {
		q.Set("last_activity_date", "eq."+prev.LastActivityDate)
	}

	body := map[string]any{
		"total_points":          next.TotalPoints,
		"tasks_completed_today": next.TasksCompletedToday,
		"current_streak":        next.CurrentStreak,
		"longest_streak":        next.LongestStreak,
		"last_activity_date":    nil,
		"updated_at":            time.Now().UTC().Format(time.RFC3339Nano),
	}
	if next.LastActivityDate != "" {
		body["last_activity_date"] = next.LastActivityDate
	}

	var rows []service.UserStats
	if err := c.do(ctx, http.MethodPatch, statsTable, q, body, &rows); err != nil {
		return service.UserStats{}, false, err
	}
	if len(rows) > 0 {
		return rows[0], true, nil
	}

	cur, err := c.GetStats(ctx, prev.UserID)
	if err != nil {
		return service.UserStats{}, false, err
	}
	return cur, false, nil
}

// postgrestError is the error body PostgREST returns.
type postgrestError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// errDuplicate marks a unique constraint violation.
var errDuplicate = errors.New("duplicate row")

// do performs a table request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, table string, q url.Values, body, out any) error {
	return c.doPrefer(ctx, method, table, q, "return=representation", body, out)
}

// doPrefer is do with an explicit Prefer header for writes.
func (c *Client) doPrefer(ctx context.Context, method, table string, q url.Values, prefer string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	u := c.baseURL + "/rest/v1/" + table
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("Prefer", prefer)
	}

	c.log.Debug("rest request", "method", method, "table", table, "query", q.Encode())
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrapError(err)
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid %s response: %w", table, err)
	}
	return nil
}

func statusError(status int, body []byte) error {
	var pe postgrestError
	_ = json.Unmarshal(body, &pe)
	msg := pe.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s (run: eisen login)", service.ErrUnauthorized, msg)
	case http.StatusNotFound:
		return service.ErrNotFound
	case http.StatusConflict:
		return fmt.Errorf("supabase: %w: %s", errDuplicate, msg)
	}
	if pe.Code != "" {
		return fmt.Errorf("supabase: %s [%s] (%d)", msg, pe.Code, status)
	}
	return fmt.Errorf("supabase: %s (%d)", msg, status)
}

// wrapError maps transport errors to the service sentinels.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}

	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: token refresh failed (run: eisen login)", service.ErrUnauthorized)
	}

	return err
}
