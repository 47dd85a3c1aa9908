// Package postgres implements the service.Service interface directly on a
// Postgres database, for self-hosted setups without the Supabase gateway.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"eisen/internal/config"
	"eisen/internal/service"
)

// QueryTimeout is the timeout for a single statement or transaction.
const QueryTimeout = 10 * time.Second

//go:embed schema.sql
var schemaSQL string

// Schema returns the DDL that Migrate applies.
func Schema() string { return schemaSQL }

// Store implements service.Service on a pgx pool.
type Store struct {
	pool   *pgxpool.Pool
	userID string
	log    *log.Logger
}

// Open connects to cfg.DatabaseURL. All rows are owned by cfg.UserID.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg.UserID == "" {
		return nil, errors.New("postgres backend requires user_id")
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", wrapError(err))
	}
	s := New(pool, cfg.UserID)
	s.log = cfg.Logger()
	return s, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, userID string) *Store {
	return &Store{pool: pool, userID: userID, log: log.New(io.Discard)}
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Migrate creates the tables and change triggers if they don't exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}
	return nil
}

// UserID returns the configured owner.
func (s *Store) UserID() string { return s.userID }

const taskColumns = `id::text, user_id::text, title, description, is_important, is_urgent,
	status, due_date, created_at, updated_at`

func scanTask(row pgx.Row) (service.Task, error) {
	var t service.Task
	var status string
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.IsImportant, &t.IsUrgent,
		&status, &t.DueDate, &t.CreatedAt, &t.UpdatedAt)
	t.Status = service.Status(status)
	return t, err
}

// ListTasks returns the user's tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, userID string) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+`
		FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", wrapError(err))
	}
	defer rows.Close()

	var result []service.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", wrapError(err))
	}
	return result, nil
}

// InsertTask creates a pending task owned by the configured user.
func (s *Store) InsertTask(ctx context.Context, nt service.NewTask) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description, is_important, is_urgent, status, due_date)
		VALUES ($1, $2, $3, $4, $5, 'pending', $6)
		RETURNING `+taskColumns,
		s.userID, nt.Title, nt.Description, nt.IsImportant, nt.IsUrgent, nt.DueDate)
	t, err := scanTask(row)
	if err != nil {
		return service.Task{}, fmt.Errorf("creating task: %w", wrapError(err))
	}
	return t, nil
}

// setClause builds the SET list and arguments for a patch. Arguments start at $2.
func setClause(p service.TaskPatch) (string, []any) {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)+1))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.IsImportant != nil {
		add("is_important", *p.IsImportant)
	}
	if p.IsUrgent != nil {
		add("is_urgent", *p.IsUrgent)
	}
	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.ClearDueDate {
		sets = append(sets, "due_date = NULL")
	} else if p.DueDate != nil {
		add("due_date", *p.DueDate)
	}
	sets = append(sets, "updated_at = now()")
	return strings.Join(sets, ", "), args
}

// UpdateTask applies patch to one of the user's tasks.
func (s *Store) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	set, args := setClause(patch)
	args = append([]any{id}, args...)
	args = append(args, s.userID)
	where := fmt.Sprintf("id::text = $1 AND user_id = $%d", len(args))
	if patch.ExpectStatus != nil {
		args = append(args, string(*patch.ExpectStatus))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query := fmt.Sprintf(`UPDATE tasks SET %s WHERE %s RETURNING %s`, set, where, taskColumns)

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) && patch.ExpectStatus != nil {
		return service.Task{}, fmt.Errorf("updating task: %w", service.ErrConflict)
	}
	if err != nil {
		return service.Task{}, fmt.Errorf("updating task: %w", wrapError(err))
	}
	return t, nil
}

// DeleteTask deletes one of the user's tasks.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id::text = $1 AND user_id = $2`, id, s.userID)
	if err != nil {
		return fmt.Errorf("deleting task: %w", wrapError(err))
	}
	if tag.RowsAffected() == 0 {
		return service.ErrNotFound
	}
	return nil
}

const statsColumns = `id::text, user_id::text, current_streak, longest_streak, total_points,
	tasks_completed_today, to_char(last_activity_date, 'YYYY-MM-DD'), created_at, updated_at`

func scanStats(row pgx.Row) (service.UserStats, error) {
	var st service.UserStats
	var last *string
	err := row.Scan(&st.ID, &st.UserID, &st.CurrentStreak, &st.LongestStreak, &st.TotalPoints,
		&st.TasksCompletedToday, &last, &st.CreatedAt, &st.UpdatedAt)
	if last != nil {
		st.LastActivityDate = *last
	}
	return st, err
}

// GetStats returns the user's stats row.
func (s *Store) GetStats(ctx context.Context, userID string) (service.UserStats, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	st, err := scanStats(s.pool.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1`, userID))
	if err != nil {
		return service.UserStats{}, fmt.Errorf("reading stats: %w", wrapError(err))
	}
	return st, nil
}

// InsertStats creates a zeroed stats row. An existing row is returned as is.
func (s *Store) InsertStats(ctx context.Context, userID string) (service.UserStats, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	_, err := s.pool.Exec(ctx, `INSERT INTO user_stats (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return service.UserStats{}, fmt.Errorf("creating stats: %w", wrapError(err))
	}
	st, err := scanStats(s.pool.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1`, userID))
	if err != nil {
		return service.UserStats{}, fmt.Errorf("creating stats: %w", wrapError(err))
	}
	return st, nil
}

func nullableDate(d string) *string {
	if d == "" {
		return nil
	}
	return &d
}

// SwapStats writes next only while the stored counters still equal prev.
func (s *Store) SwapStats(ctx context.Context, prev, next service.UserStats) (service.UserStats, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return service.UserStats{}, false, fmt.Errorf("beginning transaction: %w", wrapError(err))
	}
	defer tx.Rollback(ctx)

	st, err := scanStats(tx.QueryRow(ctx, `
		UPDATE user_stats SET
			total_points = $2,
			tasks_completed_today = $3,
			current_streak = $4,
			longest_streak = $5,
			last_activity_date = $6::text::date,
			updated_at = now()
		WHERE user_id = $1
		  AND total_points = $7
		  AND tasks_completed_today = $8
		  AND current_streak = $9
		  AND longest_streak = $10
		  AND last_activity_date IS NOT DISTINCT FROM $11::text::date
		RETURNING `+statsColumns,
		prev.UserID,
		next.TotalPoints, next.TasksCompletedToday, next.CurrentStreak, next.LongestStreak, nullableDate(next.LastActivityDate),
		prev.TotalPoints, prev.TasksCompletedToday, prev.CurrentStreak, prev.LongestStreak, nullableDate(prev.LastActivityDate),
	))
	swapped := true
	if errors.Is(err, pgx.ErrNoRows) {
		swapped = false
		st, err = scanStats(tx.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id = $1`, prev.UserID))
	}
	if err != nil {
		return service.UserStats{}, false, fmt.Errorf("updating stats: %w", wrapError(err))
	}
	if err := tx.Commit(ctx); err != nil {
		return service.UserStats{}, false, fmt.Errorf("committing stats: %w", wrapError(err))
	}
	return st, swapped, nil
}

// wrapError maps driver errors to the service sentinels.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return service.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return service.ErrTimeout
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28P01", "28000", "42501":
			return fmt.Errorf("%w: %s", service.ErrUnauthorized, pgErr.Message)
		case "22P02":
			// invalid uuid text
			return service.ErrNotFound
		}
		return fmt.Errorf("%s (%s)", pgErr.Message, pgErr.Code)
	}
	return err
}
