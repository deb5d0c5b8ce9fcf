// Package pgstore implements the store.Store interface over a direct
// Postgres connection (Supabase exposes one alongside the REST endpoint).
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"smarttodo/internal/store"
	"smarttodo/internal/task"
)

// Store is a Postgres-backed task store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store from an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for the given connection string and pings it.
func Connect(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, wrapPgError(err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// List returns all tasks, newest first.
func (s *Store) List(ctx context.Context) ([]task.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, is_completed, priority, created_at, due_date
		FROM todos ORDER BY created_at DESC`)
	if err != nil {
		return nil, wrapPgError(err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.IsCompleted, &t.Priority, &t.CreatedAt, &t.DueDate); err != nil {
			return nil, wrapPgError(err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPgError(err)
	}
	return tasks, nil
}

// Insert creates a new task. Ids are generated client-side so the insert can
// return the full row without a second round trip.
func (s *Store) Insert(ctx context.Context, fields store.InsertFields) (task.Task, error) {
	t := task.Task{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Title:     fields.Title,
		Priority:  fields.Priority,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO todos (id, title, is_completed, priority, created_at)
		VALUES ($1, $2, false, $3, $4)`,
		t.ID, t.Title, t.Priority, t.CreatedAt)
	if err != nil {
		return task.Task{}, wrapPgError(err)
	}
	return t, nil
}

// Update sets the completion flag on a task, matched by id.
func (s *Store) Update(ctx context.Context, id string, fields store.UpdateFields) error {
	_, err := s.pool.Exec(ctx, `UPDATE todos SET is_completed = $1 WHERE id = $2`,
		fields.IsCompleted, id)
	if err != nil {
		return wrapPgError(err)
	}
	return nil
}

// Delete removes a task by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM todos WHERE id = $1`, id)
	if err != nil {
		return wrapPgError(err)
	}
	return nil
}

// wrapPgError converts a pgx error into the narrow store.Error contract so
// classification stays transport-independent.
func wrapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &store.Error{
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Hint:    pgErr.Hint,
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &store.Error{Message: "no rows"}
	}
	return &store.Error{Message: err.Error()}
}
