// Package store defines the backend-agnostic contract for task persistence.
package store

import (
	"context"
	"fmt"

	"smarttodo/internal/task"
)

// Store defines the interface for task persistence operations.
// The orchestrator never imports a backend directly.
type Store interface {
	// List returns all tasks ordered by creation time, newest first.
	List(ctx context.Context) ([]task.Task, error)

	// Insert creates a new task from the given fields. The backend assigns
	// id and created_at.
	Insert(ctx context.Context, fields InsertFields) (task.Task, error)

	// Update sets the completion flag on the task with the given id.
	Update(ctx context.Context, id string, fields UpdateFields) error

	// Delete removes the task with the given id.
	Delete(ctx context.Context, id string) error
}

// InsertFields are the caller-supplied fields for a new task.
type InsertFields struct {
	Title    string
	Priority task.Priority
}

// UpdateFields are the mutable fields of an existing task.
type UpdateFields struct {
	IsCompleted bool
}

// Error is the error type returned by every Store backend. All fields are
// optional; classification only ever looks at Code, Message, and Status.
type Error struct {
	Code    string // machine-readable code, e.g. a SQLSTATE like "42P01"
	Message string // human-readable message from the backend
	Hint    string // optional remediation hint from the backend
	Status  int    // HTTP-like status, 0 if not applicable
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Code != "":
		return fmt.Sprintf("store: %s (code %s)", e.Message, e.Code)
	case e.Message != "":
		return "store: " + e.Message
	case e.Code != "":
		return "store: error code " + e.Code
	case e.Status != 0:
		return fmt.Sprintf("store: status %d", e.Status)
	}
	return "store: unknown error"
}
