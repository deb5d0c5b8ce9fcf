// Package task defines the todo entity and its value types.
package task

import (
	"strings"
	"time"
)

// Priority represents a task priority level.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultPriority is used when no priority is supplied or suggested.
const DefaultPriority = PriorityMedium

// Valid returns true if p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ParsePriority normalizes free text (trimmed, lower-cased) into a Priority.
// Returns false if the text is not a known level.
func ParsePriority(s string) (Priority, bool) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", false
	}
	return p, true
}

// Task represents a single todo item as stored in the todos table.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	IsCompleted bool       `json:"is_completed"`
	Priority    Priority   `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// IsZero returns true if the task is empty (has no ID).
func (t *Task) IsZero() bool {
	return t.ID == ""
}

// Step is one AI-suggested sub-step of a task.
type Step struct {
	Step        string `json:"step"`
	Description string `json:"description"`
}

// Breakdown holds the AI-suggested steps for a single task.
type Breakdown struct {
	TaskID string `json:"task_id"`
	Steps  []Step `json:"steps"`
}
