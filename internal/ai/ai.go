// Package ai defines the generative-AI collaborator used for task
// suggestions and implements it against the Gemini API.
package ai

import (
	"context"

	"smarttodo/internal/task"
)

// Client defines the two AI operations the app uses. The orchestrator never
// imports a provider directly.
type Client interface {
	// Breakdown asks for 3-5 actionable sub-steps for a task title.
	Breakdown(ctx context.Context, title string) ([]task.Step, error)

	// SuggestPriority classifies a task title as low, medium, or high.
	// Free-text model output is normalized and validated; anything outside
	// the enum is an error.
	SuggestPriority(ctx context.Context, title string) (task.Priority, error)
}
