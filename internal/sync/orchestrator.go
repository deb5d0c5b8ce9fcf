// Package sync owns the in-memory task collection and coordinates the store
// and AI collaborators. All mutations go through the remote store and are
// followed by a full refetch; nothing is updated optimistically.
package sync

import (
	"context"
	"io"
	"strings"
	stdsync "sync"

	"github.com/charmbracelet/log"

	"smarttodo/internal/ai"
	"smarttodo/internal/store"
	"smarttodo/internal/task"
)

// Notice is a one-shot user-facing notification. The presentation layer is
// expected to show it modally until dismissed.
type Notice struct {
	Message string
}

// Snapshot is a view-ready copy of the orchestrator state. Safe to retain;
// it shares nothing with the live state.
type Snapshot struct {
	Tasks      []task.Task
	Filter     task.Filter
	ErrorKind  store.Kind // classification of the last refresh failure
	ErrorMsg   string     // message of the last refresh failure
	ActiveAIID string     // task id of the in-flight breakdown request, or ""
	Breakdown  *task.Breakdown
}

// VisibleTasks returns the tasks matching the snapshot's filter.
func (s Snapshot) VisibleTasks() []task.Task {
	return task.Visible(s.Tasks, s.Filter)
}

// Orchestrator coordinates the store and AI collaborators and owns the only
// in-memory copy of the task collection.
type Orchestrator struct {
	store  store.Store
	ai     ai.Client
	logger *log.Logger

	notices chan Notice

	mu           stdsync.Mutex
	tasks        []task.Task
	filter       task.Filter
	errKind      store.Kind
	errMsg       string
	activeAIID   string
	breakdown    *task.Breakdown
	breakdownSeq uint64 // sequence of the most recently issued breakdown request
}

// New creates an orchestrator over the given collaborators. A nil logger
// discards all log output.
func New(st store.Store, aiClient ai.Client, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Orchestrator{
		store:   st,
		ai:      aiClient,
		logger:  logger,
		notices: make(chan Notice, 16),
		filter:  task.FilterAll,
	}
}

// Notices returns the channel of one-shot notifications for the UI.
func (o *Orchestrator) Notices() <-chan Notice {
	return o.notices
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		Tasks:      make([]task.Task, len(o.tasks)),
		Filter:     o.filter,
		ErrorKind:  o.errKind,
		ErrorMsg:   o.errMsg,
		ActiveAIID: o.activeAIID,
	}
	copy(snap.Tasks, o.tasks)
	if o.breakdown != nil {
		b := task.Breakdown{
			TaskID: o.breakdown.TaskID,
			Steps:  make([]task.Step, len(o.breakdown.Steps)),
		}
		copy(b.Steps, o.breakdown.Steps)
		snap.Breakdown = &b
	}
	return snap
}

// Refresh fetches the full task collection from the store. On success the
// collection is replaced atomically and any pending error is cleared; on
// failure the classified error is recorded and the collection is left alone.
//
// Overlapping refreshes are tolerated: responses are applied in arrival
// order, so the state reflects whichever response lands last, not whichever
// request was issued last.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	tasks, err := o.store.List(ctx)
	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.errKind = store.Classify(err)
		o.errMsg = err.Error()
		o.logger.Error("refresh failed", "kind", o.errKind, "err", err)
		return err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	o.tasks = tasks
	o.errKind = store.KindNone
	o.errMsg = ""
	o.logger.Debug("refreshed task list", "count", len(tasks))
	return nil
}

// CreateTask creates a task from the raw title. A title that is empty after
// trimming is a no-op. Priority is suggested by the AI client; any AI failure
// or out-of-enum answer silently falls back to medium. An insert failure is
// surfaced as a notice; a successful insert triggers a refresh.
func (o *Orchestrator) CreateTask(ctx context.Context, rawTitle string) {
	title := strings.TrimSpace(rawTitle)
	if title == "" {
		return
	}

	priority := task.DefaultPriority
	if o.ai != nil {
		suggested, err := o.ai.SuggestPriority(ctx, title)
		if err != nil {
			o.logger.Debug("priority suggestion failed, using medium", "err", err)
		} else {
			priority = suggested
		}
	}

	if _, err := o.store.Insert(ctx, store.InsertFields{Title: title, Priority: priority}); err != nil {
		o.notify("Error adding todo: " + errMessage(err))
		return
	}
	o.Refresh(ctx)
}

// ToggleCompletion flips the completion flag of the given task, matched by
// id. Failure is surfaced as a notice; success triggers a refresh.
func (o *Orchestrator) ToggleCompletion(ctx context.Context, t task.Task) {
	err := o.store.Update(ctx, t.ID, store.UpdateFields{IsCompleted: !t.IsCompleted})
	if err != nil {
		o.notify("Error updating todo: " + errMessage(err))
		return
	}
	o.Refresh(ctx)
}

// DeleteTask deletes a task by id. Failure is surfaced as a notice; success
// triggers a refresh.
func (o *Orchestrator) DeleteTask(ctx context.Context, id string) {
	if err := o.store.Delete(ctx, id); err != nil {
		o.notify("Error deleting todo: " + errMessage(err))
		return
	}
	o.Refresh(ctx)
}

// RequestBreakdown asks the AI client to decompose the task into sub-steps.
// Requests are tagged with a sequence number; a response is applied only if
// its request is still the most recently issued one, so a slow stale response
// can neither replace a newer breakdown nor clear a newer in-flight marker.
func (o *Orchestrator) RequestBreakdown(ctx context.Context, t task.Task) {
	if o.ai == nil {
		o.notify("AI features are disabled. Set a Gemini API key to enable them.")
		return
	}

	o.mu.Lock()
	o.breakdownSeq++
	seq := o.breakdownSeq
	o.activeAIID = t.ID
	o.mu.Unlock()

	steps, err := o.ai.Breakdown(ctx, t.Title)

	o.mu.Lock()
	current := seq == o.breakdownSeq
	if current {
		o.activeAIID = ""
	}
	if current && err == nil {
		o.breakdown = &task.Breakdown{TaskID: t.ID, Steps: steps}
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn("breakdown failed", "task", t.ID, "err", err)
		if current {
			o.notify("AI analysis failed. Please try again.")
		}
		return
	}
	if !current {
		o.logger.Debug("discarded stale breakdown response", "task", t.ID)
	}
}

// ClearBreakdown dismisses the currently shown breakdown.
func (o *Orchestrator) ClearBreakdown() {
	o.mu.Lock()
	o.breakdown = nil
	o.mu.Unlock()
}

// SetFilter sets the visible-task filter. Unknown modes are ignored.
func (o *Orchestrator) SetFilter(f task.Filter) {
	if !f.Valid() {
		return
	}
	o.mu.Lock()
	o.filter = f
	o.mu.Unlock()
}

// notify queues a one-shot notification. If the UI is not draining the
// channel the notice is dropped rather than blocking an operation.
func (o *Orchestrator) notify(msg string) {
	select {
	case o.notices <- Notice{Message: msg}:
	default:
		o.logger.Warn("dropped notice", "msg", msg)
	}
}

func errMessage(err error) string {
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return "Unknown error"
	}
	return err.Error()
}
