package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	gosync "sync"
	"testing"
	"time"

	"smarttodo/internal/store"
	"smarttodo/internal/task"
)

// fakeStore is an in-memory Store with scriptable failures.
type fakeStore struct {
	mu    gosync.Mutex
	tasks []task.Task
	next  int

	listErr   error
	insertErr error
	updateErr error
	deleteErr error

	listCalls   int
	insertCalls int
	lastInsert  store.InsertFields
}

func (s *fakeStore) List(ctx context.Context) ([]task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]task.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

func (s *fakeStore) Insert(ctx context.Context, fields store.InsertFields) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	s.lastInsert = fields
	if s.insertErr != nil {
		return task.Task{}, s.insertErr
	}
	s.next++
	t := task.Task{
		ID:        fmt.Sprintf("id-%d", s.next),
		Title:     fields.Title,
		Priority:  fields.Priority,
		CreatedAt: time.Now().UTC(),
	}
	// Newest first, like the real store's ordering.
	s.tasks = append([]task.Task{t}, s.tasks...)
	return t, nil
}

func (s *fakeStore) Update(ctx context.Context, id string, fields store.UpdateFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].IsCompleted = fields.IsCompleted
			return nil
		}
	}
	return &store.Error{Message: "no such task"}
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return &store.Error{Message: "no such task"}
}

// fakeAI returns canned answers or errors. If fn is set it takes precedence
// for Breakdown, allowing per-title behavior.
type fakeAI struct {
	priority    task.Priority
	priorityErr error

	steps    []task.Step
	stepsErr error
	fn       func(title string) ([]task.Step, error)
}

func (a *fakeAI) SuggestPriority(ctx context.Context, title string) (task.Priority, error) {
	if a.priorityErr != nil {
		return "", a.priorityErr
	}
	return a.priority, nil
}

func (a *fakeAI) Breakdown(ctx context.Context, title string) ([]task.Step, error) {
	if a.fn != nil {
		return a.fn(title)
	}
	if a.stepsErr != nil {
		return nil, a.stepsErr
	}
	return a.steps, nil
}

func drainNotice(t *testing.T, o *Orchestrator) Notice {
	t.Helper()
	select {
	case n := <-o.Notices():
		return n
	case <-time.After(time.Second):
		t.Fatal("expected a notice")
		return Notice{}
	}
}

func assertNoNotice(t *testing.T, o *Orchestrator) {
	t.Helper()
	select {
	case n := <-o.Notices():
		t.Fatalf("unexpected notice: %q", n.Message)
	default:
	}
}

func TestCreateTaskEmptyTitleIsNoOp(t *testing.T) {
	fs := &fakeStore{}
	o := New(fs, &fakeAI{priority: task.PriorityHigh}, nil)

	for _, raw := range []string{"", "   ", "\t\n"} {
		o.CreateTask(context.Background(), raw)
	}

	if fs.insertCalls != 0 {
		t.Errorf("insert called %d times, want 0", fs.insertCalls)
	}
	if fs.listCalls != 0 {
		t.Errorf("list called %d times, want 0", fs.listCalls)
	}
	if snap := o.Snapshot(); len(snap.Tasks) != 0 {
		t.Errorf("tasks changed: %d", len(snap.Tasks))
	}
	assertNoNotice(t, o)
}

func TestCreateTaskUsesSuggestedPriority(t *testing.T) {
	fs := &fakeStore{}
	o := New(fs, &fakeAI{priority: task.PriorityHigh}, nil)

	o.CreateTask(context.Background(), "  write report  ")

	if fs.lastInsert.Title != "write report" {
		t.Errorf("inserted title = %q, want trimmed", fs.lastInsert.Title)
	}
	if fs.lastInsert.Priority != task.PriorityHigh {
		t.Errorf("inserted priority = %q, want high", fs.lastInsert.Priority)
	}
	snap := o.Snapshot()
	if len(snap.Tasks) != 1 {
		t.Fatalf("got %d tasks after create, want 1 (refresh should have run)", len(snap.Tasks))
	}
}

func TestCreateTaskFallsBackToMediumOnAIFailure(t *testing.T) {
	fs := &fakeStore{}
	o := New(fs, &fakeAI{priorityErr: errors.New("model unavailable")}, nil)

	o.CreateTask(context.Background(), "buy milk")

	if fs.lastInsert.Priority != task.PriorityMedium {
		t.Errorf("inserted priority = %q, want medium", fs.lastInsert.Priority)
	}
	if fs.lastInsert.Title != "buy milk" {
		t.Errorf("inserted title = %q", fs.lastInsert.Title)
	}
	// The fallback is silent.
	assertNoNotice(t, o)
}

func TestCreateTaskFallsBackWithoutAIClient(t *testing.T) {
	fs := &fakeStore{}
	o := New(fs, nil, nil)

	o.CreateTask(context.Background(), "buy milk")

	if fs.lastInsert.Priority != task.PriorityMedium {
		t.Errorf("inserted priority = %q, want medium", fs.lastInsert.Priority)
	}
}

func TestCreateTaskInsertFailureNotifies(t *testing.T) {
	fs := &fakeStore{insertErr: &store.Error{Message: "permission denied", Status: 403}}
	o := New(fs, &fakeAI{priority: task.PriorityLow}, nil)

	o.CreateTask(context.Background(), "buy milk")

	n := drainNotice(t, o)
	if n.Message == "" {
		t.Error("notice message is empty")
	}
	if snap := o.Snapshot(); len(snap.Tasks) != 0 {
		t.Error("state mutated after failed insert")
	}
	if fs.listCalls != 0 {
		t.Error("refresh should not run after a failed insert")
	}
}

func TestRefreshReplacesTasksAndClearsError(t *testing.T) {
	fs := &fakeStore{listErr: &store.Error{Message: "connection reset"}}
	o := New(fs, nil, nil)

	if err := o.Refresh(context.Background()); err == nil {
		t.Fatal("refresh should fail")
	}
	snap := o.Snapshot()
	if snap.ErrorKind != store.KindFailure {
		t.Errorf("error kind = %v, want KindFailure", snap.ErrorKind)
	}
	if len(snap.Tasks) != 0 {
		t.Error("tasks changed on failed refresh")
	}

	fs.mu.Lock()
	fs.listErr = nil
	fs.tasks = []task.Task{{ID: "a", Title: "x", Priority: task.PriorityLow}}
	fs.mu.Unlock()

	if err := o.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	snap = o.Snapshot()
	if snap.ErrorKind != store.KindNone || snap.ErrorMsg != "" {
		t.Error("error not cleared on successful refresh")
	}
	if len(snap.Tasks) != 1 {
		t.Errorf("got %d tasks, want 1", len(snap.Tasks))
	}
}

func TestRefreshSchemaMissing(t *testing.T) {
	fs := &fakeStore{listErr: &store.Error{Code: "42P01"}}
	o := New(fs, nil, nil)

	o.Refresh(context.Background())

	snap := o.Snapshot()
	if snap.ErrorKind != store.KindSchemaMissing {
		t.Errorf("error kind = %v, want KindSchemaMissing", snap.ErrorKind)
	}
	if len(snap.Tasks) != 0 {
		t.Error("tasks should be unchanged (initially empty)")
	}
}

func TestRefreshEmptyStore(t *testing.T) {
	o := New(&fakeStore{}, nil, nil)

	if err := o.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	snap := o.Snapshot()
	if snap.Tasks == nil || len(snap.Tasks) != 0 {
		t.Errorf("tasks = %v, want empty non-nil", snap.Tasks)
	}
	for _, f := range []task.Filter{task.FilterAll, task.FilterActive, task.FilterCompleted} {
		o.SetFilter(f)
		if got := o.Snapshot().VisibleTasks(); len(got) != 0 {
			t.Errorf("filter %s: %d visible tasks, want 0", f, len(got))
		}
	}
}

func TestToggleCompletionRoundTrip(t *testing.T) {
	fs := &fakeStore{tasks: []task.Task{{ID: "a", Title: "x"}}}
	o := New(fs, nil, nil)
	o.Refresh(context.Background())

	first := o.Snapshot().Tasks[0]
	o.ToggleCompletion(context.Background(), first)
	toggled := o.Snapshot().Tasks[0]
	if !toggled.IsCompleted {
		t.Fatal("task should be completed after first toggle")
	}

	o.ToggleCompletion(context.Background(), toggled)
	back := o.Snapshot().Tasks[0]
	if back.IsCompleted != first.IsCompleted {
		t.Error("double toggle should restore the original value")
	}
}

func TestToggleCompletionFailureNotifies(t *testing.T) {
	fs := &fakeStore{tasks: []task.Task{{ID: "a", Title: "x"}}}
	o := New(fs, nil, nil)
	o.Refresh(context.Background())

	fs.mu.Lock()
	fs.updateErr = &store.Error{Message: "boom"}
	fs.mu.Unlock()

	o.ToggleCompletion(context.Background(), o.Snapshot().Tasks[0])
	drainNotice(t, o)
	if o.Snapshot().Tasks[0].IsCompleted {
		t.Error("state mutated after failed update")
	}
}

func TestDeleteTaskRemovesID(t *testing.T) {
	fs := &fakeStore{tasks: []task.Task{{ID: "a"}, {ID: "b"}}}
	o := New(fs, nil, nil)
	o.Refresh(context.Background())

	o.DeleteTask(context.Background(), "a")

	for _, tk := range o.Snapshot().Tasks {
		if tk.ID == "a" {
			t.Error("deleted id still present after refresh")
		}
	}
	if len(o.Snapshot().Tasks) != 1 {
		t.Errorf("got %d tasks, want 1", len(o.Snapshot().Tasks))
	}
}

func TestDeleteTaskFailureNotifies(t *testing.T) {
	fs := &fakeStore{tasks: []task.Task{{ID: "a"}}, deleteErr: &store.Error{Message: "boom"}}
	o := New(fs, nil, nil)
	o.Refresh(context.Background())

	o.DeleteTask(context.Background(), "a")
	drainNotice(t, o)
	if len(o.Snapshot().Tasks) != 1 {
		t.Error("state mutated after failed delete")
	}
}

func TestMutationTriggersRefresh(t *testing.T) {
	fs := &fakeStore{}
	o := New(fs, &fakeAI{priority: task.PriorityLow}, nil)

	o.CreateTask(context.Background(), "x")
	if fs.listCalls != 1 {
		t.Errorf("list called %d times after create, want 1", fs.listCalls)
	}

	id := o.Snapshot().Tasks[0].ID
	o.ToggleCompletion(context.Background(), o.Snapshot().Tasks[0])
	if fs.listCalls != 2 {
		t.Errorf("list called %d times after toggle, want 2", fs.listCalls)
	}

	o.DeleteTask(context.Background(), id)
	if fs.listCalls != 3 {
		t.Errorf("list called %d times after delete, want 3", fs.listCalls)
	}
}

func TestRequestBreakdown(t *testing.T) {
	steps := []task.Step{
		{Step: "Plan", Description: "Decide scope"},
		{Step: "Do", Description: "Execute"},
	}
	o := New(&fakeStore{}, &fakeAI{steps: steps}, nil)

	o.RequestBreakdown(context.Background(), task.Task{ID: "a", Title: "ship release"})

	snap := o.Snapshot()
	if snap.Breakdown == nil {
		t.Fatal("breakdown not set")
	}
	if snap.Breakdown.TaskID != "a" {
		t.Errorf("breakdown task id = %q, want a", snap.Breakdown.TaskID)
	}
	if len(snap.Breakdown.Steps) != 2 {
		t.Errorf("got %d steps, want 2", len(snap.Breakdown.Steps))
	}
	if snap.ActiveAIID != "" {
		t.Error("active request marker not cleared")
	}
}

func TestRequestBreakdownFailure(t *testing.T) {
	o := New(&fakeStore{}, &fakeAI{stepsErr: errors.New("quota exceeded")}, nil)

	o.RequestBreakdown(context.Background(), task.Task{ID: "a", Title: "x"})

	n := drainNotice(t, o)
	if n.Message != "AI analysis failed. Please try again." {
		t.Errorf("notice = %q", n.Message)
	}
	if o.Snapshot().Breakdown != nil {
		t.Error("breakdown should be unchanged on failure")
	}
}

func TestRequestBreakdownWithoutAIClient(t *testing.T) {
	o := New(&fakeStore{}, nil, nil)

	o.RequestBreakdown(context.Background(), task.Task{ID: "a", Title: "x"})

	n := drainNotice(t, o)
	if !strings.Contains(n.Message, "AI features are disabled") {
		t.Errorf("notice = %q", n.Message)
	}
	if o.Snapshot().Breakdown != nil {
		t.Error("breakdown should stay unset without an AI client")
	}
}

func TestStaleBreakdownResponseDiscarded(t *testing.T) {
	// The request for "old task" blocks until released; the request for
	// "new task" resolves immediately.
	release := make(chan struct{})
	aiClient := &fakeAI{fn: func(title string) ([]task.Step, error) {
		if title == "old task" {
			<-release
			return []task.Step{{Step: "old", Description: "stale"}}, nil
		}
		return []task.Step{{Step: "new", Description: "fresh"}}, nil
	}}
	o := New(&fakeStore{}, aiClient, nil)

	done := make(chan struct{})
	go func() {
		o.RequestBreakdown(context.Background(), task.Task{ID: "old", Title: "old task"})
		close(done)
	}()

	// Wait until the slow request is in flight.
	deadline := time.After(time.Second)
	for o.Snapshot().ActiveAIID != "old" {
		select {
		case <-deadline:
			t.Fatal("slow request never started")
		case <-time.After(time.Millisecond):
		}
	}

	// A newer request is issued and resolves first.
	o.RequestBreakdown(context.Background(), task.Task{ID: "new", Title: "new task"})

	if snap := o.Snapshot(); snap.Breakdown == nil || snap.Breakdown.TaskID != "new" {
		t.Fatal("newer breakdown should be applied")
	}
	if o.Snapshot().ActiveAIID != "" {
		t.Error("newer request should clear the marker on completion")
	}

	// Now let the stale request finish; it must not overwrite anything.
	close(release)
	<-done

	snap := o.Snapshot()
	if snap.Breakdown.TaskID != "new" {
		t.Errorf("stale response overwrote breakdown: %q", snap.Breakdown.TaskID)
	}
	if len(snap.Breakdown.Steps) != 1 || snap.Breakdown.Steps[0].Step != "new" {
		t.Error("stale steps applied")
	}
	assertNoNotice(t, o)
}

func TestSetFilterAndVisible(t *testing.T) {
	fs := &fakeStore{tasks: []task.Task{
		{ID: "a", IsCompleted: false},
		{ID: "b", IsCompleted: true},
	}}
	o := New(fs, nil, nil)
	o.Refresh(context.Background())

	o.SetFilter(task.FilterActive)
	if got := o.Snapshot().VisibleTasks(); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("active filter: got %v", got)
	}

	o.SetFilter(task.FilterCompleted)
	if got := o.Snapshot().VisibleTasks(); len(got) != 1 || got[0].ID != "b" {
		t.Errorf("completed filter: got %v", got)
	}

	o.SetFilter("bogus")
	if o.Snapshot().Filter != task.FilterCompleted {
		t.Error("invalid filter should be ignored")
	}
}

func TestClearBreakdown(t *testing.T) {
	o := New(&fakeStore{}, &fakeAI{steps: []task.Step{{Step: "s", Description: "d"}}}, nil)
	o.RequestBreakdown(context.Background(), task.Task{ID: "a", Title: "x"})
	o.ClearBreakdown()
	if o.Snapshot().Breakdown != nil {
		t.Error("breakdown not cleared")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	fs := &fakeStore{tasks: []task.Task{{ID: "a", Title: "x"}}}
	o := New(fs, nil, nil)
	o.Refresh(context.Background())

	snap := o.Snapshot()
	snap.Tasks[0].Title = "mutated"

	if o.Snapshot().Tasks[0].Title != "x" {
		t.Error("snapshot shares backing array with live state")
	}
}
