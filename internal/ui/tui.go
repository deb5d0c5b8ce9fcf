// Package ui provides the terminal interface.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"smarttodo/internal/store"
	"smarttodo/internal/sync"
	"smarttodo/internal/task"
)

// RunTUI starts the TUI over the given orchestrator.
func RunTUI(ctx context.Context, orch *sync.Orchestrator) error {
	if !IsTTY(os.Stdout) {
		return fmt.Errorf("tui requires a TTY")
	}

	model := newTUIModel(ctx, orch)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

type tuiModel struct {
	ctx  context.Context
	orch *sync.Orchestrator

	snap      sync.Snapshot
	loaded    bool // first refresh finished
	cursor    int
	inserting bool
	input     string
	alert     string // modal one-shot notification; blocks input until dismissed
	showHelp  bool
}

// opDoneMsg signals that an orchestrator operation finished and the snapshot
// should be re-read.
type opDoneMsg struct{}

type noticeMsg struct {
	notice sync.Notice
}

func newTUIModel(ctx context.Context, orch *sync.Orchestrator) *tuiModel {
	return &tuiModel{
		ctx:  ctx,
		orch: orch,
		snap: orch.Snapshot(),
	}
}

func (m *tuiModel) Init() tea.Cmd {
	return tea.Batch(
		m.opCmd(func() { m.orch.Refresh(m.ctx) }),
		waitForNotice(m.orch.Notices()),
	)
}

// opCmd runs an orchestrator operation off the UI goroutine and reports
// completion.
func (m *tuiModel) opCmd(op func()) tea.Cmd {
	return func() tea.Msg {
		op()
		return opDoneMsg{}
	}
}

func waitForNotice(ch <-chan sync.Notice) tea.Cmd {
	return func() tea.Msg {
		return noticeMsg{notice: <-ch}
	}
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case opDoneMsg:
		m.snap = m.orch.Snapshot()
		m.loaded = true
		m.clampCursor()
		return m, nil
	case noticeMsg:
		m.alert = msg.notice.Message
		return m, waitForNotice(m.orch.Notices())
	}
	return m, nil
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// A pending alert blocks everything until dismissed.
	if m.alert != "" {
		switch key {
		case "enter", "esc":
			m.alert = ""
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	if m.inserting {
		return m.handleInsertKey(msg)
	}

	if m.showHelp {
		switch key {
		case "h", "?", "esc", "q":
			m.showHelp = false
		case "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	}

	// The remediation screen only offers retry and quit.
	if m.snap.ErrorKind == store.KindSchemaMissing {
		switch key {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r", "f5":
			return m, m.opCmd(func() { m.orch.Refresh(m.ctx) })
		}
		return m, nil
	}

	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "h", "?":
		m.showHelp = true
	case "r", "f5":
		return m, m.opCmd(func() { m.orch.Refresh(m.ctx) })
	case "a", "n":
		m.inserting = true
		m.input = ""
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.visible())-1 {
			m.cursor++
		}
	case " ", "enter":
		if t, ok := m.current(); ok {
			return m, m.opCmd(func() { m.orch.ToggleCompletion(m.ctx, t) })
		}
	case "d", "x":
		if t, ok := m.current(); ok {
			return m, m.opCmd(func() { m.orch.DeleteTask(m.ctx, t.ID) })
		}
	case "b":
		if t, ok := m.current(); ok {
			return m, m.opCmd(func() { m.orch.RequestBreakdown(m.ctx, t) })
		}
	case "esc":
		m.orch.ClearBreakdown()
		m.snap = m.orch.Snapshot()
	case "1":
		return m, m.setFilterCmd(task.FilterAll)
	case "2":
		return m, m.setFilterCmd(task.FilterActive)
	case "3":
		return m, m.setFilterCmd(task.FilterCompleted)
	}
	return m, nil
}

func (m *tuiModel) handleInsertKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.inserting = false
		m.input = ""
	case "enter":
		title := m.input
		m.inserting = false
		m.input = ""
		return m, m.opCmd(func() { m.orch.CreateTask(m.ctx, title) })
	case "backspace":
		if len(m.input) > 0 {
			runes := []rune(m.input)
			m.input = string(runes[:len(runes)-1])
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.input += string(msg.Runes)
		} else if msg.Type == tea.KeySpace {
			m.input += " "
		}
	}
	return m, nil
}

func (m *tuiModel) setFilterCmd(f task.Filter) tea.Cmd {
	m.orch.SetFilter(f)
	m.snap = m.orch.Snapshot()
	m.clampCursor()
	return nil
}

func (m *tuiModel) visible() []task.Task {
	return m.snap.VisibleTasks()
}

func (m *tuiModel) current() (task.Task, bool) {
	visible := m.visible()
	if m.cursor < 0 || m.cursor >= len(visible) {
		return task.Task{}, false
	}
	return visible[m.cursor], true
}

func (m *tuiModel) clampCursor() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *tuiModel) View() string {
	var b strings.Builder
	writeTitle(&b, m.snap)

	if m.snap.ErrorKind == store.KindSchemaMissing {
		writeSchemaMissing(&b, m.snap)
		return b.String()
	}

	if m.showHelp {
		writeHelp(&b)
		writeFooter(&b)
		return b.String()
	}

	if m.snap.ErrorKind == store.KindFailure {
		writeErrorBanner(&b, m.snap.ErrorMsg)
	}

	if m.inserting {
		writeInput(&b, m.input)
	}

	writeFilterBar(&b, m.snap.Filter)

	if !m.loaded {
		b.WriteString("\nLoading tasks...\n")
		writeFooter(&b)
		return b.String()
	}

	writeTasks(&b, m.visible(), m.cursor, m.snap)

	if m.alert != "" {
		writeAlert(&b, m.alert)
	}
	writeFooter(&b)
	return b.String()
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, _ := f.Stat()
	return (info.Mode() & os.ModeCharDevice) != 0
}
