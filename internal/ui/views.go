package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"smarttodo/internal/store"
	"smarttodo/internal/sync"
	"smarttodo/internal/task"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	doneStyle   = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	stepStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))

	priorityStyles = map[task.Priority]lipgloss.Style{
		task.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		task.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		task.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

func writeTitle(b *strings.Builder, snap sync.Snapshot) {
	b.WriteString(titleStyle.Render("AI Smart Todo"))
	if len(snap.Tasks) > 0 {
		left := task.CountActive(snap.Tasks)
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d tasks left", left)))
	}
	b.WriteString("\n\n")
}

func writeSchemaMissing(b *strings.Builder, snap sync.Snapshot) {
	b.WriteString(alertStyle.Render("Database table not found") + "\n\n")
	b.WriteString("The todos table has not been created yet. Run the SQL below\n")
	b.WriteString("in your Supabase SQL editor, then press r to retry.\n\n")
	for _, line := range strings.Split(store.SetupSQL, "\n") {
		b.WriteString("  " + stepStyle.Render(line) + "\n")
	}
	b.WriteString("\n")
	if snap.ErrorMsg != "" {
		b.WriteString(dimStyle.Render("error: "+snap.ErrorMsg) + "\n\n")
	}
	b.WriteString(dimStyle.Render("r retry | q quit") + "\n")
}

func writeErrorBanner(b *strings.Builder, msg string) {
	if msg == "" {
		msg = "Failed to reach the store"
	}
	b.WriteString(bannerStyle.Render("Error: "+msg) + dimStyle.Render("  (r to retry)") + "\n\n")
}

func writeInput(b *strings.Builder, input string) {
	b.WriteString("New task: " + input + cursorStyle.Render("_") + "\n")
	b.WriteString(dimStyle.Render("enter to add | esc to cancel") + "\n\n")
}

func writeFilterBar(b *strings.Builder, active task.Filter) {
	labels := []struct {
		key    string
		filter task.Filter
	}{
		{"1", task.FilterAll},
		{"2", task.FilterActive},
		{"3", task.FilterCompleted},
	}
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		label := fmt.Sprintf("%s:%s", l.key, l.filter)
		if l.filter == active || (active == "" && l.filter == task.FilterAll) {
			parts = append(parts, cursorStyle.Render("["+label+"]"))
		} else {
			parts = append(parts, dimStyle.Render(" "+label+" "))
		}
	}
	b.WriteString(strings.Join(parts, " ") + "\n")
}

func writeTasks(b *strings.Builder, visible []task.Task, cursor int, snap sync.Snapshot) {
	b.WriteString("\n")
	if len(visible) == 0 {
		b.WriteString(dimStyle.Render("  No tasks found") + "\n")
		return
	}
	for i, t := range visible {
		b.WriteString(formatTask(t, i == cursor, snap.ActiveAIID == t.ID))
		b.WriteString("\n")
		if snap.Breakdown != nil && snap.Breakdown.TaskID == t.ID {
			writeBreakdown(b, snap.Breakdown)
		}
	}
}

func formatTask(t task.Task, selected, thinking bool) string {
	marker := "  "
	if selected {
		marker = cursorStyle.Render("> ")
	}

	check := "[ ]"
	if t.IsCompleted {
		check = "[x]"
	}

	badge := priorityStyles[t.Priority].Render(strings.ToUpper(string(t.Priority)))
	title := t.Title
	if t.IsCompleted {
		title = doneStyle.Render(title)
	}

	line := fmt.Sprintf("%s%s %s  %s", marker, check, badge, title)
	if thinking {
		line += dimStyle.Render("  (thinking...)")
	}
	return line
}

func writeBreakdown(b *strings.Builder, breakdown *task.Breakdown) {
	b.WriteString(dimStyle.Render("      AI suggested steps (esc to dismiss)") + "\n")
	for i, step := range breakdown.Steps {
		b.WriteString(fmt.Sprintf("      %d. %s\n", i+1, stepStyle.Render(step.Step)))
		if step.Description != "" {
			b.WriteString("         " + dimStyle.Render(step.Description) + "\n")
		}
	}
}

func writeAlert(b *strings.Builder, msg string) {
	b.WriteString("\n" + alertStyle.Render("! "+msg) + "\n")
	b.WriteString(dimStyle.Render("enter to dismiss") + "\n")
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard Shortcuts\n\n")
	b.WriteString("  q, ctrl+c    Quit\n")
	b.WriteString("  a, n         Add a new task\n")
	b.WriteString("  j/k, arrows  Move cursor\n")
	b.WriteString("  space, enter Toggle completion\n")
	b.WriteString("  d, x         Delete task\n")
	b.WriteString("  b            AI breakdown for the selected task\n")
	b.WriteString("  esc          Dismiss breakdown\n")
	b.WriteString("  1 / 2 / 3    Filter: all / active / completed\n")
	b.WriteString("  r, F5        Refresh\n")
	b.WriteString("  h, ?         Toggle this help screen\n\n")
}

func writeFooter(b *strings.Builder) {
	b.WriteString("\n" + dimStyle.Render("a add | space toggle | d delete | b breakdown | 1/2/3 filter | h help | q quit") + "\n")
}
