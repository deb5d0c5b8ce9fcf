package task

// Filter selects which tasks are visible.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Valid returns true if f is one of the known filter modes.
func (f Filter) Valid() bool {
	switch f {
	case FilterAll, FilterActive, FilterCompleted:
		return true
	}
	return false
}

// Visible returns the subset of tasks matching the filter, preserving order.
// The input slice is never mutated.
func Visible(tasks []Task, f Filter) []Task {
	if f == FilterAll || f == "" {
		out := make([]Task, len(tasks))
		copy(out, tasks)
		return out
	}
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		switch f {
		case FilterActive:
			if !t.IsCompleted {
				out = append(out, t)
			}
		case FilterCompleted:
			if t.IsCompleted {
				out = append(out, t)
			}
		}
	}
	return out
}

// CountActive returns the number of tasks not yet completed.
func CountActive(tasks []Task) int {
	n := 0
	for _, t := range tasks {
		if !t.IsCompleted {
			n++
		}
	}
	return n
}
