package board

import (
	"sort"
	"strings"

	"fundline/internal/domain"
)

// Filter narrows the board projection. Empty fields match everything; all
// active fields must match (AND).
type Filter struct {
	Search   string
	Phase    string
	Category string
	Priority string
}

func (f Filter) IsActive() bool {
	return f.Search != "" || f.Phase != "" || f.Category != "" || f.Priority != ""
}

// Matches reports whether the task passes every active filter. The search
// term is matched case-insensitively against title and description.
func (f Filter) Matches(t domain.Task) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(t.Title), q) &&
			!strings.Contains(strings.ToLower(t.Description), q) {
			return false
		}
	}
	if f.Phase != "" && t.Phase != f.Phase {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.Priority != "" && string(t.Priority) != f.Priority {
		return false
	}
	return true
}

// Apply returns the tasks passing the filter, preserving input order.
func (f Filter) Apply(tasks []domain.Task) []domain.Task {
	if !f.IsActive() {
		return tasks
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// GroupByStatus partitions tasks into the five fixed columns, each ordered by
// ascending position. Every column is present in the result even when empty.
// Callers are expected to hand in validated tasks only; the repo quarantines
// rows with unknown statuses before they reach the board.
func GroupByStatus(tasks []domain.Task) map[domain.Status][]domain.Task {
	cols := make(map[domain.Status][]domain.Task, len(domain.Statuses()))
	for _, s := range domain.Statuses() {
		cols[s] = []domain.Task{}
	}
	for _, t := range tasks {
		if _, ok := cols[t.Status]; ok {
			cols[t.Status] = append(cols[t.Status], t)
		}
	}
	for s := range cols {
		col := cols[s]
		sort.SliceStable(col, func(i, j int) bool { return col[i].Position < col[j].Position })
	}
	return cols
}
