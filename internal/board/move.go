// Package board holds the kanban board logic: the pure move reducer, the
// filter/grouping projection, and the drag gesture controller. Persistence is
// behind the Gateway interface so the same logic serves the engine, the SDK,
// and tests.
package board

import (
	"sort"

	"fundline/internal/domain"
)

// MoveResult is the outcome of one reducer call. Tasks is the full updated
// list; columns not touched by the move are returned as-is.
type MoveResult struct {
	Tasks         []domain.Task
	Moved         bool
	StatusChanged bool
	OldStatus     domain.Status
	NewStatus     domain.Status
}

// ComputeMove applies a drag of activeID onto overID, which is either a column
// id (one of the status values) or another task's id. The active task is
// spliced in immediately before the drop target, or appended when dropped on a
// bare column, and both affected columns are renumbered to dense 0..n-1
// positions. A missing active or over reference is a stale drag and yields an
// unchanged list with Moved=false.
func ComputeMove(tasks []domain.Task, activeID, overID string) MoveResult {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	noop := MoveResult{Tasks: out}

	if activeID == "" || overID == "" || activeID == overID {
		return noop
	}
	active := findTask(out, activeID)
	if active == nil {
		return noop
	}
	oldStatus := active.Status

	var targetStatus domain.Status
	overTaskID := ""
	if st, err := domain.ParseStatus(overID); err == nil {
		targetStatus = st
	} else {
		over := findTask(out, overID)
		if over == nil {
			return noop
		}
		targetStatus = over.Status
		overTaskID = over.ID
	}

	target := columnOrder(out, targetStatus)
	overIdx := len(target) // bare column drop appends
	if overTaskID != "" {
		overIdx = indexOf(target, overTaskID)
	}

	target = remove(target, activeID)
	if overIdx > len(target) {
		overIdx = len(target)
	}
	target = append(target[:overIdx], append([]string{activeID}, target[overIdx:]...)...)

	active.Status = targetStatus
	renumber(out, target)

	statusChanged := targetStatus != oldStatus
	if statusChanged {
		// close the gap the active task left behind
		renumber(out, columnOrder(out, oldStatus))
	}
	return MoveResult{
		Tasks:         out,
		Moved:         true,
		StatusChanged: statusChanged,
		OldStatus:     oldStatus,
		NewStatus:     targetStatus,
	}
}

// AppendPosition returns the position for a task newly added to a column:
// one past the current maximum, or 0 for an empty column.
func AppendPosition(tasks []domain.Task, status domain.Status) int {
	max := -1
	for _, t := range tasks {
		if t.Status == status && t.Position > max {
			max = t.Position
		}
	}
	return max + 1
}

// Diff returns the tasks in next whose status or position differ from their
// counterpart in prev. Tasks absent from prev are included.
func Diff(prev, next []domain.Task) []domain.Task {
	byID := make(map[string]domain.Task, len(prev))
	for _, t := range prev {
		byID[t.ID] = t
	}
	var changed []domain.Task
	for _, t := range next {
		old, ok := byID[t.ID]
		if !ok || old.Status != t.Status || old.Position != t.Position {
			changed = append(changed, t)
		}
	}
	return changed
}

func findTask(tasks []domain.Task, id string) *domain.Task {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
	}
	return nil
}

// columnOrder returns the ids of a column's tasks sorted by position.
func columnOrder(tasks []domain.Task, status domain.Status) []string {
	type slot struct {
		id  string
		pos int
	}
	var slots []slot
	for _, t := range tasks {
		if t.Status == status {
			slots = append(slots, slot{t.ID, t.Position})
		}
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].pos < slots[j].pos })
	ids := make([]string, len(slots))
	for i, s := range slots {
		ids[i] = s.id
	}
	return ids
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return len(ids)
}

func remove(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func renumber(tasks []domain.Task, order []string) {
	for idx, id := range order {
		if t := findTask(tasks, id); t != nil {
			t.Position = idx
		}
	}
}
