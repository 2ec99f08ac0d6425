package board_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/board"
	"fundline/internal/domain"
)

func task(id string, status domain.Status, pos int) domain.Task {
	return domain.Task{ID: id, Title: id, Status: status, Priority: domain.PriorityMedium, Position: pos}
}

// columnIDs returns the ids of one column ordered by position.
func columnIDs(tasks []domain.Task, status domain.Status) []string {
	cols := board.GroupByStatus(tasks)
	var ids []string
	for _, t := range cols[status] {
		ids = append(ids, t.ID)
	}
	return ids
}

func TestMoveWithinColumn(t *testing.T) {
	tasks := []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("b", domain.StatusTodo, 1),
		task("c", domain.StatusTodo, 2),
	}

	// dragging a onto c lands a where c was before the removal shifted things
	res := board.ComputeMove(tasks, "a", "c")
	require.True(t, res.Moved)
	assert.False(t, res.StatusChanged)
	assert.Equal(t, []string{"b", "c", "a"}, columnIDs(res.Tasks, domain.StatusTodo))

	// dragging c onto a splices c in at a's pre-removal slot
	res = board.ComputeMove(res.Tasks, "c", "a")
	require.True(t, res.Moved)
	assert.Equal(t, []string{"b", "a", "c"}, columnIDs(res.Tasks, domain.StatusTodo))
}

func TestMoveAcrossColumns(t *testing.T) {
	tasks := []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("b", domain.StatusTodo, 1),
		task("x", domain.StatusInProgress, 0),
		task("y", domain.StatusInProgress, 1),
	}

	res := board.ComputeMove(tasks, "a", "x")
	require.True(t, res.Moved)
	assert.True(t, res.StatusChanged)
	assert.Equal(t, domain.StatusTodo, res.OldStatus)
	assert.Equal(t, domain.StatusInProgress, res.NewStatus)
	assert.Equal(t, []string{"a", "x", "y"}, columnIDs(res.Tasks, domain.StatusInProgress))
	assert.Equal(t, []string{"b"}, columnIDs(res.Tasks, domain.StatusTodo))
}

func TestMoveOntoBareColumnAppends(t *testing.T) {
	tasks := []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("x", domain.StatusDone, 0),
	}

	res := board.ComputeMove(tasks, "a", "done")
	require.True(t, res.Moved)
	assert.Equal(t, []string{"x", "a"}, columnIDs(res.Tasks, domain.StatusDone))

	// empty column still accepts a drop
	res = board.ComputeMove(res.Tasks, "x", "backlog")
	require.True(t, res.Moved)
	assert.Equal(t, []string{"x"}, columnIDs(res.Tasks, domain.StatusBacklog))
}

func TestMovePositionsStayDense(t *testing.T) {
	tasks := []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("b", domain.StatusTodo, 1),
		task("c", domain.StatusTodo, 2),
		task("x", domain.StatusReview, 0),
	}

	res := board.ComputeMove(tasks, "b", "x")
	require.True(t, res.Moved)
	for _, status := range domain.Statuses() {
		col := board.GroupByStatus(res.Tasks)[status]
		for i, got := range col {
			assert.Equal(t, i, got.Position, "column %s not dense", status)
		}
	}
	assert.Len(t, res.Tasks, len(tasks), "moves never create or drop tasks")
}

func TestMoveDropAtOwnPositionChangesNothing(t *testing.T) {
	tasks := []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("b", domain.StatusTodo, 1),
		task("x", domain.StatusDone, 0),
	}

	// b is already the tail of todo; dropping it on its own column lands it
	// exactly where it was
	res := board.ComputeMove(tasks, "b", "todo")
	require.True(t, res.Moved)
	assert.False(t, res.StatusChanged)
	assert.Equal(t, tasks, res.Tasks)
	assert.Empty(t, board.Diff(tasks, res.Tasks), "identical placements mean nothing to write")
}

func TestMoveStaleReferencesAreNoops(t *testing.T) {
	tasks := []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("b", domain.StatusTodo, 1),
	}

	for _, tc := range []struct{ active, over string }{
		{"ghost", "a"},
		{"a", "ghost"},
		{"a", "a"},
		{"", "a"},
		{"a", ""},
	} {
		res := board.ComputeMove(tasks, tc.active, tc.over)
		assert.False(t, res.Moved, "active=%q over=%q", tc.active, tc.over)
		assert.Equal(t, tasks, res.Tasks)
	}
}

func TestMoveDoesNotMutateInput(t *testing.T) {
	tasks := []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("b", domain.StatusTodo, 1),
	}
	_ = board.ComputeMove(tasks, "a", "b")
	assert.Equal(t, 0, tasks[0].Position)
	assert.Equal(t, domain.StatusTodo, tasks[0].Status)
}

func TestAppendPosition(t *testing.T) {
	tasks := []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("b", domain.StatusTodo, 1),
	}
	assert.Equal(t, 2, board.AppendPosition(tasks, domain.StatusTodo))
	assert.Equal(t, 0, board.AppendPosition(tasks, domain.StatusDone))
}

func TestDiff(t *testing.T) {
	prev := []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("b", domain.StatusTodo, 1),
	}
	next := []domain.Task{
		task("a", domain.StatusDone, 0),
		task("b", domain.StatusTodo, 0),
		task("c", domain.StatusTodo, 1),
	}
	changed := board.Diff(prev, next)
	var ids []string
	for _, c := range changed {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
}
