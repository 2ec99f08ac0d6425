package board_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/board"
	"fundline/internal/domain"
)

type placement struct {
	ID       string
	Status   domain.Status
	Position int
}

type fakeGateway struct {
	placements []placement
	activity   []string
	failOn     map[string]error
}

func (g *fakeGateway) UpdateTaskPlacement(_ context.Context, id string, status domain.Status, position int) error {
	if err, ok := g.failOn[id]; ok {
		return err
	}
	g.placements = append(g.placements, placement{id, status, position})
	return nil
}

func (g *fakeGateway) AppendActivity(_ context.Context, taskID, action, fieldName, oldValue, newValue string) error {
	g.activity = append(g.activity, fmt.Sprintf("%s %s %s:%s->%s", taskID, action, fieldName, oldValue, newValue))
	return nil
}

func boardFixture() []domain.Task {
	return []domain.Task{
		task("a", domain.StatusTodo, 0),
		task("b", domain.StatusTodo, 1),
		task("x", domain.StatusInProgress, 0),
	}
}

func TestControllerDropCommitsDiff(t *testing.T) {
	gw := &fakeGateway{}
	c := board.NewController(gw, boardFixture(), nil)

	require.True(t, c.DragStart("a"))
	assert.Equal(t, board.StateDragging, c.State())

	require.NoError(t, c.Drop(context.Background(), "x"))
	assert.Equal(t, board.StateIdle, c.State())

	// a lands at the in_progress head, x shifts down, b closes the todo gap
	assert.ElementsMatch(t, []placement{
		{"a", domain.StatusInProgress, 0},
		{"x", domain.StatusInProgress, 1},
		{"b", domain.StatusTodo, 0},
	}, gw.placements)
	require.Len(t, gw.activity, 1)
	assert.Equal(t, "a status_change status:To Do->In Progress", gw.activity[0])
	assert.Equal(t, []string{"a", "x"}, columnIDs(c.Tasks(), domain.StatusInProgress))
}

func TestControllerSameColumnDropSkipsActivity(t *testing.T) {
	gw := &fakeGateway{}
	c := board.NewController(gw, boardFixture(), nil)

	require.True(t, c.DragStart("a"))
	require.NoError(t, c.Drop(context.Background(), "b"))

	assert.NotEmpty(t, gw.placements)
	assert.Empty(t, gw.activity, "no column change, no activity entry")
}

func TestControllerDropAtOwnPositionWritesNothing(t *testing.T) {
	gw := &fakeGateway{}
	c := board.NewController(gw, boardFixture(), nil)

	// b is already the todo tail, so dropping it back on its column is a
	// committed gesture with an empty diff
	require.True(t, c.DragStart("b"))
	require.NoError(t, c.Drop(context.Background(), "todo"))

	assert.Empty(t, gw.placements)
	assert.Empty(t, gw.activity)
	assert.Equal(t, board.StateIdle, c.State())
	assert.Equal(t, []string{"a", "b"}, columnIDs(c.Tasks(), domain.StatusTodo))
}

func TestControllerCancelRestoresSnapshot(t *testing.T) {
	gw := &fakeGateway{}
	c := board.NewController(gw, boardFixture(), nil)

	require.True(t, c.DragStart("a"))
	c.DragOver("x")
	assert.Equal(t, []string{"a", "x"}, columnIDs(c.Tasks(), domain.StatusInProgress))

	c.Cancel()
	assert.Equal(t, board.StateIdle, c.State())
	assert.Empty(t, gw.placements)
	assert.Equal(t, []string{"x"}, columnIDs(c.Tasks(), domain.StatusInProgress))
	assert.Equal(t, []string{"a", "b"}, columnIDs(c.Tasks(), domain.StatusTodo))
}

func TestControllerStaleDropDiscardsGesture(t *testing.T) {
	gw := &fakeGateway{}
	c := board.NewController(gw, boardFixture(), nil)

	require.True(t, c.DragStart("a"))
	require.NoError(t, c.Drop(context.Background(), "ghost"))

	assert.Empty(t, gw.placements)
	assert.Equal(t, []string{"a", "b"}, columnIDs(c.Tasks(), domain.StatusTodo))
}

func TestControllerCommitFailureRollsBack(t *testing.T) {
	boom := errors.New("boom")
	gw := &fakeGateway{failOn: map[string]error{"a": boom}}
	c := board.NewController(gw, boardFixture(), nil)

	require.True(t, c.DragStart("a"))
	err := c.Drop(context.Background(), "x")
	require.ErrorIs(t, err, boom)

	// local view falls back to the committed snapshot and no activity is logged
	assert.Equal(t, []string{"a", "b"}, columnIDs(c.Tasks(), domain.StatusTodo))
	assert.Empty(t, gw.activity)
	assert.Equal(t, board.StateIdle, c.State())
}

func TestControllerRejectsUnknownDragStart(t *testing.T) {
	c := board.NewController(&fakeGateway{}, boardFixture(), nil)
	assert.False(t, c.DragStart("ghost"))
	assert.Equal(t, board.StateIdle, c.State())
}

func TestControllerSingleGestureAtATime(t *testing.T) {
	c := board.NewController(&fakeGateway{}, boardFixture(), nil)
	require.True(t, c.DragStart("a"))
	assert.False(t, c.DragStart("b"))
}

func TestControllerResetIgnoredDuringGesture(t *testing.T) {
	c := board.NewController(&fakeGateway{}, boardFixture(), nil)
	require.True(t, c.DragStart("a"))
	c.Reset([]domain.Task{task("z", domain.StatusDone, 0)})
	c.Cancel()
	assert.Equal(t, []string{"a", "b"}, columnIDs(c.Tasks(), domain.StatusTodo))
}
