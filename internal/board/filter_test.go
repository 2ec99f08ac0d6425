package board_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fundline/internal/board"
	"fundline/internal/domain"
)

func TestFilterMatchesAllActiveFields(t *testing.T) {
	t1 := domain.Task{ID: "1", Title: "Call Acme Roofing", Description: "follow up on stips",
		Status: domain.StatusTodo, Priority: domain.PriorityHigh, Phase: "Underwriting", Category: "Operations"}
	t2 := domain.Task{ID: "2", Title: "Renew ad campaign",
		Status: domain.StatusTodo, Priority: domain.PriorityLow, Phase: "Intake", Category: "Marketing"}

	tasks := []domain.Task{t1, t2}

	assert.Len(t, board.Filter{}.Apply(tasks), 2)
	assert.Equal(t, []domain.Task{t1}, board.Filter{Search: "acme"}.Apply(tasks))
	assert.Equal(t, []domain.Task{t1}, board.Filter{Search: "STIPS"}.Apply(tasks), "search is case-insensitive and spans description")
	assert.Equal(t, []domain.Task{t2}, board.Filter{Phase: "Intake"}.Apply(tasks))
	assert.Equal(t, []domain.Task{t1}, board.Filter{Category: "Operations", Priority: "high"}.Apply(tasks))
	assert.Empty(t, board.Filter{Search: "acme", Category: "Marketing"}.Apply(tasks), "active fields AND together")
}

func TestFilterWithoutMatchesYieldsEmptyBoard(t *testing.T) {
	tasks := []domain.Task{
		{ID: "a", Title: "Call Acme", Status: domain.StatusTodo, Position: 0},
		{ID: "b", Title: "Renew campaign", Status: domain.StatusDone, Position: 0},
	}
	cols := board.GroupByStatus(board.Filter{Search: "no such task"}.Apply(tasks))

	assert.Len(t, cols, len(domain.Statuses()))
	for status, col := range cols {
		assert.Empty(t, col, "column %s", status)
	}
}

func TestGroupByStatusOrdersAndFillsColumns(t *testing.T) {
	tasks := []domain.Task{
		{ID: "b", Status: domain.StatusTodo, Position: 1},
		{ID: "a", Status: domain.StatusTodo, Position: 0},
		{ID: "z", Status: domain.StatusDone, Position: 0},
	}
	cols := board.GroupByStatus(tasks)

	assert.Len(t, cols, len(domain.Statuses()), "every column present even when empty")
	assert.Equal(t, "a", cols[domain.StatusTodo][0].ID)
	assert.Equal(t, "b", cols[domain.StatusTodo][1].ID)
	assert.Empty(t, cols[domain.StatusBacklog])
	assert.Len(t, cols[domain.StatusDone], 1)
}
