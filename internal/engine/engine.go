// Package engine orchestrates workspace operations: it owns transactions,
// defaulting, validation, and the activity trail, and leaves raw SQL to the
// repo layer.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"fundline/internal/activity"
	"fundline/internal/board"
	"fundline/internal/domain"
	"fundline/internal/repo"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrTransition = errors.New("stage transition not allowed")
)

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Activity activity.Writer
	Log      *logrus.Logger

	// Now and NewID are overridable for deterministic tests.
	Now   func() time.Time
	NewID func() string

	// Defaults applied when a create omits status or priority.
	DefaultStatus   domain.Status
	DefaultPriority domain.Priority
}

func New(db *sql.DB, log *logrus.Logger) *Engine {
	if log == nil {
		log = logrus.New()
	}
	now := time.Now
	return &Engine{
		DB:              db,
		Repo:            repo.Repo{DB: db},
		Activity:        activity.Writer{DB: db, Now: now},
		Log:             log,
		Now:             now,
		NewID:           uuid.NewString,
		DefaultStatus:   domain.StatusBacklog,
		DefaultPriority: domain.PriorityMedium,
	}
}

func (e *Engine) now() string {
	return e.Now().UTC().Format(time.RFC3339)
}

// --- tasks ---

type CreateTaskInput struct {
	Title          string
	Description    string
	Status         string
	Priority       string
	Category       string
	Phase          string
	EstimatedHours *float64
	DueDate        *string
	AssignedTo     *string
}

// CreateTask inserts a task at the tail of its column.
func (e *Engine) CreateTask(ctx context.Context, actorID string, in CreateTaskInput) (domain.Task, error) {
	var t domain.Task
	if in.Title == "" {
		return t, fmt.Errorf("%w: title is required", ErrValidation)
	}
	status := e.DefaultStatus
	if in.Status != "" {
		st, err := domain.ParseStatus(in.Status)
		if err != nil {
			return t, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		status = st
	}
	priority := e.DefaultPriority
	if in.Priority != "" {
		pr, err := domain.ParsePriority(in.Priority)
		if err != nil {
			return t, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		priority = pr
	}

	ts := e.now()
	t = domain.Task{
		ID:             e.NewID(),
		Title:          in.Title,
		Description:    in.Description,
		Status:         status,
		Priority:       priority,
		Category:       in.Category,
		Phase:          in.Phase,
		EstimatedHours: in.EstimatedHours,
		DueDate:        in.DueDate,
		CreatedBy:      actorID,
		AssignedTo:     in.AssignedTo,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()

	max, err := e.Repo.MaxPosition(ctx, tx, status)
	if err != nil {
		return t, err
	}
	t.Position = max + 1
	if err := e.Repo.InsertTask(ctx, tx, t); err != nil {
		return t, err
	}
	return t, tx.Commit()
}

type UpdateTaskInput struct {
	Title          *string
	Description    *string
	Status         *string
	Priority       *string
	Category       *string
	Phase          *string
	EstimatedHours *float64
	ActualHours    *float64
	DueDate        *string
	AssignedTo     *string
}

// UpdateTask applies a partial update. A status change through here behaves
// like dropping the card at the tail of the new column: it appends, renumbers
// the old column, and records a status_change activity entry.
func (e *Engine) UpdateTask(ctx context.Context, actorID, id string, in UpdateTaskInput) (domain.Task, error) {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return t, err
	}
	oldStatus := t.Status

	if in.Title != nil {
		if *in.Title == "" {
			return t, fmt.Errorf("%w: title is required", ErrValidation)
		}
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		st, err := domain.ParseStatus(*in.Status)
		if err != nil {
			return t, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		t.Status = st
	}
	if in.Priority != nil {
		pr, err := domain.ParsePriority(*in.Priority)
		if err != nil {
			return t, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		t.Priority = pr
	}
	if in.Category != nil {
		t.Category = *in.Category
	}
	if in.Phase != nil {
		t.Phase = *in.Phase
	}
	if in.EstimatedHours != nil {
		t.EstimatedHours = in.EstimatedHours
	}
	if in.ActualHours != nil {
		t.ActualHours = in.ActualHours
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	if in.AssignedTo != nil {
		t.AssignedTo = in.AssignedTo
	}
	t.UpdatedAt = e.now()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return t, err
	}
	defer tx.Rollback()

	statusChanged := t.Status != oldStatus
	if statusChanged {
		max, err := e.Repo.MaxPosition(ctx, tx, t.Status)
		if err != nil {
			return t, err
		}
		t.Position = max + 1
	}
	if err := e.Repo.UpdateTask(ctx, tx, t); err != nil {
		return t, err
	}
	if statusChanged {
		if err := e.renumberColumn(ctx, tx, oldStatus); err != nil {
			return t, err
		}
		if err := e.Activity.Append(ctx, tx, t.ID, actorID, activity.ActionStatusChange,
			"status", oldStatus.Label(), t.Status.Label()); err != nil {
			return t, err
		}
	}
	return t, tx.Commit()
}

func (e *Engine) DeleteTask(ctx context.Context, id string) error {
	t, err := e.Repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id); err != nil {
		return err
	}
	if err := e.renumberColumn(ctx, tx, t.Status); err != nil {
		return err
	}
	return tx.Commit()
}

// MoveTask is the server-side drop commit: it runs the reducer against the
// current board and applies every changed placement plus the activity entry in
// a single transaction.
func (e *Engine) MoveTask(ctx context.Context, actorID, activeID, overID string) ([]domain.Task, error) {
	tasks, err := e.Repo.ListTasks(ctx, repo.TaskFilters{})
	if err != nil {
		return nil, err
	}
	res := board.ComputeMove(tasks, activeID, overID)
	if !res.Moved {
		if findByID(tasks, activeID) == nil {
			return nil, repo.ErrNotFound
		}
		return tasks, nil
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ts := e.now()
	for _, t := range board.Diff(tasks, res.Tasks) {
		if err := e.Repo.UpdateTaskPlacement(ctx, tx, t.ID, t.Status, t.Position, ts); err != nil {
			return nil, err
		}
	}
	if res.StatusChanged {
		if err := e.Activity.Append(ctx, tx, activeID, actorID, activity.ActionStatusChange,
			"status", res.OldStatus.Label(), res.NewStatus.Label()); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res.Tasks, nil
}

// AddComment creates an immutable comment and its activity entry together.
func (e *Engine) AddComment(ctx context.Context, actorID, taskID, content string) (domain.Comment, error) {
	var c domain.Comment
	if content == "" {
		return c, fmt.Errorf("%w: content is required", ErrValidation)
	}
	if _, err := e.Repo.GetTask(ctx, taskID); err != nil {
		return c, err
	}
	c = domain.Comment{
		ID:        e.NewID(),
		TaskID:    taskID,
		AuthorID:  actorID,
		Content:   content,
		CreatedAt: e.now(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertComment(ctx, tx, c); err != nil {
		return c, err
	}
	if err := e.Activity.Append(ctx, tx, taskID, actorID, activity.ActionCommentAdded, "", "", ""); err != nil {
		return c, err
	}
	return c, tx.Commit()
}

// renumberColumn rewrites a column's positions to dense 0..n-1 preserving the
// current order.
func (e *Engine) renumberColumn(ctx context.Context, tx *sql.Tx, status domain.Status) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM tasks WHERE status=? ORDER BY position, id`, string(status))
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for idx, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET position=? WHERE id=?`, idx, id); err != nil {
			return err
		}
	}
	return nil
}

func findByID(tasks []domain.Task, id string) *domain.Task {
	for i := range tasks {
		if tasks[i].ID == id {
			return &tasks[i]
		}
	}
	return nil
}

// --- board.Gateway ---

// gateway adapts the engine to the drag controller's persistence surface,
// binding the acting user.
type gateway struct {
	e       *Engine
	actorID string
}

func (e *Engine) Gateway(actorID string) board.Gateway {
	return gateway{e: e, actorID: actorID}
}

func (g gateway) UpdateTaskPlacement(ctx context.Context, id string, status domain.Status, position int) error {
	tx, err := g.e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := g.e.Repo.UpdateTaskPlacement(ctx, tx, id, status, position, g.e.now()); err != nil {
		return err
	}
	return tx.Commit()
}

func (g gateway) AppendActivity(ctx context.Context, taskID, action, fieldName, oldValue, newValue string) error {
	tx, err := g.e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := g.e.Activity.Append(ctx, tx, taskID, g.actorID, action, fieldName, oldValue, newValue); err != nil {
		return err
	}
	return tx.Commit()
}

// --- dictionaries ---

func (e *Engine) CreatePhase(ctx context.Context, name string) (domain.Phase, error) {
	var p domain.Phase
	if name == "" {
		return p, fmt.Errorf("%w: name is required", ErrValidation)
	}
	pos, err := e.Repo.NextDictPosition(ctx, "phases")
	if err != nil {
		return p, err
	}
	p = domain.Phase{ID: e.NewID(), Name: name, Position: pos}
	return p, e.Repo.InsertPhase(ctx, p)
}

func (e *Engine) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	var c domain.Category
	if name == "" {
		return c, fmt.Errorf("%w: name is required", ErrValidation)
	}
	pos, err := e.Repo.NextDictPosition(ctx, "categories")
	if err != nil {
		return c, err
	}
	c = domain.Category{ID: e.NewID(), Name: name, Position: pos}
	return c, e.Repo.InsertCategory(ctx, c)
}

// SeedDictionaries inserts the configured default phases and categories into
// an empty workspace. Existing entries are left alone.
func (e *Engine) SeedDictionaries(ctx context.Context, phases, categories []string) error {
	existing, err := e.Repo.ListPhases(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, name := range phases {
			if _, err := e.CreatePhase(ctx, name); err != nil {
				return err
			}
		}
	}
	cats, err := e.Repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		for _, name := range categories {
			if _, err := e.CreateCategory(ctx, name); err != nil {
				return err
			}
		}
	}
	return nil
}
