package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"fundline/internal/domain"
)

// Gateway is the persistence surface the controller commits through. The
// engine satisfies it directly; the Go SDK satisfies it over HTTP.
type Gateway interface {
	UpdateTaskPlacement(ctx context.Context, id string, status domain.Status, position int) error
	AppendActivity(ctx context.Context, taskID, action, fieldName, oldValue, newValue string) error
}

// State is the drag gesture phase.
type State int

const (
	StateIdle State = iota
	StateDragging
	StateCommitting
)

// Controller runs one drag gesture at a time over a local task snapshot:
// optimistic reducer applications while hovering, a diff-and-write commit on
// drop, and snapshot restore on cancel or commit failure. It is meant for a
// single event loop and is not safe for concurrent use.
type Controller struct {
	gateway  Gateway
	log      *logrus.Logger
	state    State
	snapshot []domain.Task // last committed state
	working  []domain.Task // optimistic state during a gesture
	activeID string
	from     domain.Status
}

func NewController(g Gateway, tasks []domain.Task, log *logrus.Logger) *Controller {
	if log == nil {
		log = logrus.New()
	}
	return &Controller{
		gateway:  g,
		log:      log,
		snapshot: cloneTasks(tasks),
	}
}

func (c *Controller) State() State { return c.state }

// Tasks returns the current local view: the optimistic working set during a
// gesture, the committed snapshot otherwise.
func (c *Controller) Tasks() []domain.Task {
	if c.state != StateIdle {
		return cloneTasks(c.working)
	}
	return cloneTasks(c.snapshot)
}

// Reset replaces the committed snapshot, e.g. after a refetch. Ignored while
// a gesture is in flight.
func (c *Controller) Reset(tasks []domain.Task) {
	if c.state != StateIdle {
		return
	}
	c.snapshot = cloneTasks(tasks)
}

// DragStart begins a gesture. Starting on an unknown task is a stale
// reference and leaves the controller idle.
func (c *Controller) DragStart(activeID string) bool {
	if c.state != StateIdle {
		return false
	}
	t := findTask(c.snapshot, activeID)
	if t == nil {
		c.log.WithField("task_id", activeID).Warn("drag start on unknown task, ignoring")
		return false
	}
	c.state = StateDragging
	c.activeID = activeID
	c.from = t.Status
	c.working = cloneTasks(c.snapshot)
	return true
}

// DragOver applies the hover target optimistically so the board renders the
// card in its prospective slot. No writes happen here.
func (c *Controller) DragOver(overID string) {
	if c.state != StateDragging {
		return
	}
	res := ComputeMove(c.working, c.activeID, overID)
	if res.Moved {
		c.working = res.Tasks
	}
}

// Cancel aborts the gesture and restores the committed snapshot. No remote
// calls are made.
func (c *Controller) Cancel() {
	if c.state != StateDragging {
		return
	}
	c.state = StateIdle
	c.activeID = ""
	c.working = nil
}

// Drop commits the gesture: one final reducer pass against the true drop
// target, then one placement write per task whose status or position changed
// since the last committed snapshot. The per-task writes carry no ordering
// guarantee. On any write failure the snapshot is restored locally and the
// error returned so the caller can offer a retry; on success a single
// status_change activity entry is appended when the active task changed
// columns between drag start and commit.
func (c *Controller) Drop(ctx context.Context, overID string) error {
	if c.state != StateDragging {
		return errors.New("no drag in progress")
	}
	c.state = StateCommitting
	defer func() {
		c.state = StateIdle
		c.activeID = ""
		c.working = nil
	}()

	res := ComputeMove(c.working, c.activeID, overID)
	if !res.Moved {
		// stale drop target; keep the snapshot as-is
		c.log.WithFields(logrus.Fields{"task_id": c.activeID, "over_id": overID}).
			Warn("stale drop target, discarding gesture")
		return nil
	}

	var errs []error
	for _, t := range Diff(c.snapshot, res.Tasks) {
		if err := c.gateway.UpdateTaskPlacement(ctx, t.ID, t.Status, t.Position); err != nil {
			c.log.WithError(err).WithField("task_id", t.ID).Error("placement write failed")
			errs = append(errs, fmt.Errorf("update %s: %w", t.ID, err))
		}
	}
	if len(errs) > 0 {
		// compensate: the board falls back to the last committed state
		return errors.Join(errs...)
	}

	active := findTask(res.Tasks, c.activeID)
	if active != nil && active.Status != c.from {
		if err := c.gateway.AppendActivity(ctx, c.activeID, "status_change", "status",
			c.from.Label(), active.Status.Label()); err != nil {
			c.log.WithError(err).WithField("task_id", c.activeID).Error("activity write failed")
		}
	}
	c.snapshot = res.Tasks
	return nil
}

func cloneTasks(tasks []domain.Task) []domain.Task {
	out := make([]domain.Task, len(tasks))
	copy(out, tasks)
	return out
}
