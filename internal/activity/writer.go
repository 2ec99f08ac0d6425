// Package activity appends audit entries to a task's activity log. Entries
// are written inside the caller's transaction and are never updated or
// deleted.
package activity

import (
	"context"
	"database/sql"
	"time"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

const (
	ActionStatusChange = "status_change"
	ActionCommentAdded = "comment_added"
	ActionDueSoon      = "due_soon"
)

func (w Writer) Append(ctx context.Context, tx *sql.Tx, taskID, actorID, action, fieldName, oldValue, newValue string) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO task_activity(task_id,actor_id,action,field_name,old_value,new_value,created_at) VALUES (?,?,?,?,?,?,?)`,
		taskID, actorID, action, nullable(fieldName), nullable(oldValue), nullable(newValue), ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
