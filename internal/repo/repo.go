package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"fundline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const taskColumns = `id,title,description,status,priority,category,phase,position,estimated_hours,actual_hours,due_date,created_by,assigned_to,created_at,updated_at`

func scanTask(scan func(dest ...any) error) (domain.Task, error) {
	var t domain.Task
	var description, category, phase, dueDate, assignedTo sql.NullString
	var status, priority string
	var estimated, actual sql.NullFloat64
	err := scan(&t.ID, &t.Title, &description, &status, &priority, &category, &phase, &t.Position,
		&estimated, &actual, &dueDate, &t.CreatedBy, &assignedTo, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return t, err
	}
	st, err := domain.ParseStatus(status)
	if err != nil {
		return t, err
	}
	pr, err := domain.ParsePriority(priority)
	if err != nil {
		return t, err
	}
	t.Status = st
	t.Priority = pr
	if description.Valid {
		t.Description = description.String
	}
	if category.Valid {
		t.Category = category.String
	}
	if phase.Valid {
		t.Phase = phase.String
	}
	if dueDate.Valid {
		t.DueDate = &dueDate.String
	}
	if assignedTo.Valid {
		t.AssignedTo = &assignedTo.String
	}
	if estimated.Valid {
		t.EstimatedHours = &estimated.Float64
	}
	if actual.Valid {
		t.ActualHours = &actual.Float64
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(`+taskColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, nullable(t.Description), string(t.Status), string(t.Priority), nullable(t.Category), nullable(t.Phase),
		t.Position, nullableFloatPtr(t.EstimatedHours), nullableFloatPtr(t.ActualHours), nullableStringPtr(t.DueDate),
		t.CreatedBy, nullableStringPtr(t.AssignedTo), t.CreatedAt, t.UpdatedAt)
	return err
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, status=?, priority=?, category=?, phase=?, position=?, estimated_hours=?, actual_hours=?, due_date=?, assigned_to=?, updated_at=? WHERE id=?`,
		t.Title, nullable(t.Description), string(t.Status), string(t.Priority), nullable(t.Category), nullable(t.Phase),
		t.Position, nullableFloatPtr(t.EstimatedHours), nullableFloatPtr(t.ActualHours), nullableStringPtr(t.DueDate),
		nullableStringPtr(t.AssignedTo), t.UpdatedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTaskPlacement writes only the board placement of a task; it is the
// per-task write of a move commit.
func (r Repo) UpdateTaskPlacement(ctx context.Context, tx *sql.Tx, id string, status domain.Status, position int, updatedAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET status=?, position=?, updated_at=? WHERE id=?`,
		string(status), position, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id string) (domain.Task, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id=?`, id)
	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	return t, err
}

type TaskFilters struct {
	Status     string
	Priority   string
	Phase      string
	Category   string
	AssignedTo string
	Limit      int
}

// ListTasks returns board-valid tasks ordered by column and position. Rows
// with unrecognized status or priority never appear here; they are surfaced
// by ListQuarantined instead.
func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.Task, error) {
	clauses := []string{knownStatusClause, knownPriorityClause}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if f.Phase != "" {
		clauses = append(clauses, "phase=?")
		args = append(args, f.Phase)
	}
	if f.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, f.Category)
	}
	if f.AssignedTo != "" {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY status, position, id`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

const knownStatusClause = `status IN ('backlog','todo','in_progress','review','done')`
const knownPriorityClause = `priority IN ('low','medium','high','urgent')`

// QuarantinedTask is a raw row whose enum values fail validation. Kept out of
// the board but reported instead of silently dropped.
type QuarantinedTask struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

func (r Repo) ListQuarantined(ctx context.Context) ([]QuarantinedTask, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,title,status,priority FROM tasks WHERE NOT (`+knownStatusClause+`) OR NOT (`+knownPriorityClause+`) ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []QuarantinedTask
	for rows.Next() {
		var q QuarantinedTask
		if err := rows.Scan(&q.ID, &q.Title, &q.Status, &q.Priority); err != nil {
			return nil, err
		}
		res = append(res, q)
	}
	return res, rows.Err()
}

func (r Repo) DeleteTask(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MaxPosition returns the highest position in a column, or -1 when empty.
func (r Repo) MaxPosition(ctx context.Context, tx *sql.Tx, status domain.Status) (int, error) {
	var max sql.NullInt64
	err := tx.QueryRowContext(ctx, `SELECT MAX(position) FROM tasks WHERE status=?`, string(status)).Scan(&max)
	if err != nil {
		return -1, err
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

func (r Repo) CountTasksByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT status, count(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]int{}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		res[status] = count
	}
	return res, rows.Err()
}

// ListDueBetween returns unfinished tasks whose due date falls in [from, to],
// both YYYY-MM-DD inclusive.
func (r Repo) ListDueBetween(ctx context.Context, from, to string) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+knownStatusClause+` AND `+knownPriorityClause+
			` AND due_date IS NOT NULL AND due_date >= ? AND due_date <= ? AND status != 'done' ORDER BY due_date, id`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// --- comments ---

func (r Repo) InsertComment(ctx context.Context, tx *sql.Tx, c domain.Comment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO task_comments(id,task_id,author_id,content,created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.TaskID, c.AuthorID, c.Content, c.CreatedAt)
	return err
}

func (r Repo) ListComments(ctx context.Context, taskID string) ([]domain.Comment, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,task_id,author_id,content,created_at FROM task_comments WHERE task_id=? ORDER BY created_at, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// --- activity ---

func (r Repo) ListActivity(ctx context.Context, taskID string, limit int) ([]domain.ActivityEntry, error) {
	query := `SELECT id,task_id,actor_id,action,COALESCE(field_name,''),COALESCE(old_value,''),COALESCE(new_value,''),created_at FROM task_activity WHERE task_id=? ORDER BY id DESC`
	args := []any{taskID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ActivityEntry
	for rows.Next() {
		var e domain.ActivityEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.ActorID, &e.Action, &e.FieldName, &e.OldValue, &e.NewValue, &e.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// HasActivitySince reports whether a task already has an entry for an action
// at or after the given timestamp. Used to keep scheduled sweeps idempotent.
func (r Repo) HasActivitySince(ctx context.Context, taskID, action, since string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		`SELECT count(*) FROM task_activity WHERE task_id=? AND action=? AND created_at >= ?`,
		taskID, action, since).Scan(&n)
	return n > 0, err
}

// --- phases / categories ---

func (r Repo) InsertPhase(ctx context.Context, p domain.Phase) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO phases(id,name,position) VALUES (?,?,?)`, p.ID, p.Name, p.Position)
	return err
}

func (r Repo) ListPhases(ctx context.Context) ([]domain.Phase, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,position FROM phases ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Phase
	for rows.Next() {
		var p domain.Phase
		if err := rows.Scan(&p.ID, &p.Name, &p.Position); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) DeletePhase(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM phases WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertCategory(ctx context.Context, c domain.Category) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO categories(id,name,position) VALUES (?,?,?)`, c.ID, c.Name, c.Position)
	return err
}

func (r Repo) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,position FROM categories ORDER BY position, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Position); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func (r Repo) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM categories WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// NextDictPosition returns the next position for an ordered dictionary table.
func (r Repo) NextDictPosition(ctx context.Context, table string) (int, error) {
	if table != "phases" && table != "categories" {
		return 0, errors.New("unknown dictionary table")
	}
	var max sql.NullInt64
	if err := r.DB.QueryRowContext(ctx, `SELECT MAX(position) FROM `+table).Scan(&max); err != nil {
		return 0, err
	}
	if !max.Valid {
		return 0, nil
	}
	return int(max.Int64) + 1, nil
}

// --- helpers ---

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStringPtr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableFloatPtr(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
