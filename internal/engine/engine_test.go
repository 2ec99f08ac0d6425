package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"fundline/internal/activity"
	"fundline/internal/db"
	"fundline/internal/domain"
	"fundline/internal/engine"
	"fundline/internal/migrate"
	"fundline/internal/repo"
)

type testEnv struct {
	Engine *engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, nil)
	fixed := func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }
	eng.Now = fixed
	eng.Activity.Now = fixed
	seq := 0
	eng.NewID = func() string {
		seq++
		return fmt.Sprintf("id-%03d", seq)
	}
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func mustCreate(t *testing.T, env testEnv, title, status string) domain.Task {
	t.Helper()
	task, err := env.Engine.CreateTask(env.Ctx, "tester", engine.CreateTaskInput{Title: title, Status: status})
	if err != nil {
		t.Fatalf("create %s: %v", title, err)
	}
	return task
}

func TestCreateTaskAppendsToColumn(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, "first", "todo")
	b := mustCreate(t, env, "second", "todo")
	c := mustCreate(t, env, "other column", "done")

	if a.Position != 0 || b.Position != 1 {
		t.Fatalf("expected dense append, got %d and %d", a.Position, b.Position)
	}
	if c.Position != 0 {
		t.Fatalf("done column should start at 0, got %d", c.Position)
	}
	if a.CreatedAt != "2026-01-15T12:00:00Z" {
		t.Fatalf("timestamp: %s", a.CreatedAt)
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	env := newTestEnv(t)
	task, err := env.Engine.CreateTask(env.Ctx, "tester", engine.CreateTaskInput{Title: "bare"})
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != domain.StatusBacklog || task.Priority != domain.PriorityMedium {
		t.Fatalf("defaults: %s/%s", task.Status, task.Priority)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, "tester", engine.CreateTaskInput{}); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("missing title should fail validation, got %v", err)
	}
	if _, err := env.Engine.CreateTask(env.Ctx, "tester", engine.CreateTaskInput{Title: "x", Status: "bogus"}); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("unknown status should fail validation, got %v", err)
	}
}

func TestUpdateTaskStatusChangeAppendsAndLogs(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, "a", "todo")
	mustCreate(t, env, "b", "todo")
	mustCreate(t, env, "x", "in_progress")

	status := "in_progress"
	moved, err := env.Engine.UpdateTask(env.Ctx, "tester", a.ID, engine.UpdateTaskInput{Status: &status})
	if err != nil {
		t.Fatal(err)
	}
	if moved.Status != domain.StatusInProgress || moved.Position != 1 {
		t.Fatalf("expected tail of in_progress, got %s/%d", moved.Status, moved.Position)
	}

	// the vacated column renumbers densely
	left, err := env.Engine.Repo.ListTasks(env.Ctx, repo.TaskFilters{Status: "todo"})
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 1 || left[0].Position != 0 {
		t.Fatalf("todo column after move: %+v", left)
	}

	entries, err := env.Engine.Repo.ListActivity(env.Ctx, a.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Action != activity.ActionStatusChange {
		t.Fatalf("expected one status_change entry, got %+v", entries)
	}
	if entries[0].OldValue != "To Do" || entries[0].NewValue != "In Progress" {
		t.Fatalf("labels: %s -> %s", entries[0].OldValue, entries[0].NewValue)
	}
}

func TestUpdateTaskWithoutStatusChangeSkipsActivity(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, "a", "todo")

	title := "renamed"
	if _, err := env.Engine.UpdateTask(env.Ctx, "tester", a.ID, engine.UpdateTaskInput{Title: &title}); err != nil {
		t.Fatal(err)
	}
	entries, err := env.Engine.Repo.ListActivity(env.Ctx, a.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("no activity expected, got %+v", entries)
	}
}

func TestMoveTaskAcrossColumns(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, "a", "todo")
	mustCreate(t, env, "b", "todo")
	x := mustCreate(t, env, "x", "in_progress")

	if _, err := env.Engine.MoveTask(env.Ctx, "tester", a.ID, x.ID); err != nil {
		t.Fatal(err)
	}

	got, err := env.Engine.Repo.GetTask(env.Ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusInProgress || got.Position != 0 {
		t.Fatalf("expected in_progress head, got %s/%d", got.Status, got.Position)
	}
	shifted, err := env.Engine.Repo.GetTask(env.Ctx, x.ID)
	if err != nil {
		t.Fatal(err)
	}
	if shifted.Position != 1 {
		t.Fatalf("x should shift to 1, got %d", shifted.Position)
	}

	entries, err := env.Engine.Repo.ListActivity(env.Ctx, a.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one activity entry, got %d", len(entries))
	}
}

func TestMoveTaskAtOwnPositionWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, "a", "todo")
	b := mustCreate(t, env, "b", "todo")

	before, err := env.Engine.Repo.GetTask(env.Ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	// b already sits at the todo tail; dropping it on its own column must not
	// touch any row or log activity
	if _, err := env.Engine.MoveTask(env.Ctx, "tester", b.ID, "todo"); err != nil {
		t.Fatal(err)
	}
	after, err := env.Engine.Repo.GetTask(env.Ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Fatalf("task changed on no-op drop: %+v vs %+v", before, after)
	}
	entries, err := env.Engine.Repo.ListActivity(env.Ctx, b.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("no activity expected, got %+v", entries)
	}
}

func TestMoveTaskIsIdempotentForStaleTargets(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, "a", "todo")

	before, _ := env.Engine.Repo.GetTask(env.Ctx, a.ID)
	tasks, err := env.Engine.MoveTask(env.Ctx, "tester", a.ID, "ghost")
	if err != nil {
		t.Fatalf("stale over target should no-op, got %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("task count changed: %d", len(tasks))
	}
	after, _ := env.Engine.Repo.GetTask(env.Ctx, a.ID)
	if before != after {
		t.Fatalf("task changed on stale move: %+v vs %+v", before, after)
	}

	if _, err := env.Engine.MoveTask(env.Ctx, "tester", "ghost", a.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown active id should be not found, got %v", err)
	}
}

func TestDeleteTaskRenumbersColumn(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, "a", "todo")
	b := mustCreate(t, env, "b", "todo")
	c := mustCreate(t, env, "c", "todo")

	if err := env.Engine.DeleteTask(env.Ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	rest, err := env.Engine.Repo.ListTasks(env.Ctx, repo.TaskFilters{Status: "todo"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 2 || rest[0].ID != a.ID || rest[0].Position != 0 || rest[1].ID != c.ID || rest[1].Position != 1 {
		t.Fatalf("column after delete: %+v", rest)
	}
}

func TestAddComment(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, "a", "todo")

	c, err := env.Engine.AddComment(env.Ctx, "tester", a.ID, "looks good")
	if err != nil {
		t.Fatal(err)
	}
	if c.TaskID != a.ID || c.AuthorID != "tester" {
		t.Fatalf("comment: %+v", c)
	}
	comments, err := env.Engine.Repo.ListComments(env.Ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 1 {
		t.Fatalf("expected one comment, got %d", len(comments))
	}
	entries, _ := env.Engine.Repo.ListActivity(env.Ctx, a.ID, 10)
	if len(entries) != 1 || entries[0].Action != activity.ActionCommentAdded {
		t.Fatalf("expected comment_added entry, got %+v", entries)
	}

	if _, err := env.Engine.AddComment(env.Ctx, "tester", a.ID, ""); !errors.Is(err, engine.ErrValidation) {
		t.Fatalf("empty comment should fail validation, got %v", err)
	}
	if _, err := env.Engine.AddComment(env.Ctx, "tester", "ghost", "hi"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("unknown task, got %v", err)
	}
}

func TestQuarantineKeepsBadRowsOffTheBoard(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, "good", "todo")

	_, err := env.Engine.DB.ExecContext(env.Ctx,
		`INSERT INTO tasks(id,title,status,priority,position,created_by,created_at,updated_at)
		 VALUES ('bad-row','legacy','doing','medium',0,'import','2026-01-01T00:00:00Z','2026-01-01T00:00:00Z')`)
	if err != nil {
		t.Fatal(err)
	}

	tasks, err := env.Engine.Repo.ListTasks(env.Ctx, repo.TaskFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].ID != a.ID {
		t.Fatalf("board should only see valid rows, got %+v", tasks)
	}

	quarantined, err := env.Engine.Repo.ListQuarantined(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(quarantined) != 1 || quarantined[0].ID != "bad-row" || quarantined[0].Status != "doing" {
		t.Fatalf("quarantine: %+v", quarantined)
	}

	// a move over the whole board must not touch the quarantined row
	if _, err := env.Engine.MoveTask(env.Ctx, "tester", a.ID, "done"); err != nil {
		t.Fatal(err)
	}
	var status string
	if err := env.Engine.DB.QueryRowContext(env.Ctx, `SELECT status FROM tasks WHERE id='bad-row'`).Scan(&status); err != nil {
		t.Fatal(err)
	}
	if status != "doing" {
		t.Fatalf("quarantined row mutated to %s", status)
	}
}

func TestSeedDictionariesOnlyOnEmptyTables(t *testing.T) {
	env := newTestEnv(t)
	if err := env.Engine.SeedDictionaries(env.Ctx, []string{"Intake", "Funding"}, []string{"Ops"}); err != nil {
		t.Fatal(err)
	}
	if err := env.Engine.SeedDictionaries(env.Ctx, []string{"Other"}, []string{"Other"}); err != nil {
		t.Fatal(err)
	}
	phases, err := env.Engine.Repo.ListPhases(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(phases) != 2 || phases[0].Name != "Intake" {
		t.Fatalf("seed should not run twice: %+v", phases)
	}
}
