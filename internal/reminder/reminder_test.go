package reminder_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"fundline/internal/activity"
	"fundline/internal/db"
	"fundline/internal/engine"
	"fundline/internal/migrate"
	"fundline/internal/reminder"
)

func newSweeper(t *testing.T) (*reminder.Sweeper, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatal(err)
	}
	e := engine.New(conn, nil)
	fixed := func() time.Time { return time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC) }
	e.Now = fixed
	e.Activity.Now = fixed
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &reminder.Sweeper{Engine: e, Log: log, HorizonDays: 3}, context.Background()
}

func createDue(t *testing.T, s *reminder.Sweeper, ctx context.Context, title, due, status string) string {
	t.Helper()
	task, err := s.Engine.CreateTask(ctx, "tester", engine.CreateTaskInput{
		Title: title, Status: status, DueDate: &due,
	})
	if err != nil {
		t.Fatal(err)
	}
	return task.ID
}

func TestSweepFlagsTasksInsideHorizon(t *testing.T) {
	s, ctx := newSweeper(t)
	soon := createDue(t, s, ctx, "soon", "2026-03-12", "todo")
	edge := createDue(t, s, ctx, "edge", "2026-03-13", "todo")
	far := createDue(t, s, ctx, "far", "2026-03-20", "todo")
	past := createDue(t, s, ctx, "past", "2026-03-09", "todo")
	finished := createDue(t, s, ctx, "finished", "2026-03-12", "done")

	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}

	expect := map[string]int{soon: 1, edge: 1, far: 0, past: 0, finished: 0}
	for id, want := range expect {
		entries, err := s.Engine.Repo.ListActivity(ctx, id, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != want {
			t.Fatalf("task %s: want %d due_soon entries, got %d", id, want, len(entries))
		}
		if want == 1 {
			if entries[0].Action != activity.ActionDueSoon || entries[0].ActorID != reminder.SweepActor {
				t.Fatalf("entry: %+v", entries[0])
			}
			if entries[0].NewValue != "2026-03-12" && entries[0].NewValue != "2026-03-13" {
				t.Fatalf("due value: %s", entries[0].NewValue)
			}
		}
	}
}

func TestSweepIsIdempotentWithinADay(t *testing.T) {
	s, ctx := newSweeper(t)
	id := createDue(t, s, ctx, "soon", "2026-03-11", "todo")

	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	entries, err := s.Engine.Repo.ListActivity(ctx, id, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single due_soon entry after two runs, got %d", len(entries))
	}

	// the next day flags again
	next := func() time.Time { return time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC) }
	s.Engine.Now = next
	s.Engine.Activity.Now = next
	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	entries, _ = s.Engine.Repo.ListActivity(ctx, id, 10)
	if len(entries) != 2 {
		t.Fatalf("expected a second entry the next day, got %d", len(entries))
	}
}

func TestSchedulerRejectsBadClock(t *testing.T) {
	s, _ := newSweeper(t)
	if _, err := reminder.NewScheduler(s, "notatime", s.Log); err == nil {
		t.Fatal("expected error for invalid clock")
	}
	sched, err := reminder.NewScheduler(s, "09:00", s.Log)
	if err != nil {
		t.Fatal(err)
	}
	sched.Start()
	sched.Stop()
}
