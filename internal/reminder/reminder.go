// Package reminder runs the due-date sweep: a daily pass that flags tasks due
// within the configured horizon by appending a due_soon entry to their
// activity log.
package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"fundline/internal/activity"
	"fundline/internal/engine"
)

// SweepActor is the actor id recorded on sweep-generated activity entries.
const SweepActor = "system"

type Sweeper struct {
	Engine      *engine.Engine
	Log         *logrus.Logger
	HorizonDays int
}

// Run performs one sweep. A task is flagged at most once per day; re-running
// the sweep is a no-op for tasks already flagged today.
func (s *Sweeper) Run(ctx context.Context) error {
	now := s.Engine.Now().UTC()
	from := now.Format("2006-01-02")
	to := now.AddDate(0, 0, s.HorizonDays).Format("2006-01-02")
	startOfDay := from + "T00:00:00Z"

	tasks, err := s.Engine.Repo.ListDueBetween(ctx, from, to)
	if err != nil {
		return err
	}
	flagged := 0
	for _, t := range tasks {
		done, err := s.Engine.Repo.HasActivitySince(ctx, t.ID, activity.ActionDueSoon, startOfDay)
		if err != nil {
			return err
		}
		if done {
			continue
		}
		tx, err := s.Engine.DB.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		err = s.Engine.Activity.Append(ctx, tx, t.ID, SweepActor, activity.ActionDueSoon,
			"due_date", "", *t.DueDate)
		if err == nil {
			err = tx.Commit()
		} else {
			tx.Rollback()
		}
		if err != nil {
			return err
		}
		flagged++
	}
	s.Log.WithFields(logrus.Fields{"scanned": len(tasks), "flagged": flagged, "horizon_days": s.HorizonDays}).
		Info("due date sweep finished")
	return nil
}

// Scheduler wraps a cron runner around the sweep.
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// NewScheduler schedules the sweep daily at the given clock time ("HH:MM",
// UTC).
func NewScheduler(s *Sweeper, clock string, log *logrus.Logger) (*Scheduler, error) {
	spec, err := dailySpec(clock)
	if err != nil {
		return nil, err
	}
	c := cron.New(cron.WithLocation(time.UTC))
	_, err = c.AddFunc(spec, func() {
		if err := s.Run(context.Background()); err != nil {
			log.WithError(err).Error("due date sweep failed")
		}
	})
	if err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.log.Info("reminder scheduler started")
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("reminder scheduler stopped")
}

// dailySpec converts "HH:MM" into a standard cron expression.
func dailySpec(clock string) (string, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(clock, "%d:%d", &hh, &mm); err != nil {
		return "", fmt.Errorf("invalid clock time %q: %w", clock, err)
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return "", fmt.Errorf("invalid clock time %q", clock)
	}
	return fmt.Sprintf("%d %d * * *", mm, hh), nil
}
