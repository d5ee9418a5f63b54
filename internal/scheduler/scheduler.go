// Package scheduler runs the periodic jobs: materializing due recurring
// transactions, renewing expired budgets and sending goal reminders.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"pennywise/internal/logger"
	"pennywise/internal/services"
)

// RecurringRunner materializes due occurrences for every owner.
type RecurringRunner interface {
	RunDue(ctx context.Context, now time.Time) (*services.RunResult, error)
}

// BudgetRenewer rolls expired auto-renewing budgets forward.
type BudgetRenewer interface {
	RenewExpired(ctx context.Context, now time.Time) (int, error)
}

// ReminderSender delivers goal reminders that have come due.
type ReminderSender interface {
	SendDueReminders(ctx context.Context, now time.Time) (int, error)
}

// JobError names the job that failed during a pass.
type JobError struct {
	Job string
	Err error
}

// RunResult contains the outcome of one scheduler pass.
type RunResult struct {
	Recurring      *services.RunResult
	BudgetsRenewed int
	RemindersSent  int
	Errors         []JobError
	Duration       time.Duration
}

// Scheduler drives the jobs on a fixed interval.
type Scheduler struct {
	recurring RecurringRunner
	budgets   BudgetRenewer
	goals     ReminderSender
	interval  time.Duration
	now       func() time.Time
	log       *zap.SugaredLogger
}

// New creates a Scheduler that runs every interval.
func New(recurring RecurringRunner, budgets BudgetRenewer, goals ReminderSender, interval time.Duration) *Scheduler {
	return &Scheduler{
		recurring: recurring,
		budgets:   budgets,
		goals:     goals,
		interval:  interval,
		now:       time.Now,
		log:       logger.Named("scheduler"),
	}
}

// WithClock replaces the time source used to evaluate due work.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Run executes one pass immediately and then one per interval until ctx is
// cancelled. Job failures are logged and retried on the next tick, so Run only
// returns once ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Infow("scheduler started", "interval", s.interval.String())
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every job a single time against the same instant. A failing
// job does not prevent the others from running.
func (s *Scheduler) RunOnce(ctx context.Context) *RunResult {
	start := time.Now()
	now := s.now()
	result := &RunResult{}

	recurring, err := s.recurring.RunDue(ctx, now)
	if err != nil {
		result.Errors = append(result.Errors, JobError{Job: "recurring", Err: err})
	} else {
		result.Recurring = recurring
	}

	if result.BudgetsRenewed, err = s.budgets.RenewExpired(ctx, now); err != nil {
		result.Errors = append(result.Errors, JobError{Job: "budgets", Err: err})
	}

	if result.RemindersSent, err = s.goals.SendDueReminders(ctx, now); err != nil {
		result.Errors = append(result.Errors, JobError{Job: "reminders", Err: err})
	}

	result.Duration = time.Since(start)
	s.report(result)
	return result
}

func (s *Scheduler) report(result *RunResult) {
	fields := []any{
		"budgets_renewed", result.BudgetsRenewed,
		"reminders_sent", result.RemindersSent,
		"errors", len(result.Errors),
		"duration", result.Duration.String(),
	}
	if result.Recurring != nil {
		fields = append(fields,
			"recurring_status", result.Recurring.Status,
			"recurring_due", result.Recurring.Due,
			"recurring_materialized", result.Recurring.Materialized,
		)
	}
	s.log.Infow("scheduler pass completed", fields...)

	for _, jobErr := range result.Errors {
		s.log.Errorw("scheduler job failed", "job", jobErr.Job, "error", jobErr.Err)
	}
}
