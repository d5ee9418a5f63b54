package models

import (
	"errors"
	"testing"
	"time"

	apperrors "pennywise/internal/errors"
)

func newGoal(target, current int64) *Goal {
	g := &Goal{Name: "Emergency fund", TargetAmount: target, Status: GoalStatusActive}
	if current > 0 {
		g.Contributions = []Contribution{{ID: "seed", Amount: current}}
		g.CurrentAmount = current
	}
	return g
}

func TestGoal_AddContribution(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("completes_at_target_and_reverts_on_removal", func(t *testing.T) {
		g := newGoal(1000, 900)

		c, err := g.AddContribution(150, "bonus", false, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if g.CurrentAmount != 1050 {
			t.Errorf("expected current 1050, got %d", g.CurrentAmount)
		}
		if g.Status != GoalStatusCompleted {
			t.Errorf("expected completed, got %s", g.Status)
		}
		if g.CompletedAt == nil || !g.CompletedAt.Equal(now) {
			t.Errorf("expected completed_at %v, got %v", now, g.CompletedAt)
		}
		if g.LastContribution == nil || !g.LastContribution.Equal(now) {
			t.Errorf("expected last_contribution %v, got %v", now, g.LastContribution)
		}

		if _, err := g.RemoveContribution(c.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if g.CurrentAmount != 900 {
			t.Errorf("expected current 900, got %d", g.CurrentAmount)
		}
		if g.Status != GoalStatusActive {
			t.Errorf("expected active, got %s", g.Status)
		}
		if g.CompletedAt != nil {
			t.Errorf("expected completed_at cleared, got %v", g.CompletedAt)
		}
	})

	t.Run("rejects_non_positive_amount", func(t *testing.T) {
		g := newGoal(1000, 0)
		_, err := g.AddContribution(0, "", false, now)
		if !errors.Is(err, apperrors.ErrInvalidAmount) {
			t.Fatalf("expected INVALID_AMOUNT, got %v", err)
		}
		if len(g.Contributions) != 0 || g.CurrentAmount != 0 {
			t.Error("expected no mutation")
		}
	})

	t.Run("rejects_inactive_goal", func(t *testing.T) {
		for _, status := range []GoalStatus{GoalStatusPaused, GoalStatusCancelled, GoalStatusCompleted} {
			g := newGoal(1000, 0)
			g.Status = status
			_, err := g.AddContribution(100, "", false, now)
			if !errors.Is(err, apperrors.ErrGoalNotActive) {
				t.Errorf("%s: expected GOAL_NOT_ACTIVE, got %v", status, err)
			}
			if g.CurrentAmount != 0 {
				t.Errorf("%s: expected no mutation", status)
			}
		}
	})
}

func TestGoal_RemoveContribution(t *testing.T) {
	t.Run("missing_id", func(t *testing.T) {
		g := newGoal(1000, 300)
		_, err := g.RemoveContribution("nope")
		if !errors.Is(err, apperrors.ErrContributionNotFound) {
			t.Fatalf("expected CONTRIBUTION_NOT_FOUND, got %v", err)
		}
		if g.CurrentAmount != 300 {
			t.Errorf("expected current unchanged, got %d", g.CurrentAmount)
		}
	})

	t.Run("current_always_equals_sum", func(t *testing.T) {
		g := newGoal(10000, 0)
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		var ids []string
		for i, amt := range []int64{120, 35, 900, 7, 410} {
			c, err := g.AddContribution(amt, "", i%2 == 0, now.AddDate(0, 0, i))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			ids = append(ids, c.ID)
		}
		for _, id := range []string{ids[1], ids[4], ids[0]} {
			if _, err := g.RemoveContribution(id); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var sum int64
			for _, c := range g.Contributions {
				sum += c.Amount
			}
			if g.CurrentAmount != sum {
				t.Fatalf("current %d != sum %d", g.CurrentAmount, sum)
			}
		}
		if g.CurrentAmount != 907 {
			t.Errorf("expected 907 remaining, got %d", g.CurrentAmount)
		}
	})
}

func TestGoal_Reminders(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("date_must_be_future", func(t *testing.T) {
		g := newGoal(1000, 0)
		if _, err := g.AddReminder("save", now, now); !errors.Is(err, apperrors.ErrReminderDateNotFuture) {
			t.Fatalf("expected REMINDER_DATE_NOT_FUTURE, got %v", err)
		}
		if len(g.Reminders) != 0 {
			t.Error("expected no reminder appended")
		}
	})

	t.Run("due_reminders_sent_once", func(t *testing.T) {
		g := newGoal(1000, 0)
		early, _ := g.AddReminder("early", now.Add(time.Hour), now)
		_, _ = g.AddReminder("late", now.AddDate(0, 1, 0), now)

		due := g.DueReminders(now.Add(2 * time.Hour))
		if len(due) != 1 || due[0].ID != early.ID {
			t.Fatalf("expected only the early reminder, got %+v", due)
		}
		if again := g.DueReminders(now.Add(2 * time.Hour)); len(again) != 0 {
			t.Errorf("expected reminders to fire once, got %d", len(again))
		}
	})

	t.Run("remove_regardless_of_status", func(t *testing.T) {
		g := newGoal(1000, 0)
		r, _ := g.AddReminder("x", now.Add(time.Hour), now)
		g.Status = GoalStatusCancelled
		if err := g.RemoveReminder(r.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := g.RemoveReminder(r.ID); !errors.Is(err, apperrors.ErrReminderNotFound) {
			t.Errorf("expected REMINDER_NOT_FOUND, got %v", err)
		}
	})
}

func TestGoal_TransitionTo(t *testing.T) {
	tests := []struct {
		from, to GoalStatus
		ok       bool
	}{
		{GoalStatusActive, GoalStatusPaused, true},
		{GoalStatusPaused, GoalStatusActive, true},
		{GoalStatusActive, GoalStatusCancelled, true},
		{GoalStatusPaused, GoalStatusCancelled, true},
		{GoalStatusCancelled, GoalStatusActive, false},
		{GoalStatusCompleted, GoalStatusPaused, false},
		{GoalStatusActive, GoalStatusCompleted, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			g := newGoal(1000, 0)
			g.Status = tt.from
			err := g.TransitionTo(tt.to)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, apperrors.ErrInvalidStatusTransition) {
				t.Fatalf("expected INVALID_STATUS_TRANSITION, got %v", err)
			}
		})
	}
}
