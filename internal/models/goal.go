package models

import (
	"time"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/uuid"
)

// GoalStatus is the lifecycle state of a savings goal.
type GoalStatus string

const (
	GoalStatusActive    GoalStatus = "active"
	GoalStatusCompleted GoalStatus = "completed"
	GoalStatusPaused    GoalStatus = "paused"
	GoalStatusCancelled GoalStatus = "cancelled"
)

// Contribution is a single deposit towards a goal.
type Contribution struct {
	ID          string    `firestore:"id" json:"id"`
	Amount      int64     `firestore:"amount" json:"amount"`
	Date        time.Time `firestore:"date" json:"date"`
	Note        string    `firestore:"note" json:"note,omitempty"`
	IsAutomatic bool      `firestore:"is_automatic" json:"is_automatic"`
}

// Reminder is a scheduled nudge attached to a goal.
type Reminder struct {
	ID      string    `firestore:"id" json:"id"`
	Message string    `firestore:"message" json:"message"`
	Date    time.Time `firestore:"date" json:"date"`
	Sent    bool      `firestore:"sent" json:"sent"`
}

// Goal is a savings target. Contributions and reminders are embedded in the
// goal document; CurrentAmount always equals the sum of Contributions.
type Goal struct {
	Base
	UserID           string         `gorm:"type:uuid;not null;index" firestore:"user_id" json:"user_id"`
	Name             string         `gorm:"not null" firestore:"name" json:"name"`
	Description      string         `firestore:"description" json:"description"`
	TargetAmount     int64          `gorm:"type:bigint;not null" firestore:"target_amount" json:"target_amount"`
	CurrentAmount    int64          `gorm:"type:bigint;not null;default:0" firestore:"current_amount" json:"current_amount"`
	TargetDate       time.Time      `gorm:"not null" firestore:"target_date" json:"target_date"`
	Status           GoalStatus     `gorm:"not null;default:active;index" firestore:"status" json:"status"`
	CompletedAt      *time.Time     `firestore:"completed_at" json:"completed_at"`
	LastContribution *time.Time     `firestore:"last_contribution" json:"last_contribution,omitempty"`
	Contributions    []Contribution `gorm:"serializer:json;type:text" firestore:"contributions" json:"contributions"`
	Reminders        []Reminder     `gorm:"serializer:json;type:text" firestore:"reminders" json:"reminders"`
}

// AddContribution appends a deposit dated now and completes the goal once the
// target is reached. Nothing is mutated when a precondition fails.
func (g *Goal) AddContribution(amount int64, note string, automatic bool, now time.Time) (*Contribution, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if g.Status != GoalStatusActive {
		return nil, apperrors.ErrGoalNotActive
	}

	c := Contribution{
		ID:          uuid.New(),
		Amount:      amount,
		Date:        now,
		Note:        note,
		IsAutomatic: automatic,
	}
	g.Contributions = append(g.Contributions, c)
	g.CurrentAmount = g.sumContributions()
	g.LastContribution = &now

	if g.CurrentAmount >= g.TargetAmount {
		g.Status = GoalStatusCompleted
		g.CompletedAt = &now
	}
	return &c, nil
}

// RemoveContribution drops a deposit by id. A completed goal that falls back
// under its target becomes active again.
func (g *Goal) RemoveContribution(contributionID string) (*Contribution, error) {
	idx := -1
	for i := range g.Contributions {
		if g.Contributions[i].ID == contributionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, apperrors.ErrContributionNotFound
	}

	removed := g.Contributions[idx]
	g.Contributions = append(g.Contributions[:idx:idx], g.Contributions[idx+1:]...)
	g.CurrentAmount = g.sumContributions()

	if g.Status == GoalStatusCompleted && g.CurrentAmount < g.TargetAmount {
		g.Status = GoalStatusActive
		g.CompletedAt = nil
	}
	return &removed, nil
}

// AddReminder schedules a reminder strictly after now.
func (g *Goal) AddReminder(message string, date, now time.Time) (*Reminder, error) {
	if !date.After(now) {
		return nil, apperrors.ErrReminderDateNotFuture
	}
	r := Reminder{ID: uuid.New(), Message: message, Date: date}
	g.Reminders = append(g.Reminders, r)
	return &r, nil
}

// RemoveReminder deletes a reminder regardless of goal status.
func (g *Goal) RemoveReminder(reminderID string) error {
	for i := range g.Reminders {
		if g.Reminders[i].ID == reminderID {
			g.Reminders = append(g.Reminders[:i:i], g.Reminders[i+1:]...)
			return nil
		}
	}
	return apperrors.ErrReminderNotFound
}

// DueReminders marks every unsent reminder dated at or before now as sent and
// returns them.
func (g *Goal) DueReminders(now time.Time) []Reminder {
	var due []Reminder
	for i := range g.Reminders {
		r := &g.Reminders[i]
		if r.Sent || r.Date.After(now) {
			continue
		}
		r.Sent = true
		due = append(due, *r)
	}
	return due
}

// Remaining is the amount still needed to hit the target, never negative.
func (g *Goal) Remaining() int64 {
	if g.CurrentAmount >= g.TargetAmount {
		return 0
	}
	return g.TargetAmount - g.CurrentAmount
}

// TransitionTo applies an owner-requested status change. Completion is only
// ever reached through contributions.
func (g *Goal) TransitionTo(status GoalStatus) error {
	switch {
	case g.Status == status:
		return nil
	case g.Status == GoalStatusActive && status == GoalStatusPaused,
		g.Status == GoalStatusPaused && status == GoalStatusActive,
		(g.Status == GoalStatusActive || g.Status == GoalStatusPaused) && status == GoalStatusCancelled:
		g.Status = status
		return nil
	}
	return apperrors.ErrInvalidStatusTransition
}

func (g *Goal) sumContributions() int64 {
	var total int64
	for _, c := range g.Contributions {
		total += c.Amount
	}
	return total
}
