package services

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/money"
	"pennywise/internal/notify"
	"pennywise/internal/pagination"
	"pennywise/internal/schedule"
	"pennywise/internal/store"
)

// goalService handles savings goals and their contribution ledger.
type goalService struct {
	goals    store.GoalStore
	notifier notify.Notifier
	now      func() time.Time
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(goals store.GoalStore, notifier notify.Notifier) GoalServicer {
	return &goalService{goals: goals, notifier: notifier, now: time.Now}
}

// CreateGoal creates an active goal with an empty ledger.
func (s *goalService) CreateGoal(ctx context.Context, userID, name, description string, targetAmount int64, targetDate time.Time) (*models.Goal, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
	}
	if targetAmount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if !targetDate.After(s.now()) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target date must be in the future")
	}

	goal := &models.Goal{
		UserID:        userID,
		Name:          name,
		Description:   description,
		TargetAmount:  targetAmount,
		TargetDate:    targetDate,
		Status:        models.GoalStatusActive,
		Contributions: []models.Contribution{},
		Reminders:     []models.Reminder{},
	}
	if err := s.goals.Insert(ctx, goal); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return goal, nil
}

// GetUserGoals lists the user's goals, optionally by status.
func (s *goalService) GetUserGoals(ctx context.Context, userID string, status *models.GoalStatus, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	page.Defaults()

	goals, total, err := s.goals.Find(ctx, store.GoalFilter{UserID: userID, Status: status, Page: page.Window()})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(goals, page.Page, page.PageSize, total)
	return &result, nil
}

// GetGoalByID returns a goal by ID if it belongs to the user.
func (s *goalService) GetGoalByID(ctx context.Context, userID, goalID string) (*models.Goal, error) {
	goal, err := s.goals.FindOne(ctx, userID, goalID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrGoalNotFound)
	}
	return goal, nil
}

// UpdateGoal edits a goal's details. Moving the target re-evaluates completion
// against the current ledger.
func (s *goalService) UpdateGoal(ctx context.Context, userID, goalID string, in GoalUpdate) (*models.Goal, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name is required")
		}
		goal.Name = name
	}
	if in.Description != nil {
		goal.Description = *in.Description
	}
	if in.TargetDate != nil {
		if !in.TargetDate.After(s.now()) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target date must be in the future")
		}
		goal.TargetDate = *in.TargetDate
	}

	completed := false
	if in.TargetAmount != nil {
		if *in.TargetAmount <= 0 {
			return nil, apperrors.ErrInvalidAmount
		}
		goal.TargetAmount = *in.TargetAmount

		switch {
		case goal.Status == models.GoalStatusActive && goal.CurrentAmount >= goal.TargetAmount:
			now := s.now()
			goal.Status = models.GoalStatusCompleted
			goal.CompletedAt = &now
			completed = true
		case goal.Status == models.GoalStatusCompleted && goal.CurrentAmount < goal.TargetAmount:
			goal.Status = models.GoalStatusActive
			goal.CompletedAt = nil
		}
	}

	if err := s.save(ctx, goal); err != nil {
		return nil, err
	}
	if completed {
		s.notifyCompleted(ctx, goal)
	}
	return goal, nil
}

// SetGoalStatus pauses, resumes or cancels a goal.
func (s *goalService) SetGoalStatus(ctx context.Context, userID, goalID string, status models.GoalStatus) (*models.Goal, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if err := goal.TransitionTo(status); err != nil {
		return nil, err
	}

	updated, err := s.goals.Update(ctx, userID, goalID, store.Patch{"status": goal.Status})
	if err != nil {
		return nil, storeError(err, apperrors.ErrGoalNotFound)
	}
	return updated, nil
}

// DeleteGoal removes a goal together with its ledger.
func (s *goalService) DeleteGoal(ctx context.Context, userID, goalID string) error {
	if err := s.goals.Delete(ctx, userID, goalID); err != nil {
		return storeError(err, apperrors.ErrGoalNotFound)
	}
	return nil
}

// AddContribution records a manual deposit and completes the goal when the
// target is reached.
func (s *goalService) AddContribution(ctx context.Context, userID, goalID string, amount int64, note string) (*models.Goal, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if _, err := goal.AddContribution(amount, note, false, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, goal); err != nil {
		return nil, err
	}

	if goal.Status == models.GoalStatusCompleted {
		s.notifyCompleted(ctx, goal)
	}
	return goal, nil
}

// RemoveContribution drops a deposit from the ledger.
func (s *goalService) RemoveContribution(ctx context.Context, userID, goalID, contributionID string) (*models.Goal, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if _, err := goal.RemoveContribution(contributionID); err != nil {
		return nil, err
	}
	if err := s.save(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// AddReminder schedules a reminder on the goal.
func (s *goalService) AddReminder(ctx context.Context, userID, goalID, message string, date time.Time) (*models.Goal, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if _, err := goal.AddReminder(message, date, s.now()); err != nil {
		return nil, err
	}
	if err := s.save(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// RemoveReminder deletes a reminder from the goal.
func (s *goalService) RemoveReminder(ctx context.Context, userID, goalID, reminderID string) (*models.Goal, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	if err := goal.RemoveReminder(reminderID); err != nil {
		return nil, err
	}
	if err := s.save(ctx, goal); err != nil {
		return nil, err
	}
	return goal, nil
}

// GetGoalPacing spreads the remaining amount evenly over the months left
// until the target date.
func (s *goalService) GetGoalPacing(ctx context.Context, userID, goalID string, now time.Time) (*GoalPacing, error) {
	goal, err := s.GetGoalByID(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}

	months := schedule.MonthsBetween(now, goal.TargetDate)
	remaining := goal.Remaining()
	return &GoalPacing{
		GoalID:        goal.ID,
		Remaining:     remaining,
		MonthsLeft:    months,
		MonthlyAmount: money.Split(remaining, months),
		Percentage:    money.Percent(goal.CurrentAmount, goal.TargetAmount),
	}, nil
}

// SendDueReminders delivers every unsent reminder due by now on active goals
// and returns how many were sent.
func (s *goalService) SendDueReminders(ctx context.Context, now time.Time) (int, error) {
	active := models.GoalStatusActive
	goals, _, err := s.goals.Find(ctx, store.GoalFilter{Status: &active})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var sent int
	var errs []error
	for i := range goals {
		goal := &goals[i]
		due := goal.DueReminders(now)
		if len(due) == 0 {
			continue
		}
		if err := s.goals.Save(ctx, goal); err != nil {
			logger.FromContext(ctx).Errorw("failed to mark reminders sent", "error", err, "goal_id", goal.ID, "user_id", goal.UserID)
			errs = append(errs, err)
			continue
		}
		for _, r := range due {
			if s.notifier != nil {
				s.notifier.GoalReminder(ctx, goal, r)
			}
			sent++
		}
	}
	return sent, errors.Join(errs...)
}

func (s *goalService) save(ctx context.Context, goal *models.Goal) error {
	if err := s.goals.Save(ctx, goal); err != nil {
		return storeError(err, apperrors.ErrGoalNotFound)
	}
	return nil
}

func (s *goalService) notifyCompleted(ctx context.Context, goal *models.Goal) {
	if s.notifier != nil {
		s.notifier.GoalCompleted(ctx, goal)
	}
}
