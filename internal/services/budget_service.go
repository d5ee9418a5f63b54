package services

import (
	"context"
	"errors"
	"time"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/events"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/money"
	"pennywise/internal/notify"
	"pennywise/internal/pagination"
	"pennywise/internal/schedule"
	"pennywise/internal/store"
)

// budgetService handles budget-related business logic and keeps each
// budget's spent cache in line with the transaction set.
type budgetService struct {
	budgets          store.BudgetStore
	categories       store.CategoryStore
	transactions     store.TransactionStore
	notifier         notify.Notifier
	defaultThreshold int
	now              func() time.Time
}

// NewBudgetService creates a new BudgetServicer. Budgets created without an
// alert threshold use defaultThreshold.
func NewBudgetService(stores *store.Stores, notifier notify.Notifier, defaultThreshold int) BudgetServicer {
	return &budgetService{
		budgets:          stores.Budgets,
		categories:       stores.Categories,
		transactions:     stores.Transactions,
		notifier:         notifier,
		defaultThreshold: defaultThreshold,
		now:              time.Now,
	}
}

// CreateBudget creates a new budget for an expense category and seeds its
// spent total from the transactions already in the window.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error) {
	if in.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	category, err := s.categories.FindOne(ctx, userID, in.CategoryID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrCategoryNotFound)
	}
	if category.Type != models.CategoryTypeExpense {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budgets can only track expense categories")
	}

	endDate, err := windowEnd(in.StartDate, in.Period, in.EndDate)
	if err != nil {
		return nil, err
	}

	threshold := s.defaultThreshold
	if in.AlertThreshold != nil {
		threshold = *in.AlertThreshold
	}
	if threshold < 1 || threshold > 100 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 1 and 100")
	}

	if err := s.checkConflict(ctx, userID, in.CategoryID, "", in.StartDate, endDate); err != nil {
		return nil, err
	}

	budget := &models.Budget{
		UserID:         userID,
		CategoryID:     in.CategoryID,
		Name:           in.Name,
		Amount:         in.Amount,
		Period:         in.Period,
		StartDate:      in.StartDate,
		EndDate:        endDate,
		AlertThreshold: threshold,
		AutoRenew:      in.AutoRenew,
		IsActive:       true,
	}
	if err := s.budgets.Insert(ctx, budget); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.recompute(ctx, budget)
}

// GetUserBudgets returns a paginated list of budgets for the user with optional filters.
func (s *budgetService) GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error) {
	page.Defaults()

	budgets, total, err := s.budgets.Find(ctx, store.BudgetFilter{
		UserID:   userID,
		IsActive: isActive,
		Period:   period,
		Page:     page.Window(),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page.Page, page.PageSize, total)
	return &result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	budget, err := s.budgets.FindOne(ctx, userID, budgetID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrBudgetNotFound)
	}
	return budget, nil
}

// UpdateBudget updates an existing budget's fields. Changes to the amount or
// window rederive spent and the alert state.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetUpdate) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	patch := store.Patch{}
	if in.Name != nil {
		patch["name"] = *in.Name
	}
	if in.Amount != nil {
		if *in.Amount <= 0 {
			return nil, apperrors.ErrInvalidAmount
		}
		patch["amount"] = *in.Amount
	}
	if in.AlertThreshold != nil {
		if *in.AlertThreshold < 1 || *in.AlertThreshold > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 1 and 100")
		}
		patch["alert_threshold"] = *in.AlertThreshold
	}
	if in.AutoRenew != nil {
		patch["auto_renew"] = *in.AutoRenew
	}

	end := budget.EndDate
	if in.EndDate != nil {
		end = inclusiveEnd(*in.EndDate)
		if end.Before(budget.StartDate) {
			return nil, apperrors.ErrInvalidDates
		}
		patch["end_date"] = end
	}

	active := budget.IsActive
	if in.IsActive != nil {
		active = *in.IsActive
		patch["is_active"] = active
	}
	if active && (in.EndDate != nil || (in.IsActive != nil && !budget.IsActive)) {
		if err := s.checkConflict(ctx, userID, budget.CategoryID, budget.ID, budget.StartDate, end); err != nil {
			return nil, err
		}
	}

	if len(patch) == 0 {
		return budget, nil
	}

	updated, err := s.budgets.Update(ctx, userID, budgetID, patch)
	if err != nil {
		return nil, storeError(err, apperrors.ErrBudgetNotFound)
	}
	if in.Amount != nil || in.EndDate != nil || in.AlertThreshold != nil {
		return s.recompute(ctx, updated)
	}
	return updated, nil
}

// DeleteBudget removes a budget.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	if err := s.budgets.Delete(ctx, userID, budgetID); err != nil {
		return storeError(err, apperrors.ErrBudgetNotFound)
	}
	return nil
}

// RecomputeBudget rederives a budget's spent total from its transactions.
func (s *budgetService) RecomputeBudget(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	return s.recompute(ctx, budget)
}

// GetBudgetProgress reports spending against the budget from its cached total.
func (s *budgetService) GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	pct := money.Percent(budget.Spent, budget.Amount)
	return &BudgetProgress{
		BudgetID:    budget.ID,
		StartDate:   budget.StartDate,
		EndDate:     budget.EndDate,
		Budgeted:    budget.Amount,
		Spent:       budget.Spent,
		Remaining:   budget.Amount - budget.Spent,
		Percentage:  pct,
		IsExceeded:  budget.Spent > budget.Amount,
		ShouldAlert: pct >= budget.AlertThreshold && !budget.AlertSent,
	}, nil
}

// RenewBudget starts a fresh window at now. Auto-renewing budgets move their
// own window forward; any other budget is replaced by a new record and
// deactivated.
func (s *budgetService) RenewBudget(ctx context.Context, userID, budgetID string, now time.Time) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}
	return s.renew(ctx, budget, now)
}

// RenewExpired renews every active auto-renewing budget whose window ended
// before now. It returns how many were renewed; failures are joined and the
// remaining budgets are still processed.
func (s *budgetService) RenewExpired(ctx context.Context, now time.Time) (int, error) {
	active := true
	expired, _, err := s.budgets.Find(ctx, store.BudgetFilter{IsActive: &active, EndedBefore: &now})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var renewed int
	var errs []error
	for i := range expired {
		budget := &expired[i]
		if !budget.AutoRenew {
			continue
		}
		if _, err := s.renew(ctx, budget, now); err != nil {
			logger.FromContext(ctx).Errorw("failed to renew budget", "error", err, "budget_id", budget.ID, "user_id", budget.UserID)
			errs = append(errs, err)
			continue
		}
		renewed++
	}
	return renewed, errors.Join(errs...)
}

// HandleTransactionCommitted recomputes every active budget that covers the
// commit time and tracks a category touched by either version of the
// transaction.
func (s *budgetService) HandleTransactionCommitted(ctx context.Context, e events.TransactionCommitted) error {
	if e.Action == events.ActionUpdated && !budgetRelevantChange(e.Previous, e.Current) {
		return nil
	}

	at := e.At
	if at.IsZero() {
		at = s.now()
	}

	active := true
	var errs []error
	for _, categoryID := range e.AffectedCategories() {
		budgets, _, err := s.budgets.Find(ctx, store.BudgetFilter{
			UserID:     e.UserID,
			CategoryID: &categoryID,
			IsActive:   &active,
			Covering:   &at,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for i := range budgets {
			if _, err := s.recompute(ctx, &budgets[i]); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// recompute overwrites the spent cache with a full re-aggregation and sends
// the threshold alert once per window.
func (s *budgetService) recompute(ctx context.Context, budget *models.Budget) (*models.Budget, error) {
	expense := models.TransactionTypeExpense
	completed := models.TransactionStatusCompleted
	spent, err := s.transactions.SumAmount(ctx, store.TransactionFilter{
		UserID:     budget.UserID,
		CategoryID: &budget.CategoryID,
		Type:       &expense,
		Status:     &completed,
		From:       &budget.StartDate,
		To:         &budget.EndDate,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := s.now()
	pct := money.Percent(spent, budget.Amount)
	alert := pct >= budget.AlertThreshold && !budget.AlertSent

	patch := store.Patch{"spent": spent, "last_recomputed_at": &now}
	if alert {
		patch["alert_sent"] = true
	}

	updated, err := s.budgets.Update(ctx, budget.UserID, budget.ID, patch)
	if err != nil {
		return nil, storeError(err, apperrors.ErrBudgetNotFound)
	}

	if alert && s.notifier != nil {
		s.notifier.BudgetThresholdReached(ctx, updated, pct)
	}
	return updated, nil
}

// renew starts a new window at the beginning of now's day that lasts as long
// as the current one. Auto-renewing budgets move in place; others are
// deactivated and succeeded by a fresh record.
func (s *budgetService) renew(ctx context.Context, budget *models.Budget, now time.Time) (*models.Budget, error) {
	if !budget.IsActive {
		return nil, apperrors.ErrBudgetNotRenewable
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.Add(budget.EndDate.Sub(budget.StartDate))

	if err := s.checkConflict(ctx, budget.UserID, budget.CategoryID, budget.ID, start, end); err != nil {
		return nil, err
	}

	if budget.AutoRenew {
		updated, err := s.budgets.Update(ctx, budget.UserID, budget.ID, store.Patch{
			"start_date":         start,
			"end_date":           end,
			"spent":              int64(0),
			"alert_sent":         false,
			"last_recomputed_at": nil,
		})
		if err != nil {
			return nil, storeError(err, apperrors.ErrBudgetNotFound)
		}
		return s.recompute(ctx, updated)
	}

	if _, err := s.budgets.Update(ctx, budget.UserID, budget.ID, store.Patch{"is_active": false}); err != nil {
		return nil, storeError(err, apperrors.ErrBudgetNotFound)
	}

	next := &models.Budget{
		UserID:         budget.UserID,
		CategoryID:     budget.CategoryID,
		Name:           budget.Name,
		Amount:         budget.Amount,
		Period:         budget.Period,
		StartDate:      start,
		EndDate:        end,
		AlertThreshold: budget.AlertThreshold,
		IsActive:       true,
	}
	if err := s.budgets.Insert(ctx, next); err != nil {
		if _, restoreErr := s.budgets.Update(ctx, budget.UserID, budget.ID, store.Patch{"is_active": true}); restoreErr != nil {
			logger.FromContext(ctx).Errorw("failed to reactivate budget after renewal failure",
				"error", restoreErr,
				"budget_id", budget.ID,
				"user_id", budget.UserID,
			)
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return s.recompute(ctx, next)
}

// checkConflict rejects a window overlapping another active budget of the
// same category. exceptID excludes the budget being edited.
func (s *budgetService) checkConflict(ctx context.Context, userID, categoryID, exceptID string, start, end time.Time) error {
	active := true
	existing, _, err := s.budgets.Find(ctx, store.BudgetFilter{
		UserID:     userID,
		CategoryID: &categoryID,
		IsActive:   &active,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	for i := range existing {
		if existing[i].ID != exceptID && existing[i].Overlaps(start, end) {
			return apperrors.ErrBudgetWindowConflict
		}
	}
	return nil
}

// windowEnd returns the inclusive end of a window starting at start. An
// explicit end wins; otherwise the period decides, ending on the last instant
// of the day before the next period starts.
func windowEnd(start time.Time, period models.BudgetPeriod, explicit *time.Time) (time.Time, error) {
	if explicit != nil {
		end := inclusiveEnd(*explicit)
		if end.Before(start) {
			return time.Time{}, apperrors.ErrInvalidDates
		}
		return end, nil
	}

	var next time.Time
	switch period {
	case models.BudgetPeriodWeekly:
		next = start.AddDate(0, 0, 7)
	case models.BudgetPeriodMonthly:
		next = schedule.NextOccurrence(start, models.FrequencyMonthly, schedule.Anchor{DayOfMonth: start.Day()})
	case models.BudgetPeriodYearly:
		next = schedule.NextOccurrence(start, models.FrequencyYearly, schedule.Anchor{Month: start.Month(), DayOfMonth: start.Day()})
	case models.BudgetPeriodCustom:
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "custom budgets require an end date")
	default:
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported budget period")
	}

	last := next.AddDate(0, 0, -1)
	return time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 999999999, last.Location()), nil
}

// inclusiveEnd widens an end given at midnight to the last instant of that
// day, so a date-only end keeps the whole day inside the window.
func inclusiveEnd(t time.Time) time.Time {
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, t.Location())
}

// budgetRelevantChange reports whether an edit could move the transaction
// into or out of a budget total.
func budgetRelevantChange(prev, cur *models.Transaction) bool {
	if prev == nil || cur == nil {
		return true
	}
	return prev.Type != cur.Type ||
		prev.Amount != cur.Amount ||
		prev.Status != cur.Status ||
		!prev.Date.Equal(cur.Date) ||
		!sameCategory(prev.CategoryID, cur.CategoryID)
}

func sameCategory(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
