package services

import (
	"context"
	"sort"
	"time"

	apperrors "pennywise/internal/errors"
	"pennywise/internal/events"
	"pennywise/internal/logger"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/schedule"
	"pennywise/internal/store"
	"pennywise/internal/uuid"
)

const (
	// maxCatchUp bounds how many overdue occurrences one definition may
	// materialize in a single pass.
	maxCatchUp = 100

	maxUpcomingDays = 366
)

// recurringService manages recurring definitions and materializes their
// due occurrences into transactions.
type recurringService struct {
	recurring    store.RecurringStore
	categories   store.CategoryStore
	transactions store.TransactionStore
	events       events.Handler
	now          func() time.Time
}

// NewRecurringService creates a new RecurringServicer. Materialized
// transactions are reported to handler like any other created transaction.
func NewRecurringService(stores *store.Stores, handler events.Handler) RecurringServicer {
	return &recurringService{
		recurring:    stores.Recurring,
		categories:   stores.Categories,
		transactions: stores.Transactions,
		events:       handler,
		now:          time.Now,
	}
}

// CreateRecurring stores a new definition due on the first anchor-aligned
// date on or after its start.
func (s *recurringService) CreateRecurring(ctx context.Context, userID string, in RecurringInput) (*models.RecurringTransaction, error) {
	if in.Amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if !in.Type.Valid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if !in.Frequency.Valid() {
		return nil, apperrors.ErrInvalidFrequency
	}
	if err := validateAnchor(in.DayOfWeek, in.DayOfMonth, in.MonthOfYear); err != nil {
		return nil, err
	}
	if in.StartDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "start date is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return nil, apperrors.ErrInvalidDates
	}
	if in.MaxExecutions != nil && *in.MaxExecutions < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "max executions must be at least 1")
	}
	if in.CategoryID != nil {
		if err := s.checkCategory(ctx, userID, *in.CategoryID, in.Type); err != nil {
			return nil, err
		}
	}

	def := &models.RecurringTransaction{
		UserID:        userID,
		Type:          in.Type,
		Amount:        in.Amount,
		CategoryID:    in.CategoryID,
		Description:   in.Description,
		Frequency:     in.Frequency,
		DayOfWeek:     in.DayOfWeek,
		DayOfMonth:    in.DayOfMonth,
		MonthOfYear:   in.MonthOfYear,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		MaxExecutions: in.MaxExecutions,
		IsActive:      true,
	}
	def.NextDue = schedule.FirstOccurrence(def.StartDate, def.Frequency, schedule.AnchorFor(def))

	if err := s.recurring.Insert(ctx, def); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return def, nil
}

// GetUserRecurring lists the user's definitions, soonest due first.
func (s *recurringService) GetUserRecurring(ctx context.Context, userID string, activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringTransaction], error) {
	page.Defaults()

	defs, total, err := s.recurring.Find(ctx, store.RecurringFilter{
		UserID:     userID,
		ActiveOnly: activeOnly,
		Page:       page.Window(),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(defs, page.Page, page.PageSize, total)
	return &result, nil
}

// GetRecurringByID returns a definition by ID if it belongs to the user.
func (s *recurringService) GetRecurringByID(ctx context.Context, userID, recurringID string) (*models.RecurringTransaction, error) {
	def, err := s.recurring.FindOne(ctx, userID, recurringID)
	if err != nil {
		return nil, storeError(err, apperrors.ErrRecurringNotFound)
	}
	return def, nil
}

// UpdateRecurring applies an owner edit. A schedule change re-anchors the
// next due date without ever moving it backward.
func (s *recurringService) UpdateRecurring(ctx context.Context, userID, recurringID string, in RecurringUpdate) (*models.RecurringTransaction, error) {
	def, err := s.GetRecurringByID(ctx, userID, recurringID)
	if err != nil {
		return nil, err
	}

	patch := store.Patch{}
	if in.Amount != nil {
		if *in.Amount <= 0 {
			return nil, apperrors.ErrInvalidAmount
		}
		patch["amount"] = *in.Amount
	}
	if in.Description != nil {
		patch["description"] = *in.Description
	}
	if in.CategoryID != nil {
		if *in.CategoryID == "" {
			patch["category_id"] = nil
		} else {
			if err := s.checkCategory(ctx, userID, *in.CategoryID, def.Type); err != nil {
				return nil, err
			}
			patch["category_id"] = *in.CategoryID
		}
	}
	if in.EndDate != nil {
		if in.EndDate.Before(def.StartDate) {
			return nil, apperrors.ErrInvalidDates
		}
		patch["end_date"] = *in.EndDate
	}
	if in.MaxExecutions != nil {
		if *in.MaxExecutions < 1 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "max executions must be at least 1")
		}
		patch["max_executions"] = *in.MaxExecutions
	}

	if in.Frequency != nil || in.DayOfWeek != nil || in.DayOfMonth != nil || in.MonthOfYear != nil {
		if in.Frequency != nil {
			if !in.Frequency.Valid() {
				return nil, apperrors.ErrInvalidFrequency
			}
			def.Frequency = *in.Frequency
			patch["frequency"] = *in.Frequency
		}
		if err := validateAnchor(in.DayOfWeek, in.DayOfMonth, in.MonthOfYear); err != nil {
			return nil, err
		}
		if in.DayOfWeek != nil {
			def.DayOfWeek = in.DayOfWeek
			patch["day_of_week"] = *in.DayOfWeek
		}
		if in.DayOfMonth != nil {
			def.DayOfMonth = in.DayOfMonth
			patch["day_of_month"] = *in.DayOfMonth
		}
		if in.MonthOfYear != nil {
			def.MonthOfYear = in.MonthOfYear
			patch["month_of_year"] = *in.MonthOfYear
		}
		patch["next_due"] = schedule.FirstOccurrence(def.NextDue, def.Frequency, schedule.AnchorFor(def))
	}

	if len(patch) == 0 {
		return def, nil
	}

	updated, err := s.recurring.Update(ctx, userID, recurringID, patch)
	if err != nil {
		return nil, storeError(err, apperrors.ErrRecurringNotFound)
	}
	return updated, nil
}

// SetRecurringActive pauses or resumes a definition. A resumed definition
// catches up on missed occurrences at the next run.
func (s *recurringService) SetRecurringActive(ctx context.Context, userID, recurringID string, active bool) (*models.RecurringTransaction, error) {
	if active {
		def, err := s.recurring.FindOne(ctx, userID, recurringID)
		if err != nil {
			return nil, storeError(err, apperrors.ErrRecurringNotFound)
		}
		// A finished schedule stays finished; reactivating it would never fire.
		if def.ReachedLimit() || (def.EndDate != nil && def.NextDue.After(*def.EndDate)) {
			return nil, apperrors.ErrRecurringExhausted
		}
	}

	updated, err := s.recurring.Update(ctx, userID, recurringID, store.Patch{"is_active": active})
	if err != nil {
		return nil, storeError(err, apperrors.ErrRecurringNotFound)
	}
	return updated, nil
}

// DeleteRecurring removes a definition. Transactions it already
// materialized are kept with their back-reference.
func (s *recurringService) DeleteRecurring(ctx context.Context, userID, recurringID string) error {
	if err := s.recurring.Delete(ctx, userID, recurringID); err != nil {
		return storeError(err, apperrors.ErrRecurringNotFound)
	}
	return nil
}

// RunDue materializes every due definition across all users.
func (s *recurringService) RunDue(ctx context.Context, now time.Time) (*RunResult, error) {
	return s.runDue(ctx, "", now)
}

// RunDueForUser materializes the user's due definitions.
func (s *recurringService) RunDueForUser(ctx context.Context, userID string, now time.Time) (*RunResult, error) {
	return s.runDue(ctx, userID, now)
}

func (s *recurringService) runDue(ctx context.Context, userID string, now time.Time) (*RunResult, error) {
	candidates, _, err := s.recurring.Find(ctx, store.RecurringFilter{
		UserID:     userID,
		ActiveOnly: true,
		DueBy:      &now,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := &RunResult{Status: RunStatusNothingDue}
	for i := range candidates {
		def := &candidates[i]
		if !def.IsDue(now) {
			continue
		}
		result.Due++

		n, err := s.execute(ctx, def, now)
		result.Materialized += n
		if err != nil {
			logger.FromContext(ctx).Errorw("recurring execution aborted",
				"error", err,
				"recurring_id", def.ID,
				"user_id", def.UserID,
				"materialized", n,
			)
			result.Failures = append(result.Failures, RunFailure{RecurringID: def.ID, Reason: err.Error()})
		}
	}

	switch {
	case result.Due == 0:
		result.Status = RunStatusNothingDue
	case len(result.Failures) > 0:
		result.Status = RunStatusPartial
	default:
		result.Status = RunStatusCompleted
	}

	if result.Due > 0 {
		logger.FromContext(ctx).Infow("recurring run finished",
			"user_id", userID,
			"due", result.Due,
			"materialized", result.Materialized,
			"failures", len(result.Failures),
		)
	}
	return result, nil
}

// execute materializes and advances def while it stays due. Each occurrence
// is written before the definition moves past it, and an occurrence that was
// already written is reused, so a lost definition update never duplicates.
func (s *recurringService) execute(ctx context.Context, def *models.RecurringTransaction, now time.Time) (int, error) {
	anchor := schedule.AnchorFor(def)
	created := 0

	for step := 0; step < maxCatchUp && def.IsDue(now); step++ {
		occurrence := def.NextDue

		tx, isNew, err := s.materialize(ctx, def, occurrence)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
			publish(ctx, s.events, events.TransactionCommitted{
				UserID:  def.UserID,
				Action:  events.ActionCreated,
				Current: tx,
				At:      now,
			})
		}

		next := schedule.NextOccurrence(occurrence, def.Frequency, anchor)
		count := def.ExecutionCount + 1
		patch := store.Patch{
			"next_due":        next,
			"last_execution":  occurrence,
			"execution_count": count,
		}
		if (def.EndDate != nil && next.After(*def.EndDate)) ||
			(def.MaxExecutions != nil && count >= *def.MaxExecutions) {
			patch["is_active"] = false
		}

		updated, err := s.recurring.Update(ctx, def.UserID, def.ID, patch)
		if err != nil {
			return created, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		*def = *updated
	}
	return created, nil
}

// materialize writes the transaction for one occurrence, or returns the one
// already written for it.
func (s *recurringService) materialize(ctx context.Context, def *models.RecurringTransaction, occurrence time.Time) (*models.Transaction, bool, error) {
	key := OccurrenceKey(def.ID, occurrence)

	existing, _, err := s.transactions.Find(ctx, store.TransactionFilter{
		UserID:         def.UserID,
		OccurrenceKey:  key,
		IncludeDeleted: true,
		Page:           store.Page{Limit: 1},
	})
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(existing) > 0 {
		return &existing[0], false, nil
	}

	if def.Amount <= 0 {
		return nil, false, apperrors.ErrInvalidAmount
	}
	if def.CategoryID != nil {
		if err := s.checkCategory(ctx, def.UserID, *def.CategoryID, def.Type); err != nil {
			return nil, false, err
		}
	}

	recurringID := def.ID
	tx := &models.Transaction{
		UserID:        def.UserID,
		CategoryID:    def.CategoryID,
		Type:          def.Type,
		Status:        models.TransactionStatusCompleted,
		Amount:        def.Amount,
		Description:   def.Description,
		Date:          occurrence,
		IsRecurring:   true,
		RecurringID:   &recurringID,
		OccurrenceKey: &key,
	}
	tx.ID = uuid.FromKey(key)

	if err := s.transactions.Insert(ctx, tx); err != nil {
		return nil, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return tx, true, nil
}

// Upcoming projects the user's occurrences over the next days without
// writing anything.
func (s *recurringService) Upcoming(ctx context.Context, userID string, days int, now time.Time) ([]UpcomingOccurrence, error) {
	if days < 1 || days > maxUpcomingDays {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "days must be between 1 and 366")
	}

	defs, _, err := s.recurring.Find(ctx, store.RecurringFilter{UserID: userID, ActiveOnly: true})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	horizon := now.AddDate(0, 0, days)
	out := []UpcomingOccurrence{}
	for i := range defs {
		def := &defs[i]
		if def.ReachedLimit() {
			continue
		}

		until := horizon
		if def.EndDate != nil && def.EndDate.Before(until) {
			until = *def.EndDate
		}
		limit := maxCatchUp
		if def.MaxExecutions != nil && *def.MaxExecutions-def.ExecutionCount < limit {
			limit = *def.MaxExecutions - def.ExecutionCount
		}

		for _, d := range schedule.Occurrences(def.NextDue, until, def.Frequency, schedule.AnchorFor(def), limit) {
			out = append(out, UpcomingOccurrence{
				RecurringID: def.ID,
				Description: def.Description,
				Type:        def.Type,
				Amount:      def.Amount,
				Date:        d,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *recurringService) checkCategory(ctx context.Context, userID, categoryID string, txType models.TransactionType) error {
	category, err := s.categories.FindOne(ctx, userID, categoryID)
	if err != nil {
		return storeError(err, apperrors.ErrCategoryNotFound)
	}
	if !category.Accepts(txType) {
		return apperrors.ErrCategoryTypeMismatch
	}
	return nil
}

// OccurrenceKey identifies one occurrence of a definition.
func OccurrenceKey(recurringID string, occurrence time.Time) string {
	return recurringID + ":" + occurrence.Format("2006-01-02")
}

func validateAnchor(dayOfWeek, dayOfMonth, monthOfYear *int) error {
	if dayOfWeek != nil && (*dayOfWeek < 0 || *dayOfWeek > 6) {
		return apperrors.WithMessage(apperrors.ErrInvalidAnchor, "day_of_week must be between 0 and 6")
	}
	if dayOfMonth != nil && (*dayOfMonth < 1 || *dayOfMonth > 31) {
		return apperrors.WithMessage(apperrors.ErrInvalidAnchor, "day_of_month must be between 1 and 31")
	}
	if monthOfYear != nil && (*monthOfYear < 1 || *monthOfYear > 12) {
		return apperrors.WithMessage(apperrors.ErrInvalidAnchor, "month_of_year must be between 1 and 12")
	}
	return nil
}
