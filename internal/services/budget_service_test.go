package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pennywise/internal/models"
	"pennywise/internal/pagination"
	"pennywise/internal/store"
	"pennywise/internal/store/sqlstore"
	"pennywise/internal/testutil"

	"gorm.io/gorm"
)

// notifierRecorder captures alerts instead of delivering them.
type notifierRecorder struct {
	budgetAlerts   []string
	goalsCompleted []string
	reminders      []string
}

func (n *notifierRecorder) BudgetThresholdReached(_ context.Context, b *models.Budget, _ int) {
	n.budgetAlerts = append(n.budgetAlerts, b.ID)
}

func (n *notifierRecorder) GoalCompleted(_ context.Context, g *models.Goal) {
	n.goalsCompleted = append(n.goalsCompleted, g.ID)
}

func (n *notifierRecorder) GoalReminder(_ context.Context, _ *models.Goal, r models.Reminder) {
	n.reminders = append(n.reminders, r.ID)
}

func newTestBudgetService(db *gorm.DB, now time.Time) (*budgetService, *notifierRecorder) {
	rec := &notifierRecorder{}
	svc := NewBudgetService(sqlstore.New(db), rec, 80).(*budgetService)
	svc.now = testutil.FixedClock(now)
	return svc, rec
}

// failingInsertBudgetStore rejects every insert.
type failingInsertBudgetStore struct {
	store.BudgetStore
}

func (s *failingInsertBudgetStore) Insert(context.Context, *models.Budget) error {
	return errors.New("disk full")
}

var (
	marchStart = testutil.Date(2024, time.March, 1)
	marchEnd   = time.Date(2024, time.March, 31, 23, 59, 59, 999999999, time.UTC)
	midMarch   = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
)

func TestCreateBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("monthly_window_derived", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		b, err := svc.CreateBudget(ctx, user.ID, BudgetInput{
			CategoryID: cat.ID,
			Name:       "Food",
			Amount:     50000,
			Period:     models.BudgetPeriodMonthly,
			StartDate:  marchStart,
		})
		testutil.AssertNoError(t, err)

		if !b.EndDate.Equal(marchEnd) {
			t.Errorf("expected end %v, got %v", marchEnd, b.EndDate)
		}
		if b.AlertThreshold != 80 {
			t.Errorf("expected default threshold 80, got %d", b.AlertThreshold)
		}
		if !b.IsActive {
			t.Error("expected budget to be active")
		}
		if b.LastRecomputedAt == nil {
			t.Error("expected spent to be seeded")
		}
	})

	t.Run("seeds_spent_from_existing_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 1200, testutil.Date(2024, time.March, 3))

		b, err := svc.CreateBudget(ctx, user.ID, BudgetInput{
			CategoryID: cat.ID, Name: "Food", Amount: 50000,
			Period: models.BudgetPeriodMonthly, StartDate: marchStart,
		})
		testutil.AssertNoError(t, err)

		if b.Spent != 1200 {
			t.Errorf("expected spent 1200, got %d", b.Spent)
		}
	})

	t.Run("window_conflict", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		_, err := svc.CreateBudget(ctx, user.ID, BudgetInput{
			CategoryID: cat.ID, Name: "Overlap", Amount: 100,
			Period: models.BudgetPeriodWeekly, StartDate: testutil.Date(2024, time.March, 28),
		})
		testutil.AssertAppError(t, err, "BUDGET_WINDOW_CONFLICT")

		_, err = svc.CreateBudget(ctx, user.ID, BudgetInput{
			CategoryID: cat.ID, Name: "April", Amount: 100,
			Period: models.BudgetPeriodMonthly, StartDate: testutil.Date(2024, time.April, 1),
		})
		testutil.AssertNoError(t, err)
	})

	t.Run("custom_requires_end", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		_, err := svc.CreateBudget(ctx, user.ID, BudgetInput{
			CategoryID: cat.ID, Name: "Trip", Amount: 100,
			Period: models.BudgetPeriodCustom, StartDate: marchStart,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("end_before_start", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		end := testutil.Date(2024, time.February, 1)
		_, err := svc.CreateBudget(ctx, user.ID, BudgetInput{
			CategoryID: cat.ID, Name: "Trip", Amount: 100,
			Period: models.BudgetPeriodCustom, StartDate: marchStart, EndDate: &end,
		})
		testutil.AssertAppError(t, err, "INVALID_DATE_RANGE")
	})

	t.Run("income_category_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeIncome)

		_, err := svc.CreateBudget(ctx, user.ID, BudgetInput{
			CategoryID: cat.ID, Name: "Salary", Amount: 100,
			Period: models.BudgetPeriodMonthly, StartDate: marchStart,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("invalid_threshold", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)

		threshold := 120
		_, err := svc.CreateBudget(ctx, user.ID, BudgetInput{
			CategoryID: cat.ID, Name: "Food", Amount: 100,
			Period: models.BudgetPeriodMonthly, StartDate: marchStart, AlertThreshold: &threshold,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestWindowEnd(t *testing.T) {
	tests := []struct {
		name   string
		start  time.Time
		period models.BudgetPeriod
		want   time.Time
	}{
		{"weekly", testutil.Date(2024, time.March, 4), models.BudgetPeriodWeekly, time.Date(2024, time.March, 10, 23, 59, 59, 999999999, time.UTC)},
		{"monthly_from_first", marchStart, models.BudgetPeriodMonthly, marchEnd},
		{"monthly_from_31st", testutil.Date(2024, time.January, 31), models.BudgetPeriodMonthly, time.Date(2024, time.February, 28, 23, 59, 59, 999999999, time.UTC)},
		{"yearly", testutil.Date(2024, time.January, 1), models.BudgetPeriodYearly, time.Date(2024, time.December, 31, 23, 59, 59, 999999999, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := windowEnd(tt.start, tt.period, nil)
			testutil.AssertNoError(t, err)
			if !got.Equal(tt.want) {
				t.Errorf("windowEnd(%v, %s) = %v, want %v", tt.start, tt.period, got, tt.want)
			}
		})
	}
}

func TestWindowEndExplicit(t *testing.T) {
	t.Run("midnight_end_covers_whole_day", func(t *testing.T) {
		explicit := testutil.Date(2024, time.March, 31)
		got, err := windowEnd(marchStart, models.BudgetPeriodCustom, &explicit)
		testutil.AssertNoError(t, err)
		if !got.Equal(marchEnd) {
			t.Errorf("expected %v, got %v", marchEnd, got)
		}
	})

	t.Run("time_of_day_kept", func(t *testing.T) {
		explicit := time.Date(2024, time.March, 31, 18, 0, 0, 0, time.UTC)
		got, err := windowEnd(marchStart, models.BudgetPeriodCustom, &explicit)
		testutil.AssertNoError(t, err)
		if !got.Equal(explicit) {
			t.Errorf("expected %v, got %v", explicit, got)
		}
	})
}

func TestRecomputeBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("ignores_soft_deleted", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 100, testutil.Date(2024, time.March, 1))
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 50, testutil.Date(2024, time.March, 15))
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 25, testutil.Date(2024, time.March, 31))
		deleted := testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 999, testutil.Date(2024, time.March, 20))
		if err := db.Model(deleted).Updates(map[string]interface{}{"is_deleted": true, "deleted_at": midMarch}).Error; err != nil {
			t.Fatalf("failed to soft-delete: %v", err)
		}

		updated, err := svc.RecomputeBudget(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)

		if updated.Spent != 175 {
			t.Errorf("expected spent 175, got %d", updated.Spent)
		}
	})

	t.Run("only_matching_transactions", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		other := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 100, midMarch)
		testutil.CreateTestTransaction(t, db, user.ID, &other.ID, models.TransactionTypeExpense, 200, midMarch)
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 400, testutil.Date(2024, time.April, 1))
		pending := testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 800, midMarch)
		if err := db.Model(pending).Update("status", models.TransactionStatusPending).Error; err != nil {
			t.Fatalf("failed to mark pending: %v", err)
		}

		updated, err := svc.RecomputeBudget(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)

		if updated.Spent != 100 {
			t.Errorf("expected spent 100, got %d", updated.Spent)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 4200, midMarch)

		first, err := svc.RecomputeBudget(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		second, err := svc.RecomputeBudget(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)

		if first.Spent != second.Spent {
			t.Errorf("expected identical spent, got %d and %d", first.Spent, second.Spent)
		}
	})

	t.Run("alert_sent_once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, rec := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 8500, midMarch)

		updated, err := svc.RecomputeBudget(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if !updated.AlertSent {
			t.Error("expected alert to be marked sent")
		}

		_, err = svc.RecomputeBudget(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)

		if len(rec.budgetAlerts) != 1 {
			t.Errorf("expected one alert, got %d", len(rec.budgetAlerts))
		}
	})

	t.Run("not_found", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		other := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, other.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, other.ID, cat.ID, marchStart, marchEnd)

		_, err := svc.RecomputeBudget(ctx, user.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}

func TestGetBudgetProgress(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc, _ := newTestBudgetService(db, midMarch)
	user := testutil.CreateTestUser(t, db)
	cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)
	testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 12345, midMarch)

	_, err := svc.RecomputeBudget(ctx, user.ID, budget.ID)
	testutil.AssertNoError(t, err)

	progress, err := svc.GetBudgetProgress(ctx, user.ID, budget.ID)
	testutil.AssertNoError(t, err)

	if progress.Spent != 12345 {
		t.Errorf("expected spent 12345, got %d", progress.Spent)
	}
	if progress.Remaining != -2345 {
		t.Errorf("expected remaining -2345, got %d", progress.Remaining)
	}
	if progress.Percentage != 123 {
		t.Errorf("expected percentage 123, got %d", progress.Percentage)
	}
	if !progress.IsExceeded {
		t.Error("expected budget to be exceeded")
	}
	if progress.ShouldAlert {
		t.Error("expected no pending alert after it was sent")
	}
}

func TestBudgetTransactionEvents(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*gorm.DB, *budgetService, *transactionService) {
		db := testutil.SetupTestDB(t)
		budgets, _ := newTestBudgetService(db, midMarch)
		txs := NewTransactionService(sqlstore.New(db), budgets).(*transactionService)
		txs.now = testutil.FixedClock(midMarch)
		return db, budgets, txs
	}

	t.Run("create_update_delete_restore", func(t *testing.T) {
		db, budgets, txs := setup(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		spent := func() int64 {
			b, err := budgets.GetBudgetByID(ctx, user.ID, budget.ID)
			testutil.AssertNoError(t, err)
			return b.Spent
		}

		tx, err := txs.CreateTransaction(ctx, user.ID, TransactionInput{
			CategoryID: &cat.ID, Type: models.TransactionTypeExpense, Amount: 3000, Date: midMarch,
		})
		testutil.AssertNoError(t, err)
		if got := spent(); got != 3000 {
			t.Errorf("after create: expected 3000, got %d", got)
		}

		amount := int64(4500)
		_, err = txs.UpdateTransaction(ctx, user.ID, tx.ID, TransactionUpdate{Amount: &amount})
		testutil.AssertNoError(t, err)
		if got := spent(); got != 4500 {
			t.Errorf("after update: expected 4500, got %d", got)
		}

		_, err = txs.DeleteTransaction(ctx, user.ID, tx.ID)
		testutil.AssertNoError(t, err)
		if got := spent(); got != 0 {
			t.Errorf("after delete: expected 0, got %d", got)
		}

		_, err = txs.RestoreTransaction(ctx, user.ID, tx.ID)
		testutil.AssertNoError(t, err)
		if got := spent(); got != 4500 {
			t.Errorf("after restore: expected 4500, got %d", got)
		}
	})

	t.Run("move_between_categories", func(t *testing.T) {
		db, budgets, txs := setup(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		food := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		rent := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		foodBudget := testutil.CreateTestBudget(t, db, user.ID, food.ID, marchStart, marchEnd)
		rentBudget := testutil.CreateTestBudget(t, db, user.ID, rent.ID, marchStart, marchEnd)

		tx, err := txs.CreateTransaction(ctx, user.ID, TransactionInput{
			CategoryID: &food.ID, Type: models.TransactionTypeExpense, Amount: 700, Date: midMarch,
		})
		testutil.AssertNoError(t, err)

		_, err = txs.UpdateTransaction(ctx, user.ID, tx.ID, TransactionUpdate{CategoryID: &rent.ID})
		testutil.AssertNoError(t, err)

		fb, err := budgets.GetBudgetByID(ctx, user.ID, foodBudget.ID)
		testutil.AssertNoError(t, err)
		rb, err := budgets.GetBudgetByID(ctx, user.ID, rentBudget.ID)
		testutil.AssertNoError(t, err)

		if fb.Spent != 0 {
			t.Errorf("expected food budget 0, got %d", fb.Spent)
		}
		if rb.Spent != 700 {
			t.Errorf("expected rent budget 700, got %d", rb.Spent)
		}
	})

	t.Run("income_ignored", func(t *testing.T) {
		db, budgets, txs := setup(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		_, err := txs.CreateTransaction(ctx, user.ID, TransactionInput{Type: models.TransactionTypeIncome, Amount: 9000, Date: midMarch})
		testutil.AssertNoError(t, err)

		b, err := budgets.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if b.LastRecomputedAt != nil {
			t.Error("expected budget to be untouched by income")
		}
	})

	t.Run("description_edit_skips_recompute", func(t *testing.T) {
		db, budgets, txs := setup(t)
		defer testutil.TeardownTestDB(t, db)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		tx := testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 100, midMarch)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		desc := "renamed"
		_, err := txs.UpdateTransaction(ctx, user.ID, tx.ID, TransactionUpdate{Description: &desc})
		testutil.AssertNoError(t, err)

		b, err := budgets.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if b.LastRecomputedAt != nil {
			t.Error("expected no recompute for a description change")
		}
	})
}

func TestRenewBudget(t *testing.T) {
	ctx := context.Background()
	aprilSecond := time.Date(2024, time.April, 2, 9, 0, 0, 0, time.UTC)

	t.Run("auto_renew_shifts_window", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, aprilSecond)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)
		if err := db.Model(budget).Updates(map[string]interface{}{"auto_renew": true, "alert_sent": true, "spent": 9000}).Error; err != nil {
			t.Fatalf("failed to prepare budget: %v", err)
		}

		renewed, err := svc.RenewBudget(ctx, user.ID, budget.ID, aprilSecond)
		testutil.AssertNoError(t, err)

		if renewed.ID != budget.ID {
			t.Error("expected the same budget to be renewed in place")
		}
		if !renewed.StartDate.Equal(testutil.Date(2024, time.April, 2)) {
			t.Errorf("expected start 2024-04-02, got %v", renewed.StartDate)
		}
		wantEnd := time.Date(2024, time.May, 2, 23, 59, 59, 999999999, time.UTC)
		if !renewed.EndDate.Equal(wantEnd) {
			t.Errorf("expected end %v, got %v", wantEnd, renewed.EndDate)
		}
		if renewed.Spent != 0 || renewed.AlertSent {
			t.Errorf("expected reset totals, got spent=%d alert_sent=%v", renewed.Spent, renewed.AlertSent)
		}
	})

	t.Run("keeps_window_length", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		marchFirst := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
		svc, _ := newTestBudgetService(db, marchFirst)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID,
			testutil.Date(2024, time.February, 1),
			time.Date(2024, time.February, 10, 23, 59, 59, 999999999, time.UTC))
		if err := db.Model(budget).Update("auto_renew", true).Error; err != nil {
			t.Fatalf("failed to prepare budget: %v", err)
		}

		renewed, err := svc.RenewBudget(ctx, user.ID, budget.ID, marchFirst)
		testutil.AssertNoError(t, err)

		if !renewed.StartDate.Equal(testutil.Date(2024, time.March, 1)) {
			t.Errorf("expected start 2024-03-01, got %v", renewed.StartDate)
		}
		wantEnd := time.Date(2024, time.March, 10, 23, 59, 59, 999999999, time.UTC)
		if !renewed.EndDate.Equal(wantEnd) {
			t.Errorf("expected end %v, got %v", wantEnd, renewed.EndDate)
		}
	})

	t.Run("conflicting_budget_blocks_renewal", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, aprilSecond)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)
		testutil.CreateTestBudget(t, db, user.ID, cat.ID,
			testutil.Date(2024, time.April, 1),
			time.Date(2024, time.April, 30, 23, 59, 59, 999999999, time.UTC))

		_, err := svc.RenewBudget(ctx, user.ID, budget.ID, aprilSecond)
		testutil.AssertAppError(t, err, "BUDGET_WINDOW_CONFLICT")

		original, err := svc.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if !original.IsActive {
			t.Error("expected original budget to stay active")
		}

		list, err := svc.GetUserBudgets(ctx, user.ID, pagination.PageRequest{}, nil, nil)
		testutil.AssertNoError(t, err)
		if list.TotalItems != 2 {
			t.Errorf("expected no new budget, got %d budgets", list.TotalItems)
		}
	})

	t.Run("failed_insert_restores_original", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		stores := sqlstore.New(db)
		stores.Budgets = &failingInsertBudgetStore{BudgetStore: stores.Budgets}
		svc := NewBudgetService(stores, &notifierRecorder{}, 80).(*budgetService)
		svc.now = testutil.FixedClock(aprilSecond)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		_, err := svc.RenewBudget(ctx, user.ID, budget.ID, aprilSecond)
		testutil.AssertAppError(t, err, "INTERNAL_ERROR")

		original, err := svc.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if !original.IsActive {
			t.Error("expected original budget to be reactivated")
		}
	})

	t.Run("manual_renew_creates_new", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, aprilSecond)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		renewed, err := svc.RenewBudget(ctx, user.ID, budget.ID, aprilSecond)
		testutil.AssertNoError(t, err)

		if renewed.ID == budget.ID {
			t.Fatal("expected a new budget record")
		}
		if renewed.Amount != budget.Amount || renewed.CategoryID != budget.CategoryID {
			t.Error("expected parameters to be carried over")
		}

		original, err := svc.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertNoError(t, err)
		if original.IsActive {
			t.Error("expected original budget to be deactivated")
		}

		_, err = svc.RenewBudget(ctx, user.ID, budget.ID, aprilSecond)
		testutil.AssertAppError(t, err, "BUDGET_NOT_RENEWABLE")
	})

	t.Run("renew_expired", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, aprilSecond)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		other := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		auto := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)
		if err := db.Model(auto).Update("auto_renew", true).Error; err != nil {
			t.Fatalf("failed to prepare budget: %v", err)
		}
		testutil.CreateTestBudget(t, db, user.ID, other.ID, marchStart, marchEnd)

		n, err := svc.RenewExpired(ctx, aprilSecond)
		testutil.AssertNoError(t, err)

		if n != 1 {
			t.Errorf("expected 1 renewed budget, got %d", n)
		}

		active := true
		list, err := svc.GetUserBudgets(ctx, user.ID, pagination.PageRequest{}, &active, nil)
		testutil.AssertNoError(t, err)
		if list.TotalItems != 2 {
			t.Errorf("expected 2 active budgets, got %d", list.TotalItems)
		}
	})
}

func TestUpdateAndDeleteBudget(t *testing.T) {
	ctx := context.Background()

	t.Run("amount_change_rederives_alert", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, rec := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)
		testutil.CreateTestTransaction(t, db, user.ID, &cat.ID, models.TransactionTypeExpense, 5000, midMarch)

		amount := int64(6000)
		updated, err := svc.UpdateBudget(ctx, user.ID, budget.ID, BudgetUpdate{Amount: &amount})
		testutil.AssertNoError(t, err)

		if updated.Amount != 6000 || updated.Spent != 5000 {
			t.Errorf("expected amount 6000 spent 5000, got %d/%d", updated.Amount, updated.Spent)
		}
		if len(rec.budgetAlerts) != 1 {
			t.Errorf("expected alert at 83%%, got %d alerts", len(rec.budgetAlerts))
		}
	})

	t.Run("invalid_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		amount := int64(-1)
		_, err := svc.UpdateBudget(ctx, user.ID, budget.ID, BudgetUpdate{Amount: &amount})
		testutil.AssertAppError(t, err, "INVALID_AMOUNT")
	})

	t.Run("delete", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc, _ := newTestBudgetService(db, midMarch)
		user := testutil.CreateTestUser(t, db)
		cat := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
		budget := testutil.CreateTestBudget(t, db, user.ID, cat.ID, marchStart, marchEnd)

		testutil.AssertNoError(t, svc.DeleteBudget(ctx, user.ID, budget.ID))

		_, err := svc.GetBudgetByID(ctx, user.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")

		err = svc.DeleteBudget(ctx, user.ID, budget.ID)
		testutil.AssertAppError(t, err, "BUDGET_NOT_FOUND")
	})
}
