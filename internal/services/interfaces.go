package services

import (
	"context"
	"time"

	"pennywise/internal/events"
	"pennywise/internal/models"
	"pennywise/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	StoreRefreshTokenHash(ctx context.Context, userID, tokenHash string) error
	GetRefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, userID, name string, categoryType models.CategoryType, description, icon, color string, parentID *string) (*models.Category, error)
	GetUserCategories(ctx context.Context, userID string, categoryType *models.CategoryType, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	GetCategoryByID(ctx context.Context, userID, categoryID string) (*models.Category, error)
	UpdateCategory(ctx context.Context, userID, categoryID, name, description, icon, color string, parentID *string) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, categoryID string) error
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate       *time.Time
	ToDate         *time.Time
	Type           *models.TransactionType
	CategoryID     *string
	RecurringID    *string
	IncludeDeleted bool
}

// TransactionInput carries the fields of a new transaction. A zero Date means now.
type TransactionInput struct {
	CategoryID  *string
	Type        models.TransactionType
	Status      models.TransactionStatus
	Amount      int64
	Description string
	Date        time.Time
}

// TransactionUpdate carries a partial edit; nil fields are left unchanged.
type TransactionUpdate struct {
	CategoryID  *string
	Type        *models.TransactionType
	Status      *models.TransactionStatus
	Amount      *int64
	Description *string
	Date        *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, in TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	RestoreTransaction(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
}

// RecurringInput carries the fields of a new recurring definition. Anchor
// components left nil default from StartDate.
type RecurringInput struct {
	Type          models.TransactionType
	Amount        int64
	CategoryID    *string
	Description   string
	Frequency     models.Frequency
	DayOfWeek     *int
	DayOfMonth    *int
	MonthOfYear   *int
	StartDate     time.Time
	EndDate       *time.Time
	MaxExecutions *int
}

// RecurringUpdate carries an owner edit; nil fields are left unchanged.
type RecurringUpdate struct {
	Amount        *int64
	CategoryID    *string
	Description   *string
	Frequency     *models.Frequency
	DayOfWeek     *int
	DayOfMonth    *int
	MonthOfYear   *int
	EndDate       *time.Time
	MaxExecutions *int
}

// Run outcomes reported by RunResult.Status.
const (
	RunStatusNothingDue = "nothing_due"
	RunStatusCompleted  = "completed"
	RunStatusPartial    = "partial_failure"
)

// RunFailure names a definition whose pass was aborted.
type RunFailure struct {
	RecurringID string `json:"recurring_id"`
	Reason      string `json:"reason"`
}

// RunResult summarizes one pass over due recurring definitions.
type RunResult struct {
	Status       string       `json:"status"`
	Due          int          `json:"due"`
	Materialized int          `json:"materialized"`
	Failures     []RunFailure `json:"failures,omitempty"`
}

// UpcomingOccurrence is a projected, not yet materialized, occurrence.
type UpcomingOccurrence struct {
	RecurringID string                 `json:"recurring_id"`
	Description string                 `json:"description"`
	Type        models.TransactionType `json:"type"`
	Amount      int64                  `json:"amount"`
	Date        time.Time              `json:"date"`
}

// RecurringServicer defines the contract for recurring schedule management
// and materialization.
type RecurringServicer interface {
	CreateRecurring(ctx context.Context, userID string, in RecurringInput) (*models.RecurringTransaction, error)
	GetUserRecurring(ctx context.Context, userID string, activeOnly bool, page pagination.PageRequest) (*pagination.PageResponse[models.RecurringTransaction], error)
	GetRecurringByID(ctx context.Context, userID, recurringID string) (*models.RecurringTransaction, error)
	UpdateRecurring(ctx context.Context, userID, recurringID string, in RecurringUpdate) (*models.RecurringTransaction, error)
	SetRecurringActive(ctx context.Context, userID, recurringID string, active bool) (*models.RecurringTransaction, error)
	DeleteRecurring(ctx context.Context, userID, recurringID string) error
	RunDue(ctx context.Context, now time.Time) (*RunResult, error)
	RunDueForUser(ctx context.Context, userID string, now time.Time) (*RunResult, error)
	Upcoming(ctx context.Context, userID string, days int, now time.Time) ([]UpcomingOccurrence, error)
}

// BudgetInput carries the fields of a new budget. A nil EndDate derives the
// window end from Period; a nil AlertThreshold uses the configured default.
type BudgetInput struct {
	CategoryID     string
	Name           string
	Amount         int64
	Period         models.BudgetPeriod
	StartDate      time.Time
	EndDate        *time.Time
	AlertThreshold *int
	AutoRenew      bool
}

// BudgetUpdate carries an owner edit; nil fields are left unchanged.
type BudgetUpdate struct {
	Name           *string
	Amount         *int64
	EndDate        *time.Time
	AlertThreshold *int
	AutoRenew      *bool
	IsActive       *bool
}

// BudgetProgress contains spending vs budget data for a budget's window.
type BudgetProgress struct {
	BudgetID    string    `json:"budget_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Budgeted    int64     `json:"budgeted"`
	Spent       int64     `json:"spent"`
	Remaining   int64     `json:"remaining"`
	Percentage  int       `json:"percentage"`
	IsExceeded  bool      `json:"is_exceeded"`
	ShouldAlert bool      `json:"should_alert"`
}

// BudgetServicer defines the contract for budget-related business logic.
// It also consumes committed transactions to keep spent totals current.
type BudgetServicer interface {
	events.Handler

	CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error)
	GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest, isActive *bool, period *models.BudgetPeriod) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	RecomputeBudget(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error)
	RenewBudget(ctx context.Context, userID, budgetID string, now time.Time) (*models.Budget, error)
	RenewExpired(ctx context.Context, now time.Time) (int, error)
}

// GoalUpdate carries an owner edit; nil fields are left unchanged.
type GoalUpdate struct {
	Name         *string
	Description  *string
	TargetAmount *int64
	TargetDate   *time.Time
}

// GoalPacing describes how much must be saved per month to hit the target.
type GoalPacing struct {
	GoalID        string `json:"goal_id"`
	Remaining     int64  `json:"remaining"`
	MonthsLeft    int    `json:"months_left"`
	MonthlyAmount int64  `json:"monthly_amount"`
	Percentage    int    `json:"percentage"`
}

// GoalServicer defines the contract for savings goals and their contribution ledger.
type GoalServicer interface {
	CreateGoal(ctx context.Context, userID, name, description string, targetAmount int64, targetDate time.Time) (*models.Goal, error)
	GetUserGoals(ctx context.Context, userID string, status *models.GoalStatus, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(ctx context.Context, userID, goalID string) (*models.Goal, error)
	UpdateGoal(ctx context.Context, userID, goalID string, in GoalUpdate) (*models.Goal, error)
	SetGoalStatus(ctx context.Context, userID, goalID string, status models.GoalStatus) (*models.Goal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) error
	AddContribution(ctx context.Context, userID, goalID string, amount int64, note string) (*models.Goal, error)
	RemoveContribution(ctx context.Context, userID, goalID, contributionID string) (*models.Goal, error)
	AddReminder(ctx context.Context, userID, goalID, message string, date time.Time) (*models.Goal, error)
	RemoveReminder(ctx context.Context, userID, goalID, reminderID string) (*models.Goal, error)
	GetGoalPacing(ctx context.Context, userID, goalID string, now time.Time) (*GoalPacing, error)
	SendDueReminders(ctx context.Context, now time.Time) (int, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
