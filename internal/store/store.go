// Package store declares the persistence collaborators used by the services.
// Every record except users is scoped to its owner; lookups with a foreign
// owner behave exactly like lookups of a missing record.
package store

import (
	"context"
	"errors"
	"time"

	"pennywise/internal/models"
)

// ErrNotFound is returned when a record does not exist or is not owned by the
// requesting user.
var ErrNotFound = errors.New("store: record not found")

// Patch is a partial update keyed by snake_case field name. Field names match
// both the SQL column and the document field.
type Patch map[string]any

// Page bounds a listing. A zero Limit returns every match.
type Page struct {
	Offset int
	Limit  int
}

// TransactionFilter selects transactions. UserID is required.
type TransactionFilter struct {
	UserID         string
	CategoryID     *string
	Type           *models.TransactionType
	Status         *models.TransactionStatus
	From           *time.Time
	To             *time.Time
	RecurringID    *string
	OccurrenceKey  string
	IncludeDeleted bool
	Page
}

// CategoryFilter selects categories. UserID is required.
type CategoryFilter struct {
	UserID   string
	Type     *models.CategoryType
	Name     string
	ParentID *string
	Page
}

// RecurringFilter selects recurring definitions. An empty UserID spans all owners.
type RecurringFilter struct {
	UserID     string
	ActiveOnly bool
	DueBy      *time.Time
	Page
}

// BudgetFilter selects budgets. An empty UserID spans all owners.
type BudgetFilter struct {
	UserID      string
	CategoryID  *string
	IsActive    *bool
	Period      *models.BudgetPeriod
	Covering    *time.Time
	EndedBefore *time.Time
	Page
}

// GoalFilter selects goals. An empty UserID spans all owners.
type GoalFilter struct {
	UserID string
	Status *models.GoalStatus
	Page
}

// UserStore persists accounts. Users are not owner-scoped.
type UserStore interface {
	FindOne(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id string, patch Patch) (*models.User, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	Find(ctx context.Context, filter CategoryFilter) ([]models.Category, int64, error)
	FindOne(ctx context.Context, userID, id string) (*models.Category, error)
	Insert(ctx context.Context, category *models.Category) error
	Update(ctx context.Context, userID, id string, patch Patch) (*models.Category, error)
	Delete(ctx context.Context, userID, id string) error
}

// TransactionStore persists transactions. Soft-deleted rows are excluded from
// Find and SumAmount unless the filter asks for them.
type TransactionStore interface {
	Find(ctx context.Context, filter TransactionFilter) ([]models.Transaction, int64, error)
	FindOne(ctx context.Context, userID, id string) (*models.Transaction, error)
	Insert(ctx context.Context, tx *models.Transaction) error
	Update(ctx context.Context, userID, id string, patch Patch) (*models.Transaction, error)
	SumAmount(ctx context.Context, filter TransactionFilter) (int64, error)
}

// RecurringStore persists recurring definitions.
type RecurringStore interface {
	Find(ctx context.Context, filter RecurringFilter) ([]models.RecurringTransaction, int64, error)
	FindOne(ctx context.Context, userID, id string) (*models.RecurringTransaction, error)
	Insert(ctx context.Context, def *models.RecurringTransaction) error
	Update(ctx context.Context, userID, id string, patch Patch) (*models.RecurringTransaction, error)
	Delete(ctx context.Context, userID, id string) error
}

// BudgetStore persists budgets.
type BudgetStore interface {
	Find(ctx context.Context, filter BudgetFilter) ([]models.Budget, int64, error)
	FindOne(ctx context.Context, userID, id string) (*models.Budget, error)
	Insert(ctx context.Context, budget *models.Budget) error
	Update(ctx context.Context, userID, id string, patch Patch) (*models.Budget, error)
	Delete(ctx context.Context, userID, id string) error
}

// GoalStore persists goals with their embedded contributions and reminders.
// Save replaces the whole record and is used after ledger mutations.
type GoalStore interface {
	Find(ctx context.Context, filter GoalFilter) ([]models.Goal, int64, error)
	FindOne(ctx context.Context, userID, id string) (*models.Goal, error)
	Insert(ctx context.Context, goal *models.Goal) error
	Update(ctx context.Context, userID, id string, patch Patch) (*models.Goal, error)
	Save(ctx context.Context, goal *models.Goal) error
	Delete(ctx context.Context, userID, id string) error
}

// AuditStore appends audit entries.
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	Find(ctx context.Context, userID string, page Page) ([]models.AuditLog, int64, error)
}

// Stores bundles one backend's implementations.
type Stores struct {
	Users        UserStore
	Categories   CategoryStore
	Transactions TransactionStore
	Recurring    RecurringStore
	Budgets      BudgetStore
	Goals        GoalStore
	Audit        AuditStore
}
