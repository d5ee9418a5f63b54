package models

import (
	"encoding/json"
	"time"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is a supported transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// TransactionStatus tracks settlement; only completed transactions count
// towards budgets.
type TransactionStatus string

const (
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Transaction represents a financial transaction in the system.
// Amounts are stored in cents.
type Transaction struct {
	Base
	UserID      string            `gorm:"type:uuid;not null;index" firestore:"user_id" json:"user_id"`
	CategoryID  *string           `gorm:"type:uuid;index" firestore:"category_id" json:"category_id,omitempty"`
	Type        TransactionType   `gorm:"not null" firestore:"type" json:"type"`
	Status      TransactionStatus `gorm:"not null;default:completed" firestore:"status" json:"status"`
	Amount      int64             `gorm:"type:bigint;not null" firestore:"amount" json:"amount"`
	Description string            `firestore:"description" json:"description"`
	Date        time.Time         `gorm:"not null;index" firestore:"date" json:"date"`

	IsDeleted bool       `gorm:"not null;default:false;index" firestore:"is_deleted" json:"is_deleted"`
	DeletedAt *time.Time `firestore:"deleted_at" json:"deleted_at,omitempty"`

	// Set when the transaction was materialized from a recurring definition.
	// The definition does not own the transaction.
	IsRecurring   bool    `gorm:"not null;default:false" firestore:"is_recurring" json:"is_recurring"`
	RecurringID   *string `gorm:"type:uuid;index" firestore:"recurring_id" json:"recurring_id,omitempty"`
	OccurrenceKey *string `gorm:"uniqueIndex" firestore:"occurrence_key" json:"-"`
}

// CountsTowardsBudget reports whether this transaction belongs in a budget's
// spent total for the given category.
func (t *Transaction) CountsTowardsBudget(categoryID string) bool {
	return t.Type == TransactionTypeExpense &&
		t.Status == TransactionStatusCompleted &&
		!t.IsDeleted &&
		t.CategoryID != nil && *t.CategoryID == categoryID
}

// MarshalJSON redacts amount and description once the transaction is soft-deleted.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	if !t.IsDeleted {
		return json.Marshal(plain(t))
	}
	return json.Marshal(struct {
		plain
		Amount      *int64  `json:"amount"`
		Description *string `json:"description"`
	}{plain: plain(t)})
}
