package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category represents a transaction category
type Category struct {
	Base
	UserID      string       `gorm:"type:uuid;not null;index" firestore:"user_id" json:"user_id"`
	Name        string       `gorm:"not null" firestore:"name" json:"name"`
	Type        CategoryType `gorm:"not null" firestore:"type" json:"type"`
	Description string       `firestore:"description" json:"description"`
	Icon        string       `firestore:"icon" json:"icon"`
	Color       string       `firestore:"color" json:"color"`
	ParentID    *string      `gorm:"type:uuid" firestore:"parent_id" json:"parent_id,omitempty"`
}

// Accepts reports whether transactions of the given type may use this category.
func (c *Category) Accepts(t TransactionType) bool {
	return string(c.Type) == string(t)
}
