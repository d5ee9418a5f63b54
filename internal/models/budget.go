package models

import "time"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
	BudgetPeriodCustom  BudgetPeriod = "custom"
)

// Budget represents a spending limit for a category over a time window.
// Spent is a cache of the matching transactions' total and is only ever
// overwritten by a full recompute.
type Budget struct {
	Base
	UserID         string       `gorm:"type:uuid;not null;index" firestore:"user_id" json:"user_id"`
	CategoryID     string       `gorm:"type:uuid;not null;index" firestore:"category_id" json:"category_id"`
	Name           string       `gorm:"not null" firestore:"name" json:"name"`
	Amount         int64        `gorm:"type:bigint;not null" firestore:"amount" json:"amount"`
	Period         BudgetPeriod `gorm:"not null" firestore:"period" json:"period"`
	StartDate      time.Time    `gorm:"not null" firestore:"start_date" json:"start_date"`
	EndDate        time.Time    `gorm:"not null" firestore:"end_date" json:"end_date"`
	Spent          int64        `gorm:"type:bigint;not null;default:0" firestore:"spent" json:"spent"`
	AlertThreshold int          `gorm:"not null;default:80" firestore:"alert_threshold" json:"alert_threshold"`
	AlertSent      bool         `gorm:"not null;default:false" firestore:"alert_sent" json:"alert_sent"`
	AutoRenew      bool         `gorm:"not null;default:false" firestore:"auto_renew" json:"auto_renew"`
	IsActive       bool         `gorm:"default:true;index" firestore:"is_active" json:"is_active"`

	// When Spent was last rederived from the transaction set.
	LastRecomputedAt *time.Time `firestore:"last_recomputed_at" json:"last_recomputed_at,omitempty"`
}

// Contains reports whether t falls inside the budget window, both ends inclusive.
func (b *Budget) Contains(t time.Time) bool {
	return !t.Before(b.StartDate) && !t.After(b.EndDate)
}

// Overlaps reports whether the two windows share at least one instant.
func (b *Budget) Overlaps(start, end time.Time) bool {
	return !start.After(b.EndDate) && !end.Before(b.StartDate)
}
