package models

import "time"

// Frequency is the cadence of a recurring transaction.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringTransaction is a schedule definition that materializes concrete
// transactions each time it comes due.
type RecurringTransaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index" firestore:"user_id" json:"user_id"`
	Type        TransactionType `gorm:"not null" firestore:"type" json:"type"`
	Amount      int64           `gorm:"type:bigint;not null" firestore:"amount" json:"amount"`
	CategoryID  *string         `gorm:"type:uuid" firestore:"category_id" json:"category_id,omitempty"`
	Description string          `firestore:"description" json:"description"`

	Frequency   Frequency `gorm:"not null" firestore:"frequency" json:"frequency"`
	DayOfWeek   *int      `firestore:"day_of_week" json:"day_of_week,omitempty"`
	DayOfMonth  *int      `firestore:"day_of_month" json:"day_of_month,omitempty"`
	MonthOfYear *int      `firestore:"month_of_year" json:"month_of_year,omitempty"`

	StartDate time.Time  `gorm:"not null" firestore:"start_date" json:"start_date"`
	EndDate   *time.Time `firestore:"end_date" json:"end_date,omitempty"`
	IsActive  bool       `gorm:"not null;default:true;index" firestore:"is_active" json:"is_active"`

	NextDue        time.Time  `gorm:"not null;index" firestore:"next_due" json:"next_due"`
	LastExecution  *time.Time `firestore:"last_execution" json:"last_execution,omitempty"`
	ExecutionCount int        `gorm:"not null;default:0" firestore:"execution_count" json:"execution_count"`
	MaxExecutions  *int       `firestore:"max_executions" json:"max_executions,omitempty"`
}

// ReachedLimit reports whether the execution cap has been hit.
func (r *RecurringTransaction) ReachedLimit() bool {
	return r.MaxExecutions != nil && r.ExecutionCount >= *r.MaxExecutions
}

// IsDue reports whether the definition should materialize an occurrence at now.
func (r *RecurringTransaction) IsDue(now time.Time) bool {
	if !r.IsActive || r.ReachedLimit() {
		return false
	}
	if r.EndDate != nil && r.EndDate.Before(now) {
		return false
	}
	return !r.NextDue.After(now)
}
