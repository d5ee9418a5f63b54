package models

import "time"

// User represents the user model in the database
type User struct {
	Base
	Email               string     `gorm:"uniqueIndex;not null" firestore:"email" json:"email"`
	Password            string     `gorm:"not null" firestore:"password" json:"-"`
	FirstName           string     `firestore:"first_name" json:"first_name"`
	LastName            string     `firestore:"last_name" json:"last_name"`
	IsActive            bool       `gorm:"default:true" firestore:"is_active" json:"is_active"`
	RefreshTokenHash    string     `gorm:"size:64" firestore:"refresh_token_hash" json:"-"`
	FailedLoginAttempts int        `gorm:"default:0" firestore:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `firestore:"locked_until" json:"-"`
	LastLoginAt         *time.Time `firestore:"last_login_at" json:"last_login_at,omitempty"`
}
