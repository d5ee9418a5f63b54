package models

// AuditLog records sensitive user operations for security and compliance.
type AuditLog struct {
	Base
	UserID       string `gorm:"type:uuid;not null;index" firestore:"user_id" json:"user_id"`
	Action       string `gorm:"not null" firestore:"action" json:"action"`
	ResourceType string `gorm:"not null" firestore:"resource_type" json:"resource_type"`
	ResourceID   string `firestore:"resource_id" json:"resource_id"`
	IPAddress    string `firestore:"ip_address" json:"ip_address"`
	Changes      string `firestore:"changes" json:"changes,omitempty"`
}
