package models

import "time"

// AuditEntry is append-only.
type AuditEntry struct {
	ID          uint        `gorm:"primaryKey;column:trail_id" json:"trail_id"`
	Email       string      `gorm:"type:varchar(255)" json:"email"`
	UserID      *string     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action      AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`
	Description string      `gorm:"type:text" json:"description"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
}

func (AuditEntry) TableName() string { return "audit_trail" }
