package models

import "time"

// AuthToken is one row of the token ledger. ACCESS tokens are signed JWTs and
// are not stored; the kind exists so the ledger can describe every credential.
type AuthToken struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     string    `gorm:"type:uuid;not null;index" json:"user_id"`
	User       *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Token      string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"-"`
	Kind       TokenKind `gorm:"column:token_type;type:varchar(20);not null;index" json:"token_type"`
	ExpiresAt  time.Time `gorm:"not null;index" json:"expires_at"`
	IsRevoked  bool      `gorm:"not null" json:"is_revoked"`
	DeviceInfo string    `gorm:"type:varchar(255)" json:"device_info,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (AuthToken) TableName() string { return "auth_tokens" }

// IsValid reports whether the token is neither revoked nor expired at now.
func (t *AuthToken) IsValid(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}
