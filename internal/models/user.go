package models

type Role struct {
	ID   uint     `gorm:"primaryKey;column:role_id" json:"role_id"`
	Name RoleName `gorm:"column:role;type:varchar(20);uniqueIndex;not null" json:"role"`
}

func (Role) TableName() string { return "roles" }

// User is never hard-deleted; IsActive=false deactivates the account.
type User struct {
	BaseModel
	FirstName    string  `gorm:"type:varchar(50);not null" json:"first_name"`
	LastName     string  `gorm:"type:varchar(50);not null" json:"last_name"`
	Email        string  `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PhoneNumber  string  `gorm:"type:varchar(30);uniqueIndex;not null" json:"phone_number"`
	NatID        *string `gorm:"type:varchar(50);uniqueIndex" json:"nat_id,omitempty"`
	Department   string  `gorm:"type:varchar(100)" json:"department"`
	PasswordHash string  `gorm:"not null" json:"-"`
	RoleID       uint    `gorm:"not null;index" json:"role_id"`
	Role         *Role   `gorm:"foreignKey:RoleID;references:ID" json:"role,omitempty"`
	IsVerified   bool    `gorm:"not null" json:"is_verified"`
	IsActive     bool    `gorm:"not null" json:"is_active"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) RoleName() RoleName {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}
