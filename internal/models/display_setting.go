package models

import (
	"time"

	"gorm.io/datatypes"
)

type DisplaySetting struct {
	ID            uint           `gorm:"primaryKey;column:setting_id" json:"setting_id"`
	SettingName   string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"setting_name"`
	DisplayName   string         `gorm:"type:varchar(255);not null" json:"display_name"`
	SettingValue  string         `gorm:"type:text;not null" json:"setting_value"`
	SettingType   SettingType    `gorm:"type:varchar(20);not null" json:"setting_type"`
	Description   string         `gorm:"type:text" json:"description"`
	UpdatedBy     *string        `gorm:"type:uuid" json:"updated_by,omitempty"`
	LastUpdatedBy *User          `gorm:"foreignKey:UpdatedBy" json:"last_updated_by,omitempty"`
	ParsedValue   datatypes.JSON `gorm:"-" json:"parsed_value,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (DisplaySetting) TableName() string { return "display_settings" }
