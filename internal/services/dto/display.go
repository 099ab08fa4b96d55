package dto

import "encoding/json"

// UpdateSettingRequest: value may be any JSON; non-string values of json settings are re-encoded.
type UpdateSettingRequest struct {
	SettingName  string          `json:"setting_name" validate:"required,max=100"`
	SettingValue json.RawMessage `json:"setting_value" validate:"required"`
}

type VideoUploadMeta struct {
	Title       string `form:"title" validate:"required,max=255"`
	Description string `form:"description" validate:"omitempty,max=2000"`
	Duration    *int   `form:"duration" validate:"omitempty,min=0"`
}

type UpdateVideoRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	IsActive    *bool   `json:"is_active"`
}
