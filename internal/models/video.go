package models

import "time"

type Video struct {
	ID          uint      `gorm:"primaryKey;column:video_id" json:"video_id"`
	Title       string    `gorm:"type:varchar(255);not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	FilePath    string    `gorm:"type:varchar(500);not null" json:"file_path"`
	FileSize    int64     `gorm:"not null" json:"file_size"`
	Duration    *int      `json:"duration,omitempty"`
	MimeType    string    `gorm:"type:varchar(100);not null" json:"mime_type"`
	IsActive    bool      `gorm:"not null" json:"is_active"`
	UploadedBy  string    `gorm:"type:uuid;not null;index" json:"uploaded_by"`
	Uploader    *User     `gorm:"foreignKey:UploadedBy" json:"uploader,omitempty"`
	URL         string    `gorm:"-" json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Video) TableName() string { return "videos" }
