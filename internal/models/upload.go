package models

import "time"

// FileUpload tracks one call-report batch.
type FileUpload struct {
	ID          uint         `gorm:"primaryKey;column:upload_id" json:"upload_id"`
	FileName    string       `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath    string       `gorm:"type:varchar(500);not null" json:"file_path"`
	UploadTime  time.Time    `gorm:"not null" json:"upload_time"`
	UploadedBy  string       `gorm:"type:uuid;not null;index" json:"uploaded_by"`
	Uploader    *User        `gorm:"foreignKey:UploadedBy" json:"uploader,omitempty"`
	Status      UploadStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	RecordCount int          `gorm:"not null" json:"record_count"`
	Description string       `gorm:"type:varchar(255)" json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (FileUpload) TableName() string { return "file_uploads" }
