package dto

import "pds_backend/internal/repositories"

// CallReportMeta is the form metadata accompanying a call-report upload.
type CallReportMeta struct {
	ReportDate  string `form:"report_date" validate:"required,report-date"`
	ReportTime  string `form:"report_time" validate:"required,report-time"`
	Description string `form:"description" validate:"omitempty,max=255"`
}

type CallUploadResponse struct {
	UploadID    uint   `json:"upload_id"`
	FileName    string `json:"file_name"`
	RecordCount int    `json:"record_count"`
	ReportDate  string `json:"report_date"`
	ReportTime  string `json:"report_time"`
}

type CancelUploadResponse struct {
	UploadID       uint  `json:"upload_id"`
	DeletedRecords int64 `json:"deleted_records"`
}

type UploadListQuery struct {
	Page   int    `form:"page" validate:"omitempty,min=1"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Status string `form:"status" validate:"omitempty,upload-status"`
}

type UploadDetails struct {
	Upload    interface{}                          `json:"upload"`
	Employees []repositories.UploadEmployeeSummary `json:"employees"`
}

type LeaderboardQuery struct {
	DepartmentID uint   `form:"department_id"`
	AgentTypeID  uint   `form:"agent_type_id"`
	SortBy       string `form:"sort_by" validate:"omitempty,leaderboard-sort"`
	Limit        int    `form:"limit" validate:"omitempty,min=1,max=100"`
	Top          *bool  `form:"top"`
}

type LeaderboardResponse struct {
	Message    string                        `json:"message,omitempty"`
	ReportDate string                        `json:"report_date,omitempty"`
	ReportTime string                        `json:"report_time,omitempty"`
	SortBy     string                        `json:"sort_by"`
	Top        bool                          `json:"top"`
	Data       []repositories.LeaderboardRow `json:"data"`
}

type PerformersResponse struct {
	Message          string                        `json:"message,omitempty"`
	ReportDate       string                        `json:"report_date,omitempty"`
	ReportTime       string                        `json:"report_time,omitempty"`
	TopPerformers    []repositories.LeaderboardRow `json:"top_performers"`
	BottomPerformers []repositories.LeaderboardRow `json:"bottom_performers"`
}

type CreateEmployeeRequest struct {
	AgentName    string `json:"agent_name" validate:"required,max=255"`
	DepartmentID uint   `json:"department_id" validate:"required"`
	AgentTypeID  uint   `json:"agent_type_id" validate:"required"`
	ImageURL     string `json:"image_url" validate:"omitempty,url"`
}

type SetActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}
