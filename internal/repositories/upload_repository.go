package repositories

import (
	"errors"

	"pds_backend/internal/models"

	"gorm.io/gorm"
)

var ErrUploadNotFound = errors.New("upload not found")

type UploadFilter struct {
	Status   models.UploadStatus
	Page     int
	PageSize int
}

// UploadEmployeeSummary is the per-agent total of one call-report batch.
type UploadEmployeeSummary struct {
	EmployeeID    uint   `json:"employee_id"`
	AgentName     string `json:"agent_name"`
	TotalInbound  int    `json:"total_inbound"`
	TotalOutbound int    `json:"total_outbound"`
}

type FileUploadRepository interface {
	Create(db *gorm.DB, upload *models.FileUpload) error
	FindByID(db *gorm.DB, id uint) (*models.FileUpload, error)
	// FindByIDForUpdate reads the batch under a row lock where the dialect supports one.
	FindByIDForUpdate(db *gorm.DB, id uint) (*models.FileUpload, error)
	UpdateStatus(db *gorm.DB, id uint, status models.UploadStatus, recordCount *int) error
	List(db *gorm.DB, filter UploadFilter) ([]models.FileUpload, int64, error)
	EmployeeSummary(db *gorm.DB, id uint) ([]UploadEmployeeSummary, error)
}

type fileUploadRepository struct{}

func NewFileUploadRepository() FileUploadRepository {
	return &fileUploadRepository{}
}

func (r *fileUploadRepository) Create(db *gorm.DB, upload *models.FileUpload) error {
	return db.Omit("Uploader").Create(upload).Error
}

func (r *fileUploadRepository) FindByID(db *gorm.DB, id uint) (*models.FileUpload, error) {
	return r.find(db.Preload("Uploader"), id)
}

func (r *fileUploadRepository) FindByIDForUpdate(db *gorm.DB, id uint) (*models.FileUpload, error) {
	return r.find(lockForUpdate(db), id)
}

func (r *fileUploadRepository) find(q *gorm.DB, id uint) (*models.FileUpload, error) {
	var upload models.FileUpload
	if err := q.Where("upload_id = ?", id).First(&upload).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUploadNotFound
		}
		return nil, err
	}
	return &upload, nil
}

func (r *fileUploadRepository) UpdateStatus(db *gorm.DB, id uint, status models.UploadStatus, recordCount *int) error {
	updates := map[string]interface{}{"status": status}
	if recordCount != nil {
		updates["record_count"] = *recordCount
	}
	result := db.Model(&models.FileUpload{}).Where("upload_id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUploadNotFound
	}
	return nil
}

func (r *fileUploadRepository) List(db *gorm.DB, filter UploadFilter) ([]models.FileUpload, int64, error) {
	q := db.Model(&models.FileUpload{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var uploads []models.FileUpload
	err := q.Preload("Uploader").
		Order("upload_time DESC, upload_id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&uploads).Error
	return uploads, total, err
}

func (r *fileUploadRepository) EmployeeSummary(db *gorm.DB, id uint) ([]UploadEmployeeSummary, error) {
	var rows []UploadEmployeeSummary
	err := db.Table("calls c").
		Select("c.employee_id, e.agent_name, SUM(c.total_inbound_calls) AS total_inbound, SUM(c.total_outbound_calls) AS total_outbound").
		Joins("JOIN employees e ON e.employee_id = c.employee_id").
		Where("c.upload_id = ?", id).
		Group("c.employee_id, e.agent_name").
		Order("e.agent_name ASC").
		Scan(&rows).Error
	return rows, err
}
