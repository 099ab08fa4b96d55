package repositories

import (
	"pds_backend/internal/models"

	"gorm.io/gorm"
)

type AuditFilter struct {
	Action   models.AuditAction
	UserID   string
	Page     int
	PageSize int
}

// AuditRepository is append-only: it exposes no update or delete.
type AuditRepository interface {
	Create(db *gorm.DB, entry *models.AuditEntry) error
	List(db *gorm.DB, filter AuditFilter) ([]models.AuditEntry, int64, error)
}

type auditRepository struct{}

func NewAuditRepository() AuditRepository {
	return &auditRepository{}
}

func (r *auditRepository) Create(db *gorm.DB, entry *models.AuditEntry) error {
	return db.Create(entry).Error
}

func (r *auditRepository) List(db *gorm.DB, filter AuditFilter) ([]models.AuditEntry, int64, error) {
	q := db.Model(&models.AuditEntry{})
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditEntry
	err := q.Order("created_at DESC, trail_id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&entries).Error
	return entries, total, err
}
