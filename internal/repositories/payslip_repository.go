package repositories

import (
	"errors"

	"pds_backend/internal/models"

	"gorm.io/gorm"
)

var ErrPayslipNotFound = errors.New("payslip not found")

type PayslipFilter struct {
	Period   string
	Page     int
	PageSize int
}

type PayslipRepository interface {
	Create(db *gorm.DB, payslip *models.Payslip) error
	FindByID(db *gorm.DB, id uint) (*models.Payslip, error)
	ExistsForPeriod(db *gorm.DB, userID, period string) (bool, error)
	ListByUser(db *gorm.DB, userID string) ([]models.Payslip, error)
	List(db *gorm.DB, filter PayslipFilter) ([]models.Payslip, int64, error)
	Update(db *gorm.DB, id uint, updates map[string]interface{}) error
	Delete(db *gorm.DB, id uint) error
}

type payslipRepository struct{}

func NewPayslipRepository() PayslipRepository {
	return &payslipRepository{}
}

func (r *payslipRepository) Create(db *gorm.DB, payslip *models.Payslip) error {
	return db.Omit("User").Create(payslip).Error
}

func (r *payslipRepository) FindByID(db *gorm.DB, id uint) (*models.Payslip, error) {
	var payslip models.Payslip
	if err := db.Preload("User").Where("id = ?", id).First(&payslip).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPayslipNotFound
		}
		return nil, err
	}
	return &payslip, nil
}

func (r *payslipRepository) ExistsForPeriod(db *gorm.DB, userID, period string) (bool, error) {
	var count int64
	err := db.Model(&models.Payslip{}).
		Where("user_id = ? AND period = ?", userID, period).
		Count(&count).Error
	return count > 0, err
}

func (r *payslipRepository) ListByUser(db *gorm.DB, userID string) ([]models.Payslip, error) {
	var payslips []models.Payslip
	err := db.Where("user_id = ?", userID).Order("period DESC").Find(&payslips).Error
	return payslips, err
}

func (r *payslipRepository) List(db *gorm.DB, filter PayslipFilter) ([]models.Payslip, int64, error) {
	q := db.Model(&models.Payslip{})
	if filter.Period != "" {
		q = q.Where("period = ?", filter.Period)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payslips []models.Payslip
	err := q.Preload("User").
		Order("period DESC, id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&payslips).Error
	return payslips, total, err
}

func (r *payslipRepository) Update(db *gorm.DB, id uint, updates map[string]interface{}) error {
	result := db.Model(&models.Payslip{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPayslipNotFound
	}
	return nil
}

func (r *payslipRepository) Delete(db *gorm.DB, id uint) error {
	result := db.Where("id = ?", id).Delete(&models.Payslip{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPayslipNotFound
	}
	return nil
}
