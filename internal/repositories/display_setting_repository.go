package repositories

import (
	"errors"

	"pds_backend/internal/models"

	"gorm.io/gorm"
)

var ErrSettingNotFound = errors.New("display setting not found")

type DisplaySettingRepository interface {
	List(db *gorm.DB) ([]models.DisplaySetting, error)
	FindByName(db *gorm.DB, name string) (*models.DisplaySetting, error)
	// FindOrCreate inserts def unless a setting with the same name exists.
	FindOrCreate(db *gorm.DB, def *models.DisplaySetting) (created bool, err error)
	UpdateValue(db *gorm.DB, id uint, value string, updatedBy *string) error
}

type displaySettingRepository struct{}

func NewDisplaySettingRepository() DisplaySettingRepository {
	return &displaySettingRepository{}
}

func (r *displaySettingRepository) List(db *gorm.DB) ([]models.DisplaySetting, error) {
	var settings []models.DisplaySetting
	err := db.Preload("LastUpdatedBy").Order("setting_name ASC").Find(&settings).Error
	return settings, err
}

func (r *displaySettingRepository) FindByName(db *gorm.DB, name string) (*models.DisplaySetting, error) {
	var setting models.DisplaySetting
	if err := db.Where("setting_name = ?", name).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return &setting, nil
}

func (r *displaySettingRepository) FindOrCreate(db *gorm.DB, def *models.DisplaySetting) (bool, error) {
	existing, err := r.FindByName(db, def.SettingName)
	if err == nil {
		*def = *existing
		return false, nil
	}
	if !errors.Is(err, ErrSettingNotFound) {
		return false, err
	}
	if err := db.Omit("LastUpdatedBy").Create(def).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *displaySettingRepository) UpdateValue(db *gorm.DB, id uint, value string, updatedBy *string) error {
	result := db.Model(&models.DisplaySetting{}).
		Where("setting_id = ?", id).
		Updates(map[string]interface{}{"setting_value": value, "updated_by": updatedBy})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSettingNotFound
	}
	return nil
}
