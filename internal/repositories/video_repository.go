package repositories

import (
	"errors"

	"pds_backend/internal/models"

	"gorm.io/gorm"
)

var ErrVideoNotFound = errors.New("video not found")

type VideoRepository interface {
	Create(db *gorm.DB, video *models.Video) error
	FindByID(db *gorm.DB, id uint) (*models.Video, error)
	List(db *gorm.DB, activeOnly bool) ([]models.Video, error)
	Update(db *gorm.DB, id uint, updates map[string]interface{}) error
	Delete(db *gorm.DB, id uint) error
}

type videoRepository struct{}

func NewVideoRepository() VideoRepository {
	return &videoRepository{}
}

func (r *videoRepository) Create(db *gorm.DB, video *models.Video) error {
	return db.Omit("Uploader").Create(video).Error
}

func (r *videoRepository) FindByID(db *gorm.DB, id uint) (*models.Video, error) {
	var video models.Video
	if err := db.Preload("Uploader").Where("video_id = ?", id).First(&video).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, err
	}
	return &video, nil
}

func (r *videoRepository) List(db *gorm.DB, activeOnly bool) ([]models.Video, error) {
	q := db.Preload("Uploader")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var videos []models.Video
	err := q.Order("created_at DESC, video_id DESC").Find(&videos).Error
	return videos, err
}

func (r *videoRepository) Update(db *gorm.DB, id uint, updates map[string]interface{}) error {
	result := db.Model(&models.Video{}).Where("video_id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVideoNotFound
	}
	return nil
}

func (r *videoRepository) Delete(db *gorm.DB, id uint) error {
	result := db.Where("video_id = ?", id).Delete(&models.Video{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVideoNotFound
	}
	return nil
}
