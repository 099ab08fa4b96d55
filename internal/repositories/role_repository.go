package repositories

import (
	"errors"

	"pds_backend/internal/models"

	"gorm.io/gorm"
)

var ErrRoleNotFound = errors.New("role not found")

type RoleRepository interface {
	FindByName(db *gorm.DB, name models.RoleName) (*models.Role, error)
	List(db *gorm.DB) ([]models.Role, error)
	// EnsureDefaults creates USER, ADMIN and HR when missing.
	EnsureDefaults(db *gorm.DB) error
}

type roleRepository struct{}

func NewRoleRepository() RoleRepository {
	return &roleRepository{}
}

func (r *roleRepository) FindByName(db *gorm.DB, name models.RoleName) (*models.Role, error) {
	var role models.Role
	if err := db.Where("role = ?", name).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoleNotFound
		}
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) List(db *gorm.DB) ([]models.Role, error) {
	var roles []models.Role
	err := db.Order("role_id ASC").Find(&roles).Error
	return roles, err
}

func (r *roleRepository) EnsureDefaults(db *gorm.DB) error {
	for _, name := range []models.RoleName{models.RoleUser, models.RoleAdmin, models.RoleHR} {
		role := models.Role{Name: name}
		if err := db.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}
