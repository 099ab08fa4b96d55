package repositories

import (
	"errors"
	"strings"

	"pds_backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserNotFound = errors.New("user not found")
)

// CredentialConflicts reports which unique credentials are already taken.
type CredentialConflicts struct {
	Email bool
	Phone bool
	NatID bool
}

func (c CredentialConflicts) Any() bool {
	return c.Email || c.Phone || c.NatID
}

type UserFilter struct {
	Search   string
	Role     models.RoleName
	IsActive *bool
	Page     int
	PageSize int
}

type UserRepository interface {
	Create(db *gorm.DB, user *models.User) error
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	FindByNatID(db *gorm.DB, natID string) (*models.User, error)
	FindByPhone(db *gorm.DB, phone string) (*models.User, error)
	FindConflicts(db *gorm.DB, email, phone string, natID *string) (CredentialConflicts, error)
	MarkVerified(db *gorm.DB, id string) error
	UpdatePassword(db *gorm.DB, id, hash string) error
	SetActive(db *gorm.DB, id string, active bool) error
	List(db *gorm.DB, filter UserFilter) ([]models.User, int64, error)
}

type userRepository struct{}

func NewUserRepository() UserRepository {
	return &userRepository{}
}

func (r *userRepository) Create(db *gorm.DB, user *models.User) error {
	return db.Omit(clause.Associations).Create(user).Error
}

func (r *userRepository) FindByID(db *gorm.DB, id string) (*models.User, error) {
	return r.findOne(db.Where("id = ?", id))
}

func (r *userRepository) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	return r.findOne(db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))))
}

func (r *userRepository) FindByNatID(db *gorm.DB, natID string) (*models.User, error) {
	return r.findOne(db.Where("nat_id = ?", strings.TrimSpace(natID)))
}

func (r *userRepository) FindByPhone(db *gorm.DB, phone string) (*models.User, error) {
	return r.findOne(db.Where("phone_number = ?", strings.TrimSpace(phone)))
}

func (r *userRepository) findOne(q *gorm.DB) (*models.User, error) {
	var user models.User
	if err := q.Preload("Role").First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindConflicts(db *gorm.DB, email, phone string, natID *string) (CredentialConflicts, error) {
	var out CredentialConflicts
	var err error

	if out.Email, err = r.exists(db, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))); err != nil {
		return out, err
	}
	if out.Phone, err = r.exists(db, "phone_number = ?", strings.TrimSpace(phone)); err != nil {
		return out, err
	}
	if natID != nil && strings.TrimSpace(*natID) != "" {
		if out.NatID, err = r.exists(db, "nat_id = ?", strings.TrimSpace(*natID)); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (r *userRepository) exists(db *gorm.DB, query string, arg interface{}) (bool, error) {
	var count int64
	if err := db.Model(&models.User{}).Where(query, arg).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepository) MarkVerified(db *gorm.DB, id string) error {
	return r.updateColumn(db, id, "is_verified", true)
}

func (r *userRepository) UpdatePassword(db *gorm.DB, id, hash string) error {
	return r.updateColumn(db, id, "password_hash", hash)
}

func (r *userRepository) SetActive(db *gorm.DB, id string, active bool) error {
	return r.updateColumn(db, id, "is_active", active)
}

func (r *userRepository) updateColumn(db *gorm.DB, id, column string, value interface{}) error {
	result := db.Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) List(db *gorm.DB, filter UserFilter) ([]models.User, int64, error) {
	q := db.Model(&models.User{})

	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR phone_number LIKE ?",
			like, like, like, like)
	}
	if filter.Role != "" {
		q = q.Where("role_id IN (?)", db.Model(&models.Role{}).Select("role_id").Where("role = ?", filter.Role))
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := q.Preload("Role").
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&users).Error
	return users, total, err
}
