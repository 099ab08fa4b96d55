package repositories

import (
	"errors"
	"time"

	"pds_backend/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrTokenNotFound возвращается, когда токен не найден в реестре
	ErrTokenNotFound = errors.New("auth token not found")
)

// AuthTokenRepository - реестр выданных токенов (refresh, verification, password reset)
type AuthTokenRepository interface {
	// Create сохраняет новый токен
	Create(db *gorm.DB, token *models.AuthToken) error

	// FindByToken ищет токен по значению и типу, включая отозванные и истекшие
	FindByToken(db *gorm.DB, value string, kind models.TokenKind) (*models.AuthToken, error)

	// Revoke помечает один токен как отозванный
	Revoke(db *gorm.DB, id uint) error

	// RevokeByValue отзывает токен пользователя по значению
	RevokeByValue(db *gorm.DB, userID, value string) error

	// RevokeAllForUser отзывает все активные токены данного типа
	RevokeAllForUser(db *gorm.DB, userID string, kind models.TokenKind) (int64, error)

	// RevokeAllForUserExcept отзывает все токены данного типа кроме keep
	RevokeAllForUserExcept(db *gorm.DB, userID string, kind models.TokenKind, keep string) (int64, error)

	// DeleteExpired физически удаляет все токены с expires_at < cutoff
	DeleteExpired(db *gorm.DB, cutoff time.Time) (int64, error)

	// CountActive возвращает количество действующих токенов пользователя
	CountActive(db *gorm.DB, userID string, kind models.TokenKind, now time.Time) (int64, error)
}

type authTokenRepository struct{}

func NewAuthTokenRepository() AuthTokenRepository {
	return &authTokenRepository{}
}

func (r *authTokenRepository) Create(db *gorm.DB, token *models.AuthToken) error {
	return db.Omit("User").Create(token).Error
}

func (r *authTokenRepository) FindByToken(db *gorm.DB, value string, kind models.TokenKind) (*models.AuthToken, error) {
	var token models.AuthToken
	err := db.Where("token = ? AND token_type = ?", value, kind).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	return &token, nil
}

func (r *authTokenRepository) Revoke(db *gorm.DB, id uint) error {
	result := db.Model(&models.AuthToken{}).Where("id = ?", id).Update("is_revoked", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *authTokenRepository) RevokeByValue(db *gorm.DB, userID, value string) error {
	result := db.Model(&models.AuthToken{}).
		Where("user_id = ? AND token = ?", userID, value).
		Update("is_revoked", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTokenNotFound
	}
	return nil
}

func (r *authTokenRepository) RevokeAllForUser(db *gorm.DB, userID string, kind models.TokenKind) (int64, error) {
	result := db.Model(&models.AuthToken{}).
		Where("user_id = ? AND token_type = ? AND is_revoked = ?", userID, kind, false).
		Update("is_revoked", true)
	return result.RowsAffected, result.Error
}

func (r *authTokenRepository) RevokeAllForUserExcept(db *gorm.DB, userID string, kind models.TokenKind, keep string) (int64, error) {
	result := db.Model(&models.AuthToken{}).
		Where("user_id = ? AND token_type = ? AND is_revoked = ? AND token <> ?", userID, kind, false, keep).
		Update("is_revoked", true)
	return result.RowsAffected, result.Error
}

func (r *authTokenRepository) DeleteExpired(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("expires_at < ?", cutoff).Delete(&models.AuthToken{})
	return result.RowsAffected, result.Error
}

func (r *authTokenRepository) CountActive(db *gorm.DB, userID string, kind models.TokenKind, now time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.AuthToken{}).
		Where("user_id = ? AND token_type = ? AND is_revoked = ? AND expires_at > ?", userID, kind, false, now).
		Count(&count).Error
	return count, err
}
