package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pds_backend/internal/logger"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services/dto"
	"pds_backend/pkg/apperrors"
)

// UserService is the admin side of account management.
type UserService interface {
	ListUsers(ctx context.Context, db *gorm.DB, q dto.UserListQuery) (*dto.PaginatedResponse, error)
	GetUser(ctx context.Context, db *gorm.DB, id string) (*dto.UserResponse, error)
	SetUserActive(ctx context.Context, db *gorm.DB, actor Actor, id string, active bool) (*dto.UserResponse, error)
}

type UserServiceImpl struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.AuthTokenRepository
	audit     AuditService
}

func NewUserService(userRepo repositories.UserRepository, tokenRepo repositories.AuthTokenRepository, audit AuditService) *UserServiceImpl {
	return &UserServiceImpl{userRepo: userRepo, tokenRepo: tokenRepo, audit: audit}
}

func (s *UserServiceImpl) ListUsers(ctx context.Context, db *gorm.DB, q dto.UserListQuery) (*dto.PaginatedResponse, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	users, total, err := s.userRepo.List(db.WithContext(ctx), repositories.UserFilter{
		Search:   q.Search,
		Role:     models.RoleName(q.Role),
		IsActive: q.IsActive,
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	out := make([]*dto.UserResponse, 0, len(users))
	for i := range users {
		out = append(out, dto.NewUserResponse(&users[i]))
	}
	return dto.NewPaginatedResponse(out, total, page, limit), nil
}

func (s *UserServiceImpl) GetUser(ctx context.Context, db *gorm.DB, id string) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(db.WithContext(ctx), id)
	if err != nil {
		return nil, userError(err)
	}
	return dto.NewUserResponse(user), nil
}

// SetUserActive toggles an account. Deactivation also revokes every refresh token of the user.
func (s *UserServiceImpl) SetUserActive(ctx context.Context, db *gorm.DB, actor Actor, id string, active bool) (*dto.UserResponse, error) {
	if id == actor.UserID && !active {
		return nil, apperrors.ErrCannotModifySelf
	}

	tx, err := begin(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	user, err := s.userRepo.FindByID(tx, id)
	if err != nil {
		return nil, userError(err)
	}
	if err := s.userRepo.SetActive(tx, id, active); err != nil {
		return nil, userError(err)
	}

	var revoked int64
	if !active {
		revoked, err = s.tokenRepo.RevokeAllForUser(tx, id, models.TokenRefresh)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
	}

	state := "activated"
	if !active {
		state = "deactivated"
	}
	if err := s.audit.Record(ctx, tx, actor, models.AuditUserStatusChange,
		fmt.Sprintf("User %s %s", user.Email, state)); err != nil {
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}

	logger.CtxInfo(ctx, "user status changed", "target_user", id, "active", active, "revoked_tokens", revoked)

	user.IsActive = active
	return dto.NewUserResponse(user), nil
}

func userError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return apperrors.NewNotFoundError("users", "User not found")
	}
	return apperrors.InternalError(err)
}
