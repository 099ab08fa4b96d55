package services

import (
	"context"

	"gorm.io/gorm"

	"pds_backend/internal/logger"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services/dto"
	"pds_backend/pkg/apperrors"
)

// AuditService appends security-relevant events to the audit trail.
type AuditService interface {
	// Record writes one entry using db, which may be the caller's transaction.
	Record(ctx context.Context, db *gorm.DB, actor Actor, action models.AuditAction, description string) error
	// RecordBestEffort is Record for callers outside a transaction; failures are only logged.
	RecordBestEffort(ctx context.Context, db *gorm.DB, actor Actor, action models.AuditAction, description string)
	List(ctx context.Context, db *gorm.DB, q dto.AuditListQuery) (*dto.PaginatedResponse, error)
}

type AuditServiceImpl struct {
	auditRepo repositories.AuditRepository
}

func NewAuditService(auditRepo repositories.AuditRepository) AuditService {
	return &AuditServiceImpl{auditRepo: auditRepo}
}

func (s *AuditServiceImpl) Record(ctx context.Context, db *gorm.DB, actor Actor, action models.AuditAction, description string) error {
	entry := &models.AuditEntry{
		Email:       actor.Email,
		UserID:      trimmedPtr(actor.UserID),
		Action:      action,
		Description: description,
	}
	if err := s.auditRepo.Create(db.WithContext(ctx), entry); err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

func (s *AuditServiceImpl) RecordBestEffort(ctx context.Context, db *gorm.DB, actor Actor, action models.AuditAction, description string) {
	if err := s.Record(ctx, db, actor, action, description); err != nil {
		logger.CtxWithError(ctx, "failed to write audit entry", err, "action", action)
	}
}

func (s *AuditServiceImpl) List(ctx context.Context, db *gorm.DB, q dto.AuditListQuery) (*dto.PaginatedResponse, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	entries, total, err := s.auditRepo.List(db.WithContext(ctx), repositories.AuditFilter{
		Action:   models.AuditAction(q.Action),
		UserID:   q.UserID,
		Page:     page,
		PageSize: limit,
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return dto.NewPaginatedResponse(entries, total, page, limit), nil
}
