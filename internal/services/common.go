package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"gorm.io/gorm"

	"pds_backend/internal/models"
	"pds_backend/internal/storage"
	"pds_backend/pkg/apperrors"
)

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	UserID string
	Email  string
	Role   models.RoleName
}

// FileInput is an uploaded file as received from the transport layer.
type FileInput struct {
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// begin opens a transaction bound to ctx; callers defer Rollback and Commit explicitly.
func begin(ctx context.Context, db *gorm.DB) (*gorm.DB, error) {
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, apperrors.InternalError(tx.Error)
	}
	return tx, nil
}

func commit(tx *gorm.DB) error {
	if err := tx.Commit().Error; err != nil {
		return apperrors.InternalError(err)
	}
	return nil
}

// passAppError returns err untouched when it is already an AppError, otherwise wraps it as internal.
func passAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.InternalError(err)
}

// stageFile writes an upload to storage under prefix and returns its key.
func stageFile(ctx context.Context, store storage.Storage, prefix, tag string, in *FileInput, now time.Time) (string, error) {
	if in == nil || in.Content == nil {
		return "", apperrors.ErrNoFileUploaded
	}
	key := storage.BuildKey(prefix, tag, in.Name, now)
	if err := store.Save(ctx, key, in.Content, in.ContentType); err != nil {
		return "", apperrors.InternalError(err)
	}
	return key, nil
}

func trimmedPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
