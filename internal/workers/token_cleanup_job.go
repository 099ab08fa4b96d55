package workers

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"pds_backend/internal/logger"
)

// tokenSweeper deletes expired and revoked ledger rows.
type tokenSweeper interface {
	CleanupExpiredTokens(ctx context.Context, db *gorm.DB) (int64, error)
}

// TokenCleanupJob sweeps the token ledger inside one transaction.
type TokenCleanupJob struct {
	db      *gorm.DB
	sweeper tokenSweeper
}

func NewTokenCleanupJob(db *gorm.DB, sweeper tokenSweeper) (*TokenCleanupJob, error) {
	if db == nil {
		return nil, errors.New("db required")
	}
	if sweeper == nil {
		return nil, errors.New("token sweeper required")
	}
	return &TokenCleanupJob{db: db, sweeper: sweeper}, nil
}

func (j *TokenCleanupJob) Name() string { return "token-cleanup" }

func (j *TokenCleanupJob) Run(ctx context.Context) error {
	var deleted int64
	err := j.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := j.sweeper.CleanupExpiredTokens(ctx, tx)
		deleted = n
		return err
	})
	if err != nil {
		return err
	}
	logger.Info("token ledger swept", "deleted", deleted)
	return nil
}
