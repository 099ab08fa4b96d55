package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pds_backend/internal/models"
	"pds_backend/internal/testutil"
)

type fakeSweeper struct {
	calls int
	err   error
}

// CleanupExpiredTokens writes a marker row through db so a rollback is observable.
func (f *fakeSweeper) CleanupExpiredTokens(_ context.Context, db *gorm.DB) (int64, error) {
	f.calls++
	var users []models.User
	if err := db.Limit(1).Find(&users).Error; err != nil {
		return 0, err
	}
	if len(users) == 1 {
		marker := &models.AuthToken{
			UserID:    users[0].ID,
			Token:     "marker",
			Kind:      models.TokenRefresh,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}
		if err := db.Omit("User").Create(marker).Error; err != nil {
			return 0, err
		}
	}
	return 3, f.err
}

func TestTokenCleanupJob_RunsInTransaction(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, testutil.UserOpts{})

	sweeper := &fakeSweeper{}
	job, err := NewTokenCleanupJob(db, sweeper)
	require.NoError(t, err)
	assert.Equal(t, "token-cleanup", job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, sweeper.calls)
	assert.EqualValues(t, 1, testutil.CountRows(t, db, &models.AuthToken{}))
}

func TestTokenCleanupJob_FailureRollsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	testutil.CreateUser(t, db, testutil.UserOpts{})

	job, err := NewTokenCleanupJob(db, &fakeSweeper{err: errors.New("boom")})
	require.NoError(t, err)

	require.Error(t, job.Run(context.Background()))
	assert.Zero(t, testutil.CountRows(t, db, &models.AuthToken{}))
}

func TestNewTokenCleanupJob_Validation(t *testing.T) {
	_, err := NewTokenCleanupJob(nil, &fakeSweeper{})
	assert.Error(t, err)
	_, err = NewTokenCleanupJob(testutil.NewTestDB(t), nil)
	assert.Error(t, err)
}
