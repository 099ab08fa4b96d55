package repositories_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/testutil"
)

func TestAuthTokenRepository_RevokeAllForUserExcept(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewAuthTokenRepository()
	user := testutil.CreateUser(t, db, testutil.UserOpts{})
	exp := time.Now().Add(time.Hour)

	for _, v := range []string{"keep", "drop-1", "drop-2"} {
		require.NoError(t, repo.Create(db, &models.AuthToken{UserID: user.ID, Token: v, Kind: models.TokenRefresh, ExpiresAt: exp}))
	}
	require.NoError(t, repo.Create(db, &models.AuthToken{UserID: user.ID, Token: "verify", Kind: models.TokenVerification, ExpiresAt: exp}))

	n, err := repo.RevokeAllForUserExcept(db, user.ID, models.TokenRefresh, "keep")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	kept, err := repo.FindByToken(db, "keep", models.TokenRefresh)
	require.NoError(t, err)
	assert.False(t, kept.IsRevoked)

	other, err := repo.FindByToken(db, "verify", models.TokenVerification)
	require.NoError(t, err)
	assert.False(t, other.IsRevoked, "other kinds are untouched")

	active, err := repo.CountActive(db, user.ID, models.TokenRefresh, time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, active)
}

func TestAuthTokenRepository_FindByTokenKindMismatch(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewAuthTokenRepository()
	user := testutil.CreateUser(t, db, testutil.UserOpts{})

	require.NoError(t, repo.Create(db, &models.AuthToken{
		UserID: user.ID, Token: "abc", Kind: models.TokenPasswordReset, ExpiresAt: time.Now().Add(time.Hour),
	}))

	_, err := repo.FindByToken(db, "abc", models.TokenVerification)
	assert.ErrorIs(t, err, repositories.ErrTokenNotFound)
}

func TestAuthTokenRepository_DeleteExpired(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repositories.NewAuthTokenRepository()
	user := testutil.CreateUser(t, db, testutil.UserOpts{})
	now := time.Now()

	tokens := []models.AuthToken{
		{UserID: user.ID, Token: "expired", Kind: models.TokenRefresh, ExpiresAt: now.Add(-time.Hour)},
		{UserID: user.ID, Token: "expired-revoked", Kind: models.TokenVerification, ExpiresAt: now.Add(-time.Minute), IsRevoked: true},
		{UserID: user.ID, Token: "live-revoked", Kind: models.TokenRefresh, ExpiresAt: now.Add(time.Hour), IsRevoked: true},
		{UserID: user.ID, Token: "live", Kind: models.TokenRefresh, ExpiresAt: now.Add(time.Hour)},
	}
	for i := range tokens {
		require.NoError(t, repo.Create(db, &tokens[i]))
	}

	deleted, err := repo.DeleteExpired(db, now)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)
	assert.EqualValues(t, 2, testutil.CountRows(t, db, &models.AuthToken{}))
}

func TestAuthToken_IsValid(t *testing.T) {
	now := time.Now()
	assert.True(t, (&models.AuthToken{ExpiresAt: now.Add(time.Second)}).IsValid(now))
	assert.False(t, (&models.AuthToken{ExpiresAt: now}).IsValid(now))
	assert.False(t, (&models.AuthToken{ExpiresAt: now.Add(time.Hour), IsRevoked: true}).IsValid(now))
}
