package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/testutil"
	"pds_backend/pkg/apperrors"
)

func newUserService() *services.UserServiceImpl {
	return services.NewUserService(
		repositories.NewUserRepository(),
		repositories.NewAuthTokenRepository(),
		services.NewAuditService(repositories.NewAuditRepository()),
	)
}

func TestSetUserActive_DeactivationRevokesRefreshTokens(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newUserService()
	ctx := context.Background()
	admin := testutil.CreateUser(t, db, testutil.UserOpts{Role: models.RoleAdmin})
	target := testutil.CreateUser(t, db, testutil.UserOpts{Email: "target@pds.co.zw"})
	actor := services.Actor{UserID: admin.ID, Email: admin.Email, Role: models.RoleAdmin}

	tokens := repositories.NewAuthTokenRepository()
	for _, value := range []string{"refresh-1", "refresh-2"} {
		require.NoError(t, tokens.Create(db, &models.AuthToken{
			UserID:    target.ID,
			Token:     value,
			Kind:      models.TokenRefresh,
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}))
	}

	resp, err := svc.SetUserActive(ctx, db, actor, target.ID, false)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	active, err := tokens.CountActive(db, target.ID, models.TokenRefresh, time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, active)

	var entry models.AuditEntry
	require.NoError(t, db.Where("action = ?", models.AuditUserStatusChange).First(&entry).Error)
	assert.Equal(t, "User target@pds.co.zw deactivated", entry.Description)

	resp, err = svc.SetUserActive(ctx, db, actor, target.ID, true)
	require.NoError(t, err)
	assert.True(t, resp.IsActive)
}

func TestSetUserActive_Guards(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newUserService()
	ctx := context.Background()
	admin := testutil.CreateUser(t, db, testutil.UserOpts{Role: models.RoleAdmin})
	actor := services.Actor{UserID: admin.ID, Email: admin.Email, Role: models.RoleAdmin}

	_, err := svc.SetUserActive(ctx, db, actor, admin.ID, false)
	assertAppError(t, err, apperrors.CodeForbidden)

	_, err = svc.SetUserActive(ctx, db, actor, "5b0f5c1e-0000-4000-8000-000000000000", false)
	assertAppError(t, err, apperrors.CodeNotFound)

	assert.Zero(t, testutil.CountRows(t, db, &models.AuditEntry{}))
}

func TestListUsers(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newUserService()
	ctx := context.Background()
	testutil.CreateUser(t, db, testutil.UserOpts{FirstName: "Rudo", Email: "rudo@pds.co.zw", Role: models.RoleHR})
	testutil.CreateUser(t, db, testutil.UserOpts{FirstName: "Tendai", Email: "tendai@pds.co.zw"})
	testutil.CreateUser(t, db, testutil.UserOpts{FirstName: "Chipo", Email: "chipo@pds.co.zw", Inactive: true})

	all, err := svc.ListUsers(ctx, db, dto.UserListQuery{Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, all.Total)
	assert.Equal(t, 2, all.TotalPages)
	assert.True(t, all.HasMore)

	hr, err := svc.ListUsers(ctx, db, dto.UserListQuery{Role: string(models.RoleHR)})
	require.NoError(t, err)
	require.EqualValues(t, 1, hr.Total)
	users := hr.Data.([]*dto.UserResponse)
	assert.Equal(t, "rudo@pds.co.zw", users[0].Email)

	inactive := false
	off, err := svc.ListUsers(ctx, db, dto.UserListQuery{IsActive: &inactive})
	require.NoError(t, err)
	assert.EqualValues(t, 1, off.Total)

	found, err := svc.ListUsers(ctx, db, dto.UserListQuery{Search: "tend"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, found.Total)
}
