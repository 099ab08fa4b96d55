package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/testutil"
	"pds_backend/pkg/apperrors"
)

func newDisplayService() *services.DisplaySettingsServiceImpl {
	return services.NewDisplaySettingsService(
		repositories.NewDisplaySettingRepository(),
		services.NewAuditService(repositories.NewAuditRepository()),
	)
}

func TestInitializeDefaults_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newDisplayService()
	ctx := context.Background()
	admin := testutil.CreateUser(t, db, testutil.UserOpts{Role: models.RoleAdmin})
	actor := services.Actor{UserID: admin.ID, Email: admin.Email, Role: models.RoleAdmin}

	created, err := svc.InitializeDefaults(ctx, db, actor)
	require.NoError(t, err)
	assert.Equal(t, len(services.DefaultDisplaySettings), created)

	_, err = svc.UpdateSetting(ctx, db, actor, &dto.UpdateSettingRequest{
		SettingName:  services.SettingTopPerformersCount,
		SettingValue: json.RawMessage(`8`),
	})
	require.NoError(t, err)

	created, err = svc.InitializeDefaults(ctx, db, actor)
	require.NoError(t, err)
	assert.Zero(t, created)
	assert.Equal(t, 8, svc.IntSetting(ctx, db, services.SettingTopPerformersCount, 5), "existing values survive re-initialisation")
}

func TestListSettings_ParsesJSON(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newDisplayService()
	ctx := context.Background()
	_, err := svc.InitializeDefaults(ctx, db, services.Actor{})
	require.NoError(t, err)

	settings, err := svc.ListSettings(ctx, db)
	require.NoError(t, err)
	require.Len(t, settings, 5)
	assert.Equal(t, services.SettingBottomPerformersCount, settings[0].SettingName)

	for _, s := range settings {
		if s.SettingType == models.SettingJSON {
			var cfg map[string]interface{}
			require.NoError(t, json.Unmarshal(s.ParsedValue, &cfg))
			assert.Equal(t, "dark", cfg["theme"])
		} else {
			assert.Empty(t, s.ParsedValue)
		}
	}
}

func TestUpdateSetting(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newDisplayService()
	ctx := context.Background()
	admin := testutil.CreateUser(t, db, testutil.UserOpts{Role: models.RoleAdmin})
	actor := services.Actor{UserID: admin.ID, Email: admin.Email, Role: models.RoleAdmin}
	_, err := svc.InitializeDefaults(ctx, db, actor)
	require.NoError(t, err)

	updated, err := svc.UpdateSetting(ctx, db, actor, &dto.UpdateSettingRequest{
		SettingName:  services.SettingVideoDisplayDuration,
		SettingValue: json.RawMessage(`"120"`),
	})
	require.NoError(t, err)
	assert.Equal(t, "120", updated.SettingValue)
	require.NotNil(t, updated.UpdatedBy)
	assert.Equal(t, admin.ID, *updated.UpdatedBy)

	var entry models.AuditEntry
	require.NoError(t, db.Where("action = ?", models.AuditUpdateDisplaySetting).First(&entry).Error)
	assert.Equal(t, "Updated display setting: Video Display Duration", entry.Description)

	_, err = svc.UpdateSetting(ctx, db, actor, &dto.UpdateSettingRequest{
		SettingName:  services.SettingVideoDisplayDuration,
		SettingValue: json.RawMessage(`"two minutes"`),
	})
	assertAppError(t, err, apperrors.CodeValidationFailed)

	cfg, err := svc.UpdateSetting(ctx, db, actor, &dto.UpdateSettingRequest{
		SettingName:  services.SettingDisplayConfiguration,
		SettingValue: json.RawMessage(`{ "theme": "light",  "show_clock": false }`),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"theme":"light","show_clock":false}`, cfg.SettingValue)
	assert.JSONEq(t, cfg.SettingValue, string(cfg.ParsedValue))

	_, err = svc.UpdateSetting(ctx, db, actor, &dto.UpdateSettingRequest{
		SettingName:  "ticker_speed",
		SettingValue: json.RawMessage(`1`),
	})
	appErr := assertAppError(t, err, apperrors.CodeNotFound)
	assert.Equal(t, "Setting 'ticker_speed' not found", appErr.Message)
}

func TestIntSetting_FallsBack(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := newDisplayService()
	ctx := context.Background()

	assert.Equal(t, 7, svc.IntSetting(ctx, db, services.SettingTopPerformersCount, 7))

	_, err := svc.InitializeDefaults(ctx, db, services.Actor{})
	require.NoError(t, err)
	assert.Equal(t, 5, svc.IntSetting(ctx, db, services.SettingTopPerformersCount, 7))
	assert.Equal(t, 3, svc.IntSetting(ctx, db, services.SettingDisplayConfiguration, 3))
}
