package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services/dto"
	"pds_backend/pkg/apperrors"
)

const (
	SettingVideoDisplayDuration   = "video_display_duration"
	SettingMetricsDisplayDuration = "metrics_display_duration"
	SettingTopPerformersCount     = "top_performers_count"
	SettingBottomPerformersCount  = "bottom_performers_count"
	SettingDisplayConfiguration   = "display_configuration"
)

// DefaultDisplaySettings seeds the wallboard configuration.
var DefaultDisplaySettings = []models.DisplaySetting{
	{
		SettingName:  SettingVideoDisplayDuration,
		DisplayName:  "Video Display Duration",
		SettingValue: "300",
		SettingType:  models.SettingNumber,
		Description:  "Seconds the display spends on the video playlist",
	},
	{
		SettingName:  SettingMetricsDisplayDuration,
		DisplayName:  "Metrics Display Duration",
		SettingValue: "60",
		SettingType:  models.SettingNumber,
		Description:  "Seconds the display spends on call metrics",
	},
	{
		SettingName:  SettingTopPerformersCount,
		DisplayName:  "Top Performers Count",
		SettingValue: "5",
		SettingType:  models.SettingNumber,
		Description:  "Number of top performers shown",
	},
	{
		SettingName:  SettingBottomPerformersCount,
		DisplayName:  "Bottom Performers Count",
		SettingValue: "5",
		SettingType:  models.SettingNumber,
		Description:  "Number of bottom performers shown",
	},
	{
		SettingName:  SettingDisplayConfiguration,
		DisplayName:  "Display Configuration",
		SettingValue: `{"theme":"dark","show_clock":true,"rotation":["videos","metrics"]}`,
		SettingType:  models.SettingJSON,
		Description:  "Layout options for the display client",
	},
}

type DisplaySettingsService interface {
	InitializeDefaults(ctx context.Context, db *gorm.DB, actor Actor) (int, error)
	ListSettings(ctx context.Context, db *gorm.DB) ([]models.DisplaySetting, error)
	UpdateSetting(ctx context.Context, db *gorm.DB, actor Actor, req *dto.UpdateSettingRequest) (*models.DisplaySetting, error)
	// IntSetting returns a numeric setting, or def when it is absent or not an integer.
	IntSetting(ctx context.Context, db *gorm.DB, name string, def int) int
}

type DisplaySettingsServiceImpl struct {
	settingRepo repositories.DisplaySettingRepository
	audit       AuditService
}

func NewDisplaySettingsService(settingRepo repositories.DisplaySettingRepository, audit AuditService) *DisplaySettingsServiceImpl {
	return &DisplaySettingsServiceImpl{settingRepo: settingRepo, audit: audit}
}

// InitializeDefaults creates any missing default; existing values are left untouched.
func (s *DisplaySettingsServiceImpl) InitializeDefaults(ctx context.Context, db *gorm.DB, actor Actor) (int, error) {
	db = db.WithContext(ctx)
	created := 0
	for _, def := range DefaultDisplaySettings {
		setting := def
		setting.UpdatedBy = trimmedPtr(actor.UserID)
		ok, err := s.settingRepo.FindOrCreate(db, &setting)
		if err != nil {
			return created, apperrors.InternalError(err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

func (s *DisplaySettingsServiceImpl) ListSettings(ctx context.Context, db *gorm.DB) ([]models.DisplaySetting, error) {
	settings, err := s.settingRepo.List(db.WithContext(ctx))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	for i := range settings {
		if settings[i].SettingType == models.SettingJSON && json.Valid([]byte(settings[i].SettingValue)) {
			settings[i].ParsedValue = datatypes.JSON(settings[i].SettingValue)
		}
	}
	return settings, nil
}

func (s *DisplaySettingsServiceImpl) UpdateSetting(ctx context.Context, db *gorm.DB, actor Actor, req *dto.UpdateSettingRequest) (*models.DisplaySetting, error) {
	db = db.WithContext(ctx)

	setting, err := s.settingRepo.FindByName(db, req.SettingName)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingNotFound) {
			return nil, apperrors.NewNotFoundError("display", fmt.Sprintf("Setting '%s' not found", req.SettingName))
		}
		return nil, apperrors.InternalError(err)
	}

	value, err := coerceSettingValue(setting.SettingType, req.SettingValue)
	if err != nil {
		return nil, apperrors.ValidationError(map[string]string{"setting_value": err.Error()})
	}

	if err := s.settingRepo.UpdateValue(db, setting.ID, value, trimmedPtr(actor.UserID)); err != nil {
		return nil, apperrors.InternalError(err)
	}
	s.audit.RecordBestEffort(ctx, db, actor, models.AuditUpdateDisplaySetting,
		fmt.Sprintf("Updated display setting: %s", setting.DisplayName))

	updated, err := s.settingRepo.FindByName(db, req.SettingName)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if updated.SettingType == models.SettingJSON {
		updated.ParsedValue = datatypes.JSON(updated.SettingValue)
	}
	return updated, nil
}

func (s *DisplaySettingsServiceImpl) IntSetting(ctx context.Context, db *gorm.DB, name string, def int) int {
	setting, err := s.settingRepo.FindByName(db.WithContext(ctx), name)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(setting.SettingValue))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// coerceSettingValue checks raw against the setting type and returns the stored text form.
func coerceSettingValue(kind models.SettingType, raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return "", errors.New("Must be a valid JSON value")
	}

	var asString string
	isString := json.Unmarshal(raw, &asString) == nil

	switch kind {
	case models.SettingNumber:
		text := strings.TrimSpace(asString)
		if !isString {
			text = string(raw)
		}
		if _, err := strconv.ParseFloat(text, 64); err != nil {
			return "", fmt.Errorf("Invalid number: %s", text)
		}
		return text, nil
	case models.SettingBoolean:
		text := strings.TrimSpace(asString)
		if !isString {
			text = string(raw)
		}
		b, err := strconv.ParseBool(text)
		if err != nil {
			return "", fmt.Errorf("Invalid boolean: %s", text)
		}
		return strconv.FormatBool(b), nil
	case models.SettingJSON:
		if isString {
			if !json.Valid([]byte(asString)) {
				return "", errors.New("Invalid JSON value")
			}
			return asString, nil
		}
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return "", errors.New("Invalid JSON value")
		}
		return buf.String(), nil
	default:
		if isString {
			return asString, nil
		}
		return string(raw), nil
	}
}
