package validator

import (
	"log"
	"regexp"
	"time"
	"unicode"

	"pds_backend/internal/models"

	"github.com/go-playground/validator/v10"
)

var reportTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// registerCustomRules регистрирует все кастомные функции валидации.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("strong-password", func(fl validator.FieldLevel) bool {
		return IsStrongPassword(fl.Field().String())
	})
	mustRegister("report-time", func(fl validator.FieldLevel) bool {
		return optional(fl, IsReportTime)
	})
	mustRegister("report-date", func(fl validator.FieldLevel) bool {
		return optional(fl, IsReportDate)
	})
	mustRegister("setting-type", func(fl validator.FieldLevel) bool {
		return optional(fl, func(s string) bool { return models.SettingType(s).Valid() })
	})
	mustRegister("leaderboard-sort", func(fl validator.FieldLevel) bool {
		return optional(fl, func(s string) bool {
			return s == "inbound" || s == "outbound" || s == "total"
		})
	})
	mustRegister("upload-status", func(fl validator.FieldLevel) bool {
		return optional(fl, func(s string) bool {
			switch models.UploadStatus(s) {
			case models.UploadPending, models.UploadProcessed, models.UploadCancelled:
				return true
			}
			return false
		})
	})
}

// optional: пустые значения проверяет 'required'
func optional(fl validator.FieldLevel, check func(string) bool) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return check(value)
}

// IsStrongPassword: 8-32 символа, цифра, строчная, заглавная и спецсимвол.
func IsStrongPassword(s string) bool {
	if n := len([]rune(s)); n < 8 || n > 32 {
		return false
	}
	var digit, lower, upper, special bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			special = true
		}
	}
	return digit && lower && upper && special
}

func IsReportTime(s string) bool {
	return reportTimeRe.MatchString(s)
}

func IsReportDate(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}
