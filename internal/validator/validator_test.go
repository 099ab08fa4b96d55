package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,strong-password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type report struct {
	Date   string `form:"report_date" validate:"required,report-date"`
	Time   string `form:"report_time" validate:"required,report-time"`
	SortBy string `form:"sort_by" validate:"omitempty,leaderboard-sort"`
}

func TestValidate_UsesJSONNames(t *testing.T) {
	v := New()

	err := v.Validate(&signup{Email: "nope", Password: "weak", ConfirmPassword: "other"})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "Must be a valid email address", vErr.Errors["email"])
	assert.Contains(t, vErr.Errors["password"], "8-32 characters")
	assert.Equal(t, "Must match password", vErr.Errors["confirm_password"])
}

func TestValidate_FormTags(t *testing.T) {
	v := New()

	assert.NoError(t, v.Validate(&report{Date: "2024-05-01", Time: "09:30", SortBy: "total"}))

	err := v.Validate(&report{Date: "01/05/2024", Time: "24:00", SortBy: "calls"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Len(t, vErr.Errors, 3)
	assert.Contains(t, vErr.Errors, "report_time")
}

func TestIsStrongPassword(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"Password#1", true},
		{"password#1", false},
		{"PASSWORD#1", false},
		{"Password11", false},
		{"Pa#1", false},
		{"Aa#1" + strings.Repeat("a", 30), false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsStrongPassword(tc.in), tc.in)
	}
}
