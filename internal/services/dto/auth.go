package dto

import (
	"time"

	"pds_backend/internal/models"
)

// RegisterRequest - запрос регистрации
type RegisterRequest struct {
	FirstName   string `json:"first_name" validate:"required,min=2,max=50"`
	LastName    string `json:"last_name" validate:"required,min=2,max=50"`
	Email       string `json:"email" validate:"required,email,max=255"`
	PhoneNumber string `json:"phone_number" validate:"required,min=7,max=20"`
	NatID       string `json:"nat_id" validate:"omitempty,max=50"`
	Department  string `json:"department" validate:"omitempty,max=100"`
	Password    string `json:"password" validate:"required,strong-password"`
}

type RegisterResponse struct {
	Message           string        `json:"message"`
	User              *UserResponse `json:"user"`
	VerificationToken string        `json:"verification_token,omitempty"`
	EmailSent         *bool         `json:"email_sent,omitempty"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// LoginRequest - запрос входа
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// LoginResult carries the session; the refresh token travels in a cookie, never the body.
type LoginResult struct {
	AccessToken      string        `json:"access_token"`
	TokenType        string        `json:"token_type"`
	ExpiresIn        int64         `json:"expires_in"`
	User             *UserResponse `json:"user"`
	RefreshToken     string        `json:"-"`
	RefreshExpiresAt time.Time     `json:"-"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,strong-password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong-password"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

type ResendVerificationRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResendVerificationResponse struct {
	Message           string `json:"message"`
	VerificationToken string `json:"verification_token,omitempty"`
	EmailSent         *bool  `json:"email_sent,omitempty"`
}

// UserResponse - публичное представление пользователя, без пароля
type UserResponse struct {
	ID          string          `json:"id"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	Email       string          `json:"email"`
	PhoneNumber string          `json:"phone_number"`
	NatID       string          `json:"nat_id,omitempty"`
	Department  string          `json:"department,omitempty"`
	Role        models.RoleName `json:"role"`
	IsVerified  bool            `json:"is_verified"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

func NewUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	resp := &UserResponse{
		ID:          u.ID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		Department:  u.Department,
		Role:        u.RoleName(),
		IsVerified:  u.IsVerified,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
	if u.NatID != nil {
		resp.NatID = *u.NatID
	}
	return resp
}
