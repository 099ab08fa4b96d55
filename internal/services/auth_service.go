package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"pds_backend/internal/auth"
	"pds_backend/internal/logger"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services/dto"
	"pds_backend/pkg/apperrors"
)

const (
	MsgRegistered         = "Registration successful. Please check your email to verify your account."
	MsgEmailVerified      = "Email verified successfully"
	MsgForgotPassword     = "If your email is registered, you will receive password reset instructions"
	MsgPasswordReset      = "Password has been reset successfully"
	MsgPasswordChanged    = "Password changed successfully"
	MsgLoggedOut          = "Logged out successfully"
	MsgResendVerification = "If your email is registered and not yet verified, a new verification link has been sent"

	defaultDeviceInfo = "Unknown device"
)

// AccountMailer sends the account lifecycle emails.
type AccountMailer interface {
	SendVerification(ctx context.Context, to, name, token string, ttl time.Duration) error
	SendPasswordReset(ctx context.Context, to, name, token string, ttl time.Duration) error
	SendWelcome(ctx context.Context, to, name string) error
}

// AuthConfig holds token lifetimes and whether one-time tokens are echoed back to the client.
type AuthConfig struct {
	RefreshTTL         time.Duration
	RememberRefreshTTL time.Duration
	VerificationTTL    time.Duration
	ResetTTL           time.Duration
	// ExposeTokens returns verification tokens in responses; never set in production.
	ExposeTokens bool
}

type AuthService interface {
	Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.RegisterResponse, error)
	VerifyEmail(ctx context.Context, db *gorm.DB, token string) error
	Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest, deviceInfo string) (*dto.LoginResult, error)
	RefreshAccessToken(ctx context.Context, db *gorm.DB, refreshToken string) (*dto.AccessTokenResponse, error)
	Logout(ctx context.Context, db *gorm.DB, actor Actor, refreshToken string) error
	ForgotPassword(ctx context.Context, db *gorm.DB, email string) error
	ResetPassword(ctx context.Context, db *gorm.DB, req *dto.ResetPasswordRequest) error
	ChangePassword(ctx context.Context, db *gorm.DB, actor Actor, req *dto.ChangePasswordRequest, currentRefreshToken string) error
	ResendVerification(ctx context.Context, db *gorm.DB, email string) (*dto.ResendVerificationResponse, error)
	GetProfile(ctx context.Context, db *gorm.DB, userID string) (*dto.UserResponse, error)
	// CleanupExpiredTokens deletes every ledger row past expiry, revoked or not.
	CleanupExpiredTokens(ctx context.Context, db *gorm.DB) (int64, error)
}

type AuthServiceImpl struct {
	userRepo  repositories.UserRepository
	roleRepo  repositories.RoleRepository
	tokenRepo repositories.AuthTokenRepository
	audit     AuditService
	tokens    *auth.TokenManager
	mailer    AccountMailer
	cfg       AuthConfig
	now       func() time.Time
}

func NewAuthService(
	userRepo repositories.UserRepository,
	roleRepo repositories.RoleRepository,
	tokenRepo repositories.AuthTokenRepository,
	audit AuditService,
	tokens *auth.TokenManager,
	mailer AccountMailer,
	cfg AuthConfig,
) *AuthServiceImpl {
	if cfg.RememberRefreshTTL == 0 {
		cfg.RememberRefreshTTL = 2 * cfg.RefreshTTL
	}
	return &AuthServiceImpl{
		userRepo:  userRepo,
		roleRepo:  roleRepo,
		tokenRepo: tokenRepo,
		audit:     audit,
		tokens:    tokens,
		mailer:    mailer,
		cfg:       cfg,
		now:       time.Now,
	}
}

// SetClock overrides the time source; used by tests.
func (s *AuthServiceImpl) SetClock(now func() time.Time) {
	s.now = now
}

func (s *AuthServiceImpl) clock() time.Time {
	return s.now().UTC()
}

// Register - регистрация нового пользователя с ролью USER
func (s *AuthServiceImpl) Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	db = db.WithContext(ctx)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.PhoneNumber)
	natID := trimmedPtr(req.NatID)

	conflicts, err := s.userRepo.FindConflicts(db, email, phone, natID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := credentialConflictError(conflicts); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	role, err := s.roleRepo.FindByName(db, models.RoleUser)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        email,
		PhoneNumber:  phone,
		NatID:        natID,
		Department:   strings.TrimSpace(req.Department),
		PasswordHash: hash,
		RoleID:       role.ID,
		IsVerified:   false,
		IsActive:     true,
	}

	tx, err := begin(ctx, db)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if err := s.userRepo.Create(tx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrDuplicateCredential("User with these credentials already exists")
		}
		return nil, apperrors.InternalError(err)
	}
	verification, err := s.issueToken(tx, user.ID, models.TokenVerification, auth.VerificationTokenBytes, s.cfg.VerificationTTL, "")
	if err != nil {
		return nil, err
	}
	if err := commit(tx); err != nil {
		return nil, err
	}
	user.Role = role

	sent := true
	if err := s.mailer.SendVerification(ctx, user.Email, user.FullName(), verification.Token, s.cfg.VerificationTTL); err != nil {
		sent = false
		logger.CtxWithError(ctx, "failed to send verification email", err, "email", user.Email)
	}

	logger.CtxInfo(ctx, "user registered", "user_id", user.ID)

	resp := &dto.RegisterResponse{
		Message: MsgRegistered,
		User:    dto.NewUserResponse(user),
	}
	if s.cfg.ExposeTokens {
		resp.VerificationToken = verification.Token
		resp.EmailSent = &sent
	}
	return resp, nil
}

func credentialConflictError(c repositories.CredentialConflicts) error {
	switch {
	case c.Email && c.Phone:
		return apperrors.ErrDuplicateCredential("Both email and phone number are already registered")
	case c.Email:
		return apperrors.ErrDuplicateCredential("User with this email already exists")
	case c.Phone:
		return apperrors.ErrDuplicateCredential("User with this phone number already exists")
	case c.NatID:
		return apperrors.ErrDuplicateCredential("User with this national ID already exists")
	}
	return nil
}

// VerifyEmail - подтверждение email по одноразовому токену
func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, db *gorm.DB, token string) error {
	db = db.WithContext(ctx)

	record, err := s.tokenRepo.FindByToken(db, strings.TrimSpace(token), models.TokenVerification)
	if err != nil {
		if errors.Is(err, repositories.ErrTokenNotFound) {
			return apperrors.ErrInvalidToken
		}
		return apperrors.InternalError(err)
	}

	user, err := s.userRepo.FindByID(db, record.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrInvalidToken
		}
		return apperrors.InternalError(err)
	}
	// A consumed token belongs to an already verified user.
	if user.IsVerified {
		return apperrors.ErrEmailAlreadyVerified
	}
	if !record.IsValid(s.clock()) {
		return apperrors.ErrInvalidToken
	}

	if err := s.userRepo.MarkVerified(db, user.ID); err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.tokenRepo.Revoke(db, record.ID); err != nil {
		logger.CtxWithError(ctx, "failed to revoke verification token", err, "user_id", user.ID)
	}

	if err := s.mailer.SendWelcome(ctx, user.Email, user.FullName()); err != nil {
		logger.CtxWithError(ctx, "failed to send welcome email", err, "user_id", user.ID)
	}
	return nil
}

// Login - аутентификация пользователя
func (s *AuthServiceImpl) Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest, deviceInfo string) (*dto.LoginResult, error) {
	db = db.WithContext(ctx)

	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}
	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDeactivated
	}
	if !user.IsVerified {
		return nil, apperrors.ErrEmailNotVerified
	}

	access, err := s.tokens.Generate(user.ID, user.Email, string(user.RoleName()))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	if strings.TrimSpace(deviceInfo) == "" {
		deviceInfo = defaultDeviceInfo
	}
	ttl := s.cfg.RefreshTTL
	if req.RememberMe {
		ttl = s.cfg.RememberRefreshTTL
	}
	refresh, err := s.issueToken(db, user.ID, models.TokenRefresh, auth.RefreshTokenBytes, ttl, deviceInfo)
	if err != nil {
		return nil, err
	}

	s.audit.RecordBestEffort(ctx, db, actorOf(user), models.AuditLogin,
		fmt.Sprintf("User logged in from %s", deviceInfo))

	return &dto.LoginResult{
		AccessToken:      access,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.tokens.TTL().Seconds()),
		User:             dto.NewUserResponse(user),
		RefreshToken:     refresh.Token,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

// RefreshAccessToken mints a new access token; the refresh token itself is not rotated.
func (s *AuthServiceImpl) RefreshAccessToken(ctx context.Context, db *gorm.DB, refreshToken string) (*dto.AccessTokenResponse, error) {
	db = db.WithContext(ctx)
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperrors.ErrInvalidToken
	}

	record, err := s.tokenRepo.FindByToken(db, refreshToken, models.TokenRefresh)
	if err != nil {
		if errors.Is(err, repositories.ErrTokenNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.InternalError(err)
	}
	if !record.IsValid(s.clock()) {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(db, record.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.InternalError(err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidToken
	}

	access, err := s.tokens.Generate(user.ID, user.Email, string(user.RoleName()))
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return &dto.AccessTokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// Logout never fails: revocation and audit errors are logged only.
func (s *AuthServiceImpl) Logout(ctx context.Context, db *gorm.DB, actor Actor, refreshToken string) error {
	db = db.WithContext(ctx)
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		if err := s.tokenRepo.RevokeByValue(db, actor.UserID, refreshToken); err != nil {
			logger.CtxWithError(ctx, "failed to revoke refresh token on logout", err)
		}
	}
	s.audit.RecordBestEffort(ctx, db, actor, models.AuditLogout, "User logged out")
	return nil
}

// ForgotPassword never reveals whether the email exists.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, db *gorm.DB, email string) error {
	db = db.WithContext(ctx)

	user, err := s.userRepo.FindByEmail(db, email)
	if err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			logger.CtxWithError(ctx, "forgot password lookup failed", err)
		}
		return nil
	}
	if !user.IsActive {
		logger.CtxDebug(ctx, "password reset requested for inactive account", "user_id", user.ID)
		return nil
	}

	if _, err := s.tokenRepo.RevokeAllForUser(db, user.ID, models.TokenPasswordReset); err != nil {
		logger.CtxWithError(ctx, "failed to revoke previous reset tokens", err, "user_id", user.ID)
		return nil
	}
	reset, err := s.issueToken(db, user.ID, models.TokenPasswordReset, auth.ResetTokenBytes, s.cfg.ResetTTL, "")
	if err != nil {
		logger.CtxWithError(ctx, "failed to issue reset token", err, "user_id", user.ID)
		return nil
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.FullName(), reset.Token, s.cfg.ResetTTL); err != nil {
		logger.CtxWithError(ctx, "failed to send password reset email", err, "user_id", user.ID)
	}
	return nil
}

// ResetPassword sets a new password and revokes every refresh token of the user.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, db *gorm.DB, req *dto.ResetPasswordRequest) error {
	db = db.WithContext(ctx)

	record, err := s.tokenRepo.FindByToken(db, strings.TrimSpace(req.Token), models.TokenPasswordReset)
	if err != nil {
		if errors.Is(err, repositories.ErrTokenNotFound) {
			return apperrors.ErrInvalidToken
		}
		return apperrors.InternalError(err)
	}
	if !record.IsValid(s.clock()) {
		return apperrors.ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(db, record.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrInvalidToken
		}
		return apperrors.InternalError(err)
	}
	if !user.IsActive {
		return apperrors.ErrInvalidToken
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return apperrors.InternalError(err)
	}

	tx, err := begin(ctx, db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.userRepo.UpdatePassword(tx, user.ID, hash); err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.tokenRepo.Revoke(tx, record.ID); err != nil {
		return apperrors.InternalError(err)
	}
	revoked, err := s.tokenRepo.RevokeAllForUser(tx, user.ID, models.TokenRefresh)
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.audit.Record(ctx, tx, actorOf(user), models.AuditPasswordReset, "Password reset via email link"); err != nil {
		return err
	}
	if err := commit(tx); err != nil {
		return err
	}

	logger.CtxInfo(ctx, "password reset", "user_id", user.ID, "revoked_sessions", revoked)
	return nil
}

// ChangePassword keeps only the session identified by currentRefreshToken.
func (s *AuthServiceImpl) ChangePassword(ctx context.Context, db *gorm.DB, actor Actor, req *dto.ChangePasswordRequest, currentRefreshToken string) error {
	db = db.WithContext(ctx)

	user, err := s.userRepo.FindByID(db, actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.NewNotFoundError("users", "User not found")
		}
		return apperrors.InternalError(err)
	}
	if !auth.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		return apperrors.ErrCurrentPasswordIncorrect
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return apperrors.InternalError(err)
	}

	tx, err := begin(ctx, db)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.userRepo.UpdatePassword(tx, user.ID, hash); err != nil {
		return apperrors.InternalError(err)
	}
	currentRefreshToken = strings.TrimSpace(currentRefreshToken)
	if currentRefreshToken == "" {
		_, err = s.tokenRepo.RevokeAllForUser(tx, user.ID, models.TokenRefresh)
	} else {
		_, err = s.tokenRepo.RevokeAllForUserExcept(tx, user.ID, models.TokenRefresh, currentRefreshToken)
	}
	if err != nil {
		return apperrors.InternalError(err)
	}
	if err := s.audit.Record(ctx, tx, actorOf(user), models.AuditPasswordChange, "User changed password"); err != nil {
		return err
	}
	return commit(tx)
}

func (s *AuthServiceImpl) ResendVerification(ctx context.Context, db *gorm.DB, email string) (*dto.ResendVerificationResponse, error) {
	db = db.WithContext(ctx)
	resp := &dto.ResendVerificationResponse{Message: MsgResendVerification}

	user, err := s.userRepo.FindByEmail(db, email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return resp, nil
		}
		return nil, apperrors.InternalError(err)
	}
	if user.IsVerified || !user.IsActive {
		return resp, nil
	}

	if _, err := s.tokenRepo.RevokeAllForUser(db, user.ID, models.TokenVerification); err != nil {
		return nil, apperrors.InternalError(err)
	}
	verification, err := s.issueToken(db, user.ID, models.TokenVerification, auth.VerificationTokenBytes, s.cfg.VerificationTTL, "")
	if err != nil {
		return nil, err
	}

	sent := true
	if err := s.mailer.SendVerification(ctx, user.Email, user.FullName(), verification.Token, s.cfg.VerificationTTL); err != nil {
		if !s.cfg.ExposeTokens {
			return nil, apperrors.ErrTransport(err, "Failed to send verification email")
		}
		sent = false
		logger.CtxWithError(ctx, "failed to resend verification email", err, "user_id", user.ID)
	}

	if s.cfg.ExposeTokens {
		resp.VerificationToken = verification.Token
		resp.EmailSent = &sent
	}
	return resp, nil
}

func (s *AuthServiceImpl) GetProfile(ctx context.Context, db *gorm.DB, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(db.WithContext(ctx), userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewNotFoundError("users", "User not found")
		}
		return nil, apperrors.InternalError(err)
	}
	return dto.NewUserResponse(user), nil
}

func (s *AuthServiceImpl) CleanupExpiredTokens(ctx context.Context, db *gorm.DB) (int64, error) {
	deleted, err := s.tokenRepo.DeleteExpired(db.WithContext(ctx), s.clock())
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	return deleted, nil
}

func (s *AuthServiceImpl) issueToken(db *gorm.DB, userID string, kind models.TokenKind, size int, ttl time.Duration, device string) (*models.AuthToken, error) {
	value, err := auth.RandomHex(size)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	token := &models.AuthToken{
		UserID:     userID,
		Token:      value,
		Kind:       kind,
		ExpiresAt:  s.clock().Add(ttl),
		DeviceInfo: device,
	}
	if err := s.tokenRepo.Create(db, token); err != nil {
		return nil, apperrors.InternalError(err)
	}
	return token, nil
}

func actorOf(u *models.User) Actor {
	return Actor{UserID: u.ID, Email: u.Email, Role: u.RoleName()}
}
