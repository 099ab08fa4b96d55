package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pds_backend/internal/auth"
	"pds_backend/internal/logger"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/pkg/apperrors"
	"pds_backend/pkg/contextkeys"
)

const (
	NewAccessTokenHeader = "X-New-Access-Token"
	DefaultSlidingWindow = 5 * time.Minute

	claimsKey = "claims"
)

var (
	errNoToken       = apperrors.NewUnauthorizedError("Access denied. No token provided.")
	errBadToken      = apperrors.New(apperrors.CodeInvalidToken, "auth", "Invalid or expired token", http.StatusUnauthorized)
	errInactiveUser  = apperrors.NewUnauthorizedError("User not found or inactive")
	errInsufficient  = apperrors.NewForbiddenError("Insufficient permissions")
	errNeedsVerified = apperrors.New(apperrors.CodeEmailNotVerified, "auth", "Email verification required", http.StatusForbidden)
)

// AuthMiddleware - middleware проверки JWT. Пользователь перечитывается из БД,
// чтобы деактивированный аккаунт терял доступ сразу.
func AuthMiddleware(tm *auth.TokenManager, users repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			apperrors.HandleError(c, errNoToken)
			return
		}

		tokenStr := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		claims, err := tm.Parse(tokenStr)
		if err != nil {
			apperrors.HandleError(c, errBadToken)
			return
		}

		db, ok := c.Get(string(contextkeys.DBContextKey))
		if !ok {
			apperrors.HandleError(c, apperrors.InternalError(nil))
			return
		}
		user, err := users.FindByID(db.(*gorm.DB).WithContext(c.Request.Context()), claims.UserID)
		if err != nil {
			if apperrors.Is(err, repositories.ErrUserNotFound) {
				apperrors.HandleError(c, errInactiveUser)
				return
			}
			apperrors.HandleError(c, apperrors.InternalError(err))
			return
		}
		if !user.IsActive {
			apperrors.HandleError(c, errInactiveUser)
			return
		}

		c.Set(string(contextkeys.UserIDKey), user.ID)
		c.Set(string(contextkeys.EmailKey), user.Email)
		c.Set(string(contextkeys.RoleKey), user.RoleName())
		c.Set(string(contextkeys.IsVerifiedKey), user.IsVerified)
		c.Set(claimsKey, claims)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), user.ID))
		c.Next()
	}
}

// RequireRoles - middleware для проверки нескольких возможных ролей
func RequireRoles(roles ...models.RoleName) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.HasAnyRole(GetRole(c), roles...) {
			apperrors.HandleError(c, errInsufficient)
			return
		}
		c.Next()
	}
}

func RequireVerified() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(string(contextkeys.IsVerifiedKey)) {
			apperrors.HandleError(c, errNeedsVerified)
			return
		}
		c.Next()
	}
}

// SlidingAccessToken выдает новый access token в заголовке, если текущий скоро истечет.
// Must run after AuthMiddleware.
func SlidingAccessToken(tm *auth.TokenManager, window time.Duration) gin.HandlerFunc {
	if window <= 0 {
		window = DefaultSlidingWindow
	}
	return func(c *gin.Context) {
		if v, ok := c.Get(claimsKey); ok {
			claims := v.(*auth.Claims)
			if tm.ExpiresWithin(claims, window) {
				fresh, err := tm.Generate(GetUserID(c), GetEmail(c), string(GetRole(c)))
				if err != nil {
					logger.CtxWithError(c.Request.Context(), "failed to refresh access token", err)
				} else {
					c.Header(NewAccessTokenHeader, fresh)
				}
			}
		}
		c.Next()
	}
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(string(contextkeys.UserIDKey))
}

func GetEmail(c *gin.Context) string {
	return c.GetString(string(contextkeys.EmailKey))
}

func GetRole(c *gin.Context) models.RoleName {
	v, ok := c.Get(string(contextkeys.RoleKey))
	if !ok {
		return ""
	}
	role, _ := v.(models.RoleName)
	return role
}
