package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
)

const refreshCookie = "refresh_token"

type AuthHandler struct {
	*BaseHandler
	authService  services.AuthService
	secureCookie bool
}

func NewAuthHandler(base *BaseHandler, authService services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		BaseHandler:  base,
		authService:  authService,
		secureCookie: secureCookie,
	}
}

// RegisterRoutes регистрирует все маршруты для аутентификации
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, g Guards) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/verify-email", h.VerifyEmail)
		auth.POST("/login", h.Login)
		auth.POST("/refresh-token", h.RefreshToken)
		auth.POST("/forgot-password", h.ForgotPassword)
		auth.POST("/reset-password", h.ResetPassword)
		auth.POST("/resend-verification", h.ResendVerification)
	}

	protected := auth.Group("", g.Authenticated()...)
	{
		protected.POST("/logout", h.Logout)
		protected.GET("/profile", h.GetProfile)
		protected.POST("/change-password", h.ChangePassword)
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusCreated, resp.Message, resp)
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req dto.VerifyEmailRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.VerifyEmail(c.Request.Context(), h.GetDB(c), req.Token); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, services.MsgEmailVerified, nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	result, err := h.authService.Login(c.Request.Context(), h.GetDB(c), &req, c.Request.UserAgent())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, result.RefreshToken, time.Until(result.RefreshExpiresAt))
	Respond(c, http.StatusOK, "Login successful", result)
}

// RefreshToken читает refresh token из cookie, а если ее нет - из тела запроса.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token := h.presentedRefreshToken(c)

	resp, err := h.authService.RefreshAccessToken(c.Request.Context(), h.GetDB(c), token)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "Token refreshed successfully", resp)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	if err := h.authService.Logout(c.Request.Context(), h.GetDB(c), actor, h.presentedRefreshToken(c)); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.setRefreshCookie(c, "", -1)
	Respond(c, http.StatusOK, services.MsgLoggedOut, nil)
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req dto.ForgotPasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), h.GetDB(c), req.Email); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, services.MsgForgotPassword, nil)
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	if err := h.authService.ResetPassword(c.Request.Context(), h.GetDB(c), &req); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, services.MsgPasswordReset, nil)
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req dto.ResendVerificationRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.authService.ResendVerification(c.Request.Context(), h.GetDB(c), req.Email)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, resp.Message, resp)
}

func (h *AuthHandler) GetProfile(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	profile, err := h.authService.GetProfile(c.Request.Context(), h.GetDB(c), actor.UserID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, profile)
}

// ChangePassword keeps the session that made the request; every other refresh token is revoked.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.ChangePasswordRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	current, _ := c.Cookie(refreshCookie)
	if err := h.authService.ChangePassword(c.Request.Context(), h.GetDB(c), actor, &req, current); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, services.MsgPasswordChanged, nil)
}

func (h *AuthHandler) presentedRefreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshCookie); err == nil && token != "" {
		return token
	}
	var body dto.RefreshTokenRequest
	// пустое тело допустимо
	_ = c.ShouldBindJSON(&body)
	return body.RefreshToken
}

func (h *AuthHandler) setRefreshCookie(c *gin.Context, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, value, maxAge, "/", "", h.secureCookie, true)
}
