package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"pds_backend/internal/logger"
	"pds_backend/internal/middleware"
	"pds_backend/internal/services"
	"pds_backend/internal/tabular"
	"pds_backend/internal/validator"
	"pds_backend/pkg/apperrors"
	"pds_backend/pkg/contextkeys"
)

// ============================================================================
// 1. Базовая структура обработчика
// ============================================================================

type BaseHandler struct {
	validator *validator.Validator
}

func NewBaseHandler(v *validator.Validator) *BaseHandler {
	return &BaseHandler{
		validator: v,
	}
}

// Guards - middleware, которые хэндлеры навешивают на свои группы маршрутов.
type Guards struct {
	Auth    gin.HandlerFunc
	Sliding gin.HandlerFunc
}

// Authenticated returns the auth chain, with the sliding access token when configured.
func (g Guards) Authenticated() []gin.HandlerFunc {
	chain := []gin.HandlerFunc{g.Auth}
	if g.Sliding != nil {
		chain = append(chain, g.Sliding)
	}
	return chain
}

// ============================================================================
// 2. Извлечение DB
// ============================================================================

// GetDB извлекает *gorm.DB (пул или транзакцию) из gin.Context
func (h *BaseHandler) GetDB(c *gin.Context) *gorm.DB {
	dbKey := string(contextkeys.DBContextKey)

	val, ok := c.Get(dbKey)
	if !ok {
		logger.CtxError(c.Request.Context(), "critical error: db key not found in context", "key", dbKey)
		panic("critical error: DBMiddleware did not set the db key")
	}

	db, ok := val.(*gorm.DB)
	if !ok {
		logger.CtxError(c.Request.Context(), "critical error: db in context is not *gorm.DB", "key", dbKey, "type", fmt.Sprintf("%T", val))
		panic("critical error: db in context has incorrect type")
	}

	return db
}

// ============================================================================
// 3. Методы привязки и валидации
// ============================================================================

func (h *BaseHandler) BindAndValidate_JSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		logger.CtxWithError(c.Request.Context(), "Failed to bind JSON body", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid request body: "+err.Error()))
		return false
	}
	return h.validate(c, obj)
}

func (h *BaseHandler) BindAndValidate_Query(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		logger.CtxWithError(c.Request.Context(), "Failed to bind query params", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid query parameters: "+err.Error()))
		return false
	}
	return h.validate(c, obj)
}

// BindAndValidate_Form binds multipart form fields sent next to an upload.
func (h *BaseHandler) BindAndValidate_Form(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBind(obj); err != nil {
		logger.CtxWithError(c.Request.Context(), "Failed to bind form fields", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.NewBadRequestError("Invalid form fields: "+err.Error()))
		return false
	}
	return h.validate(c, obj)
}

func (h *BaseHandler) validate(c *gin.Context, obj interface{}) bool {
	ctx := c.Request.Context()
	if err := h.validator.Validate(obj); err != nil {
		if vErr, ok := err.(*validator.ValidationError); ok {
			logger.CtxWarn(ctx, "Validation failed", "errors", vErr.Errors, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.ValidationError(vErr.Errors))
		} else {
			logger.CtxWithError(ctx, "Internal validator error", err, "path", c.Request.URL.Path)
			apperrors.HandleError(c, apperrors.InternalError(err))
		}
		return false
	}
	return true
}

// ============================================================================
// 4. Обработка ошибок и ответы
// ============================================================================

func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	ctx := c.Request.Context()

	var appErr *apperrors.AppError
	if apperrors.As(err, &appErr) {
		logger.CtxWarn(ctx, "Service error",
			"error", appErr.Message,
			"details", appErr.Details,
			"path", c.Request.URL.Path,
		)
		apperrors.HandleError(c, appErr)
	} else {
		logger.CtxWithError(ctx, "Internal server error", err, "path", c.Request.URL.Path)
		apperrors.HandleError(c, apperrors.InternalError(err))
	}
}

// Respond writes {"success": true, "message"?, "data"?}.
func Respond(c *gin.Context, status int, message string, data interface{}) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func OK(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, "", data)
}

// ============================================================================
// 5. Вспомогательные функции
// ============================================================================

// Actor собирает аутентифицированного пользователя из контекста, выставленного AuthMiddleware.
func (h *BaseHandler) Actor(c *gin.Context) (services.Actor, bool) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		logger.CtxWarn(c.Request.Context(), "Unauthorized access: userID not found in context",
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
		)
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("User not authenticated"))
		return services.Actor{}, false
	}
	return services.Actor{
		UserID: userID,
		Email:  middleware.GetEmail(c),
		Role:   middleware.GetRole(c),
	}, true
}

// FileInput opens the multipart file under field and enforces maxSize.
// The returned close func must be called once the service is done with the file.
func (h *BaseHandler) FileInput(c *gin.Context, field string, maxSize int64) (*services.FileInput, func(), bool) {
	header, err := c.FormFile(field)
	if err != nil {
		apperrors.HandleError(c, apperrors.ErrNoFileUploaded)
		return nil, nil, false
	}
	if maxSize > 0 && header.Size > maxSize {
		apperrors.HandleError(c, apperrors.ErrFileTooLarge.WithDetails(map[string]interface{}{
			"max_size": maxSize,
			"size":     header.Size,
		}))
		return nil, nil, false
	}
	return openFileInput(c, header)
}

func openFileInput(c *gin.Context, header *multipart.FileHeader) (*services.FileInput, func(), bool) {
	f, err := header.Open()
	if err != nil {
		logger.CtxWithError(c.Request.Context(), "Failed to open uploaded file", err, "file", header.Filename)
		apperrors.HandleError(c, apperrors.InternalError(err))
		return nil, nil, false
	}
	input := &services.FileInput{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Content:     f,
	}
	return input, func() { _ = f.Close() }, true
}

func ParseParamUint(c *gin.Context, key string) (uint, error) {
	valueStr := c.Param(key)
	if valueStr == "" {
		return 0, apperrors.NewBadRequestError("Missing required path parameter: " + key)
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil || value == 0 {
		return 0, apperrors.NewBadRequestError("Invalid path parameter: " + key + " is not a positive integer")
	}
	return uint(value), nil
}

func ParseQueryInt(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// ParseQueryBool returns def unless key parses as a boolean.
func ParseQueryBool(c *gin.Context, key string, def bool) bool {
	value, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return def
	}
	return value
}

// CheckImportFormat rejects uploads whose extension does not match the import route.
func CheckImportFormat(c *gin.Context, in *services.FileInput, want tabular.Format) bool {
	got, err := tabular.DetectFormat(in.Name)
	if err != nil || got != want {
		apperrors.HandleError(c, apperrors.ErrInvalidFileType.WithDetails(map[string]string{
			"file_name": in.Name,
		}))
		return false
	}
	return true
}

func ParseParamUUID(c *gin.Context, key string) (string, error) {
	id, err := uuid.Parse(c.Param(key))
	if err != nil {
		return "", apperrors.NewBadRequestError("Invalid path parameter: " + key + " is not a valid UUID")
	}
	return id.String(), nil
}
