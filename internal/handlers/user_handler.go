package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pds_backend/internal/middleware"
	"pds_backend/internal/models"
	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/tabular"
)

// UserHandler - администрирование пользователей: импорт, активация, журнал аудита.
type UserHandler struct {
	*BaseHandler
	userService   services.UserService
	importService services.UserImportService
	auditService  services.AuditService
	maxImportSize int64
}

func NewUserHandler(
	base *BaseHandler,
	userService services.UserService,
	importService services.UserImportService,
	auditService services.AuditService,
	maxImportSize int64,
) *UserHandler {
	return &UserHandler{
		BaseHandler:   base,
		userService:   userService,
		importService: importService,
		auditService:  auditService,
		maxImportSize: maxImportSize,
	}
}

func (h *UserHandler) RegisterRoutes(rg *gin.RouterGroup, g Guards) {
	admin := rg.Group("/admin", append(g.Authenticated(), middleware.RequireRoles(models.RoleAdmin))...)
	{
		admin.POST("/users/import/csv", h.importHandler(tabular.FormatCSV))
		admin.POST("/users/import/excel", h.importHandler(tabular.FormatExcel))
		admin.GET("/users", h.ListUsers)
		admin.GET("/users/:id", h.GetUser)
		admin.PATCH("/users/:id/status", h.SetUserStatus)
		admin.GET("/audit", h.ListAudit)
	}
}

func (h *UserHandler) importHandler(format tabular.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := h.Actor(c)
		if !ok {
			return
		}
		file, done, ok := h.FileInput(c, "file", h.maxImportSize)
		if !ok {
			return
		}
		defer done()
		if !CheckImportFormat(c, file, format) {
			return
		}

		result, err := h.importService.ImportUsers(c.Request.Context(), h.GetDB(c), actor, file)
		if err != nil {
			h.HandleServiceError(c, err)
			return
		}

		Respond(c, http.StatusOK, "User import completed", result)
	}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	var q dto.UserListQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	page, err := h.userService.ListUsers(c.Request.Context(), h.GetDB(c), q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, page)
}

func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := ParseParamUUID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, user)
}

func (h *UserHandler) SetUserStatus(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, err := ParseParamUUID(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	var req dto.SetActiveRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	user, err := h.userService.SetUserActive(c.Request.Context(), h.GetDB(c), actor, id, *req.IsActive)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "User status updated", user)
}

func (h *UserHandler) ListAudit(c *gin.Context) {
	var q dto.AuditListQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	page, err := h.auditService.List(c.Request.Context(), h.GetDB(c), q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, page)
}
