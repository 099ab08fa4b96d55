package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pds_backend/internal/middleware"
	"pds_backend/internal/models"
	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
)

// DisplayHandler обслуживает настройки экрана колл-центра и публичные эндпоинты для него.
type DisplayHandler struct {
	*BaseHandler
	settingsService services.DisplaySettingsService
	callService     services.CallUploadService
}

func NewDisplayHandler(base *BaseHandler, settingsService services.DisplaySettingsService, callService services.CallUploadService) *DisplayHandler {
	return &DisplayHandler{
		BaseHandler:     base,
		settingsService: settingsService,
		callService:     callService,
	}
}

func (h *DisplayHandler) RegisterRoutes(rg *gin.RouterGroup, g Guards) {
	admin := rg.Group("/admin/display", append(g.Authenticated(), middleware.RequireRoles(models.RoleAdmin))...)
	{
		admin.POST("/initialize", h.InitializeSettings)
		admin.GET("/settings", h.ListSettings)
		admin.PUT("/settings", h.UpdateSetting)
	}

	public := rg.Group("/display")
	{
		public.GET("/settings", h.ListSettings)
		public.GET("/performers", h.GetPerformers)
		public.GET("/metrics", h.GetMetrics)
	}
}

func (h *DisplayHandler) InitializeSettings(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}

	created, err := h.settingsService.InitializeDefaults(c.Request.Context(), h.GetDB(c), actor)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "Display settings initialized successfully", gin.H{"created": created})
}

func (h *DisplayHandler) ListSettings(c *gin.Context) {
	settings, err := h.settingsService.ListSettings(c.Request.Context(), h.GetDB(c))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, settings)
}

func (h *DisplayHandler) UpdateSetting(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	setting, err := h.settingsService.UpdateSetting(c.Request.Context(), h.GetDB(c), actor, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "Setting updated successfully", setting)
}

// GetPerformers берет размер списков из настроек экрана, если limit не передан.
func (h *DisplayHandler) GetPerformers(c *gin.Context) {
	var q dto.LeaderboardQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}
	ctx, db := c.Request.Context(), h.GetDB(c)
	if q.Limit == 0 {
		q.Limit = h.settingsService.IntSetting(ctx, db, services.SettingTopPerformersCount, 5)
	}

	performers, err := h.callService.GetPerformers(ctx, db, q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	bottom := h.settingsService.IntSetting(ctx, db, services.SettingBottomPerformersCount, q.Limit)
	if bottom >= 0 && bottom < len(performers.BottomPerformers) {
		performers.BottomPerformers = performers.BottomPerformers[:bottom]
	}

	OK(c, performers)
}

func (h *DisplayHandler) GetMetrics(c *gin.Context) {
	var q dto.LeaderboardQuery
	if !h.BindAndValidate_Query(c, &q) {
		return
	}

	board, err := h.callService.GetFilteredCalls(c.Request.Context(), h.GetDB(c), q)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, board)
}
