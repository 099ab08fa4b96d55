package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pds_backend/internal/handlers"
	"pds_backend/internal/logger"
)

const APIPrefix = "/api/v1"

// RegisterRoutes регистрирует все HTTP маршруты под /api/v1.
func RegisterRoutes(ginRouter *gin.Engine, appHandlers *handlers.AppHandlers, guards handlers.Guards) {
	api := ginRouter.Group(APIPrefix)
	for _, h := range appHandlers.All() {
		h.RegisterRoutes(api, guards)
	}

	ginRouter.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})
	logger.Info("HTTP routes registered", "prefix", APIPrefix, "count", len(ginRouter.Routes()))
}
