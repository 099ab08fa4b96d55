package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthHandler - liveness с проверкой БД и экспорт метрик Prometheus.
type HealthHandler struct {
	*BaseHandler
	gatherer prometheus.Gatherer
}

func NewHealthHandler(base *BaseHandler, gatherer prometheus.Gatherer) *HealthHandler {
	return &HealthHandler{BaseHandler: base, gatherer: gatherer}
}

func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup, _ Guards) {
	rg.GET("/health", h.Health)
	if h.gatherer != nil {
		rg.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	if sqlDB, err := h.GetDB(c).DB(); err != nil || sqlDB.PingContext(ctx) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"success":  code == http.StatusOK,
		"status":   status,
		"database": status,
		"time":     time.Now().UTC(),
	})
}
