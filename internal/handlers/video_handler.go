package handlers

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"pds_backend/internal/logger"
	"pds_backend/internal/middleware"
	"pds_backend/internal/models"
	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
)

type VideoHandler struct {
	*BaseHandler
	videoService services.VideoService
	maxSize      int64
}

func NewVideoHandler(base *BaseHandler, videoService services.VideoService, maxSize int64) *VideoHandler {
	return &VideoHandler{
		BaseHandler:  base,
		videoService: videoService,
		maxSize:      maxSize,
	}
}

func (h *VideoHandler) RegisterRoutes(rg *gin.RouterGroup, g Guards) {
	admin := rg.Group("/admin/videos", append(g.Authenticated(), middleware.RequireRoles(models.RoleAdmin))...)
	{
		admin.POST("/upload", h.UploadVideo)
		admin.GET("", h.ListVideos)
		admin.GET("/:id", h.GetVideo)
		admin.PUT("/:id", h.UpdateVideo)
		admin.DELETE("/:id", h.DeleteVideo)
	}

	rg.GET("/display/videos", h.ListActiveVideos)
	rg.GET("/files/*path", h.ServeFile)
}

func (h *VideoHandler) UploadVideo(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	var meta dto.VideoUploadMeta
	if !h.BindAndValidate_Form(c, &meta) {
		return
	}
	file, done, ok := h.FileInput(c, "file", h.maxSize)
	if !ok {
		return
	}
	defer done()

	video, err := h.videoService.UploadVideo(c.Request.Context(), h.GetDB(c), actor, file, meta)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusCreated, "Video uploaded successfully", video)
}

func (h *VideoHandler) ListVideos(c *gin.Context) {
	videos, err := h.videoService.ListVideos(c.Request.Context(), h.GetDB(c), ParseQueryBool(c, "active", false))
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, videos)
}

func (h *VideoHandler) ListActiveVideos(c *gin.Context) {
	videos, err := h.videoService.ListVideos(c.Request.Context(), h.GetDB(c), true)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, videos)
}

func (h *VideoHandler) GetVideo(c *gin.Context) {
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	video, err := h.videoService.GetVideo(c.Request.Context(), h.GetDB(c), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	OK(c, video)
}

func (h *VideoHandler) UpdateVideo(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	var req dto.UpdateVideoRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	video, err := h.videoService.UpdateVideo(c.Request.Context(), h.GetDB(c), actor, id, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "Video updated successfully", video)
}

func (h *VideoHandler) DeleteVideo(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	id, err := ParseParamUint(c, "id")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if err := h.videoService.DeleteVideo(c.Request.Context(), h.GetDB(c), actor, id); err != nil {
		h.HandleServiceError(c, err)
		return
	}

	Respond(c, http.StatusOK, "Video deleted successfully", nil)
}

// ServeFile отдает сохраненный файл из хранилища потоком.
func (h *VideoHandler) ServeFile(c *gin.Context) {
	key := c.Param("path")

	rc, size, err := h.videoService.ServeFile(c.Request.Context(), key)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=3600")
	if size >= 0 {
		c.Header("Content-Length", strconv.FormatInt(size, 10))
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		logger.CtxWithError(c.Request.Context(), "failed to stream file", err, "key", key)
	}
}
