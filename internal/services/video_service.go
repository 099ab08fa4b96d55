package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"gorm.io/gorm"

	"pds_backend/internal/logger"
	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/storage"
	"pds_backend/pkg/apperrors"
)

const videoPrefix = "videos"

var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".ogg":  "video/ogg",
	".ogv":  "video/ogg",
	".mov":  "video/quicktime",
}

// VideoConfig bounds what UploadVideo accepts.
type VideoConfig struct {
	MaxSize      int64
	AllowedTypes []string
}

type VideoService interface {
	UploadVideo(ctx context.Context, db *gorm.DB, actor Actor, file *FileInput, meta dto.VideoUploadMeta) (*models.Video, error)
	ListVideos(ctx context.Context, db *gorm.DB, activeOnly bool) ([]models.Video, error)
	GetVideo(ctx context.Context, db *gorm.DB, id uint) (*models.Video, error)
	UpdateVideo(ctx context.Context, db *gorm.DB, actor Actor, id uint, req *dto.UpdateVideoRequest) (*models.Video, error)
	DeleteVideo(ctx context.Context, db *gorm.DB, actor Actor, id uint) error
	ServeFile(ctx context.Context, key string) (io.ReadCloser, int64, error)
}

type VideoServiceImpl struct {
	videoRepo repositories.VideoRepository
	audit     AuditService
	store     storage.Storage
	cfg       VideoConfig
	now       func() time.Time
}

func NewVideoService(videoRepo repositories.VideoRepository, audit AuditService, store storage.Storage, cfg VideoConfig) *VideoServiceImpl {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100 * 1024 * 1024
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = []string{"video/mp4", "video/webm", "video/ogg", "video/quicktime"}
	}
	return &VideoServiceImpl{
		videoRepo: videoRepo,
		audit:     audit,
		store:     store,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *VideoServiceImpl) UploadVideo(ctx context.Context, db *gorm.DB, actor Actor, file *FileInput, meta dto.VideoUploadMeta) (*models.Video, error) {
	if file == nil || file.Content == nil {
		return nil, apperrors.ErrNoFileUploaded
	}
	title := strings.TrimSpace(meta.Title)
	if title == "" {
		return nil, apperrors.ErrMissingFields([]string{"title"})
	}
	mimeType, ok := s.videoType(file)
	if !ok {
		return nil, apperrors.ErrInvalidFileType.WithDetails(map[string]string{
			"file": "Only MP4, WebM, OGG and QuickTime videos are allowed",
		})
	}
	if file.Size > s.cfg.MaxSize {
		return nil, apperrors.ErrFileTooLarge.WithDetails(map[string]interface{}{"max_size": s.cfg.MaxSize})
	}

	file.ContentType = mimeType
	key, err := stageFile(ctx, s.store, videoPrefix, "video", file, s.now())
	if err != nil {
		return nil, err
	}

	video := &models.Video{
		Title:       title,
		Description: strings.TrimSpace(meta.Description),
		FilePath:    key,
		FileSize:    file.Size,
		Duration:    meta.Duration,
		MimeType:    mimeType,
		IsActive:    true,
		UploadedBy:  actor.UserID,
	}
	if err := s.videoRepo.Create(db.WithContext(ctx), video); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logger.CtxWithError(ctx, "failed to remove orphaned video file", delErr, "path", key)
		}
		return nil, apperrors.InternalError(err)
	}

	s.audit.RecordBestEffort(ctx, db, actor, models.AuditUploadVideo,
		fmt.Sprintf("Uploaded video: %s", video.Title))
	logger.CtxInfo(ctx, "video uploaded", "video_id", video.ID, "size", video.FileSize)

	return s.GetVideo(ctx, db, video.ID)
}

// videoType resolves the MIME type from the declared content type, falling back to the extension.
func (s *VideoServiceImpl) videoType(file *FileInput) (string, bool) {
	declared := strings.ToLower(strings.TrimSpace(strings.SplitN(file.ContentType, ";", 2)[0]))
	if declared == "" || declared == "application/octet-stream" {
		declared = videoExtensions[strings.ToLower(path.Ext(file.Name))]
	}
	for _, allowed := range s.cfg.AllowedTypes {
		if declared != "" && declared == allowed {
			return declared, true
		}
	}
	return "", false
}

func (s *VideoServiceImpl) ListVideos(ctx context.Context, db *gorm.DB, activeOnly bool) ([]models.Video, error) {
	videos, err := s.videoRepo.List(db.WithContext(ctx), activeOnly)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	for i := range videos {
		s.attachURL(ctx, &videos[i])
	}
	return videos, nil
}

func (s *VideoServiceImpl) GetVideo(ctx context.Context, db *gorm.DB, id uint) (*models.Video, error) {
	video, err := s.videoRepo.FindByID(db.WithContext(ctx), id)
	if err != nil {
		return nil, videoError(err)
	}
	s.attachURL(ctx, video)
	return video, nil
}

func (s *VideoServiceImpl) UpdateVideo(ctx context.Context, db *gorm.DB, actor Actor, id uint, req *dto.UpdateVideoRequest) (*models.Video, error) {
	db = db.WithContext(ctx)

	video, err := s.videoRepo.FindByID(db, id)
	if err != nil {
		return nil, videoError(err)
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.ValidationError(map[string]string{"title": "Title cannot be empty"})
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		return nil, apperrors.NewBadRequestError("No fields to update")
	}

	if err := s.videoRepo.Update(db, id, updates); err != nil {
		return nil, videoError(err)
	}
	s.audit.RecordBestEffort(ctx, db, actor, models.AuditUpdateVideo,
		fmt.Sprintf("Updated video: %s", video.Title))

	return s.GetVideo(ctx, db, id)
}

// DeleteVideo removes the row first; a file left behind by a storage failure is only logged.
func (s *VideoServiceImpl) DeleteVideo(ctx context.Context, db *gorm.DB, actor Actor, id uint) error {
	db = db.WithContext(ctx)

	video, err := s.videoRepo.FindByID(db, id)
	if err != nil {
		return videoError(err)
	}
	if err := s.videoRepo.Delete(db, id); err != nil {
		return videoError(err)
	}
	if err := s.store.Delete(ctx, video.FilePath); err != nil {
		logger.CtxWithError(ctx, "failed to delete video file", err, "path", video.FilePath)
	}

	s.audit.RecordBestEffort(ctx, db, actor, models.AuditDeleteVideo,
		fmt.Sprintf("Deleted video: %s", video.Title))
	return nil
}

func (s *VideoServiceImpl) ServeFile(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return nil, 0, apperrors.NewNotFoundError("files", "File not found")
	}
	size, err := s.store.GetSize(ctx, key)
	if err != nil {
		return nil, 0, fileError(err)
	}
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, 0, fileError(err)
	}
	return rc, size, nil
}

func (s *VideoServiceImpl) attachURL(ctx context.Context, video *models.Video) {
	url, err := s.store.GetURL(ctx, video.FilePath)
	if err != nil {
		logger.CtxWithError(ctx, "failed to build video url", err, "video_id", video.ID)
		return
	}
	video.URL = url
}

func videoError(err error) error {
	if errors.Is(err, repositories.ErrVideoNotFound) {
		return apperrors.NewNotFoundError("videos", "Video not found")
	}
	return apperrors.InternalError(err)
}

func fileError(err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidPath) {
		return apperrors.NewNotFoundError("files", "File not found")
	}
	return apperrors.InternalError(err)
}
