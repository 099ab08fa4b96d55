package services_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pds_backend/internal/models"
	"pds_backend/internal/repositories"
	"pds_backend/internal/services"
	"pds_backend/internal/services/dto"
	"pds_backend/internal/testutil"
	"pds_backend/pkg/apperrors"
)

type videoFixture struct {
	db    *gorm.DB
	svc   *services.VideoServiceImpl
	dir   string
	actor services.Actor
}

func newVideoFixture(t *testing.T) *videoFixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	store, dir := testutil.NewTestStorage(t)
	svc := services.NewVideoService(
		repositories.NewVideoRepository(),
		services.NewAuditService(repositories.NewAuditRepository()),
		store,
		services.VideoConfig{MaxSize: 1024},
	)
	admin := testutil.CreateUser(t, db, testutil.UserOpts{Role: models.RoleAdmin})
	return &videoFixture{
		db:    db,
		svc:   svc,
		dir:   dir,
		actor: services.Actor{UserID: admin.ID, Email: admin.Email, Role: models.RoleAdmin},
	}
}

func videoFile(name, contentType, body string) *services.FileInput {
	return &services.FileInput{
		Name:        name,
		Size:        int64(len(body)),
		ContentType: contentType,
		Content:     strings.NewReader(body),
	}
}

func TestUploadVideo(t *testing.T) {
	f := newVideoFixture(t)
	ctx := context.Background()

	video, err := f.svc.UploadVideo(ctx, f.db, f.actor, videoFile("Intro Clip.mp4", "video/mp4", "fake-mp4"),
		dto.VideoUploadMeta{Title: " Intro ", Description: "welcome"})
	require.NoError(t, err)
	assert.Equal(t, "Intro", video.Title)
	assert.Equal(t, "video/mp4", video.MimeType)
	assert.True(t, video.IsActive)
	assert.True(t, strings.HasPrefix(video.FilePath, "videos/"))
	assert.Equal(t, "/api/v1/files/"+video.FilePath, video.URL)
	require.NotNil(t, video.Uploader)
	assert.Equal(t, f.actor.Email, video.Uploader.Email)
	assert.Equal(t, 1, testutil.CountFiles(t, f.dir))

	var entry models.AuditEntry
	require.NoError(t, f.db.Where("action = ?", models.AuditUploadVideo).First(&entry).Error)
	assert.Equal(t, "Uploaded video: Intro", entry.Description)

	rc, size, err := f.svc.ServeFile(ctx, "/"+video.FilePath)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "fake-mp4", string(body))
	assert.EqualValues(t, 8, size)
}

func TestUploadVideo_Rejections(t *testing.T) {
	f := newVideoFixture(t)
	ctx := context.Background()

	_, err := f.svc.UploadVideo(ctx, f.db, f.actor, videoFile("clip.avi", "video/x-msvideo", "x"), dto.VideoUploadMeta{Title: "t"})
	assertAppError(t, err, apperrors.CodeValidationFailed)

	_, err = f.svc.UploadVideo(ctx, f.db, f.actor, videoFile("big.mp4", "video/mp4", strings.Repeat("a", 2048)), dto.VideoUploadMeta{Title: "t"})
	assertAppError(t, err, apperrors.CodeLimitExceeded)

	_, err = f.svc.UploadVideo(ctx, f.db, f.actor, videoFile("clip.mp4", "video/mp4", "x"), dto.VideoUploadMeta{})
	assertAppError(t, err, apperrors.CodeMissingFields)

	_, err = f.svc.UploadVideo(ctx, f.db, f.actor, nil, dto.VideoUploadMeta{Title: "t"})
	assertAppError(t, err, apperrors.CodeValidationFailed)

	// extension decides when the client sends a generic type
	video, err := f.svc.UploadVideo(ctx, f.db, f.actor, videoFile("clip.webm", "application/octet-stream", "x"), dto.VideoUploadMeta{Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "video/webm", video.MimeType)

	assert.Equal(t, 1, testutil.CountFiles(t, f.dir))
}

func TestUploadVideo_RemovesFileWhenInsertFails(t *testing.T) {
	f := newVideoFixture(t)
	ctx := context.Background()

	// uploaded_by must reference an existing user
	ghost := services.Actor{UserID: "5b0f5c1e-0000-4000-8000-000000000000"}
	_, err := f.svc.UploadVideo(ctx, f.db, ghost, videoFile("clip.mp4", "video/mp4", "x"), dto.VideoUploadMeta{Title: "t"})
	assertAppError(t, err, apperrors.CodeInternalError)
	assert.Zero(t, testutil.CountFiles(t, f.dir))
}

func TestVideoLifecycle(t *testing.T) {
	f := newVideoFixture(t)
	ctx := context.Background()

	first, err := f.svc.UploadVideo(ctx, f.db, f.actor, videoFile("a.mp4", "video/mp4", "a"), dto.VideoUploadMeta{Title: "A"})
	require.NoError(t, err)
	second, err := f.svc.UploadVideo(ctx, f.db, f.actor, videoFile("b.ogg", "video/ogg", "b"), dto.VideoUploadMeta{Title: "B"})
	require.NoError(t, err)

	inactive := false
	title := "A2"
	updated, err := f.svc.UpdateVideo(ctx, f.db, f.actor, first.ID, &dto.UpdateVideoRequest{Title: &title, IsActive: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "A2", updated.Title)
	assert.False(t, updated.IsActive)

	_, err = f.svc.UpdateVideo(ctx, f.db, f.actor, first.ID, &dto.UpdateVideoRequest{})
	assertAppError(t, err, apperrors.CodeValidationFailed)

	all, err := f.svc.ListVideos(ctx, f.db, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := f.svc.ListVideos(ctx, f.db, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)

	require.NoError(t, f.svc.DeleteVideo(ctx, f.db, f.actor, second.ID))
	assert.Equal(t, 1, testutil.CountFiles(t, f.dir))
	_, err = f.svc.GetVideo(ctx, f.db, second.ID)
	assertAppError(t, err, apperrors.CodeNotFound)

	err = f.svc.DeleteVideo(ctx, f.db, f.actor, second.ID)
	assertAppError(t, err, apperrors.CodeNotFound)

	_, _, err = f.svc.ServeFile(ctx, second.FilePath)
	assertAppError(t, err, apperrors.CodeNotFound)
	_, _, err = f.svc.ServeFile(ctx, "../etc/passwd")
	assertAppError(t, err, apperrors.CodeNotFound)

	var count int64
	require.NoError(t, f.db.Model(&models.AuditEntry{}).Where("action IN ?", []models.AuditAction{
		models.AuditUploadVideo, models.AuditUpdateVideo, models.AuditDeleteVideo,
	}).Count(&count).Error)
	assert.EqualValues(t, 4, count)
}
