package videos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/videoflix/backend/internal/hls"
	"github.com/videoflix/backend/internal/models"
	"github.com/videoflix/backend/pkg/response"
)

// Accepted upload container formats. ffmpeg handles all of these.
var allowedExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
	".avi":  true,
}

// PipelineTrigger starts and tears down background processing for a video.
// *pipeline.Orchestrator implements it.
type PipelineTrigger interface {
	EnqueueProcessing(ctx context.Context, videoID int64) error
	EnqueueCleanup(ctx context.Context, videoID int64, root string) error
}

// Store is the repository surface the handler needs. *Repository
// implements it.
type Store interface {
	Create(ctx context.Context, v *models.Video) error
	UpdateOriginalPath(ctx context.Context, id int64, path string) error
	GetByID(ctx context.Context, id int64) (*models.Video, error)
	ListProcessed(ctx context.Context) ([]models.Video, error)
	Delete(ctx context.Context, id int64) (*models.Video, error)
}

// Handler handles video HTTP endpoints.
type Handler struct {
	repo      Store
	trigger   PipelineTrigger
	mediaRoot string
	logger    *zap.Logger
}

// NewHandler creates a videos handler.
func NewHandler(repo Store, trigger PipelineTrigger, mediaRoot string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, trigger: trigger, mediaRoot: mediaRoot, logger: logger}
}

// Upload handles POST /api/video/. Multipart form: title (required),
// description, category, file (required). The row is committed and the
// source file written before the pipeline is triggered, so no worker can
// observe a half-created video.
func (h *Handler) Upload(c *gin.Context) {
	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		response.BadRequest(c, "title is required")
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "video file is required")
		return
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		response.BadRequest(c, fmt.Sprintf("unsupported file type: %s", ext))
		return
	}

	v := &models.Video{
		Title:       title,
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		Status:      models.StatusPending,
	}
	if err := h.repo.Create(c.Request.Context(), v); err != nil {
		h.logger.Error("create video failed", zap.Error(err))
		response.Internal(c, "failed to create video")
		return
	}

	relPath := fmt.Sprintf("videos/%d/original%s", v.ID, ext)
	dst := filepath.Join(h.mediaRoot, filepath.FromSlash(relPath))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		h.logger.Error("save upload failed", zap.Error(err), zap.Int64("video_id", v.ID))
		if _, dErr := h.repo.Delete(c.Request.Context(), v.ID); dErr != nil {
			h.logger.Error("rollback video row failed", zap.Error(dErr), zap.Int64("video_id", v.ID))
		}
		response.Internal(c, "failed to store video file")
		return
	}
	if err := h.repo.UpdateOriginalPath(c.Request.Context(), v.ID, relPath); err != nil {
		h.logger.Error("record original path failed", zap.Error(err), zap.Int64("video_id", v.ID))
		response.Internal(c, "failed to store video file")
		return
	}
	v.OriginalPath = relPath

	// Explicit trigger after the row and file are durably in place.
	if err := h.trigger.EnqueueProcessing(c.Request.Context(), v.ID); err != nil {
		h.logger.Error("enqueue processing failed", zap.Error(err), zap.Int64("video_id", v.ID))
		response.Internal(c, "failed to start processing")
		return
	}

	h.logger.Info("video uploaded", zap.Int64("video_id", v.ID), zap.String("title", title))
	response.Created(c, v)
}

// List handles GET /api/video/. Only processed (streamable) videos appear.
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.ListProcessed(c.Request.Context())
	if err != nil {
		h.logger.Error("list videos failed", zap.Error(err))
		response.Internal(c, "failed to list videos")
		return
	}
	if list == nil {
		list = []models.Video{}
	}
	response.OK(c, list)
}

// Get handles GET /api/video/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	v, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get video failed", zap.Error(err), zap.Int64("video_id", id))
		response.Internal(c, "failed to load video")
		return
	}
	if v == nil {
		response.NotFound(c, "video not found")
		return
	}
	response.OK(c, v)
}

// Delete handles DELETE /api/video/:id. The artifact root is captured from
// the deleted row, then artifact removal runs in the background so the
// request never waits on filesystem teardown.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	v, err := h.repo.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("delete video failed", zap.Error(err), zap.Int64("video_id", id))
		response.Internal(c, "failed to delete video")
		return
	}
	if v == nil {
		response.NotFound(c, "video not found")
		return
	}
	if err := h.trigger.EnqueueCleanup(c.Request.Context(), id, v.ArtifactRoot(h.mediaRoot)); err != nil {
		// Row is gone; orphaned files are an operator cleanup, not a 5xx.
		h.logger.Error("enqueue cleanup failed", zap.Error(err), zap.Int64("video_id", id))
	}
	response.NoContent(c)
}

// ServeMaster handles GET /api/video/:id/master.m3u8.
func (h *Handler) ServeMaster(c *gin.Context) {
	v, ok := h.loadProcessed(c)
	if !ok {
		return
	}
	h.serveFile(c, filepath.Join(v.HLSDir(h.mediaRoot), "master.m3u8"), "application/vnd.apple.mpegurl")
}

// ServePlaylist handles GET /api/video/:id/:resolution/index.m3u8.
func (h *Handler) ServePlaylist(c *gin.Context) {
	v, ok := h.loadProcessed(c)
	if !ok {
		return
	}
	label, ok := h.renditionLabel(c, v)
	if !ok {
		return
	}
	h.serveFile(c, filepath.Join(v.HLSDir(h.mediaRoot), label, "index.m3u8"), "application/vnd.apple.mpegurl")
}

// ServeSegment handles GET /api/video/:id/:resolution/:segment.
func (h *Handler) ServeSegment(c *gin.Context) {
	v, ok := h.loadProcessed(c)
	if !ok {
		return
	}
	label, ok := h.renditionLabel(c, v)
	if !ok {
		return
	}
	segment := c.Param("segment")
	if filepath.Base(segment) != segment || !strings.HasSuffix(segment, ".ts") {
		response.NotFound(c, "segment not found")
		return
	}
	h.serveFile(c, filepath.Join(v.HLSDir(h.mediaRoot), label, segment), "video/mp2t")
}

func (h *Handler) parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		response.BadRequest(c, "invalid video id")
		return 0, false
	}
	return id, true
}

// loadProcessed fetches the video for streaming routes. Unknown and
// not-yet-processed videos are both 404s: an unfinished video has no
// streamable artifacts.
func (h *Handler) loadProcessed(c *gin.Context) (*models.Video, bool) {
	id, ok := h.parseID(c)
	if !ok {
		return nil, false
	}
	v, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("get video failed", zap.Error(err), zap.Int64("video_id", id))
		response.Internal(c, "failed to load video")
		return nil, false
	}
	if v == nil || !v.IsProcessed {
		response.NotFound(c, "video not found")
		return nil, false
	}
	return v, true
}

// renditionLabel validates :resolution against the ladder and the
// renditions this video actually has.
func (h *Handler) renditionLabel(c *gin.Context, v *models.Video) (string, bool) {
	label := c.Param("resolution")
	if _, ok := hls.LadderRendition(label); !ok {
		response.NotFound(c, "resolution not available")
		return "", false
	}
	if _, ok := v.Renditions[label]; !ok {
		response.NotFound(c, "resolution not available")
		return "", false
	}
	return label, true
}

func (h *Handler) serveFile(c *gin.Context, path, contentType string) {
	if _, err := os.Stat(path); err != nil {
		response.NotFound(c, "file not found")
		return
	}
	c.Header("Content-Type", contentType)
	c.File(path)
}
