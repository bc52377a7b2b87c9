package videos

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/videoflix/backend/internal/models"
)

type fakeStore struct {
	videos      map[int64]*models.Video
	nextID      int64
	createErr   error
	deleted     []int64
	pathUpdates map[int64]string
}

func newFakeStore(vs ...*models.Video) *fakeStore {
	s := &fakeStore{videos: map[int64]*models.Video{}, nextID: 1, pathUpdates: map[int64]string{}}
	for _, v := range vs {
		s.videos[v.ID] = v
		if v.ID >= s.nextID {
			s.nextID = v.ID + 1
		}
	}
	return s
}

func (s *fakeStore) Create(_ context.Context, v *models.Video) error {
	if s.createErr != nil {
		return s.createErr
	}
	v.ID = s.nextID
	s.nextID++
	v.CreatedAt = time.Now()
	v.UpdatedAt = v.CreatedAt
	s.videos[v.ID] = v
	return nil
}

func (s *fakeStore) UpdateOriginalPath(_ context.Context, id int64, path string) error {
	s.pathUpdates[id] = path
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*models.Video, error) {
	return s.videos[id], nil
}

func (s *fakeStore) ListProcessed(_ context.Context) ([]models.Video, error) {
	var list []models.Video
	for _, v := range s.videos {
		if v.IsProcessed {
			list = append(list, *v)
		}
	}
	return list, nil
}

func (s *fakeStore) Delete(_ context.Context, id int64) (*models.Video, error) {
	v, ok := s.videos[id]
	if !ok {
		return nil, nil
	}
	delete(s.videos, id)
	s.deleted = append(s.deleted, id)
	return v, nil
}

type fakeTrigger struct {
	processed []int64
	cleanups  map[int64]string
}

func newFakeTrigger() *fakeTrigger {
	return &fakeTrigger{cleanups: map[int64]string{}}
}

func (t *fakeTrigger) EnqueueProcessing(_ context.Context, videoID int64) error {
	t.processed = append(t.processed, videoID)
	return nil
}

func (t *fakeTrigger) EnqueueCleanup(_ context.Context, videoID int64, root string) error {
	t.cleanups[videoID] = root
	return nil
}

func newTestRouter(store *fakeStore, trigger *fakeTrigger, mediaRoot string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, trigger, mediaRoot, nil)
	r := gin.New()
	api := r.Group("/api/video")
	{
		api.POST("/", h.Upload)
		api.GET("/", h.List)
		api.GET("/:id", h.Get)
		api.DELETE("/:id", h.Delete)
		api.GET("/:id/master.m3u8", h.ServeMaster)
		api.GET("/:id/:resolution/index.m3u8", h.ServePlaylist)
		api.GET("/:id/:resolution/:segment", h.ServeSegment)
	}
	return r
}

func multipartUpload(t *testing.T, fields map[string]string, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		fw, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte("fake video bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestUploadCreatesVideoAndTriggersPipeline(t *testing.T) {
	root := t.TempDir()
	store := newFakeStore()
	trigger := newFakeTrigger()
	r := newTestRouter(store, trigger, root)

	body, contentType := multipartUpload(t, map[string]string{
		"title":       "Breakout",
		"description": "a film",
		"category":    "Drama",
	}, "breakout.mp4")
	req := httptest.NewRequest(http.MethodPost, "/api/video/", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Equal(t, []int64{1}, trigger.processed)
	assert.Equal(t, "videos/1/original.mp4", store.pathUpdates[1])

	data, err := os.ReadFile(filepath.Join(root, "videos", "1", "original.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "fake video bytes", string(data))
}

func TestUploadValidation(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		filename string
	}{
		{"missing title", map[string]string{}, "a.mp4"},
		{"missing file", map[string]string{"title": "x"}, ""},
		{"bad extension", map[string]string{"title": "x"}, "a.exe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			trigger := newFakeTrigger()
			r := newTestRouter(store, trigger, t.TempDir())

			body, contentType := multipartUpload(t, tt.fields, tt.filename)
			req := httptest.NewRequest(http.MethodPost, "/api/video/", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Empty(t, trigger.processed)
		})
	}
}

func TestDeleteEnqueuesCleanupWithCapturedRoot(t *testing.T) {
	root := t.TempDir()
	store := newFakeStore(&models.Video{ID: 5, Title: "x"})
	trigger := newFakeTrigger()
	r := newTestRouter(store, trigger, root)

	req := httptest.NewRequest(http.MethodDelete, "/api/video/5", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int64{5}, store.deleted)
	assert.Equal(t, filepath.Join(root, "videos", "5"), trigger.cleanups[5])
}

func TestDeleteUnknownVideo(t *testing.T) {
	trigger := newFakeTrigger()
	r := newTestRouter(newFakeStore(), trigger, t.TempDir())

	req := httptest.NewRequest(http.MethodDelete, "/api/video/99", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, trigger.cleanups)
}

// processedVideo returns a completed video with real playlist artifacts on
// disk for 720p only.
func processedVideo(t *testing.T, root string) *models.Video {
	t.Helper()
	dir := filepath.Join(root, "videos", "5", "hls", "720p")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.m3u8"), []byte("#EXTM3U\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "segment_000.ts"), []byte("ts"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "videos", "5", "hls", "master.m3u8"), []byte("#EXTM3U\n"), 0o644))
	return &models.Video{
		ID:          5,
		Title:       "x",
		Status:      models.StatusCompleted,
		IsProcessed: true,
		Renditions:  map[string]string{"720p": "videos/5/hls/720p/index.m3u8"},
	}
}

func TestServePlaylist(t *testing.T) {
	root := t.TempDir()
	r := newTestRouter(newFakeStore(processedVideo(t, root)), newFakeTrigger(), root)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/video/5/720p/index.m3u8", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", w.Header().Get("Content-Type"))
	assert.Equal(t, "#EXTM3U\n", w.Body.String())
}

func TestServeSegment(t *testing.T) {
	root := t.TempDir()
	r := newTestRouter(newFakeStore(processedVideo(t, root)), newFakeTrigger(), root)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/video/5/720p/segment_000.ts", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video/mp2t", w.Header().Get("Content-Type"))
}

func TestServeMaster(t *testing.T) {
	root := t.TempDir()
	r := newTestRouter(newFakeStore(processedVideo(t, root)), newFakeTrigger(), root)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/video/5/master.m3u8", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/vnd.apple.mpegurl", w.Header().Get("Content-Type"))
}

func TestStreamingNotFoundCases(t *testing.T) {
	root := t.TempDir()
	processed := processedVideo(t, root)
	unprocessed := &models.Video{ID: 7, Title: "y", Status: models.StatusProcessing}
	r := newTestRouter(newFakeStore(processed, unprocessed), newFakeTrigger(), root)

	tests := []struct {
		name string
		url  string
	}{
		{"video does not exist", "/api/video/99/720p/index.m3u8"},
		{"video not yet processed", "/api/video/7/720p/index.m3u8"},
		{"resolution not in ladder", "/api/video/5/333p/index.m3u8"},
		{"resolution not encoded", "/api/video/5/1080p/index.m3u8"},
		{"segment file absent", "/api/video/5/720p/segment_999.ts"},
		{"segment name traversal", "/api/video/5/720p/..%2F..%2Fmaster.m3u8"},
		{"master for unknown video", "/api/video/99/master.m3u8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, http.StatusNotFound, w.Code, fmt.Sprintf("url %s", tt.url))
		})
	}
}
