package models

import (
	"fmt"
	"path/filepath"
	"time"
)

// Status represents the video processing lifecycle. Transitions only move
// forward: pending -> processing -> completed/failed. Nothing ever returns
// a video to pending; re-processing is an operator concern.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Video is a single uploaded video and its HLS processing state.
type Video struct {
	ID            int64             `json:"id"`
	Title         string            `json:"title"`
	Description   string            `json:"description"`
	Category      string            `json:"category,omitempty"`
	OriginalPath  string            `json:"original_path,omitempty"`
	ThumbnailPath string            `json:"thumbnail_path,omitempty"`
	// Renditions maps a ladder label (480p, 720p, 1080p) to the
	// media-root-relative playlist path once that rendition is encoded.
	Renditions    map[string]string `json:"rendition_paths"`
	Status        Status            `json:"processing_status"`
	IsProcessed   bool              `json:"is_processed"`
	ArchiveURL    string            `json:"archive_url,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ArtifactRoot returns the directory all artifacts for this video live
// under: {mediaRoot}/videos/{id}. Directory-level deletion of this path is
// the entire cleanup contract.
func (v *Video) ArtifactRoot(mediaRoot string) string {
	return filepath.Join(mediaRoot, "videos", fmt.Sprintf("%d", v.ID))
}

// HLSDir returns {mediaRoot}/videos/{id}/hls.
func (v *Video) HLSDir(mediaRoot string) string {
	return filepath.Join(v.ArtifactRoot(mediaRoot), "hls")
}

// ThumbnailFile returns {mediaRoot}/videos/{id}/thumbnail.jpg.
func (v *Video) ThumbnailFile(mediaRoot string) string {
	return filepath.Join(v.ArtifactRoot(mediaRoot), "thumbnail.jpg")
}

// BeginProcessing moves a pending video to processing. No-op for any video
// already past pending.
func (v *Video) BeginProcessing() {
	if v.Status == StatusPending {
		v.Status = StatusProcessing
	}
}

// RecordRendition stores the playlist path for one ladder label. Paths are
// deterministic per label, so a job re-run writes the same value back.
func (v *Video) RecordRendition(label, path string) {
	if v.Renditions == nil {
		v.Renditions = make(map[string]string)
	}
	v.Renditions[label] = path
}

// RecordThumbnail sets the thumbnail reference if unset. Returns false,
// changing nothing, when a thumbnail already exists.
func (v *Video) RecordThumbnail(path string) bool {
	if v.ThumbnailPath != "" {
		return false
	}
	v.ThumbnailPath = path
	return true
}

// MarkFailed moves the video to failed. A completed video stays completed;
// is_processed must remain true exactly when status is completed.
func (v *Video) MarkFailed() {
	if v.Status == StatusCompleted {
		return
	}
	v.Status = StatusFailed
}

// Finalize marks the video completed and streamable. Called by the master
// playlist composer unconditionally once it has written the manifest, even
// when some renditions are missing.
func (v *Video) Finalize() {
	v.Status = StatusCompleted
	v.IsProcessed = true
}
