package videos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/videoflix/backend/internal/models"
)

const videoColumns = `id, title, description, category, original_path,
	COALESCE(thumbnail_path,''), rendition_paths, processing_status,
	is_processed, COALESCE(archive_url,''), created_at, updated_at`

// Repository handles video persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a videos repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (*models.Video, error) {
	var v models.Video
	var renditions []byte
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.Category, &v.OriginalPath,
		&v.ThumbnailPath, &renditions, &v.Status, &v.IsProcessed, &v.ArchiveURL,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(renditions) > 0 {
		if err := json.Unmarshal(renditions, &v.Renditions); err != nil {
			return nil, fmt.Errorf("decode rendition paths: %w", err)
		}
	}
	return &v, nil
}

// Create inserts a new video row in pending state.
func (r *Repository) Create(ctx context.Context, v *models.Video) error {
	const q = `INSERT INTO videos (title, description, category, original_path, processing_status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, v.Title, v.Description, v.Category, v.OriginalPath, models.StatusPending).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
}

// UpdateOriginalPath records where the uploaded source was stored. The
// path depends on the generated id, so it is written after Create.
func (r *Repository) UpdateOriginalPath(ctx context.Context, id int64, path string) error {
	const q = `UPDATE videos SET original_path = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, path, id)
	return err
}

// GetByID returns a video by ID. Returns nil without error when no such
// row exists.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Video, error) {
	q := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	v, err := scanVideo(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// ListProcessed returns all streamable videos, oldest first.
func (r *Repository) ListProcessed(ctx context.Context) ([]models.Video, error) {
	q := `SELECT ` + videoColumns + ` FROM videos WHERE is_processed = TRUE ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// Delete removes the row and returns the deleted video so the caller can
// derive the artifact root before the record is gone. Returns nil when the
// row did not exist.
func (r *Repository) Delete(ctx context.Context, id int64) (*models.Video, error) {
	q := `DELETE FROM videos WHERE id = $1 RETURNING ` + videoColumns
	v, err := scanVideo(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return v, nil
}

// Update applies mutate to the video under an exclusive row lock
// (SELECT ... FOR UPDATE) and writes the result back in the same
// transaction. The lock is held only for the read-modify-write section;
// slow work such as transcoding must happen before calling Update. An
// error from mutate rolls the transaction back.
func (r *Repository) Update(ctx context.Context, id int64, mutate func(*models.Video) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	q := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1 FOR UPDATE`
	v, err := scanVideo(tx.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("video %d not found", id)
		}
		return fmt.Errorf("lock video %d: %w", id, err)
	}

	if err := mutate(v); err != nil {
		return err
	}

	renditions, err := json.Marshal(v.Renditions)
	if err != nil {
		return fmt.Errorf("encode rendition paths: %w", err)
	}
	if v.Renditions == nil {
		renditions = []byte("{}")
	}
	const update = `UPDATE videos SET thumbnail_path = NULLIF($1,''), rendition_paths = $2,
		processing_status = $3, is_processed = $4, archive_url = NULLIF($5,''), updated_at = NOW()
		WHERE id = $6`
	if _, err := tx.Exec(ctx, update, v.ThumbnailPath, renditions, v.Status, v.IsProcessed, v.ArchiveURL, id); err != nil {
		return fmt.Errorf("update video %d: %w", id, err)
	}
	return tx.Commit(ctx)
}

// MarkFailed durably records a failure in its own short transaction, so
// the failure stays visible even when the job body's transaction rolled
// back. Completed videos are left untouched.
func (r *Repository) MarkFailed(ctx context.Context, id int64) error {
	const q = `UPDATE videos SET processing_status = $1, updated_at = NOW()
		WHERE id = $2 AND processing_status <> $3`
	_, err := r.pool.Exec(ctx, q, models.StatusFailed, id, models.StatusCompleted)
	return err
}
