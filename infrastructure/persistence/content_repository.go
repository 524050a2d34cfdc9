package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"repurposer/domain/model"

	"github.com/lib/pq"
)

type ContentSourceRepository struct{ db *sql.DB }

func NewContentSourceRepository(db *sql.DB) *ContentSourceRepository {
	return &ContentSourceRepository{db: db}
}

func (r *ContentSourceRepository) Create(ctx context.Context, tenant model.Tenant, src *model.ContentSource) error {
	if src.CreatedAt.IsZero() {
		src.CreatedAt = time.Now().UTC()
	}
	q := fmt.Sprintf(`INSERT INTO %s (user_id, source_type, url, title, raw_text, is_processed, processing_error, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`, qualify(tenant, "content_sources"))
	return r.db.QueryRowContext(ctx, q, src.UserID, string(src.SourceType), src.URL, src.Title, src.RawText, src.IsProcessed, src.ProcessingError, src.CreatedAt).Scan(&src.ID)
}

func (r *ContentSourceRepository) MarkProcessed(ctx context.Context, tenant model.Tenant, id int64, processingErr *string) error {
	q := fmt.Sprintf(`UPDATE %s SET is_processed=$1, processing_error=$2 WHERE id=$3`, qualify(tenant, "content_sources"))
	_, err := r.db.ExecContext(ctx, q, processingErr == nil, processingErr, id)
	return err
}

type BrandVoiceRepository struct{ db *sql.DB }

func NewBrandVoiceRepository(db *sql.DB) *BrandVoiceRepository { return &BrandVoiceRepository{db: db} }

func (r *BrandVoiceRepository) GetByID(ctx context.Context, tenant model.Tenant, id int64) (*model.BrandVoice, error) {
	q := fmt.Sprintf(`SELECT id, user_id, name, description, sample_posts, generated_prompt, is_default, created_at FROM %s WHERE id=$1`, qualify(tenant, "brand_voices"))
	v := &model.BrandVoice{}
	var samples pq.StringArray
	var desc, prompt sql.NullString
	err := r.db.QueryRowContext(ctx, q, id).Scan(&v.ID, &v.UserID, &v.Name, &desc, &samples, &prompt, &v.IsDefault, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v.Description = desc.String
	v.GeneratedPrompt = prompt.String
	v.SamplePosts = []string(samples)
	return v, nil
}
