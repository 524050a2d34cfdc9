package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a row does not exist in the tenant schema.
var ErrNotFound = repository.ErrNotFound

const postColumns = `id, source_id, user_id, platform, brand_voice_id, hook, body, hashtags, thread_posts, status, error_message, scheduled_for, published_at, platform_post_id, platform_post_url, media_key, media_url, media_content_type, is_recurring, recurrence_pattern, recurrence_days, recurrence_time, recurrence_timezone, last_recurrence_created, created_at, updated_at`

// PostRepository implements repository.IPost on PostgreSQL.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository { return &PostRepository{db: db} }

func (r *PostRepository) Create(ctx context.Context, tenant model.Tenant, p *model.RepurposedPost) error {
	p.Normalize()
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	mediaKey, mediaURL, mediaType := mediaColumns(p.Media)
	isRecurring, pattern, days, recTime, recTZ, lastCreated := recurrenceColumns(p.Recurrence)
	q := fmt.Sprintf(`INSERT INTO %s (source_id, user_id, platform, brand_voice_id, hook, body, hashtags, thread_posts, status, error_message, scheduled_for, media_key, media_url, media_content_type, is_recurring, recurrence_pattern, recurrence_days, recurrence_time, recurrence_timezone, last_recurrence_created, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22) RETURNING id`, qualify(tenant, "repurposed_posts"))
	return r.db.QueryRowContext(ctx, q,
		p.SourceID, p.UserID, string(p.Platform), p.BrandVoiceID, p.Hook, p.Body,
		pq.Array(p.Hashtags), pq.Array(p.ThreadPosts), string(p.Status), p.ErrorMessage, p.ScheduledFor,
		mediaKey, mediaURL, mediaType,
		isRecurring, pattern, pq.Array(days), recTime, recTZ, lastCreated,
		p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
}

func (r *PostRepository) GetByID(ctx context.Context, tenant model.Tenant, id int64) (*model.RepurposedPost, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, postColumns, qualify(tenant, "repurposed_posts"))
	p, err := scanPost(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *PostRepository) ListByUser(ctx context.Context, tenant model.Tenant, userID string, limit int) ([]*model.RepurposedPost, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, postColumns, qualify(tenant, "repurposed_posts"))
	return r.query(ctx, q, userID, limit)
}

// ListDueScheduled returns SCHEDULED posts whose time has come, oldest first.
func (r *PostRepository) ListDueScheduled(ctx context.Context, tenant model.Tenant, now time.Time, limit int) ([]*model.RepurposedPost, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE status=$1 AND scheduled_for <= $2 ORDER BY scheduled_for ASC LIMIT $3`, postColumns, qualify(tenant, "repurposed_posts"))
	return r.query(ctx, q, string(model.PostStatusScheduled), now, limit)
}

func (r *PostRepository) ListRecurringTemplates(ctx context.Context, tenant model.Tenant) ([]*model.RepurposedPost, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE is_recurring=TRUE AND status<>$1 ORDER BY id ASC`, postColumns, qualify(tenant, "repurposed_posts"))
	return r.query(ctx, q, string(model.PostStatusFailed))
}

func (r *PostRepository) UpdateContent(ctx context.Context, tenant model.Tenant, p *model.RepurposedPost) error {
	p.Normalize()
	p.UpdatedAt = time.Now().UTC()
	q := fmt.Sprintf(`UPDATE %s SET hook=$1, body=$2, hashtags=$3, thread_posts=$4, status=$5, error_message=$6, updated_at=$7 WHERE id=$8`, qualify(tenant, "repurposed_posts"))
	return r.exec(ctx, q, p.Hook, p.Body, pq.Array(p.Hashtags), pq.Array(p.ThreadPosts), string(p.Status), p.ErrorMessage, p.UpdatedAt, p.ID)
}

// ClaimForPublish is a compare-and-set on status; only one attempt can move a
// row out of ready or scheduled.
func (r *PostRepository) ClaimForPublish(ctx context.Context, tenant model.Tenant, postID int64) (bool, error) {
	q := fmt.Sprintf(`UPDATE %s SET status=$1, updated_at=$2 WHERE id=$3 AND status IN ($4,$5)`, qualify(tenant, "repurposed_posts"))
	res, err := r.db.ExecContext(ctx, q, string(model.PostStatusPublishing), time.Now().UTC(), postID,
		string(model.PostStatusReady), string(model.PostStatusScheduled))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ApplyPublishOutcome is the single write that ends a publish attempt.
func (r *PostRepository) ApplyPublishOutcome(ctx context.Context, tenant model.Tenant, p *model.RepurposedPost) error {
	p.UpdatedAt = time.Now().UTC()
	q := fmt.Sprintf(`UPDATE %s SET status=$1, error_message=$2, published_at=$3, platform_post_id=$4, platform_post_url=$5, updated_at=$6 WHERE id=$7 AND status<>$8`, qualify(tenant, "repurposed_posts"))
	return r.exec(ctx, q, string(p.Status), p.ErrorMessage, p.PublishedAt, p.PlatformPostID, p.PlatformPostURL, p.UpdatedAt, p.ID,
		string(model.PostStatusPublished))
}

func (r *PostRepository) UpdateSchedule(ctx context.Context, tenant model.Tenant, p *model.RepurposedPost) error {
	p.UpdatedAt = time.Now().UTC()
	q := fmt.Sprintf(`UPDATE %s SET status=$1, scheduled_for=$2, updated_at=$3 WHERE id=$4`, qualify(tenant, "repurposed_posts"))
	return r.exec(ctx, q, string(p.Status), p.ScheduledFor, p.UpdatedAt, p.ID)
}

func (r *PostRepository) UpdateRecurrence(ctx context.Context, tenant model.Tenant, p *model.RepurposedPost) error {
	p.UpdatedAt = time.Now().UTC()
	isRecurring, pattern, days, recTime, recTZ, lastCreated := recurrenceColumns(p.Recurrence)
	q := fmt.Sprintf(`UPDATE %s SET is_recurring=$1, recurrence_pattern=$2, recurrence_days=$3, recurrence_time=$4, recurrence_timezone=$5, last_recurrence_created=$6, updated_at=$7 WHERE id=$8`, qualify(tenant, "repurposed_posts"))
	return r.exec(ctx, q, isRecurring, pattern, pq.Array(days), recTime, recTZ, lastCreated, p.UpdatedAt, p.ID)
}

func (r *PostRepository) StampRecurrenceCreated(ctx context.Context, tenant model.Tenant, postID int64, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET last_recurrence_created=$1, updated_at=$1 WHERE id=$2`, qualify(tenant, "repurposed_posts"))
	return r.exec(ctx, q, at.UTC(), postID)
}

func (r *PostRepository) UpdateMedia(ctx context.Context, tenant model.Tenant, postID int64, media *model.MediaRef) error {
	key, url, ct := mediaColumns(media)
	q := fmt.Sprintf(`UPDATE %s SET media_key=$1, media_url=$2, media_content_type=$3, updated_at=$4 WHERE id=$5`, qualify(tenant, "repurposed_posts"))
	return r.exec(ctx, q, key, url, ct, time.Now().UTC(), postID)
}

func (r *PostRepository) exec(ctx context.Context, q string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostRepository) query(ctx context.Context, q string, args ...interface{}) ([]*model.RepurposedPost, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.RepurposedPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanPost(row rowScanner) (*model.RepurposedPost, error) {
	p := &model.RepurposedPost{}
	var (
		sourceID, brandVoiceID                 sql.NullInt64
		errMsg, postID, postURL                sql.NullString
		mediaKey, mediaURL, mediaType          sql.NullString
		pattern, recTime, recTZ                sql.NullString
		scheduledFor, publishedAt, lastCreated sql.NullTime
		platform, status                       string
		isRecurring                            bool
		hashtags, threads                      pq.StringArray
		days                                   pq.Int64Array
	)
	if err := row.Scan(&p.ID, &sourceID, &p.UserID, &platform, &brandVoiceID, &p.Hook, &p.Body, &hashtags, &threads,
		&status, &errMsg, &scheduledFor, &publishedAt, &postID, &postURL,
		&mediaKey, &mediaURL, &mediaType,
		&isRecurring, &pattern, &days, &recTime, &recTZ, &lastCreated,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.SourceID = nullInt64(sourceID)
	p.BrandVoiceID = nullInt64(brandVoiceID)
	p.Platform = model.Platform(platform)
	p.Status = model.PostStatus(status)
	p.Hashtags = []string(hashtags)
	p.ThreadPosts = []string(threads)
	p.ErrorMessage = nullString(errMsg)
	p.ScheduledFor = nullTime(scheduledFor)
	p.PublishedAt = nullTime(publishedAt)
	p.PlatformPostID = nullString(postID)
	p.PlatformPostURL = nullString(postURL)
	if mediaKey.Valid && mediaKey.String != "" {
		p.Media = &model.MediaRef{Key: mediaKey.String, PublicURL: mediaURL.String, ContentType: mediaType.String}
	}
	if isRecurring {
		p.Recurrence = &model.Recurrence{
			Pattern:     model.RecurrencePattern(pattern.String),
			Days:        []int64(days),
			Time:        recTime.String,
			Timezone:    recTZ.String,
			LastCreated: nullTime(lastCreated),
		}
	}
	return p, nil
}

func mediaColumns(m *model.MediaRef) (key, url, contentType *string) {
	if m == nil || m.Key == "" {
		return nil, nil, nil
	}
	k, u, c := m.Key, m.PublicURL, m.ContentType
	return &k, &u, &c
}

func recurrenceColumns(rec *model.Recurrence) (bool, *string, []int64, *string, *string, *time.Time) {
	if rec == nil {
		return false, nil, nil, nil, nil, nil
	}
	pattern, t, tz := string(rec.Pattern), rec.Time, rec.Timezone
	if tz == "" {
		tz = "UTC"
	}
	return true, &pattern, rec.Days, &t, &tz, rec.LastCreated
}
