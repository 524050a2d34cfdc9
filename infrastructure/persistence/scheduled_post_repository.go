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

const scheduledPostColumns = `id, user_id, post_id, prompt, platforms, brand_voice_id, frequency, scheduled_time, next_run, is_active, status, run_count, last_run, error_message, created_at, updated_at`

type ScheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) *ScheduledPostRepository {
	return &ScheduledPostRepository{db: db}
}

func (r *ScheduledPostRepository) Create(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error {
	now := time.Now().UTC()
	if sp.CreatedAt.IsZero() {
		sp.CreatedAt = now
	}
	sp.UpdatedAt = now
	q := fmt.Sprintf(`INSERT INTO %s (user_id, post_id, prompt, platforms, brand_voice_id, frequency, scheduled_time, next_run, is_active, status, run_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13) RETURNING id`, qualify(tenant, "scheduled_posts"))
	return r.db.QueryRowContext(ctx, q,
		sp.UserID, sp.PostID, sp.Prompt, pq.Array(sp.Platforms), sp.BrandVoiceID, string(sp.Frequency),
		sp.ScheduledTime, sp.NextRun, sp.IsActive, string(sp.Status), sp.RunCount, sp.CreatedAt, sp.UpdatedAt,
	).Scan(&sp.ID)
}

func (r *ScheduledPostRepository) GetByID(ctx context.Context, tenant model.Tenant, id int64) (*model.ScheduledPost, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, scheduledPostColumns, qualify(tenant, "scheduled_posts"))
	sp, err := scanScheduledPost(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sp, err
}

func (r *ScheduledPostRepository) ListByUser(ctx context.Context, tenant model.Tenant, userID string) ([]*model.ScheduledPost, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id=$1 ORDER BY scheduled_time DESC`, scheduledPostColumns, qualify(tenant, "scheduled_posts"))
	return r.query(ctx, q, userID)
}

// ListDue returns active entries in pending/active status with next_run at or before now.
func (r *ScheduledPostRepository) ListDue(ctx context.Context, tenant model.Tenant, now time.Time, limit int) ([]*model.ScheduledPost, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE is_active=TRUE AND status IN ($1,$2) AND next_run <= $3 ORDER BY next_run ASC LIMIT $4`, scheduledPostColumns, qualify(tenant, "scheduled_posts"))
	return r.query(ctx, q, string(model.ScheduleStatusPending), string(model.ScheduleStatusActive), now, limit)
}

func (r *ScheduledPostRepository) UpdateRunState(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error {
	sp.UpdatedAt = time.Now().UTC()
	q := fmt.Sprintf(`UPDATE %s SET status=$1, is_active=$2, run_count=$3, last_run=$4, next_run=$5, error_message=$6, updated_at=$7 WHERE id=$8`, qualify(tenant, "scheduled_posts"))
	res, err := r.db.ExecContext(ctx, q, string(sp.Status), sp.IsActive, sp.RunCount, sp.LastRun, sp.NextRun, sp.ErrorMessage, sp.UpdatedAt, sp.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ScheduledPostRepository) query(ctx context.Context, q string, args ...interface{}) ([]*model.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.ScheduledPost
	for rows.Next() {
		sp, err := scanScheduledPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, sp)
	}
	return list, rows.Err()
}

func scanScheduledPost(row rowScanner) (*model.ScheduledPost, error) {
	sp := &model.ScheduledPost{}
	var (
		postID, brandVoiceID sql.NullInt64
		prompt, errMsg       sql.NullString
		nextRun, lastRun     sql.NullTime
		frequency, status    string
		platforms            pq.StringArray
	)
	if err := row.Scan(&sp.ID, &sp.UserID, &postID, &prompt, &platforms, &brandVoiceID, &frequency, &sp.ScheduledTime,
		&nextRun, &sp.IsActive, &status, &sp.RunCount, &lastRun, &errMsg, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
		return nil, err
	}
	sp.PostID = nullInt64(postID)
	sp.BrandVoiceID = nullInt64(brandVoiceID)
	sp.Prompt = nullString(prompt)
	sp.ErrorMessage = nullString(errMsg)
	sp.NextRun = nullTime(nextRun)
	sp.LastRun = nullTime(lastRun)
	sp.Frequency = model.Frequency(frequency)
	sp.Status = model.ScheduleStatus(status)
	sp.Platforms = []string(platforms)
	return sp, nil
}
