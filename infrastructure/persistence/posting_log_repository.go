package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/logger"
)

// PostingLogRepository is the append-only audit of publish attempts. An
// optional mirror receives a copy of every row.
type PostingLogRepository struct {
	db     *sql.DB
	mirror repository.IAuditMirror
}

func NewPostingLogRepository(db *sql.DB, mirror repository.IAuditMirror) *PostingLogRepository {
	return &PostingLogRepository{db: db, mirror: mirror}
}

func (r *PostingLogRepository) Create(ctx context.Context, tenant model.Tenant, e *model.PostingLog) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	e.Tenant = tenant.Schema
	if len(e.PlatformResponse) > 2000 {
		e.PlatformResponse = e.PlatformResponse[:2000]
	}
	q := fmt.Sprintf(`INSERT INTO %s (social_account_id, post_id, platform, status, error_class, error_message, platform_response, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`, qualify(tenant, "posting_logs"))
	if err := r.db.QueryRowContext(ctx, q, e.SocialAccountID, e.PostID, string(e.Platform), string(e.Status), string(e.ErrorClass), e.ErrorMessage, e.PlatformResponse, e.CreatedAt).Scan(&e.ID); err != nil {
		return err
	}
	if r.mirror != nil {
		if err := r.mirror.Mirror(ctx, e); err != nil {
			logger.GetLogger().WithField("error", err).WithField("post_id", e.PostID).Warn("posting log mirror failed")
		}
	}
	return nil
}

func (r *PostingLogRepository) ListByPost(ctx context.Context, tenant model.Tenant, postID int64) ([]*model.PostingLog, error) {
	q := fmt.Sprintf(`SELECT id, social_account_id, post_id, platform, status, error_class, error_message, platform_response, created_at FROM %s WHERE post_id=$1 ORDER BY created_at DESC`, qualify(tenant, "posting_logs"))
	rows, err := r.db.QueryContext(ctx, q, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.PostingLog
	for rows.Next() {
		e := &model.PostingLog{Tenant: tenant.Schema}
		var accountID sql.NullInt64
		var platform, status, class string
		var errMsg, resp sql.NullString
		if err := rows.Scan(&e.ID, &accountID, &e.PostID, &platform, &status, &class, &errMsg, &resp, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.SocialAccountID = nullInt64(accountID)
		e.Platform = model.Platform(platform)
		e.Status = model.PostingLogStatus(status)
		e.ErrorClass = model.ErrorClass(class)
		e.ErrorMessage = nullString(errMsg)
		e.PlatformResponse = resp.String
		list = append(list, e)
	}
	return list, rows.Err()
}
