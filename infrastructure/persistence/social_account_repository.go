package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"repurposer/domain/model"
)

const socialAccountColumns = `id, user_id, platform, platform_user_id, platform_username, display_name, profile_url, avatar_url, access_token, refresh_token, token_expires_at, is_active, last_used_at, created_at, updated_at`

type SocialAccountRepository struct{ db *sql.DB }

func NewSocialAccountRepository(db *sql.DB) *SocialAccountRepository {
	return &SocialAccountRepository{db: db}
}

// Upsert stores the account from an OAuth callback; reconnecting reactivates it.
func (r *SocialAccountRepository) Upsert(ctx context.Context, tenant model.Tenant, a *model.SocialAccount) error {
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.IsActive = true
	q := fmt.Sprintf(`INSERT INTO %[1]s (user_id, platform, platform_user_id, platform_username, display_name, profile_url, avatar_url, access_token, refresh_token, token_expires_at, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,TRUE,$11,$12)
		ON CONFLICT (user_id, platform, platform_user_id) DO UPDATE SET
			platform_username=EXCLUDED.platform_username,
			display_name=EXCLUDED.display_name,
			profile_url=EXCLUDED.profile_url,
			avatar_url=EXCLUDED.avatar_url,
			access_token=EXCLUDED.access_token,
			refresh_token=COALESCE(NULLIF(EXCLUDED.refresh_token, ''), %[1]s.refresh_token),
			token_expires_at=EXCLUDED.token_expires_at,
			is_active=TRUE,
			updated_at=EXCLUDED.updated_at
		RETURNING id`, qualify(tenant, "social_accounts"))
	return r.db.QueryRowContext(ctx, q,
		a.UserID, string(a.Platform), a.PlatformUserID, a.PlatformUsername, a.DisplayName, a.ProfileURL, a.AvatarURL,
		a.AccessToken, a.RefreshToken, a.TokenExpiresAt, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
}

func (r *SocialAccountRepository) GetByID(ctx context.Context, tenant model.Tenant, id int64) (*model.SocialAccount, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id=$1`, socialAccountColumns, qualify(tenant, "social_accounts"))
	a, err := scanSocialAccount(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *SocialAccountRepository) FirstActive(ctx context.Context, tenant model.Tenant, userID string, platform model.Platform) (*model.SocialAccount, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id=$1 AND platform=$2 AND is_active=TRUE ORDER BY created_at ASC LIMIT 1`, socialAccountColumns, qualify(tenant, "social_accounts"))
	a, err := scanSocialAccount(r.db.QueryRowContext(ctx, q, userID, string(platform)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

func (r *SocialAccountRepository) ListByUser(ctx context.Context, tenant model.Tenant, userID string) ([]*model.SocialAccount, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE user_id=$1 AND is_active=TRUE ORDER BY platform, created_at`, socialAccountColumns, qualify(tenant, "social_accounts"))
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*model.SocialAccount
	for rows.Next() {
		a, err := scanSocialAccount(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// UpdateTokens is the only statement that mutates stored credentials.
func (r *SocialAccountRepository) UpdateTokens(ctx context.Context, tenant model.Tenant, accountID int64, upd model.TokenUpdate) error {
	q := fmt.Sprintf(`UPDATE %s SET access_token=$1, refresh_token=$2, token_expires_at=$3, updated_at=$4 WHERE id=$5`, qualify(tenant, "social_accounts"))
	res, err := r.db.ExecContext(ctx, q, upd.AccessToken, upd.RefreshToken, upd.ExpiresAt, time.Now().UTC(), accountID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SocialAccountRepository) MarkUsed(ctx context.Context, tenant model.Tenant, accountID int64, at time.Time) error {
	q := fmt.Sprintf(`UPDATE %s SET last_used_at=$1 WHERE id=$2`, qualify(tenant, "social_accounts"))
	_, err := r.db.ExecContext(ctx, q, at.UTC(), accountID)
	return err
}

// Deactivate soft-deletes every active account of the user on a platform.
func (r *SocialAccountRepository) Deactivate(ctx context.Context, tenant model.Tenant, userID string, platform model.Platform) (int64, error) {
	q := fmt.Sprintf(`UPDATE %s SET is_active=FALSE, updated_at=$1 WHERE user_id=$2 AND platform=$3 AND is_active=TRUE`, qualify(tenant, "social_accounts"))
	res, err := r.db.ExecContext(ctx, q, time.Now().UTC(), userID, string(platform))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSocialAccount(row rowScanner) (*model.SocialAccount, error) {
	a := &model.SocialAccount{}
	var (
		platform                                 string
		username, display, profile, avatar, rtok sql.NullString
		expires, lastUsed                        sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.UserID, &platform, &a.PlatformUserID, &username, &display, &profile, &avatar,
		&a.AccessToken, &rtok, &expires, &a.IsActive, &lastUsed, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Platform = model.Platform(platform)
	a.PlatformUsername = username.String
	a.DisplayName = display.String
	a.ProfileURL = profile.String
	a.AvatarURL = avatar.String
	a.RefreshToken = rtok.String
	a.TokenExpiresAt = nullTime(expires)
	a.LastUsedAt = nullTime(lastUsed)
	return a, nil
}
