package repository

import (
	"context"
	"time"

	"repurposer/domain/model"
)

type ISocialAccount interface {
	// Upsert inserts or reactivates the account keyed by (user, platform, platform user id).
	Upsert(ctx context.Context, tenant model.Tenant, acc *model.SocialAccount) error
	GetByID(ctx context.Context, tenant model.Tenant, id int64) (*model.SocialAccount, error)
	FirstActive(ctx context.Context, tenant model.Tenant, userID string, platform model.Platform) (*model.SocialAccount, error)
	ListByUser(ctx context.Context, tenant model.Tenant, userID string) ([]*model.SocialAccount, error)
	// UpdateTokens replaces access token, refresh token and expiry in one statement.
	UpdateTokens(ctx context.Context, tenant model.Tenant, accountID int64, upd model.TokenUpdate) error
	MarkUsed(ctx context.Context, tenant model.Tenant, accountID int64, at time.Time) error
	Deactivate(ctx context.Context, tenant model.Tenant, userID string, platform model.Platform) (int64, error)
}
