package repository

import (
	"context"
	"time"

	"repurposer/domain/model"
)

type IScheduledPost interface {
	Create(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error
	GetByID(ctx context.Context, tenant model.Tenant, id int64) (*model.ScheduledPost, error)
	ListByUser(ctx context.Context, tenant model.Tenant, userID string) ([]*model.ScheduledPost, error)
	ListDue(ctx context.Context, tenant model.Tenant, now time.Time, limit int) ([]*model.ScheduledPost, error)
	// UpdateRunState writes status, activity, counters, next run and error together.
	UpdateRunState(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error
}
