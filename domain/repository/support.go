package repository

import (
	"context"

	"repurposer/domain/model"
)

type IPostingLog interface {
	Create(ctx context.Context, tenant model.Tenant, entry *model.PostingLog) error
	ListByPost(ctx context.Context, tenant model.Tenant, postID int64) ([]*model.PostingLog, error)
}

type IContentSource interface {
	Create(ctx context.Context, tenant model.Tenant, src *model.ContentSource) error
	MarkProcessed(ctx context.Context, tenant model.Tenant, id int64, processingErr *string) error
}

type IBrandVoice interface {
	GetByID(ctx context.Context, tenant model.Tenant, id int64) (*model.BrandVoice, error)
}

type IUser interface {
	GetByID(ctx context.Context, tenant model.Tenant, id string) (*model.User, error)
	IncrementUsage(ctx context.Context, tenant model.Tenant, id string) error
}

// ITenant lists the tenant schemas the background loops iterate.
type ITenant interface {
	ListActive(ctx context.Context) ([]model.Tenant, error)
}
