package repository

import (
	"context"
	"errors"
	"time"

	"repurposer/domain/model"
)

// ErrNotFound is returned by repositories when a row does not exist.
var ErrNotFound = errors.New("record not found")

// IPost persists repurposed posts inside a tenant schema.
type IPost interface {
	Create(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost) error
	GetByID(ctx context.Context, tenant model.Tenant, id int64) (*model.RepurposedPost, error)
	ListByUser(ctx context.Context, tenant model.Tenant, userID string, limit int) ([]*model.RepurposedPost, error)
	ListDueScheduled(ctx context.Context, tenant model.Tenant, now time.Time, limit int) ([]*model.RepurposedPost, error)
	ListRecurringTemplates(ctx context.Context, tenant model.Tenant) ([]*model.RepurposedPost, error)

	// UpdateContent writes generated content and status (PENDING -> READY|FAILED).
	UpdateContent(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost) error
	// ClaimForPublish moves a READY or SCHEDULED post to PUBLISHING. It
	// reports false when the post is held by another attempt or no longer
	// publishable.
	ClaimForPublish(ctx context.Context, tenant model.Tenant, postID int64) (bool, error)
	// ApplyPublishOutcome writes status, error and publish fields in one
	// statement. A PUBLISHED row is never overwritten.
	ApplyPublishOutcome(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost) error
	UpdateSchedule(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost) error
	UpdateRecurrence(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost) error
	StampRecurrenceCreated(ctx context.Context, tenant model.Tenant, postID int64, at time.Time) error
	UpdateMedia(ctx context.Context, tenant model.Tenant, postID int64, media *model.MediaRef) error
}
