package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/logger"
)

type CreateScheduledPostRequest struct {
	PostID        *int64          `json:"post_id"`
	Prompt        *string         `json:"prompt"`
	Platforms     []string        `json:"platforms"`
	BrandVoiceID  *int64          `json:"brand_voice_id"`
	Frequency     model.Frequency `json:"frequency"`
	ScheduledTime time.Time       `json:"scheduled_time" binding:"required"`
}

type IScheduledPostUsecase interface {
	Create(ctx context.Context, tenant model.Tenant, userID string, req CreateScheduledPostRequest) (*model.ScheduledPost, error)
	List(ctx context.Context, tenant model.Tenant, userID string) ([]*model.ScheduledPost, error)
	Get(ctx context.Context, tenant model.Tenant, userID string, id int64) (*model.ScheduledPost, error)
	Pause(ctx context.Context, tenant model.Tenant, userID string, id int64) (*model.ScheduledPost, error)
	Resume(ctx context.Context, tenant model.Tenant, userID string, id int64) (*model.ScheduledPost, error)
}

type scheduledPostUsecase struct {
	scheduled repository.IScheduledPost
	posts     repository.IPost
}

func NewScheduledPostUsecase(scheduled repository.IScheduledPost, posts repository.IPost) IScheduledPostUsecase {
	return &scheduledPostUsecase{scheduled: scheduled, posts: posts}
}

func (u *scheduledPostUsecase) Create(ctx context.Context, tenant model.Tenant, userID string, req CreateScheduledPostRequest) (*model.ScheduledPost, error) {
	sp := &model.ScheduledPost{
		UserID:        userID,
		PostID:        req.PostID,
		Prompt:        req.Prompt,
		BrandVoiceID:  req.BrandVoiceID,
		Frequency:     req.Frequency,
		ScheduledTime: req.ScheduledTime.UTC(),
		IsActive:      true,
		Status:        model.ScheduleStatusPending,
	}
	if sp.Frequency == "" {
		sp.Frequency = model.FrequencyOnce
	}
	for _, name := range req.Platforms {
		p, ok := model.ParsePlatform(name)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported platform: %s", ErrInvalidSchedule, name)
		}
		sp.Platforms = append(sp.Platforms, string(p))
	}
	if sp.ScheduledTime.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_time is required", ErrInvalidSchedule)
	}
	if err := sp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSchedule, err)
	}
	if sp.PostID != nil {
		post, err := u.posts.GetByID(ctx, tenant, *sp.PostID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && post.UserID != userID) {
			return nil, ErrPostNotFound
		}
		if err != nil {
			return nil, err
		}
	}
	next := sp.ScheduledTime
	sp.NextRun = &next
	if err := u.scheduled.Create(ctx, tenant, sp); err != nil {
		return nil, fmt.Errorf("saving scheduled post: %w", err)
	}
	logger.GetLogger().
		WithField("tenant", tenant.Schema).
		WithField("scheduled_post_id", sp.ID).
		WithField("frequency", sp.Frequency).
		Info("scheduled post created")
	return sp, nil
}

func (u *scheduledPostUsecase) List(ctx context.Context, tenant model.Tenant, userID string) ([]*model.ScheduledPost, error) {
	return u.scheduled.ListByUser(ctx, tenant, userID)
}

func (u *scheduledPostUsecase) Get(ctx context.Context, tenant model.Tenant, userID string, id int64) (*model.ScheduledPost, error) {
	sp, err := u.scheduled.GetByID(ctx, tenant, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrScheduledPostNotFound
	}
	if err != nil {
		return nil, err
	}
	if sp.UserID != userID {
		return nil, ErrScheduledPostNotFound
	}
	return sp, nil
}

// Pause only stops runs that have not started yet.
func (u *scheduledPostUsecase) Pause(ctx context.Context, tenant model.Tenant, userID string, id int64) (*model.ScheduledPost, error) {
	sp, err := u.Get(ctx, tenant, userID, id)
	if err != nil {
		return nil, err
	}
	if sp.Status != model.ScheduleStatusPending && sp.Status != model.ScheduleStatusActive {
		return nil, fmt.Errorf("%w: a %s schedule cannot be paused", ErrInvalidSchedule, sp.Status)
	}
	sp.Pause()
	if err := u.scheduled.UpdateRunState(ctx, tenant, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

func (u *scheduledPostUsecase) Resume(ctx context.Context, tenant model.Tenant, userID string, id int64) (*model.ScheduledPost, error) {
	sp, err := u.Get(ctx, tenant, userID, id)
	if err != nil {
		return nil, err
	}
	if !sp.Resumable() {
		return nil, fmt.Errorf("%w: a %s %s schedule cannot be resumed", ErrInvalidSchedule, sp.Status, sp.Frequency)
	}
	sp.Resume()
	if sp.NextRun == nil {
		next := sp.ScheduledTime
		sp.NextRun = &next
	}
	if err := u.scheduled.UpdateRunState(ctx, tenant, sp); err != nil {
		return nil, err
	}
	return sp, nil
}
