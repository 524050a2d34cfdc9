package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/logger"
	"repurposer/infrastructure/metrics"
)

const msgPublished = "Post published successfully."

// PublishOutcome is what a caller of the orchestrator sees after an attempt.
type PublishOutcome struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Post    *model.RepurposedPost `json:"post"`
}

type IPublishUsecase interface {
	// PublishPost is the user-initiated path: it loads the post and applies
	// the plan gate before attempting.
	PublishPost(ctx context.Context, tenant model.Tenant, postID int64, accountID *int64) (*PublishOutcome, error)
	// Publish attempts an already loaded post. The scheduler uses it directly.
	Publish(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost, accountID *int64) (*PublishOutcome, error)
	// RecordFailure moves the post to FAILED outside a normal attempt.
	RecordFailure(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost, msg string) error
	WithEventSinks(sinks ...repository.IEventSink) IPublishUsecase
}

type publishUsecase struct {
	posts       repository.IPost
	accounts    repository.ISocialAccount
	logs        repository.IPostingLog
	users       repository.IUser
	registry    repository.IPublisherRegistry
	credentials ICredentialManager
	usage       *UsageChecker
	sinks       []repository.IEventSink
	now         func() time.Time
}

func NewPublishUsecase(
	posts repository.IPost,
	accounts repository.ISocialAccount,
	logs repository.IPostingLog,
	users repository.IUser,
	registry repository.IPublisherRegistry,
	credentials ICredentialManager,
	usage *UsageChecker,
) IPublishUsecase {
	return &publishUsecase{
		posts:       posts,
		accounts:    accounts,
		logs:        logs,
		users:       users,
		registry:    registry,
		credentials: credentials,
		usage:       usage,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithEventSinks adds receivers for post status events (SSE hub, pubsub,
// service bus). Sink failures are logged and never fail the attempt.
func (u *publishUsecase) WithEventSinks(sinks ...repository.IEventSink) IPublishUsecase {
	for _, s := range sinks {
		if s != nil {
			u.sinks = append(u.sinks, s)
		}
	}
	return u
}

func (u *publishUsecase) PublishPost(ctx context.Context, tenant model.Tenant, postID int64, accountID *int64) (*PublishOutcome, error) {
	post, err := u.posts.GetByID(ctx, tenant, postID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading post %d: %w", postID, err)
	}
	if !post.Publishable() {
		return nil, ErrPostNotPublishable
	}
	if u.usage != nil && u.users != nil {
		user, err := u.users.GetByID(ctx, tenant, post.UserID)
		if err != nil {
			return nil, fmt.Errorf("loading user: %w", err)
		}
		if err := u.usage.CanPublish(user, post.Platform); err != nil {
			return nil, err
		}
	}
	return u.Publish(ctx, tenant, post, accountID)
}

func (u *publishUsecase) Publish(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost, accountID *int64) (*PublishOutcome, error) {
	if !post.Publishable() {
		return nil, ErrPostNotPublishable
	}
	lg := logger.GetLogger().
		WithField("tenant", tenant.Schema).
		WithField("post_id", post.ID).
		WithField("platform", post.Platform)

	acc, err := u.resolveAccount(ctx, tenant, post, accountID)
	if err != nil && !errors.Is(err, ErrNoConnectedAccount) {
		return nil, err
	}
	claimed, cerr := u.posts.ClaimForPublish(ctx, tenant, post.ID)
	if cerr != nil {
		return nil, fmt.Errorf("claiming post %d: %w", post.ID, cerr)
	}
	if !claimed {
		lg.Info("post already claimed by another attempt")
		return nil, ErrPublishInProgress
	}
	if errors.Is(err, ErrNoConnectedAccount) {
		msg := fmt.Sprintf("No connected %s account found.", post.Platform.DisplayName())
		return u.finish(ctx, tenant, post, nil, model.PublishFailure(model.ErrorClassPrecondition, msg), 0)
	}

	adapter, ok := u.registry.Lookup(post.Platform)
	if !ok {
		msg := fmt.Sprintf("Direct posting to %s is not supported.", post.Platform.DisplayName())
		return u.finish(ctx, tenant, post, acc, model.PublishFailure(model.ErrorClassPrecondition, msg), 0)
	}
	if post.Platform.RequiresMedia() && post.Media == nil {
		return u.finish(ctx, tenant, post, acc, model.PublishFailure(model.ErrorClassPrecondition, missingMediaMessage(post.Platform)), 0)
	}

	token, err := u.credentials.EnsureValidToken(ctx, tenant, acc)
	if err != nil {
		lg.WithField("error", err).Warn("credentials unavailable")
		return u.finish(ctx, tenant, post, acc, model.PublishFailure(model.ErrorClassAuth, err.Error()), 0)
	}

	req := model.PublishRequest{
		Credentials: model.Credentials{
			AccessToken:    token,
			PlatformUserID: acc.PlatformUserID,
			Refresh: func(ctx context.Context) (string, error) {
				return u.credentials.Refresh(ctx, tenant, acc)
			},
		},
		Content: post.Content(),
		Media:   post.Media,
	}
	started := time.Now()
	res := callAdapter(ctx, adapter, req)
	took := time.Since(started)
	if res.Success && res.PlatformID == "" {
		res = model.PublishFailure(model.ErrorClassPlatform, fmt.Sprintf("%s did not return a post id.", post.Platform.DisplayName()))
	}
	if !res.Success {
		lg.WithField("error_class", res.ErrorClass).WithField("error", res.Error).Warn("publish failed")
	}
	return u.finish(ctx, tenant, post, acc, res, took)
}

func (u *publishUsecase) RecordFailure(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost, msg string) error {
	_, err := u.finish(ctx, tenant, post, nil, model.PublishFailure(model.ErrorClassPlatform, msg), 0)
	return err
}

func (u *publishUsecase) resolveAccount(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost, accountID *int64) (*model.SocialAccount, error) {
	if accountID != nil {
		acc, err := u.accounts.GetByID(ctx, tenant, *accountID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidAccount
		}
		if err != nil {
			return nil, fmt.Errorf("loading account %d: %w", *accountID, err)
		}
		if !acc.IsActive || acc.UserID != post.UserID || acc.Platform != post.Platform {
			return nil, ErrInvalidAccount
		}
		return acc, nil
	}
	acc, err := u.accounts.FirstActive(ctx, tenant, post.UserID, post.Platform)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoConnectedAccount
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s account: %w", post.Platform, err)
	}
	return acc, nil
}

// callAdapter turns an adapter panic into a failed result so the claimed post
// still reaches a final status.
func callAdapter(ctx context.Context, adapter repository.IPublisher, req model.PublishRequest) (res model.PublishResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.PublishFailure(model.ErrorClassPlatform, fmt.Sprintf("unexpected error: %v", r))
		}
	}()
	return adapter.Publish(ctx, req)
}

// finish writes the transition in one statement, then the side records.
func (u *publishUsecase) finish(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost, acc *model.SocialAccount, res model.PublishResult, took time.Duration) (*PublishOutcome, error) {
	now := u.now()
	post.UpdatedAt = now
	if res.Success {
		post.MarkPublished(now, res.PlatformID, res.URL)
	} else {
		post.MarkFailed(res.Error)
	}
	if err := u.posts.ApplyPublishOutcome(ctx, tenant, post); err != nil {
		return nil, fmt.Errorf("saving publish outcome for post %d: %w", post.ID, err)
	}
	metrics.ObservePublish(post.Platform, res, took)

	lg := logger.GetLogger().WithField("tenant", tenant.Schema).WithField("post_id", post.ID)
	entry := &model.PostingLog{
		PostID:           post.ID,
		Platform:         post.Platform,
		Status:           model.LogStatusFor(res),
		PlatformResponse: res.Response,
		CreatedAt:        now,
	}
	if !res.Success {
		entry.ErrorClass = res.ErrorClass
		entry.ErrorMessage = post.ErrorMessage
	}
	if acc != nil {
		id := acc.ID
		entry.SocialAccountID = &id
		if err := u.accounts.MarkUsed(ctx, tenant, acc.ID, now); err != nil {
			lg.WithField("error", err).Warn("could not stamp account last use")
		}
	}
	if u.logs != nil {
		if err := u.logs.Create(ctx, tenant, entry); err != nil {
			lg.WithField("error", err).Warn("could not write posting log")
		}
	}
	u.broadcast(ctx, model.NewPostStatusEvent(tenant, post))

	if res.Success {
		lg.WithField("platform_post_id", res.PlatformID).Info("post published")
		return &PublishOutcome{Success: true, Message: msgPublished, Post: post}, nil
	}
	return &PublishOutcome{Success: false, Message: "Publishing failed: " + res.Error, Post: post}, nil
}

func (u *publishUsecase) broadcast(ctx context.Context, evt model.PostStatusEvent) {
	for _, s := range u.sinks {
		if err := s.PublishPostStatus(ctx, evt); err != nil {
			logger.GetLogger().WithField("error", err).WithField("post_id", evt.PostID).Warn("post status event not delivered")
		}
	}
}

func missingMediaMessage(p model.Platform) string {
	if p == model.PlatformYouTube {
		return "Video file is required for YouTube."
	}
	return fmt.Sprintf("%s requires an image. Please attach an image to this post.", p.DisplayName())
}
