package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/logger"

	"github.com/google/uuid"
)

type RepurposeRequest struct {
	RawText      string   `json:"raw_text"`
	SourceURL    string   `json:"source_url"`
	Platforms    []string `json:"platforms" binding:"required"`
	BrandVoiceID *int64   `json:"brand_voice_id"`
	UserPrompt   string   `json:"user_prompt"`
}

type RepurposeResult struct {
	Source *model.ContentSource    `json:"source"`
	Posts  []*model.RepurposedPost `json:"posts"`
}

type IRepurposeUsecase interface {
	Submit(ctx context.Context, tenant model.Tenant, userID string, req RepurposeRequest) (*RepurposeResult, error)
	SchedulePost(ctx context.Context, tenant model.Tenant, userID string, postID int64, at time.Time) (*model.RepurposedPost, error)
	SetRecurrence(ctx context.Context, tenant model.Tenant, userID string, postID int64, rec *model.Recurrence) (*model.RepurposedPost, error)
	AttachMedia(ctx context.Context, tenant model.Tenant, userID string, postID int64, filename, contentType string, r io.Reader) (*model.RepurposedPost, error)
	ListPosts(ctx context.Context, tenant model.Tenant, userID string, limit int) ([]*model.RepurposedPost, error)
	GetPost(ctx context.Context, tenant model.Tenant, userID string, postID int64) (*model.RepurposedPost, error)
	ListPostingLogs(ctx context.Context, tenant model.Tenant, userID string, postID int64) ([]*model.PostingLog, error)
}

type repurposeUsecase struct {
	posts     repository.IPost
	sources   repository.IContentSource
	voices    repository.IBrandVoice
	users     repository.IUser
	logs      repository.IPostingLog
	extractor repository.IExtractor
	generator repository.IGenerator
	media     repository.IMediaStore
	usage     *UsageChecker
	now       func() time.Time
}

func NewRepurposeUsecase(
	posts repository.IPost,
	sources repository.IContentSource,
	voices repository.IBrandVoice,
	users repository.IUser,
	logs repository.IPostingLog,
	extractor repository.IExtractor,
	generator repository.IGenerator,
	media repository.IMediaStore,
	usage *UsageChecker,
) IRepurposeUsecase {
	return &repurposeUsecase{
		posts:     posts,
		sources:   sources,
		voices:    voices,
		users:     users,
		logs:      logs,
		extractor: extractor,
		generator: generator,
		media:     media,
		usage:     usage,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores the source with one PENDING post per platform, then extracts
// and generates. Any failure marks the source and all its posts failed.
func (u *repurposeUsecase) Submit(ctx context.Context, tenant model.Tenant, userID string, req RepurposeRequest) (*RepurposeResult, error) {
	platforms, err := parsePlatforms(req.Platforms)
	if err != nil {
		return nil, err
	}
	rawText := strings.TrimSpace(req.RawText)
	sourceURL := strings.TrimSpace(req.SourceURL)
	if rawText == "" && sourceURL == "" {
		return nil, invalid("raw_text or source_url is required")
	}

	user, err := u.users.GetByID(ctx, tenant, userID)
	if err != nil {
		return nil, fmt.Errorf("loading user: %w", err)
	}
	if u.usage != nil {
		if err := u.usage.CanRepurpose(user); err != nil {
			return nil, err
		}
		for _, p := range platforms {
			if !u.usage.AllowsPlatform(user, p) {
				return nil, fmt.Errorf("%w: %s", ErrPlatformNotInPlan, p.DisplayName())
			}
		}
	}

	var voice *model.BrandVoice
	if req.BrandVoiceID != nil {
		v, err := u.voices.GetByID(ctx, tenant, *req.BrandVoiceID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && v.UserID != userID) {
			return nil, invalid("brand voice not found")
		}
		if err != nil {
			return nil, err
		}
		voice = v
	}

	src := &model.ContentSource{
		UserID:     userID,
		SourceType: DetectSourceType(sourceURL),
		URL:        sourceURL,
		Title:      "Processing...",
		RawText:    rawText,
	}
	if err := u.sources.Create(ctx, tenant, src); err != nil {
		return nil, fmt.Errorf("saving content source: %w", err)
	}
	result := &RepurposeResult{Source: src}
	for _, p := range platforms {
		post := &model.RepurposedPost{
			SourceID:     &src.ID,
			UserID:       userID,
			Platform:     p,
			BrandVoiceID: req.BrandVoiceID,
			Status:       model.PostStatusPending,
		}
		if err := u.posts.Create(ctx, tenant, post); err != nil {
			return nil, fmt.Errorf("saving %s post: %w", p, err)
		}
		result.Posts = append(result.Posts, post)
	}

	lg := logger.GetLogger().WithField("tenant", tenant.Schema).WithField("source_id", src.ID)
	if err := u.generateAll(ctx, tenant, src, voice, req.UserPrompt, result.Posts); err != nil {
		lg.WithField("error", err).Error("repurpose failed")
		u.failAll(ctx, tenant, src, result.Posts, err.Error())
		return result, fmt.Errorf("repurposing source %d: %w", src.ID, err)
	}
	if err := u.sources.MarkProcessed(ctx, tenant, src.ID, nil); err != nil {
		lg.WithField("error", err).Warn("could not mark source processed")
	}
	src.IsProcessed = true
	if err := u.users.IncrementUsage(ctx, tenant, userID); err != nil {
		lg.WithField("error", err).Warn("could not increment usage")
	}
	lg.WithField("posts", len(result.Posts)).Info("content repurposed")
	return result, nil
}

func (u *repurposeUsecase) generateAll(ctx context.Context, tenant model.Tenant, src *model.ContentSource, voice *model.BrandVoice, instruction string, posts []*model.RepurposedPost) error {
	if u.extractor == nil || u.generator == nil {
		return errors.New("content generation is not configured")
	}
	text, title, err := u.extractor.Extract(ctx, src.SourceType, src.URL, src.RawText)
	if err != nil {
		return err
	}
	src.Title = title
	for _, post := range posts {
		gen, err := u.generator.Generate(ctx, repository.GenerateRequest{
			Content:     text,
			Platform:    post.Platform,
			BrandVoice:  voice,
			Instruction: instruction,
		})
		if err != nil {
			return fmt.Errorf("generating %s post: %w", post.Platform.DisplayName(), err)
		}
		post.Hook = gen.Hook
		post.Body = gen.Content
		post.Hashtags = gen.Hashtags
		post.ThreadPosts = gen.ThreadPosts
		post.Status = model.PostStatusReady
		post.Normalize()
		if err := u.posts.UpdateContent(ctx, tenant, post); err != nil {
			return fmt.Errorf("saving %s post: %w", post.Platform, err)
		}
	}
	return nil
}

func (u *repurposeUsecase) failAll(ctx context.Context, tenant model.Tenant, src *model.ContentSource, posts []*model.RepurposedPost, msg string) {
	lg := logger.GetLogger().WithField("tenant", tenant.Schema).WithField("source_id", src.ID)
	src.ProcessingError = &msg
	if err := u.sources.MarkProcessed(ctx, tenant, src.ID, &msg); err != nil {
		lg.WithField("error", err).Warn("could not record source error")
	}
	for _, post := range posts {
		post.MarkFailed(msg)
		if err := u.posts.UpdateContent(ctx, tenant, post); err != nil {
			lg.WithField("post_id", post.ID).WithField("error", err).Warn("could not mark post failed")
		}
	}
}

func (u *repurposeUsecase) SchedulePost(ctx context.Context, tenant model.Tenant, userID string, postID int64, at time.Time) (*model.RepurposedPost, error) {
	post, err := u.GetPost(ctx, tenant, userID, postID)
	if err != nil {
		return nil, err
	}
	if !post.Publishable() {
		return nil, ErrPostNotPublishable
	}
	if !at.After(u.now()) {
		return nil, fmt.Errorf("%w: scheduled time must be in the future", ErrInvalidSchedule)
	}
	post.MarkScheduled(at)
	if err := u.posts.UpdateSchedule(ctx, tenant, post); err != nil {
		return nil, err
	}
	return post, nil
}

// SetRecurrence turns the post into a calendar template; a nil rec clears it.
func (u *repurposeUsecase) SetRecurrence(ctx context.Context, tenant model.Tenant, userID string, postID int64, rec *model.Recurrence) (*model.RepurposedPost, error) {
	post, err := u.GetPost(ctx, tenant, userID, postID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if post.Status == model.PostStatusPending || post.Status == model.PostStatusFailed {
			return nil, ErrPostNotPublishable
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSchedule, err)
		}
		if post.Recurrence != nil {
			rec.LastCreated = post.Recurrence.LastCreated
		}
	}
	post.Recurrence = rec
	if err := u.posts.UpdateRecurrence(ctx, tenant, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (u *repurposeUsecase) AttachMedia(ctx context.Context, tenant model.Tenant, userID string, postID int64, filename, contentType string, r io.Reader) (*model.RepurposedPost, error) {
	if u.media == nil {
		return nil, errors.New("media storage is not configured")
	}
	post, err := u.GetPost(ctx, tenant, userID, postID)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("media/%s/%s%s", userID, uuid.NewString(), strings.ToLower(path.Ext(filename)))
	ref, err := u.media.Save(ctx, key, contentType, r)
	if err != nil {
		return nil, fmt.Errorf("storing media: %w", err)
	}
	if err := u.posts.UpdateMedia(ctx, tenant, post.ID, ref); err != nil {
		return nil, err
	}
	post.Media = ref
	return post, nil
}

func (u *repurposeUsecase) ListPosts(ctx context.Context, tenant model.Tenant, userID string, limit int) ([]*model.RepurposedPost, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return u.posts.ListByUser(ctx, tenant, userID, limit)
}

func (u *repurposeUsecase) GetPost(ctx context.Context, tenant model.Tenant, userID string, postID int64) (*model.RepurposedPost, error) {
	post, err := u.posts.GetByID(ctx, tenant, postID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, ErrPostNotFound
	}
	return post, nil
}

func (u *repurposeUsecase) ListPostingLogs(ctx context.Context, tenant model.Tenant, userID string, postID int64) ([]*model.PostingLog, error) {
	if _, err := u.GetPost(ctx, tenant, userID, postID); err != nil {
		return nil, err
	}
	return u.logs.ListByPost(ctx, tenant, postID)
}

// DetectSourceType classifies a submission: YouTube links, other links
// (treated as blogs) and plain text.
func DetectSourceType(sourceURL string) model.SourceType {
	if sourceURL == "" {
		return model.SourceText
	}
	lower := strings.ToLower(sourceURL)
	if strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be") {
		return model.SourceYouTube
	}
	if strings.HasSuffix(lower, ".pdf") {
		return model.SourcePDF
	}
	return model.SourceBlog
}

func parsePlatforms(names []string) ([]model.Platform, error) {
	if len(names) == 0 {
		return nil, invalid("at least one platform is required")
	}
	seen := make(map[model.Platform]struct{}, len(names))
	out := make([]model.Platform, 0, len(names))
	for _, n := range names {
		p, ok := model.ParsePlatform(n)
		if !ok {
			return nil, invalid("unsupported platform: %s", n)
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}
