package repository

import (
	"context"
	"io"
	"time"

	"repurposer/domain/model"
)

// IPublisher is the uniform contract every platform adapter implements.
// Expected failures come back as a failed PublishResult, never as a panic or error.
type IPublisher interface {
	Platform() model.Platform
	Publish(ctx context.Context, req model.PublishRequest) model.PublishResult
}

// IPublisherRegistry resolves the adapter for a platform.
type IPublisherRegistry interface {
	Lookup(platform model.Platform) (IPublisher, bool)
}

// IMediaStore resolves media references to bytes and stores uploads.
type IMediaStore interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Save(ctx context.Context, key, contentType string, r io.Reader) (*model.MediaRef, error)
}

// ITokenRefresher exchanges a refresh token for a new access token.
type ITokenRefresher interface {
	Supports(platform model.Platform) bool
	Refresh(ctx context.Context, platform model.Platform, refreshToken string) (*model.TokenUpdate, error)
}

// IGenerator is the AI generation bridge.
type IGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (*model.Generated, error)
}

type GenerateRequest struct {
	Content     string
	Platform    model.Platform
	BrandVoice  *model.BrandVoice
	Instruction string
}

// IExtractor turns a content source into plain text and a title.
type IExtractor interface {
	Extract(ctx context.Context, sourceType model.SourceType, url, rawText string) (text string, title string, err error)
}

// IEventSink forwards post status events to an external bus.
type IEventSink interface {
	PublishPostStatus(ctx context.Context, evt model.PostStatusEvent) error
}

// ILocker claims a unit of sweep work so overlapping runs skip it.
type ILocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// IAuditMirror receives a copy of every posting log entry.
type IAuditMirror interface {
	Mirror(ctx context.Context, entry *model.PostingLog) error
}
