package model

import (
	"context"
	"strings"
)

// ErrorClass buckets adapter failures so callers can react without parsing text.
type ErrorClass string

const (
	ErrorClassPrecondition ErrorClass = "precondition"
	ErrorClassAuth         ErrorClass = "auth"
	ErrorClassRateLimit    ErrorClass = "rate_limit"
	ErrorClassTransport    ErrorClass = "transport"
	ErrorClassPlatform     ErrorClass = "platform"
)

// PublishResult is what every adapter returns. Expected platform failures are
// results, not errors.
type PublishResult struct {
	Success    bool       `json:"success"`
	PlatformID string     `json:"platform_id,omitempty"`
	URL        string     `json:"url,omitempty"`
	ErrorClass ErrorClass `json:"error_class,omitempty"`
	Error      string     `json:"error,omitempty"`
	Response   string     `json:"-"`
}

func Published(id, url string) PublishResult {
	return PublishResult{Success: true, PlatformID: id, URL: url}
}

func PublishFailure(class ErrorClass, msg string) PublishResult {
	return PublishResult{ErrorClass: class, Error: msg}
}

// Content is the platform-neutral payload handed to an adapter.
type Content struct {
	Hook        string   `json:"hook"`
	Body        string   `json:"body"`
	Hashtags    []string `json:"hashtags"`
	ThreadPosts []string `json:"thread_posts,omitempty"`
}

// Text joins hook, body and hashtags the way single-message platforms show it.
func (c Content) Text() string {
	parts := make([]string, 0, 3)
	if h := strings.TrimSpace(c.Hook); h != "" && !strings.HasPrefix(strings.TrimSpace(c.Body), h) {
		parts = append(parts, h)
	}
	if b := strings.TrimSpace(c.Body); b != "" {
		parts = append(parts, b)
	}
	if len(c.Hashtags) > 0 {
		parts = append(parts, strings.Join(c.Hashtags, " "))
	}
	return strings.Join(parts, "\n\n")
}

// Credentials carries the account token plus a hook to refresh it once.
type Credentials struct {
	AccessToken    string
	PlatformUserID string
	Refresh        func(ctx context.Context) (string, error)
}

type PublishRequest struct {
	Credentials Credentials
	Content     Content
	Media       *MediaRef
}
