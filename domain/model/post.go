package model

import (
	"strings"
	"time"
)

type PostStatus string

// PostStatusPublishing marks a post claimed by an attempt in flight.
const (
	PostStatusPending    PostStatus = "pending"
	PostStatusReady      PostStatus = "ready"
	PostStatusScheduled  PostStatus = "scheduled"
	PostStatusPublishing PostStatus = "publishing"
	PostStatusPublished  PostStatus = "published"
	PostStatusFailed     PostStatus = "failed"
)

type RecurrencePattern string

const (
	RecurrenceDaily   RecurrencePattern = "daily"
	RecurrenceWeekly  RecurrencePattern = "weekly"
	RecurrenceMonthly RecurrencePattern = "monthly"
)

func (p RecurrencePattern) Valid() bool {
	return p == RecurrenceDaily || p == RecurrenceWeekly || p == RecurrenceMonthly
}

// MediaRef points at an uploaded asset. Key addresses the media store,
// PublicURL is what platforms that fetch by URL (Instagram, Facebook) receive.
type MediaRef struct {
	Key         string `json:"key"`
	PublicURL   string `json:"public_url,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

func (m *MediaRef) IsVideo() bool {
	return m != nil && strings.HasPrefix(m.ContentType, "video/")
}

// Recurrence turns a post into a calendar template. Days are 0=Monday..6=Sunday
// for weekly templates and 1..31 for monthly ones. Time is "HH:MM".
type Recurrence struct {
	Pattern     RecurrencePattern `json:"pattern"`
	Days        []int64           `json:"days,omitempty"`
	Time        string            `json:"time"`
	Timezone    string            `json:"timezone,omitempty"`
	LastCreated *time.Time        `json:"last_created,omitempty"`
}

// RepurposedPost is one generated post for one platform.
type RepurposedPost struct {
	ID              int64       `json:"id"`
	SourceID        *int64      `json:"source_id,omitempty"`
	UserID          string      `json:"user_id"`
	Platform        Platform    `json:"platform"`
	BrandVoiceID    *int64      `json:"brand_voice_id,omitempty"`
	Hook            string      `json:"hook"`
	Body            string      `json:"body"`
	Hashtags        []string    `json:"hashtags"`
	ThreadPosts     []string    `json:"thread_posts"`
	Status          PostStatus  `json:"status"`
	ErrorMessage    *string     `json:"error_message,omitempty"`
	ScheduledFor    *time.Time  `json:"scheduled_for,omitempty"`
	PublishedAt     *time.Time  `json:"published_at,omitempty"`
	PlatformPostID  *string     `json:"platform_post_id,omitempty"`
	PlatformPostURL *string     `json:"platform_post_url,omitempty"`
	Media           *MediaRef   `json:"media,omitempty"`
	Recurrence      *Recurrence `json:"recurrence,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Publishable reports whether a publish attempt may start from the current status.
func (p *RepurposedPost) Publishable() bool {
	return p.Status == PostStatusReady || p.Status == PostStatusScheduled
}

// Content is the adapter-facing view of the post.
func (p *RepurposedPost) Content() Content {
	return Content{Hook: p.Hook, Body: p.Body, Hashtags: p.Hashtags, ThreadPosts: p.ThreadPosts}
}

// Normalize applies the storage invariants: thread segments only exist for
// multi-segment twitter posts, and hashtags carry a leading '#'.
func (p *RepurposedPost) Normalize() {
	if p.Platform != PlatformTwitter || len(p.ThreadPosts) < 2 {
		p.ThreadPosts = nil
	}
	p.Hashtags = NormalizeHashtags(p.Hashtags)
}

// MarkPublished sets the only state in which PublishedAt and PlatformPostID exist.
func (p *RepurposedPost) MarkPublished(at time.Time, platformID, platformURL string) {
	p.Status = PostStatusPublished
	t := at.UTC()
	p.PublishedAt = &t
	id := platformID
	p.PlatformPostID = &id
	if platformURL != "" {
		u := platformURL
		p.PlatformPostURL = &u
	} else {
		p.PlatformPostURL = nil
	}
	p.ErrorMessage = nil
}

func (p *RepurposedPost) MarkFailed(msg string) {
	p.Status = PostStatusFailed
	m := msg
	p.ErrorMessage = &m
	p.PublishedAt = nil
	p.PlatformPostID = nil
	p.PlatformPostURL = nil
}

// SettledSince reports whether the post reached PUBLISHED or FAILED at or
// after t.
func (p *RepurposedPost) SettledSince(t time.Time) bool {
	switch p.Status {
	case PostStatusPublished:
		return p.PublishedAt != nil && !p.PublishedAt.Before(t)
	case PostStatusFailed:
		return !p.UpdatedAt.Before(t)
	}
	return false
}

func (p *RepurposedPost) MarkScheduled(at time.Time) {
	p.Status = PostStatusScheduled
	t := at.UTC()
	p.ScheduledFor = &t
}

// CloneForOccurrence copies the template content into a one-shot scheduled post.
func (p *RepurposedPost) CloneForOccurrence(at time.Time) *RepurposedPost {
	c := &RepurposedPost{
		SourceID:     p.SourceID,
		UserID:       p.UserID,
		Platform:     p.Platform,
		BrandVoiceID: p.BrandVoiceID,
		Hook:         p.Hook,
		Body:         p.Body,
		Hashtags:     append([]string(nil), p.Hashtags...),
		ThreadPosts:  append([]string(nil), p.ThreadPosts...),
	}
	if p.Media != nil {
		m := *p.Media
		c.Media = &m
	}
	c.MarkScheduled(at)
	return c
}

// NormalizeHashtags trims, de-duplicates and prefixes tags with '#'.
func NormalizeHashtags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		t = strings.TrimLeft(t, "#")
		t = strings.ReplaceAll(t, " ", "")
		if t == "" {
			continue
		}
		t = "#" + t
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
