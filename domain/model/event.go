package model

import "time"

// PostStatusEvent is broadcast over SSE and to the event sink after every
// publish attempt.
type PostStatusEvent struct {
	Type       string     `json:"type"`
	Tenant     string     `json:"tenant"`
	UserID     string     `json:"user_id"`
	PostID     int64      `json:"post_id"`
	Platform   Platform   `json:"platform"`
	Status     PostStatus `json:"status"`
	URL        *string    `json:"url,omitempty"`
	Error      *string    `json:"error,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
}

func NewPostStatusEvent(tenant Tenant, p *RepurposedPost) PostStatusEvent {
	return PostStatusEvent{
		Type:       "post_status",
		Tenant:     tenant.Schema,
		UserID:     p.UserID,
		PostID:     p.ID,
		Platform:   p.Platform,
		Status:     p.Status,
		URL:        p.PlatformPostURL,
		Error:      p.ErrorMessage,
		OccurredAt: time.Now().UTC(),
	}
}
