package model

import "time"

type PostingLogStatus string

const (
	PostingLogSuccess     PostingLogStatus = "success"
	PostingLogFailed      PostingLogStatus = "failed"
	PostingLogRateLimited PostingLogStatus = "rate_limited"
)

// PostingLog is an append-only audit row per publish attempt
type PostingLog struct {
	ID               int64            `json:"id" bson:"id"`
	Tenant           string           `json:"tenant" bson:"tenant"`
	SocialAccountID  *int64           `json:"social_account_id,omitempty" bson:"socialAccountId,omitempty"`
	PostID           int64            `json:"post_id" bson:"postId"`
	Platform         Platform         `json:"platform" bson:"platform"`
	Status           PostingLogStatus `json:"status" bson:"status"`
	ErrorClass       ErrorClass       `json:"error_class,omitempty" bson:"errorClass,omitempty"`
	ErrorMessage     *string          `json:"error_message,omitempty" bson:"errorMessage,omitempty"`
	PlatformResponse string           `json:"platform_response,omitempty" bson:"platformResponse,omitempty"`
	CreatedAt        time.Time        `json:"created_at" bson:"createdAt"`
}

// LogStatusFor maps an adapter result onto the audit status.
func LogStatusFor(r PublishResult) PostingLogStatus {
	switch {
	case r.Success:
		return PostingLogSuccess
	case r.ErrorClass == ErrorClassRateLimit:
		return PostingLogRateLimited
	}
	return PostingLogFailed
}
