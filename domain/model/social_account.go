package model

import "time"

// SocialAccount is a connected platform identity with its OAuth credentials.
// Accounts are deactivated on disconnect, never deleted.
type SocialAccount struct {
	ID               int64      `json:"id"`
	UserID           string     `json:"user_id"`
	Platform         Platform   `json:"platform"`
	PlatformUserID   string     `json:"platform_user_id"`
	PlatformUsername string     `json:"platform_username"`
	DisplayName      string     `json:"display_name"`
	ProfileURL       string     `json:"profile_url,omitempty"`
	AvatarURL        string     `json:"avatar_url,omitempty"`
	AccessToken      string     `json:"-"`
	RefreshToken     string     `json:"-"`
	TokenExpiresAt   *time.Time `json:"token_expires_at,omitempty"`
	IsActive         bool       `json:"is_active"`
	LastUsedAt       *time.Time `json:"last_used_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TokenExpired reports whether the access token is past its expiry at now.
// A nil expiry never expires.
func (a *SocialAccount) TokenExpired(now time.Time) bool {
	return a.TokenExpiresAt != nil && !a.TokenExpiresAt.After(now)
}

// NeedsRefresh reports whether the token expires within skew of now.
func (a *SocialAccount) NeedsRefresh(now time.Time, skew time.Duration) bool {
	return a.TokenExpiresAt != nil && !a.TokenExpiresAt.After(now.Add(skew))
}

// TokenUpdate is the atomic replacement written after a refresh.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}
