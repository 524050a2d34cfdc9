package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/configuration"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrUnsupported is returned for platforms whose tokens cannot be refreshed
// (Facebook and Instagram page tokens are long-lived).
var ErrUnsupported = errors.New("token refresh not supported for platform")

// Refresher exchanges refresh tokens at each platform's token endpoint.
type Refresher struct {
	configs    map[model.Platform]*oauth2.Config
	httpClient *http.Client
}

func NewRefresher(cfg configuration.OAuth, timeout time.Duration) *Refresher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	configs := map[model.Platform]*oauth2.Config{}
	if cfg.Twitter.ClientID != "" {
		configs[model.PlatformTwitter] = &oauth2.Config{
			ClientID:     cfg.Twitter.ClientID,
			ClientSecret: cfg.Twitter.ClientSecret,
			// X confidential clients authenticate with HTTP Basic.
			Endpoint: oauth2.Endpoint{TokenURL: cfg.Twitter.TokenURL, AuthStyle: oauth2.AuthStyleInHeader},
		}
	}
	if cfg.LinkedIn.ClientID != "" {
		configs[model.PlatformLinkedIn] = &oauth2.Config{
			ClientID:     cfg.LinkedIn.ClientID,
			ClientSecret: cfg.LinkedIn.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.LinkedIn.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
		}
	}
	if cfg.Google.ClientID != "" {
		endpoint := google.Endpoint
		if cfg.Google.TokenURL != "" {
			endpoint.TokenURL = cfg.Google.TokenURL
		}
		configs[model.PlatformYouTube] = &oauth2.Config{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Endpoint:     endpoint,
		}
	}
	return &Refresher{configs: configs, httpClient: &http.Client{Timeout: timeout}}
}

func (r *Refresher) Supports(p model.Platform) bool {
	_, ok := r.configs[p]
	return ok
}

// Refresh returns the replacement credential set. A refresh token that was not
// rotated is carried over; a missing lifetime yields a nil expiry.
func (r *Refresher) Refresh(ctx context.Context, p model.Platform, refreshToken string) (*model.TokenUpdate, error) {
	cfg, ok := r.configs[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, p)
	}
	if refreshToken == "" {
		return nil, errors.New("no refresh token stored")
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, r.httpClient)
	tok, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refreshing %s token: %w", p, err)
	}
	upd := &model.TokenUpdate{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if upd.RefreshToken == "" {
		upd.RefreshToken = refreshToken
	}
	if !tok.Expiry.IsZero() {
		exp := tok.Expiry.UTC()
		upd.ExpiresAt = &exp
	}
	return upd, nil
}
