package usecase

import (
	"context"
	"fmt"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/logger"
	"repurposer/infrastructure/metrics"

	"golang.org/x/sync/singleflight"
)

type ICredentialManager interface {
	EnsureValidToken(ctx context.Context, tenant model.Tenant, acc *model.SocialAccount) (string, error)
	Refresh(ctx context.Context, tenant model.Tenant, acc *model.SocialAccount) (string, error)
}

// CredentialManager is the only writer of stored tokens. Concurrent refreshes
// of one account share a single token endpoint call.
type CredentialManager struct {
	accounts  repository.ISocialAccount
	refresher repository.ITokenRefresher
	skew      time.Duration
	now       func() time.Time
	group     singleflight.Group
}

func NewCredentialManager(accounts repository.ISocialAccount, refresher repository.ITokenRefresher, skew time.Duration) *CredentialManager {
	if skew <= 0 {
		skew = time.Minute
	}
	return &CredentialManager{accounts: accounts, refresher: refresher, skew: skew, now: func() time.Time { return time.Now().UTC() }}
}

// EnsureValidToken refreshes tokens that expire within the skew. A token that
// is still valid is used as is when the refresh fails.
func (m *CredentialManager) EnsureValidToken(ctx context.Context, tenant model.Tenant, acc *model.SocialAccount) (string, error) {
	now := m.now()
	if !acc.NeedsRefresh(now, m.skew) {
		return acc.AccessToken, nil
	}
	token, err := m.Refresh(ctx, tenant, acc)
	if err == nil {
		return token, nil
	}
	if !acc.TokenExpired(now) {
		logger.GetLogger().WithField("account_id", acc.ID).WithField("error", err).Warn("token refresh failed; using token until it expires")
		return acc.AccessToken, nil
	}
	return "", err
}

// Refresh exchanges the stored refresh token, persists the replacement set in
// one statement and then updates acc.
func (m *CredentialManager) Refresh(ctx context.Context, tenant model.Tenant, acc *model.SocialAccount) (string, error) {
	if m.refresher == nil || !m.refresher.Supports(acc.Platform) || acc.RefreshToken == "" {
		return "", &ReconnectError{Platform: acc.Platform}
	}
	key := fmt.Sprintf("%s:%d", tenant.Schema, acc.ID)
	v, err, _ := m.group.Do(key, func() (interface{}, error) {
		upd, err := m.refresher.Refresh(ctx, acc.Platform, acc.RefreshToken)
		metrics.ObserveTokenRefresh(acc.Platform, err)
		if err != nil {
			return nil, err
		}
		if err := m.accounts.UpdateTokens(ctx, tenant, acc.ID, *upd); err != nil {
			return nil, fmt.Errorf("storing refreshed token: %w", err)
		}
		return upd, nil
	})
	if err != nil {
		logger.GetLogger().
			WithField("tenant", tenant.Schema).
			WithField("account_id", acc.ID).
			WithField("platform", acc.Platform).
			WithField("error", err).
			Error("Token refresh failed")
		return "", &ReconnectError{Platform: acc.Platform, Cause: err}
	}
	upd := v.(*model.TokenUpdate)
	acc.AccessToken = upd.AccessToken
	acc.RefreshToken = upd.RefreshToken
	acc.TokenExpiresAt = upd.ExpiresAt
	return upd.AccessToken, nil
}
