package usecase

import (
	"context"
	"fmt"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/logger"
)

// IChannelIdentity resolves the YouTube channel behind an access token.
type IChannelIdentity interface {
	ChannelIdentity(ctx context.Context, accessToken string) (id string, title string, err error)
}

type IAccountUsecase interface {
	List(ctx context.Context, tenant model.Tenant, userID string) ([]*model.SocialAccount, error)
	Connect(ctx context.Context, tenant model.Tenant, acc *model.SocialAccount) error
	Disconnect(ctx context.Context, tenant model.Tenant, userID string, platform model.Platform) error
}

type accountUsecase struct {
	accounts repository.ISocialAccount
	channels IChannelIdentity
}

func NewAccountUsecase(accounts repository.ISocialAccount, channels IChannelIdentity) IAccountUsecase {
	return &accountUsecase{accounts: accounts, channels: channels}
}

func (u *accountUsecase) List(ctx context.Context, tenant model.Tenant, userID string) ([]*model.SocialAccount, error) {
	return u.accounts.ListByUser(ctx, tenant, userID)
}

// Connect stores the account from a completed OAuth exchange. YouTube tokens
// do not carry the channel, so it is looked up before saving.
func (u *accountUsecase) Connect(ctx context.Context, tenant model.Tenant, acc *model.SocialAccount) error {
	if acc.UserID == "" || acc.AccessToken == "" {
		return invalid("user and access token are required")
	}
	if acc.Platform == model.PlatformYouTube && acc.PlatformUserID == "" && u.channels != nil {
		id, title, err := u.channels.ChannelIdentity(ctx, acc.AccessToken)
		if err != nil {
			return fmt.Errorf("resolving YouTube channel: %w", err)
		}
		acc.PlatformUserID = id
		if acc.DisplayName == "" {
			acc.DisplayName = title
		}
		if acc.ProfileURL == "" {
			acc.ProfileURL = "https://www.youtube.com/channel/" + id
		}
	}
	if acc.PlatformUserID == "" {
		return invalid("platform user id is required")
	}
	if err := u.accounts.Upsert(ctx, tenant, acc); err != nil {
		return fmt.Errorf("saving %s account: %w", acc.Platform, err)
	}
	logger.GetLogger().
		WithField("tenant", tenant.Schema).
		WithField("account_id", acc.ID).
		WithField("platform", acc.Platform).
		Info("social account connected")
	return nil
}

// Disconnect deactivates every active account of the platform.
func (u *accountUsecase) Disconnect(ctx context.Context, tenant model.Tenant, userID string, platform model.Platform) error {
	n, err := u.accounts.Deactivate(ctx, tenant, userID, platform)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoConnectedAccount
	}
	logger.GetLogger().
		WithField("tenant", tenant.Schema).
		WithField("platform", platform).
		WithField("accounts", n).
		Info("social account disconnected")
	return nil
}
