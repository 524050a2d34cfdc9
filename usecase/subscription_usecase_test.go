package usecase

import (
	"testing"

	"repurposer/domain/model"
	"repurposer/infrastructure/configuration"

	"github.com/stretchr/testify/assert"
)

func TestUsageChecker_CanRepurpose(t *testing.T) {
	u := NewUsageChecker(nil)

	assert.NoError(t, u.CanRepurpose(&model.User{Tier: model.TierFree, RepurposesThisMonth: 1}))
	assert.ErrorIs(t, u.CanRepurpose(&model.User{Tier: model.TierFree, RepurposesThisMonth: 2}), ErrUsageLimitReached)
	assert.NoError(t, u.CanRepurpose(&model.User{Tier: model.TierAgency, RepurposesThisMonth: 10000}))
	// unknown tiers fall back to free
	assert.ErrorIs(t, u.CanRepurpose(&model.User{Tier: "legacy", RepurposesThisMonth: 5}), ErrUsageLimitReached)
}

func TestUsageChecker_CanPublish(t *testing.T) {
	u := NewUsageChecker(map[string]configuration.PlanLimits{
		"free": {RepurposesPerMonth: 2, Platforms: []string{"linkedin"}},
		"pro":  {RepurposesPerMonth: 50, DirectPosting: true, Platforms: []string{"LinkedIn", "twitter"}},
	})

	assert.ErrorIs(t, u.CanPublish(&model.User{Tier: model.TierFree}, model.PlatformLinkedIn), ErrDirectPostingNotAllowed)
	assert.NoError(t, u.CanPublish(&model.User{Tier: model.TierPro}, model.PlatformLinkedIn))
	assert.ErrorIs(t, u.CanPublish(&model.User{Tier: model.TierPro}, model.PlatformYouTube), ErrPlatformNotInPlan)
	assert.True(t, u.AllowsPlatform(&model.User{Tier: model.TierFree}, model.PlatformLinkedIn))
	assert.False(t, u.AllowsPlatform(&model.User{Tier: model.TierFree}, model.PlatformTwitter))
}
