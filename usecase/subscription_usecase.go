package usecase

import (
	"fmt"
	"strings"

	"repurposer/domain/model"
	"repurposer/infrastructure/configuration"
)

// UsageChecker applies the per-tier plan limits. Unknown tiers get the free plan.
type UsageChecker struct {
	tiers map[string]configuration.PlanLimits
}

func NewUsageChecker(tiers map[string]configuration.PlanLimits) *UsageChecker {
	if len(tiers) == 0 {
		tiers = configuration.DefaultPlanLimits()
	}
	return &UsageChecker{tiers: tiers}
}

func (u *UsageChecker) Limits(tier model.Tier) configuration.PlanLimits {
	if l, ok := u.tiers[strings.ToLower(string(tier))]; ok {
		return l
	}
	return u.tiers[string(model.TierFree)]
}

// CanRepurpose checks the monthly quota; -1 is unlimited.
func (u *UsageChecker) CanRepurpose(user *model.User) error {
	max := u.Limits(user.Tier).RepurposesPerMonth
	if max == -1 || user.RepurposesThisMonth < max {
		return nil
	}
	return ErrUsageLimitReached
}

func (u *UsageChecker) AllowsPlatform(user *model.User, p model.Platform) bool {
	for _, name := range u.Limits(user.Tier).Platforms {
		if model.Platform(strings.ToLower(name)) == p {
			return true
		}
	}
	return false
}

// CanPublish gates direct posting by tier and platform.
func (u *UsageChecker) CanPublish(user *model.User, p model.Platform) error {
	if !u.Limits(user.Tier).DirectPosting {
		return ErrDirectPostingNotAllowed
	}
	if !u.AllowsPlatform(user, p) {
		return fmt.Errorf("%w: %s", ErrPlatformNotInPlan, p.DisplayName())
	}
	return nil
}
