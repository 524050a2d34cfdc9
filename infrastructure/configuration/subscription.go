package configuration

import (
	"os"
	"strings"
)

// PlanLimits are the per-tier usage limits. -1 means unlimited.
type PlanLimits struct {
	RepurposesPerMonth int      `json:"repurposesPerMonth"`
	BrandVoices        int      `json:"brandVoices"`
	DirectPosting      bool     `json:"directPosting"`
	Platforms          []string `json:"platforms"`
}

// Subscription maps tier name to its limits.
type Subscription struct {
	Tiers map[string]PlanLimits `json:"tiers"`
}

// DefaultPlanLimits mirrors the published pricing page.
func DefaultPlanLimits() map[string]PlanLimits {
	return map[string]PlanLimits{
		"free":   {RepurposesPerMonth: 2, BrandVoices: 0, DirectPosting: false, Platforms: []string{"linkedin"}},
		"pro":    {RepurposesPerMonth: 50, BrandVoices: 3, DirectPosting: true, Platforms: []string{"linkedin", "twitter", "youtube", "instagram"}},
		"agency": {RepurposesPerMonth: -1, BrandVoices: -1, DirectPosting: true, Platforms: []string{"linkedin", "twitter", "youtube", "instagram", "facebook"}},
	}
}

func initSubscription(C *Config) {
	defaults := DefaultPlanLimits()
	if C.Subscription.Tiers == nil {
		C.Subscription.Tiers = defaults
		return
	}
	for tier, limits := range defaults {
		if _, ok := C.Subscription.Tiers[tier]; !ok {
			C.Subscription.Tiers[tier] = limits
		}
	}
}

// getConfigValue gets value from environment first, then config, then default
func getConfigValue(configValue, envKey, defaultValue string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	// Otherwise use config value if set and not a placeholder
	if configValue != "" && !strings.HasPrefix(configValue, "YOUR_") {
		return configValue
	}
	return defaultValue
}
