package model

import "strings"

// Platform identifies a social network a post targets or an account belongs to.
type Platform string

const (
	PlatformLinkedIn   Platform = "linkedin"
	PlatformTwitter    Platform = "twitter"
	PlatformYouTube    Platform = "youtube"
	PlatformInstagram  Platform = "instagram"
	PlatformFacebook   Platform = "facebook"
	PlatformNewsletter Platform = "newsletter"
)

var displayNames = map[Platform]string{
	PlatformLinkedIn:   "LinkedIn",
	PlatformTwitter:    "X (Twitter)",
	PlatformYouTube:    "YouTube",
	PlatformInstagram:  "Instagram",
	PlatformFacebook:   "Facebook",
	PlatformNewsletter: "Newsletter",
}

// ParsePlatform normalises user input ("Twitter", " x ") into a Platform.
func ParsePlatform(s string) (Platform, bool) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if p == "x" {
		p = PlatformTwitter
	}
	_, ok := displayNames[p]
	return p, ok
}

func (p Platform) DisplayName() string {
	if n, ok := displayNames[p]; ok {
		return n
	}
	return string(p)
}

// Publishable reports whether the platform has a direct-posting adapter.
func (p Platform) Publishable() bool {
	switch p {
	case PlatformLinkedIn, PlatformTwitter, PlatformYouTube, PlatformInstagram, PlatformFacebook:
		return true
	}
	return false
}

// RequiresMedia reports whether a post cannot be published without media.
func (p Platform) RequiresMedia() bool {
	return p == PlatformYouTube || p == PlatformInstagram
}
