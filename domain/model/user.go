package model

import (
	"time"

	"github.com/golang-jwt/jwt"
)

type Tier string

const (
	TierFree   Tier = "free"
	TierPro    Tier = "pro"
	TierAgency Tier = "agency"
)

// User is the billing view of an account holder; the core only reads the tier
// and bumps the monthly counter.
type User struct {
	ID                  string    `json:"id"`
	Email               string    `json:"email"`
	Tier                Tier      `json:"tier"`
	RepurposesThisMonth int       `json:"repurposes_this_month"`
	UsageResetAt        time.Time `json:"usage_reset_at"`
	CreatedAt           time.Time `json:"created_at"`
}

// UserClaims is the JWT payload issued by the auth service.
type UserClaims struct {
	jwt.StandardClaims
	UserName string `json:"user_name"`
	Tenant   string `json:"tenant"`
}
