package utils

import (
	"time"

	"repurposer/infrastructure/logger"

	"github.com/golang-jwt/jwt"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// SignToken signs claims with HS256, the scheme the auth middleware accepts.
// iat is always stamped; a positive ttl sets exp unless the caller did.
func SignToken(claims map[string]interface{}, secretKey string, ttl time.Duration) (string, error) {
	now := GetCurrentTime()
	mapClaims := jwt.MapClaims{"iat": now.Unix()}
	for k, v := range claims {
		mapClaims[k] = v
	}
	if _, ok := mapClaims["exp"]; !ok && ttl > 0 {
		mapClaims["exp"] = now.Add(ttl).Unix()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("signing token failed")
		return "", err
	}
	return token, nil
}
