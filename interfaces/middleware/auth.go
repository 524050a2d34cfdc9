package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const (
	KeyUserID = "user_id"
	KeyTenant = "tenant"
)

// Auth validates the bearer token and stores the user id and tenant schema
// on the context. Users missing from the tenant are rejected.
func Auth(userRepository repository.IUser, secretKey string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authorization := ctx.Request.Header.Get("Authorization")
		auth := strings.SplitN(authorization, "Bearer ", 2)
		if authorization == "" || len(auth) != 2 || auth[1] == "" {
			unauthorized(ctx, "Unauthorized")
			return
		}
		userClaims, token, err := getClaim(auth[1], secretKey)
		if err != nil || token == nil || !token.Valid {
			unauthorized(ctx, reason(err))
			return
		}
		if userClaims.Subject == "" || userClaims.Tenant == "" {
			unauthorized(ctx, "Token is missing subject or tenant")
			return
		}
		tenant := model.Tenant{Schema: userClaims.Tenant}
		if userRepository != nil {
			if _, err := userRepository.GetByID(ctx.Request.Context(), tenant, userClaims.Subject); err != nil {
				logger.GetLogger().WithField("tenant", tenant.Schema).WithField("error", err).Warn("token user not found")
				unauthorized(ctx, "Unauthorized")
				return
			}
		}
		ctx.Set(KeyUserID, userClaims.Subject)
		ctx.Set(KeyTenant, tenant)
		ctx.Next()
	}
}

// TenantFrom returns the tenant stored by Auth.
func TenantFrom(ctx *gin.Context) (model.Tenant, bool) {
	v, ok := ctx.Get(KeyTenant)
	if !ok {
		return model.Tenant{}, false
	}
	t, ok := v.(model.Tenant)
	return t, ok && t.Schema != ""
}

func unauthorized(ctx *gin.Context, msg string) {
	ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

func reason(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		switch {
		case ve.Errors&jwt.ValidationErrorMalformed != 0:
			return "That's not even a token"
		case ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0:
			return "Timing is everything"
		}
		return fmt.Sprintf("Couldn't handle this token: %v", err)
	}
	return "Unauthorized"
}

func getClaim(raw, secretKey string) (model.UserClaims, *jwt.Token, error) {
	var userClaims model.UserClaims
	token, err := jwt.ParseWithClaims(raw, &userClaims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	return userClaims, token, err
}
