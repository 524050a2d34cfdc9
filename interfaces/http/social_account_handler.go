package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/logger"
	"repurposer/infrastructure/utils"
	"repurposer/usecase"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"
)

const stateTTL = 10 * time.Minute

type ISocialAccountHandler interface {
	List(ctx *gin.Context)
	Disconnect(ctx *gin.Context)
	YouTubeAuthURL(ctx *gin.Context)
	YouTubeCallback(ctx *gin.Context)
}

type SocialAccountHandler struct {
	accounts  usecase.IAccountUsecase
	youtube   *oauth2.Config
	secretKey string
}

func NewSocialAccountHandler(accounts usecase.IAccountUsecase, youtubeOAuth *oauth2.Config, secretKey string) ISocialAccountHandler {
	return &SocialAccountHandler{accounts: accounts, youtube: youtubeOAuth, secretKey: secretKey}
}

// YouTubeOAuthConfig builds the offline-access config used to connect channels.
func YouTubeOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			youtube.YoutubeReadonlyScope,
			youtube.YoutubeUploadScope,
		},
		Endpoint: google.Endpoint,
	}
}

func (h *SocialAccountHandler) List(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	list, err := h.accounts.List(ctx.Request.Context(), tenant, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if list == nil {
		list = []*model.SocialAccount{}
	}
	ctx.JSON(http.StatusOK, gin.H{"accounts": list})
}

func (h *SocialAccountHandler) Disconnect(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	p, valid := model.ParsePlatform(ctx.Param("platform"))
	if !valid {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unknown platform"})
		return
	}
	if err := h.accounts.Disconnect(ctx.Request.Context(), tenant, userID, p); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%s disconnected.", p.DisplayName())})
}

// YouTubeAuthURL returns the consent URL. The state is a short-lived signed
// token naming the user and tenant, so the callback needs no session.
func (h *SocialAccountHandler) YouTubeAuthURL(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	if h.youtube == nil || h.youtube.ClientID == "" {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "YouTube connection is not configured"})
		return
	}
	state, err := utils.SignToken(map[string]interface{}{
		"sub":    userID,
		"tenant": tenant.Schema,
	}, h.secretKey, stateTTL)
	if err != nil {
		respondError(ctx, err)
		return
	}
	authURL := h.youtube.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	ctx.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

func (h *SocialAccountHandler) YouTubeCallback(ctx *gin.Context) {
	if errorParam := ctx.Query("error"); errorParam != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       fmt.Sprintf("OAuth error: %s", errorParam),
			"description": ctx.Query("error_description"),
		})
		return
	}
	claims, err := h.parseState(ctx.Query("state"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired state"})
		return
	}
	code := ctx.Query("code")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Authorization code not found"})
		return
	}
	token, err := h.youtube.Exchange(ctx.Request.Context(), code)
	if err != nil {
		logger.GetLogger().WithField("user_id", claims.Subject).WithField("error", err).Warn("youtube code exchange failed")
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "Failed to exchange code for token"})
		return
	}
	acc := &model.SocialAccount{
		UserID:       claims.Subject,
		Platform:     model.PlatformYouTube,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		exp := token.Expiry.UTC()
		acc.TokenExpiresAt = &exp
	}
	tenant := model.Tenant{Schema: claims.Tenant}
	if err := h.accounts.Connect(ctx.Request.Context(), tenant, acc); err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true, "account": acc})
}

func (h *SocialAccountHandler) parseState(state string) (*model.UserClaims, error) {
	if state == "" {
		return nil, errors.New("state missing")
	}
	var claims model.UserClaims
	token, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(h.secretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("parsing state: %w", err)
	}
	if claims.Subject == "" || claims.Tenant == "" {
		return nil, errors.New("state missing subject or tenant")
	}
	return &claims, nil
}
