package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/clients/platform"
	"repurposer/infrastructure/logger"
)

const DefaultBaseURL = "https://api.twitter.com"

const (
	msgMonthlyCap = "X monthly posting cap exceeded for this app. Posting resumes when the cap resets next month."
	msgRateLimit  = "X rate limit reached. Please try again later."
	msgReconnect  = "X authorization failed. Please reconnect your X account."
)

var usageCapMarkers = []string{"usagecapexceeded", "usage cap", "monthly cap"}

// Client posts through the v2 tweets endpoint with an OAuth2 user token.
// Media upload needs the v1.1 endpoint, which OAuth2 PKCE tokens cannot
// drive, so media is dropped and the text is posted alone.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewTwitterClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: platform.NewHTTPClient(timeout)}
}

func (c *Client) Platform() model.Platform { return model.PlatformTwitter }

func (c *Client) Publish(ctx context.Context, req model.PublishRequest) model.PublishResult {
	if req.Media != nil && req.Media.Key != "" {
		logger.GetLogger().WithField("media", req.Media.Key).Info("X media upload unsupported with OAuth2 tokens; posting text only")
	}

	segments := req.Content.ThreadPosts
	if len(segments) < 2 {
		segments = []string{req.Content.Text()}
	}

	token := req.Credentials.AccessToken
	refreshed := false
	var first, previous string
	for i, segment := range segments {
		res := c.tweet(ctx, token, segment, previous)
		if res.ErrorClass == model.ErrorClassAuth && !refreshed && req.Credentials.Refresh != nil {
			refreshed = true
			newToken, err := req.Credentials.Refresh(ctx)
			if err != nil {
				return model.PublishFailure(model.ErrorClassAuth, err.Error())
			}
			token = newToken
			res = c.tweet(ctx, token, segment, previous)
		}
		if !res.Success {
			if res.ErrorClass == model.ErrorClassAuth {
				res.Error = msgReconnect
			}
			if i > 0 {
				res.Error = fmt.Sprintf("Thread stopped after %d of %d posts: %s", i, len(segments), res.Error)
			}
			return res
		}
		if first == "" {
			first = res.PlatformID
		}
		previous = res.PlatformID
	}
	return model.Published(first, fmt.Sprintf("https://twitter.com/user/status/%s", first))
}

func (c *Client) tweet(ctx context.Context, token, text, replyTo string) model.PublishResult {
	payload := tweetRequest{Text: text}
	if replyTo != "" {
		payload.Reply = &tweetReply{InReplyToTweetID: replyTo}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return model.PublishFailure(model.ErrorClassPlatform, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(b))
	if err != nil {
		return platform.TransportFailure(model.PlatformTwitter, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return platform.TransportFailure(model.PlatformTwitter, err)
	}
	body := platform.ReadBody(resp)
	switch resp.StatusCode {
	case http.StatusCreated:
		var created tweetResponse
		if err := json.Unmarshal([]byte(body), &created); err != nil || created.Data.ID == "" {
			return model.PublishFailure(model.ErrorClassPlatform, "Unexpected X response: "+body)
		}
		res := model.Published(created.Data.ID, "")
		res.Response = body
		return res
	case http.StatusForbidden, http.StatusTooManyRequests:
		if isUsageCap(body) {
			res := model.PublishFailure(model.ErrorClassRateLimit, msgMonthlyCap)
			res.Response = body
			return res
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			res := model.PublishFailure(model.ErrorClassRateLimit, msgRateLimit)
			res.Response = body
			return res
		}
		res := model.PublishFailure(model.ErrorClassPlatform, "X rejected the post: "+body)
		res.Response = body
		return res
	}
	logger.GetLogger().WithField("status", resp.StatusCode).WithField("body", body).Warn("X posting failed")
	return platform.StatusFailure(resp.StatusCode, body, "")
}

func isUsageCap(body string) bool {
	lower := strings.ToLower(body)
	for _, m := range usageCapMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}
