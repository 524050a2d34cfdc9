package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/clients/platform"
	"repurposer/infrastructure/logger"
)

const DefaultBaseURL = "https://api.linkedin.com"

// Client publishes to a member feed through the UGC Posts API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	media      repository.IMediaStore
}

func NewLinkedInClient(baseURL string, timeout time.Duration, media repository.IMediaStore) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: platform.NewHTTPClient(timeout), media: media}
}

func (c *Client) Platform() model.Platform { return model.PlatformLinkedIn }

func (c *Client) Publish(ctx context.Context, req model.PublishRequest) model.PublishResult {
	author := authorURN(req.Credentials.PlatformUserID)
	token := req.Credentials.AccessToken

	var asset string
	if req.Media != nil && req.Media.Key != "" {
		var failure *model.PublishResult
		asset, failure = c.uploadImage(ctx, token, author, req.Media)
		if failure != nil {
			return *failure
		}
	}

	share := shareContent{
		ShareCommentary:    text{Text: req.Content.Text()},
		ShareMediaCategory: "NONE",
	}
	if asset != "" {
		share.ShareMediaCategory = "IMAGE"
		share.Media = []shareMedia{{Status: "READY", Description: text{Text: "Image"}, Media: asset, Title: text{Text: "Image"}}}
	}
	payload := ugcPost{
		Author:          author,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]shareContent{"com.linkedin.ugc.ShareContent": share},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}

	resp, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v2/ugcPosts", token, payload)
	if err != nil {
		return platform.TransportFailure(model.PlatformLinkedIn, err)
	}
	restliID := resp.Header.Get("X-RestLi-Id")
	body := platform.ReadBody(resp)
	if resp.StatusCode != http.StatusCreated {
		logger.GetLogger().WithField("status", resp.StatusCode).WithField("body", body).Error("LinkedIn posting failed")
		return platform.StatusFailure(resp.StatusCode, body, "")
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal([]byte(body), &created)
	id := created.ID
	if id == "" {
		id = restliID
	}
	res := model.Published(id, fmt.Sprintf("https://www.linkedin.com/feed/update/%s/", id))
	res.Response = body
	return res
}

// uploadImage runs register-upload then the binary PUT. Any failure aborts the
// publish; a post is never created without the requested image.
func (c *Client) uploadImage(ctx context.Context, token, author string, media *model.MediaRef) (string, *model.PublishResult) {
	if c.media == nil {
		f := platform.Precondition("Media storage is not configured")
		return "", &f
	}
	reg := registerUploadRequest{}
	reg.RegisterUploadRequest.Recipes = []string{"urn:li:digitalmediaRecipe:feedshare-image"}
	reg.RegisterUploadRequest.Owner = author
	reg.RegisterUploadRequest.ServiceRelationships = []serviceRelationship{{RelationshipType: "OWNER", Identifier: "urn:li:userGeneratedContent"}}

	resp, err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/v2/assets?action=registerUpload", token, reg)
	if err != nil {
		f := platform.TransportFailure(model.PlatformLinkedIn, err)
		return "", &f
	}
	body := platform.ReadBody(resp)
	if resp.StatusCode != http.StatusOK {
		logger.GetLogger().WithField("body", body).Error("LinkedIn upload registration failed")
		f := platform.StatusFailure(resp.StatusCode, body, "Image registration failed")
		return "", &f
	}
	var registered registerUploadResponse
	if err := json.Unmarshal([]byte(body), &registered); err != nil || registered.uploadURL() == "" || registered.Value.Asset == "" {
		f := model.PublishFailure(model.ErrorClassPlatform, "Image registration failed: "+body)
		return "", &f
	}

	rc, err := c.media.Open(ctx, media.Key)
	if err != nil {
		f := platform.Precondition(fmt.Sprintf("Media file unavailable: %v", err))
		return "", &f
	}
	defer rc.Close()

	put, err := http.NewRequestWithContext(ctx, http.MethodPut, registered.uploadURL(), rc)
	if err != nil {
		f := platform.TransportFailure(model.PlatformLinkedIn, err)
		return "", &f
	}
	put.Header.Set("Authorization", "Bearer "+token)
	if media.ContentType != "" {
		put.Header.Set("Content-Type", media.ContentType)
	}
	upResp, err := c.httpClient.Do(put)
	if err != nil {
		f := platform.TransportFailure(model.PlatformLinkedIn, err)
		return "", &f
	}
	upBody := platform.ReadBody(upResp)
	if upResp.StatusCode != http.StatusCreated && upResp.StatusCode != http.StatusOK {
		logger.GetLogger().WithField("body", upBody).Error("LinkedIn binary upload failed")
		f := platform.StatusFailure(upResp.StatusCode, upBody, "Image upload failed")
		return "", &f
	}
	return registered.Value.Asset, nil
}

func (c *Client) doJSON(ctx context.Context, method, url, token string, payload interface{}) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
	return c.httpClient.Do(req)
}

func authorURN(id string) string {
	if strings.HasPrefix(id, "urn:li:") {
		return id
	}
	return "urn:li:person:" + id
}
