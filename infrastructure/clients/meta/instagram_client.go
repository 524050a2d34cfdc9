package meta

import (
	"context"
	"fmt"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/clients/platform"
)

// InstagramClient publishes a feed image through the container flow. The
// image must be on a host Facebook's servers can fetch.
type InstagramClient struct {
	graph graphClient
}

func NewInstagramClient(baseURL string, timeout time.Duration) *InstagramClient {
	return &InstagramClient{graph: newGraphClient(baseURL, timeout)}
}

func (c *InstagramClient) Platform() model.Platform { return model.PlatformInstagram }

type containerForm struct {
	ImageURL    string `url:"image_url"`
	Caption     string `url:"caption"`
	AccessToken string `url:"access_token"`
}

type publishForm struct {
	CreationID  string `url:"creation_id"`
	AccessToken string `url:"access_token"`
}

func (c *InstagramClient) Publish(ctx context.Context, req model.PublishRequest) model.PublishResult {
	if req.Media == nil || req.Media.PublicURL == "" {
		return platform.Precondition("Instagram requires an image. Please attach an image to this post.")
	}
	if req.Media.IsVideo() {
		return platform.Precondition("Instagram publishing supports images only.")
	}
	if err := platform.CheckPublicURL(req.Media.PublicURL); err != nil {
		return platform.Precondition(fmt.Sprintf("Instagram needs a publicly reachable image URL: %v", err))
	}
	igUser := req.Credentials.PlatformUserID
	token := req.Credentials.AccessToken

	container, failure := c.graph.post(ctx, model.PlatformInstagram, igUser, "media",
		containerForm{ImageURL: req.Media.PublicURL, Caption: req.Content.Text(), AccessToken: token}, "Container creation failed")
	if failure != nil {
		return *failure
	}

	published, failure := c.graph.post(ctx, model.PlatformInstagram, igUser, "media_publish",
		publishForm{CreationID: container.ID, AccessToken: token}, "Publishing failed")
	if failure != nil {
		return *failure
	}
	return model.Published(published.ID, fmt.Sprintf("https://www.instagram.com/p/%s/", published.ID))
}
