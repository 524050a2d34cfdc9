package meta

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/clients/platform"
)

// FacebookClient posts to a Page with a Page access token. Posts with an image
// go to the photos edge, all others to the feed edge.
type FacebookClient struct {
	graph graphClient
}

func NewFacebookClient(baseURL string, timeout time.Duration) *FacebookClient {
	return &FacebookClient{graph: newGraphClient(baseURL, timeout)}
}

func (c *FacebookClient) Platform() model.Platform { return model.PlatformFacebook }

type feedForm struct {
	Message     string `url:"message"`
	AccessToken string `url:"access_token"`
}

type photoForm struct {
	URL         string `url:"url"`
	Caption     string `url:"caption"`
	AccessToken string `url:"access_token"`
}

func (c *FacebookClient) Publish(ctx context.Context, req model.PublishRequest) model.PublishResult {
	page := req.Credentials.PlatformUserID
	token := req.Credentials.AccessToken
	text := req.Content.Text()

	var (
		out     graphID
		failure *model.PublishResult
	)
	if req.Media != nil && req.Media.PublicURL != "" && !req.Media.IsVideo() {
		if err := platform.CheckPublicURL(req.Media.PublicURL); err != nil {
			return platform.Precondition(fmt.Sprintf("Facebook needs a publicly reachable image URL: %v", err))
		}
		out, failure = c.graph.post(ctx, model.PlatformFacebook, page, "photos",
			photoForm{URL: req.Media.PublicURL, Caption: text, AccessToken: token}, "Facebook photo post failed")
	} else {
		out, failure = c.graph.post(ctx, model.PlatformFacebook, page, "feed",
			feedForm{Message: text, AccessToken: token}, "Facebook post failed")
	}
	if failure != nil {
		return *failure
	}

	id := out.ID
	if out.PostID != "" {
		id = out.PostID
	}
	return model.Published(id, facebookURL(id))
}

// facebookURL turns "<page>_<post>" into a permalink.
func facebookURL(id string) string {
	if page, post, ok := strings.Cut(id, "_"); ok {
		return fmt.Sprintf("https://www.facebook.com/%s/posts/%s", page, post)
	}
	return "https://www.facebook.com/" + id
}
