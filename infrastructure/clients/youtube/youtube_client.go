package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/clients/platform"
	"repurposer/infrastructure/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	defaultTitle    = "Scheduled Post"
	peopleAndBlogs  = "22"
	maxTitleRunes   = 100
	msgNoChannel    = "No YouTube channel linked to this account. Please create a YouTube channel first."
	msgVideoMissing = "Video file is required for YouTube."
)

var defaultTags = []string{"repurposed", "uploadanywhere"}

// Client uploads videos with the Data API on behalf of a connected account.
// A service is built per call because every account brings its own token.
type Client struct {
	endpoint string
	privacy  string
	timeout  time.Duration
	base     *http.Client
	media    repository.IMediaStore
}

// Config represents YouTube upload configuration
type Config struct {
	Endpoint string        `json:"endpoint"`
	Privacy  string        `json:"privacy"`
	Timeout  time.Duration `json:"timeout"`
}

func NewYouTubeClient(config Config, media repository.IMediaStore) *Client {
	privacy := config.Privacy
	if privacy == "" {
		privacy = "private"
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{endpoint: config.Endpoint, privacy: privacy, timeout: timeout, base: http.DefaultClient, media: media}
}

func (c *Client) Platform() model.Platform { return model.PlatformYouTube }

func (c *Client) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.base)
	opts := []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}))),
	}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	return youtube.NewService(ctx, opts...)
}

func (c *Client) Publish(ctx context.Context, req model.PublishRequest) model.PublishResult {
	if req.Media == nil || req.Media.Key == "" {
		return platform.Precondition(msgVideoMissing)
	}
	if req.Media.ContentType != "" && !req.Media.IsVideo() {
		return platform.Precondition(fmt.Sprintf("YouTube requires a video file, got %s.", req.Media.ContentType))
	}
	if c.media == nil {
		return platform.Precondition("Media storage is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	svc, err := c.service(ctx, req.Credentials.AccessToken)
	if err != nil {
		return model.PublishFailure(model.ErrorClassPlatform, fmt.Sprintf("YouTube Error: %v", err))
	}

	file, err := c.media.Open(ctx, req.Media.Key)
	if err != nil {
		return platform.Precondition(fmt.Sprintf("Media file unavailable: %v", err))
	}
	defer file.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       title(req.Content.Hook),
			Description: description(req.Content),
			Tags:        defaultTags,
			CategoryId:  peopleAndBlogs,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: c.privacy,
		},
	}

	contentType := req.Media.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// ChunkSize(0) sends one multipart request instead of a resumable session.
	call := svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file, googleapi.ChunkSize(0), googleapi.ContentType(contentType))

	response, err := call.Context(ctx).Do()
	if err != nil {
		return classify(err)
	}
	return model.Published(response.Id, "https://www.youtube.com/watch?v="+response.Id)
}

// ChannelIdentity returns the id and title of the token owner's channel.
func (c *Client) ChannelIdentity(ctx context.Context, accessToken string) (string, string, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return "", "", err
	}
	response, err := svc.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("failed to get my channel: %w", err)
	}
	if len(response.Items) == 0 {
		return "", "", errors.New(msgNoChannel)
	}
	ch := response.Items[0]
	name := ""
	if ch.Snippet != nil {
		name = ch.Snippet.Title
	}
	return ch.Id, name, nil
}

func classify(err error) model.PublishResult {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return platform.TransportFailure(model.PlatformYouTube, err)
	}
	logger.GetLogger().WithField("code", gerr.Code).WithField("error", gerr.Message).Error("YouTube upload failed")
	for _, item := range gerr.Errors {
		switch item.Reason {
		case "youtubeSignupRequired":
			return model.PublishFailure(model.ErrorClassPlatform, msgNoChannel)
		case "quotaExceeded", "rateLimitExceeded", "uploadLimitExceeded":
			return model.PublishFailure(model.ErrorClassRateLimit, "YouTube Error: "+message(gerr))
		}
	}
	class := model.ErrorClassPlatform
	if gerr.Code == http.StatusUnauthorized {
		class = model.ErrorClassAuth
	}
	res := model.PublishFailure(class, "YouTube Error: "+message(gerr))
	res.Response = gerr.Body
	return res
}

func message(gerr *googleapi.Error) string {
	if gerr.Message != "" {
		return gerr.Message
	}
	if gerr.Body != "" {
		return gerr.Body
	}
	return http.StatusText(gerr.Code)
}

func title(hook string) string {
	t := strings.TrimSpace(hook)
	if t == "" {
		return defaultTitle
	}
	if r := []rune(t); len(r) > maxTitleRunes {
		t = string(r[:maxTitleRunes])
	}
	return t
}

func description(c model.Content) string {
	d := strings.TrimSpace(c.Body)
	if len(c.Hashtags) > 0 {
		d += "\n\n" + strings.Join(c.Hashtags, " ")
	}
	return d
}
