package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/logger"

	generativelanguage "google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

const (
	defaultModel   = "gemini-1.5-flash"
	maxSourceChars = 25000
	hookFallback   = 50
)

// Config represents the Gemini connection settings
type Config struct {
	APIKey   string        `json:"apiKey"`
	Model    string        `json:"model"`
	Endpoint string        `json:"endpoint"`
	Timeout  time.Duration `json:"timeout"`
}

// Client generates platform posts with Gemini in JSON mode.
type Client struct {
	svc     *generativelanguage.Service
	model   string
	timeout time.Duration
}

func NewGeminiClient(ctx context.Context, config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout, Transport: apiKeyTransport{key: config.APIKey, base: http.DefaultTransport}}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if config.Endpoint != "" {
		endpoint := config.Endpoint
		if !strings.HasSuffix(endpoint, "/") {
			endpoint += "/"
		}
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating generative language service: %w", err)
	}
	name := config.Model
	if name == "" {
		name = defaultModel
	}
	return &Client{svc: svc, model: "models/" + strings.TrimPrefix(name, "models/"), timeout: timeout}, nil
}

// apiKeyTransport authenticates with the key header; a custom HTTP client
// bypasses option.WithAPIKey.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t apiKeyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("X-Goog-Api-Key", t.key)
	return t.base.RoundTrip(r)
}

func (c *Client) Generate(ctx context.Context, req repository.GenerateRequest) (*model.Generated, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.svc.Models.GenerateContent(c.model, &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: BuildPrompt(req)}},
		}},
		GenerationConfig: &generativelanguage.GenerationConfig{
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	})
	resp, err := call.Context(ctx).Do()
	if err != nil {
		logger.GetLogger().WithField("platform", req.Platform).WithField("error", err).Error("Gemini generation failed")
		return nil, fmt.Errorf("generating %s post: %w", req.Platform, err)
	}
	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("generating %s post: empty response", req.Platform)
	}
	return ParseGenerated(text, req.Platform), nil
}

func responseText(resp *generativelanguage.GenerateContentResponse) string {
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		var sb strings.Builder
		for _, p := range cand.Content.Parts {
			if p != nil {
				sb.WriteString(p.Text)
			}
		}
		if sb.Len() > 0 {
			return sb.String()
		}
	}
	return ""
}

// ParseGenerated decodes the model's JSON. Output that is not JSON becomes the
// post body with a truncated hook.
func ParseGenerated(text string, p model.Platform) *model.Generated {
	g := &model.Generated{}
	if err := json.Unmarshal([]byte(stripFence(text)), g); err != nil {
		hook := text
		if r := []rune(text); len(r) > hookFallback {
			hook = string(r[:hookFallback])
		}
		return &model.Generated{Content: text, Hook: hook + "..."}
	}
	g.Hashtags = model.NormalizeHashtags(g.Hashtags)
	if p != model.PlatformTwitter {
		g.ThreadPosts = nil
	}
	return g
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// BuildPrompt asks for a JSON object with hook, content, hashtags and, for
// twitter only, thread_posts.
func BuildPrompt(req repository.GenerateRequest) string {
	content := req.Content
	if r := []rune(content); len(r) > maxSourceChars {
		content = string(r[:maxSourceChars])
	}
	var sb strings.Builder
	sb.WriteString("You are an expert social media manager. I will provide you with content.\n")
	fmt.Fprintf(&sb, "Your task is to repurpose this into a high-quality post for %s.\n", req.Platform.DisplayName())
	if v := req.BrandVoice; v != nil {
		fmt.Fprintf(&sb, "Use the following brand voice/style: %s. %s\n", v.Name, v.Description)
		if v.GeneratedPrompt != "" {
			sb.WriteString(v.GeneratedPrompt + "\n")
		}
	}
	if req.Instruction != "" {
		sb.WriteString(req.Instruction + "\n")
	}
	sb.WriteString(`
Return the result strictly as a valid JSON object with the following schema:
{
  "hook": "Attention grabbing opening line",
  "content": "The main body of the post",
  "hashtags": ["tag1", "tag2"],
  "thread_posts": ["tweet 1", "tweet 2"]
}
`)
	if req.Platform == model.PlatformTwitter {
		sb.WriteString("Include thread_posts when the content needs more than one tweet.\n")
	} else {
		sb.WriteString("Set thread_posts to null.\n")
	}
	fmt.Fprintf(&sb, "\nHere is the content:\n%q\n", content)
	return sb.String()
}
