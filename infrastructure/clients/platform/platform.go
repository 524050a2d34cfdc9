package platform

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/infrastructure/logger"
)

const maxBody = 64 << 10

// Registry maps each platform to its adapter. It is built once at startup and
// read concurrently afterwards.
type Registry struct {
	publishers map[model.Platform]repository.IPublisher
}

func NewRegistry(publishers ...repository.IPublisher) *Registry {
	r := &Registry{publishers: make(map[model.Platform]repository.IPublisher, len(publishers))}
	for _, p := range publishers {
		if p != nil {
			r.publishers[p.Platform()] = p
		}
	}
	return r
}

func (r *Registry) Lookup(p model.Platform) (repository.IPublisher, bool) {
	pub, ok := r.publishers[p]
	return pub, ok
}

func (r *Registry) Platforms() []model.Platform {
	out := make([]model.Platform, 0, len(r.publishers))
	for p := range r.publishers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewHTTPClient returns the client adapters share. The timeout bounds the whole
// exchange including reading the body.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// ReadBody drains at most 64KiB of the response and closes it.
func ReadBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	return strings.TrimSpace(string(b))
}

// TransportFailure converts a network-level error into a failed result. The
// user sees a generic message; the cause is logged.
func TransportFailure(p model.Platform, err error) model.PublishResult {
	logger.GetLogger().WithField("platform", p).WithField("error", err).Warn("platform request failed")
	return model.PublishFailure(model.ErrorClassTransport,
		fmt.Sprintf("Could not reach %s (network error or timeout). Please try again later.", p.DisplayName()))
}

// StatusFailure classifies a non-success HTTP status. The message is the raw
// platform text, prefixed when a step name is given.
func StatusFailure(status int, body, step string) model.PublishResult {
	class := model.ErrorClassPlatform
	switch {
	case status == http.StatusUnauthorized:
		class = model.ErrorClassAuth
	case status == http.StatusTooManyRequests:
		class = model.ErrorClassRateLimit
	}
	if body == "" {
		body = http.StatusText(status)
	}
	msg := body
	if step != "" {
		msg = step + ": " + body
	}
	res := model.PublishFailure(class, msg)
	res.Response = body
	return res
}

func Precondition(msg string) model.PublishResult {
	return model.PublishFailure(model.ErrorClassPrecondition, msg)
}
