package platform

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"repurposer/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPublisher struct{ p model.Platform }

func (s stubPublisher) Platform() model.Platform { return s.p }
func (s stubPublisher) Publish(context.Context, model.PublishRequest) model.PublishResult {
	return model.Published("1", "")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(stubPublisher{model.PlatformTwitter}, nil, stubPublisher{model.PlatformLinkedIn})

	pub, ok := r.Lookup(model.PlatformTwitter)
	require.True(t, ok)
	assert.Equal(t, model.PlatformTwitter, pub.Platform())

	_, ok = r.Lookup(model.PlatformYouTube)
	assert.False(t, ok)
	assert.Equal(t, []model.Platform{model.PlatformLinkedIn, model.PlatformTwitter}, r.Platforms())
}

func TestCheckPublicURL(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"https://cdn.example.com/a.png", true},
		{"http://203.0.113.9/a.png", true},
		{"http://localhost:8000/media/a.png", false},
		{"http://app.localhost/a.png", false},
		{"http://printer.local/a.png", false},
		{"http://127.0.0.1/a.png", false},
		{"http://10.1.2.3/a.png", false},
		{"http://192.168.0.4/a.png", false},
		{"http://169.254.1.1/a.png", false},
		{"http://[::1]/a.png", false},
		{"http://0.0.0.0/a.png", false},
		{"ftp://cdn.example.com/a.png", false},
		{"/media/a.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := CheckPublicURL(tt.url)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestStatusFailure(t *testing.T) {
	res := StatusFailure(http.StatusUnauthorized, `{"message":"expired"}`, "")
	assert.Equal(t, model.ErrorClassAuth, res.ErrorClass)
	assert.Equal(t, `{"message":"expired"}`, res.Error)

	res = StatusFailure(http.StatusTooManyRequests, "", "Publishing failed")
	assert.Equal(t, model.ErrorClassRateLimit, res.ErrorClass)
	assert.Equal(t, "Publishing failed: Too Many Requests", res.Error)

	res = StatusFailure(http.StatusBadRequest, "bad", "")
	assert.Equal(t, model.ErrorClassPlatform, res.ErrorClass)
}

func TestTransportFailure(t *testing.T) {
	res := TransportFailure(model.PlatformLinkedIn, errors.New("dial tcp: connection refused"))
	assert.False(t, res.Success)
	assert.Equal(t, model.ErrorClassTransport, res.ErrorClass)
	assert.NotContains(t, res.Error, "connection refused")
}
