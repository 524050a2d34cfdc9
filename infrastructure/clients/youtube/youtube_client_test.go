package youtube

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"repurposer/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore map[string]string

func (m memStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	v, ok := m[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(v)), nil
}

func (m memStore) Save(context.Context, string, string, io.Reader) (*model.MediaRef, error) {
	return nil, errors.New("read only")
}

func video() *model.MediaRef {
	return &model.MediaRef{Key: "v/clip.mp4", ContentType: "video/mp4"}
}

func TestPublish_NoMediaMakesNoCalls(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c := NewYouTubeClient(Config{Endpoint: srv.URL + "/"}, memStore{})
	res := c.Publish(context.Background(), model.PublishRequest{Content: model.Content{Body: "b"}})
	assert.False(t, res.Success)
	assert.Equal(t, model.ErrorClassPrecondition, res.ErrorClass)
	assert.Equal(t, msgVideoMissing, res.Error)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestPublish_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/upload/youtube/v3/videos", r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		b, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(b), `"categoryId":"22"`)
		assert.Contains(t, string(b), `"privacyStatus":"unlisted"`)
		assert.Contains(t, string(b), "MP4BYTES")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"abc123"}`))
	}))
	defer srv.Close()

	c := NewYouTubeClient(Config{Endpoint: srv.URL + "/", Privacy: "unlisted", Timeout: time.Second}, memStore{"v/clip.mp4": "MP4BYTES"})
	res := c.Publish(context.Background(), model.PublishRequest{
		Credentials: model.Credentials{AccessToken: "tok"},
		Content:     model.Content{Hook: "My video", Body: "About it"},
		Media:       video(),
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "abc123", res.PlatformID)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc123", res.URL)
}

func TestPublish_NoChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Unauthorized","errors":[{"reason":"youtubeSignupRequired","message":"Unauthorized"}]}}`))
	}))
	defer srv.Close()

	c := NewYouTubeClient(Config{Endpoint: srv.URL + "/"}, memStore{"v/clip.mp4": "x"})
	res := c.Publish(context.Background(), model.PublishRequest{Credentials: model.Credentials{AccessToken: "tok"}, Media: video()})
	assert.False(t, res.Success)
	assert.Equal(t, msgNoChannel, res.Error)
}

func TestPublish_Quota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota","errors":[{"reason":"quotaExceeded"}]}}`))
	}))
	defer srv.Close()

	c := NewYouTubeClient(Config{Endpoint: srv.URL + "/"}, memStore{"v/clip.mp4": "x"})
	res := c.Publish(context.Background(), model.PublishRequest{Credentials: model.Credentials{AccessToken: "tok"}, Media: video()})
	assert.Equal(t, model.ErrorClassRateLimit, res.ErrorClass)
	assert.Equal(t, "YouTube Error: quota", res.Error)
}

func TestPublish_RejectsImage(t *testing.T) {
	c := NewYouTubeClient(Config{}, memStore{})
	res := c.Publish(context.Background(), model.PublishRequest{Media: &model.MediaRef{Key: "a.png", ContentType: "image/png"}})
	assert.Equal(t, model.ErrorClassPrecondition, res.ErrorClass)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Scheduled Post", title("  "))
	assert.Equal(t, "Hook", title("Hook"))
	assert.Len(t, []rune(title(strings.Repeat("é", 150))), 100)
}
