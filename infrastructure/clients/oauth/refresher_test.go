package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/configuration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefresh_TwitterUsesBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "cid", user)
		assert.Equal(t, "secret", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-rt", r.PostForm.Get("refresh_token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"new-at","refresh_token":"new-rt","expires_in":7200,"token_type":"bearer"}`))
	}))
	defer srv.Close()

	r := NewRefresher(configuration.OAuth{Twitter: configuration.OAuthClient{ClientID: "cid", ClientSecret: "secret", TokenURL: srv.URL}}, time.Second)
	require.True(t, r.Supports(model.PlatformTwitter))

	before := time.Now()
	upd, err := r.Refresh(context.Background(), model.PlatformTwitter, "old-rt")
	require.NoError(t, err)
	assert.Equal(t, "new-at", upd.AccessToken)
	assert.Equal(t, "new-rt", upd.RefreshToken)
	require.NotNil(t, upd.ExpiresAt)
	assert.WithinDuration(t, before.Add(2*time.Hour), *upd.ExpiresAt, 5*time.Second)
}

func TestRefresh_KeepsRefreshTokenWhenNotRotated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "li-id", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at2","token_type":"bearer"}`))
	}))
	defer srv.Close()

	r := NewRefresher(configuration.OAuth{LinkedIn: configuration.OAuthClient{ClientID: "li-id", ClientSecret: "s", TokenURL: srv.URL}}, time.Second)
	upd, err := r.Refresh(context.Background(), model.PlatformLinkedIn, "keep-me")
	require.NoError(t, err)
	assert.Equal(t, "keep-me", upd.RefreshToken)
	assert.Nil(t, upd.ExpiresAt)
}

func TestRefresh_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_request","error_description":"Value passed for the token was invalid."}`))
	}))
	defer srv.Close()

	r := NewRefresher(configuration.OAuth{Twitter: configuration.OAuthClient{ClientID: "cid", TokenURL: srv.URL}}, time.Second)
	_, err := r.Refresh(context.Background(), model.PlatformTwitter, "rt")
	assert.Error(t, err)
}

func TestRefresh_Unsupported(t *testing.T) {
	r := NewRefresher(configuration.OAuth{}, time.Second)
	assert.False(t, r.Supports(model.PlatformFacebook))
	_, err := r.Refresh(context.Background(), model.PlatformFacebook, "rt")
	assert.True(t, errors.Is(err, ErrUnsupported))
}
