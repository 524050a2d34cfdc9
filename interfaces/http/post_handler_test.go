package http

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
	"time"

	"repurposer/domain/model"
	"repurposer/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func postRouter(posts *mockRepurpose, pub *mockPublisher) *gin.Engine {
	r := newRouter()
	h := NewPostHandler(posts, pub)
	r.GET("/posts", h.List)
	r.GET("/posts/:id", h.Get)
	r.GET("/posts/:id/logs", h.Logs)
	r.POST("/posts/:id/publish", h.Publish)
	r.POST("/posts/:id/schedule", h.Schedule)
	r.POST("/posts/:id/recurrence", h.SetRecurrence)
	r.POST("/posts/:id/media", h.UploadMedia)
	return r
}

func TestPostHandler_PublishSuccess(t *testing.T) {
	posts, pub := new(mockRepurpose), new(mockPublisher)
	post := &model.RepurposedPost{ID: 7, UserID: "u1", Platform: model.PlatformLinkedIn, Status: model.PostStatusPublished}
	posts.On("GetPost", mock.Anything, testTenant, "u1", int64(7)).Return(post, nil)
	pub.On("PublishPost", mock.Anything, testTenant, int64(7), mock.MatchedBy(func(id *int64) bool { return id != nil && *id == 3 })).
		Return(&usecase.PublishOutcome{Success: true, Message: "Post published successfully.", Post: post}, nil)

	w := serve(postRouter(posts, pub), http.MethodPost, "/posts/7/publish", strings.NewReader(`{"social_account_id":3}`), "application/json")

	require.Equal(t, http.StatusOK, w.Code)
	var body usecase.PublishOutcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "Post published successfully.", body.Message)
	pub.AssertExpectations(t)
}

func TestPostHandler_PublishFailureIsBadRequest(t *testing.T) {
	posts, pub := new(mockRepurpose), new(mockPublisher)
	post := &model.RepurposedPost{ID: 7, UserID: "u1", Platform: model.PlatformYouTube, Status: model.PostStatusFailed}
	posts.On("GetPost", mock.Anything, testTenant, "u1", int64(7)).Return(post, nil)
	pub.On("PublishPost", mock.Anything, testTenant, int64(7), (*int64)(nil)).
		Return(&usecase.PublishOutcome{Success: false, Message: "Video file is required for YouTube.", Post: post}, nil)

	w := serve(postRouter(posts, pub), http.MethodPost, "/posts/7/publish", nil, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Video file is required for YouTube.")
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestPostHandler_PublishErrors(t *testing.T) {
	tests := []struct {
		name     string
		getErr   error
		pubErr   error
		wantCode int
	}{
		{"someone else's post", usecase.ErrPostNotFound, nil, http.StatusNotFound},
		{"not publishable", nil, usecase.ErrPostNotPublishable, http.StatusBadRequest},
		{"plan gate", nil, usecase.ErrDirectPostingNotAllowed, http.StatusForbidden},
		{"invalid account", nil, usecase.ErrInvalidAccount, http.StatusBadRequest},
		{"already publishing", nil, usecase.ErrPublishInProgress, http.StatusConflict},
		{"storage failure", nil, assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, pub := new(mockRepurpose), new(mockPublisher)
			if tt.getErr != nil {
				posts.On("GetPost", mock.Anything, testTenant, "u1", int64(7)).Return(nil, tt.getErr)
			} else {
				posts.On("GetPost", mock.Anything, testTenant, "u1", int64(7)).Return(&model.RepurposedPost{ID: 7}, nil)
				pub.On("PublishPost", mock.Anything, testTenant, int64(7), (*int64)(nil)).Return(nil, tt.pubErr)
			}
			w := serve(postRouter(posts, pub), http.MethodPost, "/posts/7/publish", nil, "")
			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), assert.AnError.Error())
			}
			if tt.getErr != nil {
				pub.AssertNotCalled(t, "PublishPost", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestPostHandler_BadID(t *testing.T) {
	w := serve(postRouter(new(mockRepurpose), new(mockPublisher)), http.MethodGet, "/posts/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostHandler_Schedule(t *testing.T) {
	posts := new(mockRepurpose)
	at := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	posts.On("SchedulePost", mock.Anything, testTenant, "u1", int64(5), mock.MatchedBy(func(t time.Time) bool { return t.Equal(at) })).
		Return(&model.RepurposedPost{ID: 5, Status: model.PostStatusScheduled, ScheduledFor: &at}, nil)
	r := postRouter(posts, new(mockPublisher))

	w := serve(r, http.MethodPost, "/posts/5/schedule", strings.NewReader(`{"scheduled_for":"2026-10-20T09:00:00Z"}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"scheduled"`)

	w = serve(r, http.MethodPost, "/posts/5/schedule", strings.NewReader(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostHandler_ScheduleInPast(t *testing.T) {
	posts := new(mockRepurpose)
	posts.On("SchedulePost", mock.Anything, testTenant, "u1", int64(5), mock.Anything).Return(nil, usecase.ErrInvalidSchedule)
	w := serve(postRouter(posts, new(mockPublisher)), http.MethodPost, "/posts/5/schedule", strings.NewReader(`{"scheduled_for":"2020-01-01T00:00:00Z"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostHandler_SetRecurrence(t *testing.T) {
	posts := new(mockRepurpose)
	posts.On("SetRecurrence", mock.Anything, testTenant, "u1", int64(5), mock.MatchedBy(func(r *model.Recurrence) bool {
		return r != nil && r.Pattern == model.RecurrenceWeekly && len(r.Days) == 3 && r.Time == "09:00" && r.Timezone == "Europe/Berlin"
	})).Return(&model.RepurposedPost{ID: 5}, nil).Once()
	posts.On("SetRecurrence", mock.Anything, testTenant, "u1", int64(5), (*model.Recurrence)(nil)).Return(&model.RepurposedPost{ID: 5}, nil).Once()
	r := postRouter(posts, new(mockPublisher))

	w := serve(r, http.MethodPost, "/posts/5/recurrence", strings.NewReader(`{"pattern":"weekly","days":[0,2,4],"time":"09:00","timezone":"Europe/Berlin"}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	w = serve(r, http.MethodPost, "/posts/5/recurrence", strings.NewReader(`{"clear":true}`), "application/json")
	assert.Equal(t, http.StatusOK, w.Code)
	posts.AssertExpectations(t)
}

func TestPostHandler_UploadMedia(t *testing.T) {
	posts := new(mockRepurpose)
	posts.On("AttachMedia", mock.Anything, testTenant, "u1", int64(5), "cover.png", "application/octet-stream", "png-bytes").
		Return(&model.RepurposedPost{ID: 5, Media: &model.MediaRef{Key: "media/u1/x.png"}}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cover.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	w := serve(postRouter(posts, new(mockPublisher)), http.MethodPost, "/posts/5/media", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "media/u1/x.png")
	posts.AssertExpectations(t)
}

func TestPostHandler_ListAndLogs(t *testing.T) {
	posts := new(mockRepurpose)
	posts.On("ListPosts", mock.Anything, testTenant, "u1", 20).Return(nil, nil)
	posts.On("ListPostingLogs", mock.Anything, testTenant, "u1", int64(5)).
		Return([]*model.PostingLog{{ID: 1, PostID: 5, Status: model.PostingLogSuccess}}, nil)
	r := postRouter(posts, new(mockPublisher))

	w := serve(r, http.MethodGet, "/posts?limit=20", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"posts":[]}`, w.Body.String())

	w = serve(r, http.MethodGet, "/posts/5/logs", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"post_id":5`)
}

func TestIdentityRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewPostHandler(new(mockRepurpose), new(mockPublisher))
	r.GET("/posts", h.List)
	w := serve(r, http.MethodGet, "/posts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
