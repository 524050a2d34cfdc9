package http

import (
	"net/http"
	"strings"
	"testing"

	"repurposer/domain/model"
	"repurposer/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func scheduledRouter(uc *mockScheduled) http.Handler {
	r := newRouter()
	h := NewScheduledPostHandler(uc)
	r.GET("/scheduled-posts", h.List)
	r.POST("/scheduled-posts", h.Create)
	r.GET("/scheduled-posts/:id", h.Get)
	r.POST("/scheduled-posts/:id/pause", h.Pause)
	r.POST("/scheduled-posts/:id/resume", h.Resume)
	return r
}

func TestScheduledPostHandler_Create(t *testing.T) {
	uc := new(mockScheduled)
	uc.On("Create", mock.Anything, testTenant, "u1", mock.MatchedBy(func(req usecase.CreateScheduledPostRequest) bool {
		return req.Prompt != nil && *req.Prompt == "tips" && req.Frequency == model.FrequencyWeekly
	})).Return(&model.ScheduledPost{ID: 3, Frequency: model.FrequencyWeekly}, nil)

	w := serve(scheduledRouter(uc), http.MethodPost, "/scheduled-posts",
		strings.NewReader(`{"prompt":"tips","platforms":["linkedin"],"frequency":"weekly","scheduled_time":"2026-10-20T09:00:00Z"}`), "application/json")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":3`)
}

func TestScheduledPostHandler_CreateWithoutTime(t *testing.T) {
	uc := new(mockScheduled)
	w := serve(scheduledRouter(uc), http.MethodPost, "/scheduled-posts", strings.NewReader(`{"post_id":1}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	uc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestScheduledPostHandler_PauseResume(t *testing.T) {
	uc := new(mockScheduled)
	uc.On("Pause", mock.Anything, testTenant, "u1", int64(3)).Return(&model.ScheduledPost{ID: 3, Status: model.ScheduleStatusPaused}, nil)
	uc.On("Resume", mock.Anything, testTenant, "u1", int64(4)).Return(nil, usecase.ErrScheduledPostNotFound)
	uc.On("Resume", mock.Anything, testTenant, "u1", int64(5)).Return(nil, usecase.ErrInvalidSchedule)
	r := scheduledRouter(uc)

	w := serve(r, http.MethodPost, "/scheduled-posts/3/pause", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(model.ScheduleStatusPaused))

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodPost, "/scheduled-posts/4/resume", nil, "").Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/scheduled-posts/5/resume", nil, "").Code)
}

func TestScheduledPostHandler_List(t *testing.T) {
	uc := new(mockScheduled)
	uc.On("List", mock.Anything, testTenant, "u1").Return(nil, nil)
	w := serve(scheduledRouter(uc), http.MethodGet, "/scheduled-posts", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"scheduled_posts":[]}`, w.Body.String())
}
