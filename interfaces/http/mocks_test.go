package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"repurposer/domain/model"
	"repurposer/domain/repository"
	"repurposer/interfaces/middleware"
	"repurposer/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
)

var testTenant = model.Tenant{Schema: "acme"}

// asUser stands in for the auth middleware.
func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.KeyUserID, userID)
		c.Set(middleware.KeyTenant, testTenant)
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(asUser("u1"))
	return r
}

func serve(r http.Handler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type mockRepurpose struct {
	mock.Mock
}

func (m *mockRepurpose) Submit(ctx context.Context, tenant model.Tenant, userID string, req usecase.RepurposeRequest) (*usecase.RepurposeResult, error) {
	args := m.Called(ctx, tenant, userID, req)
	res, _ := args.Get(0).(*usecase.RepurposeResult)
	return res, args.Error(1)
}

func (m *mockRepurpose) SchedulePost(ctx context.Context, tenant model.Tenant, userID string, postID int64, at time.Time) (*model.RepurposedPost, error) {
	args := m.Called(ctx, tenant, userID, postID, at)
	p, _ := args.Get(0).(*model.RepurposedPost)
	return p, args.Error(1)
}

func (m *mockRepurpose) SetRecurrence(ctx context.Context, tenant model.Tenant, userID string, postID int64, rec *model.Recurrence) (*model.RepurposedPost, error) {
	args := m.Called(ctx, tenant, userID, postID, rec)
	p, _ := args.Get(0).(*model.RepurposedPost)
	return p, args.Error(1)
}

func (m *mockRepurpose) AttachMedia(ctx context.Context, tenant model.Tenant, userID string, postID int64, filename, contentType string, r io.Reader) (*model.RepurposedPost, error) {
	body, _ := io.ReadAll(r)
	args := m.Called(ctx, tenant, userID, postID, filename, contentType, string(body))
	p, _ := args.Get(0).(*model.RepurposedPost)
	return p, args.Error(1)
}

func (m *mockRepurpose) ListPosts(ctx context.Context, tenant model.Tenant, userID string, limit int) ([]*model.RepurposedPost, error) {
	args := m.Called(ctx, tenant, userID, limit)
	list, _ := args.Get(0).([]*model.RepurposedPost)
	return list, args.Error(1)
}

func (m *mockRepurpose) GetPost(ctx context.Context, tenant model.Tenant, userID string, postID int64) (*model.RepurposedPost, error) {
	args := m.Called(ctx, tenant, userID, postID)
	p, _ := args.Get(0).(*model.RepurposedPost)
	return p, args.Error(1)
}

func (m *mockRepurpose) ListPostingLogs(ctx context.Context, tenant model.Tenant, userID string, postID int64) ([]*model.PostingLog, error) {
	args := m.Called(ctx, tenant, userID, postID)
	list, _ := args.Get(0).([]*model.PostingLog)
	return list, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishPost(ctx context.Context, tenant model.Tenant, postID int64, accountID *int64) (*usecase.PublishOutcome, error) {
	args := m.Called(ctx, tenant, postID, accountID)
	o, _ := args.Get(0).(*usecase.PublishOutcome)
	return o, args.Error(1)
}

func (m *mockPublisher) Publish(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost, accountID *int64) (*usecase.PublishOutcome, error) {
	args := m.Called(ctx, tenant, post, accountID)
	o, _ := args.Get(0).(*usecase.PublishOutcome)
	return o, args.Error(1)
}

func (m *mockPublisher) RecordFailure(ctx context.Context, tenant model.Tenant, post *model.RepurposedPost, msg string) error {
	return m.Called(ctx, tenant, post, msg).Error(0)
}

func (m *mockPublisher) WithEventSinks(sinks ...repository.IEventSink) usecase.IPublishUsecase {
	return m
}

type mockScheduled struct {
	mock.Mock
}

func (m *mockScheduled) Create(ctx context.Context, tenant model.Tenant, userID string, req usecase.CreateScheduledPostRequest) (*model.ScheduledPost, error) {
	args := m.Called(ctx, tenant, userID, req)
	sp, _ := args.Get(0).(*model.ScheduledPost)
	return sp, args.Error(1)
}

func (m *mockScheduled) List(ctx context.Context, tenant model.Tenant, userID string) ([]*model.ScheduledPost, error) {
	args := m.Called(ctx, tenant, userID)
	list, _ := args.Get(0).([]*model.ScheduledPost)
	return list, args.Error(1)
}

func (m *mockScheduled) Get(ctx context.Context, tenant model.Tenant, userID string, id int64) (*model.ScheduledPost, error) {
	args := m.Called(ctx, tenant, userID, id)
	sp, _ := args.Get(0).(*model.ScheduledPost)
	return sp, args.Error(1)
}

func (m *mockScheduled) Pause(ctx context.Context, tenant model.Tenant, userID string, id int64) (*model.ScheduledPost, error) {
	args := m.Called(ctx, tenant, userID, id)
	sp, _ := args.Get(0).(*model.ScheduledPost)
	return sp, args.Error(1)
}

func (m *mockScheduled) Resume(ctx context.Context, tenant model.Tenant, userID string, id int64) (*model.ScheduledPost, error) {
	args := m.Called(ctx, tenant, userID, id)
	sp, _ := args.Get(0).(*model.ScheduledPost)
	return sp, args.Error(1)
}

type mockAccounts struct {
	mock.Mock
}

func (m *mockAccounts) List(ctx context.Context, tenant model.Tenant, userID string) ([]*model.SocialAccount, error) {
	args := m.Called(ctx, tenant, userID)
	list, _ := args.Get(0).([]*model.SocialAccount)
	return list, args.Error(1)
}

func (m *mockAccounts) Connect(ctx context.Context, tenant model.Tenant, acc *model.SocialAccount) error {
	return m.Called(ctx, tenant, acc).Error(0)
}

func (m *mockAccounts) Disconnect(ctx context.Context, tenant model.Tenant, userID string, platform model.Platform) error {
	return m.Called(ctx, tenant, userID, platform).Error(0)
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) RunDuePublishSweep(ctx context.Context, tenant model.Tenant) (*usecase.SweepResult, error) {
	args := m.Called(ctx, tenant)
	res, _ := args.Get(0).(*usecase.SweepResult)
	return res, args.Error(1)
}

func (m *mockScheduler) RunRecurrenceMaterialization(ctx context.Context, tenant model.Tenant) (int, error) {
	args := m.Called(ctx, tenant)
	return args.Int(0), args.Error(1)
}

func (m *mockScheduler) RunScheduledPost(ctx context.Context, tenant model.Tenant, sp *model.ScheduledPost) error {
	return m.Called(ctx, tenant, sp).Error(0)
}
