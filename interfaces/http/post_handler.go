package http

import (
	"net/http"
	"strconv"
	"time"

	"repurposer/domain/model"
	"repurposer/infrastructure/logger"
	"repurposer/usecase"

	"github.com/gin-gonic/gin"
)

const maxUploadBytes = 100 << 20

type IPostHandler interface {
	List(ctx *gin.Context)
	Get(ctx *gin.Context)
	Publish(ctx *gin.Context)
	Schedule(ctx *gin.Context)
	SetRecurrence(ctx *gin.Context)
	UploadMedia(ctx *gin.Context)
	Logs(ctx *gin.Context)
}

type PostHandler struct {
	posts     usecase.IRepurposeUsecase
	publisher usecase.IPublishUsecase
}

func NewPostHandler(posts usecase.IRepurposeUsecase, publisher usecase.IPublishUsecase) IPostHandler {
	return &PostHandler{posts: posts, publisher: publisher}
}

type publishRequest struct {
	SocialAccountID *int64 `json:"social_account_id"`
}

type scheduleRequest struct {
	ScheduledFor time.Time `json:"scheduled_for" binding:"required"`
}

type recurrenceRequest struct {
	Pattern  model.RecurrencePattern `json:"pattern"`
	Days     []int64                 `json:"days"`
	Time     string                  `json:"time"`
	Timezone string                  `json:"timezone"`
	Clear    bool                    `json:"clear"`
}

func (h *PostHandler) List(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(ctx.Query("limit"))
	posts, err := h.posts.ListPosts(ctx.Request.Context(), tenant, userID, limit)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if posts == nil {
		posts = []*model.RepurposedPost{}
	}
	ctx.JSON(http.StatusOK, gin.H{"posts": posts})
}

func (h *PostHandler) Get(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	post, err := h.posts.GetPost(ctx.Request.Context(), tenant, userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, post)
}

// Publish posts immediately. An attempt that reaches the platform and fails
// still answers 400 with the stored failure message.
func (h *PostHandler) Publish(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req publishRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	if _, err := h.posts.GetPost(ctx.Request.Context(), tenant, userID, id); err != nil {
		respondError(ctx, err)
		return
	}
	outcome, err := h.publisher.PublishPost(ctx.Request.Context(), tenant, id, req.SocialAccountID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if !outcome.Success {
		logger.GetLogger().WithField("post_id", id).WithField("user_id", userID).Warn(outcome.Message)
		ctx.JSON(http.StatusBadRequest, gin.H{"success": false, "error": outcome.Message, "post": outcome.Post})
		return
	}
	ctx.JSON(http.StatusOK, outcome)
}

func (h *PostHandler) Schedule(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req scheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_for is required"})
		return
	}
	post, err := h.posts.SchedulePost(ctx.Request.Context(), tenant, userID, id, req.ScheduledFor)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, post)
}

func (h *PostHandler) SetRecurrence(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	var req recurrenceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	var rec *model.Recurrence
	if !req.Clear {
		rec = &model.Recurrence{Pattern: req.Pattern, Days: req.Days, Time: req.Time, Timezone: req.Timezone}
	}
	post, err := h.posts.SetRecurrence(ctx.Request.Context(), tenant, userID, id, rec)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, post)
}

func (h *PostHandler) UploadMedia(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxUploadBytes)
	fh, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer f.Close()
	post, err := h.posts.AttachMedia(ctx.Request.Context(), tenant, userID, id, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, post)
}

func (h *PostHandler) Logs(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	logs, err := h.posts.ListPostingLogs(ctx.Request.Context(), tenant, userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if logs == nil {
		logs = []*model.PostingLog{}
	}
	ctx.JSON(http.StatusOK, gin.H{"post_id": id, "logs": logs})
}
