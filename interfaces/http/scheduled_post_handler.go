package http

import (
	"context"
	"net/http"

	"repurposer/domain/model"
	"repurposer/usecase"

	"github.com/gin-gonic/gin"
)

type IScheduledPostHandler interface {
	List(ctx *gin.Context)
	Create(ctx *gin.Context)
	Get(ctx *gin.Context)
	Pause(ctx *gin.Context)
	Resume(ctx *gin.Context)
}

type ScheduledPostHandler struct {
	scheduled usecase.IScheduledPostUsecase
}

func NewScheduledPostHandler(uc usecase.IScheduledPostUsecase) IScheduledPostHandler {
	return &ScheduledPostHandler{scheduled: uc}
}

func (h *ScheduledPostHandler) List(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	list, err := h.scheduled.List(ctx.Request.Context(), tenant, userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	if list == nil {
		list = []*model.ScheduledPost{}
	}
	ctx.JSON(http.StatusOK, gin.H{"scheduled_posts": list})
}

func (h *ScheduledPostHandler) Create(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	var req usecase.CreateScheduledPostRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "scheduled_time is required"})
		return
	}
	sp, err := h.scheduled.Create(ctx.Request.Context(), tenant, userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, sp)
}

func (h *ScheduledPostHandler) Get(ctx *gin.Context) {
	h.byID(ctx, h.scheduled.Get)
}

func (h *ScheduledPostHandler) Pause(ctx *gin.Context) {
	h.byID(ctx, h.scheduled.Pause)
}

func (h *ScheduledPostHandler) Resume(ctx *gin.Context) {
	h.byID(ctx, h.scheduled.Resume)
}

func (h *ScheduledPostHandler) byID(ctx *gin.Context, fn func(context.Context, model.Tenant, string, int64) (*model.ScheduledPost, error)) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id")
	if !ok {
		return
	}
	sp, err := fn(ctx.Request.Context(), tenant, userID, id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, sp)
}
