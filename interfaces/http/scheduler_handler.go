package http

import (
	"net/http"

	"repurposer/usecase"

	"github.com/gin-gonic/gin"
)

// ISchedulerHandler exposes manual triggers for the background loops,
// scoped to the caller's tenant.
type ISchedulerHandler interface {
	Sweep(ctx *gin.Context)
	Recurrence(ctx *gin.Context)
}

type SchedulerHandler struct {
	scheduler usecase.ISchedulerUsecase
}

func NewSchedulerHandler(uc usecase.ISchedulerUsecase) ISchedulerHandler {
	return &SchedulerHandler{scheduler: uc}
}

func (h *SchedulerHandler) Sweep(ctx *gin.Context) {
	tenant, _, ok := identity(ctx)
	if !ok {
		return
	}
	res, err := h.scheduler.RunDuePublishSweep(ctx.Request.Context(), tenant)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, res)
}

func (h *SchedulerHandler) Recurrence(ctx *gin.Context) {
	tenant, _, ok := identity(ctx)
	if !ok {
		return
	}
	created, err := h.scheduler.RunRecurrenceMaterialization(ctx.Request.Context(), tenant)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"created": created})
}
