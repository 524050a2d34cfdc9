package http

import (
	"errors"
	"net/http"

	"repurposer/infrastructure/logger"
	"repurposer/usecase"

	"github.com/gin-gonic/gin"
)

type IRepurposeHandler interface {
	Submit(ctx *gin.Context)
}

type RepurposeHandler struct {
	repurpose usecase.IRepurposeUsecase
}

func NewRepurposeHandler(uc usecase.IRepurposeUsecase) IRepurposeHandler {
	return &RepurposeHandler{repurpose: uc}
}

// Submit runs extraction and generation synchronously. When generation fails
// after the rows exist, the failed source and posts are still returned.
func (h *RepurposeHandler) Submit(ctx *gin.Context) {
	tenant, userID, ok := identity(ctx)
	if !ok {
		return
	}
	var req usecase.RepurposeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "platforms is required"})
		return
	}
	res, err := h.repurpose.Submit(ctx.Request.Context(), tenant, userID, req)
	if err != nil {
		if res != nil && !usecase.IsClientError(err) && !errors.Is(err, usecase.ErrUsageLimitReached) {
			logger.GetLogger().WithField("user_id", userID).WithField("error", err).Warn("repurpose failed")
			ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "source": res.Source, "posts": res.Posts})
			return
		}
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, res)
}
