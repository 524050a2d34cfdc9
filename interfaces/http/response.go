package http

import (
	"errors"
	"net/http"
	"strconv"

	"repurposer/domain/model"
	"repurposer/infrastructure/logger"
	"repurposer/interfaces/middleware"
	"repurposer/usecase"

	"github.com/gin-gonic/gin"
)

// identity returns the tenant and user set by the auth middleware, writing
// 401 when either is missing.
func identity(ctx *gin.Context) (model.Tenant, string, bool) {
	userID := ctx.GetString(middleware.KeyUserID)
	tenant, ok := middleware.TenantFrom(ctx)
	if userID == "" || !ok {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return model.Tenant{}, "", false
	}
	return tenant, userID, true
}

func paramID(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func respondError(ctx *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, usecase.ErrPostNotFound), errors.Is(err, usecase.ErrScheduledPostNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrUsageLimitReached), errors.Is(err, usecase.ErrDirectPostingNotAllowed),
		errors.Is(err, usecase.ErrPlatformNotInPlan):
		status = http.StatusForbidden
	case errors.Is(err, usecase.ErrPublishInProgress):
		status = http.StatusConflict
	case usecase.IsClientError(err):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		logger.GetLogger().WithField("path", ctx.FullPath()).WithField("error", err).Error("request failed")
		ctx.JSON(status, gin.H{"error": "internal error"})
		return
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}
