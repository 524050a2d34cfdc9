package http

import (
	"context"
	"net/http"
	"time"

	"repurposer/infrastructure/utils"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type IHealthHandler interface {
	Healthz(ctx *gin.Context)
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) IHealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	status, code := "ok", http.StatusOK
	dbStatus := "disabled"
	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		dbStatus = "ok"
		if err := h.db.PingContext(pingCtx); err != nil {
			status, code, dbStatus = "degraded", http.StatusServiceUnavailable, err.Error()
		}
	}
	ctx.JSON(code, gin.H{"status": status, "database": dbStatus, "time": utils.GetCurrentTime()})
}
