package server

import (
	"time"

	"repurposer/domain/repository"
	httpHandler "repurposer/interfaces/http"
	"repurposer/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups everything the router mounts. A nil Stream disables SSE.
type Handlers struct {
	Health       httpHandler.IHealthHandler
	Posts        httpHandler.IPostHandler
	Repurpose    httpHandler.IRepurposeHandler
	Scheduled    httpHandler.IScheduledPostHandler
	Accounts     httpHandler.ISocialAccountHandler
	Scheduler    httpHandler.ISchedulerHandler
	Stream       gin.HandlerFunc
	PublishLimit *middleware.RateLimiter
	UserRepo     repository.IUser
	SecretKey    string
	AllowOrigins []string
}

func InitiateRouter(h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Metrics())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     h.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", h.Health.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/auth/youtube/callback", h.Accounts.YouTubeCallback)

	api := router.Group("api")
	api.Use(middleware.Auth(h.UserRepo, h.SecretKey))

	publishLimit := func(c *gin.Context) { c.Next() }
	if h.PublishLimit != nil {
		publishLimit = h.PublishLimit.Handler()
	}

	api.POST("/repurpose", h.Repurpose.Submit)

	posts := api.Group("/posts")
	{
		posts.GET("", h.Posts.List)
		posts.GET("/:id", h.Posts.Get)
		posts.GET("/:id/logs", h.Posts.Logs)
		posts.POST("/:id/publish", publishLimit, h.Posts.Publish)
		posts.POST("/:id/schedule", h.Posts.Schedule)
		posts.POST("/:id/recurrence", h.Posts.SetRecurrence)
		posts.POST("/:id/media", h.Posts.UploadMedia)
	}

	scheduled := api.Group("/scheduled-posts")
	{
		scheduled.GET("", h.Scheduled.List)
		scheduled.POST("", h.Scheduled.Create)
		scheduled.GET("/:id", h.Scheduled.Get)
		scheduled.POST("/:id/pause", h.Scheduled.Pause)
		scheduled.POST("/:id/resume", h.Scheduled.Resume)
	}

	accounts := api.Group("/social-accounts")
	{
		accounts.GET("", h.Accounts.List)
		accounts.GET("/youtube/connect", h.Accounts.YouTubeAuthURL)
		accounts.POST("/:platform/disconnect", h.Accounts.Disconnect)
	}

	api.POST("/scheduler/sweep", h.Scheduler.Sweep)
	api.POST("/scheduler/recurrence", h.Scheduler.Recurrence)

	if h.Stream != nil {
		api.GET("/events/stream", h.Stream)
	}

	return router
}
