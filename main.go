package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"repurposer/domain/repository"
	"repurposer/infrastructure/cache"
	"repurposer/infrastructure/clients/gemini"
	"repurposer/infrastructure/clients/linkedin"
	"repurposer/infrastructure/clients/meta"
	"repurposer/infrastructure/clients/oauth"
	"repurposer/infrastructure/clients/platform"
	"repurposer/infrastructure/clients/twitter"
	youtubeclient "repurposer/infrastructure/clients/youtube"
	"repurposer/infrastructure/configuration"
	"repurposer/infrastructure/extractor"
	"repurposer/infrastructure/logger"
	"repurposer/infrastructure/media"
	"repurposer/infrastructure/persistence"
	"repurposer/infrastructure/pubsub"
	"repurposer/infrastructure/realtime"
	"repurposer/infrastructure/servicebus"
	httpHandler "repurposer/interfaces/http"
	"repurposer/interfaces/middleware"
	"repurposer/server"
	"repurposer/usecase"

	"golang.org/x/sync/errgroup"
)

var httpServer *http.Server

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	g, ctx := errgroup.WithContext(ctx)

	app := configuration.C.App
	cfg := configuration.C

	psqlDb, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Database initialization failed")
		os.Exit(1)
	}
	tenantRepository := persistence.NewTenantRepository(psqlDb)
	if err := ensureSchemas(ctx, psqlDb, tenantRepository); err != nil {
		logger.GetLogger().WithField("error", err).Error("failed ensuring tenant schemas")
	}

	var auditMirror repository.IAuditMirror
	mongoDb, err := persistence.NewMongoDb(
		cfg.Database.Mongo.Host,
		cfg.Database.Mongo.Port,
		cfg.Database.Mongo.User,
		cfg.Database.Mongo.Password,
		cfg.Database.Mongo.Name,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - continuing without posting log mirror")
	} else if err := mongoDb.Ping(ctx, nil); err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB ping failed - continuing without posting log mirror")
	} else {
		logger.GetLogger().Info("MongoDB connected successfully")
		auditMirror = persistence.NewPostingLogMirror(mongoDb, cfg.Database.Mongo.Name)
	}

	redisClient, err := cache.NewCache(
		ctx,
		fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
		cfg.RedisClient.Username,
		cfg.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - sweep locks are process-local")
	}
	locker := cache.NewLocker(redisClient)

	mediaStore := initMediaStore(cfg.Media)

	// Repositories
	postRepository := persistence.NewPostRepository(psqlDb)
	scheduledRepository := persistence.NewScheduledPostRepository(psqlDb)
	accountRepository := persistence.NewSocialAccountRepository(psqlDb)
	logRepository := persistence.NewPostingLogRepository(psqlDb, auditMirror)
	userRepository := persistence.NewUserRepository(psqlDb)
	sourceRepository := persistence.NewContentSourceRepository(psqlDb)
	voiceRepository := persistence.NewBrandVoiceRepository(psqlDb)

	// Platform adapters
	timeout := cfg.Platforms.RequestTimeout()
	youtubeAdapter := youtubeclient.NewYouTubeClient(youtubeclient.Config{
		Endpoint: cfg.Platforms.YouTubeEndpoint,
		Privacy:  cfg.Platforms.YouTubePrivacy,
		Timeout:  timeout,
	}, mediaStore)
	registry := platform.NewRegistry(
		linkedin.NewLinkedInClient(cfg.Platforms.LinkedInBaseURL, timeout, mediaStore),
		twitter.NewTwitterClient(cfg.Platforms.TwitterBaseURL, timeout),
		youtubeAdapter,
		meta.NewInstagramClient(cfg.Platforms.GraphBaseURL, timeout),
		meta.NewFacebookClient(cfg.Platforms.GraphBaseURL, timeout),
	)

	var generator repository.IGenerator
	geminiClient, err := gemini.NewGeminiClient(ctx, gemini.Config{
		APIKey:   cfg.Gemini.APIKey,
		Model:    cfg.Gemini.Model,
		Endpoint: cfg.Gemini.Endpoint,
	})
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Gemini not available - generation is disabled")
	} else {
		generator = geminiClient
	}

	// Event sinks: the SSE hub always, plus one external bus when configured
	hub := realtime.NewPostHub()
	sinks := []repository.IEventSink{hub}
	if sink := initEventSink(ctx, cfg); sink != nil {
		sinks = append(sinks, sink)
	}

	// Usecases
	usage := usecase.NewUsageChecker(cfg.Subscription.Tiers)
	credentials := usecase.NewCredentialManager(accountRepository, oauth.NewRefresher(cfg.OAuth, timeout), cfg.Scheduler.RefreshSkew())
	publishUsecase := usecase.NewPublishUsecase(postRepository, accountRepository, logRepository, userRepository, registry, credentials, usage).
		WithEventSinks(sinks...)
	repurposeUsecase := usecase.NewRepurposeUsecase(postRepository, sourceRepository, voiceRepository, userRepository, logRepository,
		extractor.NewExtractor(timeout), generator, mediaStore, usage)
	scheduledUsecase := usecase.NewScheduledPostUsecase(scheduledRepository, postRepository)
	schedulerUsecase := usecase.NewSchedulerUsecase(postRepository, scheduledRepository, sourceRepository, voiceRepository,
		generator, publishUsecase, locker, cfg.Scheduler)
	accountUsecase := usecase.NewAccountUsecase(accountRepository, youtubeAdapter)

	router := server.InitiateRouter(server.Handlers{
		Health:    httpHandler.NewHealthHandler(psqlDb),
		Posts:     httpHandler.NewPostHandler(repurposeUsecase, publishUsecase),
		Repurpose: httpHandler.NewRepurposeHandler(repurposeUsecase),
		Scheduled: httpHandler.NewScheduledPostHandler(scheduledUsecase),
		Accounts: httpHandler.NewSocialAccountHandler(accountUsecase,
			httpHandler.YouTubeOAuthConfig(cfg.OAuth.Google.ClientID, cfg.OAuth.Google.ClientSecret, cfg.OAuth.Google.RedirectURI),
			app.SecretKey),
		Scheduler:    httpHandler.NewSchedulerHandler(schedulerUsecase),
		Stream:       hub.Serve,
		PublishLimit: middleware.NewPerMinuteLimiter(app.PublishRatePerMinute),
		UserRepo:     userRepository,
		SecretKey:    app.SecretKey,
		AllowOrigins: app.Origins,
	})

	if cfg.Scheduler.Enabled {
		loops := &tenantLoops{tenants: tenantRepository, scheduler: schedulerUsecase}
		g.Go(func() error { return loops.runSweeps(ctx, cfg.Scheduler.SweepInterval()) })
		g.Go(func() error { return loops.runRecurrence(ctx, cfg.Scheduler.RecurrenceInterval()) })
	} else {
		logger.GetLogger().Info("Scheduler disabled; due posts are only published via /api/scheduler/sweep")
	}

	port := app.Port
	logger.GetLogger().WithFields(map[string]interface{}{"port": port, "tls": app.TLSEnabled}).Info("Starting application")
	g.Go(func() error {
		httpServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		if app.TLSEnabled {
			cert := app.TLSCertFile
			key := app.TLSKeyFile
			if cert == "" || key == "" {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			} else {
				logger.GetLogger().WithFields(map[string]interface{}{"cert": cert, "key": key}).Info("Serving HTTPS")
				if err := httpServer.ListenAndServeTLS(cert, key); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			}
		} else {
			if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		_ = httpServer.Shutdown(shutdownCtx)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if mongoDb != nil {
		_ = mongoDb.Disconnect(shutdownCtx)
	}
	_ = psqlDb.Close()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

func ensureSchemas(ctx context.Context, db *sql.DB, tenants repository.ITenant) error {
	if err := persistence.EnsureTenantCatalog(db); err != nil {
		return err
	}
	list, err := tenants.ListActive(ctx)
	if err != nil {
		return err
	}
	for _, t := range list {
		if err := persistence.EnsureTenantSchema(db, t); err != nil {
			return fmt.Errorf("tenant %s: %w", t.Schema, err)
		}
	}
	logger.GetLogger().WithField("tenants", len(list)).Info("Tenant schemas ensured")
	return nil
}

func initMediaStore(cfg configuration.Media) repository.IMediaStore {
	if cfg.S3Bucket != "" {
		store, err := media.NewS3Store(cfg.S3Bucket, cfg.S3Region, cfg.PublicBaseURL)
		if err == nil {
			logger.GetLogger().WithField("bucket", cfg.S3Bucket).Info("Media stored in S3")
			return store
		}
		logger.GetLogger().WithField("error", err).Warn("S3 media store unavailable - falling back to local disk")
	}
	root := cfg.LocalRoot
	if root == "" {
		root = "media"
	}
	return media.NewLocalStore(root, cfg.PublicBaseURL)
}

func initEventSink(ctx context.Context, cfg configuration.Config) repository.IEventSink {
	switch cfg.Events.Sink {
	case "pubsub":
		client, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while instantiate PubSub")
			return nil
		}
		return pubsub.NewPostStatusPubSub(client, cfg.Pubsub.Topic)
	case "servicebus":
		client, err := servicebus.NewServiceBus(ctx, cfg.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without Service Bus events")
			return nil
		}
		return servicebus.NewPostStatusServiceBus(client, cfg.ServiceBus.Queue)
	}
	return nil
}

// tenantLoops drives the scheduler across every active tenant schema.
type tenantLoops struct {
	tenants   repository.ITenant
	scheduler usecase.ISchedulerUsecase
}

func (l *tenantLoops) runSweeps(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.sweepAll(ctx)
		}
	}
}

// runRecurrence materialises on start and then every interval, so each
// occurrence is created within one interval of its local time.
func (l *tenantLoops) runRecurrence(ctx context.Context, interval time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	l.materializeAll(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.materializeAll(ctx)
		}
	}
}

// sweepAll runs one due-publish sweep per tenant. One tenant's failure never
// stops the others.
func (l *tenantLoops) sweepAll(ctx context.Context) {
	tenants, err := l.tenants.ListActive(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("listing tenants for sweep")
		return
	}
	for _, t := range tenants {
		res, err := l.scheduler.RunDuePublishSweep(ctx, t)
		if err != nil {
			logger.GetLogger().WithField("tenant", t.Schema).WithField("error", err).Error("due publish sweep failed")
			continue
		}
		if res.Published+res.Failed+res.SchedulesCompleted+res.SchedulesFailed > 0 {
			logger.GetLogger().WithField("tenant", t.Schema).WithField("result", res).Info("due publish sweep finished")
		}
	}
}

func (l *tenantLoops) materializeAll(ctx context.Context) {
	tenants, err := l.tenants.ListActive(ctx)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("listing tenants for recurrence")
		return
	}
	for _, t := range tenants {
		n, err := l.scheduler.RunRecurrenceMaterialization(ctx, t)
		if err != nil {
			logger.GetLogger().WithField("tenant", t.Schema).WithField("error", err).Error("recurrence materialization failed")
			continue
		}
		logger.GetLogger().WithField("tenant", t.Schema).WithField("created", n).Info("recurrence materialization finished")
	}
}
