package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/job-portal-api/api/swagger"
	"github.com/noah-isme/job-portal-api/internal/handler"
	internalmiddleware "github.com/noah-isme/job-portal-api/internal/middleware"
	"github.com/noah-isme/job-portal-api/internal/models"
	"github.com/noah-isme/job-portal-api/internal/pipeline"
	"github.com/noah-isme/job-portal-api/internal/repository"
	"github.com/noah-isme/job-portal-api/internal/service"
	"github.com/noah-isme/job-portal-api/pkg/cache"
	"github.com/noah-isme/job-portal-api/pkg/config"
	"github.com/noah-isme/job-portal-api/pkg/database"
	"github.com/noah-isme/job-portal-api/pkg/hash"
	"github.com/noah-isme/job-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/job-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/job-portal-api/pkg/middleware/requestid"
	"github.com/noah-isme/job-portal-api/pkg/session"
	"github.com/noah-isme/job-portal-api/pkg/storage"
)

// @title Job Portal API
// @version 1.0.0
// @description Job seekers, employers, postings and applications.
// @BasePath /api/v1
// @schemes http https

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var (
		sessions  session.Store
		cacheRepo service.CacheRepository
		redisPing handler.Pinger
	)
	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	switch {
	case err == nil:
		defer redisClient.Close()
		sessions = session.NewRedisStore(redisClient, cfg.Session.Lifetime)
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		redisPing = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	case cfg.Env == config.EnvProduction:
		logr.Fatal("failed to connect redis", zap.Error(err))
	default:
		logr.Warn("redis unavailable, using in-memory sessions and no job cache", zap.Error(err))
		sessions = session.NewMemoryStore(cfg.Session.Lifetime)
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	blobs, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Fatal("failed to prepare upload directory", zap.Error(err))
	}
	cleanup := service.NewFileCleanupService(blobs, metrics, service.FileCleanupConfig{
		Workers:    cfg.Uploads.CleanupWorkers,
		MaxRetries: cfg.Uploads.CleanupRetries,
	}, logr)
	cleanup.Start(ctx)
	defer cleanup.Stop()
	uploader := pipeline.NewUploader(blobs, logr,
		pipeline.WithCleanupScheduler(cleanup),
		pipeline.WithUploadObserver(metrics),
	)
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	jobRepo := repository.NewJobRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Jobs.CacheTTL, logr, cfg.Jobs.CacheEnabled)
	}

	authSvc := service.NewAuthService(userRepo, auditRepo, sessions,
		session.NewCodec(cfg.Session.Secret, "job-portal-api"),
		hash.NewBcryptHasher(cfg.Security.BcryptCost), validate, logr)
	jobSvc := service.NewJobService(jobRepo, appRepo, validate, logr, service.JobServiceDeps{
		Cache:    cacheSvc,
		Metrics:  metrics,
		Audit:    auditRepo,
		CacheTTL: cfg.Jobs.CacheTTL,
	})
	appSvc := service.NewApplicationService(appRepo, jobRepo, userRepo, auditRepo, validate, logr)
	profileSvc := service.NewProfileService(userRepo, uploader, signer, cfg.Uploads, cfg.APIPrefix, auditRepo, logr)
	exportSvc := service.NewExportService(jobSvc, logr, nil, nil)

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	checks := map[string]handler.Pinger{"database": db.PingContext}
	if redisPing != nil {
		checks["redis"] = redisPing
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
		r.GET("/metrics/summary", metricsHandler.Snapshot)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	sessionCookie := internalmiddleware.SessionCookie{Name: cfg.Session.CookieName, Domain: cfg.Session.CookieDomain, Secure: cfg.Session.CookieSecure}
	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.Session(authSvc, sessionCookie))
	handler.RegisterRoutes(api, handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc, sessionCookie),
		Jobs:         handler.NewJobHandler(jobSvc, exportSvc),
		Applications: handler.NewApplicationHandler(appSvc),
		Profile:      handler.NewProfileHandler(profileSvc, blobs),
		DownloadMiddleware: []gin.HandlerFunc{
			internalmiddleware.Audit(auditRepo, logr, models.AuditActionDownload, "files"),
		},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("api_prefix", cfg.APIPrefix))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
