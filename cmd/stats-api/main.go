package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-stats-api/api/swagger"
	"github.com/noah-isme/lms-stats-api/internal/handler"
	"github.com/noah-isme/lms-stats-api/internal/middleware"
	"github.com/noah-isme/lms-stats-api/internal/moodle"
	"github.com/noah-isme/lms-stats-api/internal/repository"
	"github.com/noah-isme/lms-stats-api/internal/service"
	"github.com/noah-isme/lms-stats-api/pkg/cache"
	"github.com/noah-isme/lms-stats-api/pkg/config"
	"github.com/noah-isme/lms-stats-api/pkg/database"
	"github.com/noah-isme/lms-stats-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-stats-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-stats-api/pkg/middleware/requestid"
)

// @title LMS Stats API
// @version 1.0.0
// @description Course completion statistics service backing the progress dashboard
// @BasePath /api
// @schemes http

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

	// Redis is optional: without it every read recomputes, which is slow
	// but correct. Postgres holds the accounts and is required.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, running without cache", zap.Error(err))
		redisClient = nil
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("postgres unavailable", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()

	moodleClient := moodle.NewClient(cfg.Moodle.BaseURL, cfg.Moodle.Token, cfg.Moodle.Timeout,
		moodle.WithMetrics(metricsSvc))

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	userRepo := repository.NewUserRepository(db)

	aggregatorSvc := service.NewAggregatorService(moodleClient, metricsSvc, logr, service.AggregatorConfig{
		CourseBatchSize: cfg.Stats.CourseBatchSize,
		UserBatchSize:   cfg.Stats.UserBatchSize,
		BatchPause:      cfg.Stats.BatchPause,
		SiteCourseID:    cfg.Stats.SiteCourseID,
	})
	statsSvc := service.NewStatsService(aggregatorSvc, cacheRepo, metricsSvc, logr)
	exportSvc := service.NewExportService(statsSvc, logr)
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      "lms-stats-api",
	})

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authSvc.EnsureAdmin(seedCtx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
		logr.Fatal("failed to seed admin account", zap.Error(err))
	}
	cancel()

	statsHandler := handler.NewStatsHandler(statsSvc, exportSvc)
	authHandler := handler.NewAuthHandler(authSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	stats := api.Group("/stats")
	if cfg.Auth.ProtectStats {
		stats.Use(middleware.JWT(authSvc))
	}
	stats.GET("/global", statsHandler.Global)
	stats.GET("/courses", statsHandler.Courses)
	stats.GET("/last-updated", statsHandler.LastUpdated)
	stats.POST("/refresh", statsHandler.Refresh)
	stats.GET("/export", statsHandler.Export)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "moodle", cfg.Moodle.BaseURL)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
