package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/campusworks/timetable-api/api/swagger"
	"github.com/campusworks/timetable-api/internal/handler"
	"github.com/campusworks/timetable-api/internal/middleware"
	"github.com/campusworks/timetable-api/internal/models"
	"github.com/campusworks/timetable-api/internal/repository"
	"github.com/campusworks/timetable-api/internal/service"
	"github.com/campusworks/timetable-api/pkg/cache"
	"github.com/campusworks/timetable-api/pkg/config"
	"github.com/campusworks/timetable-api/pkg/database"
	"github.com/campusworks/timetable-api/pkg/logger"
	corsmiddleware "github.com/campusworks/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusworks/timetable-api/pkg/middleware/requestid"
	"github.com/campusworks/timetable-api/pkg/storage"
)

// @title Timetable API
// @version 1.0.0
// @description Weekly timetable generation and insights service
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	metricsSvc := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient)
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Insights.CacheTTL, logr, cfg.Insights.CacheEnabled && redisClient != nil)

	userRepo := repository.NewUserRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	allocatorSvc := service.NewAllocatorService(nil, logr, service.AllocatorConfig{
		SlotMinutes: cfg.Timetable.SlotMinutes,
	})
	insightsSvc := service.NewInsightsService(logr, service.InsightsConfig{
		SlotMinutes:     cfg.Timetable.SlotMinutes,
		LowUtilization:  cfg.Insights.LowUtilization,
		HighUtilization: cfg.Insights.HighUtilization,
	})
	var archiveSvc *service.ArchiveService
	if cfg.Archive.Enabled {
		archiveStore, err := storage.NewLocalStorage(cfg.Archive.Dir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init archive storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Archive.Secret, cfg.Archive.TokenTTL)
		archiveSvc = service.NewArchiveService(archiveStore, signer, logr, service.ArchiveServiceConfig{
			Workers:   cfg.Archive.Workers,
			Retention: cfg.Archive.Retention,
		})
		archiveSvc.Start(context.Background())
		defer archiveSvc.Stop()
	}

	timetableSvc := service.NewTimetableService(
		scheduleRepo,
		allocatorSvc,
		archiveSvc,
		insightsSvc,
		cacheSvc,
		metricsSvc,
		nil,
		logr,
		service.TimetableServiceConfig{
			CacheTTL:    cfg.Insights.CacheTTL,
			MaxSubjects: cfg.Timetable.MaxSubjects,
		},
	)

	authHandler := handler.NewAuthHandler(authSvc)
	timetableHandler := handler.NewTimetableHandler(timetableSvc)

	var archiveHandler *handler.ArchiveHandler
	if archiveSvc != nil {
		archiveHandler = handler.NewArchiveHandler(archiveSvc)
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

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	scheduler := protected.Group("/scheduler")
	scheduler.GET("", timetableHandler.Current)
	scheduler.POST("/generate", middleware.RequireRoles(models.RoleAdmin), timetableHandler.Generate)
	scheduler.POST("/upload", middleware.RequireRoles(models.RoleAdmin), timetableHandler.Upload)

	protected.GET("/rooms", timetableHandler.Rooms)
	protected.GET("/rooms/:id", timetableHandler.RoomSchedule)
	protected.GET("/faculty", timetableHandler.Faculty)
	protected.GET("/faculty/:id", timetableHandler.FacultySchedule)
	protected.GET("/insights", timetableHandler.Insights)
	protected.GET("/stats", timetableHandler.Stats)
	protected.GET("/export", timetableHandler.Export)

	if archiveHandler != nil {
		protected.GET("/archives", middleware.RequireRoles(models.RoleAdmin), archiveHandler.List)
		// tokens are self-authenticating, no session required
		api.GET("/archives/download", archiveHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
