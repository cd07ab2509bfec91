package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/astba/training-api/api/swagger"
	"github.com/astba/training-api/internal/handler"
	"github.com/astba/training-api/internal/middleware"
	"github.com/astba/training-api/internal/models"
	"github.com/astba/training-api/internal/repository"
	"github.com/astba/training-api/internal/service"
	"github.com/astba/training-api/pkg/cache"
	"github.com/astba/training-api/pkg/certificate"
	"github.com/astba/training-api/pkg/config"
	"github.com/astba/training-api/pkg/database"
	"github.com/astba/training-api/pkg/jobs"
	"github.com/astba/training-api/pkg/logger"
	corsmiddleware "github.com/astba/training-api/pkg/middleware/cors"
	reqidmiddleware "github.com/astba/training-api/pkg/middleware/requestid"
)

// @title ASTBA Training API
// @version 1.0.0
// @description Scheduling and session lifecycle engine for the training platform
// @BasePath /
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

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logr.Sugar().Fatalw("invalid timezone", "timezone", cfg.Timezone, "error", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, planning cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	seanceRepo := repository.NewSeanceRepository(db)
	reportRepo := repository.NewSessionReportRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	trainingRepo := repository.NewTrainingRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Planning.CacheTTL, logr, cfg.Planning.CacheEnabled && redisClient != nil)

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	notificationSvc.Start(context.Background())
	defer notificationSvc.Stop()

	progress := service.NewAttendanceProgressCalculator()
	attendanceSvc := service.NewAttendanceService(enrollmentRepo, trainingRepo, progress, logr)
	seanceSvc := service.NewSeanceService(seanceRepo, reportRepo, trainingRepo, groupRepo, userRepo, notificationSvc, attendanceSvc, loc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, trainingRepo, groupRepo, progress, validate, logr)

	renderer := certificate.NewRenderer(cfg.Certificates.Organization, cfg.Certificates.Address)
	certificateSvc := service.NewCertificateService(enrollmentRepo, studentRepo, trainingRepo, renderer, cfg.Certificates.NumberPrefix, loc, logr)

	trainingSvc := service.NewTrainingService(trainingRepo)
	groupSvc := service.NewGroupService(groupRepo)
	authSvc := service.NewAuthService(cfg.JWT.Secret)

	seanceHandler := handler.NewSeanceHandler(seanceSvc, cacheSvc)
	certificateHandler := handler.NewCertificateHandler(certificateSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	trainingHandler := handler.NewTrainingHandler(trainingSvc)
	groupHandler := handler.NewGroupHandler(groupSvc)

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
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleManager)
	staffOrTrainer := middleware.RequireRoles(models.RoleAdmin, models.RoleManager, models.RoleTrainer)

	seances := api.Group("/seances")
	{
		seances.GET("", staffOrTrainer, seanceHandler.List)
		seances.POST("", staff, seanceHandler.Create)
		seances.GET("/availability", staff, seanceHandler.Availability)
		seances.GET("/:id", staffOrTrainer, seanceHandler.Get)
		seances.PUT("/:id", staff, seanceHandler.Update)
		seances.DELETE("/:id", staff, seanceHandler.Delete)
		seances.PATCH("/:id/status", staffOrTrainer, seanceHandler.SetStatus)
		seances.POST("/:id/report", staffOrTrainer, seanceHandler.Report)
		seances.GET("/:id/reports", staffOrTrainer, seanceHandler.ListReports)
	}

	enrollments := api.Group("/enrollments")
	{
		enrollments.POST("", staff, enrollmentHandler.Create)
		enrollments.GET("", staffOrTrainer, enrollmentHandler.List)
		enrollments.GET("/:id", staffOrTrainer, enrollmentHandler.Get)
		enrollments.GET("/:id/certificate/meta", staff, certificateHandler.Meta)
		enrollments.GET("/:id/certificate", staff, certificateHandler.Issue)
	}

	api.POST("/attendance/mark", staffOrTrainer, attendanceHandler.Mark)

	notifications := api.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread", notificationHandler.Unread)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
		notifications.POST("/read-all", notificationHandler.MarkAllRead)
	}

	trainings := api.Group("/trainings")
	{
		trainings.GET("", trainingHandler.List)
		trainings.GET("/:id", trainingHandler.Get)
	}

	groups := api.Group("/groups")
	{
		groups.GET("", groupHandler.List)
		groups.GET("/:id", groupHandler.Get)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "timezone", cfg.Timezone)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
