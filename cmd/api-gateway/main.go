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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/uni-wellbeing-api/api/swagger"
	"github.com/noah-isme/uni-wellbeing-api/internal/analytics"
	"github.com/noah-isme/uni-wellbeing-api/internal/handler"
	"github.com/noah-isme/uni-wellbeing-api/internal/middleware"
	"github.com/noah-isme/uni-wellbeing-api/internal/models"
	"github.com/noah-isme/uni-wellbeing-api/internal/repository"
	"github.com/noah-isme/uni-wellbeing-api/internal/service"
	"github.com/noah-isme/uni-wellbeing-api/pkg/cache"
	"github.com/noah-isme/uni-wellbeing-api/pkg/config"
	"github.com/noah-isme/uni-wellbeing-api/pkg/database"
	"github.com/noah-isme/uni-wellbeing-api/pkg/jobs"
	"github.com/noah-isme/uni-wellbeing-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-wellbeing-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-wellbeing-api/pkg/middleware/requestid"
)

// @title University Wellbeing Analytics API
// @version 1.0.0
// @description At-risk scoring, weekly trends, cohort comparisons and CSV batch ingest for student wellbeing data
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Analytics.CacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled && redisClient != nil)

	invalidations := jobs.NewQueue("cache-invalidation", cacheSvc.HandleInvalidation, jobs.QueueConfig{
		Workers:    cfg.Workers.InvalidationWorkers,
		MaxRetries: cfg.Workers.InvalidationRetries,
		RetryDelay: time.Second,
		Logger:     logr,
	})
	metrics.TrackQueue("cache_invalidation", invalidations.Stats)
	invalidations.Start(ctx)
	defer invalidations.Stop()

	router := newRouter(cfg, logr, db, cacheRepo, cacheSvc, metrics, invalidations)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
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

func newRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, cacheRepo *repository.CacheRepository, cacheSvc *service.CacheService, metrics *service.MetricsService, queue *jobs.Queue) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	students := repository.NewStudentRepository(db)
	courses := repository.NewCourseRepository(db)
	registrations := repository.NewRegistrationRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	store := service.ReportStore{
		Students:      students,
		Courses:       courses,
		Registrations: registrations,
		Attendance:    repository.NewAttendanceRepository(db),
		Surveys:       repository.NewSurveyRepository(db),
		Assignments:   assignments,
	}

	reportSvc := service.NewReportService(store, riskPolicy(cfg.Risk), cacheSvc, metrics, logr)
	exportSvc := service.NewExportService(reportSvc, logr, nil, nil)
	ingestSvc := service.NewIngestService(service.IngestServiceConfig{
		Registrations:   registrations,
		Assignments:     assignments,
		Writer:          repository.NewIngestRepository(db, database.IsolationLevel(cfg.Ingest.Isolation)),
		Queue:           queue,
		Metrics:         metrics,
		Logger:          logr,
		DiagnosticLimit: cfg.Ingest.DiagnosticLimit,
	})
	authSvc := service.NewAuthService(repository.NewCredentialRepository(db), validator.New(), logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "uni-wellbeing-api",
	})

	reportHandler := handler.NewReportHandler(reportSvc, exportSvc)
	ingestHandler := handler.NewIngestHandler(ingestSvc, cfg.Ingest.MaxUploadBytes, logr)
	authHandler := handler.NewAuthHandler(authSvc)
	metricsHandler := handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
		"postgres": handler.PingFunc(db.PingContext),
		"redis":    cacheRepo,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc), middleware.WithResponseMeta())
	readers := middleware.RequireRoles(models.RoleAdmin, models.RoleCourseDirector, models.RoleWellbeingOfficer)

	reports := secured.Group("/reports", readers)
	reports.GET("/at-risk", reportHandler.AtRisk)
	reports.GET("/at-risk/export", reportHandler.AtRiskExport)
	reports.GET("/weekly", reportHandler.Weekly)
	reports.GET("/early-warning", reportHandler.EarlyWarning)
	reports.GET("/attendance", reportHandler.Attendance)
	reports.GET("/grading-summary", reportHandler.GradingSummary)
	reports.GET("/modules/:id/academic", reportHandler.ModuleAcademic)
	reports.GET("/system", middleware.RequireRoles(models.RoleAdmin), reportHandler.System)

	secured.GET("/students/:id/analytics", readers, reportHandler.StudentAnalytics)
	secured.GET("/courses/:id/comparison", readers, reportHandler.Comparison)
	secured.GET("/courses/:id/comparison/export", readers, reportHandler.ComparisonExport)

	secured.POST("/ingest/:kind", middleware.RequireRoles(models.RoleAdmin, models.RoleCourseDirector), ingestHandler.Upload)

	return r
}

func riskPolicy(cfg config.RiskConfig) analytics.RiskPolicy {
	return analytics.RiskPolicy{
		LowAttendance: analytics.RiskRule{Threshold: cfg.LowAttendanceThreshold, Weight: cfg.LowAttendanceWeight},
		HighStress:    analytics.RiskRule{Threshold: cfg.HighStressThreshold, Weight: cfg.HighStressWeight},
		LowSleep:      analytics.RiskRule{Threshold: cfg.LowSleepThreshold, Weight: cfg.LowSleepWeight},
		LowSocial:     analytics.RiskRule{Threshold: cfg.LowSocialThreshold, Weight: cfg.LowSocialWeight},
		FailingGrades: analytics.RiskRule{Threshold: cfg.FailingGradeThreshold, Weight: cfg.FailingGradeWeight},
	}
}
