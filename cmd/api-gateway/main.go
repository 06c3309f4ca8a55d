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

	_ "github.com/noah-isme/erp-timetable-api/api/swagger"
	"github.com/noah-isme/erp-timetable-api/internal/handler"
	internalmiddleware "github.com/noah-isme/erp-timetable-api/internal/middleware"
	"github.com/noah-isme/erp-timetable-api/internal/models"
	"github.com/noah-isme/erp-timetable-api/internal/repository"
	"github.com/noah-isme/erp-timetable-api/internal/service"
	"github.com/noah-isme/erp-timetable-api/pkg/cache"
	"github.com/noah-isme/erp-timetable-api/pkg/config"
	"github.com/noah-isme/erp-timetable-api/pkg/database"
	"github.com/noah-isme/erp-timetable-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/erp-timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/erp-timetable-api/pkg/middleware/requestid"
	"github.com/noah-isme/erp-timetable-api/pkg/storage"
)

// @title College ERP Timetable API
// @version 1.0.0
// @description Generates weekly batch timetables
// @BasePath /api/v1
// @schemes http

const exportCleanupInterval = time.Hour

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied")
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, preview cache disabled", zap.Error(err))
		redisClient = nil
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.PreviewCacheTTL, logr, redisClient != nil)

	slotRepo := repository.NewTimeSlotRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	timetableSvc := service.NewTimetableService(service.TimetableRepositories{
		Configs:      repository.NewTimetableConfigRepository(db),
		Batches:      repository.NewProgramBatchRepository(db),
		Slots:        slotRepo,
		Labs:         repository.NewLabRoomRepository(db),
		Assignments:  repository.NewCourseAssignmentRepository(db),
		Reservations: repository.NewReservationRepository(db),
		Timetables:   timetableRepo,
	}, db, cacheSvc, metrics, validate, logr, service.TimetableServiceConfig{
		RandomSeed: cfg.Timetable.RandomSeed,
		PreviewTTL: cfg.Timetable.PreviewCacheTTL,
	})

	jobSvc := service.NewGenerationJobService(timetableSvc, metrics, validate, logr, service.GenerationJobConfig{
		TTL:     cfg.Timetable.JobTTL,
		Timeout: cfg.Timetable.JobTimeout,
	})
	jobSvc.Start(ctx)
	defer jobSvc.Stop()

	exportStore, err := storage.NewLocalStorage(cfg.Timetable.ExportDir)
	if err != nil {
		logr.Fatal("failed to prepare export directory", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Timetable.ExportURLSecret, cfg.Timetable.ExportURLTTL)
	exportSvc := service.NewExportService(timetableSvc, slotRepo, exportStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Timetable.ExportURLTTL,
	}, logr, nil, nil)
	go cleanupExports(ctx, exportSvc, logr)

	tokenSvc := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))
	r.Use(internalmiddleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient))
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if cfg.Timetable.Enabled {
		registerTimetableRoutes(r.Group(cfg.APIPrefix), handler.NewTimetableHandler(timetableSvc, jobSvc, exportSvc), tokenSvc)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
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
		logr.Error("server shutdown failed", zap.Error(err))
	}
}

func registerTimetableRoutes(api *gin.RouterGroup, h *handler.TimetableHandler, tokens internalmiddleware.TokenValidator) {
	// Signed links authenticate themselves.
	api.GET("/timetable-exports/:token", h.Download)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(tokens))

	manage := internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleHOD)
	secured.POST("/timetables/generate", manage, h.Generate)
	secured.POST("/timetables/generate-all", manage, h.GenerateAll)
	secured.POST("/timetables/generate-all/jobs", manage, h.SubmitJob)
	secured.GET("/timetables/generate-all/jobs/:id", manage, h.JobStatus)
	secured.GET("/timetable-configs/:id/preview", manage, h.Preview)

	secured.GET("/timetables/:id/entries", h.Entries)
	secured.POST("/timetables/:id/exports", h.Export)
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) map[string]handler.ReadinessCheck {
	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

func cleanupExports(ctx context.Context, exports *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(exportCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := exports.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(removed) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(removed)))
			}
		}
	}
}
