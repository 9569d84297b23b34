package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-scheduling-api/api/swagger"
	"github.com/noah-isme/sma-scheduling-api/internal/handler"
	internalmiddleware "github.com/noah-isme/sma-scheduling-api/internal/middleware"
	"github.com/noah-isme/sma-scheduling-api/internal/repository"
	"github.com/noah-isme/sma-scheduling-api/internal/service"
	"github.com/noah-isme/sma-scheduling-api/pkg/cache"
	"github.com/noah-isme/sma-scheduling-api/pkg/config"
	"github.com/noah-isme/sma-scheduling-api/pkg/database"
	"github.com/noah-isme/sma-scheduling-api/pkg/export"
	"github.com/noah-isme/sma-scheduling-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-scheduling-api/pkg/middleware/requestid"
)

// @title Scheduling API
// @version 1.0.0
// @description Class scheduling conflict detection and instructor workload tracking
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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.MigrateOnStart {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(migrateCtx, db, logr)
		cancel()
		if err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Workload.CacheEnabled {
		client, err := cache.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			logr.Warn("workload cache disabled, redis unavailable", zap.Error(err))
		} else {
			defer client.Close()
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Workload.CacheTTL, logr, cacheRepo != nil)

	days := repository.NewDayRepository(db)
	timeBlocks := repository.NewTimeBlockRepository(db)
	slots := repository.NewDayTimeBlockRepository(db)
	quarters := repository.NewQuarterRepository(db)
	instructors := repository.NewInstructorRepository(db)
	classrooms := repository.NewClassroomRepository(db)
	groups := repository.NewStudentGroupRepository(db)
	schedules := repository.NewClassScheduleRepository(db)

	validate := validator.New()
	checker := service.NewConflictChecker(schedules, instructors, classrooms, groups, logr)
	scheduleValidator := service.NewScheduleValidator(service.ScheduleValidatorDeps{
		Checker:     checker,
		Quarters:    quarters,
		Slots:       slots,
		Groups:      groups,
		Instructors: instructors,
		Classrooms:  classrooms,
		Schedules:   schedules,
	}, metrics, logr)
	tracker := service.NewWorkloadTracker(instructors, cacheSvc, logr)
	scheduleSvc := service.NewClassScheduleService(schedules, scheduleValidator, checker, tracker, db, validate, metrics, logr,
		service.ClassScheduleServiceConfig{WriteTimeout: cfg.Scheduling.WriteTimeout})
	timeSlotSvc := service.NewTimeSlotService(days, timeBlocks, slots, validate, logr)
	quarterSvc := service.NewQuarterService(quarters, validate, logr)
	groupSvc := service.NewStudentGroupService(groups, logr)
	exportSvc := service.NewTimetableExportService(scheduleSvc, scheduleValidator, quarters, export.NewCSVExporter(), export.NewPDFExporter(), validate, logr)

	var tokens internalmiddleware.TokenValidator
	if cfg.Auth.Enabled {
		tokens = service.NewTokenService(cfg.Auth.Secret)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	handler.RegisterOps(r, handler.NewMetricsHandler(metrics, db))
	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Schedules:  handler.NewClassScheduleHandler(scheduleSvc),
		Workload:   handler.NewWorkloadHandler(tracker),
		TimeSlots:  handler.NewTimeSlotHandler(timeSlotSvc),
		Quarters:   handler.NewQuarterHandler(quarterSvc),
		Groups:     handler.NewStudentGroupHandler(groupSvc),
		Timetables: handler.NewTimetableHandler(exportSvc),
	}, internalmiddleware.WriteGuard(cfg.Auth.Enabled, tokens))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "auth", cfg.Auth.Enabled, "workload_cache", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
