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

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/roster-api/api/swagger"
	"github.com/noah-isme/roster-api/internal/handler"
	"github.com/noah-isme/roster-api/internal/repository"
	"github.com/noah-isme/roster-api/internal/router"
	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/cache"
	"github.com/noah-isme/roster-api/pkg/config"
	"github.com/noah-isme/roster-api/pkg/database"
	"github.com/noah-isme/roster-api/pkg/jobs"
	"github.com/noah-isme/roster-api/pkg/logger"
	"github.com/noah-isme/roster-api/pkg/mention"
)

// @title Roster API
// @version 1.0.0
// @description Teacher and student roster administration
// @BasePath /api
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()

	var queryCache *service.CacheService
	if cfg.QueryCache.Enabled {
		rdb, err := cache.NewRedis(context.Background(), cfg.Redis, logr)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		cacheRepo := repository.NewQueryCacheRepository(rdb, repository.DefaultQueryNamespace, logr)
		defer cacheRepo.Close() //nolint:errcheck
		queryCache = service.NewCacheService(cacheRepo, metrics, cfg.QueryCache.TTL, logr, true)
	}

	defaultHash, err := service.HashPassword(cfg.Roster.DefaultTeacherPassword)
	if err != nil {
		logr.Fatal("failed to hash default teacher password", zap.Error(err))
	}

	teacherRepo := repository.NewTeacherRepository(db, defaultHash)
	studentRepo := repository.NewStudentRepository(db)
	classRepo := repository.NewClassRepository(db)
	registerRepo := repository.NewRegisterRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	tx := database.NewTransactor(db)

	validate := validator.New()

	registrationSvc := service.NewRegistrationService(tx, teacherRepo, studentRepo, classRepo, registerRepo, queryCache, metrics, logr)
	querySvc := service.NewQueryService(teacherRepo, studentRepo, registerRepo, mention.NewExtractor(validate), queryCache, logr)
	studentSvc := service.NewStudentService(studentRepo, queryCache, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, queryCache, validate, logr)
	classSvc := service.NewClassService(classRepo, queryCache, validate, logr)
	registerSvc := service.NewRegisterService(registerRepo, queryCache, validate, logr)
	authSvc := service.NewAuthService(teacherRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "roster-api",
	})

	worker := service.NewNotificationWorker(notificationRepo, teacherRepo, querySvc, metrics, logr)
	queue := jobs.NewQueue("notifications", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.Retries,
		Logger:     logr,
		OnDeadLetter: func(jobs.Job, error) {
			metrics.RecordDispatch("dead_letter", 0)
		},
	})
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	queue.Start(rootCtx)
	defer queue.Stop()

	notificationSvc := service.NewNotificationService(notificationRepo, queue, validate, logr)

	engine := router.Setup(cfg, router.Handlers{
		Roster:        handler.NewRosterHandler(registrationSvc, querySvc, studentSvc, validate),
		Auth:          handler.NewAuthHandler(authSvc, validate),
		Teachers:      handler.NewTeacherHandler(teacherSvc),
		Students:      handler.NewStudentHandler(studentSvc),
		Classes:       handler.NewClassHandler(classSvc),
		Registers:     handler.NewRegisterHandler(registerSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Metrics:       handler.NewMetricsHandler(metrics, db, logr),
	}, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
