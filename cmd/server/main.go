package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/fulfildesk/backend/internal/application/catalog"
	fulfilmentapp "github.com/fulfildesk/backend/internal/application/fulfilment"
	identityapp "github.com/fulfildesk/backend/internal/application/identity"
	"github.com/fulfildesk/backend/internal/infrastructure/auth"
	"github.com/fulfildesk/backend/internal/infrastructure/cache"
	"github.com/fulfildesk/backend/internal/infrastructure/config"
	"github.com/fulfildesk/backend/internal/infrastructure/logger"
	"github.com/fulfildesk/backend/internal/infrastructure/persistence"
	"github.com/fulfildesk/backend/internal/infrastructure/scheduler"
	"github.com/fulfildesk/backend/internal/infrastructure/storage"
	"github.com/fulfildesk/backend/internal/infrastructure/telemetry"
	"github.com/fulfildesk/backend/internal/interfaces/http/handler"
	"github.com/fulfildesk/backend/internal/interfaces/http/middleware"
	"github.com/fulfildesk/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Fulfildesk API
//	@version		1.0
//	@description	Order fulfilment desk for reseller teams and staff pickers

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	hub, err := logger.NewSentryHub(cfg.Sentry, cfg.App)
	if err != nil {
		panic("Failed to initialize Sentry: " + err.Error())
	}
	var extraCores []zapcore.Core
	if hub != nil {
		extraCores = append(extraCores, logger.NewSentryCore(hub, zapcore.ErrorLevel))
	}

	log, err := logger.New(cfg.Log, extraCores...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx := context.Background()

	providers, err := telemetry.Setup(ctx, cfg.Telemetry, version, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	if providers.Enabled() {
		log = log.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
			return zapcore.NewTee(core, providers.ZapCore(zapcore.InfoLevel))
		}))
	}

	log.Info("Starting fulfildesk",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.InstrumentDB(db.DB, cfg.Telemetry, log); err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}
	meter := providers.Meter(cfg.Telemetry.ServiceName)
	if err := telemetry.RegisterPoolMetrics(meter, db.DB); err != nil {
		log.Warn("Failed to register connection pool metrics", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Shared state: idempotency keys, sweep lease, token revocation
	backends, err := cache.NewBackends(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("Failed to initialize Redis backends", zap.Error(err))
	}
	defer func() {
		if err := backends.Close(); err != nil {
			log.Error("Error closing Redis backends", zap.Error(err))
		}
	}()

	objects, err := storage.New(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	teamRepo := persistence.NewGormTeamRepository(db.DB)
	memberRepo := persistence.NewGormMemberRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	disputeRepo := persistence.NewGormDisputeRepository(db.DB)
	chatRepo := persistence.NewGormChatRepository(db.DB)
	attachmentRepo := persistence.NewGormAttachmentRepository(db.DB)
	auditRepo := persistence.NewGormAuditRepository(db.DB)
	txManager := persistence.NewGormTxManager(db.DB)

	metrics, err := telemetry.NewFulfilmentMetrics(meter, orderRepo)
	if err != nil {
		log.Fatal("Failed to create fulfilment metrics", zap.Error(err))
	}

	// Services
	tokens := auth.NewJWTService(cfg.JWT)
	resolver := identityapp.NewResolver(userRepo, memberRepo)
	authService := identityapp.NewAuthService(userRepo, resolver, tokens, backends.Revocations, log)
	userService := identityapp.NewUserService(userRepo, teamRepo, memberRepo, txManager, backends.Revocations, log)
	userService.SetConfig(identityapp.UserServiceConfig{SessionRevokeTTL: cfg.JWT.RefreshTokenExpiration})
	teamService := identityapp.NewTeamService(teamRepo, memberRepo, userRepo, txManager, log)
	categoryService := catalogapp.NewCategoryService(categoryRepo, log)

	orderService := fulfilmentapp.NewOrderService(orderRepo, disputeRepo, categoryRepo, attachmentRepo,
		txManager, backends.Idempotency, log)
	orderService.SetMetrics(metrics)
	chatService := fulfilmentapp.NewChatService(chatRepo, orderRepo, attachmentRepo, txManager, log)
	attachmentService := fulfilmentapp.NewAttachmentService(attachmentRepo, orderRepo, objects, log)
	if cfg.Storage.PresignExpiry > 0 {
		attachmentService.SetConfig(fulfilmentapp.AttachmentServiceConfig{
			UploadURLExpiry:   cfg.Storage.PresignExpiry,
			DownloadURLExpiry: cfg.Storage.PresignExpiry,
		})
	}
	auditService := fulfilmentapp.NewAuditService(auditRepo, orderRepo)
	sweepService := fulfilmentapp.NewSweepService(orderRepo, chatRepo, attachmentRepo, objects, txManager, log)
	sweepService.SetMetrics(metrics)

	// Background sweeps, one replica at a time via the lease
	sched := scheduler.New(scheduler.Config{
		Enabled:    cfg.Scheduler.Enabled,
		LeaseTTL:   cfg.Scheduler.LeaseTTL,
		RunOnStart: true,
	}, backends.Lease, log)
	jobs := append([]scheduler.Job{scheduler.AutoCancelJob(sweepService, cfg.Scheduler, log)},
		scheduler.RetentionJobs(sweepService, cfg.Retention, cfg.Scheduler.JobTimeout, log)...)
	for _, job := range jobs {
		if err := sched.Register(job); err != nil {
			log.Fatal("Failed to register job", zap.String("job", job.Name), zap.Error(err))
		}
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Rate limiters
	limiterCtx, stopLimiters := context.WithCancel(ctx)
	defer stopLimiters()
	var limiter, authLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		authLimiter = middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		go limiter.Run(limiterCtx)
		go authLimiter.Run(limiterCtx)
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]handler.Pinger{"database": db}
	if backends.Client != nil {
		checks["redis"] = backends
	}
	engine, err := router.NewEngine(router.Options{
		HTTP:        cfg.HTTP,
		ServiceName: cfg.Telemetry.ServiceName,
		Tracing:     providers.Enabled(),
		Logger:      log,
		SentryHub:   hub,
		Meter:       meter,
		Auth: middleware.AuthConfig{
			Tokens:      tokens,
			Resolver:    resolver,
			Revocations: backends.Revocations,
			Logger:      log,
		},
		Limiter:        limiter,
		AuthLimiter:    authLimiter,
		RequestTimeout: cfg.HTTP.WriteTimeout,
	}, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		User:       handler.NewUserHandler(userService),
		Team:       handler.NewTeamHandler(teamService),
		Category:   handler.NewCategoryHandler(categoryService),
		Order:      handler.NewOrderHandler(orderService),
		Dispute:    handler.NewDisputeHandler(orderService),
		Chat:       handler.NewChatHandler(chatService),
		Attachment: handler.NewAttachmentHandler(attachmentService),
		Audit:      handler.NewAuditHandler(auditService),
		System:     handler.NewSystemHandler(cfg.App.Name, version, checks, sched),
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Warn("Scheduler did not stop cleanly", zap.Error(err))
	}
	stopLimiters()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}
	if hub != nil {
		hub.Flush(2 * time.Second)
	}

	log.Info("Server exited gracefully")
}
