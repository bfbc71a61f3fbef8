package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	reconcileapp "github.com/dutyfree/reconcile/internal/application/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/auth"
	"github.com/dutyfree/reconcile/internal/infrastructure/cache"
	"github.com/dutyfree/reconcile/internal/infrastructure/config"
	"github.com/dutyfree/reconcile/internal/infrastructure/document"
	"github.com/dutyfree/reconcile/internal/infrastructure/logger"
	"github.com/dutyfree/reconcile/internal/infrastructure/ocr"
	"github.com/dutyfree/reconcile/internal/infrastructure/persistence"
	"github.com/dutyfree/reconcile/internal/infrastructure/storage"
	"github.com/dutyfree/reconcile/internal/infrastructure/telemetry"
	"github.com/dutyfree/reconcile/internal/interfaces/http/handler"
	"github.com/dutyfree/reconcile/internal/interfaces/http/middleware"
	"github.com/dutyfree/reconcile/internal/interfaces/http/router"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
		ProfilingEnabled:  cfg.Telemetry.ProfilingEnabled,
		PyroscopeURL:      cfg.Telemetry.PyroscopeURL,
	}, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		_ = tel.Shutdown(context.Background())
	}()

	log, err := logger.New(logCfg, tel.ZapCore(cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level)))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting reconcile service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	gormLog := logger.NewGormLogger(log, logger.GormLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.OpenDatabase(ctx, &cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	coord, err := cache.NewSessionCoordination(cfg.Redis, cfg.Lock, log)
	if err != nil {
		log.Fatal("Failed to initialize session coordination", zap.Error(err))
	}
	defer func() {
		if err := coord.Close(); err != nil {
			log.Error("Error closing redis", zap.Error(err))
		}
	}()

	handlers, err := buildHandlers(ctx, cfg, db, coord, log)
	if err != nil {
		log.Fatal("Failed to build services", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.Telemetry.Enabled
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName

	engine, err := router.NewEngine(router.EngineOptions{
		Logger:         log,
		Verifier:       auth.NewTokenVerifier(cfg.JWT),
		CORS:           corsCfg,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tracing:        tracingCfg,
		MeterProvider:  otel.GetMeterProvider(),
		Profiling:      cfg.Telemetry.ProfilingEnabled,
		ReleaseMode:    cfg.App.Env == "production",
		Swagger: middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.Swagger.RequireAuth,
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		},
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	router.Mount(engine, handlers)

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

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// buildHandlers wires repositories, services and handlers
func buildHandlers(ctx context.Context, cfg *config.Config, db *persistence.Database, coord *cache.SessionCoordination, log *zap.Logger) (router.Handlers, error) {
	txScope := persistence.NewGormTransactionScope(db.DB)
	repos := persistence.NewGormRepositories(db.DB)
	selector := reconcileapp.NewDefaultStrategySelector(repos.ReceiptRepo(), log)

	matching := reconcileapp.NewMatchingService(selector, txScope, repos, log)
	metrics, err := telemetry.NewMatchMetrics(otel.GetMeterProvider())
	if err != nil {
		return router.Handlers{}, err
	}
	matching.SetMetrics(metrics)

	var visionOpts []option.ClientOption
	if cfg.OCR.CredentialsFile != "" {
		visionOpts = append(visionOpts, option.WithCredentialsFile(cfg.OCR.CredentialsFile))
	}
	extractor, err := ocr.NewVisionExtractor(ctx, cfg.OCR.MaxImageSide, log, visionOpts...)
	if err != nil {
		return router.Handlers{}, err
	}
	prompts, err := ocr.LoadPrompts(cfg.Classifier.LottePromptPath, cfg.Classifier.ShillaPromptPath)
	if err != nil {
		return router.Handlers{}, err
	}
	classifier := ocr.NewChatClassifier(ocr.ClassifierConfig{
		BaseURL: cfg.Classifier.BaseURL,
		APIKey:  cfg.Classifier.APIKey,
		Model:   cfg.Classifier.Model,
		Timeout: cfg.Classifier.Timeout,
	}, prompts, log)

	batch := reconcileapp.NewBatchService(extractor, classifier, coord.Progress, coord.Locker, matching, repos, reconcileapp.BatchOptions{
		UploadDir:    cfg.Upload.Dir,
		Workers:      cfg.OCR.Workers,
		ImageTimeout: cfg.OCR.Timeout,
	}, log)

	reference := reconcileapp.NewReferenceService(txScope, repos, reconcileapp.ReferenceOptions{
		ReplaceOnSchemaError: cfg.Reference.ReplaceOnSchemaError,
		MaxRowErrors:         cfg.Reference.MaxRowErrors,
	}, log)

	history := reconcileapp.NewHistoryService(selector, txScope, repos, coord.Locker, log)

	renderer, err := document.NewExcelRenderer(cfg.Documents.TemplatePath, log)
	if err != nil {
		return router.Handlers{}, err
	}
	var store reconcileapp.ObjectStore
	if cfg.Storage.Enabled {
		s3Store, err := storage.NewS3Store(ctx, cfg.Storage, log)
		if err != nil {
			return router.Handlers{}, err
		}
		if err := s3Store.EnsureBucket(ctx); err != nil {
			return router.Handlers{}, err
		}
		store = s3Store
	}
	payouts := reconcileapp.NewPayoutService(selector, repos, renderer, store, cfg.Storage.PresignTTL, log)

	system := handler.NewSystemHandler(version).
		AddCheck("database", db.Ping).
		AddCheck("redis", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return coord.Ping(pingCtx)
		})

	return router.Handlers{
		OCR: handler.NewOCRHandler(batch, reference, handler.UploadLimits{
			TempDir:      filepath.Join(cfg.Upload.Dir, "tmp"),
			MaxZipSize:   cfg.Upload.MaxZipSize,
			MaxSheetSize: cfg.Upload.MaxSheetSize,
		}),
		Matching: handler.NewMatchingHandler(matching),
		History:  handler.NewHistoryHandler(history),
		Payout:   handler.NewPayoutHandler(payouts),
		System:   system,
	}, nil
}
