package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamebook-server/internal/bootstrap"
	"gamebook-server/internal/config"
	"gamebook-server/internal/fee"
	"gamebook-server/internal/handler"
	"gamebook-server/internal/ledger"
	"gamebook-server/internal/logger"
	"gamebook-server/internal/messaging"
	"gamebook-server/internal/middleware"
	"gamebook-server/internal/service"
	"gamebook-server/internal/storage"
	"gamebook-server/internal/story"
	"gamebook-server/internal/watcher"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	log.Println("Starting gamebook action server...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	cfg.LogSummary(zapLogger)

	if cfg.SeedSceneAddress == "" {
		zapLogger.Fatal("SEED_SCENE_ADDRESS is not set; run cmd/seedscene first")
	}
	seed, err := ledger.ParseAddress(cfg.SeedSceneAddress)
	if err != nil {
		zapLogger.Fatal("Invalid SEED_SCENE_ADDRESS", zap.Error(err))
	}
	treasury, err := ledger.ParseAddress(cfg.Treasury)
	if err != nil {
		zapLogger.Fatal("Invalid TREASURY_ADDRESS", zap.Error(err))
	}
	programID, err := ledger.ParseAddress(cfg.ProgressProgramID)
	if err != nil {
		zapLogger.Fatal("Invalid PROGRESS_PROGRAM_ID", zap.Error(err))
	}

	components, err := bootstrap.Build(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to build components", zap.Error(err))
	}

	// --- Наблюдатель за оплатой ---
	poller := watcher.NewPoller(components.Chain, cfg.WatchMaxChecks, cfg.WatchSignatureLimit, cfg.WatchDelay, zapLogger)
	var paymentWatcher watcher.Watcher = poller
	if cfg.WatchMode == "subscription" {
		paymentWatcher = watcher.NewSubscriber(ledger.NewWSLogSubscriber(cfg.WSEndpoint()), poller, zapLogger)
	}

	// --- Уведомления ---
	notifier := messaging.NewLogNotifier(zapLogger)
	if cfg.RabbitMQURL != "" {
		conn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if err != nil {
			zapLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
		}
		defer conn.Close()
		ch, err := conn.Channel()
		if err != nil {
			zapLogger.Fatal("Не удалось открыть канал RabbitMQ", zap.Error(err))
		}
		defer ch.Close()
		notifier, err = messaging.NewRabbitMQNotifier(ch, cfg.SceneEventsQueue, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to create scene notifier", zap.Error(err))
		}
	}

	store := story.NewStore(seed)
	progress := ledger.NewProgressProgram(components.Chain, programID, cfg.ProgressSeed, components.Minter, zapLogger)
	oracle := fee.NewOracle(
		fee.NewHTTPPriceSource(cfg.PriceFeedURL, cfg.PriceFeedPath, cfg.PriceFeedTimeout),
		cfg.FeeTargetUSD, cfg.FeeFallbackLamports, zapLogger,
	)

	actionService := service.NewActionService(service.Deps{
		Store:    store,
		Tags:     story.NewTagRegistry(),
		Scenes:   service.NewSceneResolver(components.Assets, storage.NewMetadataFetcher(cfg.MetadataTimeout), store),
		Fees:     oracle,
		Builder:  ledger.NewTxBuilder(components.Chain, treasury, cfg.ComputeUnitLimit, cfg.ComputeUnitPrice),
		Progress: progress,
		Watcher:  paymentWatcher,
		Narrator: components.Generator,
		Pipeline: components.Pipeline,
		Notifier: notifier,
	}, service.Options{
		Title:            cfg.ActionTitle,
		Label:            cfg.ActionLabel,
		Message:          cfg.ActionMessage,
		BaseURL:          cfg.PublicBaseURL,
		IncrementChapter: cfg.ProgressIncrementEnabled,
	}, zapLogger)

	// --- HTTP сервер (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.ZapLogger(zapLogger))
	router.Use(gin.Recovery())
	router.Use(middleware.ActionHeaders(cfg.ActionVersion, cfg.BlockchainID))

	p := ginprometheus.NewPrometheus("gin")

	stopCleanup := make(chan struct{})
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, zapLogger)
	limiter.StartCleanup(time.Minute, stopCleanup)

	handler.NewActionHandler(actionService, zapLogger).RegisterRoutes(router, limiter.Handler())
	if components.LocalDir != "" {
		router.Static("/assets", components.LocalDir)
	}
	// Метрики подключаются после регистрации маршрутов
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting HTTP server", zap.String("port", cfg.Port), zap.String("seed_scene", seed.String()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutdown signal received, stopping server...")
	close(stopCleanup)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := actionService.Shutdown(ctx); err != nil {
		zapLogger.Warn("Background runs did not finish before shutdown deadline", zap.Error(err))
	}
	zapLogger.Info("Server stopped")
}

func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
