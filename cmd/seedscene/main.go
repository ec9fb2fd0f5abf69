package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gamebook-server/internal/bootstrap"
	"gamebook-server/internal/config"
	"gamebook-server/internal/logger"
	"gamebook-server/internal/model"
	"gamebook-server/internal/pipeline"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// seedscene генерирует первую сцену, минтит ее без передачи владельцу
// и печатает адрес ассета для SEED_SCENE_ADDRESS.
func main() {
	prologue := flag.String("prologue", "", "opening text (defaults to STORY_PROLOGUE)")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall timeout")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}
	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "console"})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if *prologue == "" {
		*prologue = cfg.Prologue
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	components, err := bootstrap.Build(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to build components", zap.Error(err))
	}

	next, err := components.Generator.NextScene(ctx, "seed", *prologue)
	if err != nil {
		zapLogger.Fatal("Failed to generate opening scene", zap.Error(err))
	}
	scene := model.Scene{Title: next.Title, Description: next.Text, Choices: next.Choices}
	if err := scene.Validate(); err != nil {
		zapLogger.Fatal("Opening scene rejected", zap.Error(err))
	}

	run := pipeline.NewRun(uuid.NewString(), "seed", scene, nil)
	if err := components.Pipeline.Execute(ctx, run); err != nil {
		zapLogger.Fatal("Failed to mint opening scene", zap.Error(err))
	}

	zapLogger.Info("Opening scene minted",
		zap.String("asset", run.Asset.String()),
		zap.String("metadata_uri", run.MetadataURI),
		zap.String("minter", components.Minter.PublicKey().String()),
	)
	fmt.Printf("SEED_SCENE_ADDRESS=%s\n", run.Asset)
}
