package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gamebook-server/internal/artwork"
	"gamebook-server/internal/model"
	"gamebook-server/internal/storage"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamebook_pipeline_step_duration_seconds",
			Help:    "Duration of asset pipeline steps.",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"step"},
	)
	stageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamebook_pipeline_step_failures_total",
			Help: "Asset pipeline failures by step.",
		},
		[]string{"step"},
	)
)

// Minter создает ассет и передает его владельцу.
type Minter interface {
	Mint(ctx context.Context, name, uri string) (solana.PublicKey, error)
	Transfer(ctx context.Context, asset, newOwner solana.PublicKey) error
}

// Pipeline выполняет шаги: рендер, сохранение во временный файл, загрузка изображения,
// загрузка метаданных, минт, передача владельцу, очистка.
type Pipeline struct {
	renderer   artwork.Renderer
	uploader   storage.Uploader
	minter     Minter
	stagingDir string
	logger     *zap.Logger
}

func New(renderer artwork.Renderer, uploader storage.Uploader, minter Minter, stagingDir string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		renderer:   renderer,
		uploader:   uploader,
		minter:     minter,
		stagingDir: stagingDir,
		logger:     logger.Named("AssetPipeline"),
	}
}

// Execute доводит прогон до StageCompleted. Каждый шаг - одна попытка.
// Повторный вызов после ошибки продолжает с последнего завершенного этапа.
func (p *Pipeline) Execute(ctx context.Context, run *Run) error {
	log := p.logger.With(zap.String("run_id", run.ID), zap.String("reader", run.Reader), zap.String("title", run.Scene.Title))
	if run.Stage > StagePending {
		log.Info("Resuming pipeline run", zap.Stringer("stage", run.Stage))
	}

	steps := []struct {
		name string
		done func() bool
		do   func(context.Context, *Run) error
	}{
		{"stage_image", func() bool { return run.StagedPath != "" || run.ImageURI != "" }, p.stageImage},
		{"upload_image", func() bool { return run.ImageURI != "" }, p.uploadImage},
		{"upload_metadata", func() bool { return run.MetadataURI != "" }, p.uploadMetadata},
		{"mint", func() bool { return !run.Asset.IsZero() }, p.mint},
		{"transfer", func() bool { return run.Owner == nil || run.Stage >= StageTransferred }, p.transfer},
	}

	for _, step := range steps {
		if step.done() {
			continue
		}
		start := time.Now()
		if err := step.do(ctx, run); err != nil {
			stageFailures.WithLabelValues(step.name).Inc()
			serr := &StageError{Step: step.name, Reached: run.Stage, Err: err}
			p.logOrphans(log, run, serr)
			return serr
		}
		stageDuration.WithLabelValues(step.name).Observe(time.Since(start).Seconds())
	}

	p.cleanup(log, run)
	run.Stage = StageCompleted
	log.Info("Pipeline run completed",
		zap.String("asset", run.Asset.String()),
		zap.String("metadata_uri", run.MetadataURI),
	)
	return nil
}

func (p *Pipeline) stageImage(ctx context.Context, run *Run) error {
	img, err := p.renderer.Render(ctx, run.Scene.Description)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(p.stagingDir, 0o755); err != nil {
		return fmt.Errorf("failed to create staging dir: %w", err)
	}
	path := filepath.Join(p.stagingDir, run.Slug()+img.Extension())
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return fmt.Errorf("failed to stage image: %w", err)
	}
	run.StagedPath = path
	run.ContentType = img.ContentType
	run.Stage = StageStaged
	return nil
}

func (p *Pipeline) uploadImage(ctx context.Context, run *Run) error {
	data, err := os.ReadFile(run.StagedPath)
	if err != nil {
		return fmt.Errorf("failed to read staged image: %w", err)
	}
	uri, err := p.uploader.Upload(ctx, data, run.ContentType, filepath.Ext(run.StagedPath))
	if err != nil {
		return err
	}
	run.ImageURI = uri
	run.Scene.ImageURI = uri
	return nil
}

func (p *Pipeline) uploadMetadata(ctx context.Context, run *Run) error {
	doc := model.NewSceneMetadata(run.Scene, run.ImageURI, run.ContentType)
	uri, err := p.uploader.UploadJSON(ctx, doc)
	if err != nil {
		return err
	}
	run.MetadataURI = uri
	run.Stage = StageUploaded
	return nil
}

func (p *Pipeline) mint(ctx context.Context, run *Run) error {
	asset, err := p.minter.Mint(ctx, run.Scene.Title, run.MetadataURI)
	if err != nil {
		return err
	}
	run.Asset = asset
	run.Stage = StageMinted
	return nil
}

func (p *Pipeline) transfer(ctx context.Context, run *Run) error {
	if err := p.minter.Transfer(ctx, run.Asset, *run.Owner); err != nil {
		return err
	}
	run.Stage = StageTransferred
	return nil
}

// cleanup удаляет временный файл; ошибка только логируется.
func (p *Pipeline) cleanup(log *zap.Logger, run *Run) {
	if run.StagedPath == "" {
		return
	}
	if err := os.Remove(run.StagedPath); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to remove staged image", zap.String("path", run.StagedPath), zap.Error(err))
		return
	}
	run.StagedPath = ""
}

func (p *Pipeline) logOrphans(log *zap.Logger, run *Run, serr *StageError) {
	fields := []zap.Field{
		zap.String("step", serr.Step),
		zap.Stringer("reached", serr.Reached),
		zap.Error(serr.Err),
	}
	if run.StagedPath != "" {
		fields = append(fields, zap.String("staged_path", run.StagedPath))
	}
	if run.ImageURI != "" {
		fields = append(fields, zap.String("orphaned_image_uri", run.ImageURI))
	}
	if run.MetadataURI != "" {
		fields = append(fields, zap.String("orphaned_metadata_uri", run.MetadataURI))
	}
	if !run.Asset.IsZero() {
		fields = append(fields, zap.String("orphaned_asset", run.Asset.String()))
	}
	log.Error("Pipeline run aborted", fields...)
}
