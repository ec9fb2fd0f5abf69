package bootstrap

import (
	"fmt"
	"strings"

	"gamebook-server/internal/artwork"
	"gamebook-server/internal/config"
	"gamebook-server/internal/ledger"
	"gamebook-server/internal/narrative"
	"gamebook-server/internal/pipeline"
	"gamebook-server/internal/storage"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// Components - зависимости, общие для сервера и seedscene.
type Components struct {
	Chain     *ledger.RPCChain
	Minter    solana.PrivateKey
	Assets    *ledger.AssetClient
	Generator *narrative.Generator
	Uploader  storage.Uploader
	// LocalDir - каталог локального хранилища, пусто для supabase.
	LocalDir string
	Pipeline *pipeline.Pipeline
}

// Build создает клиента RPC, ключ минтера, AI клиента, рендерер, загрузчик и конвейер ассетов.
func Build(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	minter, err := ledger.ParsePrivateKey(cfg.MinterPrivateKey)
	if err != nil {
		return nil, err
	}
	coreProgram, err := ledger.ParseAddress(cfg.CoreProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid CORE_PROGRAM_ID: %w", err)
	}
	chain := ledger.NewRPCChain(cfg.RPCEndpoint(), cfg.ConfirmAttempts, cfg.ConfirmInterval, logger)
	assets := ledger.NewAssetClient(chain, minter, coreProgram, logger)

	aiClient, err := narrative.NewAIClient(narrative.ClientConfig{
		Type:    cfg.AIClientType,
		BaseURL: cfg.AIBaseURL,
		APIKey:  cfg.AIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI client: %w", err)
	}
	generator := narrative.NewGenerator(aiClient, cfg.Protagonist, cfg.AITemperature, logger)

	renderer, err := NewRenderer(cfg, logger)
	if err != nil {
		return nil, err
	}

	c := &Components{
		Chain:     chain,
		Minter:    minter,
		Assets:    assets,
		Generator: generator,
	}
	switch cfg.StorageBackend {
	case "supabase":
		c.Uploader, err = storage.NewSupabaseUploader(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseBucket, logger)
	default:
		var local *storage.LocalUploader
		local, err = storage.NewLocalUploader(cfg.LocalStorageDir, cfg.LocalStoragePublic, logger)
		if err == nil {
			c.Uploader = local
			c.LocalDir = local.Dir()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create uploader: %w", err)
	}

	c.Pipeline = pipeline.New(renderer, c.Uploader, assets, cfg.ImageStagingDir, logger)
	return c, nil
}

// NewRenderer выбирает генератор изображений по IMAGE_BACKEND.
func NewRenderer(cfg *config.Config, logger *zap.Logger) (artwork.Renderer, error) {
	switch strings.ToLower(cfg.ImageBackend) {
	case "openai":
		// Базовый URL текстовой модели подходит, только если это тоже OpenAI
		baseURL := ""
		if strings.EqualFold(cfg.AIClientType, "openai") {
			baseURL = cfg.AIBaseURL
		}
		return artwork.NewOpenAIRenderer(cfg.AIAPIKey, baseURL, cfg.ImageModel, cfg.ImageSize, cfg.ImageTimeout, logger), nil
	case "sana":
		if cfg.SanaBaseURL == "" {
			return nil, fmt.Errorf("IMAGE_BACKEND=sana requires SANA_SERVER_BASE_URL")
		}
		return artwork.NewSanaRenderer(cfg.SanaBaseURL, cfg.SanaRatio, cfg.ImageTimeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown IMAGE_BACKEND %q", cfg.ImageBackend)
	}
}
