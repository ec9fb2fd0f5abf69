package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config содержит конфигурацию action-сервера и утилиты seedscene.
type Config struct {
	// Настройки сервера
	Port          string `envconfig:"PORT" default:"8000"`
	PublicBaseURL string `envconfig:"PUBLIC_BASE_URL" default:"http://localhost:8000"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding   string `envconfig:"LOG_ENCODING" default:"json"`

	// Параметры action-протокола
	ActionTitle   string `envconfig:"ACTION_TITLE" default:"Toly's Infinite Adventure"`
	ActionLabel   string `envconfig:"ACTION_LABEL" default:"Continue Toly's Journey"`
	ActionMessage string `envconfig:"ACTION_MESSAGE" default:"The adventure continues! Refresh this page in a minute to see what happens next!"`
	ActionVersion string `envconfig:"ACTION_VERSION" default:"2.1.3"`
	BlockchainID  string `envconfig:"BLOCKCHAIN_ID" default:"solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1"`

	// Solana
	RPCURL   string `envconfig:"SOLANA_RPC_URL" default:"https://api.devnet.solana.com"`
	WSURL    string `envconfig:"SOLANA_WS_URL"`
	Treasury string `envconfig:"TREASURY_ADDRESS" required:"true"`
	// Секретные поля БЕЗ envconfig тега
	RPCAccessKey     string `ignored:"true"`
	MinterPrivateKey string `ignored:"true"`

	CoreProgramID            string `envconfig:"CORE_PROGRAM_ID" default:"CoREENxT6tW1HoK8ypY1SyRMZ4Rj91Jb1fCqzH8M3Ks9"`
	ProgressProgramID        string `envconfig:"PROGRESS_PROGRAM_ID" default:"BLEa4UDmpSn7URDAmmWXhg1KpTKt43Rp7bTeUgo7X3Bz"`
	ProgressSeed             string `envconfig:"PROGRESS_SEED" default:"gamebook_toly"`
	ProgressIncrementEnabled bool   `envconfig:"PROGRESS_INCREMENT_ENABLED" default:"false"`
	SeedSceneAddress         string `envconfig:"SEED_SCENE_ADDRESS"`

	ComputeUnitLimit uint32        `envconfig:"COMPUTE_UNIT_LIMIT" default:"20000"`
	ComputeUnitPrice uint64        `envconfig:"COMPUTE_UNIT_PRICE" default:"100"`
	ConfirmAttempts  int           `envconfig:"CONFIRM_ATTEMPTS" default:"30"`
	ConfirmInterval  time.Duration `envconfig:"CONFIRM_INTERVAL" default:"2s"`

	// Комиссия
	FeeTargetUSD        float64       `envconfig:"FEE_TARGET_USD" default:"5"`
	FeeFallbackLamports uint64        `envconfig:"FEE_FALLBACK_LAMPORTS" default:"30000000"`
	PriceFeedURL        string        `envconfig:"PRICE_FEED_URL" default:"https://api.coingecko.com/api/v3/simple/price?ids=solana&vs_currencies=usd"`
	PriceFeedPath       string        `envconfig:"PRICE_FEED_PATH" default:"solana.usd"`
	PriceFeedTimeout    time.Duration `envconfig:"PRICE_FEED_TIMEOUT" default:"5s"`

	// Наблюдатель за транзакциями
	WatchMode           string        `envconfig:"WATCH_MODE" default:"polling"` // polling | subscription
	WatchMaxChecks      int           `envconfig:"WATCH_MAX_CHECKS" default:"10"`
	WatchSignatureLimit int           `envconfig:"WATCH_SIGNATURE_LIMIT" default:"5"`
	WatchDelay          time.Duration `envconfig:"WATCH_DELAY" default:"5s"`

	// Настройки AI
	AIClientType  string        `envconfig:"AI_CLIENT_TYPE" default:"openai"` // openai | ollama | gemini
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel       string        `envconfig:"AI_MODEL" default:"gpt-4o-2024-08-06"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"120s"`
	AITemperature float64       `envconfig:"AI_TEMPERATURE" default:"0.7"`
	AIAPIKey      string        `ignored:"true"`

	Protagonist string `envconfig:"STORY_PROTAGONIST" default:"Toly, a knight of Solana"`
	Prologue    string `envconfig:"STORY_PROLOGUE" default:"Toly, the knight of Solana, stood at the edge of the Enchanted Forest, his quest to save the kingdom just beginning."`

	// Генерация изображений
	ImageBackend    string        `envconfig:"IMAGE_BACKEND" default:"openai"` // openai | sana
	ImageModel      string        `envconfig:"IMAGE_MODEL" default:"dall-e-3"`
	ImageSize       string        `envconfig:"IMAGE_SIZE" default:"1024x1024"`
	SanaBaseURL     string        `envconfig:"SANA_SERVER_BASE_URL"`
	SanaRatio       string        `envconfig:"SANA_IMAGE_RATIO" default:"1:1"`
	ImageTimeout    time.Duration `envconfig:"IMAGE_TIMEOUT" default:"180s"`
	ImageStagingDir string        `envconfig:"IMAGE_STAGING_DIR" default:"./image"`

	// Хранилище
	StorageBackend     string        `envconfig:"STORAGE_BACKEND" default:"local"` // supabase | local
	SupabaseURL        string        `envconfig:"SUPABASE_URL"`
	SupabaseBucket     string        `envconfig:"SUPABASE_BUCKET" default:"gamebook"`
	SupabaseKey        string        `ignored:"true"`
	LocalStorageDir    string        `envconfig:"LOCAL_STORAGE_DIR" default:"./uploads"`
	LocalStoragePublic string        `envconfig:"LOCAL_STORAGE_PUBLIC_URL" default:"http://localhost:8000/assets"`
	MetadataTimeout    time.Duration `envconfig:"METADATA_TIMEOUT" default:"15s"`

	// RabbitMQ (опционально)
	RabbitMQURL      string `envconfig:"RABBITMQ_URL"`
	SceneEventsQueue string `envconfig:"SCENE_EVENTS_QUEUE" default:"gamebook_scene_events"`

	// Ограничение частоты POST /post_action
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"2"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"5"`

	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
}

// RPCEndpoint возвращает RPC URL с ключом доступа (формат QuickNode: <base>/<key>/).
func (c *Config) RPCEndpoint() string {
	if c.RPCAccessKey == "" {
		return c.RPCURL
	}
	return strings.TrimRight(c.RPCURL, "/") + "/" + c.RPCAccessKey + "/"
}

// WSEndpoint возвращает websocket endpoint; если он не задан явно, выводится из RPC.
func (c *Config) WSEndpoint() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	endpoint := c.RPCEndpoint()
	switch {
	case strings.HasPrefix(endpoint, "https://"):
		return "wss://" + strings.TrimPrefix(endpoint, "https://")
	case strings.HasPrefix(endpoint, "http://"):
		return "ws://" + strings.TrimPrefix(endpoint, "http://")
	}
	return endpoint
}

// Validate проверяет значения, которые envconfig проверить не может.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.PublicBaseURL); err != nil {
		return fmt.Errorf("invalid PUBLIC_BASE_URL %q: %w", c.PublicBaseURL, err)
	}
	if c.WatchMaxChecks < 1 {
		return fmt.Errorf("WATCH_MAX_CHECKS must be >= 1, got %d", c.WatchMaxChecks)
	}
	if c.WatchSignatureLimit < 1 {
		return fmt.Errorf("WATCH_SIGNATURE_LIMIT must be >= 1, got %d", c.WatchSignatureLimit)
	}
	if c.FeeTargetUSD <= 0 {
		return fmt.Errorf("FEE_TARGET_USD must be positive, got %v", c.FeeTargetUSD)
	}
	switch c.WatchMode {
	case "polling", "subscription":
	default:
		return fmt.Errorf("unknown WATCH_MODE %q", c.WatchMode)
	}
	switch c.StorageBackend {
	case "local":
	case "supabase":
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			return fmt.Errorf("STORAGE_BACKEND=supabase requires SUPABASE_URL and supabase_key secret")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	var loadErr error
	cfg.MinterPrivateKey, loadErr = ReadSecret("minter_private_key", "MINTER_PRIVATE_KEY")
	if loadErr != nil {
		return nil, loadErr
	}
	// Ключ AI не нужен для локального ollama
	cfg.AIAPIKey = readOptionalSecret("ai_api_key", "AI_API_KEY")
	if cfg.AIAPIKey == "" && cfg.AIClientType != "ollama" {
		return nil, fmt.Errorf("AI_API_KEY is required for AI_CLIENT_TYPE=%s", cfg.AIClientType)
	}
	cfg.RPCAccessKey = readOptionalSecret("solana_rpc_access_key", "SOLANA_RPC_ACCESS_KEY")
	cfg.SupabaseKey = readOptionalSecret("supabase_key", "SUPABASE_KEY")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LogSummary пишет загруженную конфигурацию в лог, секреты маскируются.
func (c *Config) LogSummary(logger *zap.Logger) {
	logger.Info("Configuration loaded",
		zap.String("port", c.Port),
		zap.String("public_base_url", c.PublicBaseURL),
		zap.String("rpc_url", c.RPCURL),
		zap.Bool("rpc_access_key", c.RPCAccessKey != ""),
		zap.String("treasury", c.Treasury),
		zap.String("core_program", c.CoreProgramID),
		zap.String("progress_program", c.ProgressProgramID),
		zap.Bool("progress_increment", c.ProgressIncrementEnabled),
		zap.String("seed_scene", c.SeedSceneAddress),
		zap.Float64("fee_target_usd", c.FeeTargetUSD),
		zap.Uint64("fee_fallback_lamports", c.FeeFallbackLamports),
		zap.String("watch_mode", c.WatchMode),
		zap.Int("watch_max_checks", c.WatchMaxChecks),
		zap.Duration("watch_delay", c.WatchDelay),
		zap.String("ai_client", c.AIClientType),
		zap.String("ai_model", c.AIModel),
		zap.String("image_backend", c.ImageBackend),
		zap.String("storage_backend", c.StorageBackend),
		zap.Bool("rabbitmq", c.RabbitMQURL != ""),
		zap.String("minter_key", "[ЗАГРУЖЕН]"),
	)
}
