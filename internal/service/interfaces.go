package service

import (
	"context"

	"gamebook-server/internal/fee"
	"gamebook-server/internal/ledger"
	"gamebook-server/internal/model"
	"gamebook-server/internal/narrative"
	"gamebook-server/internal/pipeline"
	"gamebook-server/internal/storage"

	"github.com/gagliardetto/solana-go"
)

// FeeOracle возвращает комиссию в лампортах. Никогда не падает.
type FeeOracle interface {
	ComputeFee(ctx context.Context) uint64
}

// TransactionBuilder собирает неподписанную транзакцию с тегом в memo.
type TransactionBuilder interface {
	Build(ctx context.Context, payer solana.PublicKey, lamports uint64, tag string) (*solana.Transaction, error)
}

// ProgressAccounts - аккаунты прогресса читателей.
type ProgressAccounts interface {
	Ensure(ctx context.Context, reader solana.PublicKey) (solana.PublicKey, bool, error)
	IncrementChapter(ctx context.Context, reader solana.PublicKey) error
}

// Narrator генерирует последствие выбора и следующую сцену.
type Narrator interface {
	Consequence(ctx context.Context, reader, priorText, choice string) (string, error)
	NextScene(ctx context.Context, reader, storySoFar string) (narrative.NextScene, error)
}

// AssetPipeline доводит прогон до минта и передачи ассета.
type AssetPipeline interface {
	Execute(ctx context.Context, run *pipeline.Run) error
}

// SceneResolver восстанавливает сцену по адресу ассета.
type SceneResolver interface {
	Resolve(ctx context.Context, address solana.PublicKey) (model.Scene, error)
}

// AssetReader читает аккаунт ассета.
type AssetReader interface {
	Fetch(ctx context.Context, asset solana.PublicKey) (ledger.AssetInfo, error)
}

// MetadataReader загружает документ метаданных по URI.
type MetadataReader interface {
	Fetch(ctx context.Context, uri string) (model.SceneMetadata, error)
}

var (
	_ FeeOracle          = (*fee.Oracle)(nil)
	_ TransactionBuilder = (*ledger.TxBuilder)(nil)
	_ ProgressAccounts   = (*ledger.ProgressProgram)(nil)
	_ Narrator           = (*narrative.Generator)(nil)
	_ AssetPipeline      = (*pipeline.Pipeline)(nil)
	_ AssetReader        = (*ledger.AssetClient)(nil)
	_ MetadataReader     = (*storage.MetadataFetcher)(nil)
)
