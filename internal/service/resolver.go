package service

import (
	"context"
	"fmt"

	"gamebook-server/internal/model"
	"gamebook-server/internal/story"

	"github.com/gagliardetto/solana-go"
)

// ledgerSceneResolver читает ассет, затем его документ метаданных.
// Разобранные сцены кешируются в Store: сцены после минта не меняются.
type ledgerSceneResolver struct {
	assets AssetReader
	docs   MetadataReader
	store  *story.Store
}

func NewSceneResolver(assets AssetReader, docs MetadataReader, store *story.Store) SceneResolver {
	return &ledgerSceneResolver{assets: assets, docs: docs, store: store}
}

func (r *ledgerSceneResolver) Resolve(ctx context.Context, address solana.PublicKey) (model.Scene, error) {
	if scene, ok := r.store.Scene(address); ok {
		return scene, nil
	}

	info, err := r.assets.Fetch(ctx, address)
	if err != nil {
		return model.Scene{}, fmt.Errorf("failed to fetch scene asset %s: %w", address, err)
	}
	meta, err := r.docs.Fetch(ctx, info.URI)
	if err != nil {
		return model.Scene{}, err
	}
	scene, err := meta.Scene()
	if err != nil {
		return model.Scene{}, fmt.Errorf("scene asset %s: %w", address, err)
	}

	r.store.Remember(address, scene)
	return scene, nil
}
