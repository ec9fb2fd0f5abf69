package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gamebook-server/internal/model"
)

var ErrMetadataUnavailable = errors.New("metadata unavailable")

// MetadataFetcher загружает документы метаданных сцен по URI.
// Разобранные сцены кеширует вызывающий (story.Store).
type MetadataFetcher struct {
	client *http.Client
}

func NewMetadataFetcher(timeout time.Duration) *MetadataFetcher {
	return &MetadataFetcher{client: &http.Client{Timeout: timeout}}
}

func (f *MetadataFetcher) Fetch(ctx context.Context, uri string) (model.SceneMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return model.SceneMetadata{}, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return model.SceneMetadata{}, fmt.Errorf("%w: %v", ErrMetadataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.SceneMetadata{}, fmt.Errorf("%w: %s returned status %d", ErrMetadataUnavailable, uri, resp.StatusCode)
	}

	var meta model.SceneMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&meta); err != nil {
		return model.SceneMetadata{}, fmt.Errorf("%w: bad document at %s: %v", ErrMetadataUnavailable, uri, err)
	}
	return meta, nil
}
