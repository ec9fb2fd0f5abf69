package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
	supa "github.com/supabase-community/supabase-go"
	"go.uber.org/zap"
)

// objectStore - часть клиента Supabase Storage, которую использует загрузчик.
type objectStore interface {
	UploadFile(bucketID string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// SupabaseUploader загружает объекты в публичный bucket Supabase Storage.
type SupabaseUploader struct {
	store  objectStore
	bucket string
	logger *zap.Logger
}

func NewSupabaseUploader(url, key, bucket string, logger *zap.Logger) (*SupabaseUploader, error) {
	client, err := supa.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	return newSupabaseUploader(client.Storage, bucket, logger), nil
}

func newSupabaseUploader(store objectStore, bucket string, logger *zap.Logger) *SupabaseUploader {
	return &SupabaseUploader{store: store, bucket: bucket, logger: logger.Named("SupabaseUploader")}
}

func (u *SupabaseUploader) Upload(ctx context.Context, data []byte, contentType, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := ContentPath(data, ext)
	// Один путь - одно содержимое, поэтому повторная загрузка безопасна
	upsert := true
	_, err := u.store.UploadFile(u.bucket, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrUploadFailed, path, err)
	}

	public := u.store.GetPublicUrl(u.bucket, path)
	uri := strings.TrimSpace(public.SignedURL)
	if uri == "" {
		return "", fmt.Errorf("%w: empty public url for %s", ErrUploadFailed, path)
	}
	u.logger.Info("Object uploaded", zap.String("path", path), zap.Int("size_bytes", len(data)), zap.String("uri", uri))
	return uri, nil
}

func (u *SupabaseUploader) UploadJSON(ctx context.Context, doc interface{}) (string, error) {
	data, err := marshalDocument(doc)
	if err != nil {
		return "", err
	}
	return u.Upload(ctx, data, "application/json", ".json")
}

var _ Uploader = (*SupabaseUploader)(nil)
