package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// LocalUploader пишет объекты в каталог, который сервер раздает по /assets.
type LocalUploader struct {
	dir        string
	publicBase string
	logger     *zap.Logger
}

func NewLocalUploader(dir, publicBase string, logger *zap.Logger) (*LocalUploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir %s: %w", dir, err)
	}
	return &LocalUploader{
		dir:        dir,
		publicBase: strings.TrimRight(publicBase, "/"),
		logger:     logger.Named("LocalUploader"),
	}, nil
}

// Dir - каталог с объектами.
func (u *LocalUploader) Dir() string {
	return u.dir
}

func (u *LocalUploader) Upload(ctx context.Context, data []byte, contentType, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := ContentPath(data, ext)
	path := filepath.Join(u.dir, name)

	// Временный файл + rename, чтобы читатель не увидел половину объекта
	tmp, err := os.CreateTemp(u.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	uri := u.publicBase + "/" + name
	u.logger.Info("Object stored", zap.String("path", path), zap.String("content_type", contentType), zap.String("uri", uri))
	return uri, nil
}

func (u *LocalUploader) UploadJSON(ctx context.Context, doc interface{}) (string, error) {
	data, err := marshalDocument(doc)
	if err != nil {
		return "", err
	}
	return u.Upload(ctx, data, "application/json", ".json")
}

var _ Uploader = (*LocalUploader)(nil)
