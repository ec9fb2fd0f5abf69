package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUploadFailed = errors.New("upload failed")

// Uploader сохраняет байты по адресу, производному от содержимого, и возвращает публичный URI.
type Uploader interface {
	Upload(ctx context.Context, data []byte, contentType, ext string) (string, error)
	UploadJSON(ctx context.Context, doc interface{}) (string, error)
}

// ContentPath - относительный путь объекта: sha256 содержимого + расширение.
func ContentPath(data []byte, ext string) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]) + ext
}

// marshalDocument сериализует документ для UploadJSON.
func marshalDocument(doc interface{}) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal document: %v", ErrUploadFailed, err)
	}
	return data, nil
}
