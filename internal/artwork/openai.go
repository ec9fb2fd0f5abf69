package artwork

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIRenderer генерирует изображения через images API (dall-e-3).
type OpenAIRenderer struct {
	client *openaigo.Client
	model  string
	size   string
	logger *zap.Logger
}

func NewOpenAIRenderer(apiKey, baseURL, model, size string, timeout time.Duration, logger *zap.Logger) *OpenAIRenderer {
	cfg := openaigo.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	if model == "" {
		model = openaigo.CreateImageModelDallE3
	}
	if size == "" {
		size = openaigo.CreateImageSize1024x1024
	}
	return &OpenAIRenderer{
		client: openaigo.NewClientWithConfig(cfg),
		model:  model,
		size:   size,
		logger: logger.Named("OpenAIRenderer"),
	}
}

func (r *OpenAIRenderer) Render(ctx context.Context, sceneDescription string) (Image, error) {
	start := time.Now()
	resp, err := r.client.CreateImage(ctx, openaigo.ImageRequest{
		Prompt:         ScenePrompt(sceneDescription),
		Model:          r.model,
		N:              1,
		Size:           r.size,
		Quality:        openaigo.CreateImageQualityStandard,
		ResponseFormat: openaigo.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrImageGenerationFailed, err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return Image{}, fmt.Errorf("%w: empty response", ErrImageGenerationFailed)
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Image{}, fmt.Errorf("%w: bad base64 payload: %v", ErrImageGenerationFailed, err)
	}
	r.logger.Info("Image rendered", zap.Int("size_bytes", len(data)), zap.Duration("duration", time.Since(start)))
	return Image{Data: data, ContentType: detectContentType(data, "")}, nil
}

var _ Renderer = (*OpenAIRenderer)(nil)
