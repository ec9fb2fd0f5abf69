package artwork

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SanaAPIRequest - структура запроса к SANA API.
type SanaAPIRequest struct {
	Prompt string `json:"prompt"`
	Ratio  string `json:"ratio"`
}

// SanaRenderer вызывает self-hosted SANA сервер (POST /generate, ответ - байты картинки).
type SanaRenderer struct {
	baseURL string
	ratio   string
	client  *http.Client
	logger  *zap.Logger
}

func NewSanaRenderer(baseURL, ratio string, timeout time.Duration, logger *zap.Logger) *SanaRenderer {
	if ratio == "" {
		ratio = "1:1"
	}
	return &SanaRenderer{
		baseURL: strings.TrimRight(baseURL, "/"),
		ratio:   ratio,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.Named("SanaRenderer"),
	}
}

func (r *SanaRenderer) Render(ctx context.Context, sceneDescription string) (Image, error) {
	log := r.logger.With(zap.String("api_url", r.baseURL))

	reqBodyBytes, err := json.Marshal(SanaAPIRequest{Prompt: ScenePrompt(sceneDescription), Ratio: r.ratio})
	if err != nil {
		return Image{}, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpointURL := r.baseURL + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBodyBytes))
	if err != nil {
		return Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "image/*")

	resp, err := r.client.Do(req)
	if err != nil {
		log.Error("Failed to execute SANA API request", zap.Error(err))
		return Image{}, fmt.Errorf("%w: http request failed: %v", ErrImageGenerationFailed, err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Error("SANA API returned non-OK status",
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("response_body", bodyBytes),
		)
		return Image{}, fmt.Errorf("%w: API returned status %d", ErrImageGenerationFailed, resp.StatusCode)
	}
	if readErr != nil {
		return Image{}, fmt.Errorf("%w: failed to read response body: %v", ErrImageGenerationFailed, readErr)
	}
	if len(bodyBytes) == 0 {
		return Image{}, fmt.Errorf("%w: API returned empty data", ErrImageGenerationFailed)
	}

	log.Info("Image data received from SANA", zap.Int("size_bytes", len(bodyBytes)))
	return Image{Data: bodyBytes, ContentType: detectContentType(bodyBytes, resp.Header.Get("Content-Type"))}, nil
}

var _ Renderer = (*SanaRenderer)(nil)
