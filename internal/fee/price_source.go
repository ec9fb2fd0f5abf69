package fee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
)

var ErrPriceUnavailable = errors.New("price feed unavailable")

// PriceSource возвращает курс нативного токена в фиатной валюте.
type PriceSource interface {
	Price(ctx context.Context) (float64, error)
}

// HTTPPriceSource читает курс из JSON-ответа по gjson-пути, например CoinGecko simple/price.
type HTTPPriceSource struct {
	url    string
	path   string
	client *http.Client
}

// NewHTTPPriceSource создает источник курса. path - путь gjson до числа (solana.usd).
func NewHTTPPriceSource(url, path string, timeout time.Duration) *HTTPPriceSource {
	return &HTTPPriceSource{
		url:    url,
		path:   path,
		client: &http.Client{Timeout: timeout},
	}
}

// Price выполняет один запрос к фиду без повторов.
func (s *HTTPPriceSource) Price(ctx context.Context) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to create request: %v", ErrPriceUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPriceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read body: %v", ErrPriceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d: %s", ErrPriceUnavailable, resp.StatusCode, string(body))
	}

	value := gjson.GetBytes(body, s.path)
	if !value.Exists() || value.Type != gjson.Number {
		return 0, fmt.Errorf("%w: no numeric value at %q", ErrPriceUnavailable, s.path)
	}
	return value.Float(), nil
}
