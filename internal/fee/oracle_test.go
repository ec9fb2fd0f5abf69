package fee

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct {
	price float64
	err   error
	calls int
}

func (s *stubSource) Price(context.Context) (float64, error) {
	s.calls++
	return s.price, s.err
}

const fallback = 30_000_000

func TestOracle_ComputeFee(t *testing.T) {
	t.Run("Rate from feed", func(t *testing.T) {
		src := &stubSource{price: 250}
		o := NewOracle(src, 5, fallback, zap.NewNop())
		// 5 / 250 = 0.02 SOL
		assert.Equal(t, uint64(20_000_000), o.ComputeFee(context.Background()))
		assert.Equal(t, 1, src.calls)
	})

	t.Run("Rounds to nearest lamport", func(t *testing.T) {
		o := NewOracle(&stubSource{price: 3}, 1, fallback, zap.NewNop())
		assert.Equal(t, uint64(333_333_333), o.ComputeFee(context.Background()))
	})

	t.Run("Feed error returns fallback", func(t *testing.T) {
		src := &stubSource{err: errors.New("boom")}
		o := NewOracle(src, 5, fallback, zap.NewNop())
		assert.Equal(t, uint64(fallback), o.ComputeFee(context.Background()))
		assert.Equal(t, 1, src.calls, "no retries on the feed")
	})

	t.Run("Non-positive rate returns fallback", func(t *testing.T) {
		for _, p := range []float64{0, -10} {
			o := NewOracle(&stubSource{price: p}, 5, fallback, zap.NewNop())
			assert.Equal(t, uint64(fallback), o.ComputeFee(context.Background()))
		}
	})
}

func TestHTTPPriceSource(t *testing.T) {
	t.Run("Parses CoinGecko response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"solana":{"usd":142.37}}`))
		}))
		defer srv.Close()

		src := NewHTTPPriceSource(srv.URL, "solana.usd", time.Second)
		price, err := src.Price(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 142.37, price, 1e-9)
	})

	t.Run("Missing field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"solana":{"eur":1}}`))
		}))
		defer srv.Close()

		_, err := NewHTTPPriceSource(srv.URL, "solana.usd", time.Second).Price(context.Background())
		assert.ErrorIs(t, err, ErrPriceUnavailable)
	})

	t.Run("Non-numeric value", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"solana":{"usd":"n/a"}}`))
		}))
		defer srv.Close()

		_, err := NewHTTPPriceSource(srv.URL, "solana.usd", time.Second).Price(context.Background())
		assert.ErrorIs(t, err, ErrPriceUnavailable)
	})

	t.Run("Bad status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewHTTPPriceSource(srv.URL, "solana.usd", time.Second).Price(context.Background())
		assert.ErrorIs(t, err, ErrPriceUnavailable)
	})

	t.Run("Timeout falls back in oracle", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{"solana":{"usd":100}}`))
		}))
		defer srv.Close()

		o := NewOracle(NewHTTPPriceSource(srv.URL, "solana.usd", 20*time.Millisecond), 5, fallback, zap.NewNop())
		assert.Equal(t, uint64(fallback), o.ComputeFee(context.Background()))
	})
}
