package artwork

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// минимальный заголовок PNG, достаточный для DetectContentType
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestScenePrompt(t *testing.T) {
	p := ScenePrompt("  A beast blocks the ford. ")
	assert.Contains(t, p, "depicting: A beast blocks the ford.\n")
	assert.Contains(t, p, "red metallic helmet")
	assert.Contains(t, p, "DO NOT GENERATE TEXT")
	assert.Contains(t, p, "Watercolor")
}

func TestOpenAIRenderer(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"created": 1,
			"data":    []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(pngBytes)}},
		})
	}))
	defer srv.Close()

	r := NewOpenAIRenderer("key", srv.URL, "", "", 5*time.Second, zap.NewNop())
	img, err := r.Render(context.Background(), "scene")
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img.Data)
	assert.Equal(t, "image/png", img.ContentType)
	assert.Equal(t, ".png", img.Extension())

	assert.Equal(t, "dall-e-3", got["model"])
	assert.Equal(t, "1024x1024", got["size"])
	assert.Equal(t, "standard", got["quality"])
	assert.Equal(t, "b64_json", got["response_format"])
}

func TestSanaRenderer(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/generate", r.URL.Path)
			assert.Equal(t, "image/*", r.Header.Get("Accept"))
			var req SanaAPIRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "1:1", req.Ratio)
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
		}))
		defer srv.Close()

		img, err := NewSanaRenderer(srv.URL+"/", "", time.Second, zap.NewNop()).Render(context.Background(), "scene")
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", img.ContentType)
		assert.Equal(t, ".jpg", img.Extension())
	})

	t.Run("Server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gpu busy", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewSanaRenderer(srv.URL, "1:1", time.Second, zap.NewNop()).Render(context.Background(), "scene")
		assert.ErrorIs(t, err, ErrImageGenerationFailed)
	})
}
