package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gamebook-server/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	prev := secretsDir
	secretsDir = t.TempDir()
	t.Cleanup(func() { secretsDir = prev })
	t.Setenv("TREASURY_ADDRESS", "9p2dsQk1M2AXEVKGLXa5AHtvYhJsW9gTHWwcBHHhHLXN")
	t.Setenv("MINTER_PRIVATE_KEY", "minter-key")
	t.Setenv("AI_API_KEY", "sk-test")
	t.Setenv("SOLANA_RPC_ACCESS_KEY", "")
	t.Setenv("SUPABASE_KEY", "")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "minter-key", cfg.MinterPrivateKey)
	assert.Equal(t, 10, cfg.WatchMaxChecks)
	assert.Equal(t, 5, cfg.WatchSignatureLimit)
	assert.Equal(t, 5*time.Second, cfg.WatchDelay)
	assert.Equal(t, uint32(20000), cfg.ComputeUnitLimit)
	assert.Equal(t, uint64(100), cfg.ComputeUnitPrice)
	assert.Equal(t, uint64(30000000), cfg.FeeFallbackLamports)
	assert.Equal(t, "gamebook_toly", cfg.ProgressSeed)
	assert.Equal(t, "polling", cfg.WatchMode)
	assert.Equal(t, ledger.CoreProgramAddress, cfg.CoreProgramID)
	assert.False(t, cfg.ProgressIncrementEnabled)
}

func TestLoadConfig_SecretFromFile(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MINTER_PRIVATE_KEY", "")
	require.NoError(t, os.WriteFile(filepath.Join(secretsDir, "minter_private_key"), []byte("  file-key\n"), 0o600))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.MinterPrivateKey)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing minter key", map[string]string{"MINTER_PRIVATE_KEY": ""}},
		{"missing ai key", map[string]string{"AI_API_KEY": ""}},
		{"bad watch mode", map[string]string{"WATCH_MODE": "push"}},
		{"zero checks", map[string]string{"WATCH_MAX_CHECKS": "0"}},
		{"supabase without key", map[string]string{"STORAGE_BACKEND": "supabase", "SUPABASE_URL": "https://x.supabase.co"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoadConfig_OllamaWithoutKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AI_API_KEY", "")
	t.Setenv("AI_CLIENT_TYPE", "ollama")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.AIAPIKey)
}

func TestEndpoints(t *testing.T) {
	cfg := &Config{RPCURL: "https://example.solana-devnet.quiknode.pro/", RPCAccessKey: "abc"}
	assert.Equal(t, "https://example.solana-devnet.quiknode.pro/abc/", cfg.RPCEndpoint())
	assert.Equal(t, "wss://example.solana-devnet.quiknode.pro/abc/", cfg.WSEndpoint())

	cfg = &Config{RPCURL: "http://127.0.0.1:8899"}
	assert.Equal(t, "http://127.0.0.1:8899", cfg.RPCEndpoint())
	assert.Equal(t, "ws://127.0.0.1:8899", cfg.WSEndpoint())

	cfg.WSURL = "ws://127.0.0.1:8900"
	assert.Equal(t, "ws://127.0.0.1:8900", cfg.WSEndpoint())
}
