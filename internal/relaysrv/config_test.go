package relaysrv

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testTokenKey = "0123456789abcdef0123456789abcdef"

func TestLoadConfigMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayd.yaml")
	data := `
listenAddr: "127.0.0.1:9090"
tokenKey: "` + testTokenKey + `"
rateRPS: 50
readTimeout: 10s
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9090", cfg.ListenAddr)
	require.Equal(t, testTokenKey, cfg.TokenKey)
	require.Equal(t, float64(50), cfg.RateRPS)
	require.Equal(t, 10*time.Second, cfg.ReadTimeout)

	// Untouched fields keep their defaults.
	require.Equal(t, DefaultConfig().DatabasePath, cfg.DatabasePath)
	require.Equal(t, DefaultConfig().RateBurst, cfg.RateBurst)
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayd.yaml")
	data := `
listenAddr: "127.0.0.1:9090"
tokenKey: "` + testTokenKey + `"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("VEILCHAT_LISTEN_ADDR", ":7777")
	t.Setenv("VEILCHAT_RATE_BURST", "99")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":7777", cfg.ListenAddr)
	require.Equal(t, 99, cfg.RateBurst)
}

func TestLoadConfigRejectsShortTokenKey(t *testing.T) {
	t.Setenv("VEILCHAT_TOKEN_KEY", "too-short")
	_, err := LoadConfig("")
	require.Error(t, err)
}

func TestLoadConfigMissingFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
