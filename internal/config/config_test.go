package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-social-client/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("WS_BASE_URL", "")
	t.Setenv("REVOKE_TIMEOUT", "")
	t.Setenv("RECONNECT_ATTEMPTS", "")

	cfg, err := config.Load("")
	require.NoError(t, err)

	require.Equal(t, "http://localhost:8080", cfg.GetAPIBaseURL())
	require.Equal(t, "ws://localhost:8080/ws", cfg.GetWSBaseURL())
	require.Equal(t, 3*time.Second, cfg.GetRevokeTimeout())
	require.Equal(t, 3, cfg.GetReconnectAttempts())
	require.Equal(t, 3*time.Second, cfg.GetReconnectDelay())
	require.Equal(t, 10*time.Second, cfg.GetPingInterval())
	require.Equal(t, 30*time.Second, cfg.GetPresencePollInterval())
}

func TestFileValuesAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "social.yaml")
	content := "API_BASE_URL: https://file.example.com/\nRECONNECT_ATTEMPTS: \"5\"\nPING_INTERVAL: 15s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("API_BASE_URL", "")
	t.Setenv("RECONNECT_ATTEMPTS", "")
	t.Setenv("PING_INTERVAL", "")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://file.example.com", cfg.GetAPIBaseURL())
	require.Equal(t, 5, cfg.GetReconnectAttempts())
	require.Equal(t, 15*time.Second, cfg.GetPingInterval())

	t.Setenv("API_BASE_URL", "https://env.example.com")
	cfg, err = config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://env.example.com", cfg.GetAPIBaseURL())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("REVOKE_TIMEOUT", "soon")
	t.Setenv("RECONNECT_ATTEMPTS", "-2")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.GetRevokeTimeout())
	require.Equal(t, 3, cfg.GetReconnectAttempts())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
