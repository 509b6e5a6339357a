package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// inTempDir runs LoadConfig from a directory without ./configs.
func inTempDir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadConfigDefaults(t *testing.T) {
	inTempDir(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, 24*time.Hour, cfg.Attribution.Window)
	require.Equal(t, 15*time.Second, cfg.Gateway.Timeout)
	require.EqualValues(t, 5, cfg.Gateway.FailureThreshold)
	require.Empty(t, cfg.Gateway.URL)
	require.Equal(t, "http://localhost:8080/api/v1/webhooks/delivery", cfg.CallbackURL())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	inTempDir(t)
	t.Setenv("GATEWAY_URL", "https://gateway.example/hook")
	t.Setenv("SERVER_BASE_URL", "https://go.example/")
	t.Setenv("ATTRIBUTION_WINDOW", "2h")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https://gateway.example/hook", cfg.Gateway.URL)
	require.Equal(t, 2*time.Hour, cfg.Attribution.Window)
	require.Equal(t, "https://go.example/api/v1/webhooks/delivery", cfg.CallbackURL())
}

func TestLoadConfigFile(t *testing.T) {
	inTempDir(t)
	require.NoError(t, os.Mkdir("configs", 0o755))
	yaml := "server:\n  port: 9090\ngateway:\n  callback_url: https://hooks.example/delivery\n"
	require.NoError(t, os.WriteFile(filepath.Join("configs", "config.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "https://hooks.example/delivery", cfg.CallbackURL())
	require.Equal(t, 5, cfg.Scans.WorkerCount)
}
