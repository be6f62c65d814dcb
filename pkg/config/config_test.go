package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("APP_CONFIG_NAME", "does-not-exist")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, EnvDev, c.Env)
	require.Equal(t, 8888, c.Server.Port)
	require.Equal(t, 5*time.Minute, c.Webhook.Tolerance())
	require.Equal(t, time.Minute, c.Ledger.SweepInterval())
	require.Equal(t, 50, c.Ledger.SweepBatchSize)
	require.Equal(t, "usd", c.DefaultCurrency)
	require.Empty(t, c.Redis.Addr)
}

func TestNew_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
env: prod
webhook:
  signing_secret: whsec_file
ledger:
  sweep_batch_size: 5
`), 0o600))
	t.Setenv("APP_CONFIG_FILE", file)
	t.Setenv("APP_WEBHOOK_SIGNING_SECRET", "whsec_env")

	c, err := New()
	require.NoError(t, err)
	require.Equal(t, EnvProd, c.Env)
	require.Equal(t, "whsec_env", c.Webhook.SigningSecret)
	require.Equal(t, 5, c.Ledger.SweepBatchSize)
}
