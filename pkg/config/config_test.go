package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(viper.New(), t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, "postgres", cfg.Database.Type)
	require.Equal(t, 30*time.Second, cfg.Workflow.Timeout)
	require.Equal(t, time.UTC, cfg.Location())
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
APP_ENV: staging
PLATFORM:
  TIMEZONE: Asia/Jakarta
DATABASE:
  TYPE: sqlite
  DBNAME: salesdesk.db
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("DATABASE_DBNAME", "override.db")
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load(viper.New(), dir)
	require.NoError(t, err)

	require.Equal(t, "staging", cfg.AppEnv)
	require.Equal(t, "sqlite", cfg.Database.Type)
	require.Equal(t, "override.db", cfg.Database.DBNAME)
	require.Equal(t, "secret", cfg.Auth.JWTSecret)
	require.Equal(t, "Asia/Jakarta", cfg.Location().String())
}

func TestLoadRejectsTLSWithoutCertificates(t *testing.T) {
	t.Setenv("TLS_ENABLE", "true")

	_, err := Load(viper.New(), t.TempDir())
	require.Error(t, err)
}

func TestProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := Load(viper.New(), t.TempDir())
	require.Error(t, err)
}

func TestPyroscopeRequiresAddr(t *testing.T) {
	t.Setenv("PYROSCOPE_ENABLE", "true")

	_, err := Load(viper.New(), t.TempDir())
	require.Error(t, err)

	t.Setenv("PYROSCOPE_ADDR", "http://pyroscope:4040")
	cfg, err := Load(viper.New(), t.TempDir())
	require.NoError(t, err)
	require.True(t, cfg.Pyroscope.Enable)
	require.Equal(t, "grpc", cfg.Otel.Exporter)
}
