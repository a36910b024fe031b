package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
postgres:
  host: localhost
  database: fuelsync
  user: fuelsync
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "fuelsync", cfg.Service.Name)
	require.Equal(t, 8080, cfg.Service.Port)
	require.Equal(t, 5432, cfg.Postgres.Port)
	require.Equal(t, "disable", cfg.Postgres.SSLMode)
	require.Equal(t, 24, cfg.Auth.TokenTTLHours)
	require.Equal(t, 20, cfg.Query.DefaultLimit)
	require.Equal(t, 100, cfg.Query.MaxLimit)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "from-env")
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("POSTGRES_PORT", "5433")

	path := writeConfig(t, `
postgres:
  host: db.internal
  database: fuelsync
  user: fuelsync
  password: from-file
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Postgres.Password)
	require.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	require.Equal(t, 5433, cfg.Postgres.Port)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	require.Error(t, cfg.Validate())

	cfg.Postgres.Host = "localhost"
	cfg.Postgres.Database = "fuelsync"
	cfg.Postgres.User = "fuelsync"
	require.Error(t, cfg.Validate()) // still no jwt secret

	cfg.Auth.JWTSecret = "s"
	require.NoError(t, cfg.Validate())

	cfg.OCR.Enabled = true
	require.Error(t, cfg.Validate())
	cfg.OCR.BaseURL = "https://ocr.internal"
	require.NoError(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	pg := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "fuelsync", SSLMode: "disable"}
	require.Equal(t, "host=db port=5432 user=u password=p dbname=fuelsync sslmode=disable", pg.DSN())
}
