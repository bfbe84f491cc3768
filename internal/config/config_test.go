package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")

	cfg := New()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.RedisCfg.StatsTTL)
	assert.Equal(t, 24*time.Hour, cfg.WorkerCfg.PredictionInterval)
}

func TestNew_FileThenEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
port: "9090"
page_size: 20
postgres:
  host: db.internal
redis:
  stats_ttl: 90s
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("POSTGRES_HOST", "")

	cfg := New()

	assert.Equal(t, "7070", cfg.Port, "env wins over file")
	assert.Equal(t, 20, cfg.PageSize)
	assert.Equal(t, "db.internal", cfg.PostgresCfg.Host)
	assert.Equal(t, 90*time.Second, cfg.RedisCfg.StatsTTL)
	assert.Equal(t, "5432", cfg.PostgresCfg.Port, "keys absent from file keep defaults")
}

func TestNew_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("MINIO_SECURE", "yes-please")

	cfg := New()

	assert.Equal(t, 4, cfg.WorkerCfg.NumWorkers)
	assert.False(t, cfg.MinioCfg.MinioSecure)
}

func TestLoadFile_Missing(t *testing.T) {
	cfg := defaults()
	err := cfg.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LogConfig{Level: "debug"}.SlogLevel().String())
	assert.Equal(t, "WARN", LogConfig{Level: "Warning"}.SlogLevel().String())
	assert.Equal(t, "INFO", LogConfig{Level: "whatever"}.SlogLevel().String())
}
