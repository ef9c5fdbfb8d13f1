package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, StorageFile, cfg.Storage)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
	assert.False(t, cfg.StrictTargets)
	assert.Equal(t, "bild", cfg.Dialect)
	assert.Equal(t, 30*time.Minute, cfg.PreviewTTL)
	assert.True(t, cfg.Export)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BILD_ADDR", ":9090")
	t.Setenv("BILD_STORAGE", "sqlite")
	t.Setenv("BILD_STRICT_TARGETS", "true")
	t.Setenv("BILD_WATCH_DEBOUNCE", "1s")
	t.Setenv("BILD_CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.True(t, cfg.StrictTargets)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("BILD_STORAGE", "s3")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("BILD_STORAGE", "file")
	t.Setenv("BILD_DEBUG", "maybe")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("BILD_DEBUG", "false")
	t.Setenv("BILD_PREVIEW_TTL", "0s")
	_, err = Load()
	assert.Error(t, err)
}
