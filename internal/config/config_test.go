package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "UPLOAD_DIR", "MAX_FILE_BYTES", "ALLOWED_TYPES", "BLOB_BACKEND", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Address())
	assert.Equal(t, "mongodb://localhost:27017/tera-logic", cfg.DatabaseURL)
	assert.Equal(t, "uploads", cfg.UploadDir)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxFileSize)
	assert.ElementsMatch(t, []string{
		"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "application/pdf", "text/plain",
	}, cfg.AllowedTypes)
	assert.Equal(t, BlobBackendDisk, cfg.BlobBackend)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/files")
	t.Setenv("MAX_FILE_BYTES", "1024")
	t.Setenv("ALLOWED_TYPES", " Text/Plain , application/pdf,")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Address())
	assert.Equal(t, "postgres://u:p@db:5432/files", cfg.DatabaseURL)
	assert.Equal(t, int64(1024), cfg.MaxFileSize)
	assert.Equal(t, []string{"text/plain", "application/pdf"}, cfg.AllowedTypes)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("port out of range", func(t *testing.T) {
		t.Setenv("PORT", "70000")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("unknown blob backend", func(t *testing.T) {
		t.Setenv("BLOB_BACKEND", "ftp")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("s3 without endpoint", func(t *testing.T) {
		t.Setenv("BLOB_BACKEND", "s3")
		t.Setenv("S3_ENDPOINT", "")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoadDotEnvKeepsExistingVars(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nTERADROP_TEST_A=from-file\nTERADROP_TEST_B=\"quoted\"\n\nbroken line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("TERADROP_TEST_A", "from-env")
	t.Setenv("TERADROP_TEST_B", "")
	require.NoError(t, os.Unsetenv("TERADROP_TEST_B"))

	loadDotEnv(path)

	assert.Equal(t, "from-env", os.Getenv("TERADROP_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("TERADROP_TEST_B"))
}
