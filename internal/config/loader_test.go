package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "imaginestorage.db", cfg.DatabasePath)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 0.0, cfg.RateLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "structured", cfg.Logging.Profile)
	assert.Empty(t, cfg.VaultKey)
}

func TestLoadFromFile(t *testing.T) {
	t.Chdir(t.TempDir())

	yaml := `
database:
  path: /var/lib/storage/configs.db
workers: 4
rate_limit: 12.5
logging:
  level: debug
  profile: console
`
	require.NoError(t, os.WriteFile("imaginestorage.yaml", []byte(yaml), 0o644))

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/storage/configs.db", cfg.DatabasePath)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 12.5, cfg.RateLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Profile)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("IMAGINESTORAGE_WORKERS", "3")
	t.Setenv("IMAGINESTORAGE_LOGGING_LEVEL", "warn")
	t.Setenv("IMAGINESTORAGE_VAULT_KEY", "test-sealing-key")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "test-sealing-key", cfg.VaultKey)
}

func TestLoadVaultKeyNeverReadFromFile(t *testing.T) {
	t.Chdir(t.TempDir())

	require.NoError(t, os.WriteFile("imaginestorage.yaml", []byte("vault_key: from-file\n"), 0o644))

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cfg.VaultKey)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("non-positive workers", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("IMAGINESTORAGE_WORKERS", "0")

		_, err := Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "workers")
	})

	t.Run("negative rate limit", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("IMAGINESTORAGE_RATE_LIMIT", "-1")

		_, err := Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate_limit")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Chdir(t.TempDir())
		require.NoError(t, os.WriteFile("imaginestorage.yaml", []byte("workers: [unclosed\n"), 0o644))

		_, err := Load(context.Background())
		require.Error(t, err)
	})
}

func TestLoadIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("workers: 99\n"), 0o644))

	cfg, err := Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
}
