package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alekseev-bro/warcore/internal/config"
)

func TestDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, config.BackendMemory, cfg.Backend)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.False(t, cfg.NATSMemoryStorage)
	assert.Equal(t, uint(5), cfg.MaxRetries)
	assert.Equal(t, uint64(100), cfg.SnapshotEvery)
	assert.Equal(t, time.Second, cfg.SnapshotInterval)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestEnvironment(t *testing.T) {
	t.Setenv("WARCORE_BACKEND", "nats")
	t.Setenv("WARCORE_NATS_URL", "nats://nats:4222")
	t.Setenv("WARCORE_NATS_MEMORY_STORAGE", "true")
	t.Setenv("WARCORE_MAX_RETRIES", "9")
	t.Setenv("WARCORE_SNAPSHOT_INTERVAL", "250ms")

	cfg, err := config.Parse()
	require.NoError(t, err)
	assert.Equal(t, config.BackendNATS, cfg.Backend)
	assert.Equal(t, "nats://nats:4222", cfg.NATSURL)
	assert.True(t, cfg.NATSMemoryStorage)
	assert.Equal(t, uint(9), cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.SnapshotInterval)
}

func TestDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("WARCORE_LOG_FORMAT=json\nWARCORE_SNAPSHOT_EVERY=7\n"), 0o600))
	t.Setenv("WARCORE_SNAPSHOT_EVERY", "3")
	// godotenv.Load sets variables in the process; t.Setenv restores them afterwards.
	t.Setenv("WARCORE_LOG_FORMAT", "")
	require.NoError(t, os.Unsetenv("WARCORE_LOG_FORMAT"))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, uint64(3), cfg.SnapshotEvery, "the environment wins over the file")
}

func TestInvalid(t *testing.T) {
	t.Setenv("WARCORE_BACKEND", "postgres")
	_, err := config.Parse()
	assert.Error(t, err)

	t.Setenv("WARCORE_BACKEND", "memory")
	t.Setenv("WARCORE_MAX_RETRIES", "many")
	_, err = config.Parse()
	assert.Error(t, err)
}
