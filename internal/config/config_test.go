package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.HTTPPort)
	assert.Equal(t, "50051", cfg.Server.GRPCPort)
	assert.Equal(t, 2*time.Second, cfg.Sale.GraceWindow)
	assert.Equal(t, time.Second, cfg.Sale.TickInterval)
	assert.Equal(t, 30*time.Second, cfg.Sale.SafetyPollInterval)
	assert.False(t, cfg.Sale.RemoveWhenSoldOut)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 10, cfg.Worker.Count)
	assert.Equal(t, 10000, cfg.Worker.QueueSize)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:8080"}, cfg.CORS.AllowOrigins)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SALE_GRACE_WINDOW", "500ms")
	t.Setenv("SALE_REMOVE_WHEN_SOLD_OUT", "true")
	t.Setenv("STORAGE_DRIVER", "mysql")
	t.Setenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/flashsale?parseTime=true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 500*time.Millisecond, cfg.Sale.GraceWindow)
	assert.True(t, cfg.Sale.RemoveWhenSoldOut)
	assert.Equal(t, StorageDriverMySQL, cfg.Storage.Driver)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("WORKER_COUNT=3\nREDIS_ADDR=cache:6379\n"), 0o600))
	t.Cleanup(func() {
		_ = os.Unsetenv("WORKER_COUNT")
		_ = os.Unsetenv("REDIS_ADDR")
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Worker.Count)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoadConfig_RejectsMissingDSN(t *testing.T) {
	chdirTemp(t)
	t.Setenv("STORAGE_DRIVER", "postgres")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTGRES_DSN")
}

func TestValidate(t *testing.T) {
	cfg := NewTestConfig()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Storage.Driver = "sqlite"
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Sale.TickInterval = 0
	assert.Error(t, bad.Validate())

	bad = cfg
	bad.Worker.Count = 0
	assert.Error(t, bad.Validate())
}
