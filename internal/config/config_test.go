package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "video.db", cfg.Database.Path)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "videos", cfg.Storage.Dir)
	assert.Equal(t, 128, cfg.Cache.Capacity)
	assert.Zero(t, cfg.Cache.TTL)
	assert.Equal(t, os.TempDir(), cfg.Storage.WorkDir)
	assert.Empty(t, cfg.Queue.RedisAddr)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vidvault.toml")
	body := `
[server]
address = ":9000"
admin_address = "127.0.0.1:9001"

[database]
driver = "postgres"
url = "postgres://file@localhost/vidvault"

[transcode]
workers = 4
timeout = "90s"

[cache]
capacity = 16
ttl = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("VIDVAULT_DATABASE_URL", "postgres://env@localhost/vidvault")
	t.Setenv("VIDVAULT_CACHE_CAPACITY", "not-a-number")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, "127.0.0.1:9001", cfg.Server.AdminAddress)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://env@localhost/vidvault", cfg.Database.URL)
	assert.Equal(t, 4, cfg.Transcode.Workers)
	assert.Equal(t, 90*time.Second, cfg.Transcode.Timeout)
	// invalid env values fall back to what the file said
	assert.Equal(t, 16, cfg.Cache.Capacity)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("VIDVAULT_DB_DRIVER", "oracle")
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestLoadRequiresS3Endpoint(t *testing.T) {
	t.Setenv("VIDVAULT_STORAGE_BACKEND", "s3")
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorContains(t, err, "s3.endpoint")

	t.Setenv("VIDVAULT_S3_ENDPOINT", "localhost:9000")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "videos", cfg.S3.Bucket)
}
