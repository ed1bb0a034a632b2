package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VidVault/internal/blobstore"
	"github.com/dharsanguruparan/VidVault/internal/config"
	"github.com/dharsanguruparan/VidVault/internal/database"
	"github.com/dharsanguruparan/VidVault/internal/logger"
	"github.com/dharsanguruparan/VidVault/internal/model"
	"github.com/dharsanguruparan/VidVault/internal/repository"
	"github.com/dharsanguruparan/VidVault/internal/storage"
)

func TestOpenStoreSQLiteMigratesSchema(t *testing.T) {
	ctx := context.Background()
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "video.db")}

	store, closeFn, err := OpenStore(ctx, cfg, logger.Discard())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &repository.SQLiteStore{}, store)

	a, err := store.Create(ctx, model.NewAsset{Size: 1, OriginalFilename: "a.mov", Name: "a.mp4"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), a.ID)
}

func TestOpenStoreMemoryAndUnknown(t *testing.T) {
	store, closeFn, err := OpenStore(context.Background(), config.DatabaseConfig{Driver: "memory"}, logger.Discard())
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &storage.MemoryStore{}, store)

	_, _, err = OpenStore(context.Background(), config.DatabaseConfig{Driver: "mysql"}, logger.Discard())
	assert.Error(t, err)
}

func TestOpenBlobsLocal(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Dir = filepath.Join(t.TempDir(), "videos")

	blobs, err := OpenBlobs(context.Background(), &cfg)
	require.NoError(t, err)
	assert.IsType(t, &blobstore.Local{}, blobs)

	cfg.Storage.Backend = "ftp"
	_, err = OpenBlobs(context.Background(), &cfg)
	assert.Error(t, err)
}

func TestDialectFor(t *testing.T) {
	d, target, err := DialectFor(config.DatabaseConfig{Driver: "sqlite", Path: "v.db"})
	require.NoError(t, err)
	assert.Equal(t, database.SQLite, d)
	assert.Equal(t, "v.db", target)

	_, _, err = DialectFor(config.DatabaseConfig{Driver: "memory"})
	assert.Error(t, err)
}
