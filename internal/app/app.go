// Package app opens the stores selected by configuration. It is shared by the
// server, worker and CLI binaries.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dharsanguruparan/VidVault/internal/blobstore"
	"github.com/dharsanguruparan/VidVault/internal/config"
	"github.com/dharsanguruparan/VidVault/internal/database"
	"github.com/dharsanguruparan/VidVault/internal/repository"
	"github.com/dharsanguruparan/VidVault/internal/s3storage"
	"github.com/dharsanguruparan/VidVault/internal/storage"
)

// OpenStore opens the asset store for cfg.Database.Driver and migrates it to the
// latest schema. The returned func releases the connection.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (repository.AssetStore, func(), error) {
	switch cfg.Driver {
	case "memory":
		log.Warn("using in-memory asset store; records are lost on exit")
		return storage.NewMemoryStore(), func() {}, nil
	case "postgres":
		if err := database.Migrate(log, database.Postgres, cfg.URL, "up"); err != nil {
			return nil, nil, err
		}
		pool, err := database.Connect(ctx, cfg.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		return repository.NewPostgresStore(pool), pool.Close, nil
	case "sqlite":
		if err := database.Migrate(log, database.SQLite, cfg.Path, "up"); err != nil {
			return nil, nil, err
		}
		db, err := database.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteStore(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// OpenBlobs opens the canonical store for cfg.Storage.Backend.
func OpenBlobs(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.Storage.Backend {
	case "local":
		return blobstore.NewLocal(cfg.Storage.Dir)
	case "s3":
		store, err := s3storage.New(cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// DialectFor maps a database driver onto its migration set.
func DialectFor(cfg config.DatabaseConfig) (database.Dialect, string, error) {
	switch cfg.Driver {
	case "postgres":
		return database.Postgres, cfg.URL, nil
	case "sqlite":
		return database.SQLite, cfg.Path, nil
	default:
		return "", "", fmt.Errorf("driver %q has no migrations", cfg.Driver)
	}
}
