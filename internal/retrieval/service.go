// Package retrieval serves stored assets for download behind the block flag.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dharsanguruparan/VidVault/internal/blobstore"
	"github.com/dharsanguruparan/VidVault/internal/model"
	"github.com/dharsanguruparan/VidVault/internal/repository"
)

// Download is a fully read asset ready to send.
type Download struct {
	Data        []byte
	ContentType string
	Filename    string
	Asset       model.Asset
}

// Service checks the block flag through its AccessCache, then loads the
// record and the converted bytes.
type Service struct {
	store  repository.AssetStore
	blobs  blobstore.Store
	cache  *AccessCache
	logger *slog.Logger
}

// NewService builds a Service. A nil cache gets the default capacity and no TTL.
func NewService(store repository.AssetStore, blobs blobstore.Store, cache *AccessCache, log *slog.Logger) *Service {
	if cache == nil {
		cache = NewAccessCache(DefaultCacheCapacity, 0)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		store:  store,
		blobs:  blobs,
		cache:  cache,
		logger: log.With(slog.String("component", "retrieval")),
	}
}

// Cache exposes the block-state cache.
func (s *Service) Cache() *AccessCache { return s.cache }

// FetchForDownload returns the bytes of asset id. Blocked assets fail with
// model.ErrForbidden before the canonical store is touched; unknown ids and
// missing files fail with model.ErrNotFound.
func (s *Service) FetchForDownload(ctx context.Context, id int64) (Download, error) {
	state, err := s.accessState(ctx, id)
	if err != nil {
		return Download{}, err
	}
	if !state.Exists {
		return Download{}, fmt.Errorf("video %d: %w", id, model.ErrNotFound)
	}
	if state.Blocked {
		s.logger.Info("download blocked", slog.Int64("id", id))
		return Download{}, fmt.Errorf("video %d: %w", id, model.ErrForbidden)
	}

	asset, err := s.store.Get(ctx, id)
	if err != nil {
		return Download{}, err
	}

	rc, err := s.blobs.Open(ctx, asset.Name)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			s.logger.Warn("record has no stored file", slog.Int64("id", id), slog.String("name", asset.Name))
			return Download{}, fmt.Errorf("video file %s unavailable: %w", asset.Name, model.ErrNotFound)
		}
		return Download{}, fmt.Errorf("open %s: %w", asset.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return Download{}, fmt.Errorf("read %s: %w", asset.Name, err)
	}
	return Download{
		Data:        data,
		ContentType: model.ContentType,
		Filename:    asset.OriginalFilename,
		Asset:       asset,
	}, nil
}

// SetBlocked changes the block flag for id and drops its cache entry.
func (s *Service) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	if err := s.store.SetBlocked(ctx, id, blocked); err != nil {
		return err
	}
	s.cache.Invalidate(id)
	s.logger.Info("block flag changed", slog.Int64("id", id), slog.Bool("blocked", blocked))
	return nil
}

// accessState consults the cache, falling back to the store. Unknown ids are
// not cached since they may be created later.
func (s *Service) accessState(ctx context.Context, id int64) (AccessState, error) {
	if state, ok := s.cache.Get(id); ok {
		return state, nil
	}
	blocked, err := s.store.BlockState(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return AccessState{}, nil
		}
		return AccessState{}, fmt.Errorf("check block state: %w", err)
	}
	state := AccessState{Exists: true, Blocked: blocked}
	s.cache.Add(id, state)
	return state, nil
}
