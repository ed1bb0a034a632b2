// Package search answers attribute queries over stored assets.
package search

import (
	"context"
	"fmt"

	"github.com/dharsanguruparan/VidVault/internal/model"
	"github.com/dharsanguruparan/VidVault/internal/repository"
)

// Query holds the optional predicates. Nil fields are ignored, as is an empty
// Name. A non-empty Name is matched as given, whitespace included.
type Query struct {
	Name *string
	Size *int64
}

// Service runs queries against the asset store.
type Service struct {
	store repository.AssetStore
}

// NewService builds a Service.
func NewService(store repository.AssetStore) *Service {
	return &Service{store: store}
}

// Search returns every asset whose name contains q.Name (case-insensitive) and
// whose size equals q.Size. An empty result is model.ErrNotFound.
func (s *Service) Search(ctx context.Context, q Query) ([]model.Asset, error) {
	f := repository.Filter{Size: q.Size}
	if q.Name != nil && *q.Name != "" {
		f.Name = q.Name
	}
	assets, err := s.store.Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	if len(assets) == 0 {
		return nil, fmt.Errorf("no videos match: %w", model.ErrNotFound)
	}
	return assets, nil
}
