// Package repository holds the asset store contract and its SQL-backed
// implementations.
package repository

import (
	"context"
	"strings"

	"github.com/dharsanguruparan/VidVault/internal/model"
)

// AssetStore persists asset records. Lookups by id return model.ErrNotFound
// when no record exists. Search returns an empty slice, not an error, when
// nothing matches.
type AssetStore interface {
	Create(ctx context.Context, in model.NewAsset) (model.Asset, error)
	Get(ctx context.Context, id int64) (model.Asset, error)
	BlockState(ctx context.Context, id int64) (bool, error)
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	Search(ctx context.Context, f Filter) ([]model.Asset, error)
	NameInUse(ctx context.Context, name string) (bool, error)
}

// Filter narrows Search. A nil or empty Name and a nil Size match everything.
type Filter struct {
	// Name matches case-insensitively anywhere in the canonical name.
	Name *string
	Size *int64
}

// NamePattern returns the escaped LIKE pattern for Name, or "" when the name
// predicate is absent. The escape character is a backslash.
func (f Filter) NamePattern() string {
	if f.Name == nil || *f.Name == "" {
		return ""
	}
	return "%" + escapeLike(strings.ToLower(*f.Name)) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var (
	_ AssetStore = (*PostgresStore)(nil)
	_ AssetStore = (*SQLiteStore)(nil)
)
