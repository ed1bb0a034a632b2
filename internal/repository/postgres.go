package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dharsanguruparan/VidVault/internal/model"
)

const assetColumns = "id, size, original_filename, name, is_blocked, created_at"

// PostgresStore wraps all SQL used by the API against Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs a store on an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Create inserts a record and returns it with the assigned id.
func (r *PostgresStore) Create(ctx context.Context, in model.NewAsset) (model.Asset, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO videos (size, original_filename, name)
		VALUES ($1, $2, $3)
		RETURNING `+assetColumns, in.Size, in.OriginalFilename, in.Name)
	asset, err := scanAsset(row)
	if err != nil {
		return model.Asset{}, fmt.Errorf("insert video: %w", err)
	}
	return asset, nil
}

// Get returns an asset by id.
func (r *PostgresStore) Get(ctx context.Context, id int64) (model.Asset, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM videos WHERE id=$1`, id)
	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Asset{}, fmt.Errorf("video %d: %w", id, model.ErrNotFound)
		}
		return model.Asset{}, fmt.Errorf("select video: %w", err)
	}
	return asset, nil
}

// BlockState returns the block flag for id.
func (r *PostgresStore) BlockState(ctx context.Context, id int64) (bool, error) {
	var blocked bool
	err := r.pool.QueryRow(ctx, `SELECT is_blocked FROM videos WHERE id=$1`, id).Scan(&blocked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("video %d: %w", id, model.ErrNotFound)
		}
		return false, fmt.Errorf("select block state: %w", err)
	}
	return blocked, nil
}

// SetBlocked flips the block flag.
func (r *PostgresStore) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE videos SET is_blocked=$1 WHERE id=$2`, blocked, id)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// Search filters by case-insensitive name substring and exact size.
func (r *PostgresStore) Search(ctx context.Context, f Filter) ([]model.Asset, error) {
	var (
		where []string
		args  []any
	)
	if pattern := f.NamePattern(); pattern != "" {
		args = append(args, pattern)
		where = append(where, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if f.Size != nil {
		args = append(args, *f.Size)
		where = append(where, fmt.Sprintf("size = $%d", len(args)))
	}
	query := `SELECT ` + assetColumns + ` FROM videos`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	defer rows.Close()
	assets := []model.Asset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	return assets, nil
}

// NameInUse reports whether any record references the canonical name.
func (r *PostgresStore) NameInUse(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM videos WHERE name=$1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check video name: %w", err)
	}
	return exists, nil
}

func scanAsset(row pgx.Row) (model.Asset, error) {
	var a model.Asset
	err := row.Scan(&a.ID, &a.Size, &a.OriginalFilename, &a.Name, &a.IsBlocked, &a.CreatedAt)
	return a, err
}
