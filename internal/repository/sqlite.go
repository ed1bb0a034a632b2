package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dharsanguruparan/VidVault/internal/database"
	"github.com/dharsanguruparan/VidVault/internal/model"
)

// SQLiteStore is the asset store on a local SQLite file. The schema must have
// been migrated before use.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore constructs a store on an open database handle.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Create inserts a record and returns it with the assigned id.
func (s *SQLiteStore) Create(ctx context.Context, in model.NewAsset) (model.Asset, error) {
	createdAt := s.now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO videos (size, original_filename, name, is_blocked, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		in.Size, in.OriginalFilename, in.Name, createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return model.Asset{}, fmt.Errorf("insert video: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Asset{}, fmt.Errorf("insert video: %w", err)
	}
	return model.Asset{
		ID:               id,
		Size:             in.Size,
		OriginalFilename: in.OriginalFilename,
		Name:             in.Name,
		CreatedAt:        createdAt,
	}, nil
}

// Get returns an asset by id.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (model.Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM videos WHERE id = ?`, id)
	asset, err := scanSQLiteAsset(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Asset{}, fmt.Errorf("video %d: %w", id, model.ErrNotFound)
		}
		return model.Asset{}, fmt.Errorf("select video: %w", err)
	}
	return asset, nil
}

// BlockState returns the block flag for id.
func (s *SQLiteStore) BlockState(ctx context.Context, id int64) (bool, error) {
	var blocked bool
	err := s.db.QueryRowContext(ctx, `SELECT is_blocked FROM videos WHERE id = ?`, id).Scan(&blocked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("video %d: %w", id, model.ErrNotFound)
		}
		return false, fmt.Errorf("select block state: %w", err)
	}
	return blocked, nil
}

// SetBlocked flips the block flag.
func (s *SQLiteStore) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE videos SET is_blocked = ? WHERE id = ?`, blocked, id)
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("video %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// Search filters by case-insensitive name substring and exact size. The column
// is folded with the same Unicode mapping as the pattern.
func (s *SQLiteStore) Search(ctx context.Context, f Filter) ([]model.Asset, error) {
	var (
		where []string
		args  []any
	)
	if pattern := f.NamePattern(); pattern != "" {
		where = append(where, database.UnicodeLower+`(name) LIKE ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	if f.Size != nil {
		where = append(where, "size = ?")
		args = append(args, *f.Size)
	}
	query := `SELECT ` + assetColumns + ` FROM videos`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search videos: %w", err)
	}
	defer rows.Close()
	assets := []model.Asset{}
	for rows.Next() {
		asset, err := scanSQLiteAsset(rows)
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
func (s *SQLiteStore) NameInUse(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM videos WHERE name = ? LIMIT 1`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check video name: %w", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteAsset(row rowScanner) (model.Asset, error) {
	var (
		a         model.Asset
		createdAt string
	)
	if err := row.Scan(&a.ID, &a.Size, &a.OriginalFilename, &a.Name, &a.IsBlocked, &createdAt); err != nil {
		return model.Asset{}, err
	}
	if createdAt != "" {
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return model.Asset{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		a.CreatedAt = t
	}
	return a, nil
}
