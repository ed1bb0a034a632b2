package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const tmpDirName = ".tmp"

// Local stores objects as plain files in a single directory.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

// NewLocal creates the store directory (and its staging subdirectory) if needed.
func NewLocal(root string) (*Local, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(abs, tmpDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute store directory.
func (l *Local) Root() string { return l.root }

// Path returns where name lives on disk.
func (l *Local) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(l.root, name), nil
}

// Put streams r into a staging file, fsyncs it and renames it over name. The
// returned info matches what Stat reports for the new file.
func (l *Local) Put(ctx context.Context, name string, r io.Reader, size int64) (ObjectInfo, error) {
	dst, err := l.Path(name)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	tmp, err := os.CreateTemp(filepath.Join(l.root, tmpDirName), "put-*")
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("create staging file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return ObjectInfo{}, fmt.Errorf("write %s: %w", name, err)
	}
	if size >= 0 && n != size {
		cleanup()
		return ObjectInfo{}, fmt.Errorf("write %s: wrote %d of %d bytes", name, n, size)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return ObjectInfo{}, fmt.Errorf("sync %s: %w", name, err)
	}
	fi, err := tmp.Stat()
	if err != nil {
		cleanup()
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return ObjectInfo{}, fmt.Errorf("move %s into store: %w", name, err)
	}
	return fileInfo(fi), nil
}

// Open returns a reader for name, or ErrNotFound.
func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	path, err := l.Path(name)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, err
	}
	return f, nil
}

// Delete removes name. Missing files are ignored.
func (l *Local) Delete(ctx context.Context, name string) error {
	path, err := l.Path(name)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Stat returns the size and modification time of name, or ErrNotFound.
func (l *Local) Stat(ctx context.Context, name string) (ObjectInfo, error) {
	path, err := l.Path(name)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ObjectInfo{}, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return ObjectInfo{}, err
	}
	if !fi.Mode().IsRegular() {
		return ObjectInfo{}, fmt.Errorf("%s is not a regular file", name)
	}
	return fileInfo(fi), nil
}

// DeleteIf moves name aside before asking cond, so a Put that lands while cond
// runs is never removed. A held file that is kept goes back only if nothing
// has replaced it in the meantime; readers may miss it while it is held.
func (l *Local) DeleteIf(ctx context.Context, name string, cond func(ObjectInfo) (bool, error)) (bool, error) {
	path, err := l.Path(name)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}
	held := filepath.Join(l.root, tmpDirName, "hold-"+uuid.NewString())
	if err := os.Rename(path, held); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("hold %s: %w", name, err)
	}
	fi, err := os.Stat(held)
	if err != nil {
		return false, errors.Join(fmt.Errorf("stat %s: %w", name, err), l.release(held, path))
	}
	remove, err := cond(fileInfo(fi))
	if err != nil || !remove {
		return false, errors.Join(err, l.release(held, path))
	}
	if err := os.Remove(held); err != nil {
		return false, fmt.Errorf("remove %s: %w", name, err)
	}
	return true, nil
}

// release puts a held file back under path unless a newer one is there.
func (l *Local) release(held, path string) error {
	if err := os.Link(held, path); err != nil && !errors.Is(err, os.ErrExist) {
		return fmt.Errorf("restore %s: %w", filepath.Base(path), err)
	}
	return os.Remove(held)
}

func fileInfo(fi os.FileInfo) ObjectInfo {
	return ObjectInfo{Size: fi.Size(), ModTime: fi.ModTime()}
}
