// Package blobstore is the canonical store holding converted files, one object
// per asset addressed by the asset's canonical name.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// ErrNotFound is returned by Open and Stat when no object exists under the name.
var ErrNotFound = errors.New("object not found")

// ObjectInfo identifies one stored version of an object. Local files carry a
// modification time, S3 objects an ETag.
type ObjectInfo struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	ETag    string    `json:"etag,omitempty"`
}

// Known reports whether o carries enough to tell versions apart.
func (o ObjectInfo) Known() bool {
	return o.ETag != "" || !o.ModTime.IsZero()
}

// Same reports whether o and other describe the same stored version.
func (o ObjectInfo) Same(other ObjectInfo) bool {
	if !o.Known() || !other.Known() || o.Size != other.Size {
		return false
	}
	if o.ETag != "" && other.ETag != "" {
		return o.ETag == other.ETag
	}
	return o.ModTime.Equal(other.ModTime)
}

// Store holds converted files. Put replaces any existing object with the same
// name and must not return before the bytes are durable.
//
// DeleteIf removes name only when cond accepts the version currently stored.
// It reports whether the object was removed; a missing object is not an error.
type Store interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) (ObjectInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	Stat(ctx context.Context, name string) (ObjectInfo, error)
	Delete(ctx context.Context, name string) error
	DeleteIf(ctx context.Context, name string, cond func(ObjectInfo) (bool, error)) (bool, error)
}

// ValidateName rejects names that could escape the store's namespace.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("object name is required")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("object name %q must not contain path separators", name)
	case name == "." || name == "..":
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}
