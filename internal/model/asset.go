// Package model contains the asset record and the error kinds shared across
// packages.
package model

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	// CanonicalExt is the container extension every stored asset is converted to.
	CanonicalExt = ".mp4"
	// ContentType is sent with every download.
	ContentType = "video/mp4"
)

// Asset is one uploaded-and-converted video. Name addresses the converted
// bytes in the canonical store; Size is the size the uploader reported, not
// the size of the converted file.
type Asset struct {
	ID               int64     `json:"id"`
	Size             int64     `json:"size"`
	OriginalFilename string    `json:"original_filename"`
	Name             string    `json:"name"`
	IsBlocked        bool      `json:"is_blocked"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewAsset is the input for creating a record. ID, IsBlocked and CreatedAt are
// assigned by the store.
type NewAsset struct {
	Size             int64
	OriginalFilename string
	Name             string
}

// CanonicalName derives the stored filename from the uploader's filename:
// directory components are dropped and the final extension is replaced with
// CanonicalExt. It returns "" when nothing usable remains.
func CanonicalName(originalFilename string) string {
	base := filepath.Base(filepath.ToSlash(strings.TrimSpace(originalFilename)))
	// Windows clients sometimes send full paths with backslashes.
	if i := strings.LastIndex(base, `\`); i >= 0 {
		base = base[i+1:]
	}
	switch base {
	case "", ".", "..", "/":
		return ""
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		return ""
	}
	return stem + CanonicalExt
}
