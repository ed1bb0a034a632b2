package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers unknown ids, empty search results and canonical files
	// missing from the store despite a record existing.
	ErrNotFound = errors.New("asset not found")
	// ErrForbidden is returned for assets whose block flag is set.
	ErrForbidden = errors.New("asset download is blocked")

	// Client-side reasons an upload could not be read. Their text is safe to
	// show to the uploader.
	ErrInvalidFilename = errors.New("upload has no usable filename")
	ErrEmptyUpload     = errors.New("upload is empty")
	ErrUploadTooLarge  = errors.New("upload exceeds the size limit")
)

// IngestionKind classifies where an ingestion failed.
type IngestionKind string

const (
	// IOFailure means the upload itself could not be read or was rejected.
	IOFailure IngestionKind = "io_failure"
	// StorageFailure means the service could not write the upload to its
	// work directory or the canonical store.
	StorageFailure   IngestionKind = "storage_failure"
	TranscodeFailure IngestionKind = "transcode_failure"
	PersistFailure   IngestionKind = "persist_failure"
)

// IngestionError reports a failed upload. For PersistFailure, Name is the
// canonical object left behind without a record.
type IngestionError struct {
	Kind IngestionKind
	Name string
	Err  error
}

func (e *IngestionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("ingest %s (%s): %v", e.Kind, e.Name, e.Err)
	}
	return fmt.Sprintf("ingest %s: %v", e.Kind, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// IsIngestionKind reports whether err wraps an IngestionError of the given kind.
func IsIngestionKind(err error, kind IngestionKind) bool {
	var ie *IngestionError
	return errors.As(err, &ie) && ie.Kind == kind
}
