// Package ingest receives uploaded videos, converts them to the canonical
// container and records them.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/dharsanguruparan/VidVault/internal/blobstore"
	"github.com/dharsanguruparan/VidVault/internal/model"
	"github.com/dharsanguruparan/VidVault/internal/queue"
	"github.com/dharsanguruparan/VidVault/internal/repository"
	"github.com/dharsanguruparan/VidVault/internal/transcode"
)

const copyBufferSize = 32 * 1024

// Upload is one incoming file. SizeHint is the size the client reported; it is
// what gets recorded, falling back to the bytes received when not positive.
type Upload struct {
	OriginalFilename string
	SizeHint         int64
	Body             io.Reader
}

// OrphanReporter is told about converted files left without a record.
type OrphanReporter interface {
	ReportOrphan(ctx context.Context, payload queue.OrphanPayload) error
}

// Options tune a Pipeline. Zero values are usable except WorkDir, which
// defaults to os.TempDir().
type Options struct {
	WorkDir  string
	MaxBytes int64
	Orphans  OrphanReporter
	Logger   *slog.Logger
}

// Pipeline runs spool, transcode, store and insert for each upload.
type Pipeline struct {
	store      repository.AssetStore
	blobs      blobstore.Store
	transcoder transcode.Transcoder
	workDir    string
	maxBytes   int64
	orphans    OrphanReporter
	logger     *slog.Logger
}

// New builds a Pipeline and makes sure its work directory exists.
func New(store repository.AssetStore, blobs blobstore.Store, transcoder transcode.Transcoder, opts Options) (*Pipeline, error) {
	dir := opts.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		store:      store,
		blobs:      blobs,
		transcoder: transcoder,
		workDir:    dir,
		maxBytes:   opts.MaxBytes,
		orphans:    opts.Orphans,
		logger:     log.With(slog.String("component", "ingest")),
	}, nil
}

// Ingest stores and records one upload. The record is inserted only after the
// converted file is in the canonical store. Temporary files are removed on
// every path.
func (p *Pipeline) Ingest(ctx context.Context, up Upload) (model.Asset, error) {
	name := model.CanonicalName(up.OriginalFilename)
	if name == "" {
		return model.Asset{}, failure(model.IOFailure, fmt.Errorf("%w: %q", model.ErrInvalidFilename, up.OriginalFilename))
	}
	if up.Body == nil {
		return model.Asset{}, failure(model.IOFailure, model.ErrEmptyUpload)
	}

	id := uuid.NewString()
	stem := strings.TrimSuffix(name, model.CanonicalExt)
	rawPath := filepath.Join(p.workDir, "upload-"+id+"-"+stem+filepath.Ext(up.OriginalFilename))
	stagedPath := filepath.Join(p.workDir, "transcode-"+id+model.CanonicalExt)
	defer p.cleanup(rawPath, stagedPath)

	received, err := p.spool(up.Body, rawPath)
	if err != nil {
		return model.Asset{}, err
	}

	if err := p.transcoder.Transcode(ctx, rawPath, stagedPath); err != nil {
		return model.Asset{}, &model.IngestionError{Kind: model.TranscodeFailure, Err: err}
	}

	object, err := p.publish(ctx, stagedPath, name)
	if err != nil {
		return model.Asset{}, failure(model.StorageFailure, err)
	}

	size := up.SizeHint
	if size <= 0 {
		size = received
	}
	asset, err := p.store.Create(ctx, model.NewAsset{
		Size:             size,
		OriginalFilename: up.OriginalFilename,
		Name:             name,
	})
	if err != nil {
		p.reportOrphan(ctx, queue.OrphanPayload{
			Name:             name,
			OriginalFilename: up.OriginalFilename,
			Reason:           err.Error(),
			Object:           object,
		})
		return model.Asset{}, &model.IngestionError{Kind: model.PersistFailure, Name: name, Err: err}
	}

	p.logger.Info("video ingested",
		slog.Int64("id", asset.ID),
		slog.String("name", asset.Name),
		slog.String("original_filename", asset.OriginalFilename),
		slog.Int64("size", asset.Size),
		slog.Int64("received", received))
	return asset, nil
}

// spool writes body to path, enforcing the size limit, and flushes it to disk.
// Read errors and rejected bodies are IOFailures; local disk errors are
// StorageFailures.
func (p *Pipeline) spool(body io.Reader, path string) (int64, error) {
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, syscall.ENAMETOOLONG) {
			return 0, failure(model.IOFailure, fmt.Errorf("%w: name too long", model.ErrInvalidFilename))
		}
		return 0, failure(model.StorageFailure, fmt.Errorf("create temp file: %w", err))
	}
	buf := make([]byte, copyBufferSize)
	var written int64
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			written += int64(n)
			if p.maxBytes > 0 && written > p.maxBytes {
				dst.Close()
				return 0, failure(model.IOFailure, fmt.Errorf("%w (%d bytes)", model.ErrUploadTooLarge, p.maxBytes))
			}
			if _, err := dst.Write(buf[:n]); err != nil {
				dst.Close()
				return 0, failure(model.StorageFailure, fmt.Errorf("write temp file: %w", err))
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			dst.Close()
			return 0, failure(model.IOFailure, fmt.Errorf("read upload: %w", readErr))
		}
	}
	if written == 0 {
		dst.Close()
		return 0, failure(model.IOFailure, model.ErrEmptyUpload)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return 0, failure(model.StorageFailure, fmt.Errorf("sync temp file: %w", err))
	}
	if err := dst.Close(); err != nil {
		return 0, failure(model.StorageFailure, fmt.Errorf("close temp file: %w", err))
	}
	return written, nil
}

// publish copies the transcoder output into the canonical store under name.
func (p *Pipeline) publish(ctx context.Context, stagedPath, name string) (blobstore.ObjectInfo, error) {
	f, err := os.Open(stagedPath)
	if err != nil {
		return blobstore.ObjectInfo{}, fmt.Errorf("open transcoded file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return blobstore.ObjectInfo{}, fmt.Errorf("stat transcoded file: %w", err)
	}
	object, err := p.blobs.Put(ctx, name, f, info.Size())
	if err != nil {
		return blobstore.ObjectInfo{}, fmt.Errorf("store %s: %w", name, err)
	}
	return object, nil
}

func (p *Pipeline) reportOrphan(ctx context.Context, payload queue.OrphanPayload) {
	p.logger.Error("record not written, converted file orphaned",
		slog.String("name", payload.Name),
		slog.String("original_filename", payload.OriginalFilename),
		slog.String("error", payload.Reason))
	if p.orphans == nil {
		return
	}
	if err := p.orphans.ReportOrphan(context.WithoutCancel(ctx), payload); err != nil {
		p.logger.Warn("orphan report failed", slog.String("name", payload.Name), slog.Any("error", err))
	}
}

func (p *Pipeline) cleanup(paths ...string) {
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.logger.Warn("temp file cleanup failed", slog.String("path", path), slog.Any("error", err))
		}
	}
}

func failure(kind model.IngestionKind, err error) error {
	return &model.IngestionError{Kind: kind, Err: err}
}
