// Package worker consumes background tasks from the asynq queue.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/VidVault/internal/blobstore"
	"github.com/dharsanguruparan/VidVault/internal/queue"
)

// NameChecker reports whether any record still references a canonical name.
type NameChecker interface {
	NameInUse(ctx context.Context, name string) (bool, error)
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	names  NameChecker
	blobs  blobstore.Store
	logger *slog.Logger
}

// NewProcessor constructs a worker processor.
func NewProcessor(names NameChecker, blobs blobstore.Store, log *slog.Logger) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{names: names, blobs: blobs, logger: log.With(slog.String("component", "worker"))}
}

// Handler registers the orphan job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.OrphanAssetTask, p.HandleOrphan)
	return mux
}

// HandleOrphan deletes a canonical object reported as orphaned. Canonical
// names are shared by uploads with the same stem, so the file is kept when it
// is no longer the version the failed upload stored or when a record
// references the name by now.
func (p *Processor) HandleOrphan(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseOrphanTask(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := blobstore.ValidateName(payload.Name); err != nil {
		return fmt.Errorf("orphan %q: %v: %w", payload.Name, err, asynq.SkipRetry)
	}
	log := p.logger.With(slog.String("name", payload.Name))
	if !payload.Object.Known() {
		log.Warn("orphan report carries no object identity, keeping file")
		return nil
	}

	removed, err := p.blobs.DeleteIf(ctx, payload.Name, func(current blobstore.ObjectInfo) (bool, error) {
		if !current.Same(payload.Object) {
			log.Info("orphan replaced by a newer upload, keeping file",
				slog.Int64("size", current.Size),
				slog.Time("mod_time", current.ModTime))
			return false, nil
		}
		inUse, err := p.names.NameInUse(ctx, payload.Name)
		if err != nil {
			return false, fmt.Errorf("check references for %s: %w", payload.Name, err)
		}
		if inUse {
			log.Info("orphan now referenced, keeping file")
		}
		return !inUse, nil
	})
	if err != nil {
		return fmt.Errorf("delete orphan %s: %w", payload.Name, err)
	}
	if removed {
		log.Info("orphan removed",
			slog.String("original_filename", payload.OriginalFilename),
			slog.String("reason", payload.Reason))
	}
	return nil
}
