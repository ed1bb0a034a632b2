package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/VidVault/internal/blobstore"
)

const (
	// OrphanAssetTask is scheduled when a converted file was stored but its
	// record could not be written.
	OrphanAssetTask = "asset:orphan"
)

// OrphanPayload tells the worker which canonical object lost its record.
// Object is the version the failed upload stored; a later upload under the
// same name replaces it and must not be touched.
type OrphanPayload struct {
	Name             string               `json:"name"`
	OriginalFilename string               `json:"original_filename"`
	Reason           string               `json:"reason"`
	Object           blobstore.ObjectInfo `json:"object"`
}

// Enqueuer is the part of *asynq.Client the reporter needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// OrphanReporter enqueues orphan reports.
type OrphanReporter struct {
	client Enqueuer
}

// NewOrphanReporter wraps an asynq client.
func NewOrphanReporter(client Enqueuer) *OrphanReporter {
	return &OrphanReporter{client: client}
}

// ReportOrphan enqueues a single-attempt orphan task.
func (r *OrphanReporter) ReportOrphan(ctx context.Context, payload OrphanPayload) error {
	task, err := NewOrphanTask(payload)
	if err != nil {
		return err
	}
	if _, err := r.client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue orphan task: %w", err)
	}
	return nil
}

// NewOrphanTask encodes payload into an asynq task.
func NewOrphanTask(payload OrphanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(OrphanAssetTask, data), nil
}

// ParseOrphanTask decodes the payload of an orphan task.
func ParseOrphanTask(task *asynq.Task) (OrphanPayload, error) {
	var payload OrphanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OrphanPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}
