package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VidVault/internal/blobstore"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	r.opts = append(r.opts, opts)
	return &asynq.TaskInfo{}, nil
}

func TestReportOrphanEnqueuesSingleAttemptTask(t *testing.T) {
	rec := &recordingEnqueuer{}
	reporter := NewOrphanReporter(rec)

	object := blobstore.ObjectInfo{Size: 4, ModTime: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)}
	err := reporter.ReportOrphan(context.Background(), OrphanPayload{Name: "clip.mp4", OriginalFilename: "clip.mov", Reason: "db down", Object: object})
	require.NoError(t, err)
	require.Len(t, rec.tasks, 1)
	assert.Equal(t, OrphanAssetTask, rec.tasks[0].Type())

	require.Len(t, rec.opts[0], 1)
	assert.Equal(t, asynq.MaxRetryOpt, rec.opts[0][0].Type())
	assert.Equal(t, 0, rec.opts[0][0].Value())

	payload, err := ParseOrphanTask(rec.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", payload.Name)
	assert.Equal(t, "db down", payload.Reason)
	assert.True(t, object.Same(payload.Object), "identity survives the queue")
}

func TestReportOrphanWrapsEnqueueError(t *testing.T) {
	boom := errors.New("redis unavailable")
	reporter := NewOrphanReporter(&recordingEnqueuer{err: boom})

	err := reporter.ReportOrphan(context.Background(), OrphanPayload{Name: "x.mp4"})
	assert.ErrorIs(t, err, boom)
}

func TestParseOrphanTaskRejectsGarbage(t *testing.T) {
	_, err := ParseOrphanTask(asynq.NewTask(OrphanAssetTask, []byte("{")))
	assert.Error(t, err)
}
