package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VidVault/internal/blobstore"
	"github.com/dharsanguruparan/VidVault/internal/logger"
	"github.com/dharsanguruparan/VidVault/internal/model"
	"github.com/dharsanguruparan/VidVault/internal/queue"
	"github.com/dharsanguruparan/VidVault/internal/storage"
)

// setup stores clip.mp4 and returns the identity that Put reported for it.
func setup(t *testing.T) (*Processor, *storage.MemoryStore, *blobstore.Local, blobstore.ObjectInfo) {
	t.Helper()
	blobs, err := blobstore.NewLocal(filepath.Join(t.TempDir(), "videos"))
	require.NoError(t, err)
	info, err := blobs.Put(context.Background(), "clip.mp4", strings.NewReader("data"), 4)
	require.NoError(t, err)
	store := storage.NewMemoryStore()
	return NewProcessor(store, blobs, logger.Discard()), store, blobs, info
}

func orphanTask(t *testing.T, name string, object blobstore.ObjectInfo) *asynq.Task {
	t.Helper()
	task, err := queue.NewOrphanTask(queue.OrphanPayload{Name: name, OriginalFilename: "clip.mov", Reason: "db down", Object: object})
	require.NoError(t, err)
	return task
}

func stored(t *testing.T, blobs *blobstore.Local, name string) bool {
	t.Helper()
	_, err := blobs.Stat(context.Background(), name)
	if errors.Is(err, blobstore.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestHandleOrphanDeletesUnreferencedFile(t *testing.T) {
	p, _, blobs, info := setup(t)
	ctx := context.Background()

	require.NoError(t, p.HandleOrphan(ctx, orphanTask(t, "clip.mp4", info)))
	assert.False(t, stored(t, blobs, "clip.mp4"))

	// A second delivery finds nothing to do.
	require.NoError(t, p.HandleOrphan(ctx, orphanTask(t, "clip.mp4", info)))
}

func TestHandleOrphanKeepsReferencedFile(t *testing.T) {
	p, store, blobs, info := setup(t)
	ctx := context.Background()
	_, err := store.Create(ctx, model.NewAsset{Size: 4, OriginalFilename: "clip.avi", Name: "clip.mp4"})
	require.NoError(t, err)

	require.NoError(t, p.HandleOrphan(ctx, orphanTask(t, "clip.mp4", info)))
	assert.True(t, stored(t, blobs, "clip.mp4"))
}

// A second upload with the same stem replaces the orphaned file before its
// record is written. The worker must leave that file alone.
func TestHandleOrphanKeepsFileReplacedBeforeRecordIsWritten(t *testing.T) {
	p, store, blobs, orphaned := setup(t)
	ctx := context.Background()

	_, err := blobs.Put(ctx, "clip.mp4", strings.NewReader("second upload"), 13)
	require.NoError(t, err)

	require.NoError(t, p.HandleOrphan(ctx, orphanTask(t, "clip.mp4", orphaned)))

	asset, err := store.Create(ctx, model.NewAsset{Size: 13, OriginalFilename: "clip.mkv", Name: "clip.mp4"})
	require.NoError(t, err)
	require.True(t, stored(t, blobs, asset.Name), "record %d must have its file", asset.ID)
}

func TestHandleOrphanKeepsSameSizeReplacement(t *testing.T) {
	p, _, blobs, orphaned := setup(t)
	ctx := context.Background()

	_, err := blobs.Put(ctx, "clip.mp4", strings.NewReader("next"), 4)
	require.NoError(t, err)
	path, err := blobs.Path("clip.mp4")
	require.NoError(t, err)
	later := orphaned.ModTime.Add(time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	require.NoError(t, p.HandleOrphan(ctx, orphanTask(t, "clip.mp4", orphaned)))
	assert.True(t, stored(t, blobs, "clip.mp4"))
}

func TestHandleOrphanKeepsFileWithoutIdentity(t *testing.T) {
	p, _, blobs, _ := setup(t)

	require.NoError(t, p.HandleOrphan(context.Background(), orphanTask(t, "clip.mp4", blobstore.ObjectInfo{})))
	assert.True(t, stored(t, blobs, "clip.mp4"))
}

func TestHandleOrphanRejectsBadPayloads(t *testing.T) {
	p, _, _, info := setup(t)
	ctx := context.Background()

	err := p.HandleOrphan(ctx, asynq.NewTask(queue.OrphanAssetTask, []byte("not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = p.HandleOrphan(ctx, orphanTask(t, "../escape.mp4", info))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type failingNames struct{}

func (failingNames) NameInUse(ctx context.Context, name string) (bool, error) {
	return false, errors.New("database is locked")
}

func TestHandleOrphanKeepsFileWhenLookupFails(t *testing.T) {
	_, _, blobs, info := setup(t)
	p := NewProcessor(failingNames{}, blobs, logger.Discard())

	require.Error(t, p.HandleOrphan(context.Background(), orphanTask(t, "clip.mp4", info)))
	assert.True(t, stored(t, blobs, "clip.mp4"))
}
