package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/VidVault/internal/blobstore"
	"github.com/dharsanguruparan/VidVault/internal/logger"
	"github.com/dharsanguruparan/VidVault/internal/model"
	"github.com/dharsanguruparan/VidVault/internal/queue"
	"github.com/dharsanguruparan/VidVault/internal/repository"
	"github.com/dharsanguruparan/VidVault/internal/storage"
)

// prefixTranscoder "converts" by prepending a marker to the input bytes.
type prefixTranscoder struct {
	err    error
	inputs []string
}

func (f *prefixTranscoder) Transcode(ctx context.Context, input, output string) error {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, append([]byte("mp4:"), data...), 0o600)
}

type failingCreateStore struct {
	repository.AssetStore
	err error
}

func (s failingCreateStore) Create(ctx context.Context, in model.NewAsset) (model.Asset, error) {
	return model.Asset{}, s.err
}

type orphanRecorder struct {
	payloads []queue.OrphanPayload
}

func (o *orphanRecorder) ReportOrphan(ctx context.Context, payload queue.OrphanPayload) error {
	o.payloads = append(o.payloads, payload)
	return nil
}

type fixture struct {
	pipeline *Pipeline
	store    *storage.MemoryStore
	blobs    *blobstore.Local
	tc       *prefixTranscoder
	workDir  string
	orphans  *orphanRecorder
}

func newFixture(t *testing.T, maxBytes int64) *fixture {
	t.Helper()
	blobs, err := blobstore.NewLocal(filepath.Join(t.TempDir(), "videos"))
	require.NoError(t, err)
	f := &fixture{
		store:   storage.NewMemoryStore(),
		blobs:   blobs,
		tc:      &prefixTranscoder{},
		workDir: filepath.Join(t.TempDir(), "work"),
		orphans: &orphanRecorder{},
	}
	f.pipeline, err = New(f.store, f.blobs, f.tc, Options{
		WorkDir:  f.workDir,
		MaxBytes: maxBytes,
		Orphans:  f.orphans,
		Logger:   logger.Discard(),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) assertWorkDirEmpty(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files left behind")
}

func TestIngestStoresConvertedFileAndRecord(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	asset, err := f.pipeline.Ingest(ctx, Upload{
		OriginalFilename: "clip.mov",
		SizeHint:         1000,
		Body:             strings.NewReader("raw video bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "clip.mov", asset.OriginalFilename)
	assert.Equal(t, "clip.mp4", asset.Name)
	// The reported upload size is recorded, not the converted size.
	assert.Equal(t, int64(1000), asset.Size)

	all, err := f.store.Search(ctx, repository.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, asset, all[0])

	data, err := os.ReadFile(filepath.Join(f.blobs.Root(), "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "mp4:raw video bytes", string(data))

	require.Len(t, f.tc.inputs, 1)
	assert.Contains(t, filepath.Base(f.tc.inputs[0]), "clip")
	assert.True(t, strings.HasSuffix(f.tc.inputs[0], ".mov"))
	f.assertWorkDirEmpty(t)
}

func TestIngestFallsBackToReceivedSize(t *testing.T) {
	f := newFixture(t, 0)

	asset, err := f.pipeline.Ingest(context.Background(), Upload{
		OriginalFilename: "short.avi",
		Body:             strings.NewReader("12345"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), asset.Size)
}

func TestIngestTranscodeFailureCreatesNoRecord(t *testing.T) {
	f := newFixture(t, 0)
	f.tc.err = errors.New("unsupported codec")
	ctx := context.Background()

	_, err := f.pipeline.Ingest(ctx, Upload{OriginalFilename: "bad.xyz", SizeHint: 3, Body: strings.NewReader("???")})
	require.Error(t, err)
	assert.True(t, model.IsIngestionKind(err, model.TranscodeFailure))

	all, err := f.store.Search(ctx, repository.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	_, err = f.blobs.Stat(ctx, "bad.mp4")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	f.assertWorkDirEmpty(t)
}

func TestIngestUnreadableBodyIsIOFailure(t *testing.T) {
	f := newFixture(t, 0)
	body := io.MultiReader(strings.NewReader("partial"), iotest.ErrReader(io.ErrUnexpectedEOF))

	_, err := f.pipeline.Ingest(context.Background(), Upload{OriginalFilename: "cut.mov", Body: body})
	require.Error(t, err)
	assert.True(t, model.IsIngestionKind(err, model.IOFailure))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Empty(t, f.tc.inputs, "transcoder must not run on a truncated upload")
	f.assertWorkDirEmpty(t)
}

func TestIngestRejectsEmptyOversizedAndNamelessUploads(t *testing.T) {
	f := newFixture(t, 8)
	ctx := context.Background()

	cases := []Upload{
		{OriginalFilename: "empty.mov", Body: strings.NewReader("")},
		{OriginalFilename: "big.mov", Body: bytes.NewReader(make([]byte, 9))},
		{OriginalFilename: "", Body: strings.NewReader("x")},
		{OriginalFilename: "..", Body: strings.NewReader("x")},
		{OriginalFilename: "nobody.mov"},
	}
	for _, up := range cases {
		_, err := f.pipeline.Ingest(ctx, up)
		assert.True(t, model.IsIngestionKind(err, model.IOFailure), "upload %q: %v", up.OriginalFilename, err)
	}
	assert.Empty(t, f.tc.inputs)
	f.assertWorkDirEmpty(t)

	_, err := f.pipeline.Ingest(ctx, Upload{OriginalFilename: "big.mov", Body: bytes.NewReader(make([]byte, 9))})
	assert.ErrorIs(t, err, model.ErrUploadTooLarge)
	_, err = f.pipeline.Ingest(ctx, Upload{OriginalFilename: "empty.mov", Body: strings.NewReader("")})
	assert.ErrorIs(t, err, model.ErrEmptyUpload)
	_, err = f.pipeline.Ingest(ctx, Upload{OriginalFilename: "..", Body: strings.NewReader("x")})
	assert.ErrorIs(t, err, model.ErrInvalidFilename)
}

type failingPutBlobs struct {
	blobstore.Store
	err error
}

func (b failingPutBlobs) Put(ctx context.Context, name string, r io.Reader, size int64) (blobstore.ObjectInfo, error) {
	return blobstore.ObjectInfo{}, b.err
}

func TestIngestCanonicalStoreOutageIsStorageFailure(t *testing.T) {
	f := newFixture(t, 0)
	outage := errors.New("dial tcp 10.0.0.5:9000: connection refused")
	p, err := New(f.store, failingPutBlobs{Store: f.blobs, err: outage}, f.tc, Options{
		WorkDir: f.workDir,
		Orphans: f.orphans,
		Logger:  logger.Discard(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = p.Ingest(ctx, Upload{OriginalFilename: "clip.mov", Body: strings.NewReader("bytes")})
	require.Error(t, err)
	assert.True(t, model.IsIngestionKind(err, model.StorageFailure))
	assert.False(t, model.IsIngestionKind(err, model.IOFailure))
	assert.ErrorIs(t, err, outage)

	all, err := f.store.Search(ctx, repository.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Empty(t, f.orphans.payloads)
	f.assertWorkDirEmpty(t)
}

func TestIngestMissingWorkDirIsStorageFailure(t *testing.T) {
	f := newFixture(t, 0)
	require.NoError(t, os.RemoveAll(f.workDir))

	_, err := f.pipeline.Ingest(context.Background(), Upload{OriginalFilename: "clip.mov", Body: strings.NewReader("bytes")})
	require.Error(t, err)
	assert.True(t, model.IsIngestionKind(err, model.StorageFailure))
	assert.Empty(t, f.tc.inputs)
}

func TestIngestPersistFailureReportsOrphan(t *testing.T) {
	f := newFixture(t, 0)
	dbErr := errors.New("database is locked")
	p, err := New(failingCreateStore{AssetStore: f.store, err: dbErr}, f.blobs, f.tc, Options{
		WorkDir: f.workDir,
		Orphans: f.orphans,
		Logger:  logger.Discard(),
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = p.Ingest(ctx, Upload{OriginalFilename: "clip.mov", SizeHint: 10, Body: strings.NewReader("bytes")})
	require.Error(t, err)
	assert.True(t, model.IsIngestionKind(err, model.PersistFailure))
	assert.ErrorIs(t, err, dbErr)

	var ie *model.IngestionError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "clip.mp4", ie.Name)

	// The converted file stays behind and is reported with its identity.
	stored, err := f.blobs.Stat(ctx, "clip.mp4")
	require.NoError(t, err)
	require.Len(t, f.orphans.payloads, 1)
	assert.Equal(t, "clip.mp4", f.orphans.payloads[0].Name)
	assert.Equal(t, "clip.mov", f.orphans.payloads[0].OriginalFilename)
	assert.True(t, stored.Same(f.orphans.payloads[0].Object))
	f.assertWorkDirEmpty(t)
}

func TestIngestSameCanonicalNameOverwrites(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	first, err := f.pipeline.Ingest(ctx, Upload{OriginalFilename: "clip.mov", Body: strings.NewReader("one")})
	require.NoError(t, err)
	second, err := f.pipeline.Ingest(ctx, Upload{OriginalFilename: "clip.avi", Body: strings.NewReader("two")})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, first.Name, second.Name)
	data, err := os.ReadFile(filepath.Join(f.blobs.Root(), "clip.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "mp4:two", string(data))
}
