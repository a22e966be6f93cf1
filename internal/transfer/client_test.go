package transfer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/restclient"
)

// recordingTransferer completes every chunk immediately and records the
// name of each chunk it was asked to move, so a test can assert exactly
// which chunks a Run call actually scheduled.
type recordingTransferer struct {
	mu  sync.Mutex
	ran []string
}

func (r *recordingTransferer) Do(ctx context.Context, fs *filesystem.FileSystem, rc *restclient.Client, src, dst string, offset, size, blockSize int64, shutdown *atomic.Bool) (int64, error) {
	r.mu.Lock()
	r.ran = append(r.ran, dst)
	r.mu.Unlock()
	return size, nil
}

type testToken struct{}

func (testToken) SignedHeaders(ctx context.Context) (map[string]string, error) {
	return map[string]string{"Authorization": "Bearer t"}, nil
}
func (testToken) Refresh(ctx context.Context) error { return nil }

func newTestRig(t *testing.T, handler http.HandlerFunc) (*filesystem.FileSystem, *restclient.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	cfg := restclient.DefaultConfig(srv.URL)
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.BreakerEnabled = false
	rc := restclient.New(cfg, testToken{}, nil)
	return filesystem.New(rc), rc, srv
}

func TestSubmitSingleChunkUsesDstNameDirectly(t *testing.T) {
	fs, rc, srv := newTestRig(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	defer srv.Close()

	c := New(fs, rc, Config{ChunkSize: 1024, Merger: DefaultMerger})
	require.NoError(t, c.Submit("/src", "/dst", 100))

	key := fileKey("/src", "/dst")
	assert.Len(t, c.ChunkBy[key], 1)
	assert.Equal(t, "/dst", c.ChunkBy[key][0])
}

func TestSubmitMultiChunkUsesSegmentNames(t *testing.T) {
	fs, rc, srv := newTestRig(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	defer srv.Close()

	c := New(fs, rc, Config{ChunkSize: 10, Merger: DefaultMerger})
	require.NoError(t, c.Submit("/src", "/dst", 25))

	key := fileKey("/src", "/dst")
	names := c.ChunkBy[key]
	require.Len(t, names, 3)
	for _, n := range names {
		assert.Contains(t, n, "/dst.segments/")
	}
}

func TestSubmitZeroLengthFileCreatesOneEmptyChunk(t *testing.T) {
	fs, rc, srv := newTestRig(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	defer srv.Close()

	c := New(fs, rc, Config{ChunkSize: 10, Merger: DefaultMerger})
	require.NoError(t, c.Submit("/src", "/dst", 0))

	key := fileKey("/src", "/dst")
	require.Len(t, c.ChunkBy[key], 1)
	assert.Equal(t, int64(0), c.Chunks[c.ChunkBy[key][0]].Size)
}

func TestSubmitDuplicateFileRejected(t *testing.T) {
	fs, rc, srv := newTestRig(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	defer srv.Close()

	c := New(fs, rc, Config{ChunkSize: 10})
	require.NoError(t, c.Submit("/src", "/dst", 5))
	err := c.Submit("/src", "/dst", 5)
	require.Error(t, err)
}

// TestRunResumesOnlyUnfinishedChunks exercises the save/Load/Run resume
// path: of a 5-chunk file, 2 chunks finish, the client is saved and
// reloaded into a fresh TransferClient, and a subsequent Run must only
// transfer the remaining 3 chunks.
func TestRunResumesOnlyUnfinishedChunks(t *testing.T) {
	fs, rc, srv := newTestRig(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	defer srv.Close()

	dir := t.TempDir()
	tr := &recordingTransferer{}
	cfg := Config{ChunkSize: 10, PersistPath: dir, Merger: DefaultMerger, Transferer: tr}

	c1 := New(fs, rc, cfg)
	require.NoError(t, c1.Submit("/src", "/dst", 50))
	key := fileKey("/src", "/dst")
	names := append([]string(nil), c1.ChunkBy[key]...)
	require.Len(t, names, 5)

	// 2 of 5 chunks finish, then the client is cancelled and checkpointed.
	c1.ChunkState.Set(names[0], ChunkFinished)
	c1.ChunkState.Set(names[1], ChunkFinished)
	require.NoError(t, save(c1))

	loaded, err := Load(dir, fs, rc, cfg)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	var c2 *TransferClient
	for _, v := range loaded {
		c2 = v
	}

	require.NoError(t, c2.Run(context.Background(), 1, nil))

	tr.mu.Lock()
	ran := append([]string(nil), tr.ran...)
	tr.mu.Unlock()

	assert.ElementsMatch(t, names[2:], ran)
	assert.NotContains(t, ran, names[0])
	assert.NotContains(t, ran, names[1])

	st, _ := c2.FileState.Get(key)
	assert.Equal(t, FileFinished, st)
}

func TestCheckpointNameIsDeterministic(t *testing.T) {
	fs, rc, srv := newTestRig(t, func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	defer srv.Close()

	c1 := New(fs, rc, Config{ChunkSize: 10, BlockSize: 20})
	require.NoError(t, c1.Submit("/a", "/b", 5))
	c2 := New(fs, rc, Config{ChunkSize: 10, BlockSize: 20})
	require.NoError(t, c2.Submit("/a", "/b", 5))

	assert.Equal(t, c1.checkpointName(), c2.checkpointName())
}
