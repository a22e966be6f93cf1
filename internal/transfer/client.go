package transfer

import (
	"context"
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/restclient"
	"github.com/adlsfs/adlsfs/pkg/errors"
	"github.com/adlsfs/adlsfs/pkg/state"
)

// BeforeStartFunc runs once per file immediately before its chunks are
// scheduled; Downloader uses it to create the local directory tree and
// truncate the destination.
type BeforeStartFunc func(fs *filesystem.FileSystem, src, dst string) error

// ProgressFunc is invoked after each chunk completes, per
// original_source/adlfs's multithread.py run() progress callback.
type ProgressFunc func(Progress)

// Config configures a TransferClient.
type Config struct {
	ChunkSize   int64
	BlockSize   int64
	PersistPath string
	Merger      Merger // nil disables server-side merge (downloads)
	Transferer  Transferer
}

// TransferClient schedules and tracks the chunked transfer of a set of files.
//
// Grounded on the teacher's internal/storage/s3.MultipartStateManager
// (mutex-guarded per-upload state map with GetInProgressUploads/IsComplete)
// for Files/FileState/ChunkState bookkeeping, and internal/batch.Processor's
// bounded-concurrency worker submission for Run's pool sizing — generalized
// from batching independent object calls to scheduling ordered chunk tasks.
type TransferClient struct {
	mu sync.Mutex

	fs *filesystem.FileSystem
	rc *restclient.Client

	cfg Config

	Files      map[string]*FileTransfer
	Chunks     map[string]*Chunk
	FileState  *state.Manager[string]
	ChunkState *state.Manager[string]
	ChunkBy    map[string][]string // file key -> ordered chunk names

	shutdown atomic.Bool
	progress ProgressFunc
}

// New constructs a TransferClient bound to fs/rc with the given config.
func New(fs *filesystem.FileSystem, rc *restclient.Client, cfg Config) *TransferClient {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 64 * 1024 * 1024
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 4 * 1024 * 1024
	}
	return &TransferClient{
		fs:         fs,
		rc:         rc,
		cfg:        cfg,
		Files:      make(map[string]*FileTransfer),
		Chunks:     make(map[string]*Chunk),
		FileState:  state.New[string](),
		ChunkState: state.New[string](),
		ChunkBy:    make(map[string][]string),
	}
}

// OnProgress registers a callback invoked after each chunk completes.
func (c *TransferClient) OnProgress(fn ProgressFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress = fn
}

func fileKey(src, dst string) string {
	return src + "\x00" + dst
}

// segmentsDir is the per-file temporary directory used for chunk segments
// when a merge function is configured.
func segmentsDir(dst string) string {
	return dst + ".segments"
}

func segmentName(dst string, offset int64) string {
	base := filepath.Base(dst)
	return fmt.Sprintf("%s/%s_%d", segmentsDir(dst), base, offset)
}

// Submit registers a file for transfer and computes its chunk set.
func (c *TransferClient) Submit(src, dst string, length int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := fileKey(src, dst)
	if _, exists := c.Files[key]; exists {
		return errors.NewError(errors.ErrCodeInvalidState, "file already submitted").
			WithComponent("transfer").WithDetail("src", src).WithDetail("dst", dst)
	}

	var offsets []int64
	for o := int64(0); o < length; o += c.cfg.ChunkSize {
		offsets = append(offsets, o)
	}
	if length == 0 {
		offsets = []int64{0}
	}

	multiChunk := c.cfg.Merger != nil && len(offsets) > 1

	names := make([]string, 0, len(offsets))
	for _, offset := range offsets {
		size := c.cfg.ChunkSize
		if offset+size > length {
			size = length - offset
		}
		name := dst
		if multiChunk {
			name = segmentName(dst, offset)
		}
		chunk := &Chunk{Name: name, Offset: offset, Size: size, RetriesLeft: 5}
		c.Chunks[name] = chunk
		c.ChunkState.Set(name, ChunkPending)
		names = append(names, name)
	}

	c.ChunkBy[key] = names
	c.Files[key] = &FileTransfer{Src: src, Dst: dst, Length: length, ChunkSize: c.cfg.ChunkSize, BlockSize: c.cfg.BlockSize, Chunks: names}
	c.FileState.Set(key, FilePending)
	return nil
}

// Run starts the worker pool and schedules every submitted file's chunks.
// nthreads <= 0 defaults to the host CPU count (minimum 1).
func (c *TransferClient) Run(ctx context.Context, nthreads int, beforeStart BeforeStartFunc) error {
	if nthreads <= 0 {
		nthreads = runtime.NumCPU()
	}
	if nthreads < 1 {
		nthreads = 1
	}

	p := pool.New().WithMaxGoroutines(nthreads)

	c.mu.Lock()
	keys := make([]string, 0, len(c.Files))
	for k := range c.Files {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	for _, key := range keys {
		key := key
		c.mu.Lock()
		ft := c.Files[key]
		fst, _ := c.FileState.Get(key)
		chunkNames := append([]string(nil), c.ChunkBy[key]...)
		c.mu.Unlock()

		// A reloaded client (Load) already has finished files marked as
		// such; resuming Run must not re-run or re-merge them.
		if fst == FileFinished {
			continue
		}

		// beforeStart (e.g. the downloader's create-and-truncate) only runs
		// on a file's first Run: on resume, any chunk already ChunkFinished
		// means a prior Run already created/truncated the destination, and
		// re-truncating now would discard bytes already written for that
		// chunk even though it's being skipped below as already done.
		resuming := false
		for _, name := range chunkNames {
			if st, _ := c.ChunkState.Get(name); st == ChunkFinished {
				resuming = true
				break
			}
		}

		if beforeStart != nil && !resuming {
			if err := beforeStart(c.fs, ft.Src, ft.Dst); err != nil {
				c.mu.Lock()
				ft.Error = err
				c.FileState.Set(key, FileErrored)
				c.mu.Unlock()
				continue
			}
		}

		c.mu.Lock()
		ft.StartTime = time.Now()
		c.FileState.Set(key, FileTransferring)
		c.mu.Unlock()

		for _, name := range chunkNames {
			name := name
			if cst, _ := c.ChunkState.Get(name); cst == ChunkFinished {
				continue
			}
			p.Go(func() {
				c.runChunk(ctx, key, ft, name)
			})
		}
	}

	p.Wait()
	return nil
}

func (c *TransferClient) runChunk(ctx context.Context, key string, ft *FileTransfer, name string) {
	c.mu.Lock()
	chunk := c.Chunks[name]
	c.ChunkState.Set(name, ChunkRunning)
	c.mu.Unlock()

	_, err := c.cfg.Transferer.Do(ctx, c.fs, c.rc, ft.Src, chunk.Name, chunk.Offset, chunk.Size, ft.BlockSize, &c.shutdown)

	c.mu.Lock()
	switch {
	case c.shutdown.Load():
		c.ChunkState.Set(name, ChunkCancelled)
	case err != nil:
		chunk.Error = err
		c.ChunkState.Set(name, ChunkErrored)
	default:
		c.ChunkState.Set(name, ChunkFinished)
	}
	progress := c.progress
	c.mu.Unlock()

	if progress != nil {
		progress(c.snapshotProgress(key, ft))
	}

	c.onChunkSettled(ctx, key, ft)
	c.persist()
}

// onChunkSettled checks whether ft's chunks have all finished (triggering a
// merge, or direct completion) or whether it should be marked errored.
func (c *TransferClient) onChunkSettled(ctx context.Context, key string, ft *FileTransfer) {
	c.mu.Lock()
	names := c.ChunkBy[key]

	allFinished := true
	anyRunning := false
	anyBad := false
	for _, n := range names {
		st, _ := c.ChunkState.Get(n)
		switch st {
		case ChunkFinished:
		case ChunkRunning, ChunkPending:
			allFinished = false
			anyRunning = anyRunning || st == ChunkRunning
		default:
			allFinished = false
			anyBad = true
		}
	}

	switch {
	case allFinished && len(names) > 1 && c.cfg.Merger != nil:
		c.FileState.Set(key, FileMerging)
		c.mu.Unlock()
		c.runMerge(ctx, key, ft, names)
		return
	case allFinished:
		ft.StopTime = time.Now()
		c.FileState.Set(key, FileFinished)
	case !anyRunning && anyBad:
		c.FileState.Set(key, FileErrored)
	}
	c.mu.Unlock()
}

func (c *TransferClient) runMerge(ctx context.Context, key string, ft *FileTransfer, parts []string) {
	err := c.cfg.Merger.Do(ctx, c.fs, ft.Dst, parts, &c.shutdown)

	c.mu.Lock()
	if c.shutdown.Load() {
		c.mu.Unlock()
		return
	}
	if err != nil {
		ft.Error = err
		c.FileState.Set(key, FileErrored)
	} else {
		ft.StopTime = time.Now()
		c.FileState.Set(key, FileFinished)
	}
	c.mu.Unlock()
	c.persist()
}

func (c *TransferClient) snapshotProgress(key string, ft *FileTransfer) Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := c.ChunkBy[key]
	done := 0
	for _, n := range names {
		if st, _ := c.ChunkState.Get(n); st == ChunkFinished {
			done++
		}
	}
	st, _ := c.FileState.Get(key)
	return Progress{Src: ft.Src, Dst: ft.Dst, FileState: st, ChunksDone: done, ChunksTotal: len(names), BytesDone: int64(done) * ft.ChunkSize}
}

// Monitor blocks until every file has left Pending/Transferring/Merging, or
// timeout elapses. If ctx is cancelled first, it invokes Shutdown.
func (c *TransferClient) Monitor(ctx context.Context, poll, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Shutdown()
			return ctx.Err()
		case <-ticker.C:
			if c.FileState.ContainsNone(FilePending, FileTransferring, FileMerging) {
				return nil
			}
			if timeout > 0 && time.Now().After(deadline) {
				return errors.NewError(errors.ErrCodeConnectionTimeout, "transfer monitor timed out").
					WithComponent("transfer")
			}
		}
	}
}

// Shutdown cooperatively cancels all running transfers and waits implicitly
// via the next Wait() on the pool started by Run.
func (c *TransferClient) Shutdown() {
	c.shutdown.Store(true)
}

// Progress returns a snapshot of every submitted file's current state.
func (c *TransferClient) Progress() []Progress {
	c.mu.Lock()
	keys := make([]string, 0, len(c.Files))
	for k := range c.Files {
		keys = append(keys, k)
	}
	c.mu.Unlock()

	out := make([]Progress, 0, len(keys))
	for _, k := range keys {
		c.mu.Lock()
		ft := c.Files[k]
		c.mu.Unlock()
		out = append(out, c.snapshotProgress(k, ft))
	}
	return out
}

// persist checkpoint-io: see persistence.go.
func (c *TransferClient) persist() {
	if c.cfg.PersistPath == "" {
		return
	}
	_ = save(c)
}

// checkpointName is the deterministic name this client's checkpoint is
// stored under: an MD5 over {src, dst, chunkSize, blockSize} per file set
// membership is not unique across files, so the client as a whole is keyed
// by the sorted set of its file keys plus chunk/block size.
func (c *TransferClient) checkpointName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := md5.New()
	keys := make([]string, 0, len(c.Files))
	for k := range c.Files {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
	}
	fmt.Fprintf(h, "%d:%d", c.cfg.ChunkSize, c.cfg.BlockSize)
	return hex.EncodeToString(h.Sum(nil))
}

func init() {
	gob.Register(&FileTransfer{})
	gob.Register(&Chunk{})
}
