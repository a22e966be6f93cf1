// Package remotefile implements RemoteFile, a seekable read handle and a
// chunked-append write handle over a single store path.
package remotefile

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/adlsfs/adlsfs/internal/buffer"
	"github.com/adlsfs/adlsfs/internal/cache"
	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/restclient"
	"github.com/adlsfs/adlsfs/pkg/errors"
	"github.com/adlsfs/adlsfs/pkg/recovery"
)

// Mode is the handle's open mode.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
	ModeAppend
)

// SyncFlag is the durability level requested of a write.
type SyncFlag string

const (
	SyncMetadata SyncFlag = "METADATA"
	SyncData     SyncFlag = "DATA"
	SyncClose    SyncFlag = "CLOSE"
)

const defaultMaxBlockSize = 4 * 1024 * 1024

// RemoteFile is a handle to one path opened for reading or writing.
//
// Grounded on the teacher's pkg/recovery connection-retry wrapper
// (classify-then-recover shape) for write idempotence, and the teacher's
// internal/buffer.WriteBuffer (mutex-guarded buffer with threshold/interval
// flush, before it was trimmed down to BytePool) for the buffering/flush
// threshold logic — generalized from a multi-key write-behind cache to a
// single-handle, strictly ordered append buffer.
type RemoteFile struct {
	mu sync.Mutex

	fs   *filesystem.FileSystem
	rc   *restclient.Client
	pool *buffer.BytePool
	rm   *recovery.RecoveryManager

	path      string
	mode      Mode
	blockSize int64
	delimiter []byte

	// read mode
	loc        int64
	start      int64
	end        int64
	size       int64
	cacheBytes []byte
	blockCache *cache.LRUCache

	// write mode
	bufferBytes      []byte
	firstWrite       bool
	attemptedOffsets map[int64]bool

	sessionID string
	leaseID   string
	closed    bool
}

// Config configures how a RemoteFile is opened.
type Config struct {
	BlockSize  int64
	Delimiter  []byte
	BlockCache *cache.LRUCache
}

func (c Config) blockSize() int64 {
	if c.BlockSize <= 0 || c.BlockSize > defaultMaxBlockSize {
		return defaultMaxBlockSize
	}
	return c.BlockSize
}

// OpenRead opens path for seekable, block-cached reading.
func OpenRead(ctx context.Context, fs *filesystem.FileSystem, rc *restclient.Client, path string, cfg Config) (*RemoteFile, error) {
	entry, err := fs.Info(ctx, path, false)
	if err != nil {
		return nil, err
	}

	blockCache := cfg.BlockCache
	if blockCache == nil {
		blockCache = cache.NewLRUCache(nil)
	}

	id := uuid.New().String()
	return &RemoteFile{
		fs:         fs,
		rc:         rc,
		pool:       buffer.NewBytePool(),
		path:       path,
		mode:       ModeRead,
		blockSize:  cfg.blockSize(),
		size:       entry.Length,
		blockCache: blockCache,
		sessionID:  id,
		leaseID:    id,
	}, nil
}

// OpenWrite opens path for chunked-append writing. If appendMode is true and
// path exists, writes are appended after its current length; otherwise the
// first flush creates the file, truncating any existing content.
func OpenWrite(fs *filesystem.FileSystem, rc *restclient.Client, path string, appendMode bool, cfg Config) *RemoteFile {
	mode := ModeWrite
	if appendMode {
		mode = ModeAppend
	}
	id := uuid.New().String()
	rf := &RemoteFile{
		fs:               fs,
		rc:               rc,
		pool:             buffer.NewBytePool(),
		rm:               recovery.NewRecoveryManager(recovery.DefaultRecoveryConfig()),
		path:             path,
		mode:             mode,
		blockSize:        cfg.blockSize(),
		delimiter:        cfg.Delimiter,
		firstWrite:       true,
		attemptedOffsets: make(map[int64]bool),
		sessionID:        id,
		leaseID:          id,
	}
	if appendMode {
		if entry, err := fs.Info(context.Background(), path, true); err == nil {
			rf.firstWrite = false
			rf.loc = entry.Length
		}
	}
	return rf
}

// Read implements io.Reader in read mode.
func (f *RemoteFile) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeRead {
		return 0, errors.NewError(errors.ErrCodeValidationFailed, "Read is only valid in read mode").
			WithComponent("remotefile")
	}
	if f.closed {
		return 0, io.ErrClosedPipe
	}

	total := 0
	for total < len(p) {
		if f.loc >= f.size {
			if total > 0 {
				return total, nil
			}
			return 0, io.EOF
		}

		if f.loc < f.start || f.loc >= f.end {
			if err := f.refill(context.Background()); err != nil {
				if total > 0 {
					return total, nil
				}
				return 0, err
			}
		}

		n := copy(p[total:], f.cacheBytes[f.loc-f.start:f.end-f.start])
		f.loc += int64(n)
		total += n
	}
	return total, nil
}

func (f *RemoteFile) refill(ctx context.Context) error {
	want := f.loc + f.blockSize
	if want > f.size {
		want = f.size
	}

	data := f.blockCache.Get(f.path, f.loc, want-f.loc)
	if data != nil {
		f.cacheBytes = data
		f.start = f.loc
		f.end = f.loc + int64(len(data))
		return nil
	}

	res, err := f.rc.Call(ctx, restclient.OpOpen, f.path, restclient.Params{
		Query: map[string]string{
			"offset":        strconv.FormatInt(f.loc, 10),
			"length":        strconv.FormatInt(want-f.loc, 10),
			"read":          "true",
			"filesessionid": f.sessionID,
		},
	})
	if err != nil {
		return err
	}

	f.blockCache.Put(f.path, f.loc, res.Body)
	f.cacheBytes = res.Body
	f.start = f.loc
	f.end = f.loc + int64(len(res.Body))
	return nil
}

// ReadLine accumulates bytes until a newline is found, limit is hit, or EOF.
func (f *RemoteFile) ReadLine(limit int) ([]byte, error) {
	var line []byte
	buf := make([]byte, 1)
	for limit <= 0 || len(line) < limit {
		n, err := f.Read(buf)
		if n > 0 {
			line = append(line, buf[0])
			if buf[0] == '\n' {
				return line, nil
			}
		}
		if err != nil {
			if err == io.EOF && len(line) > 0 {
				return line, nil
			}
			return line, err
		}
	}
	return line, nil
}

// Lines returns an iterator over successive lines until EOF.
func (f *RemoteFile) Lines() func(yield func([]byte) bool) {
	return func(yield func([]byte) bool) {
		for {
			line, err := f.ReadLine(0)
			if len(line) > 0 {
				if !yield(line) {
					return
				}
			}
			if err != nil {
				return
			}
		}
	}
}

// Seek implements io.Seeker. Rejected outright in write/append mode, and
// rejected beyond EOF in read mode.
func (f *RemoteFile) Seek(offset int64, whence int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeRead {
		return 0, errors.NewError(errors.ErrCodeValidationFailed, "seek is not supported in write/append mode").
			WithComponent("remotefile")
	}

	var newLoc int64
	switch whence {
	case io.SeekStart:
		newLoc = offset
	case io.SeekCurrent:
		newLoc = f.loc + offset
	case io.SeekEnd:
		newLoc = f.size + offset
	default:
		return 0, errors.NewError(errors.ErrCodeValidationFailed, "invalid whence").WithComponent("remotefile")
	}

	if newLoc > f.size {
		return 0, errors.NewError(errors.ErrCodeValidationFailed, "seek beyond EOF").WithComponent("remotefile")
	}
	f.loc = newLoc
	return f.loc, nil
}

// Write implements io.Writer in write/append mode.
func (f *RemoteFile) Write(data []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode == ModeRead {
		return 0, errors.NewError(errors.ErrCodeValidationFailed, "Write is only valid in write/append mode").
			WithComponent("remotefile")
	}
	if f.closed {
		return 0, io.ErrClosedPipe
	}

	f.bufferBytes = append(f.bufferBytes, data...)
	f.loc += int64(len(data))

	if int64(len(f.bufferBytes)) >= f.blockSize {
		if err := f.flush(context.Background(), SyncData, false); err != nil {
			return 0, err
		}
	}
	return len(data), nil
}

// cutPoint returns the length of the next piece to send: up to blockSize
// bytes, ending at the last delimiter within that window if one is
// configured and present.
func (f *RemoteFile) cutPoint(window []byte) int {
	if len(f.delimiter) == 0 || len(window) == 0 {
		return len(window)
	}
	idx := bytes.LastIndex(window, f.delimiter)
	if idx < 0 {
		return len(window)
	}
	return idx + len(f.delimiter)
}

// flush sends buffered bytes to the store. force additionally sends the
// remaining short tail with the given syncFlag (used by Close).
func (f *RemoteFile) flush(ctx context.Context, syncFlag SyncFlag, force bool) error {
	if len(f.bufferBytes) == 0 && force && f.firstWrite {
		return f.doCall(ctx, restclient.OpCreate, nil, map[string]string{
			"overwrite":     "true",
			"write":         "true",
			"syncflag":      string(syncFlag),
			"leaseid":       f.leaseID,
			"filesessionid": f.sessionID,
		}, 0)
	}

	sentOffset := f.loc - int64(len(f.bufferBytes))
	for {
		var piece []byte
		if force {
			piece = f.bufferBytes
		} else {
			window := f.bufferBytes
			if int64(len(window)) > f.blockSize {
				window = window[:f.blockSize]
			}
			n := f.cutPoint(window)
			if int64(n) < f.blockSize && int64(len(f.bufferBytes)) <= f.blockSize {
				break // not enough to cut a full piece yet, and not forcing
			}
			piece = f.bufferBytes[:n]
		}
		if len(piece) == 0 {
			break
		}

		var op restclient.Op
		q := map[string]string{
			"syncflag":      string(syncFlag),
			"leaseid":       f.leaseID,
			"filesessionid": f.sessionID,
		}
		if f.firstWrite {
			op = restclient.OpCreate
			q["overwrite"] = "true"
			q["write"] = "true"
		} else {
			op = restclient.OpAppend
			q["append"] = "true"
			q["offset"] = strconv.FormatInt(sentOffset, 10)
		}

		if err := f.doCall(ctx, op, piece, q, sentOffset); err != nil {
			return err
		}

		f.firstWrite = false
		sentOffset += int64(len(piece))
		f.bufferBytes = f.bufferBytes[len(piece):]

		if !force && int64(len(f.bufferBytes)) < f.blockSize {
			break
		}
		if force && len(f.bufferBytes) == 0 {
			break
		}
	}

	return nil
}

// doCall issues a single CREATE/APPEND call. A BadOffsetException is only
// ever the store's way of saying "already applied" when this exact
// path+offset has been sent before and the client never saw the ack for it
// (a prior attempt died to a network failure, and ExecuteWithResult's
// internal retry or a caller-level retry resent the same bytes). A
// BadOffsetException on the first attempt at an offset means something else
// wrote there and must surface as a real error.
func (f *RemoteFile) doCall(ctx context.Context, op restclient.Op, data []byte, query map[string]string, offset int64) error {
	_, err := f.rm.ExecuteWithResult(ctx, "remotefile", string(op), func() (interface{}, error) {
		alreadyAttempted := f.attemptedOffsets[offset]
		f.attemptedOffsets[offset] = true

		res, callErr := f.rc.Call(ctx, op, f.path, restclient.Params{Query: query, Data: data})
		if callErr != nil {
			var se *errors.StoreError
			if stderrors.As(callErr, &se) && se.Code == errors.ErrCodeBadOffset {
				if alreadyAttempted {
					return nil, nil
				}
			}
			return nil, callErr
		}
		return res, nil
	})
	return err
}

// Close flushes any remaining buffered bytes and invalidates the cached
// directory entry for this path.
func (f *RemoteFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	if f.mode != ModeRead {
		if err := f.flush(context.Background(), SyncClose, true); err != nil {
			return err
		}
	}

	f.fs.InvalidatePath(f.path)
	return nil
}
