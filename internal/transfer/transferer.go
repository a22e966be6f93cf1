package transfer

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/remotefile"
	"github.com/adlsfs/adlsfs/internal/restclient"
)

// Transferer moves one chunk's bytes between the local filesystem and the
// remote store. Implementations must check shutdown between inner blocks and
// return (bytesSoFar, nil) rather than an error on cancellation.
type Transferer interface {
	Do(ctx context.Context, fs *filesystem.FileSystem, rc *restclient.Client, src, dst string, offset, size, blockSize int64, shutdown *atomic.Bool) (int64, error)
}

// Merger combines a file's finished chunk outputs into the final destination.
type Merger interface {
	Do(ctx context.Context, fs *filesystem.FileSystem, out string, parts []string, shutdown *atomic.Bool) error
}

// concatMerger implements Merger atop the server-side CONCAT primitive.
type concatMerger struct{}

func (concatMerger) Do(ctx context.Context, fs *filesystem.FileSystem, out string, parts []string, shutdown *atomic.Bool) error {
	if shutdown.Load() {
		return nil
	}
	return fs.Concat(ctx, out, parts, true)
}

// DefaultMerger is the server-side CONCAT merge strategy used whenever a
// file was split into more than one chunk.
var DefaultMerger Merger = concatMerger{}

// downloadTransferer reads a remote range in blockSize pieces and writes it
// to the local file at the matching offset.
type downloadTransferer struct {
	readConfig remotefile.Config
}

// NewDownloadTransferer returns a Transferer that reads from the store and
// writes to a local file via os.File.WriteAt.
func NewDownloadTransferer() Transferer {
	return downloadTransferer{}
}

func (t downloadTransferer) Do(ctx context.Context, fs *filesystem.FileSystem, rc *restclient.Client, src, dst string, offset, size, blockSize int64, shutdown *atomic.Bool) (int64, error) {
	rf, err := remotefile.OpenRead(ctx, fs, rc, src, remotefile.Config{BlockSize: blockSize})
	if err != nil {
		return 0, err
	}
	defer rf.Close()

	if _, err := rf.Seek(offset, os.SEEK_SET); err != nil {
		return 0, err
	}

	local, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return 0, err
	}
	defer local.Close()

	buf := make([]byte, blockSize)
	var written int64
	for written < size {
		if shutdown.Load() {
			return written, nil
		}
		want := blockSize
		if size-written < want {
			want = size - written
		}
		n, readErr := rf.Read(buf[:want])
		if n > 0 {
			if _, werr := local.WriteAt(buf[:n], offset+written); werr != nil {
				return written, werr
			}
			written += int64(n)
		}
		if readErr != nil {
			break
		}
	}
	return written, nil
}

// uploadTransferer reads a local range in delimiter-aware blockSize pieces
// and appends each to the remote handle.
type uploadTransferer struct {
	delimiter []byte
}

// NewUploadTransferer returns a Transferer that reads a local file and
// writes to a remote handle opened with the given delimiter.
func NewUploadTransferer(delimiter []byte) Transferer {
	return uploadTransferer{delimiter: delimiter}
}

func (t uploadTransferer) Do(ctx context.Context, fs *filesystem.FileSystem, rc *restclient.Client, src, dst string, offset, size, blockSize int64, shutdown *atomic.Bool) (int64, error) {
	local, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer local.Close()

	rf := remotefile.OpenWrite(fs, rc, dst, false, remotefile.Config{BlockSize: blockSize, Delimiter: t.delimiter})

	buf := make([]byte, blockSize)
	var total int64
	for total < size {
		if shutdown.Load() {
			_ = rf.Close()
			return total, nil
		}
		want := blockSize
		if size-total < want {
			want = size - total
		}
		n, readErr := local.ReadAt(buf[:want], offset+total)
		if n > 0 {
			if _, werr := rf.Write(buf[:n]); werr != nil {
				rf.Close()
				return total, werr
			}
			total += int64(n)
		}
		if readErr != nil {
			break
		}
	}

	if err := rf.Close(); err != nil {
		return total, err
	}
	return total, nil
}
