package fuse

import (
	"context"
	stderrors "errors"
	"log"
	"sync"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	remotefs "github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/metrics"
	"github.com/adlsfs/adlsfs/internal/remotefile"
	"github.com/adlsfs/adlsfs/internal/restclient"
	"github.com/adlsfs/adlsfs/pkg/errors"
	"github.com/adlsfs/adlsfs/pkg/path"
)

// safeInt64ToUint64 safely converts int64 to uint64, preventing negative values
func safeInt64ToUint64(i int64) uint64 {
	if i < 0 {
		return 0
	}
	return uint64(i)
}

// safeIntToUint32 safely converts int to uint32, preventing overflow
func safeIntToUint32(i int) uint32 {
	if i < 0 {
		return 0
	}
	if i > 0xFFFFFFFF {
		return 0xFFFFFFFF
	}
	return uint32(i)
}

// FileSystem implements the go-fuse filesystem interface over a remote
// FileSystem verb surface: every FUSE callback below translates to an
// Ls/Info/Mkdir/Touch call or a RemoteFile read/write.
type FileSystem struct {
	fs.Inode

	rfs     *remotefs.FileSystem
	rc      *restclient.Client
	metrics *metrics.Collector
	config  *Config

	mu         sync.Mutex
	openFiles  map[uint64]*OpenFile
	nextHandle uint64

	stats *Stats
}

// Config represents FUSE filesystem configuration
type Config struct {
	MountPoint string `yaml:"mount_point"`
	ReadOnly   bool   `yaml:"read_only"`

	DefaultUID  uint32        `yaml:"default_uid"`
	DefaultGID  uint32        `yaml:"default_gid"`
	DefaultMode uint32        `yaml:"default_mode"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`

	ChunkReadSize int64 `yaml:"chunk_read_size"`
}

// OpenFile tracks one open FUSE file handle's remote write cursor.
type OpenFile struct {
	path     string
	write    bool
	written  int64
	lastUsed time.Time
}

// Stats tracks filesystem operation statistics
type Stats struct {
	mu sync.RWMutex

	Lookups int64 `json:"lookups"`
	Opens   int64 `json:"opens"`
	Reads   int64 `json:"reads"`
	Writes  int64 `json:"writes"`
	Creates int64 `json:"creates"`
	Deletes int64 `json:"deletes"`

	BytesRead    int64 `json:"bytes_read"`
	BytesWritten int64 `json:"bytes_written"`

	Errors int64 `json:"errors"`

	AvgReadTime   time.Duration `json:"avg_read_time"`
	AvgWriteTime  time.Duration `json:"avg_write_time"`
	AvgLookupTime time.Duration `json:"avg_lookup_time"`
}

// NewFileSystem creates a new go-fuse filesystem instance bound to rfs.
func NewFileSystem(rfs *remotefs.FileSystem, rc *restclient.Client, metricsCollector *metrics.Collector, config *Config) *FileSystem {
	if config == nil {
		config = &Config{
			DefaultUID:    1000,
			DefaultGID:    1000,
			DefaultMode:   0644,
			CacheTTL:      5 * time.Minute,
			ChunkReadSize: 4 * 1024 * 1024,
		}
	}

	return &FileSystem{
		rfs:        rfs,
		rc:         rc,
		metrics:    metricsCollector,
		config:     config,
		openFiles:  make(map[uint64]*OpenFile),
		nextHandle: 1,
		stats:      &Stats{},
	}
}

// Root returns the root inode
func (fsys *FileSystem) Root() fs.InodeEmbedder {
	return &DirectoryNode{fs: fsys, path: ""}
}

// GetStats returns current filesystem statistics
func (fsys *FileSystem) GetStats() *Stats {
	fsys.stats.mu.RLock()
	defer fsys.stats.mu.RUnlock()

	return &Stats{
		Lookups:      fsys.stats.Lookups,
		Opens:        fsys.stats.Opens,
		Reads:        fsys.stats.Reads,
		Writes:       fsys.stats.Writes,
		BytesRead:    fsys.stats.BytesRead,
		BytesWritten: fsys.stats.BytesWritten,
		Errors:       fsys.stats.Errors,
	}
}

// errnoFor maps a StoreError's code to the nearest POSIX errno.
func errnoFor(err error) syscall.Errno {
	var se *errors.StoreError
	if stderrors.As(err, &se) {
		switch se.Code {
		case errors.ErrCodeFileNotFound:
			return syscall.ENOENT
		case errors.ErrCodeDirectoryExists:
			return syscall.EEXIST
		case errors.ErrCodeNotDirectory:
			return syscall.ENOTDIR
		case errors.ErrCodeNotEmpty:
			return syscall.ENOTEMPTY
		case errors.ErrCodePermissionDenied, errors.ErrCodeAccessDenied:
			return syscall.EACCES
		}
	}
	return syscall.EIO
}

// DirectoryNode represents a directory in the filesystem
type DirectoryNode struct {
	fs.Inode
	fs   *FileSystem
	path string
}

// Lookup looks up a child node by name
func (n *DirectoryNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	start := time.Now()
	defer func() { n.fs.recordLookupTime(time.Since(start)) }()

	n.fs.stats.mu.Lock()
	n.fs.stats.Lookups++
	n.fs.stats.mu.Unlock()

	childPath := n.joinPath(name)

	entry, err := n.fs.rfs.Info(ctx, childPath, false)
	if err != nil {
		n.fs.stats.mu.Lock()
		n.fs.stats.Errors++
		n.fs.stats.mu.Unlock()
		return nil, errnoFor(err)
	}

	if entry.IsDir() {
		return n.createDirectoryNode(name, childPath), 0
	}
	return n.createChildNode(name, entry), 0
}

// Readdir reads directory contents
func (n *DirectoryNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries, err := n.fs.rfs.Ls(ctx, n.path, false)
	if err != nil {
		n.fs.stats.mu.Lock()
		n.fs.stats.Errors++
		n.fs.stats.mu.Unlock()

		log.Printf("Readdir failed for %s: %v", n.path, err)
		return nil, errnoFor(err)
	}

	out := make([]fuse.DirEntry, 0, len(entries))
	for _, e := range entries {
		mode := uint32(fuse.S_IFREG)
		if e.IsDir() {
			mode = fuse.S_IFDIR
		}
		out = append(out, fuse.DirEntry{Name: path.Base(e.Name), Mode: mode})
	}

	return fs.NewListDirStream(out), 0
}

// Mkdir creates a new directory
func (n *DirectoryNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if n.fs.config.ReadOnly {
		return nil, syscall.EROFS
	}

	childPath := n.joinPath(name)
	if err := n.fs.rfs.Mkdir(ctx, childPath); err != nil {
		n.fs.stats.mu.Lock()
		n.fs.stats.Errors++
		n.fs.stats.mu.Unlock()

		log.Printf("Mkdir failed for %s: %v", childPath, err)
		return nil, errnoFor(err)
	}

	return n.createDirectoryNode(name, childPath), 0
}

// Create creates a new file
func (n *DirectoryNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (node *fs.Inode, fh fs.FileHandle, fuseFlags uint32, errno syscall.Errno) {
	if n.fs.config.ReadOnly {
		return nil, nil, 0, syscall.EROFS
	}

	childPath := n.joinPath(name)
	if err := n.fs.rfs.Touch(ctx, childPath); err != nil {
		n.fs.stats.mu.Lock()
		n.fs.stats.Errors++
		n.fs.stats.mu.Unlock()

		log.Printf("Create failed for %s: %v", childPath, err)
		return nil, nil, 0, errnoFor(err)
	}

	n.fs.stats.mu.Lock()
	n.fs.stats.Creates++
	n.fs.stats.mu.Unlock()

	entry := remotefs.DirEntry{Name: childPath, Type: remotefs.EntryTypeFile}
	fileNode := &FileNode{fs: n.fs, path: childPath, entry: entry}

	node = n.NewInode(ctx, fileNode, fs.StableAttr{Mode: fuse.S_IFREG})
	fh, fuseFlags, errno = fileNode.Open(ctx, flags)
	return node, fh, fuseFlags, errno
}

// FileNode represents a file in the filesystem
type FileNode struct {
	fs.Inode
	fs    *FileSystem
	path  string
	entry remotefs.DirEntry
}

// Open opens a file for read or write, returning a FileHandle bound to a
// RemoteFile over the requested mode.
func (f *FileNode) Open(ctx context.Context, flags uint32) (fh fs.FileHandle, fuseFlags uint32, errno syscall.Errno) {
	f.fs.stats.mu.Lock()
	f.fs.stats.Opens++
	f.fs.stats.mu.Unlock()

	write := flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_CREAT|syscall.O_TRUNC) != 0
	if f.fs.config.ReadOnly && write {
		return nil, 0, syscall.EROFS
	}

	cfg := remotefile.Config{BlockSize: f.fs.config.ChunkReadSize}

	var rf *remotefile.RemoteFile
	if write {
		appendMode := flags&syscall.O_APPEND != 0
		rf = remotefile.OpenWrite(f.fs.rfs, f.fs.rc, f.path, appendMode, cfg)
	} else {
		var err error
		rf, err = remotefile.OpenRead(ctx, f.fs.rfs, f.fs.rc, f.path, cfg)
		if err != nil {
			return nil, 0, errnoFor(err)
		}
	}

	f.fs.mu.Lock()
	handle := f.fs.nextHandle
	f.fs.nextHandle++
	f.fs.openFiles[handle] = &OpenFile{path: f.path, write: write, lastUsed: time.Now()}
	f.fs.mu.Unlock()

	return &FileHandle{fs: f.fs, handle: handle, rf: rf}, 0, 0
}

// Getattr gets file attributes
func (f *FileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = f.fs.config.DefaultMode
	out.Size = safeInt64ToUint64(f.entry.Length)
	out.Uid = f.fs.config.DefaultUID
	out.Gid = f.fs.config.DefaultGID

	unixTime := f.entry.ModTime().Unix()
	out.Mtime = safeInt64ToUint64(unixTime)
	out.Atime = safeInt64ToUint64(unixTime)
	out.Ctime = safeInt64ToUint64(unixTime)

	return 0
}

// FileHandle represents an open file handle backed by a RemoteFile.
type FileHandle struct {
	fs     *FileSystem
	handle uint64
	rf     *remotefile.RemoteFile
}

// Read reads data from the file at the requested offset.
func (fh *FileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	start := time.Now()
	defer func() { fh.fs.recordReadTime(time.Since(start)) }()

	fh.fs.stats.mu.Lock()
	fh.fs.stats.Reads++
	fh.fs.stats.mu.Unlock()

	if _, err := fh.rf.Seek(off, 0); err != nil {
		return fuse.ReadResultData(nil), 0
	}

	n, err := fh.rf.Read(dest)
	if err != nil && n == 0 {
		fh.fs.stats.mu.Lock()
		fh.fs.stats.Errors++
		fh.fs.stats.mu.Unlock()
		log.Printf("Read failed for %s at offset %d: %v", fh.handlePath(), off, err)
		return fuse.ReadResultData(nil), 0
	}

	fh.fs.stats.mu.Lock()
	fh.fs.stats.BytesRead += int64(n)
	fh.fs.stats.mu.Unlock()

	return fuse.ReadResultData(dest[:n]), 0
}

// Write writes data to the file. Writes must arrive in strictly sequential
// order (off == bytes already written): RemoteFile's append cursor has no
// concept of positional writes.
func (fh *FileHandle) Write(ctx context.Context, data []byte, off int64) (written uint32, errno syscall.Errno) {
	if fh.fs.config.ReadOnly {
		return 0, syscall.EROFS
	}

	start := time.Now()
	defer func() { fh.fs.recordWriteTime(time.Since(start)) }()

	fh.fs.mu.Lock()
	of := fh.fs.openFiles[fh.handle]
	fh.fs.mu.Unlock()
	if of != nil && off != of.written {
		return 0, syscall.ESPIPE
	}

	n, err := fh.rf.Write(data)
	if err != nil {
		fh.fs.stats.mu.Lock()
		fh.fs.stats.Errors++
		fh.fs.stats.mu.Unlock()
		log.Printf("Write failed for %s at offset %d: %v", fh.handlePath(), off, err)
		return 0, syscall.EIO
	}

	fh.fs.stats.mu.Lock()
	fh.fs.stats.Writes++
	fh.fs.stats.BytesWritten += int64(n)
	fh.fs.stats.mu.Unlock()

	fh.fs.mu.Lock()
	if of != nil {
		of.written += int64(n)
	}
	fh.fs.mu.Unlock()

	return safeIntToUint32(n), 0
}

// Flush is a no-op: RemoteFile durability happens at Close, which issues the
// final APPEND with SyncClose.
func (fh *FileHandle) Flush(ctx context.Context) syscall.Errno {
	return 0
}

// Release closes the RemoteFile, flushing any buffered write data.
func (fh *FileHandle) Release(ctx context.Context) syscall.Errno {
	err := fh.rf.Close()

	fh.fs.mu.Lock()
	delete(fh.fs.openFiles, fh.handle)
	fh.fs.mu.Unlock()

	if err != nil {
		fh.fs.stats.mu.Lock()
		fh.fs.stats.Errors++
		fh.fs.stats.mu.Unlock()
		return syscall.EIO
	}
	return 0
}

func (fh *FileHandle) handlePath() string {
	fh.fs.mu.Lock()
	defer fh.fs.mu.Unlock()
	if of, ok := fh.fs.openFiles[fh.handle]; ok {
		return of.path
	}
	return ""
}

// Helper methods for DirectoryNode

func (n *DirectoryNode) joinPath(name string) string {
	return path.Join(n.path, name)
}

func (n *DirectoryNode) createChildNode(name string, entry remotefs.DirEntry) *fs.Inode {
	fileNode := &FileNode{fs: n.fs, path: n.joinPath(name), entry: entry}
	return n.NewInode(context.Background(), fileNode, fs.StableAttr{Mode: fuse.S_IFREG})
}

func (n *DirectoryNode) createDirectoryNode(name, p string) *fs.Inode {
	dirNode := &DirectoryNode{fs: n.fs, path: p}
	return n.NewInode(context.Background(), dirNode, fs.StableAttr{Mode: fuse.S_IFDIR})
}

// Helper methods for FileSystem

func (fsys *FileSystem) recordLookupTime(duration time.Duration) {
	fsys.stats.mu.Lock()
	defer fsys.stats.mu.Unlock()

	if fsys.stats.Lookups <= 1 {
		fsys.stats.AvgLookupTime = duration
	} else {
		fsys.stats.AvgLookupTime = time.Duration((int64(fsys.stats.AvgLookupTime)*9 + int64(duration)) / 10)
	}
}

func (fsys *FileSystem) recordReadTime(duration time.Duration) {
	fsys.stats.mu.Lock()
	defer fsys.stats.mu.Unlock()

	if fsys.stats.Reads <= 1 {
		fsys.stats.AvgReadTime = duration
	} else {
		fsys.stats.AvgReadTime = time.Duration((int64(fsys.stats.AvgReadTime)*9 + int64(duration)) / 10)
	}
}

func (fsys *FileSystem) recordWriteTime(duration time.Duration) {
	fsys.stats.mu.Lock()
	defer fsys.stats.mu.Unlock()

	if fsys.stats.Writes <= 1 {
		fsys.stats.AvgWriteTime = duration
	} else {
		fsys.stats.AvgWriteTime = time.Duration((int64(fsys.stats.AvgWriteTime)*9 + int64(duration)) / 10)
	}
}
