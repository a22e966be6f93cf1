/*
Package fuse provides a cross-platform FUSE mount of a remote FileSystem.

It implements POSIX filesystem operations (lookup, readdir, open, read,
write, mkdir) that translate directly to FileSystem verb calls and
RemoteFile read/write handles, through two build-tag-selected backends:

Default build (go-fuse):
  - Target: Linux
  - Implementation: github.com/hanwen/go-fuse/v2
  - filesystem.go implements the fs.InodeEmbedder tree (DirectoryNode,
    FileNode, FileHandle) directly over internal/filesystem.FileSystem and
    internal/remotefile.RemoteFile.

CGO build (cgofuse):
  - Target: macOS, Windows, and Linux as a fallback
  - Implementation: github.com/winfsp/cgofuse
  - cgofuse_filesystem.go implements the flat fuse.FileSystemInterface
    callback set over the same FileSystem/RemoteFile pair.

Build selection:

	go build ./...                  // go-fuse (Linux)
	go build -tags cgofuse ./...    // cgofuse (macOS/Windows/Linux)

# Path and metadata mapping

Every FUSE path is passed straight to FileSystem.Info/Ls/Mkdir/Touch — no
local path rewriting beyond what pkg/path already does. Directory entries
report FILE or DIRECTORY per the store's LISTSTATUS/GETFILESTATUS response;
there is no synthetic directory-marker-object convention to maintain, since
the store itself tracks directories as first-class paths.

# I/O model

Open(O_RDONLY) returns a RemoteFile opened for reading: positional Read
calls are served through the handle's block cache, reseeking as FUSE
requests arbitrary offsets. Open(O_WRONLY|O_CREAT|...) returns a RemoteFile
opened for writing: writes must arrive in the order RemoteFile expects
(sequential, from the current write cursor) since the handle buffers and
flushes delimiter-aware chunks rather than supporting positional writes.
Release flushes and closes the handle, issuing the final APPEND with
SyncClose durability.

# Error mapping

StoreError codes are mapped to the nearest POSIX errno (ENOENT, EEXIST,
ENOTDIR, ENOTEMPTY, EACCES), falling back to EIO for anything else.

# Thread safety

FUSE callbacks are inherently concurrent; FileSystem and RemoteFile are
already safe for concurrent use, and this package's own handle table is
guarded by a mutex.
*/
package fuse
