// Package filesystem implements the POSIX-like verb surface (Ls, Info, Mv,
// Rm, Mkdir, ACL management, ...) backed by internal/restclient and memoized
// by an in-process directory-listing cache.
package filesystem

import "time"

// EntryType is the kind of a DirEntry as reported by the store.
type EntryType string

const (
	EntryTypeFile      EntryType = "FILE"
	EntryTypeDirectory EntryType = "DIRECTORY"
	EntryTypeSymlink   EntryType = "SYMLINK"
)

// DirEntry is a single directory listing entry, enriched with its fully
// qualified Name (the store reports only the basename).
type DirEntry struct {
	Name              string
	Type              EntryType
	Length            int64
	ModificationTime  int64 // milliseconds since epoch
	Owner             string
	Group             string
	Permission        string // octal string, e.g. "755"
}

// IsDir reports whether the entry is a directory.
func (e DirEntry) IsDir() bool { return e.Type == EntryTypeDirectory }

// ModTime converts ModificationTime to a time.Time.
func (e DirEntry) ModTime() time.Time {
	return time.UnixMilli(e.ModificationTime)
}

// WalkResult is the outcome of a recursive Walk.
type WalkResult struct {
	Files     []DirEntry
	EmptyDirs []string
}

// ExpiryOption enumerates the SETEXPIRY option values.
type ExpiryOption string

const (
	ExpiryNeverExpire             ExpiryOption = "NeverExpire"
	ExpiryRelativeToNow           ExpiryOption = "RelativeToNow"
	ExpiryRelativeToCreationDate  ExpiryOption = "RelativeToCreationDate"
	ExpiryAbsolute                ExpiryOption = "Absolute"
)
