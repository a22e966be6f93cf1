// Package buffer provides a size-bucketed byte-slice pool. Each RemoteFile
// holds one, but its read-ahead and write-buffer paths allocate directly and
// do not draw from it.
package buffer
