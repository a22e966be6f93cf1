//go:build !cgofuse
// +build !cgofuse

package fuse

import (
	"context"

	remotefs "github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/metrics"
	"github.com/adlsfs/adlsfs/internal/restclient"
)

// Platform-specific filesystem interface
type PlatformFileSystem interface {
	Mount(ctx context.Context) error
	Unmount() error
	IsMounted() bool
	GetStats() *FilesystemStats
}

// CreatePlatformMountManager creates the appropriate mount manager for the
// platform: on the default build tag this is the hanwen/go-fuse mount.
func CreatePlatformMountManager(rfs *remotefs.FileSystem, rc *restclient.Client,
	metricsCollector *metrics.Collector, config *MountConfig) PlatformFileSystem {

	fuseConfig := &Config{
		MountPoint:  config.MountPoint,
		ReadOnly:    false,
		DefaultUID:  1000,
		DefaultGID:  1000,
		DefaultMode: 0644,
		CacheTTL:    60 * 1000000000, // 60 seconds in nanoseconds
	}

	filesystem := NewFileSystem(rfs, rc, metricsCollector, fuseConfig)
	return NewMountManager(filesystem, config)
}
