//go:build cgofuse
// +build cgofuse

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

// CreatePlatformMountManager creates the cgofuse mount manager, used on
// platforms without a native go-fuse kernel driver (macOS, Windows).
func CreatePlatformMountManager(rfs *remotefs.FileSystem, rc *restclient.Client,
	metricsCollector *metrics.Collector, config *MountConfig) PlatformFileSystem {

	return NewCgoFuseMountManager(rfs, rc, metricsCollector, config)
}
