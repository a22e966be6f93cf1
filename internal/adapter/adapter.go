// Package adapter wires the REST client, filesystem verb surface, transfer
// engine, ACL walker, and optional FUSE mount into a single entry point for
// one store account.
package adapter

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/adlsfs/adlsfs/internal/aclwalker"
	"github.com/adlsfs/adlsfs/internal/config"
	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/fuse"
	"github.com/adlsfs/adlsfs/internal/health"
	"github.com/adlsfs/adlsfs/internal/metrics"
	"github.com/adlsfs/adlsfs/internal/restclient"
	"github.com/adlsfs/adlsfs/internal/transfer"
	"github.com/adlsfs/adlsfs/pkg/errors"
	"github.com/adlsfs/adlsfs/pkg/retry"
	"github.com/adlsfs/adlsfs/pkg/types"
)

// Adapter is the top-level client for one store account: it owns the REST
// client and the FileSystem verb surface, and, once Start is called with a
// mount point configured, an optional FUSE mount exposing that FileSystem
// as a real POSIX mountpoint.
//
// Grounded on the teacher's internal/adapter.Adapter composition root
// (storage-URI validation up front, lazy component wiring in Start, mirror
// teardown in Stop) — generalized from an S3-bucket-plus-FUSE-mount
// composition to a webHDFS-account-plus-optional-FUSE-mount one.
type Adapter struct {
	storageURI string
	mountPoint string
	cfg        *config.Configuration

	rc      *restclient.Client
	fs      *filesystem.FileSystem
	metrics *metrics.Collector
	health  *health.Checker

	uploader   *transfer.Uploader
	downloader *transfer.Downloader
	aclWalker  *aclwalker.RecursiveAclWalker

	mountMgr fuse.PlatformFileSystem

	mu      sync.Mutex
	started bool
}

// New validates storageURI and wires an Adapter bound to it. token supplies
// and refreshes the bearer credential attached to every outbound call;
// credential acquisition itself stays the caller's responsibility. Pass an
// empty mountPoint if the caller only needs Upload/Download/FileSystem and
// never intends to mount.
func New(ctx context.Context, storageURI, mountPoint string, cfg *config.Configuration, token types.TokenProvider) (*Adapter, error) {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	baseURL, err := validateStorageURI(storageURI)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(&metrics.Config{
		Enabled: cfg.Monitoring.Metrics.Enabled,
		Port:    cfg.Global.MetricsPort,
		Labels:  cfg.Monitoring.Metrics.CustomLabels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics collector: %w", err)
	}

	rcCfg := restclient.Config{
		BaseURL:        baseURL,
		APIVersion:     cfg.Network.APIVersion,
		MaxIdlePerHost: cfg.Network.PoolSize,
		RequestTimeout: cfg.Network.Timeouts.Request,
		Retry: retry.Config{
			MaxAttempts:  cfg.Network.Retry.MaxAttempts,
			InitialDelay: cfg.Network.Retry.BaseDelay,
			MaxDelay:     cfg.Network.Retry.MaxDelay,
			Multiplier:   2,
			Jitter:       true,
		},
		BreakerEnabled: cfg.Network.CircuitBreaker.Enabled,
	}
	rc := restclient.New(rcCfg, token, collector)
	fsys := filesystem.New(rc)

	transferCfg := transfer.Config{
		ChunkSize:   cfg.Transfer.ChunkSize,
		BlockSize:   cfg.Transfer.BlockSize,
		PersistPath: cfg.Transfer.PersistPath,
		Merger:      transfer.DefaultMerger,
	}

	checker, err := health.NewChecker(&health.Config{
		Enabled:       cfg.Monitoring.HealthChecks.Enabled,
		CheckInterval: cfg.Monitoring.HealthChecks.Interval,
		Timeout:       cfg.Monitoring.HealthChecks.Timeout,
		MaxFailures:   3,
		HTTPEnabled:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize health checker: %w", err)
	}
	_ = checker.RegisterCheck("filesystem", "root GETFILESTATUS reachability",
		health.CategoryStorage, health.PriorityCritical, health.FileSystemCheck(fsys))

	return &Adapter{
		storageURI: storageURI,
		mountPoint: mountPoint,
		cfg:        cfg,
		rc:         rc,
		fs:         fsys,
		metrics:    collector,
		health:     checker,
		uploader:   transfer.NewUploader(fsys, rc, transferCfg, cfg.Transfer.NumThreads),
		downloader: transfer.NewDownloader(fsys, rc, transferCfg, cfg.Transfer.NumThreads),
		aclWalker:  aclwalker.New(fsys, aclwalker.Config{}),
	}, nil
}

// Start brings up metrics collection and, if a mount point was configured,
// mounts the FileSystem as a FUSE filesystem.
func (a *Adapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return errors.NewError(errors.ErrCodeInvalidState, "adapter already started").
			WithComponent("adapter").WithOperation("Start")
	}

	if err := a.metrics.Start(ctx); err != nil {
		return fmt.Errorf("failed to start metrics: %w", err)
	}

	if err := a.health.Start(ctx); err != nil {
		_ = a.metrics.Stop(ctx)
		return fmt.Errorf("failed to start health checker: %w", err)
	}

	if a.mountPoint != "" {
		mountCfg := &fuse.MountConfig{
			MountPoint: a.mountPoint,
			Options: &fuse.MountOptions{
				MaxRead:      128 * 1024,
				MaxWrite:     128 * 1024,
				AttrTimeout:  a.cfg.Cache.TTL,
				EntryTimeout: a.cfg.Cache.TTL,
				FSName:       "adlsfs",
				Subtype:      "webhdfs",
			},
			Permissions: &fuse.Permissions{
				FileMode: 0644,
				DirMode:  0755,
			},
		}
		a.mountMgr = fuse.CreatePlatformMountManager(a.fs, a.rc, a.metrics, mountCfg)
		if err := a.mountMgr.Mount(ctx); err != nil {
			_ = a.metrics.Stop(ctx)
			return fmt.Errorf("failed to mount %s: %w", a.mountPoint, err)
		}
	}

	a.started = true
	return nil
}

// Stop unmounts (if mounted) and stops metrics collection.
func (a *Adapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.started {
		return nil
	}

	var firstErr error
	if a.mountMgr != nil {
		if err := a.mountMgr.Unmount(); err != nil {
			firstErr = fmt.Errorf("failed to unmount %s: %w", a.mountPoint, err)
		}
	}
	if a.cfg.Monitoring.HealthChecks.Enabled {
		if err := a.health.Stop(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to stop health checker: %w", err)
		}
	}
	if err := a.metrics.Stop(ctx); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("failed to stop metrics: %w", err)
	}

	a.started = false
	return firstErr
}

// FileSystem returns the underlying POSIX-like verb surface.
func (a *Adapter) FileSystem() *filesystem.FileSystem { return a.fs }

// Upload expands srcPattern (a local glob, file, or directory tree) and
// transfers it to dst on the store, chunked and parallel.
func (a *Adapter) Upload(ctx context.Context, srcPattern, dst string) error {
	return a.uploader.Run(ctx, srcPattern, dst)
}

// Download expands srcPattern (a remote glob or directory) and pulls it to
// dst on local disk, chunked and parallel.
func (a *Adapter) Download(ctx context.Context, srcPattern, dst string) error {
	return a.downloader.Run(ctx, srcPattern, dst)
}

// ApplyAcl recursively applies verb/aclSpec to every path under root.
func (a *Adapter) ApplyAcl(ctx context.Context, root string, verb aclwalker.Verb, aclSpec string) error {
	return a.aclWalker.Run(ctx, root, verb, aclSpec)
}

// validateStorageURI accepts an azure:// or https:// store endpoint and
// returns the base URL the REST client should dial. An azure:// prefix is
// shorthand for https://; no other scheme is accepted.
func validateStorageURI(storageURI string) (string, error) {
	if storageURI == "" {
		return "", errors.NewError(errors.ErrCodeValidationFailed, "storage URI must not be empty").
			WithComponent("adapter")
	}

	if rest, ok := strings.CutPrefix(storageURI, "azure://"); ok {
		if rest == "" {
			return "", errors.NewError(errors.ErrCodeValidationFailed, "azure:// URI must include a host").
				WithComponent("adapter").WithDetail("uri", storageURI)
		}
		return "https://" + rest, nil
	}
	if strings.HasPrefix(storageURI, "https://") {
		return storageURI, nil
	}
	return "", errors.NewError(errors.ErrCodeValidationFailed, "storage URI must use the azure:// or https:// scheme").
		WithComponent("adapter").WithDetail("uri", storageURI)
}
