package transfer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/internal/restclient"
	"github.com/adlsfs/adlsfs/pkg/errors"
	"github.com/adlsfs/adlsfs/pkg/path"
)

// Downloader expands remote sources (globs, directory trees) into a set of
// (src, dst) pairs and drives a TransferClient to pull them to local disk.
// Downloads never merge server-side: positional os.File.WriteAt calls
// establish the final byte layout directly, so Config.Merger stays nil.
type Downloader struct {
	fs     *filesystem.FileSystem
	rc     *restclient.Client
	client *TransferClient

	NThreads  int
	Overwrite bool
}

// NewDownloader constructs a Downloader bound to fs/rc.
func NewDownloader(fs *filesystem.FileSystem, rc *restclient.Client, cfg Config, nthreads int) *Downloader {
	cfg.Merger = nil
	if cfg.Transferer == nil {
		cfg.Transferer = NewDownloadTransferer()
	}
	return &Downloader{
		fs:       fs,
		rc:       rc,
		client:   New(fs, rc, cfg),
		NThreads: nthreads,
	}
}

// Run expands srcPattern (a remote glob or directory) against a local dst
// and transfers every resolved pair, creating local directories and
// truncating targets before each file's chunks are scheduled. Per-pair
// existence checks and remote stats fan out across a semaphore-bounded
// errgroup before any chunk is submitted, the same way Uploader.Run does.
func (d *Downloader) Run(ctx context.Context, srcPattern, dstPath string) error {
	pairs, err := d.resolve(ctx, srcPattern, dstPath)
	if err != nil {
		return err
	}

	lengths := make([]int64, len(pairs))
	sem := semaphore.NewWeighted(int64(fanoutLimit(d.NThreads)))
	g, gctx := errgroup.WithContext(ctx)
	for i, pr := range pairs {
		i, pr := i, pr
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		g.Go(func() error {
			defer sem.Release(1)
			if !d.Overwrite {
				if _, err := os.Stat(pr.dst); err == nil {
					return errors.NewError(errors.ErrCodeDirectoryExists, "destination exists and overwrite is false").
						WithComponent("transfer").WithDetail("dst", pr.dst)
				}
			}
			info, err := d.fs.Info(gctx, pr.src, false)
			if err != nil {
				return err
			}
			lengths[i] = info.Length
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, pr := range pairs {
		if err := d.client.Submit(pr.src, pr.dst, lengths[i]); err != nil {
			return err
		}
	}

	return d.client.Run(ctx, d.NThreads, beforeDownloadStart)
}

// beforeDownloadStart creates dst's parent directory and creates dst (or
// truncates it to zero length) before any chunk runs, so positional WriteAt
// calls from concurrent chunks never race on file creation.
func beforeDownloadStart(fs *filesystem.FileSystem, src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	return f.Close()
}

// Progress delegates to the underlying TransferClient.
func (d *Downloader) Progress() []Progress { return d.client.Progress() }

// Save persists the current checkpoint immediately.
func (d *Downloader) Save() error { return save(d.client) }

// ClearSaved removes this downloader's checkpoint from dir.
func (d *Downloader) ClearSaved(dir string) error { return ClearSaved(dir, d.client) }

// resolve expands a remote source (a glob pattern, a plain path, or a
// directory) against a local destination, rebasing multi-source trees
// against the longest common remote prefix per §4.I step 2.
func (d *Downloader) resolve(ctx context.Context, srcPattern, dstPath string) ([]srcDstPair, error) {
	var entries []filesystem.DirEntry

	if path.HasGlob(srcPattern) {
		matched, err := d.fs.Glob(ctx, srcPattern)
		if err != nil {
			return nil, err
		}
		entries = matched
	} else if info, err := d.fs.Info(ctx, srcPattern, false); err == nil && info.IsDir() {
		result, err := d.fs.Walk(ctx, srcPattern)
		if err != nil {
			return nil, err
		}
		entries = result.Files
	} else if err == nil {
		entries = []filesystem.DirEntry{info}
	} else {
		return nil, err
	}

	if len(entries) == 0 {
		return nil, errors.NewError(errors.ErrCodeFileNotFound, "no remote source matched").
			WithComponent("transfer").WithDetail("src", srcPattern)
	}

	if len(entries) == 1 && entries[0].Name == path.Clean(srcPattern) {
		dst := dstPath
		if info, err := os.Stat(dstPath); err == nil && info.IsDir() {
			dst = filepath.Join(dstPath, path.Base(entries[0].Name))
		}
		return []srcDstPair{{src: entries[0].Name, dst: dst}}, nil
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	root := path.GloblessPrefix(srcPattern)

	out := make([]srcDstPair, 0, len(entries))
	for _, name := range names {
		rel := strings.TrimPrefix(strings.TrimPrefix(name, root), "/")
		out = append(out, srcDstPair{src: name, dst: filepath.Join(dstPath, filepath.FromSlash(rel))})
	}
	return out, nil
}
