// Package aclwalker implements RecursiveAclWalker: a concurrent tree walk
// that applies one ACL verb to every path under a root.
package aclwalker

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/multierr"

	"github.com/adlsfs/adlsfs/internal/filesystem"
	"github.com/adlsfs/adlsfs/pkg/utils"
)

// Verb is an ACL operation RecursiveAclWalker can apply.
type Verb int

const (
	VerbModifyAclEntries Verb = iota
	VerbSetAcl
	VerbRemoveAclEntries
)

const (
	walkBatchSize     = 10
	applierPoolSize   = 50
	defaultWalkers    = 4
	workQueueCapacity = 256
)

// Config configures a RecursiveAclWalker run.
type Config struct {
	Walkers       int // walker goroutines doing the BFS traversal
	ApplierCount  int // sub-workers applying the ACL verb; default max(2, NumCPU-1)
	Logger        *utils.StructuredLogger
}

func (c Config) applierCount() int {
	if c.ApplierCount > 0 {
		return c.ApplierCount
	}
	if n := runtime.NumCPU() - 1; n >= 2 {
		return n
	}
	return 2
}

func (c Config) walkers() int {
	if c.Walkers > 0 {
		return c.Walkers
	}
	return defaultWalkers
}

// RecursiveAclWalker applies an ACL verb to every path under a root.
//
// Grounded on the teacher's internal/distributed coordinator/gossip shape —
// bounded goroutine pools feeding a shared channel, with a monitor goroutine
// watching for failure — adapted from cluster-membership gossip to ACL
// batch application. The walker pool, applier sub-pools, exception monitor,
// and log forwarder below are this package's counterparts to that shape.
type RecursiveAclWalker struct {
	fs     *filesystem.FileSystem
	cfg    Config
	logger *utils.StructuredLogger
}

// New constructs a RecursiveAclWalker bound to fs.
func New(fs *filesystem.FileSystem, cfg Config) *RecursiveAclWalker {
	logger := cfg.Logger
	if logger == nil {
		logger, _ = utils.NewStructuredLogger(utils.DefaultStructuredLoggerConfig())
	}
	return &RecursiveAclWalker{fs: fs, cfg: cfg, logger: logger.WithComponent("aclwalker")}
}

// logRecord is one sub-worker's log line, serialized onto the main logger by
// the log-forwarder goroutine.
type logRecord struct {
	level   string
	message string
	fields  map[string]interface{}
}

// Run walks root and applies verb (with aclSpec, e.g. "user:bob:rwx") to
// every path discovered beneath it. Root itself is listed but not passed
// to the verb.
func (w *RecursiveAclWalker) Run(ctx context.Context, root string, verb Verb, aclSpec string) error {
	applyCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches := make(chan []string, workQueueCapacity)
	exceptions := make(chan error, 1)
	logs := make(chan logRecord, 256)

	var outstanding int64 // count-up-down latch of directories still being walked
	var wg sync.WaitGroup // tracks the walker pool's lifetime

	var logWG sync.WaitGroup
	logWG.Add(1)
	go w.forwardLogs(applyCtx, logs, &logWG)

	var monitorWG sync.WaitGroup
	monitorWG.Add(1)
	var monitorErr error
	go func() {
		defer monitorWG.Done()
		select {
		case err := <-exceptions:
			monitorErr = err
			cancel()
		case <-applyCtx.Done():
		}
	}()

	applierErrs := w.startAppliers(applyCtx, batches, exceptions, logs, verb, aclSpec)

	atomic.AddInt64(&outstanding, 1)
	wg.Add(1)
	walkPool := pool.New().WithMaxGoroutines(w.cfg.walkers())
	w.walk(applyCtx, walkPool, root, batches, logs, &outstanding, &wg)

	wg.Wait()
	walkPool.Wait()
	close(batches)

	appliedErr := <-applierErrs
	cancel() // synthesize the log sentinel if appliers exited without sending one
	logWG.Wait()
	monitorWG.Wait()

	return multierr.Combine(monitorErr, appliedErr)
}

// walk performs one BFS step over dir: it lists dir, batches its children
// (dir itself is not batched), pushes completed batches onto the queue, and
// recurses into subdirectories via the walker pool.
func (w *RecursiveAclWalker) walk(ctx context.Context, p *pool.Pool, dir string, batches chan<- []string, logs chan<- logRecord, outstanding *int64, wg *sync.WaitGroup) {
	defer wg.Done()
	defer atomic.AddInt64(outstanding, -1)

	select {
	case <-ctx.Done():
		return
	default:
	}

	entries, err := w.fs.Ls(ctx, dir, false)
	if err != nil {
		select {
		case logs <- logRecord{level: "error", message: "failed to list directory", fields: map[string]interface{}{"path": dir, "error": err.Error()}}:
		default:
		}
		return
	}

	batch := make([]string, 0, walkBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		select {
		case batches <- batch:
		case <-ctx.Done():
		}
		batch = make([]string, 0, walkBatchSize)
	}

	for _, e := range entries {
		batch = append(batch, e.Name)
		if len(batch) >= walkBatchSize {
			flush()
		}
		if e.IsDir() {
			atomic.AddInt64(outstanding, 1)
			wg.Add(1)
			sub := e.Name
			p.Go(func() {
				w.walk(ctx, p, sub, batches, logs, outstanding, wg)
			})
		}
	}
	flush()
}

// startAppliers launches cfg.applierCount() sub-workers, each driving its
// own bounded conc/pool of size applierPoolSize to issue the ACL call per
// path. It returns a channel that receives the aggregated error once every
// sub-worker has drained.
func (w *RecursiveAclWalker) startAppliers(ctx context.Context, batches <-chan []string, exceptions chan<- error, logs chan<- logRecord, verb Verb, aclSpec string) <-chan error {
	result := make(chan error, 1)
	n := w.cfg.applierCount()

	go func() {
		var wg sync.WaitGroup
		errs := make([]error, n)

		for i := 0; i < n; i++ {
			i := i
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs[i] = w.runApplier(ctx, batches, logs, verb, aclSpec)
			}()
		}
		wg.Wait()

		combined := multierr.Combine(errs...)
		if combined != nil {
			select {
			case exceptions <- combined:
			default:
			}
		}
		result <- combined
	}()

	return result
}

func (w *RecursiveAclWalker) runApplier(ctx context.Context, batches <-chan []string, logs chan<- logRecord, verb Verb, aclSpec string) error {
	p := pool.New().WithErrors().WithMaxGoroutines(applierPoolSize)

	for {
		select {
		case <-ctx.Done():
			return p.Wait()
		case batch, ok := <-batches:
			if !ok {
				return p.Wait()
			}
			for _, path := range batch {
				path := path
				p.Go(func() error {
					if err := w.applyOne(ctx, path, verb, aclSpec); err != nil {
						select {
						case logs <- logRecord{level: "debug", message: "acl apply failed", fields: map[string]interface{}{"path": path, "error": err.Error()}}:
						default:
						}
						return err
					}
					return nil
				})
			}
		}
	}
}

func (w *RecursiveAclWalker) applyOne(ctx context.Context, path string, verb Verb, aclSpec string) error {
	switch verb {
	case VerbModifyAclEntries:
		return w.fs.ModifyAclEntries(ctx, path, aclSpec)
	case VerbSetAcl:
		return w.fs.SetAcl(ctx, path, aclSpec)
	case VerbRemoveAclEntries:
		return w.fs.RemoveAclEntries(ctx, path, aclSpec)
	default:
		return nil
	}
}

// forwardLogs serializes log records from every sub-worker onto the main
// StructuredLogger until ctx is cancelled (synthesizing the sentinel if the
// appliers exit without one) or the channel is closed.
func (w *RecursiveAclWalker) forwardLogs(ctx context.Context, logs <-chan logRecord, wg *sync.WaitGroup) {
	defer wg.Done()
	for {
		select {
		case rec, ok := <-logs:
			if !ok {
				return
			}
			switch rec.level {
			case "error":
				w.logger.Error(rec.message, rec.fields)
			default:
				w.logger.Debug(rec.message, rec.fields)
			}
		case <-ctx.Done():
			return
		}
	}
}
