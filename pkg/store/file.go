package store

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hyp3rd/ewrap"
	"go.opentelemetry.io/otel/attribute"

	"github.com/hyp3rd/countd/internal/constants"
	"github.com/hyp3rd/countd/pkg/config"
	"github.com/hyp3rd/countd/pkg/logging"
)

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// FileStore persists the counter as a single JSON file updated with the
// temp+rename protocol. Two layers of exclusion guard the read-modify-write
// cycle: an in-process mutex serializes requests within this process, and an
// advisory file lock on a sidecar path keeps the same guarantee if several
// processes ever share the volume.
type FileStore struct {
	path          string
	lockTimeout   time.Duration
	abortOnCancel bool

	mu     *MutexLocker
	flock  Locker
	logger logging.Adapter

	// corrupt is set once at open when existing state fails to parse. The
	// store then refuses reads and increments but the process stays up to
	// answer health and version.
	corrupt bool

	closed    atomic.Bool
	lastKnown atomic.Int64
}

// FileStoreOption customizes a FileStore.
type FileStoreOption func(*FileStore)

// WithLocker swaps the cross-process lock implementation.
func WithLocker(locker Locker) FileStoreOption {
	return func(s *FileStore) {
		s.flock = locker
	}
}

// NewFileStore opens the counter at cfg.StatePath. A missing file means a
// fresh counter at zero; an unparseable file marks the store corrupt rather
// than resetting it. Storage that is currently unwritable does not fail the
// constructor: the health probe reports it and reads surface errors until it
// recovers.
func NewFileStore(cfg config.StorageConfig, logger logging.Adapter, opts ...FileStoreOption) (*FileStore, error) {
	if cfg.StatePath == "" {
		return nil, ewrap.New("state path is required")
	}

	if logger == nil {
		logger = logging.NewNoopAdapter()
	}

	store := &FileStore{
		path:          cfg.StatePath,
		lockTimeout:   cfg.LockTimeout,
		abortOnCancel: cfg.AbortWriteOnCancel,
		mu:            NewMutexLocker(),
		flock:         NewFileLocker(cfg.StatePath + ".lock"),
		logger:        logger,
	}

	for _, opt := range opts {
		opt(store)
	}

	ctx := context.Background()

	err := os.MkdirAll(filepath.Dir(cfg.StatePath), constants.StateDirMode)
	if err != nil {
		logger.Error(ctx, err, "create state directory", attribute.String("path", cfg.StatePath))
	}

	sweepTemp(cfg.StatePath)

	count, err := readState(cfg.StatePath)

	switch {
	case err == nil:
		store.lastKnown.Store(count)
		logger.Info(ctx, "counter state loaded",
			attribute.String("path", cfg.StatePath),
			attribute.Int64("count", count),
		)
	case ErrCorruptState.Is(err):
		store.corrupt = true

		logger.Error(ctx, err, "counter state unparseable, refusing to serve",
			attribute.String("path", cfg.StatePath),
		)
	default:
		logger.Error(ctx, err, "counter state unreadable at startup",
			attribute.String("path", cfg.StatePath),
		)
	}

	return store, nil
}

// Current implements Store. Reads serialize behind the same in-process mutex
// as writes so that a read started after an increment's response observes
// that increment. The file lock is not needed: rename guarantees a reader
// only ever opens a complete file.
func (s *FileStore) Current(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	release, err := s.mu.Acquire(ctx)
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = release()
	}()

	if s.corrupt {
		return 0, ErrCorruptState
	}

	count, err := readState(s.path)
	if err != nil {
		return 0, err
	}

	s.lastKnown.Store(count)

	return count, nil
}

// Increment implements Store using the atomic update protocol: lock, read,
// compute, write temp, rename, unlock. Both locks are released on every exit
// path. On any failure the previous state remains authoritative.
func (s *FileStore) Increment(ctx context.Context) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}

	acquireCtx := ctx

	if s.lockTimeout > 0 {
		var cancel context.CancelFunc

		acquireCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}

	releaseMu, err := s.mu.Acquire(acquireCtx)
	if err != nil {
		return 0, ErrLockTimeout
	}

	defer func() {
		_ = releaseMu()
	}()

	if s.corrupt {
		return 0, ErrCorruptState
	}

	releaseLock, err := s.flock.Acquire(acquireCtx)
	if err != nil {
		if ErrLockTimeout.Is(err) {
			return 0, ErrLockTimeout
		}

		return 0, ewrap.Wrap(err, "acquire state lock")
	}

	defer func() {
		releaseErr := releaseLock()
		if releaseErr != nil {
			s.logger.Error(ctx, releaseErr, "release state lock", attribute.String("path", s.path))
		}
	}()

	count, err := readState(s.path)
	if err != nil {
		return 0, err
	}

	next := count + 1

	// The lock timeout bounds acquisition only. Once the exclusive section
	// is entered the write runs to completion unless the operator opted into
	// aborting on a dead request context.
	if s.abortOnCancel && ctx.Err() != nil {
		s.logger.Info(ctx, "increment abandoned before commit",
			attribute.String("path", s.path),
			attribute.Int64("count", count),
		)

		return 0, ErrLockTimeout
	}

	err = writeState(s.path, next)
	if err != nil {
		return 0, err
	}

	s.lastKnown.Store(next)
	s.logger.Info(ctx, "increment",
		attribute.Int64("count", next),
		attribute.Int("pid", os.Getpid()),
	)

	return next, nil
}

// Probe implements Store. It confirms the state directory accepts writes by
// creating and removing a scratch file; it never touches the counter lock,
// so health stays responsive under write contention.
func (s *FileStore) Probe(_ context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}

	if s.corrupt {
		return ErrCorruptState
	}

	dir := filepath.Dir(s.path)

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return ewrap.Wrapf(err, "state directory %q not writable", dir)
	}

	name := probe.Name()

	_, err = probe.Write([]byte("ok"))
	closeErr := probe.Close()
	removeErr := os.Remove(name)

	if err != nil {
		return ewrap.Wrapf(err, "state directory %q not writable", dir)
	}

	if closeErr != nil {
		return ewrap.Wrapf(closeErr, "state directory %q not writable", dir)
	}

	if removeErr != nil {
		return ewrap.Wrapf(removeErr, "cleanup probe file in %q", dir)
	}

	return nil
}

// LastKnown returns the most recently observed counter value without
// touching storage. It is a diagnostic convenience, never the source of
// truth for reads.
func (s *FileStore) LastKnown() int64 {
	return s.lastKnown.Load()
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.closed.Store(true)

	return nil
}
