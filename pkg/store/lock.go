package store

import (
	"context"
	"os"
	"time"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/countd/internal/constants"
)

// lockRetryInterval is how often a contended file lock is re-attempted.
const lockRetryInterval = 10 * time.Millisecond

// Locker grants exclusive access to the persisted counter state.
//
// Implementations must honor the context deadline while waiting and must
// make the returned release func safe to call exactly once on every exit
// path. Swapping the implementation (in-memory mutex, advisory file lock, a
// future distributed lock) must not require touching the HTTP layer.
type Locker interface {
	Acquire(ctx context.Context) (release func() error, err error)
}

// MutexLocker serializes callers within a single process. It is a mutex
// built on a one-slot channel so acquisition can respect context deadlines.
type MutexLocker struct {
	slot chan struct{}
}

// NewMutexLocker returns an unlocked MutexLocker.
func NewMutexLocker() *MutexLocker {
	return &MutexLocker{slot: make(chan struct{}, 1)}
}

// Acquire implements Locker.
func (m *MutexLocker) Acquire(ctx context.Context) (func() error, error) {
	select {
	case m.slot <- struct{}{}:
		return func() error {
			<-m.slot

			return nil
		}, nil
	case <-ctx.Done():
		return nil, ErrLockTimeout
	}
}

// FileLocker holds an advisory exclusive lock on a sidecar path. It is
// cooperative: it protects the state file only against processes that also
// acquire it, which is exactly the contract the deployment documents for
// multiple workers sharing one volume.
type FileLocker struct {
	path string
}

// NewFileLocker creates a locker over the given sidecar path. The lock file
// is created on first acquisition and never removed.
func NewFileLocker(path string) *FileLocker {
	return &FileLocker{path: path}
}

// Acquire implements Locker. Contended locks are retried on a short interval
// until the context expires.
func (l *FileLocker) Acquire(ctx context.Context) (func() error, error) {
	handle, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, constants.StateFileMode)
	if err != nil {
		return nil, ewrap.Wrapf(err, "open lock file %q", l.path)
	}

	for {
		err = flockAcquire(handle)
		if err == nil {
			return func() error {
				unlockErr := flockRelease(handle)
				closeErr := handle.Close()

				if unlockErr != nil {
					return ewrap.Wrap(unlockErr, "release file lock")
				}

				if closeErr != nil {
					return ewrap.Wrap(closeErr, "close lock file")
				}

				return nil
			}, nil
		}

		if !flockContended(err) {
			closeErr := handle.Close()
			if closeErr != nil {
				return nil, ewrap.Wrap(closeErr, "close lock file after failed acquire")
			}

			return nil, ewrap.Wrapf(err, "acquire file lock %q", l.path)
		}

		select {
		case <-ctx.Done():
			closeErr := handle.Close()
			if closeErr != nil {
				return nil, ewrap.Wrap(closeErr, "close lock file after timeout")
			}

			return nil, ErrLockTimeout
		case <-time.After(lockRetryInterval):
		}
	}
}
