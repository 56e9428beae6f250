//go:build !windows

package store

import (
	"errors"
	"io"
	"os"
	"syscall"
)

// fcntl POSIX locks for the most consistent behavior across platforms, and
// some compatibility over NFS.

func flockAcquire(f *os.File) error {
	flock := &syscall.Flock_t{
		Type:   syscall.F_WRLCK,
		Whence: int16(io.SeekStart),
		Start:  0,
		Len:    0,
	}

	return syscall.FcntlFlock(f.Fd(), syscall.F_SETLK, flock)
}

func flockRelease(f *os.File) error {
	flock := &syscall.Flock_t{
		Type:   syscall.F_UNLCK,
		Whence: int16(io.SeekStart),
		Start:  0,
		Len:    0,
	}

	return syscall.FcntlFlock(f.Fd(), syscall.F_SETLK, flock)
}

// flockContended reports whether err is the fcntl way of saying another
// process holds the lock. POSIX allows either errno for F_SETLK conflicts.
func flockContended(err error) bool {
	return errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EACCES)
}
