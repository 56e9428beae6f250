//go:build windows

package store

import (
	"errors"
	"math"
	"os"
	"syscall"
	"unsafe"
)

var (
	modkernel32      = syscall.NewLazyDLL("kernel32.dll")
	procLockFileEx   = modkernel32.NewProc("LockFileEx")
	procCreateEventW = modkernel32.NewProc("CreateEventW")
)

const (
	// dwFlags defined for LockFileEx
	// https://msdn.microsoft.com/en-us/library/windows/desktop/aa365203(v=vs.85).aspx
	lockfileFailImmediately = 1
	lockfileExclusiveLock   = 2
	// https://learn.microsoft.com/en-us/windows/win32/debug/system-error-codes--0-499-
	errorLockViolation syscall.Errno = 33
)

func flockAcquire(f *os.File) error {
	// even though we're failing immediately, an overlapped event structure
	// is required
	ol, err := newOverlapped()
	if err != nil {
		return err
	}

	defer func() {
		_ = syscall.CloseHandle(ol.HEvent)
	}()

	return lockFileEx(
		syscall.Handle(f.Fd()),
		lockfileExclusiveLock|lockfileFailImmediately,
		0,              // reserved
		0,              // bytes low
		math.MaxUint32, // bytes high
		ol,
	)
}

func flockRelease(*os.File) error {
	// the lock is released when the handle is closed
	return nil
}

func flockContended(err error) bool {
	var errno syscall.Errno

	return errors.As(err, &errno) && errno == errorLockViolation
}

func lockFileEx(h syscall.Handle, flags, reserved, locklow, lockhigh uint32, ol *syscall.Overlapped) (err error) {
	r1, _, e1 := syscall.SyscallN(
		procLockFileEx.Addr(),
		uintptr(h),
		uintptr(flags),
		uintptr(reserved),
		uintptr(locklow),
		uintptr(lockhigh),
		uintptr(unsafe.Pointer(ol)),
	)
	if r1 == 0 {
		if e1 != 0 {
			err = error(e1)
		} else {
			err = syscall.EINVAL
		}
	}

	return err
}

// newOverlapped creates a structure used to track asynchronous
// I/O requests that have been issued.
func newOverlapped() (*syscall.Overlapped, error) {
	event, err := createEvent(nil, true, false, nil)
	if err != nil {
		return nil, err
	}

	return &syscall.Overlapped{HEvent: event}, nil
}

func createEvent(sa *syscall.SecurityAttributes, manualReset, initialState bool, name *uint16) (syscall.Handle, error) {
	var p0 uint32
	if manualReset {
		p0 = 1
	}

	var p1 uint32
	if initialState {
		p1 = 1
	}

	r0, _, e1 := syscall.SyscallN(
		procCreateEventW.Addr(),
		uintptr(unsafe.Pointer(sa)),
		uintptr(p0),
		uintptr(p1),
		uintptr(unsafe.Pointer(name)),
		0,
		0,
	)

	handle := syscall.Handle(r0)
	if handle == syscall.InvalidHandle {
		if e1 != 0 {
			return handle, error(e1)
		}

		return handle, syscall.EINVAL
	}

	return handle, nil
}
