// Package store persists the counter value and guards it against concurrent
// writers and mid-write process termination.
package store

import (
	"context"

	"github.com/hyp3rd/ewrap"
)

// Sentinel errors surfaced by every Store backend. The HTTP layer maps them
// onto status codes; anything else from a backend is an internal storage
// failure.
var (
	// ErrLockTimeout reports that the exclusive section could not be entered
	// before the caller's deadline. No state was changed.
	ErrLockTimeout = ewrap.New("lock acquisition timed out")
	// ErrCorruptState reports that the persisted state exists but cannot be
	// parsed. The store refuses to serve rather than silently reset.
	ErrCorruptState = ewrap.New("persisted counter state is corrupt")
	// ErrClosed reports use of a store after Close.
	ErrClosed = ewrap.New("counter store is closed")
)

// Store is the persistence contract for the counter.
//
// Increments are serialized: after N concurrent Increment calls return, a
// Current call observes exactly N more than before. A Current call started
// after an Increment returned observes that increment.
type Store interface {
	// Current returns the persisted counter value.
	Current(ctx context.Context) (int64, error)
	// Increment atomically adds one and returns the new value. On any error
	// the persisted value is unchanged.
	Increment(ctx context.Context) (int64, error)
	// Probe confirms the backend can accept writes. It never takes the
	// counter lock.
	Probe(ctx context.Context) error
	// Close releases backend resources, including any held lock handles.
	Close() error
}
