// Package constants provides common constants used across the countd project.
package constants

import "time"

const (
	// DefaultTimeout is the default timeout for requests.
	DefaultTimeout = 5 * time.Second
	// DefaultShutdownTimeout is the default timeout for shutdown operations.
	DefaultShutdownTimeout = 30 * time.Second
	// DefaultLockTimeout bounds how long an increment waits for the exclusive section.
	DefaultLockTimeout = 2 * time.Second
	// DefaultProbeInterval is how often storage writability is re-checked.
	DefaultProbeInterval = 5 * time.Second
	// StateFileMode is the permission set for the persisted counter file.
	StateFileMode = 0o644
	// StateDirMode is the permission set used when creating the state directory.
	StateDirMode = 0o755
)
