package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hyp3rd/ewrap"

	"github.com/hyp3rd/countd/internal/constants"
)

// counterState is the on-disk record. There is deliberately no schema
// version field; the file predates this implementation and operators reset
// it by deleting the file.
type counterState struct {
	Count int64 `json:"count"`
}

const tempPattern = ".tmp-"

// readState parses the persisted counter. A missing file reads as zero.
// An unreadable file is an I/O failure; an unparseable or negative record is
// ErrCorruptState.
func readState(path string) (int64, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}

		return 0, ewrap.Wrapf(err, "read state file %q", path)
	}

	var state counterState

	err = json.Unmarshal(data, &state)
	if err != nil {
		return 0, ErrCorruptState
	}

	if state.Count < 0 {
		return 0, ErrCorruptState
	}

	return state.Count, nil
}

// writeState persists the counter with the temp+rename protocol: the new
// record is written and synced to a temporary file in the same directory,
// then renamed onto the target in a single filesystem operation. A crash at
// any point leaves either the old complete file or the new complete file.
func writeState(path string, count int64) error {
	data, err := json.Marshal(counterState{Count: count})
	if err != nil {
		return ewrap.Wrap(err, "encode state")
	}

	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+tempPattern+"*")
	if err != nil {
		return ewrap.Wrapf(err, "create temp file in %q", dir)
	}

	err = commitTemp(tmp, data)
	if err != nil {
		// The previous state stays authoritative; the stray temp file is
		// swept on the next write or startup.
		_ = os.Remove(tmp.Name())

		return err
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return ewrap.Wrapf(err, "rename %q onto %q", tmp.Name(), path)
	}

	syncDir(dir)

	return nil
}

func commitTemp(tmp *os.File, data []byte) error {
	_, err := tmp.Write(data)
	if err != nil {
		_ = tmp.Close()

		return ewrap.Wrap(err, "write temp state")
	}

	err = tmp.Sync()
	if err != nil {
		_ = tmp.Close()

		return ewrap.Wrap(err, "sync temp state")
	}

	err = tmp.Chmod(constants.StateFileMode)
	if err != nil {
		_ = tmp.Close()

		return ewrap.Wrap(err, "chmod temp state")
	}

	err = tmp.Close()
	if err != nil {
		return ewrap.Wrap(err, "close temp state")
	}

	return nil
}

// syncDir makes the rename durable. Directory fsync is best-effort: it is
// not supported on every platform and the rename itself is already atomic.
func syncDir(dir string) {
	handle, err := os.Open(filepath.Clean(dir))
	if err != nil {
		return
	}

	_ = handle.Sync()
	_ = handle.Close()
}

// sweepTemp removes temp files left behind by a crash between write and
// rename.
func sweepTemp(path string) {
	matches, err := filepath.Glob(path + tempPattern + "*")
	if err != nil {
		return
	}

	for _, stale := range matches {
		_ = os.Remove(stale)
	}
}
