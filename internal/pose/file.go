package pose

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"posekit/internal/fileutil"
)

// LockFileName is the advisory lock taken in a pose directory while files in
// it are read or written.
const LockFileName = ".posekit.lock"

// WriteFile validates and encodes s, then atomically replaces path. A
// validation failure leaves the filesystem untouched.
func WriteFile(path string, s *Snapshot) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return writeLocked(path, data)
}

// WriteMapping validates an arbitrary decoded mapping and writes it in the
// canonical encoding. Malformed input produces no file.
func WriteMapping(path string, raw any) (*Snapshot, error) {
	snap, err := FromMapping(raw)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(path, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// ReadFile loads and validates a pose file.
func ReadFile(path string) (*Snapshot, error) {
	lock := flock.New(filepath.Join(filepath.Dir(path), LockFileName))
	if err := lock.RLock(); err != nil {
		return nil, Wrap(ErrIO, path, "acquire read lock", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Wrap(ErrIO, path, "read", err)
	}
	snap, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

func writeLocked(path string, data []byte) error {
	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err != nil {
		return Wrap(ErrIO, dir, "stat pose directory", err)
	} else if !info.IsDir() {
		return Wrap(ErrIO, dir, "pose directory is not a directory", nil)
	}

	lock := flock.New(filepath.Join(dir, LockFileName))
	if err := lock.Lock(); err != nil {
		return Wrap(ErrIO, path, "acquire write lock", err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := fileutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return Wrap(ErrIO, path, "write", err)
	}
	return nil
}
