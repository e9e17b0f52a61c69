// Package fileutil holds the small file primitives shared by the pose, scene
// and library writers.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place, so readers only ever observe the old or the new content.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return writeTemp(path, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// CopyFileVerified copies src to dst through a temp file, checking size and
// SHA256 of what was read against what was written before the rename. dst
// keeps the permission bits of src and is never left half written.
func CopyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	return writeTemp(dst, info.Mode().Perm(), func(w io.Writer) error {
		srcHash := sha256.New()
		dstHash := sha256.New()
		written, err := io.Copy(io.MultiWriter(w, dstHash), io.TeeReader(in, srcHash))
		if err != nil {
			return err
		}
		if written != info.Size() {
			return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
		}
		if !bytes.Equal(srcHash.Sum(nil), dstHash.Sum(nil)) {
			return fmt.Errorf("copy hash mismatch: %s changed during copy", src)
		}
		return nil
	})
}

// writeTemp runs fill against a hidden temp file in the directory of path and
// renames it over path once fill, Sync and Chmod have all succeeded.
func writeTemp(path string, mode os.FileMode, fill func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := fill(tmp); err != nil {
		return fail(err)
	}
	if err := tmp.Sync(); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		return fail(err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		return fail(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fail(err)
	}
	return nil
}
