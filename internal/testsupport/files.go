package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"posekit/internal/pose"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WritePose writes snap to path, creating parent directories.
func WritePose(t testing.TB, path string, snap *pose.Snapshot) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := pose.WriteFile(path, snap); err != nil {
		t.Fatalf("write pose %s: %v", path, err)
	}
}

// MatrixPose builds a snapshot of matrix values keyed by control name.
func MatrixPose(t testing.TB, namespace string, values map[string]mgl64.Mat4) *pose.Snapshot {
	t.Helper()

	b := pose.NewBuilder(namespace)
	for name, m := range values {
		if err := b.Set(name, pose.MatrixValue(m)); err != nil {
			t.Fatalf("set %s: %v", name, err)
		}
	}
	return b.Build()
}
