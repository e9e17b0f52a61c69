package testsupport

import (
	"testing"

	"posekit/internal/config"
	"posekit/internal/library"
)

// MustOpenIndex opens the catalog index for tests and registers cleanup.
func MustOpenIndex(t testing.TB, cfg *config.Config) *library.Index {
	t.Helper()

	index, err := library.OpenIndex(cfg)
	if err != nil {
		t.Fatalf("library.OpenIndex: %v", err)
	}
	t.Cleanup(func() {
		index.Close()
	})
	return index
}
