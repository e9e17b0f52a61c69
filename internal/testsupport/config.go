package testsupport

import (
	"path/filepath"
	"testing"

	"posekit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	cfg *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LibraryDir = filepath.Join(base, "library")
	cfgVal.Paths.IndexPath = filepath.Join(base, "index", "catalog.db")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ScenePath = filepath.Join(base, "scene.toml")

	builder := &configBuilder{cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithExcludeProtected turns on protected-control exclusion.
func WithExcludeProtected() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Apply.ExcludeProtected = true
	}
}

// WithoutKeying disables keyframes on apply.
func WithoutKeying() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Apply.KeyOnApply = false
	}
}

// WithSort sets the default listing order.
func WithSort(key string, descending bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Library.DefaultSort = key
		b.cfg.Library.Descending = descending
	}
}
