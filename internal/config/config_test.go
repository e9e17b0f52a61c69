package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"posekit/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "posekit", "config.toml") {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}

	wantLibrary := filepath.Join(tempHome, ".local", "share", "posekit", "library")
	if cfg.Paths.LibraryDir != wantLibrary {
		t.Fatalf("unexpected library dir: got %q want %q", cfg.Paths.LibraryDir, wantLibrary)
	}
	if cfg.Paths.IndexPath != filepath.Join(wantLibrary, ".posekit.db") {
		t.Fatalf("unexpected index path: %q", cfg.Paths.IndexPath)
	}
	if cfg.Blend.Tolerance != 1e-5 {
		t.Fatalf("unexpected tolerance: %v", cfg.Blend.Tolerance)
	}
	if !cfg.Apply.KeyOnApply || cfg.Apply.ExcludeProtected {
		t.Fatalf("unexpected apply defaults: %+v", cfg.Apply)
	}
	if len(cfg.Apply.ProtectedControls) != 2 {
		t.Fatalf("unexpected protected controls: %v", cfg.Apply.ProtectedControls)
	}
	if cfg.Library.DefaultSort != config.SortName {
		t.Fatalf("unexpected sort: %q", cfg.Library.DefaultSort)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LibraryDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "posekit.toml")
	data := `
[paths]
library_dir = "` + filepath.ToSlash(filepath.Join(tempDir, "poses")) + `"

[library]
image_extensions = ["PNG", "jpg", ".png"]
default_sort = "Modified"
descending = true

[blend]
tolerance = 0.001

[logging]
format = "JSON"
component_levels = { blend = "DEBUG" }
`
	if err := os.WriteFile(configPath, []byte(data), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.IndexPath != filepath.Join(tempDir, "poses", ".posekit.db") {
		t.Fatalf("index path should follow library dir: %q", cfg.Paths.IndexPath)
	}
	if got := strings.Join(cfg.Library.ImageExtensions, ","); got != ".png,.jpg" {
		t.Fatalf("unexpected image extensions: %q", got)
	}
	if cfg.Library.DefaultSort != config.SortModified || !cfg.Library.Descending {
		t.Fatalf("unexpected sort settings: %+v", cfg.Library)
	}
	if cfg.Blend.Tolerance != 0.001 {
		t.Fatalf("unexpected tolerance: %v", cfg.Blend.Tolerance)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.ComponentLevels["blend"] != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "posekit.toml")
	if err := os.WriteFile(configPath, []byte("[logging]\nlevel = \"warn\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	envLibrary := filepath.Join(tempDir, "env-lib")
	envIndex := filepath.Join(tempDir, "index", "catalog.db")
	t.Setenv("POSEKIT_LIBRARY_DIR", envLibrary)
	t.Setenv("POSEKIT_INDEX_PATH", envIndex)
	t.Setenv("POSEKIT_LOG_LEVEL", "debug")
	t.Setenv("POSEKIT_LOG_FORMAT", "json")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.LibraryDir != envLibrary || cfg.Paths.IndexPath != envIndex {
		t.Fatalf("env paths not applied: %+v", cfg.Paths)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("env logging not applied: %+v", cfg.Logging)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"tolerance":       "[blend]\ntolerance = 0.0\n",
		"sort":            "[library]\ndefault_sort = \"size\"\n",
		"thumbnail":       "[library]\nthumbnail_format = \"bmp\"\n",
		"thumbnail ext":   "[library]\nimage_extensions = [\".tga\"]\n",
		"debounce":        "[library]\nwatch_debounce_ms = -1\n",
		"format":          "[logging]\nformat = \"xml\"\n",
		"level":           "[logging]\nlevel = \"loud\"\n",
		"component":       "[logging]\ncomponent_levels = { blend = \"loud\" }\n",
		"unknown key":     "[blend]\nspeed = 2\n",
		"empty extension": "[library]\nimage_extensions = []\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "posekit.toml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	defaults := config.Default()
	if cfg.Library.DefaultSort != defaults.Library.DefaultSort || cfg.Blend.Tolerance != defaults.Blend.Tolerance {
		t.Fatalf("sample diverges from defaults: %+v", cfg)
	}
}
