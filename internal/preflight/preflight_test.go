package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"posekit/internal/rig"
	"posekit/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestRunAll_FreshConfigPasses(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	results := RunAll(context.Background(), cfg)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if Failed(results) {
		t.Fatalf("fresh config failed preflight: %+v", results)
	}
	if !strings.Contains(results[4].Detail, "not created yet") {
		t.Fatalf("scene detail = %q", results[4].Detail)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %+v", results)
	}
}

func TestCheckScene_Broken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	if err := os.WriteFile(path, []byte("nodes = 3"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckScene(path); result.Passed {
		t.Fatalf("expected failure for broken scene, got %q", result.Detail)
	}
}

func TestCheckScene_CountsControls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.toml")
	scene := testsupport.NewScene(t, "", testsupport.Control{Name: "armL"}, testsupport.Control{Name: "armR"})
	if err := rig.SaveScene(path, scene); err != nil {
		t.Fatal(err)
	}
	result := CheckScene(path)
	if !result.Passed || !strings.Contains(result.Detail, "2 controls") {
		t.Fatalf("unexpected result: %+v", result)
	}
}
