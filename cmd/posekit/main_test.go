package main

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"posekit/internal/library"
	"posekit/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "config", "validate")
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.cfg.Paths.LibraryDir)

	target := filepath.Join(t.TempDir(), "config.toml")
	out = mustRunCLI(t, env, "config", "init", "--path", target)
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestLibraryInitAndTree(t *testing.T) {
	env := setupCLITestEnv(t)

	out := mustRunCLI(t, env, "library", "init")
	requireContains(t, out, "3 folders created")

	out = mustRunCLI(t, env, "library", "tree")
	requireContains(t, out, "Heroes/Ada")
	requireContains(t, out, "Heroes/Brom")
}

func TestCaptureBlendApplyRoundTrip(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "library", "init")

	mustRunCLI(t, env, "scene", "add", "hero:armL")
	mustRunCLI(t, env, "scene", "add", "hero:armR", "--rotate", "0,10,0")
	mustRunCLI(t, env, "scene", "select", "hero:armL")
	out := mustRunCLI(t, env, "capture", "Rest", "-C", "Heroes/Ada")
	requireContains(t, out, "Captured 2 controls")

	mustRunCLI(t, env, "scene", "add", "hero:armL", "--translate", "10,0,0")
	mustRunCLI(t, env, "scene", "add", "hero:armR", "--rotate", "0,80,0")
	mustRunCLI(t, env, "capture", "Reach", "-C", "Heroes/Ada")

	out = mustRunCLI(t, env, "apply", "Rest", "-C", "Heroes/Ada", "--key=false")
	requireContains(t, out, "Applied 2 controls in namespace hero")
	if keys := loadTestScene(t, env).Keys(); len(keys) != 0 {
		t.Fatalf("apply --key=false recorded %d keys", len(keys))
	}

	out = mustRunCLI(t, env, "blend", "Reach", "-C", "Heroes/Ada", "--factor", "0", "--factor", "50")
	requireContains(t, out, "factor  50: 2 blended")

	scene := loadTestScene(t, env)
	armL, err := scene.LocalTransform("hero:armL")
	if err != nil {
		t.Fatalf("LocalTransform: %v", err)
	}
	if math.Abs(armL[12]-5) > 1e-9 {
		t.Fatalf("armL translateX after blend = %v, want 5", armL[12])
	}

	out = mustRunCLI(t, env, "apply", "Reach", "-C", "Heroes/Ada")
	requireContains(t, out, "Applied 2 controls")
	scene = loadTestScene(t, env)
	armL, _ = scene.LocalTransform("hero:armL")
	if math.Abs(armL[12]-10) > 1e-9 {
		t.Fatalf("armL translateX after apply = %v, want 10", armL[12])
	}
	if keys := scene.Keys(); len(keys) != 18 {
		t.Fatalf("apply recorded %d keys, want 18 (9 channels x 2 controls)", len(keys))
	}
}

func TestApplyExcludeProtected(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "library", "init")
	mustRunCLI(t, env, "scene", "add", "MainControl", "--translate", "1,2,3")
	mustRunCLI(t, env, "scene", "add", "armL", "--translate", "1,0,0")
	mustRunCLI(t, env, "capture", "Start", "-C", "Heroes/Ada")

	mustRunCLI(t, env, "scene", "add", "MainControl")
	mustRunCLI(t, env, "scene", "add", "armL")
	out := mustRunCLI(t, env, "apply", "Start", "-C", "Heroes/Ada", "--exclude-protected", "--key=false")
	requireContains(t, out, "Applied 1 controls")

	scene := loadTestScene(t, env)
	mainCtl, _ := scene.LocalTransform("MainControl")
	if mainCtl[12] != 0 {
		t.Fatalf("protected control was written: %v", mainCtl)
	}
}

func TestCaptureThumbnail(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "library", "init")
	mustRunCLI(t, env, "scene", "add", "armL")

	out := mustRunCLI(t, env, "capture", "Wave", "-C", "Heroes/Ada", "--thumbnail")
	requireContains(t, out, "Thumbnail written")
	thumb := filepath.Join(env.cfg.Paths.LibraryDir, "Heroes", "Ada", "Wave.png")
	if info, err := os.Stat(thumb); err != nil || info.Size() == 0 {
		t.Fatalf("thumbnail missing: %v", err)
	}

	out = mustRunCLI(t, env, "library", "info", "Heroes/Ada", "Wave")
	requireContains(t, out, "Wave.png")
}

func TestCaptureEmptySceneFails(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "library", "init")

	_, _, err := runCLI(t, env, "capture", "Nothing", "-C", "Heroes/Ada")
	if err == nil || !strings.Contains(err.Error(), "no controls") {
		t.Fatalf("expected empty selection error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.LibraryDir, "Heroes", "Ada", "Nothing.pose")); !os.IsNotExist(err) {
		t.Fatalf("pose file written for empty capture: %v", err)
	}
}

func TestLibraryMaintenanceCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "library", "init")
	mustRunCLI(t, env, "scene", "add", "armL")
	mustRunCLI(t, env, "capture", "Walk2", "-C", "Heroes/Ada")
	mustRunCLI(t, env, "capture", "Walk10", "-C", "Heroes/Ada")

	out := mustRunCLI(t, env, "library", "list", "Heroes/Ada", "--json")
	var views []poseView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode list json: %v\n%s", err, out)
	}
	if len(views) != 2 || views[0].Name != "Walk2" || views[1].Name != "Walk10" {
		t.Fatalf("list order = %+v", views)
	}

	mustRunCLI(t, env, "library", "favourite", "Heroes/Ada", "Walk10")
	out = mustRunCLI(t, env, "library", "list", "--favourites")
	requireContains(t, out, "Walk10")
	if strings.Contains(out, "Walk2") {
		t.Fatalf("non-favourite listed: %s", out)
	}

	mustRunCLI(t, env, "library", "rename", "Heroes/Ada", "Walk2", "HandWave")
	mustRunCLI(t, env, "library", "copy", "Heroes/Ada", "HandWave", "Heroes/Brom")
	out = mustRunCLI(t, env, "library", "list", "Heroes/Brom")
	requireContains(t, out, "HandWave")
	requireContains(t, out, "Hand")

	mustRunCLI(t, env, "library", "delete", "Heroes/Ada", "HandWave")
	_, _, err := runCLI(t, env, "library", "info", "Heroes/Ada", "HandWave")
	if !errors.Is(err, library.ErrPoseNotFound) {
		t.Fatalf("expected ErrPoseNotFound after delete, got %v", err)
	}

	out = mustRunCLI(t, env, "library", "reindex")
	requireContains(t, out, "Indexed 2 poses")
}

func TestBlendRequiresFactor(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "blend", "Reach", "-C", "Heroes/Ada")
	if err == nil || !strings.Contains(err.Error(), "--factor") {
		t.Fatalf("expected factor error, got %v", err)
	}
}

func TestDoctor(t *testing.T) {
	env := setupCLITestEnv(t)
	out := mustRunCLI(t, env, "doctor")
	requireContains(t, out, "Catalog index")
	if strings.Contains(out, "FAIL") {
		t.Fatalf("doctor reported failures:\n%s", out)
	}
}

func TestLibraryClean(t *testing.T) {
	env := setupCLITestEnv(t)
	mustRunCLI(t, env, "library", "init")
	orphan := filepath.Join(env.cfg.Paths.LibraryDir, "Heroes", "Ada", "gone.png")
	if err := os.WriteFile(orphan, []byte("png"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}

	out := mustRunCLI(t, env, "library", "clean", "--dry-run")
	requireContains(t, out, "Would remove 1 files")
	if _, err := os.Stat(orphan); err != nil {
		t.Fatalf("dry run removed orphan: %v", err)
	}

	out = mustRunCLI(t, env, "library", "clean")
	requireContains(t, out, "Removed orphaned thumbnail")
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphan still present: %v", err)
	}
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	content := `{"ts":"2026-03-01T10:00:00Z","level":"info","msg":"pose saved","component":"library"}
{"ts":"2026-03-01T10:00:01Z","level":"warn","msg":"control skipped","component":"blend","control":"armL"}
`
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "posekit.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out := mustRunCLI(t, env, "logs", "--level", "warn")
	requireContains(t, out, "WARN  blend control skipped control=armL")
	if strings.Contains(out, "pose saved") {
		t.Fatalf("info entry not filtered:\n%s", out)
	}

	out = mustRunCLI(t, env, "logs", "-n", "1", "--raw")
	requireContains(t, out, `"msg":"control skipped"`)
}

func TestApplyUsesConfigDefaults(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithExcludeProtected(), testsupport.WithoutKeying())
	mustRunCLI(t, env, "library", "init")
	mustRunCLI(t, env, "scene", "add", "MainControl", "--translate", "1,2,3")
	mustRunCLI(t, env, "scene", "add", "armL", "--translate", "1,0,0")
	mustRunCLI(t, env, "capture", "Start", "-C", "Heroes/Ada")
	mustRunCLI(t, env, "scene", "add", "MainControl")
	mustRunCLI(t, env, "scene", "add", "armL")

	out := mustRunCLI(t, env, "apply", "Start", "-C", "Heroes/Ada")
	requireContains(t, out, "Applied 1 controls")

	scene := loadTestScene(t, env)
	if keys := scene.Keys(); len(keys) != 0 {
		t.Fatalf("expected no keyframes, got %d", len(keys))
	}
	mainCtl, _ := scene.LocalTransform("MainControl")
	if mainCtl[12] != 0 {
		t.Fatalf("protected control was written: %v", mainCtl)
	}
}

func TestListUsesConfiguredSort(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithSort("name", true))
	mustRunCLI(t, env, "library", "init")
	mustRunCLI(t, env, "scene", "add", "armL")
	mustRunCLI(t, env, "capture", "Alpha", "-C", "Heroes/Ada")
	mustRunCLI(t, env, "capture", "Beta", "-C", "Heroes/Ada")

	out := mustRunCLI(t, env, "library", "list", "Heroes/Ada", "--json")
	var views []poseView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode list json: %v\n%s", err, out)
	}
	if len(views) != 2 || views[0].Name != "Beta" {
		t.Fatalf("expected descending name order, got %+v", views)
	}
}
