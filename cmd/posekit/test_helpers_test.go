package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"posekit/internal/config"
	"posekit/internal/rig"
	"posekit/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	for _, key := range []string{"POSEKIT_LIBRARY_DIR", "POSEKIT_INDEX_PATH", "POSEKIT_LOG_DIR", "POSEKIT_SCENE", "POSEKIT_LOG_LEVEL", "POSEKIT_LOG_FORMAT"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(homeDir, ".config", "posekit", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func mustRunCLI(t *testing.T, env *cliTestEnv, args ...string) string {
	t.Helper()
	out, stderr, err := runCLI(t, env, args...)
	if err != nil {
		t.Fatalf("posekit %s: %v\nstdout: %s\nstderr: %s", strings.Join(args, " "), err, out, stderr)
	}
	return out
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
library_dir = %q
index_path = %q
log_dir = %q
scene_path = %q

[library]
default_sort = %q
descending = %t

[library.structure]
Heroes = ["Ada", "Brom"]

[apply]
exclude_protected = %t
key_on_apply = %t

[logging]
level = "warn"
`,
		cfg.Paths.LibraryDir,
		cfg.Paths.IndexPath,
		cfg.Paths.LogDir,
		cfg.Paths.ScenePath,
		cfg.Library.DefaultSort,
		cfg.Library.Descending,
		cfg.Apply.ExcludeProtected,
		cfg.Apply.KeyOnApply,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func loadTestScene(t *testing.T, env *cliTestEnv) *rig.Scene {
	t.Helper()
	scene, err := rig.LoadScene(env.cfg.Paths.ScenePath)
	if err != nil {
		t.Fatalf("load scene: %v", err)
	}
	return scene
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
