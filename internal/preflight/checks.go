package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"posekit/internal/config"
	"posekit/internal/library"
	"posekit/internal/rig"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckIndex opens the catalog index and reports how many poses it holds.
func CheckIndex(ctx context.Context, cfg *config.Config) Result {
	const name = "Catalog index"

	index, err := library.OpenIndex(cfg)
	if err != nil {
		if errors.Is(err, library.ErrSchemaMismatch) {
			return Result{Name: name, Detail: "schema mismatch (delete the index and run 'posekit library reindex')"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Paths.IndexPath, err)}
	}
	defer index.Close()

	entries, err := index.List(ctx, "")
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", cfg.Paths.IndexPath, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d poses)", cfg.Paths.IndexPath, len(entries))}
}

// CheckScene verifies the scene file loads. A missing file passes because
// commands start from an empty scene.
func CheckScene(path string) Result {
	const name = "Scene file"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (not created yet)", path)}
	}
	scene, err := rig.LoadScene(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	controls, _ := scene.ListControls(false)
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d controls)", path, len(controls))}
}
