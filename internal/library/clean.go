package library

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"posekit/internal/logging"
	"posekit/internal/pose"
)

// DefaultTempMaxAge is how old an abandoned write must be before Clean
// removes it.
const DefaultTempMaxAge = time.Hour

// CleanOptions controls Clean.
type CleanOptions struct {
	// TempMaxAge is the minimum age of a leftover `.*.tmp` file.
	TempMaxAge time.Duration
	// DryRun reports what would be removed without touching the disk.
	DryRun bool
}

// CleanResult lists the files Clean removed (or would remove).
type CleanResult struct {
	Orphans   []string
	TempFiles []string
	Errors    []CleanupError
}

// Removed reports the total number of files cleaned.
func (r CleanResult) Removed() int { return len(r.Orphans) + len(r.TempFiles) }

// CleanupError pairs a path with the error that stopped its removal.
type CleanupError struct {
	Path  string
	Error error
}

// Clean removes thumbnails whose pose no longer exists and temporary files
// left behind by interrupted writes. Failures are collected per file rather
// than aborting the sweep.
func (c *Catalog) Clean(ctx context.Context, opts CleanOptions) (CleanResult, error) {
	var result CleanResult
	if opts.TempMaxAge <= 0 {
		opts.TempMaxAge = DefaultTempMaxAge
	}
	cutoff := time.Now().Add(-opts.TempMaxAge)

	groups, err := c.Tree()
	if err != nil {
		return result, err
	}
	for _, group := range groups {
		for _, character := range group.Characters {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			dir := filepath.Join(c.root, group.Name, character)
			c.cleanDir(dir, cutoff, opts.DryRun, &result)
		}
	}
	return result, nil
}

func (c *Catalog) cleanDir(dir string, cutoff time.Time, dryRun bool, result *CleanResult) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(dir, name)

		switch {
		case isTempFile(name):
			info, err := entry.Info()
			if err != nil {
				result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if c.removeForClean(path, "stale temporary file", dryRun, result) {
				result.TempFiles = append(result.TempFiles, path)
			}
		case c.isImageFile(name):
			posePath := strings.TrimSuffix(path, filepath.Ext(path)) + pose.FileExtension
			if _, err := os.Stat(posePath); !errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if c.removeForClean(path, "orphaned thumbnail", dryRun, result) {
				result.Orphans = append(result.Orphans, path)
			}
		}
	}
}

func (c *Catalog) removeForClean(path, kind string, dryRun bool, result *CleanResult) bool {
	if dryRun {
		return true
	}
	if err := os.Remove(path); err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
		logging.WarnWithContext(c.logger, "failed to remove "+kind, "library_cleanup_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check library_dir permissions"),
			logging.String(logging.FieldImpact, "disk space not reclaimed"),
		)
		return false
	}
	c.logger.Info("removed "+kind,
		logging.String("path", path),
		logging.String(logging.FieldEventType, "library_cleanup"),
	)
	return true
}

func isTempFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}

func (c *Catalog) isImageFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	return slices.Contains(c.extensions, strings.ToLower(filepath.Ext(name)))
}
