package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLibrary()
	c.normalizeApply()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.LibraryDir, err = expandPath(strings.TrimSpace(c.Paths.LibraryDir)); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.IndexPath) == "" && c.Paths.LibraryDir != "" {
		c.Paths.IndexPath = filepath.Join(c.Paths.LibraryDir, defaultIndexName)
	}
	if c.Paths.IndexPath, err = expandPath(strings.TrimSpace(c.Paths.IndexPath)); err != nil {
		return fmt.Errorf("paths.index_path: %w", err)
	}
	if c.Paths.ScenePath, err = expandPath(strings.TrimSpace(c.Paths.ScenePath)); err != nil {
		return fmt.Errorf("paths.scene_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLibrary() {
	exts := make([]string, 0, len(c.Library.ImageExtensions))
	seen := make(map[string]struct{}, len(c.Library.ImageExtensions))
	for _, ext := range c.Library.ImageExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Library.ImageExtensions = exts

	c.Library.DefaultSort = strings.ToLower(strings.TrimSpace(c.Library.DefaultSort))
	if c.Library.DefaultSort == "" {
		c.Library.DefaultSort = defaultSort
	}
	c.Library.ThumbnailFormat = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Library.ThumbnailFormat), "."))
	if c.Library.ThumbnailFormat == "" {
		c.Library.ThumbnailFormat = defaultThumbnailFormat
	}
}

func (c *Config) normalizeApply() {
	kept := c.Apply.ProtectedControls[:0]
	for _, name := range c.Apply.ProtectedControls {
		if name = strings.TrimSpace(name); name != "" {
			kept = append(kept, name)
		}
	}
	c.Apply.ProtectedControls = kept
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	for component, level := range c.Logging.ComponentLevels {
		c.Logging.ComponentLevels[component] = strings.ToLower(strings.TrimSpace(level))
	}
}
