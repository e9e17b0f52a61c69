package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateBlend(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		return errors.New("paths.library_dir must be set")
	}
	if strings.TrimSpace(c.Paths.IndexPath) == "" {
		return errors.New("paths.index_path must be set")
	}
	return nil
}

func (c *Config) validateLibrary() error {
	if len(c.Library.ImageExtensions) == 0 {
		return errors.New("library.image_extensions must list at least one extension")
	}
	switch c.Library.DefaultSort {
	case SortName, SortCreated, SortModified:
	default:
		return fmt.Errorf("library.default_sort must be one of %s, %s, %s", SortName, SortCreated, SortModified)
	}
	switch c.Library.ThumbnailFormat {
	case "png", "jpg", "jpeg":
	default:
		return errors.New("library.thumbnail_format must be png or jpg")
	}
	if !slices.Contains(c.Library.ImageExtensions, "."+c.Library.ThumbnailFormat) {
		return fmt.Errorf("library.thumbnail_format %q is not listed in library.image_extensions", c.Library.ThumbnailFormat)
	}
	if c.Library.WatchDebounceMS < 0 {
		return errors.New("library.watch_debounce_ms must be non-negative")
	}
	for group, characters := range c.Library.Structure {
		if !isFolderName(group) {
			return fmt.Errorf("library.structure: invalid group name %q", group)
		}
		for _, character := range characters {
			if !isFolderName(character) {
				return fmt.Errorf("library.structure.%s: invalid character name %q", group, character)
			}
		}
	}
	return nil
}

func isFolderName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\:`)
}

func (c *Config) validateBlend() error {
	if c.Blend.Tolerance <= 0 || c.Blend.Tolerance >= 1 {
		return errors.New("blend.tolerance must be between 0 and 1 (exclusive)")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return errors.New("logging.format must be console or json")
	}
	if !slices.Contains(validLogLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of %s", strings.Join(validLogLevels, ", "))
	}
	for component, level := range c.Logging.ComponentLevels {
		if !slices.Contains(validLogLevels, level) {
			return fmt.Errorf("logging.component_levels.%s must be one of %s", component, strings.Join(validLogLevels, ", "))
		}
	}
	return nil
}
