package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains file system locations.
type Paths struct {
	LibraryDir string `toml:"library_dir" env:"POSEKIT_LIBRARY_DIR"`
	IndexPath  string `toml:"index_path" env:"POSEKIT_INDEX_PATH"`
	LogDir     string `toml:"log_dir" env:"POSEKIT_LOG_DIR"`
	ScenePath  string `toml:"scene_path" env:"POSEKIT_SCENE"`
}

// Library contains settings for the on-disk pose catalog.
type Library struct {
	ImageExtensions []string `toml:"image_extensions"`
	DefaultSort     string   `toml:"default_sort"`
	Descending      bool     `toml:"descending"`
	ThumbnailFormat string   `toml:"thumbnail_format"`
	WatchDebounceMS int      `toml:"watch_debounce_ms"`
	// Structure maps group folders to the character folders created by
	// `library init`.
	Structure map[string][]string `toml:"structure"`
}

// Apply contains defaults for writing poses back onto the rig.
type Apply struct {
	// ProtectedControls are name fragments skipped when exclusion is on.
	ProtectedControls []string `toml:"protected_controls"`
	ExcludeProtected  bool     `toml:"exclude_protected"`
	KeyOnApply        bool     `toml:"key_on_apply"`
}

// Blend contains settings for the blend engine.
type Blend struct {
	Tolerance    float64 `toml:"tolerance"`
	SelectedOnly bool    `toml:"selected_only"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format          string            `toml:"format" env:"POSEKIT_LOG_FORMAT"`
	Level           string            `toml:"level" env:"POSEKIT_LOG_LEVEL"`
	ComponentLevels map[string]string `toml:"component_levels"`
}

// Config encapsulates all configuration values for posekit.
type Config struct {
	Paths   Paths   `toml:"paths"`
	Library Library `toml:"library"`
	Apply   Apply   `toml:"apply"`
	Blend   Blend   `toml:"blend"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has environment overrides applied and every path expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		return statConfig(expanded)
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func statConfig(path string) (string, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return path, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %s is a directory", path)
	}
	return path, true, nil
}

// EnsureDirectories creates the library, log and index directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LibraryDir, c.Paths.LogDir}
	if c.Paths.IndexPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.IndexPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the annotated sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
