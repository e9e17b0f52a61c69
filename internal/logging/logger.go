package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"posekit/internal/config"
)

// LogFileName is the file written inside the configured log directory.
const LogFileName = "posekit.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// Console receives human-facing output; nil means stderr.
	Console io.Writer
	// FilePath, when set, additionally receives every record as JSON.
	FilePath string
	// ComponentLevels raises or lowers the level per component name.
	ComponentLevels map[string]string
	Development     bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	overrides := make(map[string]slog.Level, len(opts.ComponentLevels))
	for component, raw := range opts.ComponentLevels {
		lvl, err := parseLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("component %s: %w", component, err)
		}
		overrides[strings.TrimSpace(component)] = lvl
	}

	// Handlers accept everything the most verbose override needs; the
	// component filter below enforces the effective level per record.
	floor := level
	for _, lvl := range overrides {
		floor = min(floor, lvl)
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(floor)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	addSource := opts.Development || level <= slog.LevelDebug

	var handlers []slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		handlers = append(handlers, newPrettyHandler(console, levelVar, addSource))
	case "json":
		handlers = append(handlers, newJSONHandler(console, levelVar, addSource))
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	if path := strings.TrimSpace(opts.FilePath); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, newJSONHandler(file, levelVar, addSource))
	}

	return slog.New(newComponentLevelHandler(newFanoutHandler(handlers...), level, overrides)), nil
}

// NewFromConfig creates a logger from the [logging] and [paths] sections.
// Console output goes to console, or stderr when it is nil.
func NewFromConfig(cfg *config.Config, console io.Writer) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console", Console: console})
	}
	opts := Options{
		Console:         console,
		Level:           cfg.Logging.Level,
		Format:          cfg.Logging.Format,
		ComponentLevels: cfg.Logging.ComponentLevels,
	}
	if cfg.Paths.LogDir != "" {
		opts.FilePath = filepath.Join(cfg.Paths.LogDir, LogFileName)
	}
	return New(opts)
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: unsupported value %q", level)
	}
}

func openLogFile(path string) (io.Writer, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
