package config

const (
	defaultConfigPath      = "~/.config/posekit/config.toml"
	projectConfigName      = "posekit.toml"
	defaultLibraryDir      = "~/.local/share/posekit/library"
	defaultLogDir          = "~/.local/share/posekit/logs"
	defaultIndexName       = ".posekit.db"
	defaultSort            = SortName
	defaultThumbnailFormat = "png"
	defaultWatchDebounceMS = 500
	defaultBlendTolerance  = 1e-5
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Sort keys accepted by library.default_sort.
const (
	SortName     = "name"
	SortCreated  = "created"
	SortModified = "modified"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		Library: Library{
			ImageExtensions: []string{".tga", ".jpg", ".jpeg", ".gif", ".png"},
			DefaultSort:     defaultSort,
			ThumbnailFormat: defaultThumbnailFormat,
			WatchDebounceMS: defaultWatchDebounceMS,
		},
		Apply: Apply{
			ProtectedControls: []string{"RootControl", "MainControl"},
			KeyOnApply:        true,
		},
		Blend: Blend{
			Tolerance: defaultBlendTolerance,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
