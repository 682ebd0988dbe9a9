package config

import "time"

const (
	// DefaultRoot is the harness root holding cases and assets
	DefaultRoot = "."
	// DefaultCasesDir is the descriptor directory, relative to the root
	DefaultCasesDir = "cases"
	// DefaultAssetsDir is the source image directory, relative to the root
	DefaultAssetsDir = "test_images"
	// DefaultLocator is the locator scheme used for the file parameter
	DefaultLocator = "file"
	// DefaultConfigFile is looked up in the root when no --config is given
	DefaultConfigFile = "imgconform.yaml"

	// DefaultTransport is the service binding
	DefaultTransport = "stdio"
	// DefaultProjectDir is where build output lives, relative to the root
	DefaultProjectDir = ".."
	// DefaultOutputDir is the build output subdirectory
	DefaultOutputDir = "build"
	// DefaultServiceName is the service entry under the output directory
	DefaultServiceName = "ImageAlter"
	// DefaultStartupTimeout bounds session acquisition
	DefaultStartupTimeout = 10 * time.Second
	// DefaultShutdownGrace is how long Close waits before killing the service
	DefaultShutdownGrace = 5 * time.Second

	// DefaultOutputJSONFile is the default last-run file name
	DefaultOutputJSONFile = "last-run.json"
	// DefaultOutputJSONDir is the default storage directory
	DefaultOutputJSONDir = "storage"

	// DefaultHistoryDriver is the database/sql driver for run history
	DefaultHistoryDriver = "sqlite"
	// DefaultHistoryFile is the sqlite database under the storage directory
	DefaultHistoryFile = "history.db"

	// DefaultLogLevel is the slog level
	DefaultLogLevel = "info"

	// EnvPrefix prefixes every config environment variable
	EnvPrefix = "IMGCONFORM_"
	// EnvOutputDir is the legacy variable selecting the output subdirectory
	EnvOutputDir = "BP_OUTPUT_DIR"
)
