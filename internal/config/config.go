package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"imgconform/internal/domain"
	"imgconform/internal/locator"
)

// Config holds all configuration for the harness
type Config struct {
	// Harness layout
	Root      string `koanf:"root" yaml:"root"`
	CasesDir  string `koanf:"cases_dir" yaml:"cases_dir"`
	AssetsDir string `koanf:"assets_dir" yaml:"assets_dir"`
	Locator   string `koanf:"locator" yaml:"locator"`

	Service ServiceConfig `koanf:"service" yaml:"service"`
	Run     RunConfig     `koanf:"run" yaml:"run"`
	Output  OutputConfig  `koanf:"output" yaml:"output"`
	History HistoryConfig `koanf:"history" yaml:"history"`
	Metrics MetricsConfig `koanf:"metrics" yaml:"metrics"`
	Log     LogConfig     `koanf:"log" yaml:"log"`

	// Command flags
	Flags Flags `koanf:"-" yaml:"-"`
}

// ServiceConfig describes how to reach the service under test
type ServiceConfig struct {
	Transport      string        `koanf:"transport" yaml:"transport"`       // stdio|grpc
	ProjectDir     string        `koanf:"project_dir" yaml:"project_dir"`   // relative to root
	OutputDir      string        `koanf:"output_dir" yaml:"output_dir"`     // build output subdir
	Name           string        `koanf:"name" yaml:"name"`                 // entry under the output dir
	Runner         string        `koanf:"runner" yaml:"runner"`             // optional launcher for the service
	ProviderDir    string        `koanf:"provider_dir" yaml:"provider_dir"` // injected, never interpreted
	Address        string        `koanf:"address" yaml:"address"`           // grpc: dial instead of launching
	StartupTimeout time.Duration `koanf:"startup_timeout" yaml:"startup_timeout"`
	ShutdownGrace  time.Duration `koanf:"shutdown_grace" yaml:"shutdown_grace"`
}

// RunConfig holds run policies
type RunConfig struct {
	FailFast     bool `koanf:"fail_fast" yaml:"fail_fast"`
	AllowEmpty   bool `koanf:"allow_empty" yaml:"allow_empty"`
	UpdateGolden bool `koanf:"update_golden" yaml:"update_golden"`
}

// OutputConfig locates the last-run JSON file
type OutputConfig struct {
	Dir  string `koanf:"dir" yaml:"dir"`
	File string `koanf:"file" yaml:"file"`
}

// HistoryConfig selects the run history database
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Driver  string `koanf:"driver" yaml:"driver"` // sqlite|mysql
	DSN     string `koanf:"dsn" yaml:"dsn"`
}

// MetricsConfig controls the prometheus exports
type MetricsConfig struct {
	Textfile string `koanf:"textfile" yaml:"textfile"` // written after every run
	Listen   string `koanf:"listen" yaml:"listen"`     // serves /metrics while watching
}

// LogConfig controls diagnostic logging
type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
	JSON  bool   `koanf:"json" yaml:"json"`
}

// Flags holds command-line flags that are not persisted config
type Flags struct {
	NameFilter   string
	OnlyFailed   bool
	Progress     bool
	Watch        bool
	LoadOnly     bool
	OpenFailures bool
	Details      bool
	Stats        bool
	Limit        int
}

// New creates a new Config with defaults
func New() *Config {
	return &Config{
		Root:      DefaultRoot,
		CasesDir:  DefaultCasesDir,
		AssetsDir: DefaultAssetsDir,
		Locator:   DefaultLocator,
		Service: ServiceConfig{
			Transport:      DefaultTransport,
			ProjectDir:     DefaultProjectDir,
			OutputDir:      DefaultOutputDir,
			Name:           DefaultServiceName,
			StartupTimeout: DefaultStartupTimeout,
			ShutdownGrace:  DefaultShutdownGrace,
		},
		Output: OutputConfig{
			Dir:  DefaultOutputJSONDir,
			File: DefaultOutputJSONFile,
		},
		History: HistoryConfig{
			Enabled: true,
			Driver:  DefaultHistoryDriver,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

// Load builds the config from defaults, root/.env, a YAML file,
// IMGCONFORM_* variables and BP_OUTPUT_DIR, in that order.
// An empty configFile means root/imgconform.yaml when it exists.
func Load(configFile, root string) (*Config, error) {
	cfg := New()
	if root != "" {
		cfg.Root = root
	}

	// .env file might not exist, that's okay - use environment variables
	_ = godotenv.Load(filepath.Join(cfg.Root, ".env"))

	k := koanf.New(".")

	path := configFile
	if path == "" {
		path = filepath.Join(cfg.Root, DefaultConfigFile)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if configFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	envKey := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, "__", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// A root given in the file is relative to the file
	if k.Exists("root") && !filepath.IsAbs(cfg.Root) {
		cfg.Root = filepath.Join(filepath.Dir(path), cfg.Root)
	}

	if dir := os.Getenv(EnvOutputDir); dir != "" {
		cfg.Service.OutputDir = dir
	}

	if abs, err := filepath.Abs(cfg.Root); err == nil {
		cfg.Root = abs
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated settings
func (c *Config) Validate() error {
	if _, err := locator.ParseScheme(c.Locator); err != nil {
		return err
	}
	switch c.Service.Transport {
	case "stdio", "grpc":
	default:
		return fmt.Errorf("unknown service transport %q (want stdio or grpc)", c.Service.Transport)
	}
	switch c.History.Driver {
	case "sqlite", "mysql":
	default:
		return fmt.Errorf("unknown history driver %q (want sqlite or mysql)", c.History.Driver)
	}
	if c.Service.StartupTimeout <= 0 {
		return fmt.Errorf("service.startup_timeout must be positive")
	}
	return nil
}

// resolve makes p absolute against the root
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// GetCasesPath returns the descriptor directory
func (c *Config) GetCasesPath() string {
	return c.resolve(c.CasesDir)
}

// GetAssetsPath returns the absolute assets root
func (c *Config) GetAssetsPath() string {
	p := c.resolve(c.AssetsDir)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetServicePath returns the service location: project dir, output subdir, service name.
// An absolute output dir replaces the project dir.
func (c *Config) GetServicePath() string {
	if filepath.IsAbs(c.Service.OutputDir) {
		return filepath.Join(c.Service.OutputDir, c.Service.Name)
	}
	return filepath.Join(c.resolve(c.Service.ProjectDir), c.Service.OutputDir, c.Service.Name)
}

// GetProviderPath returns the absolute provider directory, or "" when unset
func (c *Config) GetProviderPath() string {
	if c.Service.ProviderDir == "" {
		return ""
	}
	p := c.resolve(c.Service.ProviderDir)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetOutputPath returns the full path to the last-run JSON file.
// Resolves to an absolute path so run and failures always read/write the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := filepath.Join(c.resolve(c.Output.Dir), c.Output.File)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetHistoryDSN returns the configured DSN, defaulting sqlite to a file in the storage dir
func (c *Config) GetHistoryDSN() string {
	if c.History.DSN != "" || c.History.Driver != "sqlite" {
		return c.History.DSN
	}
	return filepath.Join(c.resolve(c.Output.Dir), DefaultHistoryFile)
}

// GetMetricsTextfile returns the absolute textfile path, or "" when disabled
func (c *Config) GetMetricsTextfile() string {
	return c.resolve(c.Metrics.Textfile)
}

// GetLocatorScheme returns the parsed locator scheme
func (c *Config) GetLocatorScheme() locator.Scheme {
	s, err := locator.ParseScheme(c.Locator)
	if err != nil {
		return locator.File
	}
	return s
}

// EmptyRunPolicy returns the outcome policy for runs that select no cases
func (c *Config) EmptyRunPolicy() domain.EmptyRunPolicy {
	if c.Run.AllowEmpty {
		return domain.EmptyRunPasses
	}
	return domain.EmptyRunFails
}
