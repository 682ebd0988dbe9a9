package cli

import (
	"imgconform/internal/config"
)

// Flags holds command-line flags
type Flags struct {
	// Persistent
	ConfigFile string
	Root       string
	Verbose    bool
	LogJSON    bool

	// run
	OutputDir    string
	NameFilter   string
	Locator      string
	Transport    string
	FailFast     bool
	OnlyFailed   bool
	UpdateGolden bool
	AllowEmpty   bool
	Progress     bool
	Watch        bool
	LoadOnly     bool
	OpenFailures bool

	// list
	Details bool

	// failures
	Stats bool

	// history
	Limit int
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		NameFilter:   f.NameFilter,
		OnlyFailed:   f.OnlyFailed,
		Progress:     f.Progress,
		Watch:        f.Watch,
		LoadOnly:     f.LoadOnly,
		OpenFailures: f.OpenFailures,
		Details:      f.Details,
		Stats:        f.Stats,
		Limit:        f.Limit,
	}
}

// ApplyOverrides copies flags that override persisted settings into cfg.
// Only flags that were set on the command line win over the config file.
func (f *Flags) ApplyOverrides(cfg *config.Config, changed func(name string) bool) error {
	if changed("outputdir") {
		cfg.Service.OutputDir = f.OutputDir
	}
	if changed("locator") {
		cfg.Locator = f.Locator
	}
	if changed("transport") {
		cfg.Service.Transport = f.Transport
	}
	if changed("fail-fast") {
		cfg.Run.FailFast = f.FailFast
	}
	if changed("update-golden") {
		cfg.Run.UpdateGolden = f.UpdateGolden
	}
	if changed("allow-empty") {
		cfg.Run.AllowEmpty = f.AllowEmpty
	}
	return cfg.Validate()
}
