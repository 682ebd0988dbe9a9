package service

import (
	"log/slog"
	"time"

	"google.golang.org/grpc"

	"imgconform/internal/config"
	"imgconform/internal/logging"
)

// Transport names
const (
	TransportStdio = "stdio"
	TransportGRPC  = "grpc"
)

// Options describes one service session
type Options struct {
	Transport      string
	ServicePath    string   // Executable (or runner argument) of the service
	Runner         string   // Optional launcher executed with ServicePath as first argument
	Args           []string // Extra arguments placed before the harness-provided ones
	Env            []string // Extra environment entries for the service process
	ProviderDir    string   // Passed as --provider-dir when set; never interpreted
	Address        string   // grpc: dial this address instead of launching the service
	StartupTimeout time.Duration
	ShutdownGrace  time.Duration
	DialOptions    []grpc.DialOption
	Logger         *slog.Logger
}

// OptionsFromConfig maps harness configuration to session options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Transport:      cfg.Service.Transport,
		ServicePath:    cfg.GetServicePath(),
		Runner:         cfg.Service.Runner,
		ProviderDir:    cfg.GetProviderPath(),
		Address:        cfg.Service.Address,
		StartupTimeout: cfg.Service.StartupTimeout,
		ShutdownGrace:  cfg.Service.ShutdownGrace,
		Logger:         logging.L(),
	}
}

func (o Options) withDefaults() Options {
	if o.Transport == "" {
		o.Transport = TransportStdio
	}
	if o.StartupTimeout <= 0 {
		o.StartupTimeout = config.DefaultStartupTimeout
	}
	if o.ShutdownGrace <= 0 {
		o.ShutdownGrace = config.DefaultShutdownGrace
	}
	if o.Logger == nil {
		o.Logger = logging.L()
	}
	return o
}

// name identifies the service in errors and logs
func (o Options) name() string {
	if o.ServicePath != "" {
		return o.ServicePath
	}
	return o.Address
}
