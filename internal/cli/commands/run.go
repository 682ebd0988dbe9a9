package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"imgconform/internal/cli"
	"imgconform/internal/config"
	"imgconform/internal/domain"
	"imgconform/internal/execution"
	"imgconform/internal/history"
	"imgconform/internal/logging"
	"imgconform/internal/service"
	"imgconform/internal/storage"
	"imgconform/internal/telemetry"
	"imgconform/internal/ui"
	"imgconform/internal/watch"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// RunCommand handles the run command
type RunCommand struct {
	config    *config.Config
	storage   storage.Storage
	formatter *ui.Formatter
	viewer    ui.Viewer
	options   func(*config.Config) service.Options
	out       io.Writer
}

// NewRunCommand creates a new RunCommand. options derives the service
// launch options from the loaded config.
func NewRunCommand(
	cfg *config.Config,
	st storage.Storage,
	formatter *ui.Formatter,
	viewer ui.Viewer,
	options func(*config.Config) service.Options,
	out io.Writer,
) *RunCommand {
	return &RunCommand{
		config:    cfg,
		storage:   st,
		formatter: formatter,
		viewer:    viewer,
		options:   options,
		out:       out,
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	metrics := telemetry.NewMetrics()

	if rc.config.Flags.Watch {
		return rc.watch(ctx, metrics)
	}
	return rc.runOnce(ctx, metrics)
}

// runOnce performs one complete run and returns an *cli.ExitError
// carrying the run's exit status, or nil when it succeeded
func (rc *RunCommand) runOnce(ctx context.Context, metrics *telemetry.Metrics) error {
	cfg := rc.config
	opts := execution.OptionsFromConfig(cfg)

	if cfg.Flags.OnlyFailed {
		last, err := rc.storage.Load()
		if err != nil {
			return cli.WrapExitError(cli.ExitCommandError, "cannot select failed cases", err)
		}
		opts.Selection.Only = last.FailedNames()
	}

	meta := domain.RunMeta{
		RunID:     uuid.NewString(),
		Filter:    cfg.Flags.NameFilter,
		Transport: cfg.Service.Transport,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}

	runner := execution.NewFromConfig(cfg, service.NewOpener(rc.options(cfg)), rc.reporter(metrics), opts)
	summary, err := runner.Run(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrServiceUnavailable) {
			return cli.WrapExitError(cli.ExitCommandError, "cannot start image service", err)
		}
		return cli.WrapExitError(cli.ExitCommandError, "run aborted", err)
	}

	if cfg.Flags.LoadOnly {
		rc.printServiceInfo(runner.ServiceInfo())
		return nil
	}

	output, err := rc.storage.Save(meta, summary)
	if err != nil {
		return cli.WrapExitError(cli.ExitCommandError, "failed to save run results", err)
	}
	rc.record(ctx, meta, summary)

	if path := cfg.GetMetricsTextfile(); path != "" {
		if err := metrics.WriteTextfile(path); err != nil {
			logging.L().Warn("failed to write metrics textfile", "path", path, "err", err)
		}
	}

	if summary.Succeeded(cfg.EmptyRunPolicy()) {
		return nil
	}
	if summary.Total == 0 {
		return cli.NewExitError(cli.ExitFailure, "no test cases selected")
	}

	if cfg.Flags.OpenFailures && !cfg.Flags.Watch {
		if err := rc.viewer.View(output); err != nil {
			return cli.WrapExitError(cli.ExitCommandError, "failures viewer", err)
		}
	}
	return cli.NewExitError(cli.ExitFailure, fmt.Sprintf("%d of %d case(s) failed", summary.Failed(), summary.Total))
}

func (rc *RunCommand) reporter(metrics *telemetry.Metrics) execution.Reporter {
	if rc.config.Flags.Progress {
		return ui.MultiReporter{ui.NewProgressReporter(rc.out), ui.NewSummaryReporter(rc.out), metrics}
	}
	return ui.MultiReporter{ui.NewConsoleReporter(rc.out), metrics}
}

// record appends the run to the history database. History is best effort:
// a database problem never changes the run's outcome.
func (rc *RunCommand) record(ctx context.Context, meta domain.RunMeta, summary domain.RunSummary) {
	if !rc.config.History.Enabled {
		return
	}
	store, err := openHistory(ctx, rc.config)
	if err != nil {
		logging.L().Warn("run history unavailable", "err", err)
		return
	}
	defer store.Close()

	if err := store.Record(ctx, meta, summary); err != nil {
		logging.L().Warn("failed to record run history", "run", meta.RunID, "err", err)
	}
}

func (rc *RunCommand) printServiceInfo(info map[string]any) {
	color.New(color.FgGreen).Fprintln(rc.out, "Service started and stopped cleanly")
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(rc.out, "  %s: %v\n", k, info[k])
	}
}

// watch reruns on every change below the cases, assets and service
// directories until interrupted
func (rc *RunCommand) watch(ctx context.Context, metrics *telemetry.Metrics) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := rc.config.Metrics.Listen; addr != "" {
		go func() {
			if err := telemetry.Expose(ctx, addr, metrics); err != nil {
				logging.L().Error("metrics listener stopped", "addr", addr, "err", err)
			}
		}()
		logging.L().Info("serving metrics", "addr", addr)
	}

	dirs := []string{
		rc.config.GetCasesPath(),
		rc.config.GetAssetsPath(),
		filepath.Dir(rc.config.GetServicePath()),
	}
	w := watch.New(dirs, func(ctx context.Context) error {
		err := rc.runOnce(ctx, metrics)
		if cli.GetExitCode(err) == cli.ExitFailure {
			return nil
		}
		return err
	})
	return w.Run(ctx)
}

// openHistory opens the configured history database. MySQL without a DSN
// is configured from the DB_* environment variables.
func openHistory(ctx context.Context, cfg *config.Config) (*history.Store, error) {
	return history.Open(ctx, cfg.History.Driver, cfg.GetHistoryDSN())
}
