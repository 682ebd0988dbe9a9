package commands

import (
	"io"
	"os"

	"imgconform/internal/cli"
	"imgconform/internal/config"
	"imgconform/internal/discovery"
	"imgconform/internal/service"
	"imgconform/internal/storage"
	"imgconform/internal/ui"

	"github.com/spf13/cobra"
)

// Commands holds all CLI commands
type Commands struct {
	Run      *RunCommand
	List     *ListCommand
	Failures *FailuresCommand
	History  *HistoryCommand
	Config   *ConfigCommand
}

// NewCommands creates all commands with dependencies. Output goes to out,
// stdout when nil.
func NewCommands(cfg *config.Config, out io.Writer) *Commands {
	if out == nil {
		out = os.Stdout
	}

	// Initialize dependencies
	jsonStorage := storage.NewJSONStorage(cfg)
	formatter := ui.NewFormatter(cfg, discovery.NewParser(), out)
	failureViewer := ui.NewFailureViewer(jsonStorage)

	return &Commands{
		Run:      NewRunCommand(cfg, jsonStorage, formatter, failureViewer, service.OptionsFromConfig, out),
		List:     NewListCommand(cfg, formatter, jsonStorage),
		Failures: NewFailuresCommand(cfg, jsonStorage, formatter, failureViewer),
		History:  NewHistoryCommand(cfg, formatter),
		Config:   NewConfigCommand(cfg, out),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	applyFlags := func(cmd *cobra.Command, args []string) error {
		// Update config with flags after parsing
		cfg.Flags = flags.ToConfigFlags()
		return flags.ApplyOverrides(cfg, func(name string) bool {
			f := cmd.Flags().Lookup(name)
			return f != nil && f.Changed
		})
	}

	// Run command
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run conformance cases against the image service",
		Long: `Start the image service, send every selected case to it and compare each
produced image byte for byte with the case's golden file.

Exit status is 0 when every selected case passed, 1 when a case failed or
nothing was selected, and 2 when the service could not be started.`,
		RunE:    c.Run.Execute,
		PreRunE: applyFlags,
	}
	runCmd.Flags().StringVarP(&flags.OutputDir, "outputdir", "o", "", "Build output directory holding the service (overrides BP_OUTPUT_DIR)")
	runCmd.Flags().StringVarP(&flags.NameFilter, "test", "t", "", "Run only cases whose descriptor name contains this text")
	runCmd.Flags().StringVar(&flags.Locator, "locator", "", "Locator scheme for the file parameter (file or path)")
	runCmd.Flags().StringVar(&flags.Transport, "transport", "", "Service binding (stdio or grpc)")
	runCmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "Stop on first failing case")
	runCmd.Flags().BoolVar(&flags.OnlyFailed, "failed", false, "Run only cases that failed in the last run and are not resolved")
	runCmd.Flags().BoolVar(&flags.UpdateGolden, "update-golden", false, "Overwrite golden files with the produced output")
	runCmd.Flags().BoolVar(&flags.AllowEmpty, "allow-empty", false, "Treat a run that selects no cases as successful")
	runCmd.Flags().BoolVarP(&flags.Progress, "progress", "p", false, "Show a progress bar instead of one line per case")
	runCmd.Flags().BoolVarP(&flags.Watch, "watch", "w", false, "Rerun whenever cases, assets or the service change")
	runCmd.Flags().BoolVar(&flags.LoadOnly, "load-only", false, "Start and stop the service without running cases")
	runCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failures viewer when the run finishes with failures")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list",
		Short:   "List discovered cases",
		Long:    "Scan the cases directory and list descriptors without starting the service",
		RunE:    c.List.Execute,
		PreRunE: applyFlags,
	}
	listCmd.Flags().StringVarP(&flags.NameFilter, "test", "t", "", "List only cases whose descriptor name contains this text")
	listCmd.Flags().BoolVarP(&flags.Details, "details", "c", false, "Show each case's source image, parameters and golden status")
	rootCmd.AddCommand(listCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:     "failures",
		Aliases: []string{"fails"},
		Short:   "View failures of the last run",
		Long:    "Display failures from the last run in an interactive viewer",
		RunE:    c.Failures.Execute,
		PreRunE: applyFlags,
	}
	failuresCmd.Flags().BoolVar(&flags.Stats, "stats", false, "Print the stored run statistics instead of opening the viewer")
	rootCmd.AddCommand(failuresCmd)

	// History command
	historyCmd := &cobra.Command{
		Use:     "history",
		Short:   "Show recorded runs",
		Long:    "List recent runs from the history database and the cases whose verdict changed in the latest run",
		RunE:    c.History.Execute,
		PreRunE: applyFlags,
	}
	historyCmd.Flags().IntVarP(&flags.Limit, "limit", "n", 10, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)

	// Config command
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		RunE:  c.Config.Execute,
	}
	rootCmd.AddCommand(configCmd)
}
