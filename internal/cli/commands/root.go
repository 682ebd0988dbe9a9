package commands

import (
	"io"

	"github.com/spf13/cobra"

	"imgconform/internal/cli"
	"imgconform/internal/config"
	"imgconform/internal/logging"
	"imgconform/internal/service"
)

// NewRoot builds the imgconform command tree writing command output to out
func NewRoot(version string, out io.Writer) *cobra.Command {
	return newRoot(version, out, service.OptionsFromConfig)
}

func newRoot(version string, out io.Writer, options func(*config.Config) service.Options) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imgconform",
		Short: "Conformance test harness for image transformation services",
		Long: `Run JSON-described conformance cases against an image transformation
service and compare every produced image with its golden file byte for byte.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	if out != nil {
		rootCmd.SetOut(out)
	}

	// Create initial config with defaults; replaced in place once flags are parsed
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.ConfigFile, "config", "", "Config file (default <root>/imgconform.yaml)")
	pf.StringVar(&flags.Root, "root", "", "Harness root holding cases and assets (default .)")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flags.LogJSON, "log-json", false, "Log as JSON")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(flags.ConfigFile, flags.Root)
		if err != nil {
			return cli.WrapExitError(cli.ExitCommandError, "invalid configuration", err)
		}
		*cfg = *loaded

		level := cfg.Log.Level
		if flags.Verbose {
			level = "debug"
		}
		logging.Configure(logging.Options{Level: level, JSON: cfg.Log.JSON || flags.LogJSON})
		return nil
	}

	cmds := NewCommands(cfg, rootCmd.OutOrStdout())
	cmds.Run.options = options
	cmds.Register(rootCmd, &flags, cfg)
	return rootCmd
}
