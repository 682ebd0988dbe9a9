package commands

import (
	"github.com/spf13/cobra"

	"imgconform/internal/cli"
	"imgconform/internal/config"
	"imgconform/internal/storage"
	"imgconform/internal/ui"
)

// FailuresCommand handles the failures command
type FailuresCommand struct {
	config    *config.Config
	storage   storage.Storage
	formatter *ui.Formatter
	viewer    ui.Viewer
}

// NewFailuresCommand creates a new FailuresCommand
func NewFailuresCommand(cfg *config.Config, st storage.Storage, formatter *ui.Formatter, viewer ui.Viewer) *FailuresCommand {
	return &FailuresCommand{
		config:    cfg,
		storage:   st,
		formatter: formatter,
		viewer:    viewer,
	}
}

// Execute runs the command
func (fc *FailuresCommand) Execute(cmd *cobra.Command, args []string) error {
	results, err := fc.storage.Load()
	if err != nil {
		return cli.WrapExitError(cli.ExitCommandError, "cannot read last run", err)
	}

	if fc.config.Flags.Stats {
		fc.formatter.PrintMetaStats(results)
		return nil
	}
	return fc.viewer.View(results)
}
