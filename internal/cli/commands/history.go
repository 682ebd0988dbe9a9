package commands

import (
	"github.com/spf13/cobra"

	"imgconform/internal/cli"
	"imgconform/internal/config"
	"imgconform/internal/ui"
)

// HistoryCommand handles the history command
type HistoryCommand struct {
	config    *config.Config
	formatter *ui.Formatter
}

// NewHistoryCommand creates a new HistoryCommand
func NewHistoryCommand(cfg *config.Config, formatter *ui.Formatter) *HistoryCommand {
	return &HistoryCommand{config: cfg, formatter: formatter}
}

// Execute runs the command
func (hc *HistoryCommand) Execute(cmd *cobra.Command, args []string) error {
	if !hc.config.History.Enabled {
		return cli.NewExitError(cli.ExitCommandError, "run history is disabled (history.enabled: false)")
	}

	ctx := cmd.Context()
	store, err := openHistory(ctx, hc.config)
	if err != nil {
		return cli.WrapExitError(cli.ExitCommandError, "cannot open run history", err)
	}
	defer store.Close()

	runs, err := store.Recent(ctx, hc.config.Flags.Limit)
	if err != nil {
		return cli.WrapExitError(cli.ExitCommandError, "cannot read run history", err)
	}
	flips, err := store.Flips(ctx)
	if err != nil {
		return cli.WrapExitError(cli.ExitCommandError, "cannot compare latest runs", err)
	}

	hc.formatter.PrintHistory(runs, flips)
	return nil
}
