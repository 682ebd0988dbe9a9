package commands

import (
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"imgconform/internal/cli"
	"imgconform/internal/config"
	"imgconform/internal/discovery"
	"imgconform/internal/storage"
	"imgconform/internal/ui"
)

// ListCommand handles the list command
type ListCommand struct {
	config    *config.Config
	formatter *ui.Formatter
	storage   storage.Storage
}

// NewListCommand creates a new ListCommand
func NewListCommand(
	cfg *config.Config,
	formatter *ui.Formatter,
	st storage.Storage,
) *ListCommand {
	return &ListCommand{
		config:    cfg,
		formatter: formatter,
		storage:   st,
	}
}

// Execute runs the command
func (lc *ListCommand) Execute(cmd *cobra.Command, args []string) error {
	loader := discovery.NewLoader(lc.config.GetCasesPath(), discovery.NewScanner(), discovery.NewFilter(), discovery.NewParser())
	paths, err := loader.List(discovery.Selection{Pattern: lc.config.Flags.NameFilter})
	if err != nil {
		return cli.WrapExitError(cli.ExitCommandError, "cannot list cases", err)
	}

	if len(paths) == 0 {
		color.Yellow("No test cases found")
		return nil
	}

	// Mark cases that failed in the last run, if there is one
	var failed map[string]struct{}
	if last, err := lc.storage.Load(); err == nil {
		failed = last.FailedNames()
	} else if !errors.Is(err, storage.ErrNoResults) {
		return cli.WrapExitError(cli.ExitCommandError, "cannot read last run", err)
	}

	lc.formatter.PrintCaseList(paths, lc.config.Flags.Details, failed)
	return nil
}
