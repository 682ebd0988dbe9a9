package commands

import (
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"imgconform/internal/config"
)

// ConfigCommand prints the effective configuration as YAML
type ConfigCommand struct {
	config *config.Config
	out    io.Writer
}

// NewConfigCommand creates a new ConfigCommand
func NewConfigCommand(cfg *config.Config, out io.Writer) *ConfigCommand {
	return &ConfigCommand{config: cfg, out: out}
}

// Execute runs the command
func (cc *ConfigCommand) Execute(cmd *cobra.Command, args []string) error {
	enc := yaml.NewEncoder(cc.out)
	enc.SetIndent(2)
	if err := enc.Encode(cc.config); err != nil {
		return err
	}
	return enc.Close()
}
