package main

import (
	"context"
	"fmt"
	"os"

	"imgconform/internal/cli"
	"imgconform/internal/cli/commands"
)

var version = "dev"

func main() {
	rootCmd := commands.NewRoot(version, os.Stdout)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
