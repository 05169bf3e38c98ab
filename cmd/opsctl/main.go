package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/estatetools/opsdash/cmd/opsctl/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "opsctl",
		Short: "Operations tool for the rental dashboard",
		Long:  "CLI tool for authorizing Google access, generating task lists, and inspecting configuration",
	}

	rootCmd.AddCommand(commands.NewAuthCmd())
	rootCmd.AddCommand(commands.NewGenerateCmd())
	rootCmd.AddCommand(commands.NewMappingCmd())
	rootCmd.AddCommand(commands.NewSettingsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
