package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/estatetools/opsdash/internal/sheets"
)

// NewMappingCmd creates the mapping command
func NewMappingCmd() *cobra.Command {
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Column-mapping inspection",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective column mapping",
		Long:  "Prints the column mapping after applying any overrides from the given file to the defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := sheets.LoadMapping(fileFlag)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(mapping)
			if err != nil {
				return fmt.Errorf("failed to render mapping: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
	showCmd.Flags().StringVar(&fileFlag, "file", "", "Mapping override file (YAML)")
	cmd.AddCommand(showCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "defaults",
		Short: "Print the built-in column mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := yaml.Marshal(sheets.DefaultMapping())
			if err != nil {
				return fmt.Errorf("failed to render mapping: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	})

	return cmd
}
