package main

import (
	"github.com/spf13/cobra"
)

// configCmd prints the effective configuration
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Long: `Prints the configuration ember would run with: the discovered or
given file decoded over the defaults. The output is a valid ember.toml.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cfg.WriteTOML(cmd.OutOrStdout())
	},
}
