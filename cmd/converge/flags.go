package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Inspect feature flags",
}

var flagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List resolved feature flags (defaults -> config file -> env)",
	RunE: func(cmd *cobra.Command, args []string) error {
		states := flagsReg.List()
		if jsonOutput {
			return printJSON(states)
		}
		for _, s := range states {
			fmt.Printf("%-20s enabled=%-5v mode=%s\n", s.Name, s.Enabled, s.Mode)
		}
		return nil
	},
}

func init() {
	flagsCmd.AddCommand(flagsListCmd)
	rootCmd.AddCommand(flagsCmd)
}
