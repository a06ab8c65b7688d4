package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for fuzznorm.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fuzznorm",
		Short: "Normalize the output of API fuzzers",
		Long: `fuzznorm reads completed API fuzzing runs and rewrites the free-form
output of each engine into one JSON record per test case.

Each run directory is named <fuzzer>-<target>-<index> and holds a
metadata.json file next to the raw engine output in fuzzer/.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewParseCmd())
	cmd.AddCommand(NewSummaryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
