package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fsmdemo",
	Short: "fsmdemo drives a sample traffic-light machine through lib-fsm",
	Long: `fsmdemo wires the traffic-light machine from the lib-fsm documentation,
subscribes to its notification channel, and either runs a token through a
scenario or dumps the transition table.`,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("log", false, "log every notification to stderr")
}
