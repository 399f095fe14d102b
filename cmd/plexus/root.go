package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "plexus",
	Short: "LLM-planned plugin pipeline runtime",
	Long: `Plexus turns trigger events into dynamically-planned pipelines of plugin
invocations. A language model drafts the plan for each trigger and, after
every executed step, decides whether the remaining steps should change.

Tasks are processed one at a time in arrival order; plugins and model
providers are registered at startup and call each other through aliased,
schema-validated capability interfaces.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	Execute()
}
