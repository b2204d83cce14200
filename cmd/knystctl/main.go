// Command knystctl is a demonstration CLI for the knyst command bus: it
// starts a Sphere over an in-memory test graph, pushes a generator node,
// and prints a GraphInspection snapshot.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tuurlijk/knyst/knystlog"
)

var jsonOutput bool
var configPath string

var rootCmd = &cobra.Command{
	Use:   "knystctl",
	Short: "knystctl - demo CLI for the knyst real-time command bus",
	Long: `knystctl drives a Sphere (Controller + Commands facade) over an
in-memory test graph, for exercising the command bus without a real
audio backend.

Available commands:
  run     - start a Sphere, push a demo node, print an inspection snapshot
  inspect - run the same demo and print only the resulting JSON inspection`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := knystlog.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json-logs", false, "emit structured JSON logs instead of human-readable console output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a knystconfig file (TOML/YAML/JSON) tuning the Controller, watched for hot-reload of non-structural settings")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(inspectCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
