package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Run the same demo as 'run' and print only the resulting JSON inspection",
	RunE: func(cmd *cobra.Command, args []string) error {
		insp, err := runDemo()
		if err != nil {
			return fmt.Errorf("demo run failed: %w", err)
		}

		out, err := json.MarshalIndent(insp, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal inspection: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}
