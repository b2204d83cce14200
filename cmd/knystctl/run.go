package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a demo Sphere, push a node, and print its inspection report",
	RunE: func(cmd *cobra.Command, args []string) error {
		insp, err := runDemo()
		if err != nil {
			return fmt.Errorf("demo run failed: %w", err)
		}

		fmt.Printf("graph %s: %d node(s), %d connection(s)\n", insp.GraphID, len(insp.Nodes), len(insp.Connections))
		for _, n := range insp.Nodes {
			fmt.Printf("  node %s (inputs=%d outputs=%d graph=%t)\n", n.ID, n.Inputs, n.Outputs, n.IsGraph)
		}
		for _, c := range insp.Connections {
			fmt.Printf("  %s\n", c)
		}
		return nil
	},
}
