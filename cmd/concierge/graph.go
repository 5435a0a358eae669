package main

import (
	"fmt"

	"github.com/aretw0/concierge/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the routing graph",
	Long:  `Outputs a Mermaid diagram (graph TD) of the router, the specialists, their tools and the transfer and escalation edges.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		roster, err := staticRoster(cmd)
		if err != nil {
			return err
		}
		fmt.Print(graph.GenerateMermaid(roster, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
