package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/kgraph/pkg/response"
)

var graphCmd = &cobra.Command{
	Use:   "graph [node-id]",
	Short: "Dump a subtree (the node and its descendants plus touching edges) as slim JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, closeFn, err := openPipeline()
		if err != nil {
			return err
		}
		defer closeFn()

		start := time.Now()
		nodes, edges, err := p.ExportSubtree(args[0])
		if err != nil {
			return err
		}
		if nodes == nil {
			return fmt.Errorf("kgraphctl: graph: node %s not found", args[0])
		}

		out, err := response.MarshalSlimResponse(nodes, edges, time.Since(start).Microseconds())
		if err != nil {
			return fmt.Errorf("kgraphctl: graph: marshal: %w", err)
		}
		_, err = os.Stdout.Write(append(out, '\n'))
		return err
	},
}
