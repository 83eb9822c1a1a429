package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/kgraph/internal/cancel"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run process_nodes: classify, enrich, and embed unprocessed items",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, closeFn, err := openPipeline()
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := p.ProcessNodes(context.Background(), cancel.New())
		if err != nil {
			return err
		}
		fmt.Printf("processed=%d embedded=%d errored=%d\n", res.Processed, res.Embedded, res.Errored)
		return nil
	},
}
