package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/kgraph/internal/cancel"
)

var clusterUseAI bool

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Run run_clustering: group items needing clustering and associate them",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, closeFn, err := openPipeline()
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := p.RunClustering(context.Background(), clusterUseAI, cancel.New())
		if err != nil {
			return err
		}
		fmt.Printf("assignments=%d used_ai=%v belongs_to_created=%d\n",
			len(res.Assignments), res.UsedAI, res.BelongsToCreated)
		return nil
	},
}

func init() {
	clusterCmd.Flags().BoolVar(&clusterUseAI, "ai", true, "prefer the LLM clustering regime when a provider is configured")
}
