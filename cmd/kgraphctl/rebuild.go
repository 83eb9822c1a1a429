package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/kgraph/internal/cancel"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Run build_full_hierarchy: tear down and regrow the category tree from scratch",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, closeFn, err := openPipeline()
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := p.BuildFullHierarchy(context.Background(), cancel.New())
		if err != nil {
			return err
		}
		fmt.Printf("topics_created=%d categories_created=%d items_attached=%d iterations_used=%d used_ai=%v\n",
			res.TopicsCreated, res.CategoriesCreated, res.ItemsAttached, res.IterationsUsed, res.UsedAI)
		return nil
	},
}
