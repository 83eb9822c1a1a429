package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run a full-text search over titles and content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, closeFn, err := openPipeline()
		if err != nil {
			return err
		}
		defer closeFn()

		results, err := p.Search(args[0])
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Printf("%.4f  %s  %s\n", r.Rank, r.Node.ID, r.Node.Title)
		}
		return nil
	},
}
