package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kittclouds/kgraph/internal/cancel"
)

var privacyShowcase bool

var privacyCmd = &cobra.Command{
	Use:   "privacy",
	Short: "Privacy scanning operations",
}

var privacyScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run analyze_privacy: classify items, then propagate category verdicts to their subtrees",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, closeFn, err := openPipeline()
		if err != nil {
			return err
		}
		defer closeFn()

		res, err := p.AnalyzePrivacy(context.Background(), privacyShowcase, cancel.New())
		if err != nil {
			return err
		}
		fmt.Printf("scanned=%d private=%d propagated=%d\n", res.Scanned, res.Private, res.Propagated)
		return nil
	},
}

func init() {
	privacyScanCmd.Flags().BoolVar(&privacyShowcase, "showcase", false, "use the showcase-mode system prompt (§4.8)")
	privacyCmd.AddCommand(privacyScanCmd)
}
