package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report graph topology, staleness, bridges, and a composite health score",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, closeFn, err := openPipeline()
		if err != nil {
			return err
		}
		defer closeFn()

		report, err := p.AnalyzeGraphHealth()
		if err != nil {
			return fmt.Errorf("kgraphctl: health: %w", err)
		}

		out, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("kgraphctl: health: marshal: %w", err)
		}
		_, err = os.Stdout.Write(append(out, '\n'))
		return err
	},
}
