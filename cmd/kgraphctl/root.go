package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/kgconfig"
	"github.com/kittclouds/kgraph/internal/llmclient"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/pipeline"
	"github.com/kittclouds/kgraph/internal/store"
)

var (
	dbPath       string
	settingsPath string
)

// rootCmd is kgraphctl's entry point: a thin cobra shell over the
// pipeline package's orchestration entry points, mirroring
// rcliao-briefly's cmd/cmd/root.go persistent-flag-then-subcommand shape.
var rootCmd = &cobra.Command{
	Use:   "kgraphctl",
	Short: "Operate a local-first knowledge graph store",
}

func main() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "kgraph.db", "path to the store database file")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "path to the settings JSON file (defaults beside --db)")

	rootCmd.AddCommand(processCmd, clusterCmd, rebuildCmd, privacyCmd, searchCmd, tidyCmd, exportCmd, graphCmd, healthCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openPipeline loads settings, opens the store, and wires a pipeline.Pipeline
// for a single CLI invocation's lifetime. The caller must invoke the
// returned close func when done.
func openPipeline() (*pipeline.Pipeline, *kgconfig.Store, func(), error) {
	sp := settingsPath
	if sp == "" {
		sp = filepath.Join(filepath.Dir(dbPath), "settings.json")
	}
	cfgStore, err := kgconfig.Load(sp)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("kgraphctl: load settings: %w", err)
	}
	cfg := cfgStore.Get()

	dim := pipeline.LocalEmbedDim
	if !cfg.UseLocalEmbeddings {
		dim = pipeline.RemoteEmbedDim
	}

	st, err := store.Open(dbPath, dim)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("kgraphctl: open store %s: %w", dbPath, err)
	}

	cache := embedcache.New()
	hydrateCache(st, cache)

	ann, err := st.ANN()
	if err != nil {
		ann = nil // background build not yet available; callers fall back to brute force
	}

	svc := llmclient.NewService(llmclient.Config{
		Primary:         llmclient.ProviderAnthropic,
		Secondary:       llmclient.ProviderOpenAI,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
	})
	svc.OnUsage(func(u llmclient.Usage) {
		_ = cfgStore.AccumulateStats(func(s *model.ProcessingStats) {
			switch u.Provider {
			case llmclient.ProviderAnthropic:
				s.TotalAnthropicInputTokens += u.InputTokens
				s.TotalAnthropicOutputTokens += u.OutputTokens
			case llmclient.ProviderOpenAI:
				s.TotalOpenAITokens += u.InputTokens + u.OutputTokens
			}
		})
	})

	embed := pipeline.LocalEmbed(dim)
	sim := store.NewSimCache(30 * time.Second)

	p := pipeline.New(st, cache, ann, sim, svc, embed, cfg.Tuning, nil)

	closeFn := func() { _ = st.Close() }
	return p, cfgStore, closeFn, nil
}

func hydrateCache(st *store.Store, cache *embedcache.Cache) {
	nodes, err := st.GetAllNodes()
	if err != nil {
		return
	}
	pairs := make(map[string][]float32, len(nodes))
	for _, n := range nodes {
		if len(n.Embedding) > 0 {
			pairs[n.ID] = n.Embedding
		}
	}
	cache.Hydrate(pairs)
}
