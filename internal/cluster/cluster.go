// Package cluster groups items (§4.5): a TF-IDF/Jaccard fallback that needs
// no network access, and an optional LLM-driven pass that falls back to
// TF-IDF wholesale on any failure so a run never mixes the two regimes.
package cluster

import (
	"context"
	"fmt"

	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/kgconfig"
	"github.com/kittclouds/kgraph/internal/llmclient"
	"github.com/kittclouds/kgraph/internal/store"
)

// Assignment is one item's resolved cluster membership.
type Assignment struct {
	ItemID    string
	ClusterID int
	Label     string
	Strength  float64
	IsNew     bool
}

// Result reports what a clustering run produced.
type Result struct {
	Assignments []Assignment
	UsedAI      bool
}

// Run clusters every item flagged needs_clustering, writing cluster_id and
// cluster_label back via UpdateNodeClustering and clearing the flag. When
// useAI is true and an LLM is configured, it tries the LLM regime first;
// any batch error falls back to TF-IDF over the full item set.
func Run(ctx context.Context, st *store.Store, svc *llmclient.Service, tuning kgconfig.Tuning, useAI bool, tok *cancel.Token) (*Result, error) {
	items, err := st.GetItemsNeedingClustering()
	if err != nil {
		return nil, fmt.Errorf("cluster: list items needing clustering: %w", err)
	}
	if len(items) == 0 {
		return &Result{}, nil
	}
	if tok.Cancelled() {
		return nil, &cancel.CancelledError{Op: "run_clustering"}
	}

	var assignments []Assignment
	usedAI := false

	if useAI && svc != nil && svc.IsConfigured() {
		assignments, err = RunLLM(ctx, svc, items, tuning.MinSecondaryStrength)
		if err != nil {
			assignments = RunTFIDF(items, tuning.TFIDFJaccardThreshold)
		} else {
			usedAI = true
		}
	} else {
		assignments = RunTFIDF(items, tuning.TFIDFJaccardThreshold)
	}

	for _, a := range assignments {
		if tok.Cancelled() {
			return nil, &cancel.CancelledError{Op: "run_clustering"}
		}
		if err := st.UpdateNodeClustering(a.ItemID, a.ClusterID, a.Label); err != nil {
			return nil, fmt.Errorf("cluster: assign %s: %w", a.ItemID, err)
		}
	}

	return &Result{Assignments: assignments, UsedAI: usedAI}, nil
}
