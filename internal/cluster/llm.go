package cluster

import (
	"context"
	"fmt"
	"strings"

	"github.com/kittclouds/kgraph/internal/llmclient"
	"github.com/kittclouds/kgraph/internal/model"
)

const llmBatchSize = 15

const systemPrompt = `You group notes into topic clusters. Given existing
clusters and a batch of new items, assign each item to the best-fitting
existing cluster or a new one. Respond with JSON only:
{"assignments": [{"item_id": "...", "cluster_id": 0, "label": "...", "strength": 0.0, "is_new": false}]}
strength is your confidence in [0,1]. is_new is true only when you created
a cluster_id not present in the existing clusters list.`

type llmAssignment struct {
	ItemID    string  `json:"item_id"`
	ClusterID int     `json:"cluster_id"`
	Label     string  `json:"label"`
	Strength  float64 `json:"strength"`
	IsNew     bool    `json:"is_new"`
}

type llmBatchResponse struct {
	Assignments []llmAssignment `json:"assignments"`
}

type existingCluster struct {
	ID    int
	Label string
}

// RunLLM clusters items in batches of ~15, carrying forward the clusters
// created by earlier batches as context so later batches can join them
// instead of re-creating near-duplicates. Any batch failure aborts the
// whole pass — the caller falls back to RunTFIDF over every item rather
// than mixing AI and heuristic assignments within one run.
func RunLLM(ctx context.Context, svc *llmclient.Service, items []*model.Node, minStrength float64) ([]Assignment, error) {
	var known []existingCluster
	nextID := 0
	var out []Assignment

	for start := 0; start < len(items); start += llmBatchSize {
		end := start + llmBatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		resp, err := callBatch(ctx, svc, batch, known, nextID)
		if err != nil {
			return nil, fmt.Errorf("cluster: llm batch %d-%d: %w", start, end, err)
		}

		for _, a := range resp.Assignments {
			strength := a.Strength
			if strength < minStrength {
				strength = minStrength
			}
			out = append(out, Assignment{
				ItemID: a.ItemID, ClusterID: a.ClusterID, Label: a.Label,
				Strength: strength, IsNew: a.IsNew,
			})
			if a.ClusterID >= nextID {
				nextID = a.ClusterID + 1
			}
			if a.IsNew {
				known = appendCluster(known, existingCluster{ID: a.ClusterID, Label: a.Label})
			}
		}
	}
	return out, nil
}

func callBatch(ctx context.Context, svc *llmclient.Service, batch []*model.Node, known []existingCluster, nextID int) (*llmBatchResponse, error) {
	var prompt strings.Builder
	prompt.WriteString("Existing clusters:\n")
	if len(known) == 0 {
		prompt.WriteString("(none yet)\n")
	}
	for _, k := range known {
		fmt.Fprintf(&prompt, "- cluster_id=%d label=%q\n", k.ID, k.Label)
	}
	fmt.Fprintf(&prompt, "\nNext unused cluster_id: %d\n\nItems:\n", nextID)
	for _, it := range batch {
		summary := it.Summary
		if summary == "" {
			summary = it.Content
		}
		if len(summary) > 300 {
			summary = summary[:300]
		}
		fmt.Fprintf(&prompt, "- item_id=%q title=%q summary=%q\n", it.ID, displayTitle(it), summary)
	}

	raw, err := svc.Complete(ctx, prompt.String(), systemPrompt)
	if err != nil {
		return nil, err
	}

	var resp llmBatchResponse
	if err := llmclient.DecodeLenient(raw, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func displayTitle(n *model.Node) string {
	if n.AITitle != "" {
		return n.AITitle
	}
	return n.Title
}

func appendCluster(known []existingCluster, c existingCluster) []existingCluster {
	for _, k := range known {
		if k.ID == c.ID {
			return known
		}
	}
	return append(known, c)
}
