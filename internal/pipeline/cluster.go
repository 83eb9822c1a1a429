package pipeline

import (
	"context"
	"fmt"

	"github.com/kittclouds/kgraph/internal/assoc"
	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/cluster"
)

// ClusterResult reports what run_clustering produced, across both its
// clustering and association-layer stages.
type ClusterResult struct {
	*cluster.Result
	BelongsToCreated int
}

// runClustering clusters every item flagged needs_clustering, then applies
// the multi-path belongs_to pass over the freshly assigned clusters
// (§4.4): cluster first, associate second, matching run_clustering's
// documented sequencing.
func runClustering(ctx context.Context, p *Pipeline, useAI bool, tok *cancel.Token) (*ClusterResult, error) {
	clusterRes, err := cluster.Run(ctx, p.St, p.Svc, p.Tune, useAI, tok)
	if err != nil {
		return nil, fmt.Errorf("pipeline: run_clustering: %w", err)
	}
	if tok.Cancelled() {
		return &ClusterResult{Result: clusterRes}, &cancel.CancelledError{Op: "run_clustering"}
	}

	belongsCount, err := assoc.ApplyMultiPath(p.St, p.Cache, p.Tune, tok)
	if err != nil {
		return &ClusterResult{Result: clusterRes}, fmt.Errorf("pipeline: run_clustering: belongs_to: %w", err)
	}

	return &ClusterResult{Result: clusterRes, BelongsToCreated: belongsCount}, nil
}
