// Package assoc builds the two kinds of edges the association layer owns
// (§4.3, §4.4): `related` semantic-similarity edges over all embedded
// nodes, and multi-path `belongs_to` edges linking items to the topic
// containers their cluster assignment and embedding similarity support.
package assoc

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/kittclouds/kgraph/internal/cancel"
	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/kgconfig"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/store"
)

type candidate struct {
	targetID string
	rawSim   float64 // stored as the edge weight
	rankSim  float64 // sibling-boosted score used only for top-k selection
}

// CreateSemanticEdges regenerates every AI-sourced `related` edge from
// scratch (§4.3): cosine similarity is computed once per unordered pair —
// each node only looks at the nodes *after* it in the slice, so a pair is
// never visited twice and never yields two directed rows — ranked with a
// +sibling bonus (same parent) that affects selection only (the stored
// weight is always the raw cosine), with the minimum-similarity bar
// relaxed by -category_threshold_delta when both endpoints are containers
// rather than items. Deterministic edge ids make a re-run idempotent
// against the edges it itself created.
func CreateSemanticEdges(st *store.Store, cache *embedcache.Cache, tuning kgconfig.Tuning, minSim float64, maxPerNode int, tok *cancel.Token) (int, error) {
	nodes, err := st.GetNodesWithEmbeddings()
	if err != nil {
		return 0, fmt.Errorf("assoc: list embedded nodes: %w", err)
	}
	if len(nodes) < 2 {
		return 0, nil
	}

	byID := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	if err := st.DeleteSemanticEdges(); err != nil {
		return 0, fmt.Errorf("assoc: clear existing semantic edges: %w", err)
	}

	created := 0
	for i, n := range nodes {
		if tok.Cancelled() {
			return created, &cancel.CancelledError{Op: "create_semantic_edges"}
		}

		candidates := make([]candidate, 0, len(nodes)-i-1)
		for _, other := range nodes[i+1:] {
			sim := cache.Cosine(n.ID, other.ID)

			threshold := minSim
			if !n.IsItem && !other.IsItem {
				threshold -= tuning.CategoryThresholdDelta
			}
			if sim < threshold {
				continue
			}

			rank := sim
			if sameParent(n, other) {
				rank += tuning.SiblingBonus
			}
			candidates = append(candidates, candidate{targetID: other.ID, rawSim: sim, rankSim: rank})
		}

		sort.Slice(candidates, func(a, b int) bool {
			if candidates[a].rankSim != candidates[b].rankSim {
				return candidates[a].rankSim > candidates[b].rankSim
			}
			return candidates[a].targetID < candidates[b].targetID
		})
		if len(candidates) > maxPerNode {
			candidates = candidates[:maxPerNode]
		}

		for _, c := range candidates {
			weight := c.rawSim
			edge := &model.Edge{
				ID:         semanticEdgeID(n.ID, c.targetID),
				SourceID:   n.ID,
				TargetID:   c.targetID,
				EdgeType:   model.EdgeRelated,
				Weight:     &weight,
				EdgeSource: model.SourceAI,
				CreatedAt:  n.UpdatedAt,
			}
			if err := st.InsertEdge(edge); err != nil {
				return created, fmt.Errorf("assoc: insert semantic edge %s->%s: %w", n.ID, c.targetID, err)
			}
			created++
		}
	}

	return created, nil
}

func sameParent(a, b *model.Node) bool {
	if a.ParentID == nil || b.ParentID == nil {
		return false
	}
	return *a.ParentID == *b.ParentID
}

// semanticEdgeID derives a stable id from the (source, target) pair so a
// regeneration pass is idempotent against its own prior output. Each
// unordered pair is stored as one `related` row whose source is the node
// that comes first in CreateSemanticEdges' scan, so the argument order is
// fixed by that scan.
func semanticEdgeID(source, target string) string {
	sum := sha1.Sum([]byte("related:" + source + "->" + target))
	return "sem-" + hex.EncodeToString(sum[:])[:20]
}
