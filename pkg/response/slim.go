// Package response builds minimal JSON shapes for read-path consumers (the
// CLI's graph subcommand, and any future shell/UI client) that only need a
// node's display fields, not its full persisted record.
package response

import (
	"encoding/json"

	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/pkg/pool"
)

// SlimGraph is a minimal graph representation for client consumption: a
// subtree or search result rendered as nodes keyed by id plus a flat edge
// list, omitting embeddings and other fields no display client uses.
type SlimGraph struct {
	Nodes map[string]SlimNode `json:"nodes"`
	Edges []SlimEdge          `json:"edges"`
}

// SlimNode contains only the fields a display client uses.
type SlimNode struct {
	Title string   `json:"title"`
	Kind  string   `json:"kind"`
	Emoji string   `json:"emoji,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

// SlimEdge contains only the fields a display client uses.
type SlimEdge struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// SlimScanResponse is the minimal response for a subtree/search export.
type SlimScanResponse struct {
	Graph    *SlimGraph `json:"graph"`
	TimingUS int64      `json:"timing_us"`
}

// kindOf reports the display kind of a node: "universe", "topic", or "item".
func kindOf(n *model.Node) string {
	switch {
	case n.IsUniverse:
		return "universe"
	case n.IsItem:
		return "item"
	default:
		return "topic"
	}
}

// FromNodesEdges converts a node/edge slice pair (typically a subtree
// produced by a hierarchy walk) into a SlimGraph. Tags are copied through a
// pooled string slice so repeated exports of large subtrees don't churn the
// allocator on every call.
func FromNodesEdges(nodes []*model.Node, edges []*model.Edge) *SlimGraph {
	sg := &SlimGraph{
		Nodes: make(map[string]SlimNode, len(nodes)),
		Edges: make([]SlimEdge, 0, len(edges)),
	}

	for _, n := range nodes {
		var tags []string
		if len(n.Tags) > 0 {
			pooled := pool.GetStringSlice()
			pooled = append(pooled, n.Tags...)
			tags = append(tags, pooled...)
			pool.PutStringSlice(pooled)
		}
		sg.Nodes[n.ID] = SlimNode{
			Title: displayTitle(n),
			Kind:  kindOf(n),
			Emoji: n.Emoji,
			Tags:  tags,
		}
	}

	for _, e := range edges {
		var confidence float64
		switch {
		case e.Confidence != nil:
			confidence = *e.Confidence
		case e.Weight != nil:
			confidence = *e.Weight
		}
		sg.Edges = append(sg.Edges, SlimEdge{
			Source:     e.SourceID,
			Target:     e.TargetID,
			Type:       string(e.EdgeType),
			Confidence: confidence,
		})
	}

	return sg
}

// displayTitle prefers the LLM-assigned title, falling back to the cluster
// label (containers) or the raw title (items not yet analyzed).
func displayTitle(n *model.Node) string {
	switch {
	case n.AITitle != "":
		return n.AITitle
	case n.ClusterLabel != "":
		return n.ClusterLabel
	default:
		return n.Title
	}
}

// MarshalSlimResponse builds and serializes a SlimScanResponse for a subtree
// export, using a pooled map to assemble the wrapper before marshaling.
func MarshalSlimResponse(nodes []*model.Node, edges []*model.Edge, timingUS int64) ([]byte, error) {
	resp := SlimScanResponse{
		Graph:    FromNodesEdges(nodes, edges),
		TimingUS: timingUS,
	}

	wrapper := pool.GetMap()
	defer pool.PutMap(wrapper)
	wrapper["graph"] = resp.Graph
	wrapper["timing_us"] = resp.TimingUS
	return json.Marshal(wrapper)
}
