package pipeline

import (
	"sort"

	"github.com/kittclouds/kgraph/internal/embedcache"
	"github.com/kittclouds/kgraph/internal/model"
	"github.com/kittclouds/kgraph/internal/store"
)

// GetSimilar answers get_similar (§4.9): a cached result if one is still
// fresh, otherwise an ANN query (falling back to brute force over the
// embedding cache while the ANN is mid-rebuild or absent), with the result
// memoized before returning.
func (p *Pipeline) GetSimilar(nodeID string, k int) ([]store.SimMatch, error) {
	if p.Sim != nil {
		if cached, ok := p.Sim.Get(nodeID); ok {
			return cached, nil
		}
	}

	entry := p.Cache.Get(nodeID)
	if entry == nil {
		return nil, nil
	}

	matches := p.annSimilar(nodeID, entry, k)
	if matches == nil {
		matches = p.bruteForceSimilar(nodeID, k)
	}

	if p.Sim != nil {
		p.Sim.Put(nodeID, matches)
	}
	return matches, nil
}

// annSimilar queries the ANN index when one is wired, returning nil (not an
// empty slice) so the caller falls back to brute force both when the index
// is absent and when Search itself reports an empty result during a
// background rebuild (§4.9).
func (p *Pipeline) annSimilar(nodeID string, entry *embedcache.Entry, k int) []store.SimMatch {
	if p.Ann == nil {
		return nil
	}
	hits, err := p.Ann.Search(entry.Embedding, k, map[string]bool{nodeID: true})
	if err != nil || len(hits) == 0 {
		return nil
	}
	out := make([]store.SimMatch, len(hits))
	for i, h := range hits {
		out[i] = store.SimMatch{NodeID: h.NodeID, Cosine: h.Cosine}
	}
	return out
}

func (p *Pipeline) bruteForceSimilar(nodeID string, k int) []store.SimMatch {
	matches := make([]store.SimMatch, 0, p.Cache.Count())
	for _, id := range p.Cache.AllIDs() {
		if id == nodeID {
			continue
		}
		matches = append(matches, store.SimMatch{NodeID: id, Cosine: p.Cache.Cosine(nodeID, id)})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Cosine > matches[j].Cosine })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// GetChildren answers get_children: the direct child nodes of parentID.
func (p *Pipeline) GetChildren(parentID string) ([]*model.Node, error) {
	return p.St.GetChildren(parentID)
}

// Search answers search: a full-text query over (title, content).
func (p *Pipeline) Search(query string) ([]store.SearchResult, error) {
	return p.St.SearchNodes(query)
}

// ExportSubtree walks rootID and every descendant (BFS over GetChildren),
// then fetches every edge touching that node set, for a slim graph export
// (pkg/response) — a read-side view a display client can render without
// pulling full node records (embeddings, timestamps, etc.) over the wire.
func (p *Pipeline) ExportSubtree(rootID string) ([]*model.Node, []*model.Edge, error) {
	root, err := p.St.GetNode(rootID)
	if err != nil {
		return nil, nil, err
	}
	if root == nil {
		return nil, nil, nil
	}

	nodes := []*model.Node{root}
	ids := []string{root.ID}
	queue := []string{root.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		children, err := p.St.GetChildren(id)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range children {
			nodes = append(nodes, c)
			ids = append(ids, c.ID)
			queue = append(queue, c.ID)
		}
	}

	edges, err := p.St.GetEdgesForNodes(ids)
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}
