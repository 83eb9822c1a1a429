package store

import (
	"fmt"

	"github.com/kittclouds/kgraph/internal/model"
)

// SearchResult pairs a matched node with the FTS5 rank score (more
// negative is a better match under SQLite FTS5's bm25-derived `rank`).
type SearchResult struct {
	Node *model.Node
	Rank float64
}

// SearchNodes runs a token-level full-text query over (title, content),
// ranked by the underlying text search engine's rank score (§4.1).
func (s *Store) SearchNodes(query string) ([]SearchResult, error) {
	ids, ranks, err := s.searchIDs(query)
	if err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(ids))
	for i, id := range ids {
		n, err := s.GetNode(id)
		if err != nil {
			return nil, fmt.Errorf("store: search_nodes %q: %w", query, err)
		}
		if n == nil {
			continue // stale fts row racing a delete; the next Open rebuilds the index
		}
		out = append(out, SearchResult{Node: n, Rank: ranks[i]})
	}
	return out, nil
}

func (s *Store) searchIDs(query string) ([]string, []float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, rank FROM nodes_fts WHERE nodes_fts MATCH ? ORDER BY rank
	`, query)
	if err != nil {
		return nil, nil, fmt.Errorf("store: search_nodes %q: %w", query, err)
	}
	defer rows.Close()

	var ids []string
	var ranks []float64
	for rows.Next() {
		var id string
		var rank float64
		if err := rows.Scan(&id, &rank); err != nil {
			return nil, nil, fmt.Errorf("store: scan search row: %w", err)
		}
		ids = append(ids, id)
		ranks = append(ranks, rank)
	}
	return ids, ranks, rows.Err()
}
