package store

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kittclouds/kgraph/internal/model"
)

// exportData is the JSON envelope for a full logical dump, mirroring the
// teacher's Export/Import shape (one JSON object per table, round-tripped
// wholesale rather than incrementally).
type exportData struct {
	Nodes  []*model.Node          `json:"nodes"`
	Edges  []*model.Edge          `json:"edges"`
	Emojis []*model.LearnedEmoji `json:"learned_emojis"`
}

// Export serializes the full store contents to JSON.
func (s *Store) Export() ([]byte, error) {
	nodes, err := s.GetAllNodes()
	if err != nil {
		return nil, fmt.Errorf("store: export nodes: %w", err)
	}
	edges, err := s.queryEdges(`SELECT ` + edgeColumns + ` FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("store: export edges: %w", err)
	}
	emojis, err := s.GetLearnedEmojis()
	if err != nil {
		return nil, fmt.Errorf("store: export learned emojis: %w", err)
	}
	return json.Marshal(exportData{Nodes: nodes, Edges: edges, Emojis: emojis})
}

// Import clears existing rows and re-inserts from an Export payload.
func (s *Store) Import(data []byte) error {
	var ed exportData
	if err := json.Unmarshal(data, &ed); err != nil {
		return fmt.Errorf("store: import: unmarshal: %w", err)
	}

	s.mu.Lock()
	if _, err := s.db.Exec(`DELETE FROM edges`); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("store: import: clear edges: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM nodes`); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("store: import: clear nodes: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM learned_emojis`); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("store: import: clear learned emojis: %w", err)
	}
	s.mu.Unlock()

	for _, n := range ed.Nodes {
		if err := s.InsertNode(n); err != nil {
			return fmt.Errorf("store: import: node %s: %w", n.ID, err)
		}
	}
	for _, e := range ed.Edges {
		if err := s.InsertEdge(e); err != nil {
			return fmt.Errorf("store: import: edge %s: %w", e.ID, err)
		}
	}
	for _, em := range ed.Emojis {
		if err := s.UpsertLearnedEmoji(em); err != nil {
			return fmt.Errorf("store: import: emoji %s: %w", em.Keyword, err)
		}
	}
	return nil
}

// GetLearnedEmojis returns every learned keyword->emoji association.
func (s *Store) GetLearnedEmojis() ([]*model.LearnedEmoji, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(`SELECT keyword, emoji, created_at FROM learned_emojis`)
	if err != nil {
		return nil, fmt.Errorf("store: get learned emojis: %w", err)
	}
	defer rows.Close()
	var out []*model.LearnedEmoji
	for rows.Next() {
		var e model.LearnedEmoji
		if err := rows.Scan(&e.Keyword, &e.Emoji, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan learned emoji: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// UpsertLearnedEmoji records (or refreshes) a keyword->emoji association.
func (s *Store) UpsertLearnedEmoji(e *model.LearnedEmoji) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO learned_emojis (keyword, emoji, created_at) VALUES (?, ?, ?)
		ON CONFLICT(keyword) DO UPDATE SET emoji = excluded.emoji
	`, e.Keyword, e.Emoji, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: upsert learned emoji %s: %w", e.Keyword, err)
	}
	return nil
}

// ExportRedacted implements the privacy engine's export operation (§4.8.5):
// copy the database file, delete rows where is_private = 1 in the copy,
// delete edges orphaned by that cascade, and vacuum. Returns the path to
// the redacted copy. Only meaningful for file-backed (non-":memory:")
// stores.
func ExportRedacted(srcPath, dstPath string) (string, error) {
	if err := copyFile(srcPath, dstPath); err != nil {
		return "", fmt.Errorf("store: export_redacted: copy: %w", err)
	}

	redacted, err := Open(dstPath, 0)
	if err != nil {
		return "", fmt.Errorf("store: export_redacted: open copy: %w", err)
	}
	defer redacted.Close()

	redacted.mu.Lock()
	_, err = redacted.db.Exec(`DELETE FROM nodes WHERE is_private = 1`)
	redacted.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("store: export_redacted: delete private nodes: %w", err)
	}

	report := &TidyReport{}
	if err := redacted.tidyPruneDanglingEdges(report); err != nil {
		return "", fmt.Errorf("store: export_redacted: prune orphaned edges: %w", err)
	}

	redacted.mu.Lock()
	_, err = redacted.db.Exec(`VACUUM`)
	redacted.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("store: export_redacted: vacuum: %w", err)
	}

	return dstPath, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
