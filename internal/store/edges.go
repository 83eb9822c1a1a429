package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/kittclouds/kgraph/internal/model"
)

const edgeColumns = `id, source_id, target_id, edge_type, label, weight, edge_source, evidence_id, confidence, created_at`

// InsertEdge inserts an edge, treating a duplicate (source, target, type)
// as an idempotent skip rather than an error (§7, §3.2 invariant 3).
func (s *Store) InsertEdge(e *model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO edges (`+edgeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, edge_type) DO NOTHING
	`,
		e.ID, e.SourceID, e.TargetID, string(e.EdgeType), e.Label,
		nullFloat(e.Weight), e.EdgeSource, nullString(e.EvidenceID), nullFloat(e.Confidence), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert edge %s: %w", e.ID, err)
	}
	return nil
}

// UpsertEdge inserts or, on a (source, target, type) collision, rewrites
// the edge's mutable fields — used when an importer re-runs over the same
// inputs and expects the latest label/weight to win.
func (s *Store) UpsertEdge(e *model.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		INSERT INTO edges (`+edgeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id, edge_type) DO UPDATE SET
			label = excluded.label,
			weight = excluded.weight,
			edge_source = excluded.edge_source,
			evidence_id = excluded.evidence_id,
			confidence = excluded.confidence
	`,
		e.ID, e.SourceID, e.TargetID, string(e.EdgeType), e.Label,
		nullFloat(e.Weight), e.EdgeSource, nullString(e.EvidenceID), nullFloat(e.Confidence), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: upsert edge %s: %w", e.ID, err)
	}
	return nil
}

// GetEdge fetches an edge by id.
func (s *Store) GetEdge(id string) (*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row := s.db.QueryRow(`SELECT `+edgeColumns+` FROM edges WHERE id = ?`, id)
	e, err := scanEdge(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get edge %s: %w", id, err)
	}
	return e, nil
}

// DeleteEdge removes an edge by id.
func (s *Store) DeleteEdge(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete edge %s: %w", id, err)
	}
	return nil
}

// GetBelongsToEdges returns an item's belongs_to edges, ordered by
// descending weight (highest-weight first is the primary association).
func (s *Store) GetBelongsToEdges(itemID string) ([]*model.Edge, error) {
	return s.queryEdges(`
		SELECT `+edgeColumns+` FROM edges
		WHERE source_id = ? AND edge_type = ?
		ORDER BY weight DESC
	`, itemID, string(model.EdgeBelongsTo))
}

// DeleteBelongsToEdges deletes only AI-sourced belongs_to edges for an
// item, preserving user-edited ones (§4.4 provenance rule).
func (s *Store) DeleteBelongsToEdges(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		DELETE FROM edges WHERE source_id = ? AND edge_type = ? AND edge_source != ?
	`, itemID, string(model.EdgeBelongsTo), model.SourceUser)
	if err != nil {
		return fmt.Errorf("store: delete_belongs_to_edges %s: %w", itemID, err)
	}
	return nil
}

// FindTopicNodeForCluster resolves a cluster id to its topic node, per the
// naming convention in §4.1: a stable `topic-{cluster_id}` id if present,
// else any non-item node carrying that cluster_id, else absent.
func (s *Store) FindTopicNodeForCluster(clusterID int) (*model.Node, error) {
	stableID := fmt.Sprintf("topic-%d", clusterID)
	if n, err := s.GetNode(stableID); err != nil {
		return nil, err
	} else if n != nil {
		return n, nil
	}

	nodes, err := s.queryNodes(`
		SELECT `+nodeColumns+` FROM nodes WHERE is_item = 0 AND cluster_id = ? LIMIT 1
	`, clusterID)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return nodes[0], nil
}

// DeleteSemanticEdges removes all AI-sourced `related` edges, per §4.3's
// "before regeneration" step.
func (s *Store) DeleteSemanticEdges() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		DELETE FROM edges WHERE edge_type = ? AND edge_source = ?
	`, string(model.EdgeRelated), model.SourceAI)
	if err != nil {
		return fmt.Errorf("store: delete_semantic_edges: %w", err)
	}
	return nil
}

// GetEdgesForNodes returns every edge whose source or target is in ids.
// Used by subtree export to attach every edge touching a node set (e.g.
// for a slim graph dump of one topic), including edges whose other
// endpoint lies outside the set.
func (s *Store) GetEdgesForNodes(ids []string) ([]*model.Edge, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)*2)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	in := "(" + strings.Join(placeholders, ",") + ")"
	args = append(args, args[:len(ids)]...)

	return s.queryEdges(`
		SELECT `+edgeColumns+` FROM edges
		WHERE source_id IN `+in+` OR target_id IN `+in+`
	`, args...)
}

// GetAllEdges returns every edge in the store, for passes that need the
// whole graph at once (e.g. structural analysis).
func (s *Store) GetAllEdges() ([]*model.Edge, error) {
	return s.queryEdges(`SELECT ` + edgeColumns + ` FROM edges`)
}

func (s *Store) queryEdges(query string, args ...any) ([]*model.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query edges: %w", err)
	}
	defer rows.Close()

	var out []*model.Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEdge(r rowScanner) (*model.Edge, error) {
	var e model.Edge
	var weight, confidence sql.NullFloat64
	var evidenceID sql.NullString
	var edgeType string

	err := r.Scan(&e.ID, &e.SourceID, &e.TargetID, &edgeType, &e.Label, &weight, &e.EdgeSource, &evidenceID, &confidence, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	e.EdgeType = model.EdgeType(edgeType)
	e.EvidenceID = evidenceID.String
	if weight.Valid {
		v := weight.Float64
		e.Weight = &v
	}
	if confidence.Valid {
		v := confidence.Float64
		e.Confidence = &v
	}
	return &e, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}
