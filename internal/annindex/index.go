// Package annindex wraps a `sqlite-vec` `vec0` virtual table as the
// approximate nearest-neighbor structure over the embedding cache (§3.3,
// §4.9). The teacher imports `asg017/sqlite-vec-go-bindings` only for its
// registration side effect; this package is the first real use of the
// extension, co-located as a virtual table inside the same database file
// rather than spec's file-based "sidecar" (see DESIGN.md for that
// decision). A `building` flag, set while a full rebuild is in flight,
// mirrors the "unbuilt index returns empty" contract of §4.9 — adapted
// from the atomic-guarded-mutation style of the teacher's
// `pkg/scanner/discovery/registry.go` CandidateStatus handling.
package annindex

import (
	"database/sql"
	"fmt"
	"sync/atomic"
)

// Index is an ANN index over fixed-dimension float32 vectors, backed by a
// vec0 virtual table plus a node_id<->rowid mapping table.
type Index struct {
	db  *sql.DB
	dim int

	building atomic.Bool
}

// Open creates (if absent) the vec0 virtual table and rowid-mapping table
// for dimension dim, and returns an Index wrapping them.
func Open(db *sql.DB, dim int) (*Index, error) {
	stmt := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS ann_vectors USING vec0(embedding float[%d])`, dim)
	if _, err := db.Exec(stmt); err != nil {
		return nil, fmt.Errorf("annindex: create vec0 table: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS ann_rowids (
			node_id TEXT PRIMARY KEY,
			vec_rowid INTEGER NOT NULL UNIQUE
		)
	`); err != nil {
		return nil, fmt.Errorf("annindex: create rowid map: %w", err)
	}
	return &Index{db: db, dim: dim}, nil
}

// Building reports whether a full rebuild is currently in progress; callers
// should fall back to brute force rather than querying mid-rebuild.
func (idx *Index) Building() bool {
	return idx.building.Load()
}

// Rebuild drops and repopulates the index from pairs, under the building
// flag. Safe to call concurrently with Search (which short-circuits to
// empty while building).
func (idx *Index) Rebuild(pairs map[string][]float32) error {
	idx.building.Store(true)
	defer idx.building.Store(false)

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("annindex: begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM ann_vectors`); err != nil {
		return fmt.Errorf("annindex: clear vectors: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM ann_rowids`); err != nil {
		return fmt.Errorf("annindex: clear rowid map: %w", err)
	}

	for nodeID, vec := range pairs {
		if len(vec) != idx.dim {
			continue
		}
		if err := insertOne(tx, nodeID, vec); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Update inserts or replaces a single node's vector. Best-effort
// incremental path for single-node embedding writes (§4.9); Rebuild is
// still needed after bulk structural change.
func (idx *Index) Update(nodeID string, vec []float32) error {
	if len(vec) != idx.dim {
		return fmt.Errorf("annindex: vector has dimension %d, want %d", len(vec), idx.dim)
	}

	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("annindex: begin update: %w", err)
	}
	defer tx.Rollback()

	if err := idx.removeTx(tx, nodeID); err != nil {
		return err
	}
	if err := insertOne(tx, nodeID, vec); err != nil {
		return err
	}
	return tx.Commit()
}

// Remove drops a node's vector from the index.
func (idx *Index) Remove(nodeID string) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("annindex: begin remove: %w", err)
	}
	defer tx.Rollback()
	if err := idx.removeTx(tx, nodeID); err != nil {
		return err
	}
	return tx.Commit()
}

func (idx *Index) removeTx(tx *sql.Tx, nodeID string) error {
	var vecRowID int64
	err := tx.QueryRow(`SELECT vec_rowid FROM ann_rowids WHERE node_id = ?`, nodeID).Scan(&vecRowID)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("annindex: lookup rowid: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM ann_vectors WHERE rowid = ?`, vecRowID); err != nil {
		return fmt.Errorf("annindex: delete vector: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM ann_rowids WHERE node_id = ?`, nodeID); err != nil {
		return fmt.Errorf("annindex: delete rowid map entry: %w", err)
	}
	return nil
}

func insertOne(tx *sql.Tx, nodeID string, vec []float32) error {
	blob, err := encodeVector(vec)
	if err != nil {
		return fmt.Errorf("annindex: encode vector: %w", err)
	}
	res, err := tx.Exec(`INSERT INTO ann_vectors(embedding) VALUES (?)`, blob)
	if err != nil {
		return fmt.Errorf("annindex: insert vector: %w", err)
	}
	vecRowID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("annindex: read inserted rowid: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO ann_rowids(node_id, vec_rowid) VALUES (?, ?)`, nodeID, vecRowID); err != nil {
		return fmt.Errorf("annindex: insert rowid map entry: %w", err)
	}
	return nil
}

// Match is one result of a Search call.
type Match struct {
	NodeID string
	Cosine float64
}

// Search returns up to k nearest neighbors of vec, excluding any node ID in
// exclude. While a Rebuild is in flight it returns an empty result so
// callers fall back to brute force, per §4.9.
func (idx *Index) Search(vec []float32, k int, exclude map[string]bool) ([]Match, error) {
	if idx.Building() {
		return nil, nil
	}
	if len(vec) != idx.dim {
		return nil, fmt.Errorf("annindex: query vector has dimension %d, want %d", len(vec), idx.dim)
	}

	blob, err := encodeVector(vec)
	if err != nil {
		return nil, fmt.Errorf("annindex: encode query vector: %w", err)
	}

	// Over-fetch to absorb exclusions, then trim to k.
	fetch := k + len(exclude) + 8

	rows, err := idx.db.Query(`
		SELECT r.node_id, v.distance
		FROM ann_vectors v
		JOIN ann_rowids r ON r.vec_rowid = v.rowid
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance
	`, blob, fetch)
	if err != nil {
		return nil, fmt.Errorf("annindex: query: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var nodeID string
		var dist float64
		if err := rows.Scan(&nodeID, &dist); err != nil {
			return nil, fmt.Errorf("annindex: scan match: %w", err)
		}
		if exclude[nodeID] {
			continue
		}
		out = append(out, Match{NodeID: nodeID, Cosine: distanceToCosine(dist)})
		if len(out) >= k {
			break
		}
	}
	return out, rows.Err()
}

// distanceToCosine converts the Euclidean distance the ANN produces over
// unit vectors into a cosine similarity: cos ≈ 1 − d²/2, exact when both
// vectors are unit length, clamped to [0,1] (§4.9).
func distanceToCosine(d float64) float64 {
	cos := 1 - (d*d)/2
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
