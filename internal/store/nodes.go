package store

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"

	"github.com/kittclouds/kgraph/internal/model"
)

const nodeColumns = `id, title, content, url, content_type, ai_title, summary, tags, emoji,
	embedding, is_processed, depth, is_item, is_universe, parent_id, child_count,
	cluster_id, cluster_label, needs_clustering, conversation_id, sequence_index,
	is_pinned, last_accessed_at, latest_child_date, is_private, privacy_reason,
	created_at, updated_at`

// InsertNode inserts a brand-new node. A duplicate deterministic id is
// treated as an idempotent skip (§7), not an error.
func (s *Store) InsertNode(n *model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lockDimension(n); err != nil {
		return err
	}

	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("store: marshal tags: %w", err)
	}
	emb, err := encodeEmbedding(n.Embedding)
	if err != nil {
		return fmt.Errorf("store: encode embedding: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		n.ID, n.Title, n.Content, nullString(n.URL), string(n.ContentType),
		nullString(n.AITitle), nullString(n.Summary), string(tags), nullString(n.Emoji),
		emb, boolToInt(n.IsProcessed), n.Depth, boolToInt(n.IsItem), boolToInt(n.IsUniverse),
		nullString(derefStr(n.ParentID)), n.ChildCount,
		n.ClusterID, n.ClusterLabel, boolToInt(n.NeedsClustering), nullString(n.ConversationID), n.SequenceIndex,
		boolToInt(n.IsPinned), n.LastAccessedAt, n.LatestChildDate, nullableBool(n.IsPrivate), n.PrivacyReason,
		n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert node %s: %w", n.ID, err)
	}
	return nil
}

// lockDimension enforces "a store instance must not mix dimensions"
// (§4.3): the first embedding seen fixes s.dim for the lifetime of the
// store.
func (s *Store) lockDimension(n *model.Node) error {
	if len(n.Embedding) == 0 {
		return nil
	}
	if s.dim == 0 {
		s.dim = len(n.Embedding)
		return nil
	}
	if len(n.Embedding) != s.dim {
		return fmt.Errorf("%w: node has %d, store expects %d", ErrDimMismatch, len(n.Embedding), s.dim)
	}
	return nil
}

// GetNode fetches a single node by id. Returns (nil, nil) if absent.
func (s *Store) GetNode(id string) (*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get node %s: %w", id, err)
	}
	return n, nil
}

// UpdateNode replaces all mutable fields of an existing node (§4.1: "the
// update shape is replace all mutable fields by the given record").
func (s *Store) UpdateNode(n *model.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.lockDimension(n); err != nil {
		return err
	}

	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("store: marshal tags: %w", err)
	}
	emb, err := encodeEmbedding(n.Embedding)
	if err != nil {
		return fmt.Errorf("store: encode embedding: %w", err)
	}

	_, err = s.db.Exec(`
		UPDATE nodes SET
			title = ?, content = ?, url = ?, content_type = ?, ai_title = ?, summary = ?,
			tags = ?, emoji = ?, embedding = ?, is_processed = ?, depth = ?, is_item = ?,
			is_universe = ?, parent_id = ?, child_count = ?, cluster_id = ?, cluster_label = ?,
			needs_clustering = ?, conversation_id = ?, sequence_index = ?, is_pinned = ?,
			last_accessed_at = ?, latest_child_date = ?, is_private = ?, privacy_reason = ?,
			updated_at = ?
		WHERE id = ?
	`,
		n.Title, n.Content, nullString(n.URL), string(n.ContentType), nullString(n.AITitle), nullString(n.Summary),
		string(tags), nullString(n.Emoji), emb, boolToInt(n.IsProcessed), n.Depth, boolToInt(n.IsItem),
		boolToInt(n.IsUniverse), nullString(derefStr(n.ParentID)), n.ChildCount, n.ClusterID, n.ClusterLabel,
		boolToInt(n.NeedsClustering), nullString(n.ConversationID), n.SequenceIndex, boolToInt(n.IsPinned),
		n.LastAccessedAt, n.LatestChildDate, nullableBool(n.IsPrivate), n.PrivacyReason,
		n.UpdatedAt, n.ID,
	)
	if err != nil {
		return fmt.Errorf("store: update node %s: %w", n.ID, err)
	}
	return nil
}

// DeleteNode removes a node; outgoing/incoming edges cascade via the
// schema's ON DELETE CASCADE.
func (s *Store) DeleteNode(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete node %s: %w", id, err)
	}
	return nil
}

// --- field-scoped writes (§4.1) ---

// UpdateNodeAI persists the analyze step's output without touching other
// fields.
func (s *Store) UpdateNodeAI(id, aiTitle, summary string, tags []string, emoji string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("store: marshal tags: %w", err)
	}
	_, err = s.db.Exec(`
		UPDATE nodes SET ai_title = ?, summary = ?, tags = ?, emoji = ?, is_processed = 1
		WHERE id = ?
	`, nullString(aiTitle), nullString(summary), string(tagsJSON), nullString(emoji), id)
	if err != nil {
		return fmt.Errorf("store: update_node_ai %s: %w", id, err)
	}
	return nil
}

// UpdateNodeClustering sets the node's primary cluster assignment and
// clears needs_clustering.
func (s *Store) UpdateNodeClustering(id string, clusterID int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
		UPDATE nodes SET cluster_id = ?, cluster_label = ?, needs_clustering = 0 WHERE id = ?
	`, clusterID, label, id)
	if err != nil {
		return fmt.Errorf("store: update_node_clustering %s: %w", id, err)
	}
	return nil
}

// UpdateNodeEmbedding writes a node's embedding vector and, if an ANN index
// is attached, updates it incrementally.
func (s *Store) UpdateNodeEmbedding(id string, vec []float32) error {
	s.mu.Lock()
	if s.dim == 0 {
		s.dim = len(vec)
	} else if len(vec) != s.dim {
		s.mu.Unlock()
		return fmt.Errorf("%w: got %d, store expects %d", ErrDimMismatch, len(vec), s.dim)
	}

	emb, err := encodeEmbedding(vec)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("store: encode embedding: %w", err)
	}
	_, err = s.db.Exec(`UPDATE nodes SET embedding = ? WHERE id = ?`, emb, id)
	ann := s.ann
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("store: update_node_embedding %s: %w", id, err)
	}
	if ann != nil {
		_ = ann.Update(id, vec)
	}
	return nil
}

// UpdateNodePrivacy sets the tri-state privacy flag and reason.
func (s *Store) UpdateNodePrivacy(id string, isPrivate bool, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE nodes SET is_private = ?, privacy_reason = ? WHERE id = ?`,
		boolToInt(isPrivate), reason, id)
	if err != nil {
		return fmt.Errorf("store: update_node_privacy %s: %w", id, err)
	}
	return nil
}

// SetNodePinned toggles a node's pinned flag.
func (s *Store) SetNodePinned(id string, pinned bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE nodes SET is_pinned = ? WHERE id = ?`, boolToInt(pinned), id)
	if err != nil {
		return fmt.Errorf("store: set_node_pinned %s: %w", id, err)
	}
	return nil
}

// TouchNode bumps last_accessed_at.
func (s *Store) TouchNode(id string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE nodes SET last_accessed_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("store: touch_node %s: %w", id, err)
	}
	return nil
}

// ClearRecent resets last_accessed_at to zero across all nodes.
func (s *Store) ClearRecent() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE nodes SET last_accessed_at = 0`)
	if err != nil {
		return fmt.Errorf("store: clear_recent: %w", err)
	}
	return nil
}

// UpdateNodeHierarchy sets parent_id and depth together, as the hierarchy
// builder reparents a node.
func (s *Store) UpdateNodeHierarchy(id string, parentID *string, depth int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE nodes SET parent_id = ?, depth = ? WHERE id = ?`,
		nullString(derefStr(parentID)), depth, id)
	if err != nil {
		return fmt.Errorf("store: update_node_hierarchy %s: %w", id, err)
	}
	return nil
}

// UpdateChildCount sets a container's cached child_count.
func (s *Store) UpdateChildCount(id string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE nodes SET child_count = ? WHERE id = ?`, count, id)
	if err != nil {
		return fmt.Errorf("store: update_child_count %s: %w", id, err)
	}
	return nil
}

// --- bulk readers (§4.1) ---

func (s *Store) GetAllNodes() ([]*model.Node, error) { return s.queryNodes(`SELECT ` + nodeColumns + ` FROM nodes`) }

func (s *Store) GetItems() ([]*model.Node, error) {
	return s.queryNodes(`SELECT `+nodeColumns+` FROM nodes WHERE is_item = 1`)
}

func (s *Store) GetChildren(parentID string) ([]*model.Node, error) {
	return s.queryNodes(`SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ?`, parentID)
}

func (s *Store) GetNodesAtDepth(depth int) ([]*model.Node, error) {
	return s.queryNodes(`SELECT `+nodeColumns+` FROM nodes WHERE depth = ?`, depth)
}

func (s *Store) GetUniverse() (*model.Node, error) {
	nodes, err := s.queryNodes(`SELECT ` + nodeColumns + ` FROM nodes WHERE is_universe = 1 LIMIT 1`)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

func (s *Store) GetPinned() ([]*model.Node, error) {
	return s.queryNodes(`SELECT ` + nodeColumns + ` FROM nodes WHERE is_pinned = 1`)
}

func (s *Store) GetRecent(limit int) ([]*model.Node, error) {
	return s.queryNodes(`SELECT `+nodeColumns+` FROM nodes WHERE last_accessed_at > 0 ORDER BY last_accessed_at DESC LIMIT ?`, limit)
}

func (s *Store) GetUnprocessed() ([]*model.Node, error) {
	return s.queryNodes(`SELECT ` + nodeColumns + ` FROM nodes WHERE is_processed = 0 AND is_item = 1`)
}

func (s *Store) GetItemsNeedingClustering() ([]*model.Node, error) {
	return s.queryNodes(`SELECT ` + nodeColumns + ` FROM nodes WHERE needs_clustering = 1 AND is_item = 1`)
}

func (s *Store) GetNodesNeedingEmbeddings() ([]*model.Node, error) {
	return s.queryNodes(`SELECT ` + nodeColumns + ` FROM nodes WHERE embedding IS NULL AND (is_item = 1 OR ai_title IS NOT NULL OR title != '')`)
}

func (s *Store) GetNodesWithEmbeddings() ([]*model.Node, error) {
	return s.queryNodes(`SELECT ` + nodeColumns + ` FROM nodes WHERE embedding IS NOT NULL`)
}

// --- bulk maintenance (§4.1) ---

// MarkAllItemsNeedClustering sets needs_clustering = 1 on every item.
func (s *Store) MarkAllItemsNeedClustering() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE nodes SET needs_clustering = 1 WHERE is_item = 1`)
	if err != nil {
		return fmt.Errorf("store: mark_all_items_need_clustering: %w", err)
	}
	return nil
}

// DeleteHierarchyNodes deletes all containers except Universe (Phase A).
func (s *Store) DeleteHierarchyNodes() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM nodes WHERE is_item = 0 AND is_universe = 0`)
	if err != nil {
		return fmt.Errorf("store: delete_hierarchy_nodes: %w", err)
	}
	return nil
}

// ClearItemParents nulls parent_id on every item (Phase A).
func (s *Store) ClearItemParents() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE nodes SET parent_id = NULL WHERE is_item = 1`)
	if err != nil {
		return fmt.Errorf("store: clear_item_parents: %w", err)
	}
	return nil
}

// PropagateLatestDates sets each container's latest_child_date to the max
// created_at across its descendants, bottom-up by depth.
func (s *Store) PropagateLatestDates() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT DISTINCT depth FROM nodes ORDER BY depth DESC`)
	if err != nil {
		return fmt.Errorf("store: propagate_latest_dates: list depths: %w", err)
	}
	var depths []int
	for rows.Next() {
		var d int
		if err := rows.Scan(&d); err != nil {
			rows.Close()
			return fmt.Errorf("store: propagate_latest_dates: scan depth: %w", err)
		}
		depths = append(depths, d)
	}
	rows.Close()

	for _, d := range depths {
		_, err := s.db.Exec(`
			UPDATE nodes SET latest_child_date = (
				SELECT MAX(COALESCE(NULLIF(c.latest_child_date, 0), c.created_at))
				FROM nodes c WHERE c.parent_id = nodes.id
			)
			WHERE depth = ? - 1 AND EXISTS (SELECT 1 FROM nodes c WHERE c.parent_id = nodes.id)
		`, d)
		if err != nil {
			return fmt.Errorf("store: propagate_latest_dates: depth %d: %w", d, err)
		}
	}
	return nil
}

func (s *Store) queryNodes(query string, args ...any) ([]*model.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query nodes: %w", err)
	}
	defer rows.Close()

	var out []*model.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// rowScanner abstracts *sql.Row and *sql.Rows so scanNode serves both
// single-row and multi-row callers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNode(r rowScanner) (*model.Node, error) {
	var n model.Node
	var url, aiTitle, summary, emoji, parentID, conversationID sql.NullString
	var tagsJSON string
	var emb []byte
	var isProcessed, isItem, isUniverse, needsClustering, isPinned int64
	var isPrivate sql.NullBool

	err := r.Scan(
		&n.ID, &n.Title, &n.Content, &url, &n.ContentType, &aiTitle, &summary, &tagsJSON, &emoji,
		&emb, &isProcessed, &n.Depth, &isItem, &isUniverse, &parentID, &n.ChildCount,
		&n.ClusterID, &n.ClusterLabel, &needsClustering, &conversationID, &n.SequenceIndex,
		&isPinned, &n.LastAccessedAt, &n.LatestChildDate, &isPrivate, &n.PrivacyReason,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.URL = url.String
	n.AITitle = aiTitle.String
	n.Summary = summary.String
	n.Emoji = emoji.String
	n.ConversationID = conversationID.String
	n.IsProcessed = intToBool(isProcessed)
	n.IsItem = intToBool(isItem)
	n.IsUniverse = intToBool(isUniverse)
	n.NeedsClustering = intToBool(needsClustering)
	n.IsPinned = intToBool(isPinned)
	n.IsPrivate = boolPtr(isPrivate)
	if parentID.Valid {
		v := parentID.String
		n.ParentID = &v
	}
	if tagsJSON != "" {
		_ = json.Unmarshal([]byte(tagsJSON), &n.Tags)
	}
	if len(emb) > 0 {
		vec, err := decodeEmbedding(emb)
		if err != nil {
			return nil, fmt.Errorf("decode embedding: %w", err)
		}
		n.Embedding = vec
	}

	return &n, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// encodeEmbedding packs a unit vector as little-endian float32 bytes, the
// same raw layout the ANN's vec0 column expects, so the stored blob can be
// handed straight to the index on rebuild.
func encodeEmbedding(vec []float32) ([]byte, error) {
	if len(vec) == 0 {
		return nil, nil
	}
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf, nil
}

func decodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d not a multiple of 4", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
