package store

import (
	"database/sql"
	"fmt"
)

// TidyReport counts what each idempotent fixup operation changed; a second
// consecutive run should report all zeros (§8 property 10, scenario S6).
type TidyReport struct {
	MergedDuplicateSiblings int
	FlattenedSingleChildren int
	RemovedEmptyCategories  int
	RecomputedChildCounts   int
	RecomputedDepths        int
	ReparentedOrphans       int
	PrunedDanglingEdges     int
	DeduplicatedEdges       int
}

// TidyDatabase is the idempotent maintenance pass described in §4.6: merge
// same-name children under the same parent, flatten single-child chains,
// remove empty categories, recompute child_count/depth, reparent orphans
// under Universe, prune dangling edges, and de-duplicate edges sharing
// (source, target, edge_type). Every step is driven by the shared nodes
// table, matching the teacher's plain-SQL-per-operation style rather than
// an in-memory graph rebuild.
func (s *Store) TidyDatabase() (*TidyReport, error) {
	report := &TidyReport{}

	if err := s.tidyMergeDuplicateSiblings(report); err != nil {
		return nil, fmt.Errorf("store: tidy merge duplicate siblings: %w", err)
	}
	if err := s.tidyFlattenSingleChildChains(report); err != nil {
		return nil, fmt.Errorf("store: tidy flatten single-child chains: %w", err)
	}
	if err := s.tidyRemoveEmptyCategories(report); err != nil {
		return nil, fmt.Errorf("store: tidy remove empty categories: %w", err)
	}
	if err := s.tidyReparentOrphans(report); err != nil {
		return nil, fmt.Errorf("store: tidy reparent orphans: %w", err)
	}
	if err := s.tidyRecomputeDepths(report); err != nil {
		return nil, fmt.Errorf("store: tidy recompute depths: %w", err)
	}
	if err := s.tidyRecomputeChildCounts(report); err != nil {
		return nil, fmt.Errorf("store: tidy recompute child counts: %w", err)
	}
	if err := s.tidyPruneDanglingEdges(report); err != nil {
		return nil, fmt.Errorf("store: tidy prune dangling edges: %w", err)
	}
	if err := s.tidyDeduplicateEdges(report); err != nil {
		return nil, fmt.Errorf("store: tidy deduplicate edges: %w", err)
	}

	return report, nil
}

// tidyMergeDuplicateSiblings merges containers that share a (parent_id,
// title) pair: children of all but the first are reparented to the
// survivor, then the duplicates are deleted.
func (s *Store) tidyMergeDuplicateSiblings(report *TidyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`
		SELECT parent_id, title, GROUP_CONCAT(id) FROM nodes
		WHERE is_item = 0 AND is_universe = 0
		GROUP BY parent_id, title
		HAVING COUNT(*) > 1
	`)
	if err != nil {
		return err
	}
	type group struct {
		parent string
		ids    []string
	}
	var groups []group
	for rows.Next() {
		var parent, title, idList string
		if err := rows.Scan(&parent, &title, &idList); err != nil {
			rows.Close()
			return err
		}
		groups = append(groups, group{parent: parent, ids: splitCSV(idList)})
	}
	rows.Close()

	for _, g := range groups {
		if len(g.ids) < 2 {
			continue
		}
		survivor, dupes := g.ids[0], g.ids[1:]
		for _, dup := range dupes {
			if _, err := s.db.Exec(`UPDATE nodes SET parent_id = ? WHERE parent_id = ?`, survivor, dup); err != nil {
				return err
			}
			if _, err := s.db.Exec(`DELETE FROM nodes WHERE id = ?`, dup); err != nil {
				return err
			}
			report.MergedDuplicateSiblings++
		}
	}
	return nil
}

// tidyFlattenSingleChildChains collapses A -> B -> [children] into
// A -> [children] whenever a container has exactly one child that is
// itself a container, repeating until no chain remains.
func (s *Store) tidyFlattenSingleChildChains(report *TidyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		var childID, parentID string
		err := s.db.QueryRow(`
			SELECT c.id, c.parent_id FROM nodes c
			WHERE c.is_item = 0 AND c.is_universe = 0
			AND (SELECT COUNT(*) FROM nodes gc WHERE gc.parent_id = c.parent_id) = 1
			AND c.parent_id IS NOT NULL
			AND (SELECT is_universe FROM nodes p WHERE p.id = c.parent_id) = 0
			LIMIT 1
		`).Scan(&childID, &parentID)
		if err != nil {
			break
		}
		if _, err := s.db.Exec(`UPDATE nodes SET parent_id = ? WHERE parent_id = ?`, parentID, childID); err != nil {
			return err
		}
		if _, err := s.db.Exec(`DELETE FROM nodes WHERE id = ?`, childID); err != nil {
			return err
		}
		report.FlattenedSingleChildren++
	}
	return nil
}

// tidyRemoveEmptyCategories deletes non-universe containers with no
// children, repeating since removal can empty out a former parent.
func (s *Store) tidyRemoveEmptyCategories(report *TidyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		res, err := s.db.Exec(`
			DELETE FROM nodes WHERE is_item = 0 AND is_universe = 0
			AND id NOT IN (SELECT DISTINCT parent_id FROM nodes WHERE parent_id IS NOT NULL)
		`)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		report.RemovedEmptyCategories += int(n)
		if n == 0 {
			break
		}
	}
	return nil
}

// tidyReparentOrphans attaches nodes whose parent_id references a
// now-missing node under Universe.
func (s *Store) tidyReparentOrphans(report *TidyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var universeID string
	if err := s.db.QueryRow(`SELECT id FROM nodes WHERE is_universe = 1 LIMIT 1`).Scan(&universeID); err != nil {
		return nil // no universe yet; nothing to reparent under
	}

	res, err := s.db.Exec(`
		UPDATE nodes SET parent_id = ?
		WHERE parent_id IS NOT NULL
		AND parent_id NOT IN (SELECT id FROM nodes)
		AND is_universe = 0
	`, universeID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	report.ReparentedOrphans = int(n)
	return nil
}

// tidyRecomputeDepths walks parent chains from Universe outward, setting
// each node's depth to parent.depth + 1.
func (s *Store) tidyRecomputeDepths(report *TidyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var universeID string
	if err := s.db.QueryRow(`SELECT id FROM nodes WHERE is_universe = 1 LIMIT 1`).Scan(&universeID); err != nil {
		return nil
	}
	if _, err := s.db.Exec(`UPDATE nodes SET depth = 0 WHERE id = ?`, universeID); err != nil {
		return err
	}

	frontier := []string{universeID}
	depth := 1
	for len(frontier) > 0 {
		placeholders := make([]any, len(frontier))
		for i, id := range frontier {
			placeholders[i] = id
		}
		query, args := inClause(`SELECT id FROM nodes WHERE parent_id IN (%s)`, placeholders)
		rows, err := s.db.Query(query, args...)
		if err != nil {
			return err
		}
		var next []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			next = append(next, id)
		}
		rows.Close()
		if len(next) == 0 {
			break
		}

		updQuery, updArgs := inClause(`UPDATE nodes SET depth = ? WHERE depth != ? AND id IN (%s)`, toAny(next))
		args2 := append([]any{depth, depth}, updArgs...)
		res, err := s.db.Exec(updQuery, args2...)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		report.RecomputedDepths += int(n)

		frontier = next
		depth++
	}
	return nil
}

// tidyRecomputeChildCounts sets each container's child_count to the actual
// number of nodes referencing it as parent_id (§3.1 invariant 5).
func (s *Store) tidyRecomputeChildCounts(report *TidyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		UPDATE nodes SET child_count = (
			SELECT COUNT(*) FROM nodes c WHERE c.parent_id = nodes.id
		)
		WHERE is_item = 0
		AND child_count != (SELECT COUNT(*) FROM nodes c WHERE c.parent_id = nodes.id)
	`)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	report.RecomputedChildCounts = int(n)
	return nil
}

// tidyPruneDanglingEdges removes edges whose endpoints no longer exist;
// normally unnecessary thanks to ON DELETE CASCADE, but catches edges left
// behind by a bulk import that bypassed node deletion.
func (s *Store) tidyPruneDanglingEdges(report *TidyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		DELETE FROM edges
		WHERE source_id NOT IN (SELECT id FROM nodes) OR target_id NOT IN (SELECT id FROM nodes)
	`)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	report.PrunedDanglingEdges = int(n)
	return nil
}

// tidyDeduplicateEdges keeps the highest-weight edge among any set sharing
// (source, target, edge_type); the schema's unique index normally prevents
// this, but an import path using raw inserts could still create one.
func (s *Store) tidyDeduplicateEdges(report *TidyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`
		DELETE FROM edges WHERE id NOT IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (
					PARTITION BY source_id, target_id, edge_type
					ORDER BY weight DESC, created_at DESC
				) AS rn
				FROM edges
			) WHERE rn = 1
		)
	`)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	report.DeduplicatedEdges = int(n)
	return nil
}

// FlattenEmptyLevels runs the narrower of the two flattening operations
// named in §4.6: collapsing single-child container chains and removing
// "Uncategorized" passthrough topics, without the rest of TidyDatabase's
// fixups.
func (s *Store) FlattenEmptyLevels() (*TidyReport, error) {
	report := &TidyReport{}
	if err := s.tidyFlattenSingleChildChains(report); err != nil {
		return nil, fmt.Errorf("store: flatten_empty_levels: chains: %w", err)
	}
	if err := s.tidyRemoveUncategorizedPassthroughs(report); err != nil {
		return nil, fmt.Errorf("store: flatten_empty_levels: uncategorized: %w", err)
	}
	return report, nil
}

// tidyRemoveUncategorizedPassthroughs collapses any non-root container
// literally titled "Uncategorized" into its parent: children are reparented
// one level up and the passthrough node is deleted.
func (s *Store) tidyRemoveUncategorizedPassthroughs(report *TidyReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		var id string
		var parentID sql.NullString
		err := s.db.QueryRow(`
			SELECT id, parent_id FROM nodes
			WHERE is_item = 0 AND is_universe = 0 AND title = 'Uncategorized'
			LIMIT 1
		`).Scan(&id, &parentID)
		if err != nil {
			break
		}
		if !parentID.Valid {
			break
		}
		if _, err := s.db.Exec(`UPDATE nodes SET parent_id = ? WHERE parent_id = ?`, parentID.String, id); err != nil {
			return err
		}
		if _, err := s.db.Exec(`DELETE FROM nodes WHERE id = ?`, id); err != nil {
			return err
		}
		report.FlattenedSingleChildren++
	}
	return nil
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func inClause(tpl string, args []any) (string, []any) {
	placeholders := ""
	for i := range args {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
	}
	return fmt.Sprintf(tpl, placeholders), args
}
