// Package store provides SQLite-backed persistence for the knowledge graph:
// nodes, edges, learned emojis, and a full-text search index, all in one
// database file. It follows the teacher's `internal/store/sqlite_store.go`
// shape directly: `database/sql` over `ncruces/go-sqlite3/driver`, a single
// `*sql.DB` guarded by a `sync.RWMutex`, a schema baked into one constant,
// and `ON CONFLICT` clauses on every insert (node inserts skip an existing
// id; edge and learned-emoji upserts update on their unique key).
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/kittclouds/kgraph/internal/annindex"
)

// Store is the SQLite-backed data store. One exclusive writer, many
// concurrent readers (§5): Go's database/sql pools connections for us, but
// mutating operations still serialize on mu to keep multi-statement writes
// (e.g. reparent + child_count bump) atomic from the caller's view.
type Store struct {
	mu  sync.RWMutex
	db  *sql.DB
	dim int // embedding dimension; fixed once any node has an embedding

	ann *annindex.Index
}

// Open opens (or creates) a store at dsn. Use ":memory:" for an ephemeral
// store, or a file path for persistent storage. dim is the embedding
// dimension this store instance will enforce (384 for local, 1536 for a
// remote provider, per §4.3); pass 0 to defer the decision until the first
// embedding is written, at which point it is locked in.
func Open(dsn string, dim int) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	if err := rebuildFTS(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: rebuild full-text index: %w", err)
	}

	s := &Store{db: db, dim: dim}

	if dim > 0 {
		ann, err := annindex.Open(db, dim)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("store: open ann index: %w", err)
		}
		s.ann = ann
	}

	return s, nil
}

// ANN returns the store's ANN index, creating it lazily at the first
// observed embedding dimension if Open was called with dim == 0.
func (s *Store) ANN() (*annindex.Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ann != nil {
		return s.ann, nil
	}
	if s.dim == 0 {
		return nil, fmt.Errorf("store: embedding dimension not yet established")
	}
	ann, err := annindex.Open(s.db, s.dim)
	if err != nil {
		return nil, err
	}
	s.ann = ann
	return ann, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int64) bool { return i != 0 }

// nullableBool converts a *bool (tri-state is_private) to sql.NullBool.
func nullableBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func boolPtr(nb sql.NullBool) *bool {
	if !nb.Valid {
		return nil
	}
	v := nb.Bool
	return &v
}
