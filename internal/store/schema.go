package store

import "database/sql"

// schema defines the node/edge/learned-emoji tables plus a full-text index
// over (title, content), kept in sync by triggers per §6. It is applied
// with `CREATE TABLE IF NOT EXISTS` so Open is idempotent across process
// restarts, matching the teacher's single-constant schema style.
const schema = `
CREATE TABLE IF NOT EXISTS nodes (
    id TEXT PRIMARY KEY,

    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    url TEXT,
    content_type TEXT NOT NULL DEFAULT 'exploration',

    ai_title TEXT,
    summary TEXT,
    tags TEXT, -- JSON array
    emoji TEXT,
    embedding BLOB, -- little-endian float32 vector
    is_processed INTEGER NOT NULL DEFAULT 0,

    depth INTEGER NOT NULL DEFAULT 0,
    is_item INTEGER NOT NULL DEFAULT 1,
    is_universe INTEGER NOT NULL DEFAULT 0,
    parent_id TEXT REFERENCES nodes(id) ON DELETE CASCADE,
    child_count INTEGER NOT NULL DEFAULT 0,
    cluster_id INTEGER NOT NULL DEFAULT -1,
    cluster_label TEXT NOT NULL DEFAULT '',
    needs_clustering INTEGER NOT NULL DEFAULT 1,
    conversation_id TEXT,
    sequence_index INTEGER NOT NULL DEFAULT 0,
    is_pinned INTEGER NOT NULL DEFAULT 0,
    last_accessed_at INTEGER NOT NULL DEFAULT 0,
    latest_child_date INTEGER NOT NULL DEFAULT 0,
    is_private INTEGER, -- tri-state: NULL = unscanned
    privacy_reason TEXT NOT NULL DEFAULT '',

    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id);
CREATE INDEX IF NOT EXISTS idx_nodes_depth ON nodes(depth);
CREATE INDEX IF NOT EXISTS idx_nodes_cluster ON nodes(cluster_id);
CREATE INDEX IF NOT EXISTS idx_nodes_item ON nodes(is_item);
CREATE INDEX IF NOT EXISTS idx_nodes_processed ON nodes(is_processed) WHERE is_processed = 0;
CREATE INDEX IF NOT EXISTS idx_nodes_needs_clustering ON nodes(needs_clustering) WHERE needs_clustering = 1;
CREATE INDEX IF NOT EXISTS idx_nodes_conversation ON nodes(conversation_id, sequence_index);

CREATE TABLE IF NOT EXISTS edges (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    target_id TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
    edge_type TEXT NOT NULL,
    label TEXT NOT NULL DEFAULT '',
    weight REAL,
    edge_source TEXT NOT NULL DEFAULT '',
    evidence_id TEXT,
    confidence REAL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);
CREATE INDEX IF NOT EXISTS idx_edges_type ON edges(edge_type);
CREATE UNIQUE INDEX IF NOT EXISTS idx_edges_dedupe ON edges(source_id, target_id, edge_type);

CREATE TABLE IF NOT EXISTS learned_emojis (
    keyword TEXT PRIMARY KEY,
    emoji TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
    id UNINDEXED,
    title,
    content,
    content='nodes',
    content_rowid='rowid'
);

CREATE TRIGGER IF NOT EXISTS nodes_ai AFTER INSERT ON nodes BEGIN
    INSERT INTO nodes_fts(rowid, id, title, content) VALUES (new.rowid, new.id, new.title, new.content);
END;

CREATE TRIGGER IF NOT EXISTS nodes_ad AFTER DELETE ON nodes BEGIN
    INSERT INTO nodes_fts(nodes_fts, rowid, id, title, content) VALUES ('delete', old.rowid, old.id, old.title, old.content);
END;

CREATE TRIGGER IF NOT EXISTS nodes_au AFTER UPDATE ON nodes BEGIN
    INSERT INTO nodes_fts(nodes_fts, rowid, id, title, content) VALUES ('delete', old.rowid, old.id, old.title, old.content);
    INSERT INTO nodes_fts(rowid, id, title, content) VALUES (new.rowid, new.id, new.title, new.content);
END;
`

// migrate is the forward-only migration step Open runs after applying the
// schema, mirroring the teacher's idempotent migration stance (§4.1). The
// current schema version needs no added columns, so it probes nothing and
// changes nothing; it is the hook future columns attach to.
func migrate(db *sql.DB) error {
	return nil
}

// rebuildFTS rebuilds the full-text index from the nodes table, recovering
// from any interrupted write (§4.1: "rebuilt at every open").
func rebuildFTS(db *sql.DB) error {
	_, err := db.Exec(`INSERT INTO nodes_fts(nodes_fts) VALUES ('rebuild')`)
	return err
}
