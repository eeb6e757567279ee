// ABOUTME: SQLite schema for the query and segment embedding cache
// ABOUTME: One row per (model, text hash); vectors stored as float32 BLOBs
package sqlite

// Schema contains all SQL statements for database initialization
const Schema = `
CREATE TABLE IF NOT EXISTS embeddings (
    model TEXT NOT NULL,
    text_hash TEXT NOT NULL,
    dim INTEGER NOT NULL,
    vector BLOB NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (model, text_hash)
);

CREATE INDEX IF NOT EXISTS idx_embeddings_created ON embeddings(created_at);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1
