package sqlite

// Schema defines the SQLite schema for map and content storage.
//
// The document map is stored as one opaque JSON blob per workspace: the map
// is always loaded and saved whole, so relational decomposition would buy
// nothing and would complicate atomic replacement. Content rows carry the
// parent document ID so chunk text can be deleted alongside its document.
const Schema = `
CREATE TABLE IF NOT EXISTS document_maps (
    workspace  TEXT PRIMARY KEY,
    map_json   TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS document_contents (
    workspace   TEXT NOT NULL,
    document_id TEXT NOT NULL,
    content     TEXT NOT NULL,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (workspace, document_id)
);

CREATE TABLE IF NOT EXISTS chunk_contents (
    workspace   TEXT NOT NULL,
    chunk_id    TEXT NOT NULL,
    document_id TEXT NOT NULL,
    content     TEXT NOT NULL,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (workspace, chunk_id)
);

CREATE INDEX IF NOT EXISTS idx_chunk_contents_document
    ON chunk_contents(workspace, document_id);
`
