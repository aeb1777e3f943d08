package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/docatlas/docatlas/internal/storage"
	"github.com/docatlas/docatlas/pkg/types"
)

// Store implements storage.MapStore and storage.ContentStore on SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database, configures WAL mode, and creates the
// schema. Use ":memory:" as the DSN for an ephemeral in-process store.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows concurrent readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Wait instead of failing immediately when the connection is held by
	// another goroutine.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetDB exposes the underlying connection for health checks and stats.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// GetMap retrieves the persisted document map for a workspace.
func (s *Store) GetMap(ctx context.Context, workspace string) (*types.DocumentMap, error) {
	if workspace == "" {
		return nil, fmt.Errorf("%w: workspace is required", storage.ErrInvalidInput)
	}

	var blob string
	err := s.db.QueryRowContext(ctx,
		"SELECT map_json FROM document_maps WHERE workspace = ?", workspace).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load map: %w", err)
	}

	var m types.DocumentMap
	if err := json.Unmarshal([]byte(blob), &m); err != nil {
		return nil, fmt.Errorf("failed to decode map blob: %w", err)
	}
	m.Normalize()
	return &m, nil
}

// PutMap serializes the full map under the workspace key (upsert semantics).
func (s *Store) PutMap(ctx context.Context, workspace string, m *types.DocumentMap) error {
	if workspace == "" {
		return fmt.Errorf("%w: workspace is required", storage.ErrInvalidInput)
	}
	if m == nil {
		return fmt.Errorf("%w: map is required", storage.ErrInvalidInput)
	}

	blob, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode map: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO document_maps (workspace, map_json)
		VALUES (?, ?)
		ON CONFLICT(workspace) DO UPDATE SET
			map_json = excluded.map_json,
			updated_at = CURRENT_TIMESTAMP
	`, workspace, string(blob))
	if err != nil {
		return fmt.Errorf("failed to save map: %w", err)
	}
	return nil
}

// DeleteMap removes the persisted map for a workspace.
func (s *Store) DeleteMap(ctx context.Context, workspace string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM document_maps WHERE workspace = ?", workspace)
	if err != nil {
		return fmt.Errorf("failed to delete map: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutDocumentContent stores the full text of a document (write-once; a
// second put for the same ID overwrites, which only happens on re-ingest).
func (s *Store) PutDocumentContent(ctx context.Context, workspace, documentID, content string) error {
	if workspace == "" || documentID == "" {
		return fmt.Errorf("%w: workspace and document ID are required", storage.ErrInvalidInput)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_contents (workspace, document_id, content)
		VALUES (?, ?, ?)
		ON CONFLICT(workspace, document_id) DO UPDATE SET
			content = excluded.content
	`, workspace, documentID, content)
	if err != nil {
		return fmt.Errorf("failed to store document content: %w", err)
	}
	return nil
}

// GetDocumentContent retrieves a document's full text.
func (s *Store) GetDocumentContent(ctx context.Context, workspace, documentID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		"SELECT content FROM document_contents WHERE workspace = ? AND document_id = ?",
		workspace, documentID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load document content: %w", err)
	}
	return content, nil
}

// PutChunkContent stores the text of one chunk. The parent document ID is
// recovered from the chunk ID so chunks can be purged with their document.
func (s *Store) PutChunkContent(ctx context.Context, workspace, chunkID, content string) error {
	if workspace == "" || chunkID == "" {
		return fmt.Errorf("%w: workspace and chunk ID are required", storage.ErrInvalidInput)
	}

	ref := types.ParseContentRef(chunkID)
	if ref.Kind != types.RefChunk {
		return fmt.Errorf("%w: %q is not a chunk ID", storage.ErrInvalidInput, chunkID)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunk_contents (workspace, chunk_id, document_id, content)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(workspace, chunk_id) DO UPDATE SET
			content = excluded.content
	`, workspace, chunkID, ref.DocumentID, content)
	if err != nil {
		return fmt.Errorf("failed to store chunk content: %w", err)
	}
	return nil
}

// GetChunkContent retrieves a chunk's text.
func (s *Store) GetChunkContent(ctx context.Context, workspace, chunkID string) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		"SELECT content FROM chunk_contents WHERE workspace = ? AND chunk_id = ?",
		workspace, chunkID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load chunk content: %w", err)
	}
	return content, nil
}

// DeleteDocumentContent removes a document's text and all its chunk text.
// Deleting an absent document is a no-op.
func (s *Store) DeleteDocumentContent(ctx context.Context, workspace, documentID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM document_contents WHERE workspace = ? AND document_id = ?",
		workspace, documentID); err != nil {
		return fmt.Errorf("failed to delete document content: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM chunk_contents WHERE workspace = ? AND document_id = ?",
		workspace, documentID); err != nil {
		return fmt.Errorf("failed to delete chunk content: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// Compile-time assertions that Store satisfies both storage interfaces.
var _ storage.MapStore = (*Store)(nil)
var _ storage.ContentStore = (*Store)(nil)
