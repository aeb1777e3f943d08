// Package storage provides the persistence interfaces for the DocAtlas system.
//
// The layer is split into two small interfaces that can be implemented
// independently: MapStore persists the per-workspace document map as one
// opaque blob, and ContentStore holds write-once document and chunk body
// text. Both are keyed by workspace so that tenant isolation is explicit at
// every call site rather than hidden in connection state.
package storage

import (
	"context"

	"github.com/docatlas/docatlas/pkg/types"
)

// MapStore persists one document map per workspace.
type MapStore interface {
	// GetMap retrieves the persisted map for a workspace.
	// Returns ErrNotFound if no map has been saved yet.
	GetMap(ctx context.Context, workspace string) (*types.DocumentMap, error)

	// PutMap serializes the full map under the workspace key, overwriting
	// any prior value. This is the only path by which map state changes
	// durably.
	PutMap(ctx context.Context, workspace string, m *types.DocumentMap) error

	// DeleteMap removes the persisted map for a workspace.
	// Returns ErrNotFound if no map exists.
	DeleteMap(ctx context.Context, workspace string) error

	// Close releases any resources held by the store.
	Close() error
}

// ContentStore holds the full body text of documents and chunks, keyed by
// workspace plus content ID. Entries are write-once: created at ingestion,
// never mutated, deleted only alongside document removal.
type ContentStore interface {
	// PutDocumentContent stores the full text of a document.
	PutDocumentContent(ctx context.Context, workspace, documentID, content string) error

	// GetDocumentContent retrieves a document's full text.
	// Returns ErrNotFound if the document has no stored content.
	GetDocumentContent(ctx context.Context, workspace, documentID string) (string, error)

	// PutChunkContent stores the text of one chunk of a large document.
	PutChunkContent(ctx context.Context, workspace, chunkID, content string) error

	// GetChunkContent retrieves a chunk's text.
	// Returns ErrNotFound if the chunk has no stored content.
	GetChunkContent(ctx context.Context, workspace, chunkID string) (string, error)

	// DeleteDocumentContent removes a document's text and the text of all
	// its chunks. Removing an absent document is a no-op.
	DeleteDocumentContent(ctx context.Context, workspace, documentID string) error

	// Close releases any resources held by the store.
	Close() error
}
