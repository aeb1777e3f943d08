// Package engine contains the two core engines of the DocAtlas system: the
// MapManager, which incorporates documents into the per-workspace document
// map, and the Retriever, which turns one-shot retrieval decisions into
// resolved content. Both engines receive their stores and the language-model
// collaborator by injection; workspace is an explicit key on every call.
package engine

import (
	"context"

	"github.com/docatlas/docatlas/internal/llm"
	"github.com/docatlas/docatlas/pkg/types"
)

// MapAnalyst is the language-model collaborator the engines depend on.
// Implemented by intelligence.Analyzer; tests substitute mocks.
type MapAnalyst interface {
	// ExtractIntelligence derives structured metadata from raw document text.
	ExtractIntelligence(ctx context.Context, content, filename string) (*llm.IntelligenceResponse, error)

	// UpdateMap relates a new entry to the existing corpus: relationships,
	// new cross-references, and an updated corpus summary.
	UpdateMap(ctx context.Context, existing *types.DocumentMap, entry *types.DocumentMapEntry) (*llm.MapUpdateResponse, error)

	// ConsultForRetrieval returns the ordered content identifiers the model
	// judges relevant to the query, given the whole map in one call.
	ConsultForRetrieval(ctx context.Context, query string, m *types.DocumentMap, maxResults int) ([]string, error)
}

// ChunkInput is one pre-chunked unit of a large document, as produced by the
// chunking pipeline: a section label, the chunk text, and a token estimate.
// The engine indexes the section metadata; chunk text is persisted to the
// content store by the ingestion caller, never by the map path.
type ChunkInput struct {
	Section    string
	Content    string
	TokenCount int
}

// AddDocumentRequest carries one newly ingested document into the map.
type AddDocumentRequest struct {
	DocumentID string
	Filename   string
	Content    string
	SizeClass  types.SizeClass
	Chunks     []ChunkInput // Present only for large documents
}

// DefaultMaxDocuments bounds a retrieval decision when the caller does not
// specify a limit.
const DefaultMaxDocuments = 5
