package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/docatlas/docatlas/internal/storage"
	"github.com/docatlas/docatlas/pkg/types"
)

// Retriever makes one-shot retrieval decisions against the document map and
// resolves the chosen identifiers into content with provenance context.
// There is no secondary ranking pass: the map's curated hints are what make
// a single model consultation sufficient.
type Retriever struct {
	maps     storage.MapStore
	contents storage.ContentStore
	analyst  MapAnalyst
}

// NewRetriever creates a Retriever with the given stores and collaborator.
func NewRetriever(maps storage.MapStore, contents storage.ContentStore, analyst MapAnalyst) (*Retriever, error) {
	if maps == nil {
		return nil, fmt.Errorf("map store is required")
	}
	if contents == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if analyst == nil {
		return nil, fmt.Errorf("map analyst is required")
	}
	return &Retriever{maps: maps, contents: contents, analyst: analyst}, nil
}

// Retrieve decides which documents or chunks answer the query and returns
// their content. An empty workspace yields an empty result without a model
// call. The decision list is truncated to maxDocuments; identifiers whose
// content is missing are skipped, so the result may be shorter still.
func (r *Retriever) Retrieve(ctx context.Context, query, workspace string, maxDocuments int) ([]types.RetrievedContent, error) {
	if workspace == "" {
		return nil, fmt.Errorf("%w: workspace is required", storage.ErrInvalidInput)
	}
	if maxDocuments <= 0 {
		maxDocuments = DefaultMaxDocuments
	}

	dm, err := r.maps.GetMap(ctx, workspace)
	if errors.Is(err, storage.ErrNotFound) {
		return []types.RetrievedContent{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load map: %w", err)
	}
	if len(dm.Documents) == 0 {
		return []types.RetrievedContent{}, nil
	}

	ids, err := r.analyst.ConsultForRetrieval(ctx, query, dm, maxDocuments)
	if err != nil {
		return nil, fmt.Errorf("retrieval decision failed: %w", err)
	}
	if len(ids) > maxDocuments {
		ids = ids[:maxDocuments]
	}

	return r.resolve(ctx, workspace, dm, ids)
}

// RetrieveByIDs resolves caller-supplied identifiers directly, bypassing the
// retrieval decision. Used when the caller already knows what it wants.
func (r *Retriever) RetrieveByIDs(ctx context.Context, workspace string, ids []string) ([]types.RetrievedContent, error) {
	if workspace == "" {
		return nil, fmt.Errorf("%w: workspace is required", storage.ErrInvalidInput)
	}

	dm, err := r.maps.GetMap(ctx, workspace)
	if errors.Is(err, storage.ErrNotFound) {
		dm = types.NewDocumentMap(workspace)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load map: %w", err)
	}

	return r.resolve(ctx, workspace, dm, ids)
}

// resolve fetches content for each identifier in order. A missing content
// entry is a soft miss (logged, skipped); store failures propagate.
func (r *Retriever) resolve(ctx context.Context, workspace string, dm *types.DocumentMap, ids []string) ([]types.RetrievedContent, error) {
	results := make([]types.RetrievedContent, 0, len(ids))

	for _, id := range ids {
		ref := types.ParseContentRef(id)

		var resolved *types.RetrievedContent
		var err error
		if ref.Kind == types.RefChunk {
			resolved, err = r.resolveChunk(ctx, workspace, dm, ref)
		} else {
			resolved, err = r.resolveDocument(ctx, workspace, dm, ref)
		}
		if err != nil {
			return nil, err
		}
		if resolved == nil {
			log.Printf("retriever: skipping %s (no stored content)", id)
			continue
		}
		results = append(results, *resolved)
	}

	return results, nil
}

func (r *Retriever) resolveChunk(ctx context.Context, workspace string, dm *types.DocumentMap, ref types.ContentRef) (*types.RetrievedContent, error) {
	chunkID := ref.String()

	content, err := r.contents.GetChunkContent(ctx, workspace, chunkID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chunk %s: %w", chunkID, err)
	}

	context := fmt.Sprintf("Chunk %d of document %s", ref.ChunkIndex, ref.DocumentID)
	if doc := dm.FindDocument(ref.DocumentID); doc != nil {
		if chunk := dm.FindChunk(ref.DocumentID, chunkID); chunk != nil {
			context = fmt.Sprintf("From %s, section %q. %s", doc.Filename, chunk.Section, chunk.Context)
		} else {
			context = fmt.Sprintf("From %s. %s", doc.Filename, doc.Essence)
		}
	}

	return &types.RetrievedContent{ID: chunkID, Content: content, Context: context}, nil
}

func (r *Retriever) resolveDocument(ctx context.Context, workspace string, dm *types.DocumentMap, ref types.ContentRef) (*types.RetrievedContent, error) {
	content, err := r.contents.GetDocumentContent(ctx, workspace, ref.DocumentID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", ref.DocumentID, err)
	}

	context := fmt.Sprintf("Document %s", ref.DocumentID)
	if doc := dm.FindDocument(ref.DocumentID); doc != nil {
		context = fmt.Sprintf("%s: %s", doc.Filename, doc.Essence)
	}

	return &types.RetrievedContent{ID: ref.DocumentID, Content: content, Context: context}, nil
}
