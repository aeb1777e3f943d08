package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/docatlas/docatlas/internal/storage"
	"github.com/docatlas/docatlas/pkg/types"
)

// MapManager incorporates newly ingested documents into the per-workspace
// document map and keeps cross-references and the corpus summary coherent.
//
// Concurrent mutations of the same workspace are serialized behind a
// per-workspace mutex: two concurrent AddDocument calls would otherwise both
// load the map, mutate independent in-memory copies, and silently lose
// whichever save lands first. Upload traffic is human-paced, so mutual
// exclusion costs nothing in practice.
type MapManager struct {
	maps    storage.MapStore
	analyst MapAnalyst

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	onMapUpdated func(workspace, event, documentID string)
}

// NewMapManager creates a MapManager with the given store and collaborator.
func NewMapManager(maps storage.MapStore, analyst MapAnalyst) (*MapManager, error) {
	if maps == nil {
		return nil, fmt.Errorf("map store is required")
	}
	if analyst == nil {
		return nil, fmt.Errorf("map analyst is required")
	}
	return &MapManager{
		maps:    maps,
		analyst: analyst,
		locks:   make(map[string]*sync.Mutex),
	}, nil
}

// SetOnMapUpdated sets a callback fired after a map mutation persists.
// Events are "document_added", "document_removed" and "workspace_deleted".
// Useful for pushing UI updates over WebSocket.
func (m *MapManager) SetOnMapUpdated(callback func(workspace, event, documentID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMapUpdated = callback
}

// workspaceLock returns the mutex serializing mutations for one workspace.
func (m *MapManager) workspaceLock(workspace string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[workspace]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[workspace] = lock
	}
	return lock
}

// loadOrInit returns the persisted map for a workspace, or a fresh empty
// skeleton when none exists yet. An unknown workspace is a normal initial
// state, never an error.
func (m *MapManager) loadOrInit(ctx context.Context, workspace string) (*types.DocumentMap, error) {
	dm, err := m.maps.GetMap(ctx, workspace)
	if errors.Is(err, storage.ErrNotFound) {
		return types.NewDocumentMap(workspace), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load map: %w", err)
	}
	return dm, nil
}

// GetMap returns the current map for a workspace as a read-only projection.
// Workspaces with no map yet get an empty skeleton.
func (m *MapManager) GetMap(ctx context.Context, workspace string) (*types.DocumentMap, error) {
	if workspace == "" {
		return nil, fmt.Errorf("%w: workspace is required", storage.ErrInvalidInput)
	}
	return m.loadOrInit(ctx, workspace)
}

// AddDocument incorporates one newly ingested document into the workspace's
// map: extract intelligence from the body text, relate the new entry to the
// existing corpus (or bootstrap the map if this is the first document), then
// persist the whole map in a single save.
//
// All mutation happens on an in-memory copy; if extraction, the map update,
// or the save fails, the stored map is left exactly as it was. Body text is
// read only by the extraction call and never enters the map.
func (m *MapManager) AddDocument(ctx context.Context, workspace string, req AddDocumentRequest) (*types.DocumentMapEntry, error) {
	if workspace == "" {
		return nil, fmt.Errorf("%w: workspace is required", storage.ErrInvalidInput)
	}
	if req.DocumentID == "" {
		return nil, fmt.Errorf("%w: document ID is required", storage.ErrInvalidInput)
	}
	if types.ParseContentRef(req.DocumentID).Kind != types.RefDocument {
		// An ID ending in "_c<digits>" would be parsed as a chunk reference
		// at retrieval and the document would never resolve.
		return nil, fmt.Errorf("%w: document ID %q ends in a chunk suffix", storage.ErrInvalidInput, req.DocumentID)
	}
	if req.Filename == "" {
		return nil, fmt.Errorf("%w: filename is required", storage.ErrInvalidInput)
	}
	if req.Content == "" {
		return nil, fmt.Errorf("%w: content is required", storage.ErrInvalidInput)
	}
	if !req.SizeClass.IsValid() {
		return nil, fmt.Errorf("%w: unknown size class %q", storage.ErrInvalidInput, req.SizeClass)
	}

	lock := m.workspaceLock(workspace)
	lock.Lock()
	defer lock.Unlock()

	dm, err := m.loadOrInit(ctx, workspace)
	if err != nil {
		return nil, err
	}

	if dm.FindDocument(req.DocumentID) != nil {
		return nil, fmt.Errorf("%w: document %q already in map", storage.ErrInvalidInput, req.DocumentID)
	}

	intel, err := m.analyst.ExtractIntelligence(ctx, req.Content, req.Filename)
	if err != nil {
		return nil, fmt.Errorf("intelligence extraction failed: %w", err)
	}

	entry := &types.DocumentMapEntry{
		ID:             req.DocumentID,
		Filename:       req.Filename,
		Type:           intel.DocumentType,
		SizeClass:      req.SizeClass,
		Essence:        intel.Essence,
		Topics:         intel.Topics,
		Entities:       intel.Entities,
		RetrievalHints: intel.RetrievalHints,
		AddedAt:        time.Now().UTC(),
	}

	for i, chunk := range req.Chunks {
		entry.Chunks = append(entry.Chunks, types.ChunkMapEntry{
			ChunkID:        types.ChunkContentID(req.DocumentID, i),
			Section:        chunk.Section,
			Context:        fmt.Sprintf("Section %d of %d in %s", i+1, len(req.Chunks), req.Filename),
			RetrievalHints: fmt.Sprintf("Part of %s: %s", req.Filename, chunk.Section),
		})
	}

	if len(dm.Documents) > 0 {
		// The relationship prompt needs existing documents to compare
		// against; it runs against the map as it was before this entry.
		update, err := m.analyst.UpdateMap(ctx, dm, entry)
		if err != nil {
			return nil, fmt.Errorf("map update failed: %w", err)
		}
		entry.Relationships = update.Relationships
		dm.MergeCrossReferences(update.NewCrossReferences)
		if update.UpdatedCorpusSummary != "" {
			dm.CorpusSummary = update.UpdatedCorpusSummary
		}
	} else {
		// First document: nothing to cross-reference against, so seed the
		// summary and indices from the entry itself without a model call.
		dm.CorpusSummary = fmt.Sprintf("Corpus containing: %s. %s", req.Filename, intel.Essence)
		dm.MergeCrossReferences(types.SeedCrossReferences(entry))
	}

	dm.Documents = append(dm.Documents, entry)
	dm.LastUpdated = time.Now().UTC()

	if err := m.maps.PutMap(ctx, workspace, dm); err != nil {
		return nil, fmt.Errorf("failed to persist map: %w", err)
	}

	log.Printf("map_manager: added document %s (%s) to workspace %s (documents: %d)",
		req.DocumentID, req.Filename, workspace, len(dm.Documents))
	m.notify(workspace, "document_added", req.DocumentID)

	return entry, nil
}

// RemoveDocument removes a document's entry and scrubs it from the
// cross-reference indices, then persists. Returns false when the document is
// not in the map; an unknown workspace behaves like an empty map.
// Relationship descriptors inside other entries that reference the removed
// document are left stale.
func (m *MapManager) RemoveDocument(ctx context.Context, workspace, documentID string) (bool, error) {
	if workspace == "" {
		return false, fmt.Errorf("%w: workspace is required", storage.ErrInvalidInput)
	}
	if documentID == "" {
		return false, fmt.Errorf("%w: document ID is required", storage.ErrInvalidInput)
	}

	lock := m.workspaceLock(workspace)
	lock.Lock()
	defer lock.Unlock()

	dm, err := m.loadOrInit(ctx, workspace)
	if err != nil {
		return false, err
	}

	if !dm.RemoveDocument(documentID) {
		return false, nil
	}

	dm.LastUpdated = time.Now().UTC()
	if err := m.maps.PutMap(ctx, workspace, dm); err != nil {
		return false, fmt.Errorf("failed to persist map: %w", err)
	}

	log.Printf("map_manager: removed document %s from workspace %s (documents: %d)",
		documentID, workspace, len(dm.Documents))
	m.notify(workspace, "document_removed", documentID)

	return true, nil
}

// DeleteWorkspace drops a workspace's map entirely. It returns the IDs of
// the documents the map contained so callers can purge their stored body
// text, and whether a map existed at all.
func (m *MapManager) DeleteWorkspace(ctx context.Context, workspace string) ([]string, bool, error) {
	if workspace == "" {
		return nil, false, fmt.Errorf("%w: workspace is required", storage.ErrInvalidInput)
	}

	lock := m.workspaceLock(workspace)
	lock.Lock()
	defer lock.Unlock()

	dm, err := m.maps.GetMap(ctx, workspace)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load map: %w", err)
	}

	ids := make([]string, 0, len(dm.Documents))
	for _, doc := range dm.Documents {
		ids = append(ids, doc.ID)
	}

	if err := m.maps.DeleteMap(ctx, workspace); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, false, fmt.Errorf("failed to delete map: %w", err)
	}

	log.Printf("map_manager: deleted workspace %s (documents: %d)", workspace, len(ids))
	m.notify(workspace, "workspace_deleted", "")

	return ids, true, nil
}

func (m *MapManager) notify(workspace, event, documentID string) {
	m.mu.Lock()
	callback := m.onMapUpdated
	m.mu.Unlock()
	if callback != nil {
		callback(workspace, event, documentID)
	}
}
