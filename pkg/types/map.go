// Package types defines the document map data model shared across the
// DocAtlas system: the per-workspace map aggregate, its document and chunk
// entries, and the cross-reference indices used for one-shot retrieval.
package types

import "time"

// SizeClass classifies a document by whether it was chunked before indexing.
type SizeClass string

const (
	// SizeSmall marks a document indexed as a single unit.
	SizeSmall SizeClass = "small"

	// SizeLarge marks a document that was split into chunks, each with its
	// own map entry.
	SizeLarge SizeClass = "large"
)

// IsValid reports whether the size class is one of the known values.
func (s SizeClass) IsValid() bool {
	return s == SizeSmall || s == SizeLarge
}

// DocumentMap is the per-workspace aggregate root: a curated metadata index
// over all ingested documents. The map never stores body text, only metadata
// and retrieval hints, which keeps it small enough to hand to an LLM whole
// on every retrieval decision.
type DocumentMap struct {
	CorpusID        string              `json:"corpus_id"`        // Equals the workspace key
	LastUpdated     time.Time           `json:"last_updated"`     // Refreshed on every mutation
	CorpusSummary   string              `json:"corpus_summary"`   // Running free-text summary of the corpus
	Documents       []*DocumentMapEntry `json:"documents"`        // Insertion order, stable for deterministic output
	CrossReferences CrossReferences     `json:"cross_references"` // Entity and topic indices over document IDs
}

// DocumentMapEntry is one document's metadata record within the map.
type DocumentMapEntry struct {
	ID             string                 `json:"id"`                      // Unique within the workspace, immutable
	Filename       string                 `json:"filename"`                // Original filename
	Type           string                 `json:"type"`                    // Document-type classification (e.g. "report")
	SizeClass      SizeClass              `json:"size_class"`              // small or large
	Essence        string                 `json:"essence"`                 // Short synthesized description
	Topics         []string               `json:"topics"`                  // Topic strings
	Entities       map[string][]string    `json:"entities"`                // entity-type -> entity names
	RetrievalHints string                 `json:"retrieval_hints"`         // Free text aiding retrieval decisions
	AddedAt        time.Time              `json:"added_at"`                // When the document entered the map
	Relationships  []DocumentRelationship `json:"relationships,omitempty"` // Relations to prior documents
	Chunks         []ChunkMapEntry        `json:"chunks,omitempty"`        // Present only for large documents
}

// DocumentRelationship describes how one document relates to another already
// in the map. Descriptors referencing a later-removed document are left in
// place; cross-reference cleanup on removal is index-level only.
type DocumentRelationship struct {
	RelatedID   string `json:"related_id"`            // ID of the related document
	Type        string `json:"type"`                  // Relation type (e.g. "extends", "contradicts")
	Description string `json:"description,omitempty"` // Optional free-text explanation
}

// ChunkMapEntry is the map metadata for one chunk of a large document.
type ChunkMapEntry struct {
	ChunkID        string `json:"chunk_id"`        // Globally unique, see ChunkContentID
	Section        string `json:"section"`         // Heading or label of the chunk
	Context        string `json:"context"`         // This chunk's place within the document
	RetrievalHints string `json:"retrieval_hints"` // Free text aiding retrieval decisions
}

// CrossReferences holds the two independent indices from entity names and
// topic names to the IDs of documents mentioning them. Invariant: every ID in
// a value-set references a document currently present in the map, and no key
// maps to an empty set.
type CrossReferences struct {
	ByEntity map[string][]string `json:"by_entity"` // entity name -> document IDs
	ByTopic  map[string][]string `json:"by_topic"`  // topic name -> document IDs
}

// NewCrossReferences returns empty, non-nil cross-reference indices.
func NewCrossReferences() CrossReferences {
	return CrossReferences{
		ByEntity: make(map[string][]string),
		ByTopic:  make(map[string][]string),
	}
}

// NewDocumentMap creates an empty map skeleton for a workspace.
func NewDocumentMap(workspace string) *DocumentMap {
	return &DocumentMap{
		CorpusID:        workspace,
		LastUpdated:     time.Now().UTC(),
		Documents:       []*DocumentMapEntry{},
		CrossReferences: NewCrossReferences(),
	}
}

// Normalize ensures the inner maps and slices are non-nil. Maps deserialized
// from a blob may carry nil fields; callers mutate through the methods below,
// which all assume allocated maps.
func (m *DocumentMap) Normalize() {
	if m.Documents == nil {
		m.Documents = []*DocumentMapEntry{}
	}
	if m.CrossReferences.ByEntity == nil {
		m.CrossReferences.ByEntity = make(map[string][]string)
	}
	if m.CrossReferences.ByTopic == nil {
		m.CrossReferences.ByTopic = make(map[string][]string)
	}
}

// FindDocument returns the entry with the given ID, or nil if absent.
func (m *DocumentMap) FindDocument(id string) *DocumentMapEntry {
	for _, doc := range m.Documents {
		if doc.ID == id {
			return doc
		}
	}
	return nil
}

// FindChunk returns the chunk entry with the given chunk ID from the document
// with the given ID. Returns nil if either the document or chunk is absent.
func (m *DocumentMap) FindChunk(documentID, chunkID string) *ChunkMapEntry {
	doc := m.FindDocument(documentID)
	if doc == nil {
		return nil
	}
	for i := range doc.Chunks {
		if doc.Chunks[i].ChunkID == chunkID {
			return &doc.Chunks[i]
		}
	}
	return nil
}

// MergeCrossReferences unions incoming references into the map's indices.
// For each key in incoming, the key is created if absent and the incoming
// document IDs are added to the existing set, deduplicated. Merging the same
// incoming set twice leaves the indices unchanged (set-union idempotence).
func (m *DocumentMap) MergeCrossReferences(incoming CrossReferences) {
	m.Normalize()
	mergeRefIndex(m.CrossReferences.ByEntity, incoming.ByEntity)
	mergeRefIndex(m.CrossReferences.ByTopic, incoming.ByTopic)
}

func mergeRefIndex(existing, incoming map[string][]string) {
	for key, ids := range incoming {
		existing[key] = unionIDs(existing[key], ids)
	}
}

// unionIDs appends ids not already present, preserving existing order so the
// serialized map stays deterministic across merges.
func unionIDs(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		seen[id] = true
	}
	for _, id := range incoming {
		if !seen[id] {
			existing = append(existing, id)
			seen[id] = true
		}
	}
	return existing
}

// RemoveDocument removes the entry with the given ID, scrubs the ID from
// every cross-reference value-set in both indices, and deletes any key whose
// value-set became empty. Returns false without mutating when the ID is not
// present.
func (m *DocumentMap) RemoveDocument(documentID string) bool {
	m.Normalize()

	idx := -1
	for i, doc := range m.Documents {
		if doc.ID == documentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false
	}

	m.Documents = append(m.Documents[:idx], m.Documents[idx+1:]...)
	scrubRefIndex(m.CrossReferences.ByEntity, documentID)
	scrubRefIndex(m.CrossReferences.ByTopic, documentID)
	return true
}

func scrubRefIndex(index map[string][]string, documentID string) {
	for key, ids := range index {
		kept := ids[:0]
		for _, id := range ids {
			if id != documentID {
				kept = append(kept, id)
			}
		}
		if len(kept) == 0 {
			delete(index, key)
			continue
		}
		index[key] = kept
	}
}

// SeedCrossReferences builds cross-reference indices from a single entry's
// own entities and topics. Used when the first document enters an empty map
// and there is nothing yet to cross-reference against.
func SeedCrossReferences(entry *DocumentMapEntry) CrossReferences {
	refs := NewCrossReferences()
	for _, names := range entry.Entities {
		for _, name := range names {
			refs.ByEntity[name] = unionIDs(refs.ByEntity[name], []string{entry.ID})
		}
	}
	for _, topic := range entry.Topics {
		refs.ByTopic[topic] = unionIDs(refs.ByTopic[topic], []string{entry.ID})
	}
	return refs
}
