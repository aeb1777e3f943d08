package types

import (
	"fmt"
	"strings"
)

// RefKind distinguishes whole-document references from chunk references.
type RefKind int

const (
	// RefDocument denotes a whole-document reference.
	RefDocument RefKind = iota

	// RefChunk denotes a reference to one chunk of a large document.
	RefChunk
)

// ContentRef is a parsed content identifier. Retrieval decisions arrive as
// flat strings ("doc_123" or "doc_123_c2"); the string encoding is confined
// to ParseContentRef and String so that the "_c" convention never leaks into
// control flow elsewhere.
type ContentRef struct {
	Kind       RefKind
	DocumentID string
	ChunkIndex int // Valid only when Kind == RefChunk
}

// ChunkContentID builds the globally unique content-store key for a chunk.
func ChunkContentID(documentID string, index int) string {
	return fmt.Sprintf("%s_c%d", documentID, index)
}

// ParseContentRef parses a retrieval identifier into a tagged reference.
// An identifier is a chunk reference when it ends in "_c<digits>"; anything
// else is a whole-document reference. Document IDs themselves must not
// contain a trailing "_c<digits>" segment; ID generation uses UUID-derived
// suffixes that cannot collide with the convention.
func ParseContentRef(id string) ContentRef {
	sep := strings.LastIndex(id, "_c")
	if sep <= 0 || sep+2 >= len(id) {
		return ContentRef{Kind: RefDocument, DocumentID: id}
	}

	suffix := id[sep+2:]
	index := 0
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return ContentRef{Kind: RefDocument, DocumentID: id}
		}
		index = index*10 + int(r-'0')
	}

	return ContentRef{
		Kind:       RefChunk,
		DocumentID: id[:sep],
		ChunkIndex: index,
	}
}

// String renders the reference back into its flat identifier form.
func (r ContentRef) String() string {
	if r.Kind == RefChunk {
		return ChunkContentID(r.DocumentID, r.ChunkIndex)
	}
	return r.DocumentID
}

// RetrievedContent is one resolved retrieval result: the identifier that was
// requested, the body text fetched from the content store, and a provenance
// context string describing where the content came from.
type RetrievedContent struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Context string `json:"context"`
}
