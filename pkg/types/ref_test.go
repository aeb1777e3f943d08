package types_test

import (
	"testing"

	"github.com/docatlas/docatlas/pkg/types"
)

func TestParseContentRef(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want types.ContentRef
	}{
		{
			name: "plain document ID",
			id:   "doc_a1b2c3d4",
			want: types.ContentRef{Kind: types.RefDocument, DocumentID: "doc_a1b2c3d4"},
		},
		{
			name: "chunk reference",
			id:   "doc_a1b2c3d4_c2",
			want: types.ContentRef{Kind: types.RefChunk, DocumentID: "doc_a1b2c3d4", ChunkIndex: 2},
		},
		{
			name: "chunk index zero",
			id:   "doc_a1b2c3d4_c0",
			want: types.ContentRef{Kind: types.RefChunk, DocumentID: "doc_a1b2c3d4", ChunkIndex: 0},
		},
		{
			name: "multi-digit chunk index",
			id:   "doc_a1b2c3d4_c12",
			want: types.ContentRef{Kind: types.RefChunk, DocumentID: "doc_a1b2c3d4", ChunkIndex: 12},
		},
		{
			name: "non-digit suffix is a document",
			id:   "doc_chapter",
			want: types.ContentRef{Kind: types.RefDocument, DocumentID: "doc_chapter"},
		},
		{
			name: "trailing _c without digits is a document",
			id:   "doc_123_c",
			want: types.ContentRef{Kind: types.RefDocument, DocumentID: "doc_123_c"},
		},
		{
			name: "separator at the start is a document",
			id:   "_c5",
			want: types.ContentRef{Kind: types.RefDocument, DocumentID: "_c5"},
		},
		{
			name: "only the last _c counts",
			id:   "doc_c1_c3",
			want: types.ContentRef{Kind: types.RefChunk, DocumentID: "doc_c1", ChunkIndex: 3},
		},
		{
			name: "empty string",
			id:   "",
			want: types.ContentRef{Kind: types.RefDocument, DocumentID: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := types.ParseContentRef(tt.id)
			if got != tt.want {
				t.Errorf("ParseContentRef(%q) = %+v, want %+v", tt.id, got, tt.want)
			}
		})
	}
}

func TestContentRefRoundTrip(t *testing.T) {
	ids := []string{"doc_a1b2c3d4", "doc_a1b2c3d4_c0", "doc_a1b2c3d4_c17"}
	for _, id := range ids {
		if got := types.ParseContentRef(id).String(); got != id {
			t.Errorf("round trip of %q produced %q", id, got)
		}
	}
}

func TestChunkContentID(t *testing.T) {
	id := types.ChunkContentID("doc_a1b2c3d4", 3)
	if id != "doc_a1b2c3d4_c3" {
		t.Errorf("expected doc_a1b2c3d4_c3, got %q", id)
	}

	ref := types.ParseContentRef(id)
	if ref.Kind != types.RefChunk || ref.DocumentID != "doc_a1b2c3d4" || ref.ChunkIndex != 3 {
		t.Errorf("generated chunk ID did not parse back: %+v", ref)
	}
}
