package chunker

import (
	"strings"
	"testing"

	"github.com/docatlas/docatlas/pkg/types"
)

func TestSizeClass(t *testing.T) {
	c := New()

	if got := c.SizeClass("short note"); got != types.SizeSmall {
		t.Errorf("expected small, got %s", got)
	}

	// ~4 chars per token, so 3000 tokens is roughly 12000 chars.
	big := strings.Repeat("word ", 4000)
	if got := c.SizeClass(big); got != types.SizeLarge {
		t.Errorf("expected large, got %s", got)
	}
}

func TestSplitEmptyContent(t *testing.T) {
	c := New()
	if chunks := c.Split("   \n\t  "); chunks != nil {
		t.Errorf("expected no chunks for whitespace, got %d", len(chunks))
	}
}

func TestSplitByHeadings(t *testing.T) {
	c := New()
	content := "Intro paragraph before any heading.\n" +
		"# Background\nSome background text.\n" +
		"## Methods\nThe methods used.\n"

	chunks := c.Split(content)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0].Section != "Section 1" {
		t.Errorf("expected positional label for preamble, got %q", chunks[0].Section)
	}
	if chunks[1].Section != "Background" {
		t.Errorf("expected Background, got %q", chunks[1].Section)
	}
	if chunks[2].Section != "Methods" {
		t.Errorf("expected Methods, got %q", chunks[2].Section)
	}
	if !strings.Contains(chunks[2].Content, "The methods used.") {
		t.Errorf("chunk content lost: %q", chunks[2].Content)
	}
}

func TestSplitOversizeSection(t *testing.T) {
	c := New()
	c.MaxChunkTokens = 20

	// Each sentence is ~10 tokens, so 10 sentences must split into parts.
	var b strings.Builder
	b.WriteString("# Big Section\n")
	for i := 0; i < 10; i++ {
		b.WriteString("This is a sentence with enough words to count. ")
	}

	chunks := c.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected oversize section to split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if !strings.HasPrefix(chunk.Section, "Big Section (part ") {
			t.Errorf("chunk %d has unexpected section %q", i, chunk.Section)
		}
		if chunk.TokenCount > c.MaxChunkTokens+10 {
			t.Errorf("chunk %d exceeds budget: %d tokens", i, chunk.TokenCount)
		}
	}
}

func TestSplitPreservesAllText(t *testing.T) {
	c := New()
	content := "# One\nFirst section text.\n# Two\nSecond section text.\n"

	var joined strings.Builder
	for _, chunk := range c.Split(content) {
		joined.WriteString(chunk.Content)
		joined.WriteString(" ")
	}
	for _, want := range []string{"First section text.", "Second section text."} {
		if !strings.Contains(joined.String(), want) {
			t.Errorf("split lost text %q", want)
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", got)
	}
	if got := EstimateTokens("abcd"); got != 1 {
		t.Errorf("expected 1 token for 4 chars, got %d", got)
	}
	if got := EstimateTokens("abcde"); got != 2 {
		t.Errorf("expected 2 tokens for 5 chars, got %d", got)
	}
}
