// Package chunker splits large document text into section-labelled chunks
// suitable for per-chunk map indexing. Splitting is heading-aware first and
// sentence-aware second, so chunk boundaries follow the document's own
// structure where it has one.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/docatlas/docatlas/pkg/types"
)

// Chunk is one unit of split document text: a section label, the text
// itself, and its estimated token count.
type Chunk struct {
	Section    string
	Content    string
	TokenCount int
}

// Chunker splits document content into chunks and classifies document size.
type Chunker struct {
	// MaxChunkTokens is the upper bound on a single chunk (default: 2000).
	MaxChunkTokens int

	// LargeThresholdTokens is the size above which a document is classified
	// large and chunked before indexing (default: 3000).
	LargeThresholdTokens int
}

// New creates a Chunker with default limits.
func New() *Chunker {
	return &Chunker{
		MaxChunkTokens:       2000,
		LargeThresholdTokens: 3000,
	}
}

// SizeClass classifies a document as small or large by estimated token count.
func (c *Chunker) SizeClass(content string) types.SizeClass {
	if EstimateTokens(content) > c.LargeThresholdTokens {
		return types.SizeLarge
	}
	return types.SizeSmall
}

// Split breaks content into section-labelled chunks. Markdown-style headings
// start new sections; sections that exceed MaxChunkTokens are further split
// on sentence boundaries into numbered parts. Whitespace-only input yields no
// chunks.
func (c *Chunker) Split(content string) []Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	sections := splitSections(content)

	var chunks []Chunk
	for _, sec := range sections {
		tokens := EstimateTokens(sec.body)
		if tokens <= c.MaxChunkTokens {
			chunks = append(chunks, Chunk{
				Section:    sec.title,
				Content:    sec.body,
				TokenCount: tokens,
			})
			continue
		}

		parts := c.splitBySentence(sec.body)
		for i, part := range parts {
			title := sec.title
			if len(parts) > 1 {
				title = fmt.Sprintf("%s (part %d)", sec.title, i+1)
			}
			chunks = append(chunks, Chunk{
				Section:    title,
				Content:    part,
				TokenCount: EstimateTokens(part),
			})
		}
	}

	return chunks
}

// EstimateTokens estimates the number of tokens in the given text using the
// ~4 characters per token heuristic for English with GPT-style tokenizers.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

type section struct {
	title string
	body  string
}

// splitSections groups content under markdown-style headings. Content before
// the first heading gets a positional label.
func splitSections(content string) []section {
	lines := strings.Split(content, "\n")

	var sections []section
	current := section{title: ""}
	var body strings.Builder

	flush := func() {
		text := strings.TrimSpace(body.String())
		if text != "" {
			title := current.title
			if title == "" {
				title = fmt.Sprintf("Section %d", len(sections)+1)
			}
			sections = append(sections, section{title: title, body: text})
		}
		body.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			current.title = strings.TrimSpace(strings.TrimLeft(trimmed, "# "))
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}

// splitBySentence splits text into parts no larger than MaxChunkTokens,
// breaking on sentence boundaries.
func (c *Chunker) splitBySentence(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	currentTokens := 0

	for _, sentence := range sentences {
		tokens := EstimateTokens(sentence)
		if currentTokens+tokens > c.MaxChunkTokens && currentTokens > 0 {
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
			currentTokens = 0
		}
		current.WriteString(sentence)
		currentTokens += tokens
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}

	return parts
}

// splitSentences splits text on sentence terminators, keeping terminators
// attached. A terminator followed by whitespace and an uppercase letter is
// treated as a boundary; everything else stays joined.
func splitSentences(text string) []string {
	if len(text) == 0 {
		return nil
	}

	var sentences []string
	var current strings.Builder
	runes := []rune(text)

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 >= len(runes) {
			continue
		}
		if !unicode.IsSpace(runes[i+1]) {
			continue
		}
		current.WriteRune(runes[i+1])
		i++
		if i+1 < len(runes) && !unicode.IsUpper(runes[i+1]) {
			continue
		}
		if s := current.String(); strings.TrimSpace(s) != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := current.String(); strings.TrimSpace(s) != "" {
		sentences = append(sentences, s)
	}

	return sentences
}
