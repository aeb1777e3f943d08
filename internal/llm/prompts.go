// Package llm provides LLM integration for document intelligence extraction,
// incremental map curation, and one-shot retrieval decisions. It includes
// strict JSON-only prompt templates and response parsers that work with
// Ollama, OpenAI, and Anthropic models.
package llm

import "fmt"

// maxPromptContentChars caps how much document body text is inlined into the
// intelligence-extraction prompt. Larger documents are chunked upstream; the
// head of the document carries the signal the extraction needs.
const maxPromptContentChars = 24000

// DocumentIntelligencePrompt generates a strict JSON-only prompt that derives
// structured metadata (type, essence, topics, entities, retrieval hints) from
// a document's raw text. This is the only prompt that ever sees body text.
func DocumentIntelligencePrompt(content, filename string) string {
	if len(content) > maxPromptContentChars {
		content = content[:maxPromptContentChars]
	}

	return fmt.Sprintf(`TASK: Analyze a document and produce retrieval metadata.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
{
  "document_type": "report|contract|email|manual|article|notes|other",
  "essence": "One or two sentences capturing what this document is",
  "topics": ["topic1", "topic2"],
  "entities": {"person": ["Alice"], "organization": ["Acme Corp"]},
  "retrieval_hints": "When a user would want this document and what questions it answers"
}

VALIDATION (STRICT):
1. Start with { - End with }
2. "document_type", "essence", "topics", "entities", "retrieval_hints" keys all present
3. "topics" is an array of short lowercase strings
4. "entities" maps entity-type strings to arrays of entity names
5. No null values
6. No trailing commas
7. Valid JSON syntax

FILENAME: %s

DOCUMENT TEXT:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`, filename, content)
}

// MapUpdatePrompt generates a strict JSON-only prompt that relates a newly
// indexed document to the existing corpus: relationships to prior documents,
// new cross-references, and an updated corpus summary. The existing map and
// the new entry are passed pre-serialized; only metadata, never body text.
func MapUpdatePrompt(existingMapJSON, newEntryJSON string) string {
	return fmt.Sprintf(`TASK: A new document was added to a corpus. Relate it to the existing documents.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
{
  "relationships": [
    {"related_id": "doc_abc", "type": "extends", "description": "Builds on the Q3 findings"}
  ],
  "new_cross_references": {
    "by_entity": {"Acme Corp": ["doc_new"]},
    "by_topic": {"finance": ["doc_new"]}
  },
  "updated_corpus_summary": "One paragraph describing the whole corpus including the new document"
}

RULES:
1. "relationships" lists how the NEW document relates to EXISTING documents only.
   Use related_id values that appear in the existing map. Empty array if none.
2. "new_cross_references" lists entity names and topic names the new document
   shares with the corpus, each mapping to the document IDs that mention it.
3. "updated_corpus_summary" rewrites the corpus summary to cover the new
   document. Never drop information about existing documents.
4. No null values. No trailing commas. Valid JSON syntax.

EXISTING MAP:
%s

NEW DOCUMENT ENTRY:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`, existingMapJSON, newEntryJSON)
}

// RetrievalConsultPrompt generates a strict JSON-only prompt asking the model
// to pick the documents or chunks relevant to a query, given the whole map in
// one shot. Chunk identifiers look like "doc_abc_c2"; whole documents are
// bare IDs.
func RetrievalConsultPrompt(query, mapJSON string, maxResults int) string {
	return fmt.Sprintf(`TASK: Decide which documents or chunks answer a user query, using the corpus map below.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
{"retrieve": ["doc_abc", "doc_def_c2"]}

RULES:
1. "retrieve" lists identifiers in order of relevance, most relevant first.
2. Use a chunk identifier (from a document's "chunks" list) when only that
   section is relevant; use the bare document ID when the whole document is.
3. Return at most %d identifiers. Return {"retrieve": []} if nothing is relevant.
4. Only use identifiers that appear in the map. Never invent identifiers.
5. Use the essence, topics, retrieval_hints, and cross_references to judge relevance.

USER QUERY:
%s

CORPUS MAP:
%s

RESPOND WITH ONLY THE JSON OBJECT (nothing else):`, maxResults, query, mapJSON)
}
