package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/docatlas/docatlas/pkg/types"
)

// IntelligenceResponse is the parsed result of a document-intelligence
// extraction call. All fields are validated at this boundary so the engines
// never touch untyped collaborator output.
type IntelligenceResponse struct {
	DocumentType   string              `json:"document_type"`
	Essence        string              `json:"essence"`
	Topics         []string            `json:"topics"`
	Entities       map[string][]string `json:"entities"`
	RetrievalHints string              `json:"retrieval_hints"`
}

// MapUpdateResponse is the parsed result of an incremental map-update call.
// Relationships and cross-references default to empty when absent; the
// updated summary may be empty, in which case callers keep the prior one.
type MapUpdateResponse struct {
	Relationships        []types.DocumentRelationship `json:"relationships"`
	NewCrossReferences   types.CrossReferences        `json:"new_cross_references"`
	UpdatedCorpusSummary string                       `json:"updated_corpus_summary"`
}

// RetrievalDecisionResponse is the parsed result of a one-shot retrieval
// consultation: an ordered list of document or chunk identifiers.
type RetrievalDecisionResponse struct {
	Retrieve []string `json:"retrieve"`
}

// extractJSON extracts the first complete JSON object from a string that may
// contain extra text. This handles models that add explanations or markdown
// fences around the JSON despite instructions.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return text // No JSON found, return as-is and let the parser fail
	}

	braceCount := 0
	inString := false
	escape := false

	for i := start; i < len(text); i++ {
		char := text[i]

		if escape {
			escape = false
			continue
		}
		if char == '\\' {
			escape = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}

		// Only count braces outside of strings
		if !inString {
			switch char {
			case '{':
				braceCount++
			case '}':
				braceCount--
				if braceCount == 0 {
					return text[start : i+1]
				}
			}
		}
	}

	return text // No complete JSON found, return as-is
}

// ParseIntelligenceResponse parses document-intelligence extraction JSON.
// A malformed response or missing essence is a hard error: coercing the
// first extraction into empty defaults would poison the map with false
// metadata. Optional fields (topics, entities) default to empty.
func ParseIntelligenceResponse(jsonStr string) (*IntelligenceResponse, error) {
	cleanJSON := extractJSON(jsonStr)

	var response IntelligenceResponse
	if err := json.Unmarshal([]byte(cleanJSON), &response); err != nil {
		return nil, fmt.Errorf("failed to parse intelligence JSON: %w", err)
	}

	if strings.TrimSpace(response.Essence) == "" {
		return nil, fmt.Errorf("intelligence response missing essence")
	}
	if response.DocumentType == "" {
		response.DocumentType = "other"
	}
	if response.Topics == nil {
		response.Topics = []string{}
	}
	if response.Entities == nil {
		response.Entities = map[string][]string{}
	}

	return &response, nil
}

// ParseMapUpdateResponse parses incremental map-update JSON. Missing
// relationships or cross-references default to empty; only malformed JSON is
// an error.
func ParseMapUpdateResponse(jsonStr string) (*MapUpdateResponse, error) {
	cleanJSON := extractJSON(jsonStr)

	var response MapUpdateResponse
	if err := json.Unmarshal([]byte(cleanJSON), &response); err != nil {
		return nil, fmt.Errorf("failed to parse map update JSON: %w", err)
	}

	if response.Relationships == nil {
		response.Relationships = []types.DocumentRelationship{}
	}
	if response.NewCrossReferences.ByEntity == nil {
		response.NewCrossReferences.ByEntity = map[string][]string{}
	}
	if response.NewCrossReferences.ByTopic == nil {
		response.NewCrossReferences.ByTopic = map[string][]string{}
	}

	return &response, nil
}

// ParseRetrievalDecisionResponse parses one-shot retrieval decision JSON.
// Blank identifiers are dropped; an absent "retrieve" key yields an empty
// list, which callers treat as "nothing relevant".
func ParseRetrievalDecisionResponse(jsonStr string) (*RetrievalDecisionResponse, error) {
	cleanJSON := extractJSON(jsonStr)

	var response RetrievalDecisionResponse
	if err := json.Unmarshal([]byte(cleanJSON), &response); err != nil {
		return nil, fmt.Errorf("failed to parse retrieval decision JSON: %w", err)
	}

	valid := make([]string, 0, len(response.Retrieve))
	for _, id := range response.Retrieve {
		if strings.TrimSpace(id) != "" {
			valid = append(valid, id)
		}
	}
	response.Retrieve = valid

	return &response, nil
}
