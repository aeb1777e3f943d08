// Package intelligence implements the language-model collaborator consumed
// by the map engines: document intelligence extraction, incremental map
// updates, and one-shot retrieval decisions. All calls go through a shared
// rate limiter and the provider client's circuit breaker; responses are
// parsed into typed structs at this boundary.
package intelligence

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/docatlas/docatlas/internal/llm"
	"github.com/docatlas/docatlas/pkg/types"
)

// Analyzer drives the three map-curation prompts against a TextGenerator.
type Analyzer struct {
	client  llm.TextGenerator
	limiter *rate.Limiter
}

// NewAnalyzer creates an analyzer with a default outbound limit of 2 LLM
// calls per second (burst 4), enough headroom for human-paced ingestion
// while protecting a shared provider quota.
func NewAnalyzer(client llm.TextGenerator) *Analyzer {
	return NewAnalyzerWithLimit(client, rate.Limit(2), 4)
}

// NewAnalyzerWithLimit creates an analyzer with a custom outbound call limit.
func NewAnalyzerWithLimit(client llm.TextGenerator, limit rate.Limit, burst int) *Analyzer {
	return &Analyzer{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// ExtractIntelligence derives structured metadata from a document's raw
// text. This is the sole place body text reaches the model on the ingestion
// path; a malformed response is a hard error.
func (a *Analyzer) ExtractIntelligence(ctx context.Context, content, filename string) (*llm.IntelligenceResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("intelligence: rate limiter: %w", err)
	}

	raw, err := a.client.Complete(ctx, llm.DocumentIntelligencePrompt(content, filename))
	if err != nil {
		return nil, fmt.Errorf("intelligence: extraction call failed: %w", err)
	}

	resp, err := llm.ParseIntelligenceResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("intelligence: %w", err)
	}
	return resp, nil
}

// UpdateMap asks the model how a new entry relates to the existing corpus.
// Only map metadata is sent, never body text.
func (a *Analyzer) UpdateMap(ctx context.Context, existing *types.DocumentMap, entry *types.DocumentMapEntry) (*llm.MapUpdateResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("intelligence: rate limiter: %w", err)
	}

	mapJSON, err := json.Marshal(existing)
	if err != nil {
		return nil, fmt.Errorf("intelligence: failed to encode map: %w", err)
	}
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("intelligence: failed to encode entry: %w", err)
	}

	raw, err := a.client.Complete(ctx, llm.MapUpdatePrompt(string(mapJSON), string(entryJSON)))
	if err != nil {
		return nil, fmt.Errorf("intelligence: map update call failed: %w", err)
	}

	resp, err := llm.ParseMapUpdateResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("intelligence: %w", err)
	}
	return resp, nil
}

// ConsultForRetrieval makes the one-shot retrieval decision: the whole map
// and the query in a single call, returning ordered content identifiers.
func (a *Analyzer) ConsultForRetrieval(ctx context.Context, query string, m *types.DocumentMap, maxResults int) ([]string, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("intelligence: rate limiter: %w", err)
	}

	mapJSON, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("intelligence: failed to encode map: %w", err)
	}

	raw, err := a.client.Complete(ctx, llm.RetrievalConsultPrompt(query, string(mapJSON), maxResults))
	if err != nil {
		return nil, fmt.Errorf("intelligence: retrieval consult failed: %w", err)
	}

	resp, err := llm.ParseRetrievalDecisionResponse(raw)
	if err != nil {
		return nil, fmt.Errorf("intelligence: %w", err)
	}
	return resp.Retrieve, nil
}
