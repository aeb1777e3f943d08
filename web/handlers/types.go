package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/docatlas/docatlas/internal/engine"
	"github.com/docatlas/docatlas/pkg/types"
)

// IngestRequest is the body of POST /api/workspaces/{workspace}/documents.
type IngestRequest struct {
	DocumentID string `json:"document_id,omitempty"` // Optional; generated when empty
	Filename   string `json:"filename"`
	Content    string `json:"content"`
}

// IngestResponse wraps the new map entry after a successful ingestion.
type IngestResponse struct {
	Entry *types.DocumentMapEntry `json:"entry"`
}

// RemoveResponse reports whether a document was actually removed.
type RemoveResponse struct {
	Removed bool `json:"removed"`
}

// RetrieveRequest is the body of POST /api/workspaces/{workspace}/retrieve.
type RetrieveRequest struct {
	Query        string `json:"query"`
	MaxDocuments int    `json:"max_documents,omitempty"`
}

// RetrieveByIDsRequest is the body of POST /api/workspaces/{workspace}/retrieve/ids.
type RetrieveByIDsRequest struct {
	IDs []string `json:"ids"`
}

// RetrieveResponse carries resolved retrieval results in decision order.
type RetrieveResponse struct {
	Results []types.RetrievedContent `json:"results"`
}

// ErrorResponse is the JSON error envelope for all API errors.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// MapEvent is broadcast over WebSocket after every map mutation.
type MapEvent struct {
	Type       string `json:"type"` // document_added, document_removed or workspace_deleted
	Workspace  string `json:"workspace"`
	DocumentID string `json:"document_id"`
}

// MapManager is the subset of engine.MapManager the handlers depend on.
type MapManager interface {
	AddDocument(ctx context.Context, workspace string, req engine.AddDocumentRequest) (*types.DocumentMapEntry, error)
	RemoveDocument(ctx context.Context, workspace, documentID string) (bool, error)
	DeleteWorkspace(ctx context.Context, workspace string) ([]string, bool, error)
	GetMap(ctx context.Context, workspace string) (*types.DocumentMap, error)
}

// Retriever is the subset of engine.Retriever the handlers depend on.
type Retriever interface {
	Retrieve(ctx context.Context, query, workspace string, maxDocuments int) ([]types.RetrievedContent, error)
	RetrieveByIDs(ctx context.Context, workspace string, ids []string) ([]types.RetrievedContent, error)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already sent; log and move on.
		log.Printf("handlers: failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response with the given status code.
func respondError(w http.ResponseWriter, statusCode int, message string, err error) {
	errResp := ErrorResponse{
		Error: message,
		Code:  http.StatusText(statusCode),
	}
	if err != nil {
		errResp.Details = map[string]interface{}{
			"error": err.Error(),
		}
	}
	respondJSON(w, statusCode, errResp)
}
