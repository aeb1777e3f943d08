package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/docatlas/docatlas/internal/chunker"
	"github.com/docatlas/docatlas/internal/config"
	"github.com/docatlas/docatlas/internal/engine"
	"github.com/docatlas/docatlas/internal/storage"
	"github.com/docatlas/docatlas/pkg/types"
)

// APIHandlers contains the HTTP handlers for the REST API. It owns the
// ingestion flow (content persistence + chunking + map insertion) and the
// retrieval endpoints; everything else delegates to the engines.
type APIHandlers struct {
	manager   MapManager
	retriever Retriever
	contents  storage.ContentStore
	splitter  *chunker.Chunker
	cfg       *config.Config
}

// NewAPIHandlers creates a new APIHandlers instance.
func NewAPIHandlers(manager MapManager, retriever Retriever, contents storage.ContentStore, cfg *config.Config) *APIHandlers {
	return &APIHandlers{
		manager:   manager,
		retriever: retriever,
		contents:  contents,
		splitter:  chunker.New(),
		cfg:       cfg,
	}
}

// Register wires all API routes onto the mux.
func (h *APIHandlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/workspaces/{workspace}/documents", h.IngestDocument)
	mux.HandleFunc("DELETE /api/workspaces/{workspace}/documents/{id}", h.RemoveDocument)
	mux.HandleFunc("DELETE /api/workspaces/{workspace}", h.DeleteWorkspace)
	mux.HandleFunc("GET /api/workspaces/{workspace}/map", h.GetMap)
	mux.HandleFunc("POST /api/workspaces/{workspace}/retrieve", h.Retrieve)
	mux.HandleFunc("POST /api/workspaces/{workspace}/retrieve/ids", h.RetrieveByIDs)
	mux.HandleFunc("GET /api/health", h.Health)
}

// IngestDocument handles POST /api/workspaces/{workspace}/documents.
// It rejects duplicates and malformed IDs up front, persists document (and
// chunk) content, then inserts the document into the workspace map. On
// map-insertion failure the content this request stored is removed again so
// no orphaned body text survives a failed ingest.
func (h *APIHandlers) IngestDocument(w http.ResponseWriter, r *http.Request) {
	workspace := r.PathValue("workspace")

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Filename == "" || req.Content == "" {
		respondError(w, http.StatusBadRequest, "filename and content are required", nil)
		return
	}

	documentID := req.DocumentID
	if documentID == "" {
		documentID = generateDocumentID()
	} else if types.ParseContentRef(documentID).Kind != types.RefDocument {
		respondError(w, http.StatusBadRequest, "document ID must not end in a chunk suffix", nil)
		return
	}

	// Duplicates are checked before any content write: storing the new body
	// first would overwrite the text the existing map entry resolves to.
	ctx := r.Context()
	dm, err := h.manager.GetMap(ctx, workspace)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load map", err)
		return
	}
	if dm.FindDocument(documentID) != nil {
		respondError(w, http.StatusBadRequest, "document already in map", nil)
		return
	}

	sizeClass := h.splitter.SizeClass(req.Content)

	var chunks []engine.ChunkInput
	if sizeClass == types.SizeLarge {
		for _, c := range h.splitter.Split(req.Content) {
			chunks = append(chunks, engine.ChunkInput{
				Section:    c.Section,
				Content:    c.Content,
				TokenCount: c.TokenCount,
			})
		}
	}

	if err := h.contents.PutDocumentContent(ctx, workspace, documentID, req.Content); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store document content", err)
		return
	}
	for i, c := range chunks {
		chunkID := types.ChunkContentID(documentID, i)
		if err := h.contents.PutChunkContent(ctx, workspace, chunkID, c.Content); err != nil {
			h.cleanupContent(workspace, documentID)
			respondError(w, http.StatusInternalServerError, "failed to store chunk content", err)
			return
		}
	}

	entry, err := h.manager.AddDocument(ctx, workspace, engine.AddDocumentRequest{
		DocumentID: documentID,
		Filename:   req.Filename,
		Content:    req.Content,
		SizeClass:  sizeClass,
		Chunks:     chunks,
	})
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			// A duplicate that raced past the pre-insert check already has
			// live content the surviving map entry resolves to; deleting it
			// here would leave that entry unresolvable.
			respondError(w, http.StatusBadRequest, "invalid document", err)
			return
		}
		h.cleanupContent(workspace, documentID)
		respondError(w, http.StatusBadGateway, "failed to add document to map", err)
		return
	}

	respondJSON(w, http.StatusCreated, IngestResponse{Entry: entry})
}

// cleanupContent removes stored body text after a failed ingest. Best
// effort: a failure here only leaves orphaned content, never a bad map.
func (h *APIHandlers) cleanupContent(workspace, documentID string) {
	if err := h.contents.DeleteDocumentContent(context.Background(), workspace, documentID); err != nil {
		log.Printf("handlers: failed to clean up content for %s: %v", documentID, err)
	}
}

// RemoveDocument handles DELETE /api/workspaces/{workspace}/documents/{id}.
func (h *APIHandlers) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	workspace := r.PathValue("workspace")
	documentID := r.PathValue("id")

	removed, err := h.manager.RemoveDocument(r.Context(), workspace, documentID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to remove document", err)
		return
	}

	if removed {
		if err := h.contents.DeleteDocumentContent(r.Context(), workspace, documentID); err != nil {
			log.Printf("handlers: failed to delete content for %s: %v", documentID, err)
		}
	}

	respondJSON(w, http.StatusOK, RemoveResponse{Removed: removed})
}

// DeleteWorkspace handles DELETE /api/workspaces/{workspace}. It drops the
// workspace's map and purges the stored body text of every document it held.
func (h *APIHandlers) DeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace := r.PathValue("workspace")

	ids, removed, err := h.manager.DeleteWorkspace(r.Context(), workspace)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			respondError(w, http.StatusBadRequest, "invalid workspace", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to delete workspace", err)
		return
	}

	for _, id := range ids {
		if err := h.contents.DeleteDocumentContent(r.Context(), workspace, id); err != nil {
			log.Printf("handlers: failed to delete content for %s: %v", id, err)
		}
	}

	respondJSON(w, http.StatusOK, RemoveResponse{Removed: removed})
}

// GetMap handles GET /api/workspaces/{workspace}/map.
func (h *APIHandlers) GetMap(w http.ResponseWriter, r *http.Request) {
	dm, err := h.manager.GetMap(r.Context(), r.PathValue("workspace"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load map", err)
		return
	}
	respondJSON(w, http.StatusOK, dm)
}

// Retrieve handles POST /api/workspaces/{workspace}/retrieve.
func (h *APIHandlers) Retrieve(w http.ResponseWriter, r *http.Request) {
	workspace := r.PathValue("workspace")

	var req RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Query == "" {
		respondError(w, http.StatusBadRequest, "query is required", nil)
		return
	}

	maxDocuments := req.MaxDocuments
	if maxDocuments <= 0 {
		maxDocuments = h.cfg.Retrieval.MaxDocuments
	}

	results, err := h.retriever.Retrieve(r.Context(), req.Query, workspace, maxDocuments)
	if err != nil {
		respondError(w, http.StatusBadGateway, "retrieval failed", err)
		return
	}

	respondJSON(w, http.StatusOK, RetrieveResponse{Results: results})
}

// RetrieveByIDs handles POST /api/workspaces/{workspace}/retrieve/ids.
func (h *APIHandlers) RetrieveByIDs(w http.ResponseWriter, r *http.Request) {
	workspace := r.PathValue("workspace")

	var req RetrieveByIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids are required", nil)
		return
	}

	results, err := h.retriever.RetrieveByIDs(r.Context(), workspace, req.IDs)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "retrieval failed", err)
		return
	}

	respondJSON(w, http.StatusOK, RetrieveResponse{Results: results})
}

// Health handles GET /api/health.
func (h *APIHandlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// generateDocumentID generates a document ID with a short UUID suffix.
// UUIDs are hyphen-separated hex, so a generated ID can never end in the
// "_c<digits>" chunk suffix pattern.
func generateDocumentID() string {
	return fmt.Sprintf("doc_%s", uuid.New().String()[:8])
}
