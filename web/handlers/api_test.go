package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docatlas/docatlas/internal/config"
	"github.com/docatlas/docatlas/internal/engine"
	"github.com/docatlas/docatlas/internal/storage"
	"github.com/docatlas/docatlas/pkg/types"
)

// fakeManager records AddDocument requests and returns canned entries.
type fakeManager struct {
	addErr        error
	lastAdd       engine.AddDocumentRequest
	lastAddWS     string
	removed       bool
	removeErr     error
	currentMap    *types.DocumentMap
	deleteIDs     []string
	deleteRemoved bool
	deleteErr     error
}

func (f *fakeManager) AddDocument(ctx context.Context, workspace string, req engine.AddDocumentRequest) (*types.DocumentMapEntry, error) {
	f.lastAddWS = workspace
	f.lastAdd = req
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &types.DocumentMapEntry{
		ID:        req.DocumentID,
		Filename:  req.Filename,
		SizeClass: req.SizeClass,
		Essence:   "A document",
	}, nil
}

func (f *fakeManager) RemoveDocument(ctx context.Context, workspace, documentID string) (bool, error) {
	if f.removeErr != nil {
		return false, f.removeErr
	}
	return f.removed, nil
}

func (f *fakeManager) DeleteWorkspace(ctx context.Context, workspace string) ([]string, bool, error) {
	if f.deleteErr != nil {
		return nil, false, f.deleteErr
	}
	return f.deleteIDs, f.deleteRemoved, nil
}

func (f *fakeManager) GetMap(ctx context.Context, workspace string) (*types.DocumentMap, error) {
	if f.currentMap != nil {
		return f.currentMap, nil
	}
	return types.NewDocumentMap(workspace), nil
}

// fakeRetriever returns canned results.
type fakeRetriever struct {
	results []types.RetrievedContent
	err     error

	lastQuery string
	lastMax   int
	lastIDs   []string
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query, workspace string, maxDocuments int) ([]types.RetrievedContent, error) {
	f.lastQuery = query
	f.lastMax = maxDocuments
	return f.results, f.err
}

func (f *fakeRetriever) RetrieveByIDs(ctx context.Context, workspace string, ids []string) ([]types.RetrievedContent, error) {
	f.lastIDs = ids
	return f.results, f.err
}

// fakeContents tracks content writes and deletes.
type fakeContents struct {
	docs    map[string]string
	chunks  map[string]string
	deleted []string
	putErr  error
}

func newFakeContents() *fakeContents {
	return &fakeContents{docs: map[string]string{}, chunks: map[string]string{}}
}

func (f *fakeContents) PutDocumentContent(ctx context.Context, workspace, documentID, content string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.docs[documentID] = content
	return nil
}

func (f *fakeContents) GetDocumentContent(ctx context.Context, workspace, documentID string) (string, error) {
	content, ok := f.docs[documentID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return content, nil
}

func (f *fakeContents) PutChunkContent(ctx context.Context, workspace, chunkID, content string) error {
	f.chunks[chunkID] = content
	return nil
}

func (f *fakeContents) GetChunkContent(ctx context.Context, workspace, chunkID string) (string, error) {
	content, ok := f.chunks[chunkID]
	if !ok {
		return "", storage.ErrNotFound
	}
	return content, nil
}

func (f *fakeContents) DeleteDocumentContent(ctx context.Context, workspace, documentID string) error {
	f.deleted = append(f.deleted, documentID)
	delete(f.docs, documentID)
	return nil
}

func (f *fakeContents) Close() error { return nil }

func testConfig() *config.Config {
	cfg, _ := config.LoadConfig()
	return cfg
}

func newTestServer(manager MapManager, retriever Retriever, contents storage.ContentStore) *http.ServeMux {
	h := NewAPIHandlers(manager, retriever, contents, testConfig())
	mux := http.NewServeMux()
	h.Register(mux)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestIngestDocumentSmall(t *testing.T) {
	manager := &fakeManager{}
	contents := newFakeContents()
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/documents", IngestRequest{
		Filename: "note.md",
		Content:  "A short note.",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Entry.ID)
	assert.True(t, strings.HasPrefix(resp.Entry.ID, "doc_"))

	assert.Equal(t, "ws1", manager.lastAddWS)
	assert.Equal(t, types.SizeSmall, manager.lastAdd.SizeClass)
	assert.Empty(t, manager.lastAdd.Chunks)
	assert.Contains(t, contents.docs, resp.Entry.ID)
}

func TestIngestDocumentLargeStoresChunks(t *testing.T) {
	manager := &fakeManager{}
	contents := newFakeContents()
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/documents", IngestRequest{
		DocumentID: "doc_big",
		Filename:   "big.md",
		Content:    "# Section\n" + strings.Repeat("A sentence with several words in it. ", 500),
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, types.SizeLarge, manager.lastAdd.SizeClass)
	assert.NotEmpty(t, manager.lastAdd.Chunks)
	assert.Contains(t, contents.chunks, "doc_big_c0")
}

func TestIngestDocumentValidation(t *testing.T) {
	mux := newTestServer(&fakeManager{}, &fakeRetriever{}, newFakeContents())

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/documents", IngestRequest{Filename: "a.md"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/documents", IngestRequest{Content: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngestDocumentCleansUpOnMapFailure(t *testing.T) {
	manager := &fakeManager{addErr: errors.New("provider down")}
	contents := newFakeContents()
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/documents", IngestRequest{
		DocumentID: "doc_1",
		Filename:   "note.md",
		Content:    "A short note.",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, contents.deleted, "doc_1", "stored content must be removed after a failed ingest")
}

func TestIngestDocumentDuplicateIDIsBadRequest(t *testing.T) {
	manager := &fakeManager{addErr: storage.ErrInvalidInput}
	contents := newFakeContents()
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/documents", IngestRequest{
		DocumentID: "doc_1",
		Filename:   "note.md",
		Content:    "A short note.",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, contents.deleted, "rejected duplicates must not delete stored content")
}

func TestIngestDuplicatePreservesExistingContent(t *testing.T) {
	manager := &fakeManager{currentMap: &types.DocumentMap{
		CorpusID:  "ws1",
		Documents: []*types.DocumentMapEntry{{ID: "doc_1", Filename: "note.md"}},
	}}
	contents := newFakeContents()
	contents.docs["doc_1"] = "original body"
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/documents", IngestRequest{
		DocumentID: "doc_1",
		Filename:   "note.md",
		Content:    "replacement body",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "original body", contents.docs["doc_1"],
		"the indexed document's body must survive a rejected re-ingest")
	assert.Empty(t, contents.deleted)
	assert.Empty(t, manager.lastAddWS, "the map must not see the duplicate at all")
}

func TestIngestRejectsChunkShapedID(t *testing.T) {
	manager := &fakeManager{}
	contents := newFakeContents()
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/documents", IngestRequest{
		DocumentID: "report_c2",
		Filename:   "report.md",
		Content:    "A report.",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, contents.docs, "a chunk-shaped ID must not store content")
}

func TestRemoveDocument(t *testing.T) {
	manager := &fakeManager{removed: true}
	contents := newFakeContents()
	contents.docs["doc_1"] = "body"
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodDelete, "/api/workspaces/ws1/documents/doc_1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RemoveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Removed)
	assert.Contains(t, contents.deleted, "doc_1")
}

func TestRemoveDocumentAbsent(t *testing.T) {
	manager := &fakeManager{removed: false}
	contents := newFakeContents()
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodDelete, "/api/workspaces/ws1/documents/doc_ghost", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RemoveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Removed)
	assert.Empty(t, contents.deleted, "content must stay when nothing was removed")
}

func TestDeleteWorkspace(t *testing.T) {
	manager := &fakeManager{deleteIDs: []string{"doc_1", "doc_2"}, deleteRemoved: true}
	contents := newFakeContents()
	contents.docs["doc_1"] = "body one"
	contents.docs["doc_2"] = "body two"
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodDelete, "/api/workspaces/ws1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RemoveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Removed)
	assert.ElementsMatch(t, []string{"doc_1", "doc_2"}, contents.deleted)
	assert.Empty(t, contents.docs)
}

func TestDeleteWorkspaceAbsent(t *testing.T) {
	manager := &fakeManager{}
	contents := newFakeContents()
	mux := newTestServer(manager, &fakeRetriever{}, contents)

	rec := doJSON(t, mux, http.MethodDelete, "/api/workspaces/ws-empty", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RemoveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Removed)
	assert.Empty(t, contents.deleted)
}

func TestGetMap(t *testing.T) {
	manager := &fakeManager{currentMap: &types.DocumentMap{CorpusID: "ws1", CorpusSummary: "A corpus"}}
	mux := newTestServer(manager, &fakeRetriever{}, newFakeContents())

	rec := doJSON(t, mux, http.MethodGet, "/api/workspaces/ws1/map", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var dm types.DocumentMap
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dm))
	assert.Equal(t, "A corpus", dm.CorpusSummary)
}

func TestRetrieve(t *testing.T) {
	retriever := &fakeRetriever{results: []types.RetrievedContent{
		{ID: "doc_1", Content: "body", Context: "note.md: A note"},
	}}
	mux := newTestServer(&fakeManager{}, retriever, newFakeContents())

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/retrieve", RetrieveRequest{
		Query: "what is in the note",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RetrieveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "doc_1", resp.Results[0].ID)
	assert.Equal(t, "what is in the note", retriever.lastQuery)
	assert.Equal(t, 5, retriever.lastMax, "default cap comes from config")
}

func TestRetrieveRequiresQuery(t *testing.T) {
	mux := newTestServer(&fakeManager{}, &fakeRetriever{}, newFakeContents())

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/retrieve", RetrieveRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetrieveFailureIsBadGateway(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("provider down")}
	mux := newTestServer(&fakeManager{}, retriever, newFakeContents())

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/retrieve", RetrieveRequest{Query: "q"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestRetrieveByIDs(t *testing.T) {
	retriever := &fakeRetriever{results: []types.RetrievedContent{
		{ID: "doc_1_c0", Content: "chunk"},
	}}
	mux := newTestServer(&fakeManager{}, retriever, newFakeContents())

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/retrieve/ids", RetrieveByIDsRequest{
		IDs: []string{"doc_1_c0"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"doc_1_c0"}, retriever.lastIDs)
}

func TestRetrieveByIDsRequiresIDs(t *testing.T) {
	mux := newTestServer(&fakeManager{}, &fakeRetriever{}, newFakeContents())

	rec := doJSON(t, mux, http.MethodPost, "/api/workspaces/ws1/retrieve/ids", RetrieveByIDsRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	mux := newTestServer(&fakeManager{}, &fakeRetriever{}, newFakeContents())

	rec := doJSON(t, mux, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
