package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/models"
	"github.com/harper/vaultsearch/internal/search"
)

type fakeSearcher struct {
	query    string
	path     string
	limit    int
	minSim   float64
	err      error
	results  []models.SearchResult
	blocks   []models.ContextBlock
	lastTool string
}

func (f *fakeSearcher) SemanticSearch(_ context.Context, query string, limit int, minSim float64) ([]models.SearchResult, error) {
	f.lastTool, f.query, f.limit, f.minSim = ToolSemanticSearch, query, limit, minSim
	return f.results, f.err
}

func (f *fakeSearcher) FindRelated(_ context.Context, path string, limit int) ([]models.SearchResult, error) {
	f.lastTool, f.path, f.limit = ToolFindRelated, path, limit
	return f.results, f.err
}

func (f *fakeSearcher) GetContextBlocks(_ context.Context, query string, maxBlocks int) ([]models.ContextBlock, error) {
	f.lastTool, f.query, f.limit = ToolGetContextBlocks, query, maxBlocks
	return f.blocks, f.err
}

func request(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func errorBody(t *testing.T, res *mcp.CallToolResult) ErrorBody {
	t.Helper()
	require.True(t, res.IsError, "expected an error result")
	var payload ErrorPayload
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	return payload.Error
}

func TestSemanticSearch_Defaults(t *testing.T) {
	fake := &fakeSearcher{results: []models.SearchResult{{Key: "k", Path: "a.md", Similarity: 0.8, Metadata: models.Metadata{}}}}
	h := NewHandlers(nil)
	h.SetSearcher(fake)

	res, err := h.SemanticSearch(context.Background(), request(ToolSemanticSearch, map[string]any{"query": "garden"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	assert.Equal(t, "garden", fake.query)
	assert.Equal(t, search.DefaultLimit, fake.limit)
	assert.Equal(t, 0.0, fake.minSim)

	var payload SemanticSearchResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &payload))
	assert.Equal(t, 1, payload.ResultsCount)
	assert.Equal(t, "a.md", payload.Results[0].Path)
}

func TestFindRelated_Payload(t *testing.T) {
	fake := &fakeSearcher{results: []models.SearchResult{}}
	h := NewHandlers(nil)
	h.SetSearcher(fake)

	res, err := h.FindRelated(context.Background(), request(ToolFindRelated, map[string]any{"file_path": "Daily/x.md", "limit": float64(3)}))
	require.NoError(t, err)

	assert.Equal(t, "Daily/x.md", fake.path)
	assert.Equal(t, 3, fake.limit)
	assert.JSONEq(t, `{"source_file":"Daily/x.md","related_count":0,"related_files":[]}`, resultText(t, res))
}

func TestGetContextBlocks_Payload(t *testing.T) {
	fake := &fakeSearcher{blocks: []models.ContextBlock{{Key: "k", Path: "a.md", Lines: models.LineRange{Start: 2, End: 4}, Text: "t", Similarity: 0.5}}}
	h := NewHandlers(nil)
	h.SetSearcher(fake)

	res, err := h.GetContextBlocks(context.Background(), request(ToolGetContextBlocks, map[string]any{"query": "q"}))
	require.NoError(t, err)
	assert.Equal(t, search.DefaultMaxBlocks, fake.limit)
	assert.JSONEq(t,
		`{"query":"q","blocks_count":1,"blocks":[{"key":"k","path":"a.md","lines":[2,4],"text":"t","similarity":0.5}]}`,
		resultText(t, res))
}

func TestHandlers_InvalidArguments(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"missing query", ToolSemanticSearch, map[string]any{}},
		{"query not a string", ToolSemanticSearch, map[string]any{"query": 3}},
		{"blank query", ToolGetContextBlocks, map[string]any{"query": "  "}},
		{"fractional limit", ToolSemanticSearch, map[string]any{"query": "q", "limit": 2.5}},
		{"string limit", ToolFindRelated, map[string]any{"file_path": "a.md", "limit": "5"}},
		{"huge limit", ToolSemanticSearch, map[string]any{"query": "q", "limit": 1e12}},
		{"min_similarity above 1", ToolSemanticSearch, map[string]any{"query": "q", "min_similarity": 1.5}},
		{"min_similarity below 0", ToolSemanticSearch, map[string]any{"query": "q", "min_similarity": -0.1}},
		{"missing file_path", ToolFindRelated, map[string]any{"limit": 2}},
		{"fractional max_blocks", ToolGetContextBlocks, map[string]any{"query": "q", "max_blocks": 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeSearcher{}
			h := NewHandlers(nil)
			h.SetSearcher(fake)

			var res *mcp.CallToolResult
			var err error
			req := request(tt.tool, tt.args)
			switch tt.tool {
			case ToolSemanticSearch:
				res, err = h.SemanticSearch(context.Background(), req)
			case ToolFindRelated:
				res, err = h.FindRelated(context.Background(), req)
			case ToolGetContextBlocks:
				res, err = h.GetContextBlocks(context.Background(), req)
			}
			require.NoError(t, err)

			body := errorBody(t, res)
			assert.Equal(t, apperr.InvalidArgument.Code(), body.Code)
			assert.Equal(t, string(apperr.InvalidArgument), body.Kind)
			assert.Empty(t, fake.lastTool, "service must not be called")
		})
	}
}

func TestHandlers_ZeroAndNegativeLimitsPassThrough(t *testing.T) {
	fake := &fakeSearcher{results: []models.SearchResult{}}
	h := NewHandlers(nil)
	h.SetSearcher(fake)

	for _, limit := range []float64{0, -3} {
		res, err := h.SemanticSearch(context.Background(), request(ToolSemanticSearch, map[string]any{"query": "q", "limit": limit}))
		require.NoError(t, err)
		assert.False(t, res.IsError)
		assert.Equal(t, int(limit), fake.limit)
	}
}

func TestHandlers_ServiceErrors(t *testing.T) {
	fake := &fakeSearcher{err: apperr.New(apperr.NoteNotFound, "note %q is not in the index", "x.md")}
	h := NewHandlers(nil)
	h.SetSearcher(fake)

	res, err := h.FindRelated(context.Background(), request(ToolFindRelated, map[string]any{"file_path": "x.md"}))
	require.NoError(t, err)
	body := errorBody(t, res)
	assert.Equal(t, -32020, body.Code)
	assert.Equal(t, "NoteNotFoundError", body.Kind)
	assert.Contains(t, body.Message, "x.md")
}

func TestHandlers_NoSearcher(t *testing.T) {
	h := NewHandlers(nil)
	res, err := h.SemanticSearch(context.Background(), request(ToolSemanticSearch, map[string]any{"query": "q"}))
	require.NoError(t, err)
	assert.Equal(t, apperr.NotInitialized.Code(), errorBody(t, res).Code)
}
