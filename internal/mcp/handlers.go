// ABOUTME: MCP tool handler implementations for the vault search server
// ABOUTME: Validates arguments, calls the search service and serializes payloads
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/models"
	"github.com/harper/vaultsearch/internal/search"
)

// maxCount bounds limit-style arguments
const maxCount = 1 << 20

// Searcher is the part of the search service the tools use
type Searcher interface {
	SemanticSearch(ctx context.Context, query string, limit int, minSimilarity float64) ([]models.SearchResult, error)
	FindRelated(ctx context.Context, filePath string, limit int) ([]models.SearchResult, error)
	GetContextBlocks(ctx context.Context, query string, maxBlocks int) ([]models.ContextBlock, error)
}

// Handlers contains the handler functions for all MCP tools. The searcher is
// set once initialize succeeds.
type Handlers struct {
	searcher Searcher
	logger   *zap.Logger
}

// NewHandlers creates handlers with no searcher attached
func NewHandlers(logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{logger: logger}
}

// SetSearcher attaches the loaded search service
func (h *Handlers) SetSearcher(s Searcher) { h.searcher = s }

// SemanticSearchResponse is the semantic_search payload
type SemanticSearchResponse struct {
	Query        string                `json:"query"`
	ResultsCount int                   `json:"results_count"`
	Results      []models.SearchResult `json:"results"`
}

// FindRelatedResponse is the find_related payload
type FindRelatedResponse struct {
	SourceFile   string                `json:"source_file"`
	RelatedCount int                   `json:"related_count"`
	RelatedFiles []models.SearchResult `json:"related_files"`
}

// ContextBlocksResponse is the get_context_blocks payload
type ContextBlocksResponse struct {
	Query       string                `json:"query"`
	BlocksCount int                   `json:"blocks_count"`
	Blocks      []models.ContextBlock `json:"blocks"`
}

// ErrorPayload is the body of an isError tool result
type ErrorPayload struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the stable code and kind of a failure
type ErrorBody struct {
	Code    int    `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SemanticSearch handles the semantic_search tool
func (h *Handlers) SemanticSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, err := requiredString(args, "query")
	if err != nil {
		return h.toolError(err), nil
	}
	limit, err := optionalCount(args, "limit", search.DefaultLimit)
	if err != nil {
		return h.toolError(err), nil
	}
	minSim, err := optionalUnit(args, "min_similarity", 0)
	if err != nil {
		return h.toolError(err), nil
	}
	if h.searcher == nil {
		return h.toolError(notReady()), nil
	}

	results, err := h.searcher.SemanticSearch(ctx, query, limit, minSim)
	if err != nil {
		return h.toolError(err), nil
	}

	return h.toolJSON(SemanticSearchResponse{
		Query:        query,
		ResultsCount: len(results),
		Results:      results,
	}), nil
}

// FindRelated handles the find_related tool
func (h *Handlers) FindRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	filePath, err := requiredString(args, "file_path")
	if err != nil {
		return h.toolError(err), nil
	}
	limit, err := optionalCount(args, "limit", search.DefaultLimit)
	if err != nil {
		return h.toolError(err), nil
	}
	if h.searcher == nil {
		return h.toolError(notReady()), nil
	}

	related, err := h.searcher.FindRelated(ctx, filePath, limit)
	if err != nil {
		return h.toolError(err), nil
	}

	return h.toolJSON(FindRelatedResponse{
		SourceFile:   filePath,
		RelatedCount: len(related),
		RelatedFiles: related,
	}), nil
}

// GetContextBlocks handles the get_context_blocks tool
func (h *Handlers) GetContextBlocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query, err := requiredString(args, "query")
	if err != nil {
		return h.toolError(err), nil
	}
	maxBlocks, err := optionalCount(args, "max_blocks", search.DefaultMaxBlocks)
	if err != nil {
		return h.toolError(err), nil
	}
	if h.searcher == nil {
		return h.toolError(notReady()), nil
	}

	blocks, err := h.searcher.GetContextBlocks(ctx, query, maxBlocks)
	if err != nil {
		return h.toolError(err), nil
	}

	return h.toolJSON(ContextBlocksResponse{
		Query:       query,
		BlocksCount: len(blocks),
		Blocks:      blocks,
	}), nil
}

func (h *Handlers) toolJSON(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return h.toolError(apperr.Wrap(apperr.Internal, err, "failed to marshal response"))
	}
	return mcp.NewToolResultText(string(data))
}

func (h *Handlers) toolError(err error) *mcp.CallToolResult {
	kind := apperr.KindOf(err)
	h.logger.Debug("tool call failed", zap.String("kind", string(kind)), zap.Error(err))

	data, _ := json.Marshal(ErrorPayload{Error: ErrorBody{
		Code:    kind.Code(),
		Kind:    string(kind),
		Message: apperr.MessageOf(err),
	}})
	return mcp.NewToolResultError(string(data))
}

func notReady() error {
	return apperr.New(apperr.NotInitialized, "server is not initialized")
}

func requiredString(args map[string]any, name string) (string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return "", apperr.New(apperr.InvalidArgument, "%s argument is required", name)
	}
	s, ok := raw.(string)
	if !ok {
		return "", apperr.New(apperr.InvalidArgument, "%s argument must be a string", name)
	}
	if strings.TrimSpace(s) == "" {
		return "", apperr.New(apperr.InvalidArgument, "%s argument must not be empty", name)
	}
	return s, nil
}

// optionalCount reads an integral number. Zero and negative values are
// allowed and produce empty results.
func optionalCount(args map[string]any, name string, def int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}
	f, ok := number(raw)
	if !ok {
		return 0, apperr.New(apperr.InvalidArgument, "%s argument must be a number", name)
	}
	if math.IsNaN(f) || math.Trunc(f) != f {
		return 0, apperr.New(apperr.InvalidArgument, "%s argument must be an integer, got %v", name, f)
	}
	if math.Abs(f) > maxCount {
		return 0, apperr.New(apperr.InvalidArgument, "%s argument is out of range: %v", name, f)
	}
	return int(f), nil
}

// optionalUnit reads a number in [0, 1]
func optionalUnit(args map[string]any, name string, def float64) (float64, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}
	f, ok := number(raw)
	if !ok {
		return 0, apperr.New(apperr.InvalidArgument, "%s argument must be a number", name)
	}
	if math.IsNaN(f) || f < 0 || f > 1 {
		return 0, apperr.New(apperr.InvalidArgument, "%s argument must be between 0 and 1, got %v", name, f)
	}
	return f, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// describe is used in logs to summarize a tool call
func describe(name string, args map[string]any) string {
	if q, ok := args["query"].(string); ok {
		return fmt.Sprintf("%s(%q)", name, q)
	}
	if p, ok := args["file_path"].(string); ok {
		return fmt.Sprintf("%s(%q)", name, p)
	}
	return name
}
