// ABOUTME: MCP tool definitions and registration for the vault search server
// ABOUTME: Defines JSON schemas for semantic_search, find_related and get_context_blocks
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/harper/vaultsearch/internal/search"
)

// Tool names
const (
	ToolSemanticSearch   = "semantic_search"
	ToolFindRelated      = "find_related"
	ToolGetContextBlocks = "get_context_blocks"
)

// ToolNames lists every tool the server dispatches
var ToolNames = []string{ToolSemanticSearch, ToolFindRelated, ToolGetContextBlocks}

func knownTool(name string) bool {
	for _, n := range ToolNames {
		if n == name {
			return true
		}
	}
	return false
}

// NewMCPServer creates the mcp-go server with all tools registered
func NewMCPServer(name, version string, handlers *Handlers) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer(name, version,
		mcpserver.WithToolCapabilities(false),
	)
	RegisterTools(server, handlers)
	return server
}

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, handlers *Handlers) {
	// 1. semantic_search - rank whole notes against a natural-language query
	server.AddTool(mcp.Tool{
		Name:        ToolSemanticSearch,
		Description: "Search the vault by meaning. Returns the notes most similar to the query, ranked by cosine similarity, with a text preview and frontmatter metadata.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (default: 10)",
					"default":     search.DefaultLimit,
				},
				"min_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Minimum cosine similarity between 0 and 1 (default: 0)",
					"default":     0,
					"minimum":     0,
					"maximum":     1,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.SemanticSearch)

	// 2. find_related - neighbours of an existing note by its stored embedding
	server.AddTool(mcp.Tool{
		Name:        ToolFindRelated,
		Description: "Find notes related to an existing note, using that note's own embedding. The note itself is never returned.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Vault-relative path of the note, e.g. DailyNotes/2025-10-25.md",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of related notes to return (default: 10)",
					"default":     search.DefaultLimit,
				},
			},
			Required: []string{"file_path"},
		},
	}, handlers.FindRelated)

	// 3. get_context_blocks - passages for assembling LLM context
	server.AddTool(mcp.Tool{
		Name:        ToolGetContextBlocks,
		Description: "Return the passages (heading sections and paragraphs) most relevant to the query, with their text and line ranges, for use as context.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language query",
				},
				"max_blocks": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of passages to return (default: 5)",
					"default":     search.DefaultMaxBlocks,
				},
			},
			Required: []string{"query"},
		},
	}, handlers.GetContextBlocks)
}
