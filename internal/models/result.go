// ABOUTME: Search result structures returned by the search service
// ABOUTME: Used by MCP tools and the CLI to serialize rankings
package models

// SearchResult is a ranked whole-note match
type SearchResult struct {
	Key         string     `json:"key"`
	Path        string     `json:"path"`
	Similarity  float64    `json:"similarity"`
	TextPreview string     `json:"text_preview"`
	Lines       *LineRange `json:"lines,omitempty"`
	Metadata    Metadata   `json:"metadata"`
}

// Equal compares two results field by field
func (r SearchResult) Equal(o SearchResult) bool {
	if r.Key != o.Key || r.Path != o.Path || r.Similarity != o.Similarity || r.TextPreview != o.TextPreview {
		return false
	}
	if (r.Lines == nil) != (o.Lines == nil) {
		return false
	}
	if r.Lines != nil && *r.Lines != *o.Lines {
		return false
	}
	return r.Metadata.Equal(o.Metadata)
}

// ContextBlock is a ranked passage for context assembly
type ContextBlock struct {
	Key        string    `json:"key"`
	Path       string    `json:"path"`
	Lines      LineRange `json:"lines"`
	Text       string    `json:"text"`
	Similarity float64   `json:"similarity"`
}
