// ABOUTME: Note represents one markdown file of the vault as read at load time
// ABOUTME: Provides line-range slicing and preview helpers used by search results
package models

import (
	"strings"
)

// PreviewLength is the maximum number of runes in a result preview
const PreviewLength = 200

// Note is a vault note. Lines holds the full file (frontmatter included) so
// that line numbers match those recorded in the index.
type Note struct {
	Path      string   `json:"path"`
	Lines     []string `json:"-"`
	BodyStart int      `json:"-"` // first line after frontmatter, 1-based
	Metadata  Metadata `json:"metadata,omitempty"`
	Missing   bool     `json:"-"` // indexed but absent on disk
}

// LineCount returns the number of lines in the note file
func (n *Note) LineCount() int {
	return len(n.Lines)
}

// Body returns the note text without frontmatter
func (n *Note) Body() string {
	start := n.BodyStart
	if start < 1 {
		start = 1
	}
	if start > len(n.Lines) {
		return ""
	}
	return strings.Join(n.Lines[start-1:], "\n")
}

// Clamp restricts r to the note's lines. ok is false when nothing remains.
func (n *Note) Clamp(r LineRange) (LineRange, bool) {
	if r.Start < 1 {
		r.Start = 1
	}
	if r.End > len(n.Lines) {
		r.End = len(n.Lines)
	}
	return r, r.Valid()
}

// Slice returns the text of the clamped range along with the range itself
func (n *Note) Slice(r LineRange) (string, LineRange, bool) {
	clamped, ok := n.Clamp(r)
	if !ok {
		return "", clamped, false
	}
	return strings.Join(n.Lines[clamped.Start-1:clamped.End], "\n"), clamped, true
}

// Preview returns up to PreviewLength runes of the trimmed body
func (n *Note) Preview() string {
	body := strings.TrimSpace(n.Body())
	runes := []rune(body)
	if len(runes) <= PreviewLength {
		return body
	}
	return string(runes[:PreviewLength])
}
