// ABOUTME: ContextBlockExtractor splits notes into heading- and paragraph-bounded passages
// ABOUTME: Keeps original line numbers so passages map back to the file
package blocks

import (
	"strings"

	"github.com/harper/vaultsearch/internal/models"
)

// DefaultMaxLines caps the length of a single passage
const DefaultMaxLines = 40

// Segment is one passage of a note
type Segment struct {
	Lines   models.LineRange
	Text    string
	Heading string
}

// Extractor segments notes. The zero value uses DefaultMaxLines.
type Extractor struct {
	MaxLines int
}

// NewExtractor creates an Extractor with the given passage cap
func NewExtractor(maxLines int) *Extractor {
	return &Extractor{MaxLines: maxLines}
}

// BlocksOf splits the note body into passages ordered by line. Blank lines
// outside fenced code end a passage; headings start one; fenced code stays
// whole unless it exceeds the cap.
func (e *Extractor) BlocksOf(note *models.Note) []Segment {
	maxLines := e.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	start := note.BodyStart
	if start < 1 {
		start = 1
	}

	var (
		out        []Segment
		heading    string
		curStart   int // 0 when no passage is open
		headingTop bool
		inFence    bool
		fence      string
	)

	flush := func(end int) {
		if curStart == 0 {
			return
		}
		for end >= curStart && strings.TrimSpace(note.Lines[end-1]) == "" {
			end--
		}
		if end >= curStart {
			r := models.LineRange{Start: curStart, End: end}
			out = append(out, Segment{
				Lines:   r,
				Text:    strings.Join(note.Lines[r.Start-1:r.End], "\n"),
				Heading: heading,
			})
		}
		curStart = 0
		headingTop = false
	}

	for n := start; n <= len(note.Lines); n++ {
		line := note.Lines[n-1]
		trimmed := strings.TrimSpace(line)

		if marker, ok := fenceMarker(trimmed); ok {
			if !inFence {
				inFence, fence = true, marker
			} else if strings.HasPrefix(trimmed, fence) {
				inFence = false
			}
		} else if !inFence {
			if h, ok := headingText(trimmed); ok {
				flush(n - 1)
				heading = h
				curStart = n
				headingTop = true
				continue
			}
			if trimmed == "" {
				if !headingTop {
					flush(n - 1)
				}
				continue
			}
		}

		if curStart == 0 {
			if trimmed == "" {
				continue
			}
			curStart = n
		}
		if trimmed != "" {
			headingTop = headingTop && n == curStart
		}
		if n-curStart+1 >= maxLines {
			flush(n)
		}
	}
	flush(len(note.Lines))

	return out
}

func headingText(trimmed string) (string, bool) {
	if !strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level > 6 || (level < len(trimmed) && trimmed[level] != ' ' && trimmed[level] != '\t') {
		return "", false
	}
	return strings.TrimSpace(trimmed[level:]), true
}

func fenceMarker(trimmed string) (string, bool) {
	switch {
	case strings.HasPrefix(trimmed, "```"):
		return "```", true
	case strings.HasPrefix(trimmed, "~~~"):
		return "~~~", true
	}
	return "", false
}
