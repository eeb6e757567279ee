// ABOUTME: Embedding vectors and index entries for the vault vector index
// ABOUTME: Defines Vector, LineRange and IndexEntry structures
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Vector is a fixed-dimension embedding produced by an external model
type Vector []float32

// ValidateDimension checks the vector has exactly expectedDim components
func (v Vector) ValidateDimension(expectedDim int) error {
	if len(v) == 0 {
		return errors.New("vector cannot be empty")
	}
	if len(v) != expectedDim {
		return fmt.Errorf("dimension mismatch: expected %d, got %d", expectedDim, len(v))
	}
	return nil
}

// EntryKind distinguishes whole-note entries from sub-note blocks
type EntryKind string

const (
	KindSource EntryKind = "source"
	KindBlock  EntryKind = "block"
)

// LineRange is an inclusive, 1-based range of lines within a note.
// It serializes as a two-element array: [start, end].
type LineRange struct {
	Start int
	End   int
}

// Valid reports whether the range is non-empty and 1-based
func (r LineRange) Valid() bool {
	return r.Start >= 1 && r.End >= r.Start
}

// Len returns the number of lines covered
func (r LineRange) Len() int {
	if !r.Valid() {
		return 0
	}
	return r.End - r.Start + 1
}

// Overlaps reports whether the two ranges share at least one line
func (r LineRange) Overlaps(o LineRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Encloses reports whether r covers o and is strictly larger
func (r LineRange) Encloses(o LineRange) bool {
	return r.Start <= o.Start && r.End >= o.End && r != o
}

func (r LineRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

func (r LineRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Start, r.End})
}

func (r *LineRange) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("line range: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("line range: expected [start, end], got %d values", len(pair))
	}
	r.Start, r.End = pair[0], pair[1]
	return nil
}

// IndexEntry binds one vector to a content unit: a whole note (KindSource)
// or a line range within it (KindBlock)
type IndexEntry struct {
	Key      string    `json:"key"`
	Kind     EntryKind `json:"kind"`
	Path     string    `json:"path"`
	Headings []string  `json:"headings,omitempty"`
	Lines    LineRange `json:"lines"`
	Vector   Vector    `json:"-"`
	Metadata Metadata  `json:"metadata,omitempty"`
}

// IsBlock reports whether the entry is a sub-note block
func (e *IndexEntry) IsBlock() bool {
	return e.Kind == KindBlock
}
