// ABOUTME: Immutable in-memory vector index over a vault's notes and blocks
// ABOUTME: Validates a single embedding dimension and non-overlapping block ranges
package index

import (
	"sort"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/models"
)

// Stats summarizes what was loaded
type Stats struct {
	Files         int `json:"files"`
	Sources       int `json:"sources"`
	Blocks        int `json:"blocks"`
	Dimension     int `json:"dimension"`
	Skipped       int `json:"skipped"`
	DroppedBlocks int `json:"dropped_blocks"`
}

// Index maps content units to embedding vectors. It is never mutated after
// construction, so concurrent reads need no locking.
type Index struct {
	dim          int
	sources      []*models.IndexEntry
	blocks       []*models.IndexEntry
	byPath       map[string]*models.IndexEntry
	blocksByPath map[string][]*models.IndexEntry
	paths        []string
	stats        Stats
}

// New builds an index from entries. Every vector must have the same
// dimension; block ranges of a note are normalized so they never overlap.
func New(entries []*models.IndexEntry) (*Index, error) {
	idx := &Index{
		byPath:       make(map[string]*models.IndexEntry),
		blocksByPath: make(map[string][]*models.IndexEntry),
	}

	sorted := make([]*models.IndexEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	for _, e := range sorted {
		if idx.dim == 0 {
			idx.dim = len(e.Vector)
		}
		if err := e.Vector.ValidateDimension(idx.dim); err != nil {
			return nil, apperr.Wrap(apperr.DimensionMismatch, err, "entry %q", e.Key)
		}

		switch e.Kind {
		case models.KindSource:
			if _, dup := idx.byPath[e.Path]; dup {
				return nil, apperr.New(apperr.IndexLoad, "duplicate source entry for %q", e.Path)
			}
			idx.byPath[e.Path] = e
		case models.KindBlock:
			if !e.Lines.Valid() {
				return nil, apperr.New(apperr.IndexLoad, "block %q has invalid line range %v", e.Key, e.Lines)
			}
			idx.blocksByPath[e.Path] = append(idx.blocksByPath[e.Path], e)
		default:
			return nil, apperr.New(apperr.IndexLoad, "entry %q has unknown kind %q", e.Key, e.Kind)
		}
	}

	seen := make(map[string]struct{}, len(idx.byPath)+len(idx.blocksByPath))
	for path, src := range idx.byPath {
		idx.sources = append(idx.sources, src)
		seen[path] = struct{}{}
	}
	sort.Slice(idx.sources, func(i, j int) bool { return idx.sources[i].Path < idx.sources[j].Path })

	for path, blocks := range idx.blocksByPath {
		kept := normalizeBlocks(blocks)
		idx.stats.DroppedBlocks += len(blocks) - len(kept)
		idx.blocksByPath[path] = kept
		seen[path] = struct{}{}
	}

	for path := range seen {
		idx.paths = append(idx.paths, path)
	}
	sort.Strings(idx.paths)

	for _, path := range idx.paths {
		idx.blocks = append(idx.blocks, idx.blocksByPath[path]...)
	}

	idx.stats.Sources = len(idx.sources)
	idx.stats.Blocks = len(idx.blocks)
	idx.stats.Dimension = idx.dim
	return idx, nil
}

// normalizeBlocks trims an enclosing heading block to the lines before its
// first sub-block (dropping it when nothing is left), then drops any block
// overlapping an earlier kept one. The result is ordered by start line.
func normalizeBlocks(blocks []*models.IndexEntry) []*models.IndexEntry {
	leaves := make([]*models.IndexEntry, 0, len(blocks))
	for _, b := range blocks {
		firstInner := 0
		for _, other := range blocks {
			if other != b && b.Lines.Encloses(other.Lines) {
				if firstInner == 0 || other.Lines.Start < firstInner {
					firstInner = other.Lines.Start
				}
			}
		}
		switch {
		case firstInner == 0:
			leaves = append(leaves, b)
		case firstInner > b.Lines.Start:
			trimmed := *b
			trimmed.Lines = models.LineRange{Start: b.Lines.Start, End: firstInner - 1}
			leaves = append(leaves, &trimmed)
		}
	}

	sort.Slice(leaves, func(i, j int) bool {
		a, b := leaves[i].Lines, leaves[j].Lines
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return leaves[i].Key < leaves[j].Key
	})

	kept := make([]*models.IndexEntry, 0, len(leaves))
	lastEnd := 0
	for _, b := range leaves {
		if b.Lines.Start <= lastEnd {
			continue
		}
		kept = append(kept, b)
		lastEnd = b.Lines.End
	}
	return kept
}

// Dimension returns the shared vector dimension (0 for an empty index)
func (idx *Index) Dimension() int { return idx.dim }

// Sources returns whole-note entries ordered by path. Callers must not modify it.
func (idx *Index) Sources() []*models.IndexEntry { return idx.sources }

// Blocks returns block entries ordered by path then start line. Callers must not modify it.
func (idx *Index) Blocks() []*models.IndexEntry { return idx.blocks }

// Entries returns all entries, sources first
func (idx *Index) Entries() []*models.IndexEntry {
	out := make([]*models.IndexEntry, 0, len(idx.sources)+len(idx.blocks))
	out = append(out, idx.sources...)
	return append(out, idx.blocks...)
}

// Source returns the whole-note entry for path
func (idx *Index) Source(path string) (*models.IndexEntry, bool) {
	e, ok := idx.byPath[path]
	return e, ok
}

// BlocksOf returns the block entries of path ordered by start line
func (idx *Index) BlocksOf(path string) []*models.IndexEntry {
	return idx.blocksByPath[path]
}

// Paths returns every note path with at least one entry, sorted
func (idx *Index) Paths() []string { return idx.paths }

// Stats returns load statistics
func (idx *Index) Stats() Stats { return idx.stats }
