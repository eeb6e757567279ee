// ABOUTME: Top-k ranking of index entries by cosine similarity to a query vector
// ABOUTME: Linear scan with a bounded min-heap; deterministic tie-breaking by path and line
package similarity

import (
	"container/heap"
	"math"
	"sort"

	"github.com/harper/vaultsearch/internal/models"
)

// Scored is an index entry with its similarity to the query
type Scored struct {
	Entry *models.IndexEntry
	Score float64
}

// Options controls a ranking pass
type Options struct {
	Limit         int
	MinSimilarity float64
	// Exclude drops candidates before scoring (e.g. the query note itself)
	Exclude func(*models.IndexEntry) bool
}

// Rank returns at most limit candidates with score >= minSimilarity, ordered by
// descending score. limit <= 0 yields an empty result.
func Rank(query models.Vector, candidates []*models.IndexEntry, limit int, minSimilarity float64) []Scored {
	return RankWith(query, candidates, Options{Limit: limit, MinSimilarity: minSimilarity})
}

// RankWith is Rank with an exclusion filter
func RankWith(query models.Vector, candidates []*models.IndexEntry, opts Options) []Scored {
	if opts.Limit <= 0 || len(candidates) == 0 {
		return []Scored{}
	}

	queryNorm := Magnitude(query)
	h := &topK{items: make([]Scored, 0, min(opts.Limit, len(candidates)))}

	for _, entry := range candidates {
		if opts.Exclude != nil && opts.Exclude(entry) {
			continue
		}
		score := scoreAgainst(query, queryNorm, entry.Vector)
		if math.IsNaN(score) || score < opts.MinSimilarity {
			continue
		}
		candidate := Scored{Entry: entry, Score: score}
		if h.Len() < opts.Limit {
			heap.Push(h, candidate)
			continue
		}
		if Better(candidate, h.items[0]) {
			h.items[0] = candidate
			heap.Fix(h, 0)
		}
	}

	out := h.items
	sort.Slice(out, func(i, j int) bool { return Better(out[i], out[j]) })
	return out
}

func scoreAgainst(query models.Vector, queryNorm float64, v models.Vector) float64 {
	if len(query) != len(v) || len(v) == 0 || queryNorm == 0 {
		return 0
	}
	var dot, norm float64
	for i := range v {
		x := float64(v[i])
		dot += float64(query[i]) * x
		norm += x * x
	}
	if norm == 0 {
		return 0
	}
	return dot / (queryNorm * math.Sqrt(norm))
}

// Better reports whether a ranks ahead of b: higher score first, then
// ascending path, line start and key.
func Better(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Entry.Path != b.Entry.Path {
		return a.Entry.Path < b.Entry.Path
	}
	if a.Entry.Lines.Start != b.Entry.Lines.Start {
		return a.Entry.Lines.Start < b.Entry.Lines.Start
	}
	return a.Entry.Key < b.Entry.Key
}

// topK is a min-heap under Better: the root is the weakest retained entry
type topK struct {
	items []Scored
}

func (h *topK) Len() int           { return len(h.items) }
func (h *topK) Less(i, j int) bool { return Better(h.items[j], h.items[i]) }
func (h *topK) Swap(i, j int)      { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *topK) Push(x any) {
	h.items = append(h.items, x.(Scored))
}

func (h *topK) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}
