// ABOUTME: On-demand passage ranking for indexes without block vectors
// ABOUTME: Segments the best candidate notes and embeds each passage
package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/models"
	"github.com/harper/vaultsearch/internal/similarity"
)

// rankSegments finds the notes closest to q, splits them into passages and
// ranks the passages by their own embeddings
func (s *Service) rankSegments(ctx context.Context, q models.Vector, maxBlocks int) ([]similarity.Scored, error) {
	candidates := similarity.Rank(q, s.idx.Sources(), s.candidateNotes, -1)

	var (
		entries []*models.IndexEntry
		texts   []string
	)
	for _, c := range candidates {
		note, err := s.repo.Get(c.Entry.Path)
		if err != nil || note.Missing {
			continue
		}
		for _, seg := range s.extractor.BlocksOf(note) {
			var headings []string
			if seg.Heading != "" {
				headings = []string{seg.Heading}
			}
			entries = append(entries, &models.IndexEntry{
				Key:      fmt.Sprintf("%s#L%s", note.Path, seg.Lines),
				Kind:     models.KindBlock,
				Path:     note.Path,
				Headings: headings,
				Lines:    seg.Lines,
			})
			texts = append(texts, seg.Text)
		}
	}
	if len(entries) == 0 {
		return []similarity.Scored{}, nil
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if apperr.KindOf(err) == apperr.Embedding {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.Embedding, err, "embedding passages")
	}
	if len(vecs) != len(entries) {
		return nil, apperr.New(apperr.Embedding, "embedder returned %d vectors for %d passages", len(vecs), len(entries))
	}
	for i, v := range vecs {
		entries[i].Vector = v
	}

	s.logger.Debug("embedded passages",
		zap.Int("notes", len(candidates)),
		zap.Int("passages", len(entries)),
	)
	return similarity.Rank(q, entries, maxBlocks, s.blockFloor), nil
}
