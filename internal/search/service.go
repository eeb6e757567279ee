// ABOUTME: SearchService implements semantic_search, find_related and get_context_blocks
// ABOUTME: Pure ranking over an immutable index and note repository
package search

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/blocks"
	"github.com/harper/vaultsearch/internal/index"
	"github.com/harper/vaultsearch/internal/llm"
	"github.com/harper/vaultsearch/internal/models"
	"github.com/harper/vaultsearch/internal/notes"
	"github.com/harper/vaultsearch/internal/similarity"
)

// Defaults for tool arguments and block ranking
const (
	DefaultLimit               = 10
	DefaultMaxBlocks           = 5
	DefaultBlockFloor          = 0.4
	DefaultBlockCandidateNotes = 20
)

// Block vector sources
const (
	BlockModeIndex = "index"
	BlockModeEmbed = "embed"
)

// Options configures Open
type Options struct {
	VaultPath     string
	ModelKey      string
	SkipMalformed bool

	BlockFloor          float64
	BlockMode           string
	BlockMaxLines       int
	BlockCandidateNotes int

	Embedder llm.Embedder
	Logger   *zap.Logger
}

// Service answers retrieval queries. Safe for concurrent reads after Open.
type Service struct {
	idx       *index.Index
	repo      *notes.Repository
	embedder  llm.Embedder
	extractor *blocks.Extractor

	blockFloor     float64
	blockMode      string
	candidateNotes int
	logger         *zap.Logger
}

// Stats summarizes what was loaded
type Stats struct {
	index.Stats
	Notes        int    `json:"notes"`
	MissingNotes int    `json:"missing_notes"`
	BlockMode    string `json:"block_mode"`
	Model        string `json:"embedding_model,omitempty"`
}

// Open validates the vault, loads the index and notes, and returns a ready service
func Open(ctx context.Context, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := notes.ValidateRoot(opts.VaultPath); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.IndexLoad, err, "open cancelled")
	}

	idx, err := index.Load(opts.VaultPath, index.Options{
		ModelKey:      opts.ModelKey,
		SkipMalformed: opts.SkipMalformed,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	repo, err := notes.Load(opts.VaultPath, idx, logger)
	if err != nil {
		return nil, err
	}

	return New(idx, repo, opts), nil
}

// New assembles a service from already-loaded parts
func New(idx *index.Index, repo *notes.Repository, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	mode := opts.BlockMode
	if mode == "" {
		mode = BlockModeIndex
	}
	candidates := opts.BlockCandidateNotes
	if candidates <= 0 {
		candidates = DefaultBlockCandidateNotes
	}
	return &Service{
		idx:            idx,
		repo:           repo,
		embedder:       opts.Embedder,
		extractor:      blocks.NewExtractor(opts.BlockMaxLines),
		blockFloor:     opts.BlockFloor,
		blockMode:      mode,
		candidateNotes: candidates,
		logger:         logger,
	}
}

// SemanticSearch ranks whole notes against the embedded query
func (s *Service) SemanticSearch(ctx context.Context, query string, limit int, minSimilarity float64) ([]models.SearchResult, error) {
	q, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	ranked := similarity.Rank(q, s.idx.Sources(), limit, minSimilarity)
	s.logger.Debug("semantic_search",
		zap.Int("limit", limit),
		zap.Float64("min_similarity", minSimilarity),
		zap.Int("results", len(ranked)),
	)
	return s.toResults(ranked), nil
}

// FindRelated ranks notes against the stored vector of filePath, excluding it
func (s *Service) FindRelated(ctx context.Context, filePath string, limit int) ([]models.SearchResult, error) {
	src, err := s.repo.Embedding(filePath)
	if err != nil {
		return nil, err
	}

	ranked := similarity.RankWith(src.Vector, s.idx.Sources(), similarity.Options{
		Limit:         limit,
		MinSimilarity: -1,
		Exclude:       func(e *models.IndexEntry) bool { return e.Path == src.Path },
	})
	s.logger.Debug("find_related",
		zap.String("path", src.Path),
		zap.Int("limit", limit),
		zap.Int("results", len(ranked)),
	)
	return s.toResults(ranked), nil
}

// GetContextBlocks ranks passages against the embedded query. Scores below the
// configured block floor are dropped.
func (s *Service) GetContextBlocks(ctx context.Context, query string, maxBlocks int) ([]models.ContextBlock, error) {
	q, err := s.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	if maxBlocks <= 0 {
		return []models.ContextBlock{}, nil
	}

	var ranked []similarity.Scored
	switch s.blockMode {
	case BlockModeEmbed:
		ranked, err = s.rankSegments(ctx, q, maxBlocks)
		if err != nil {
			return nil, err
		}
	default:
		ranked = similarity.RankWith(q, s.idx.Blocks(), similarity.Options{
			Limit:         maxBlocks,
			MinSimilarity: s.blockFloor,
			Exclude:       s.staleBlock,
		})
	}

	out := make([]models.ContextBlock, 0, len(ranked))
	for _, sc := range ranked {
		note, err := s.repo.Get(sc.Entry.Path)
		if err != nil {
			return nil, err
		}
		text, lines, ok := note.Slice(sc.Entry.Lines)
		if !ok {
			// range lies past the end of the file as it is now
			s.logger.Debug("skipping block outside note", zap.String("key", sc.Entry.Key))
			continue
		}
		out = append(out, models.ContextBlock{
			Key:        sc.Entry.Key,
			Path:       sc.Entry.Path,
			Lines:      lines,
			Text:       text,
			Similarity: sc.Score,
		})
	}

	s.logger.Debug("get_context_blocks",
		zap.String("mode", s.blockMode),
		zap.Int("max_blocks", maxBlocks),
		zap.Int("results", len(out)),
	)
	return out, nil
}

// staleBlock reports whether a block can no longer be served: its note is
// gone from disk or its range starts past the end of the file
func (s *Service) staleBlock(e *models.IndexEntry) bool {
	note, err := s.repo.Get(e.Path)
	if err != nil || note.Missing {
		return true
	}
	_, ok := note.Clamp(e.Lines)
	return !ok
}

// Stats reports index and repository counts
func (s *Service) Stats() Stats {
	st := Stats{
		Stats:     s.idx.Stats(),
		Notes:     s.repo.Len(),
		BlockMode: s.blockMode,
	}
	for _, p := range s.repo.AllPaths() {
		if n, err := s.repo.Get(p); err == nil && n.Missing {
			st.MissingNotes++
		}
	}
	if s.embedder != nil {
		st.Model = s.embedder.Model()
	}
	return st
}

// Repository exposes the loaded notes
func (s *Service) Repository() *notes.Repository { return s.repo }

func (s *Service) embedQuery(ctx context.Context, query string) (models.Vector, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.New(apperr.InvalidArgument, "query must not be empty")
	}
	if s.embedder == nil {
		return nil, apperr.New(apperr.Embedding, "no query embedder is configured")
	}

	q, err := s.embedder.Embed(ctx, query)
	if err != nil {
		if apperr.KindOf(err) == apperr.Embedding {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.Embedding, err, "embedding query")
	}
	if len(q) == 0 {
		return nil, apperr.New(apperr.Embedding, "embedder returned an empty vector")
	}
	if dim := s.idx.Dimension(); dim != 0 && len(q) != dim {
		return nil, apperr.New(apperr.Embedding, "embedder returned %d dimensions, index uses %d", len(q), dim)
	}
	return q, nil
}

func (s *Service) toResults(ranked []similarity.Scored) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(ranked))
	for _, sc := range ranked {
		r := models.SearchResult{
			Key:        sc.Entry.Key,
			Path:       sc.Entry.Path,
			Similarity: sc.Score,
			Metadata:   models.Metadata{},
		}
		if note, err := s.repo.Get(sc.Entry.Path); err == nil {
			r.TextPreview = note.Preview()
			r.Metadata = r.Metadata.Merge(note.Metadata)
		}
		if sc.Entry.IsBlock() {
			lines := sc.Entry.Lines
			r.Lines = &lines
		}
		out = append(out, r)
	}
	return out
}
