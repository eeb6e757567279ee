// ABOUTME: NoteRepository resolves vault paths to note text, metadata and vectors
// ABOUTME: Reads every indexed note once at load; read-only afterwards
package notes

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/index"
	"github.com/harper/vaultsearch/internal/models"
)

// Repository holds the notes referenced by an index
type Repository struct {
	root   string
	idx    *index.Index
	notes  map[string]*models.Note
	logger *zap.Logger
}

// ValidateRoot checks that vaultPath is an existing, readable directory
func ValidateRoot(vaultPath string) error {
	if vaultPath == "" {
		return apperr.New(apperr.IndexLoad, "vault path is not configured")
	}
	info, err := os.Stat(vaultPath)
	if err != nil {
		return apperr.Wrap(apperr.IndexLoad, err, "vault path %s", vaultPath)
	}
	if !info.IsDir() {
		return apperr.New(apperr.IndexLoad, "vault path %s is not a directory", vaultPath)
	}
	if _, err := os.ReadDir(vaultPath); err != nil {
		return apperr.Wrap(apperr.IndexLoad, err, "vault path %s is not readable", vaultPath)
	}
	return nil
}

// Load reads every note that has an index entry. Notes missing on disk stay
// resolvable with no text.
func Load(vaultPath string, idx *index.Index, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ValidateRoot(vaultPath); err != nil {
		return nil, err
	}

	repo := &Repository{
		root:   vaultPath,
		idx:    idx,
		notes:  make(map[string]*models.Note, len(idx.Paths())),
		logger: logger,
	}

	missing := 0
	for _, p := range idx.Paths() {
		note, err := repo.read(p)
		if err != nil {
			return nil, err
		}
		if note.Missing {
			missing++
			logger.Debug("indexed note missing on disk", zap.String("path", p))
		}
		if src, ok := idx.Source(p); ok {
			note.Metadata = note.Metadata.Merge(src.Metadata)
		}
		repo.notes[p] = note
	}

	logger.Info("notes loaded",
		zap.String("vault", vaultPath),
		zap.Int("notes", len(repo.notes)),
		zap.Int("missing", missing),
	)
	return repo, nil
}

// NewFromNotes builds a repository from in-memory notes (fixtures, tests)
func NewFromNotes(idx *index.Index, notes ...*models.Note) *Repository {
	repo := &Repository{idx: idx, notes: make(map[string]*models.Note, len(notes)), logger: zap.NewNop()}
	for _, n := range notes {
		if n.Metadata == nil {
			n.Metadata = models.Metadata{}
		}
		repo.notes[n.Path] = n
	}
	for _, p := range idx.Paths() {
		if _, ok := repo.notes[p]; !ok {
			repo.notes[p] = &models.Note{Path: p, Metadata: models.Metadata{}, Missing: true}
		}
	}
	return repo
}

func (r *Repository) read(notePath string) (*models.Note, error) {
	note := &models.Note{Path: notePath, Metadata: models.Metadata{}, BodyStart: 1}

	full, ok := r.resolve(notePath)
	if !ok {
		note.Missing = true
		return note, nil
	}

	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			note.Missing = true
			return note, nil
		}
		return nil, apperr.Wrap(apperr.IndexLoad, err, "reading note %s", notePath)
	}

	note.Lines = splitLines(string(data))
	fm, bodyStart := splitFrontmatter(note.Lines)
	note.BodyStart = bodyStart
	meta, err := parseFrontmatter(fm)
	if err != nil {
		r.logger.Warn("ignoring invalid frontmatter", zap.String("path", notePath), zap.Error(err))
	} else {
		note.Metadata = meta
	}
	return note, nil
}

// resolve maps a vault-relative path to a file path, refusing anything that
// escapes the vault root
func (r *Repository) resolve(notePath string) (string, bool) {
	full := filepath.Join(r.root, filepath.FromSlash(notePath))
	rel, err := filepath.Rel(r.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return full, true
}

func splitLines(s string) []string {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// Clean normalizes a caller-supplied note path to the index's form
func Clean(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// Get returns the note at path
func (r *Repository) Get(notePath string) (*models.Note, error) {
	note, ok := r.notes[notePath]
	if !ok {
		note, ok = r.notes[Clean(notePath)]
	}
	if !ok {
		return nil, apperr.New(apperr.NoteNotFound, "note %q is not in the index", notePath)
	}
	return note, nil
}

// Embedding returns the note's whole-note vector entry
func (r *Repository) Embedding(notePath string) (*models.IndexEntry, error) {
	note, err := r.Get(notePath)
	if err != nil {
		return nil, err
	}
	src, ok := r.idx.Source(note.Path)
	if !ok {
		return nil, apperr.New(apperr.NoteNotFound, "note %q has no whole-note embedding", notePath)
	}
	return src, nil
}

// Blocks returns the note's block entries ordered by start line
func (r *Repository) Blocks(notePath string) []*models.IndexEntry {
	if blocks := r.idx.BlocksOf(notePath); blocks != nil {
		return blocks
	}
	return r.idx.BlocksOf(Clean(notePath))
}

// AllPaths returns every known note path, sorted
func (r *Repository) AllPaths() []string {
	return r.idx.Paths()
}

// Len returns the number of notes
func (r *Repository) Len() int { return len(r.notes) }
