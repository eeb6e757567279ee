// ABOUTME: Loads the Smart Connections .smart-env/multi/*.ajson embedding files
// ABOUTME: Each line is `"key": {...},`; later lines override earlier ones and null deletes
package index

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/models"
)

const (
	// EnvDir is the plugin's data directory inside the vault
	EnvDir = ".smart-env"
	// MultiDir holds the append-only ajson files
	MultiDir = "multi"

	SourcePrefix = "smart_sources:"
	BlockPrefix  = "smart_blocks:"

	// DefaultModelKey is the embedding model Smart Connections uses out of the box
	DefaultModelKey = "TaylorAI/bge-micro-v2"

	maxLineBytes = 64 << 20
)

// Options controls index loading
type Options struct {
	// ModelKey selects which embedding in each item's "embeddings" map to use
	ModelKey string
	// SkipMalformed counts and skips unparsable lines instead of failing
	SkipMalformed bool
	Logger        *zap.Logger
}

type ajsonEmbedding struct {
	Vec models.Vector `json:"vec"`
}

type ajsonItem struct {
	Path       string                    `json:"path"`
	Lines      []int                     `json:"lines"`
	Embeddings map[string]ajsonEmbedding `json:"embeddings"`
	Metadata   models.Metadata           `json:"metadata"`
}

// Dir returns the ajson directory for a vault
func Dir(vaultPath string) string {
	return filepath.Join(vaultPath, EnvDir, MultiDir)
}

// Load reads every ajson file under the vault's .smart-env/multi directory
func Load(vaultPath string, opts Options) (*Index, error) {
	if opts.ModelKey == "" {
		opts.ModelKey = DefaultModelKey
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dir := Dir(vaultPath)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, apperr.Wrap(apperr.IndexLoad, err, "embedding index not found at %s", dir)
	}
	if !info.IsDir() {
		return nil, apperr.New(apperr.IndexLoad, "%s is not a directory", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.ajson"))
	if err != nil {
		return nil, apperr.Wrap(apperr.IndexLoad, err, "listing %s", dir)
	}
	sort.Strings(files)

	l := &loader{opts: opts, logger: logger, items: make(map[string]ajsonItem)}
	for _, file := range files {
		if err := l.readFile(file); err != nil {
			return nil, err
		}
	}

	entries := make([]*models.IndexEntry, 0, len(l.items))
	for key, item := range l.items {
		entry, ok, err := toEntry(key, item, opts.ModelKey)
		if err != nil {
			if !opts.SkipMalformed {
				return nil, apperr.Wrap(apperr.IndexLoad, err, "invalid index entry")
			}
			logger.Warn("skipping malformed index entry", zap.String("key", key), zap.Error(err))
			l.skipped++
			continue
		}
		if ok {
			entries = append(entries, entry)
		}
	}

	idx, err := New(entries)
	if err != nil {
		return nil, err
	}
	idx.stats.Files = len(files)
	idx.stats.Skipped = l.skipped

	logger.Info("embedding index loaded",
		zap.String("dir", dir),
		zap.Int("files", idx.stats.Files),
		zap.Int("sources", idx.stats.Sources),
		zap.Int("blocks", idx.stats.Blocks),
		zap.Int("dimension", idx.stats.Dimension),
		zap.Int("skipped", idx.stats.Skipped),
		zap.Int("dropped_blocks", idx.stats.DroppedBlocks),
	)
	return idx, nil
}

type loader struct {
	opts    Options
	logger  *zap.Logger
	items   map[string]ajsonItem
	skipped int
}

func (l *loader) readFile(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return apperr.Wrap(apperr.IndexLoad, err, "reading %s", file)
	}

	type lineError struct {
		lineNo int
		err    error
	}
	var bad []lineError

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if err := l.applyLine(line); err != nil {
			bad = append(bad, lineError{lineNo, err})
		}
	}
	if err := scanner.Err(); err != nil {
		return apperr.Wrap(apperr.IndexLoad, err, "reading %s", file)
	}
	if len(bad) == 0 {
		return nil
	}

	// records pretty-printed over several lines only parse as a whole file
	if err := l.applyLine(bytes.TrimSpace(data)); err == nil {
		l.logger.Debug("index file parsed as a single object", zap.String("file", file))
		return nil
	}

	if !l.opts.SkipMalformed {
		return apperr.Wrap(apperr.IndexLoad, bad[0].err, "%s:%d", filepath.Base(file), bad[0].lineNo)
	}
	for _, b := range bad {
		l.logger.Warn("skipping malformed index line",
			zap.String("file", file), zap.Int("line", b.lineNo), zap.Error(b.err))
	}
	l.skipped += len(bad)
	return nil
}

// applyLine parses one `"key": value,` record into the item map
func (l *loader) applyLine(line []byte) error {
	line = bytes.TrimSuffix(line, []byte(","))
	if len(line) > 0 && line[0] == '{' {
		return l.applyObject(line)
	}

	wrapped := make([]byte, 0, len(line)+2)
	wrapped = append(wrapped, '{')
	wrapped = append(wrapped, line...)
	wrapped = append(wrapped, '}')
	return l.applyObject(wrapped)
}

func (l *loader) applyObject(data []byte) error {
	var record map[string]json.RawMessage
	if err := json.Unmarshal(data, &record); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := bytes.TrimSpace(record[key])
		if bytes.Equal(raw, []byte("null")) {
			delete(l.items, key)
			continue
		}
		if !strings.HasPrefix(key, SourcePrefix) && !strings.HasPrefix(key, BlockPrefix) {
			continue
		}
		var item ajsonItem
		if err := json.Unmarshal(raw, &item); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		l.items[key] = item
	}
	return nil
}

// toEntry converts a parsed item. ok is false when the item carries no vector
// for the configured model.
func toEntry(key string, item ajsonItem, modelKey string) (*models.IndexEntry, bool, error) {
	emb, has := item.Embeddings[modelKey]
	if !has || len(emb.Vec) == 0 {
		return nil, false, nil
	}

	entry := &models.IndexEntry{
		Key:      key,
		Vector:   emb.Vec,
		Metadata: item.Metadata,
	}

	switch {
	case strings.HasPrefix(key, SourcePrefix):
		entry.Kind = models.KindSource
		entry.Path = item.Path
		if entry.Path == "" {
			entry.Path = strings.TrimPrefix(key, SourcePrefix)
		}
	case strings.HasPrefix(key, BlockPrefix):
		entry.Kind = models.KindBlock
		rest := strings.TrimPrefix(key, BlockPrefix)
		entry.Path = item.Path
		if entry.Path == "" {
			entry.Path, _, _ = strings.Cut(rest, "#")
		}
		entry.Headings = headingsOf(strings.TrimPrefix(rest, entry.Path))
		if len(item.Lines) != 2 {
			return nil, false, fmt.Errorf("block %q: lines must be [start, end]", key)
		}
		entry.Lines = models.LineRange{Start: item.Lines[0], End: item.Lines[1]}
		if !entry.Lines.Valid() {
			return nil, false, fmt.Errorf("block %q: invalid line range %v", key, entry.Lines)
		}
	}

	if entry.Path == "" {
		return nil, false, fmt.Errorf("entry %q has no path", key)
	}
	return entry, true, nil
}

func headingsOf(trail string) []string {
	var out []string
	for _, h := range strings.Split(trail, "#") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
