package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/models"
)

func writeAjson(t *testing.T, vault, name string, lines ...string) {
	t.Helper()
	dir := Dir(vault)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	content := strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoad_SourcesAndBlocks(t *testing.T) {
	vault := t.TempDir()
	writeAjson(t, vault, "notes.ajson",
		`"smart_sources:Daily/2025-10-25.md": {"path":"Daily/2025-10-25.md","embeddings":{"TaylorAI/bge-micro-v2":{"vec":[1,0,0]}},"metadata":{"tags":["daily"]}},`,
		`"smart_blocks:Daily/2025-10-25.md#Morning": {"path":"Daily/2025-10-25.md","lines":[1,4],"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[0,1,0]}}},`,
		`"smart_blocks:Daily/2025-10-25.md#Evening#Dinner": {"lines":[6,9],"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[0,0,1]}}},`,
		`"smart_sources:Other.md": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[1,1,0]}}},`,
	)

	idx, err := Load(vault, Options{})
	require.NoError(t, err)

	assert.Equal(t, 3, idx.Dimension())
	assert.Len(t, idx.Sources(), 2)
	assert.Len(t, idx.Blocks(), 2)
	assert.Equal(t, []string{"Daily/2025-10-25.md", "Other.md"}, idx.Paths())

	src, ok := idx.Source("Other.md")
	require.True(t, ok, "path should fall back to the key suffix")
	assert.Equal(t, models.KindSource, src.Kind)

	daily, ok := idx.Source("Daily/2025-10-25.md")
	require.True(t, ok)
	assert.True(t, daily.Metadata["tags"].Equal(models.ListValue("daily")))

	blocks := idx.BlocksOf("Daily/2025-10-25.md")
	require.Len(t, blocks, 2)
	assert.Equal(t, models.LineRange{Start: 1, End: 4}, blocks[0].Lines)
	assert.Equal(t, []string{"Evening", "Dinner"}, blocks[1].Headings)

	stats := idx.Stats()
	assert.Equal(t, 1, stats.Files)
	assert.Equal(t, 0, stats.Skipped)
}

func TestLoad_LaterLinesOverrideAndNullDeletes(t *testing.T) {
	vault := t.TempDir()
	writeAjson(t, vault, "a.ajson",
		`"smart_sources:a.md": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[1,0]}}},`,
		`"smart_sources:gone.md": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[1,0]}}},`,
	)
	writeAjson(t, vault, "b.ajson",
		`"smart_sources:a.md": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[0,1]}}},`,
		`"smart_sources:gone.md": null,`,
	)

	idx, err := Load(vault, Options{})
	require.NoError(t, err)

	require.Len(t, idx.Sources(), 1)
	a, ok := idx.Source("a.md")
	require.True(t, ok)
	assert.Equal(t, models.Vector{0, 1}, a.Vector)
	_, ok = idx.Source("gone.md")
	assert.False(t, ok)
}

func TestLoad_ModelKeySelection(t *testing.T) {
	vault := t.TempDir()
	writeAjson(t, vault, "a.ajson",
		`"smart_sources:a.md": {"embeddings":{"other/model":{"vec":[1,0,0,0]},"TaylorAI/bge-micro-v2":{"vec":[1,0]}}},`,
		`"smart_sources:b.md": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[0,1]}}},`,
	)

	idx, err := Load(vault, Options{ModelKey: "other/model"})
	require.NoError(t, err)
	assert.Equal(t, 4, idx.Dimension())
	assert.Len(t, idx.Sources(), 1, "entries without the model's vector are skipped")
}

func TestLoad_MissingIndexDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), Options{})
	require.Error(t, err)
	assert.Equal(t, apperr.IndexLoad, apperr.KindOf(err))
}

func TestLoad_EmptyIndex(t *testing.T) {
	vault := t.TempDir()
	require.NoError(t, os.MkdirAll(Dir(vault), 0o755))

	idx, err := Load(vault, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, idx.Dimension())
	assert.Empty(t, idx.Entries())
}

func TestLoad_DimensionMismatch(t *testing.T) {
	vault := t.TempDir()
	writeAjson(t, vault, "a.ajson",
		`"smart_sources:a.md": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[1,0,0]}}},`,
		`"smart_sources:b.md": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[1,0]}}},`,
	)

	_, err := Load(vault, Options{})
	require.Error(t, err)
	assert.Equal(t, apperr.DimensionMismatch, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "smart_sources:b.md")
}

func TestLoad_MalformedLine(t *testing.T) {
	vault := t.TempDir()
	writeAjson(t, vault, "a.ajson",
		`"smart_sources:a.md": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[1,0]}}},`,
		`"smart_sources:b.md": {"embeddings": {`,
		`"smart_blocks:a.md#H": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[1,0]}}},`,
	)

	t.Run("strict", func(t *testing.T) {
		_, err := Load(vault, Options{})
		require.Error(t, err)
		assert.Equal(t, apperr.IndexLoad, apperr.KindOf(err))
		assert.Contains(t, err.Error(), "a.ajson:2")
	})

	t.Run("skip", func(t *testing.T) {
		idx, err := Load(vault, Options{SkipMalformed: true})
		require.NoError(t, err)
		assert.Len(t, idx.Sources(), 1)
		assert.Empty(t, idx.Blocks(), "block without lines is malformed")
		assert.Equal(t, 2, idx.Stats().Skipped)
	})
}

func TestLoad_PrettyPrintedFile(t *testing.T) {
	vault := t.TempDir()
	writeAjson(t, vault, "pretty.ajson",
		`"smart_sources:a.md": {`,
		`  "path": "a.md",`,
		`  "embeddings": {"TaylorAI/bge-micro-v2": {"vec": [1, 0]}}`,
		`},`,
		`"smart_blocks:a.md#H": {`,
		`  "lines": [1, 2],`,
		`  "embeddings": {"TaylorAI/bge-micro-v2": {"vec": [0, 1]}}`,
		`},`,
	)

	idx, err := Load(vault, Options{})
	require.NoError(t, err)
	assert.Len(t, idx.Sources(), 1)
	require.Len(t, idx.Blocks(), 1)
	assert.Equal(t, models.LineRange{Start: 1, End: 2}, idx.Blocks()[0].Lines)
	assert.Equal(t, 0, idx.Stats().Skipped)
}

func TestLoad_IgnoresOtherPrefixes(t *testing.T) {
	vault := t.TempDir()
	writeAjson(t, vault, "a.ajson",
		`"smart_threads:chat-1": {"messages":[]},`,
		`"smart_sources:a.md": {"embeddings":{"TaylorAI/bge-micro-v2":{"vec":[1,0]}}},`,
	)

	idx, err := Load(vault, Options{})
	require.NoError(t, err)
	assert.Len(t, idx.Entries(), 1)
}
