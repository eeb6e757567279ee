// ABOUTME: Builds throwaway Obsidian vaults with a Smart Connections index for tests
// ABOUTME: Writes markdown notes plus a .smart-env/multi ajson file into a temp dir
package testvault

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// ModelKey is the embedding key fixtures are written under
const ModelKey = "TaylorAI/bge-micro-v2"

// Block is a block entry of a fixture note
type Block struct {
	Heading string
	Start   int
	End     int
	Vector  []float32
}

// Note is a fixture note. A nil Vector writes no source entry; NoFile skips
// the markdown file so the note is indexed but missing on disk.
type Note struct {
	Path     string
	Content  string
	Vector   []float32
	Blocks   []Block
	Metadata map[string]any
	NoFile   bool
}

// Unit returns the 2-d unit vector at cosine c to (1, 0)
func Unit(c float64) []float32 {
	return []float32{float32(c), float32(math.Sqrt(1 - c*c))}
}

// Write creates a vault in a temp dir and returns its path
func Write(t testing.TB, notes ...Note) string {
	t.Helper()
	vault := t.TempDir()
	WriteInto(t, vault, notes...)
	return vault
}

// WriteInto writes notes and their index into an existing vault dir
func WriteInto(t testing.TB, vault string, notes ...Note) {
	t.Helper()
	indexDir := filepath.Join(vault, ".smart-env", "multi")
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		t.Fatal(err)
	}

	var lines []string
	add := func(key string, item map[string]any) {
		k, _ := json.Marshal(key)
		v, err := json.Marshal(item)
		if err != nil {
			t.Fatal(err)
		}
		lines = append(lines, string(k)+": "+string(v)+",")
	}

	for _, n := range notes {
		if !n.NoFile {
			full := filepath.Join(vault, filepath.FromSlash(n.Path))
			if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
				t.Fatal(err)
			}
			if err := os.WriteFile(full, []byte(n.Content), 0o644); err != nil {
				t.Fatal(err)
			}
		}
		if n.Vector != nil {
			item := map[string]any{
				"path":       n.Path,
				"embeddings": map[string]any{ModelKey: map[string]any{"vec": n.Vector}},
			}
			if n.Metadata != nil {
				item["metadata"] = n.Metadata
			}
			add("smart_sources:"+n.Path, item)
		}
		for _, b := range n.Blocks {
			add("smart_blocks:"+n.Path+"#"+b.Heading, map[string]any{
				"path":       n.Path,
				"lines":      []int{b.Start, b.End},
				"embeddings": map[string]any{ModelKey: map[string]any{"vec": b.Vector}},
			})
		}
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(indexDir, "fixture.ajson"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// Lines joins numbered placeholder lines "line 1".."line n"
func Lines(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		b.WriteString("line ")
		b.WriteString(strconv.Itoa(i))
		b.WriteByte('\n')
	}
	return b.String()
}
