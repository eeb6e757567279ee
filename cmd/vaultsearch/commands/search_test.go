// ABOUTME: Tests for the search, related, blocks and stats commands
// ABOUTME: Verifies flags and runs related and stats against a fixture vault

package commands

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/vaultsearch/internal/testvault"
)

// isolateEnv points configuration at vault with no embedder and no cache
func isolateEnv(t *testing.T, vault string) {
	t.Helper()
	t.Setenv("OBSIDIAN_VAULT_PATH", vault)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("VAULTSEARCH_EMBEDDING_BASE_URL", "")
	t.Setenv("VAULTSEARCH_CACHE_DISABLED", "true")
	t.Setenv("VAULTSEARCH_DEBUG", "")
	t.Setenv("VAULTSEARCH_MODEL_KEY", testvault.ModelKey)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	defer resetGlobals()

	cmd := NewRootCmd()
	var output, errOut bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return output.String(), err
}

func TestQueryCmds_Structure(t *testing.T) {
	tests := []struct {
		use     string
		flag    string
		defVal  string
		example string
	}{
		{"search <query>", "limit", "10", "--min-similarity"},
		{"related <path>", "limit", "10", "--limit"},
		{"blocks <query>", "max-blocks", "5", "--format json"},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			var found bool
			for _, cmd := range NewRootCmd().Commands() {
				if cmd.Use != tt.use {
					continue
				}
				found = true
				assert.NotEmpty(t, cmd.Short)
				assert.NotNil(t, cmd.Args, "Args validator should be set")
				flag := cmd.Flags().Lookup(tt.flag)
				require.NotNil(t, flag, "--%s flag not found", tt.flag)
				assert.Equal(t, tt.defVal, flag.DefValue)
				assert.Contains(t, cmd.Long, tt.example)
			}
			assert.True(t, found, "command %q not registered", tt.use)
		})
	}
}

func TestSearchCmd_RejectsBadFlags(t *testing.T) {
	isolateEnv(t, t.TempDir())

	_, err := execute(t, "search", "--limit", "0", "x")
	assert.Error(t, err)
	_, err = execute(t, "search", "--min-similarity", "2", "x")
	assert.Error(t, err)
	_, err = execute(t, "blocks", "--max-blocks", "-1", "x")
	assert.Error(t, err)
}

func TestSearchCmd_WithoutEmbedderFails(t *testing.T) {
	vault := testvault.Write(t, testvault.Note{Path: "A.md", Content: "a\n", Vector: []float32{1, 0}})
	isolateEnv(t, vault)

	_, err := execute(t, "search", "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed")
}

func TestRelatedCmd_Table(t *testing.T) {
	vault := testvault.Write(t,
		testvault.Note{Path: "Source.md", Content: "source\n", Vector: []float32{1, 0}},
		testvault.Note{Path: "Near.md", Content: "near note body\n", Vector: testvault.Unit(0.9)},
		testvault.Note{Path: "Far.md", Content: "far\n", Vector: testvault.Unit(0.1)},
	)
	isolateEnv(t, vault)

	out, err := execute(t, "related", "--limit", "1", "Source.md")
	require.NoError(t, err)
	assert.Contains(t, out, "Near.md")
	assert.NotContains(t, out, "Far.md")
	assert.Contains(t, out, "0.900", "score column")
	assert.Contains(t, out, "Found 1 result(s)")
}

func TestRelatedCmd_JSON(t *testing.T) {
	vault := testvault.Write(t,
		testvault.Note{Path: "Source.md", Content: "source\n", Vector: []float32{1, 0}},
		testvault.Note{Path: "Near.md", Content: "near\n", Vector: testvault.Unit(0.9)},
	)
	isolateEnv(t, vault)

	out, err := execute(t, "--format", "json", "related", "Source.md")
	require.NoError(t, err)

	var results []struct {
		Path       string  `json:"path"`
		Similarity float64 `json:"similarity"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &results), out)
	require.Len(t, results, 1)
	assert.Equal(t, "Near.md", results[0].Path)
}

func TestRelatedCmd_UnknownNote(t *testing.T) {
	vault := testvault.Write(t, testvault.Note{Path: "Source.md", Content: "s\n", Vector: []float32{1, 0}})
	isolateEnv(t, vault)

	_, err := execute(t, "related", "Nope.md")
	assert.Error(t, err)
}

func TestStatsCmd(t *testing.T) {
	vault := testvault.Write(t,
		testvault.Note{Path: "A.md", Content: "a\n", Vector: []float32{1, 0},
			Blocks: []testvault.Block{{Heading: "A", Start: 1, End: 1, Vector: []float32{0, 1}}}},
		testvault.Note{Path: "Gone.md", Vector: []float32{0, 1}, NoFile: true},
	)
	isolateEnv(t, vault)

	out, err := execute(t, "--format", "json", "stats")
	require.NoError(t, err)

	var st struct {
		Sources      int `json:"sources"`
		Blocks       int `json:"blocks"`
		Dimension    int `json:"dimension"`
		MissingNotes int `json:"missing_notes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st), out)
	assert.Equal(t, 2, st.Sources)
	assert.Equal(t, 1, st.Blocks)
	assert.Equal(t, 2, st.Dimension)
	assert.Equal(t, 1, st.MissingNotes)
}
