// ABOUTME: Tests for the OpenAI-compatible embeddings client
// ABOUTME: Runs against an httptest server standing in for /v1/embeddings
package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/vaultsearch/internal/apperr"
	"github.com/harper/vaultsearch/internal/models"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeServer answers embeddings requests with a vector of [len(text), index].
// The first failures requests respond with status.
func fakeServer(t *testing.T, failures int32, status int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if n <= failures {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"server_error"}}`))
			return
		}

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]any, len(req.Input))
		// reversed order to check the client reorders by index
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     j,
				"embedding": []float32{float32(len(req.Input[j])), float32(j)},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClientWithConfig(&ClientConfig{
		BaseURL:    baseURL + "/v1",
		Model:      "bge-micro-v2",
		Timeout:    5 * time.Second,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_EmbedBatch(t *testing.T) {
	srv, calls := fakeServer(t, 0, 0)
	c := testClient(t, srv.URL)

	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "bbb"})
	require.NoError(t, err)
	assert.Equal(t, []models.Vector{{1, 0}, {3, 1}}, vecs)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "bge-micro-v2", c.Model())
}

func TestOpenAIClient_RetriesServerErrors(t *testing.T) {
	srv, calls := fakeServer(t, 2, http.StatusInternalServerError)
	c := testClient(t, srv.URL)

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, models.Vector{5, 0}, vec)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIClient_GivesUpAfterMaxRetries(t *testing.T) {
	srv, calls := fakeServer(t, 100, http.StatusServiceUnavailable)
	c := testClient(t, srv.URL)

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, apperr.Embedding, apperr.KindOf(err))
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenAIClient_ClientErrorIsFinal(t *testing.T) {
	srv, calls := fakeServer(t, 100, http.StatusUnauthorized)
	c := testClient(t, srv.URL)

	_, err := c.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, apperr.Embedding, apperr.KindOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIClient_Cancelled(t *testing.T) {
	srv, _ := fakeServer(t, 100, http.StatusInternalServerError)
	c := testClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Embed(ctx, "hello")
	assert.Equal(t, apperr.Embedding, apperr.KindOf(err))
}

func TestNewOpenAIClient_RequiresKeyOrBaseURL(t *testing.T) {
	_, err := NewOpenAIClient("")
	assert.Equal(t, apperr.Embedding, apperr.KindOf(err))

	c, err := NewOpenAIClient("sk-test")
	require.NoError(t, err)
	assert.Equal(t, DefaultEmbeddingModel, c.Model())
}

func TestEmbedBatch_Empty(t *testing.T) {
	c, err := NewOpenAIClient("sk-test")
	require.NoError(t, err)
	vecs, err := c.EmbedBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, vecs)
}
