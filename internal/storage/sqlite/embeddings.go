// ABOUTME: Embedding cache operations for SQLite
// ABOUTME: Stores embedder output as BLOBs keyed by model and text hash
package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/harper/vaultsearch/internal/models"
)

// EmbeddingStore handles embedding cache persistence
type EmbeddingStore struct {
	db *DB
}

// NewEmbeddingStore creates a new EmbeddingStore
func NewEmbeddingStore(db *DB) *EmbeddingStore {
	return &EmbeddingStore{db: db}
}

// HashText returns the cache key for a text
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached vector for text under model. A miss is (nil, false, nil).
func (s *EmbeddingStore) Get(model, text string) (models.Vector, bool, error) {
	var (
		dim  int
		blob []byte
	)
	err := s.db.QueryRow(`
		SELECT dim, vector FROM embeddings
		WHERE model = ? AND text_hash = ?
	`, model, HashText(text)).Scan(&dim, &blob)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	vec := blobToVector(blob)
	if len(vec) != dim {
		// truncated row; treat as a miss so it gets rewritten
		return nil, false, nil
	}
	return vec, true, nil
}

// Put stores a vector for text under model, replacing any previous value
func (s *EmbeddingStore) Put(model, text string, vec models.Vector) error {
	if len(vec) == 0 {
		return fmt.Errorf("refusing to cache an empty vector")
	}
	_, err := s.db.Exec(`
		INSERT INTO embeddings (model, text_hash, dim, vector, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(model, text_hash) DO UPDATE SET
			dim = excluded.dim,
			vector = excluded.vector,
			created_at = excluded.created_at
	`, model, HashText(text), len(vec), vectorToBlob(vec), time.Now())
	return err
}

// Count returns the number of cached vectors
func (s *EmbeddingStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM embeddings").Scan(&n)
	return n, err
}

// PruneBefore deletes entries created before cutoff and returns how many went
func (s *EmbeddingStore) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec("DELETE FROM embeddings WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// vectorToBlob converts a float32 slice to a little-endian blob
func vectorToBlob(vector models.Vector) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// blobToVector converts a little-endian blob to a float32 slice
func blobToVector(blob []byte) models.Vector {
	count := len(blob) / 4
	vector := make(models.Vector, count)
	for i := 0; i < count; i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
