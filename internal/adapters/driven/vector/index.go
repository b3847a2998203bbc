// Package vector provides an in-memory cosine similarity index over
// passage embeddings. The index is rebuilt from the store on startup
// and grows as background indexing embeds new passages.
package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is a brute-force cosine similarity index. Linear scan is fine
// at personal-library scale; the dataset is thousands of vectors, not
// millions.
type Index struct {
	mu      sync.RWMutex
	vectors map[string][]float32
	norms   map[string]float64
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		vectors: make(map[string][]float32),
		norms:   make(map[string]float64),
	}
}

// Add inserts or replaces a vector for the given passage ID.
func (idx *Index) Add(_ context.Context, passageID string, embedding []float32) error {
	if passageID == "" || len(embedding) == 0 {
		return domain.ErrInvalidInput
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors[passageID] = embedding
	idx.norms[passageID] = norm(embedding)
	return nil
}

// Delete removes a vector from the index.
func (idx *Index) Delete(_ context.Context, passageID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	delete(idx.vectors, passageID)
	delete(idx.norms, passageID)
	return nil
}

// Search finds the k nearest neighbours to the query vector, most
// similar first. Ties are broken lexicographically by passage ID so
// results are deterministic.
func (idx *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) == 0 {
		return nil, domain.ErrInvalidInput
	}
	if k <= 0 {
		return nil, nil
	}

	queryNorm := norm(query)
	if queryNorm == 0 {
		return nil, domain.ErrInvalidInput
	}

	idx.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(idx.vectors))
	for id, vec := range idx.vectors {
		if len(vec) != len(query) || idx.norms[id] == 0 {
			continue
		}
		hits = append(hits, driven.VectorHit{
			PassageID:  id,
			Similarity: dot(query, vec) / (queryNorm * idx.norms[id]),
		})
	}
	idx.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].PassageID < hits[j].PassageID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.vectors)
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.vectors = make(map[string][]float32)
	idx.norms = make(map[string]float64)
	return nil
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
