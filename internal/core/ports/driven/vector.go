package driven

import "context"

// VectorIndex provides similarity search over the growing in-memory
// set of passage embeddings.
type VectorIndex interface {
	// Add inserts a vector for the given passage ID.
	Add(ctx context.Context, passageID string, embedding []float32) error

	// Delete removes a vector from the index.
	Delete(ctx context.Context, passageID string) error

	// Search finds the k nearest neighbours to the query vector.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Len returns the number of indexed vectors.
	Len() int

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// PassageID is the matched passage.
	PassageID string

	// Similarity is the cosine similarity score (0-1).
	Similarity float64
}
