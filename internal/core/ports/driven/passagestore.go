package driven

import (
	"context"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

// PassageStore is the persistent repository of passages.
//
// The store is the single shared mutable resource: it must support
// concurrent foreground reads during a background indexing batch, and a
// committed batch is visible to the very next read.
type PassageStore interface {
	// CommitFile atomically persists a file's passages together with its
	// completed indexing status. Either all passages and the status land,
	// or none do; a reader never observes a completed file with only some
	// of its passages.
	CommitFile(ctx context.Context, filePath string, passages []domain.Passage) error

	// Get retrieves a passage by id.
	Get(ctx context.Context, id string) (*domain.Passage, error)

	// List returns all passages.
	List(ctx context.Context) ([]domain.Passage, error)

	// ListEmbedded returns all passages that have an embedding vector.
	ListEmbedded(ctx context.Context) ([]domain.Passage, error)

	// Random uniformly samples one passage from completed files whose id
	// is not in exclude. Returns domain.ErrNoPassagesAvailable when the
	// remainder is empty.
	Random(ctx context.Context, exclude map[string]struct{}) (*domain.Passage, error)

	// SetEmbedding lazily populates a passage's embedding vector.
	SetEmbedding(ctx context.Context, id string, embedding []float32) error

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)
}

// IndexStatusStore tracks per-file indexing state.
// State transitions are owned exclusively by the indexer service.
type IndexStatusStore interface {
	// Get retrieves the status row for a file, or domain.ErrNotFound.
	Get(ctx context.Context, filePath string) (*domain.IndexingStatus, error)

	// Upsert registers a newly discovered file as pending. Existing rows
	// are left untouched.
	Upsert(ctx context.Context, filePath string) error

	// SetState transitions a file's state, recording the error message
	// for failures and the completion time for completed.
	SetState(ctx context.Context, filePath string, state domain.IndexState, errorMessage string) error

	// Pending returns up to limit files awaiting indexing, in discovery
	// order. limit <= 0 means no limit.
	Pending(ctx context.Context, limit int) ([]string, error)

	// Progress returns per-state file counts.
	Progress(ctx context.Context) (domain.IndexingProgress, error)
}

// SessionStore records which passages were shown on which calendar day.
// Writes are owned exclusively by the selection service.
type SessionStore interface {
	// RecordShown appends a passage to a date's session record.
	// Re-recording the same (date, passage) pair is a no-op.
	RecordShown(ctx context.Context, date string, passageID string) error

	// ShownSince returns the ids of all passages shown on or after the
	// cutoff date (inclusive).
	ShownSince(ctx context.Context, cutoffDate string) ([]string, error)

	// Clear removes all session history (explicit external reset).
	Clear(ctx context.Context) error
}

// SavedStore keeps the user's saved passages collection.
type SavedStore interface {
	// Save adds a passage to the saved collection.
	Save(ctx context.Context, passageID string) error

	// List returns saved passage ids, most recent first.
	List(ctx context.Context) ([]string, error)
}

// UsageStore records lightweight usage events for analytics.
// Failures to record are logged and never propagate to callers.
type UsageStore interface {
	// Record logs an action, optionally tied to a passage.
	Record(ctx context.Context, action string, passageID string) error
}
