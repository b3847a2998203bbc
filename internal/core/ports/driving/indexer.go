package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
)

// Indexer orchestrates background and on-demand library indexing.
type Indexer interface {
	// TriggerBatch starts a background run that works through pending
	// files in progressive-size batches until none remain. Returns
	// domain.ErrIndexingInProgress when a run already holds the indexing
	// lock; the request is never queued.
	TriggerBatch(ctx context.Context) error

	// RunBatch synchronously processes up to batchSize unindexed files
	// and reports the outcome. batchSize <= 0 selects the configured
	// initial batch size. Holds the same lock as TriggerBatch. A run
	// stopped at a cancellation checkpoint returns the partial summary
	// together with a *domain.CancelledError.
	RunBatch(ctx context.Context, batchSize int) (*domain.BatchSummary, error)

	// IndexFile synchronously indexes exactly one file, bypassing batch
	// bookkeeping, and returns its committed passages.
	IndexFile(ctx context.Context, path string) ([]domain.Passage, error)

	// Cancel requests cooperative cancellation of the running batch.
	// The batch observes it between files; PDF extraction observes it
	// between pages. A no-op when nothing is running.
	Cancel()

	// Stop cancels any running batch and waits up to grace for it to
	// reach a checkpoint before returning.
	Stop(grace time.Duration)

	// Progress reports per-state file counts for a progress indicator.
	Progress(ctx context.Context) (domain.IndexingProgress, error)

	// ResetFile reverts a stuck or failed file to pending so a later
	// batch retries it. The only path back into indexing.
	ResetFile(ctx context.Context, path string) error
}
