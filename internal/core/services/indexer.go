package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driving"
	"github.com/custodia-labs/passage-cli/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.Indexer = (*IndexerService)(nil)

// Default batch sizes. The initial batch is larger so a fresh library
// yields something to read quickly; progressive batches stay small to
// keep background work unobtrusive.
const (
	DefaultInitialBatchSize     = 8
	DefaultProgressiveBatchSize = 4
)

// Segmenter turns one file's extraction into accepted passages.
type Segmenter interface {
	Segment(ctx context.Context, ext *domain.Extraction, sourcePath string) ([]domain.Passage, error)
}

// IndexerConfig holds the tunable parts of the indexing service.
type IndexerConfig struct {
	// LibraryPath is the absolute directory scanned for documents.
	LibraryPath string

	// InitialBatchSize bounds the first synchronous run (0 = default).
	InitialBatchSize int

	// ProgressiveBatchSize bounds each background batch (0 = default).
	ProgressiveBatchSize int
}

func (c IndexerConfig) withDefaults() IndexerConfig {
	if c.InitialBatchSize <= 0 {
		c.InitialBatchSize = DefaultInitialBatchSize
	}
	if c.ProgressiveBatchSize <= 0 {
		c.ProgressiveBatchSize = DefaultProgressiveBatchSize
	}
	return c
}

// IndexerService drives library indexing: discovery, extraction,
// segmentation, embedding and the per-file atomic commit. At most one
// run (batch or single file) is active at any instant.
type IndexerService struct {
	cfg      IndexerConfig
	registry driven.ExtractorRegistry
	segm     Segmenter
	passages driven.PassageStore
	statuses driven.IndexStatusStore
	usage    driven.UsageStore
	embedder driven.EmbeddingService
	vectors  driven.VectorIndex

	mu       sync.Mutex
	running  bool
	cancelFn context.CancelFunc
	wg       sync.WaitGroup

	degradedOnce sync.Once
}

// NewIndexerService creates the indexing service. The embedder and
// vectors are optional; when nil, passages are committed without
// embeddings and similarity stays structural-only.
func NewIndexerService(
	cfg IndexerConfig,
	registry driven.ExtractorRegistry,
	segm Segmenter,
	passages driven.PassageStore,
	statuses driven.IndexStatusStore,
	usage driven.UsageStore,
	embedder driven.EmbeddingService,
	vectors driven.VectorIndex,
) *IndexerService {
	return &IndexerService{
		cfg:      cfg.withDefaults(),
		registry: registry,
		segm:     segm,
		passages: passages,
		statuses: statuses,
		usage:    usage,
		embedder: embedder,
		vectors:  vectors,
	}
}

// TriggerBatch starts a background run working through pending files in
// progressive-size batches until none remain or cancellation is
// requested. Returns domain.ErrIndexingInProgress when a run is already
// active; the request is never queued.
func (s *IndexerService) TriggerBatch(ctx context.Context) error {
	runCtx, ok := s.tryStart(ctx)
	if !ok {
		return domain.ErrIndexingInProgress
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.finish()

		for {
			summary, err := s.runBatch(runCtx, s.cfg.ProgressiveBatchSize)
			if err != nil {
				var cancelled *domain.CancelledError
				if errors.As(err, &cancelled) {
					logger.Info("Background indexing stopped: %v", cancelled)
				} else {
					logger.Warn("Background indexing aborted: %v", err)
				}
				return
			}
			if summary.Remaining == 0 || summary.Processed+summary.Failed == 0 {
				logger.Debug("Background indexing drained the queue")
				return
			}
		}
	}()

	return nil
}

// RunBatch synchronously processes up to batchSize pending files.
// batchSize <= 0 selects the configured initial batch size. A run
// stopped at a cancellation checkpoint returns the partial summary
// together with a *domain.CancelledError.
func (s *IndexerService) RunBatch(ctx context.Context, batchSize int) (*domain.BatchSummary, error) {
	runCtx, ok := s.tryStart(ctx)
	if !ok {
		return nil, domain.ErrIndexingInProgress
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.finish()

	if batchSize <= 0 {
		batchSize = s.cfg.InitialBatchSize
	}
	return s.runBatch(runCtx, batchSize)
}

// IndexFile synchronously indexes exactly one file, bypassing batch
// bookkeeping, and returns its committed passages.
func (s *IndexerService) IndexFile(ctx context.Context, path string) ([]domain.Passage, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	if _, err := s.registry.ForPath(abs); err != nil {
		return nil, err
	}

	runCtx, ok := s.tryStart(ctx)
	if !ok {
		return nil, domain.ErrIndexingInProgress
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer s.finish()

	if err := s.statuses.Upsert(runCtx, abs); err != nil {
		return nil, fmt.Errorf("register file: %w", err)
	}
	return s.processFile(runCtx, abs)
}

// Cancel requests cooperative cancellation of the active run. The batch
// loop observes it between files; PDF extraction observes it between
// pages. A no-op when nothing is running.
func (s *IndexerService) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFn != nil {
		s.cancelFn()
	}
}

// Stop cancels any active run and waits up to grace for it to reach a
// checkpoint.
func (s *IndexerService) Stop(grace time.Duration) {
	s.Cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		logger.Warn("Indexing did not stop within %s", grace)
	}
}

// Progress reports per-state file counts.
func (s *IndexerService) Progress(ctx context.Context) (domain.IndexingProgress, error) {
	return s.statuses.Progress(ctx)
}

// ResetFile reverts a stuck or failed file to pending so a later batch
// retries it.
func (s *IndexerService) ResetFile(ctx context.Context, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	status, err := s.statuses.Get(ctx, abs)
	if err != nil {
		return err
	}
	if !status.State.CanTransitionTo(domain.IndexStatePending) {
		return fmt.Errorf("%w: cannot reset %s file %s",
			domain.ErrInvalidInput, status.State, abs)
	}
	return s.statuses.SetState(ctx, abs, domain.IndexStatePending, "")
}

// tryStart acquires the run lock and derives the cancellable run
// context. Returns false when a run is already active.
func (s *IndexerService) tryStart(ctx context.Context) (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, false
	}
	s.running = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel
	return runCtx, true
}

// finish releases the run lock.
func (s *IndexerService) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelFn != nil {
		s.cancelFn()
		s.cancelFn = nil
	}
	s.running = false
}

// runBatch scans the library and processes up to batchSize pending
// files. Per-file failures mark only that file failed; the loop
// continues.
func (s *IndexerService) runBatch(ctx context.Context, batchSize int) (*domain.BatchSummary, error) {
	if err := s.scanLibrary(ctx); err != nil {
		return nil, err
	}

	files, err := s.statuses.Pending(ctx, batchSize)
	if err != nil {
		return nil, fmt.Errorf("list pending files: %w", err)
	}

	summary := &domain.BatchSummary{}
	for _, file := range files {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}
		passages, err := s.processFile(ctx, file)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				summary.Cancelled = true
				break
			}
			summary.Failed++
			continue
		}
		summary.Processed++
		summary.Passages += len(passages)
	}

	remaining, err := s.statuses.Pending(context.WithoutCancel(ctx), 0)
	if err != nil {
		return summary, fmt.Errorf("count remaining files: %w", err)
	}
	summary.Remaining = len(remaining)

	s.recordUsage(ctx, domain.UsageIndexBatch, "")

	if summary.Cancelled {
		return summary, &domain.CancelledError{
			Completed: summary.Processed,
			Pending:   summary.Remaining,
		}
	}
	logger.Debug("Batch complete: %d files, %d passages, %d failed, %d remaining",
		summary.Processed, summary.Passages, summary.Failed, summary.Remaining)
	return summary, nil
}

// scanLibrary walks the library directory and registers supported files
// not yet known to the status table as pending.
func (s *IndexerService) scanLibrary(ctx context.Context) error {
	if s.cfg.LibraryPath == "" {
		return nil
	}
	return filepath.WalkDir(s.cfg.LibraryPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			logger.Debug("Library scan: %v", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if _, err := s.registry.ForPath(path); err != nil {
			return nil
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil
		}
		if err := s.statuses.Upsert(ctx, abs); err != nil {
			return fmt.Errorf("register %s: %w", abs, err)
		}
		return nil
	})
}

// processFile indexes one file end to end and maps the outcome onto its
// status row: committed files come back with their passages, failures
// are recorded and returned, cancellation reverts the file to pending
// and returns the context error.
func (s *IndexerService) processFile(ctx context.Context, path string) ([]domain.Passage, error) {
	if err := s.statuses.SetState(ctx, path, domain.IndexStateIndexing, ""); err != nil {
		return nil, fmt.Errorf("mark indexing: %w", err)
	}

	passages, err := s.indexOne(ctx, path)
	if err != nil {
		// A cancelled run may surface as something other than
		// context.Canceled: killing an extraction subprocess yields an
		// exec error. Any failure after cancellation counts as
		// cancellation, not a file failure.
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			// Nothing committed; the file stays resumable.
			revert := context.WithoutCancel(ctx)
			if stErr := s.statuses.SetState(revert, path, domain.IndexStatePending, ""); stErr != nil {
				logger.Warn("Failed to revert %s to pending: %v", path, stErr)
			}
			return nil, err
		}
		logger.Warn("Skipping %s: %v", path, err)
		if stErr := s.statuses.SetState(ctx, path, domain.IndexStateFailed, err.Error()); stErr != nil {
			logger.Warn("Failed to record failure for %s: %v", path, stErr)
		}
		return nil, err
	}

	if s.vectors != nil {
		for i := range passages {
			if passages[i].Embedding == nil {
				continue
			}
			if err := s.vectors.Add(ctx, passages[i].ID, passages[i].Embedding); err != nil {
				logger.Debug("Failed to index vector %s: %v", passages[i].ID, err)
			}
		}
	}

	logger.Debug("Indexed %s: %d passages", path, len(passages))
	return passages, nil
}

// indexOne runs the extraction pipeline for one file and commits the
// result atomically with the completed status.
func (s *IndexerService) indexOne(ctx context.Context, path string) ([]domain.Passage, error) {
	ext, err := s.registry.Extract(ctx, path)
	if err != nil {
		// Timed-out PDFs may carry partial spans, but commit is atomic
		// with the completed status, so partial results are discarded.
		return nil, err
	}

	passages, err := s.segm.Segment(ctx, ext, path)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}

	if err := s.embedPassages(ctx, passages); err != nil {
		return nil, err
	}

	if err := s.passages.CommitFile(ctx, path, passages); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return passages, nil
}

// embedPassages populates embedding vectors in place. An unreachable
// embedder degrades to structural-only passages; a dimensionality
// mismatch is a hard error.
func (s *IndexerService) embedPassages(ctx context.Context, passages []domain.Passage) error {
	if s.embedder == nil || len(passages) == 0 {
		return nil
	}

	texts := make([]string, len(passages))
	for i := range passages {
		texts[i] = passages[i].Text
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		s.degradedOnce.Do(func() {
			logger.Warn("Embeddings unavailable, indexing without semantic scoring: %v", err)
		})
		return nil
	}

	if len(vectors) != len(passages) {
		logger.Warn("Embedder returned %d vectors for %d passages, indexing without semantic scoring",
			len(vectors), len(passages))
		return nil
	}

	dims := s.embedder.Dimensions()
	for i := range passages {
		if len(vectors[i]) != dims {
			return fmt.Errorf("%w: got %d, want %d",
				domain.ErrEmbeddingDimension, len(vectors[i]), dims)
		}
		passages[i].Embedding = vectors[i]
	}
	return nil
}

func (s *IndexerService) recordUsage(ctx context.Context, action, passageID string) {
	if s.usage == nil {
		return
	}
	if err := s.usage.Record(context.WithoutCancel(ctx), action, passageID); err != nil {
		logger.Debug("Failed to record usage event %s: %v", action, err)
	}
}
